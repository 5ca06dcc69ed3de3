// Package model はドメインモデルを定義する。
package model

import "time"

// BadgeType はバッジの種別を表す。
type BadgeType string

const (
	// BadgeStreak3 は3日連続アクセスバッジ。
	BadgeStreak3 BadgeType = "streak_3"
	// BadgeStreak7 は7日連続アクセスバッジ。
	BadgeStreak7 BadgeType = "streak_7"
	// BadgeStreak30 は30日連続アクセスバッジ。
	BadgeStreak30 BadgeType = "streak_30"
	// BadgeStreak100 は100日連続アクセスバッジ。
	BadgeStreak100 BadgeType = "streak_100"
	// BadgeFirstDoodle は初投稿バッジ。
	BadgeFirstDoodle BadgeType = "first_doodle"
	// BadgeDoodle10 は10作品投稿バッジ。
	BadgeDoodle10 BadgeType = "doodle_10"
	// BadgeDoodle50 は50作品投稿バッジ。
	BadgeDoodle50 BadgeType = "doodle_50"
	// BadgeLiked10 は累計10いいね獲得バッジ。
	BadgeLiked10 BadgeType = "liked_10"
	// BadgeLiked100 は累計100いいね獲得バッジ。
	BadgeLiked100 BadgeType = "liked_100"
	// BadgeShare5 は5回シェアバッジ。
	BadgeShare5 BadgeType = "share_5"
)

// Badge はユーザーが獲得したバッジを表す。
// (user_id, badge_type)で一意。一度獲得したバッジは取り消されない（追記専用）。
type Badge struct {
	ID        string
	UserID    string
	BadgeType BadgeType
	EarnedAt  time.Time
}

// BadgeCounters はバッジ判定の入力となる単調増加カウンタのスナップショット。
// いいね解除等でカウンタが後退しても、獲得済みバッジには影響しない。
type BadgeCounters struct {
	StreakDays    int
	DoodleCount   int
	LikesReceived int
	ShareCount    int
}
