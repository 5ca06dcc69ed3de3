// Package model はドメインモデルを定義する。
package model

import "time"

// Doodle は投稿された作品を表す。
// 画像データはPNGバイト列としてDBに保存する。
type Doodle struct {
	ID         string
	UserID     string
	PromptDate string // 作品が紐付くお題の暦日（"2006-01-02"）
	Title      string // サニタイズ済み
	ImageData  []byte
	ImageMime  string
	ShareCount int
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// DoodleWithStats は作品といいね数、閲覧ユーザーのいいね状態を結合したモデル。
type DoodleWithStats struct {
	Doodle
	LikeCount int
	IsLiked   bool
}

// Like はユーザーから作品へのいいねを表す。(user_id, doodle_id)で一意。
type Like struct {
	UserID    string
	DoodleID  string
	CreatedAt time.Time
}

// Follow はユーザー間のフォロー関係を表す。(follower_id, followee_id)で一意。
type Follow struct {
	FollowerID string
	FolloweeID string
	CreatedAt  time.Time
}
