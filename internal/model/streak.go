// Package model はドメインモデルを定義する。
package model

import "time"

// StreakState はユーザーの連続アクセス状態を表す。
// LastViewedDateは正規タイムゾーン（US-Eastern）の暦日（"2006-01-02"形式）。
// CurrentStreakは非負で、暦日がちょうど1日進んだときのみ+1される。
type StreakState struct {
	UserID          string
	CurrentStreak   int
	LongestStreak   int
	LastViewedDate  string
	FreezeAvailable bool
	FreezeUsedAt    *time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// StreakResult はRecordViewの結果を表す。
type StreakResult struct {
	State       *StreakState
	Extended    bool // 今回の記録でストリークが伸びたか
	FrozenGap   bool // フリーズ消費で欠落日が許容されたか
	WasReset    bool // ギャップ超過によりリセットされたか
	AlreadySeen bool // 同一暦日の再記録（冪等、状態変更なし）
}
