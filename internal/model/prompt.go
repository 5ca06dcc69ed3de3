// Package model はドメインモデルを定義する。
package model

import "time"

// Prompt は1日分のお絵かきお題を表す。
// Dateは正規タイムゾーン（US-Eastern）の暦日（"2006-01-02"形式）で一意。
type Prompt struct {
	Date        string
	Text        string
	PremiumText string // プレミアム会員向けの追加お題。空の場合あり
	Source      string // "sheet" または "feed"
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// PromptSourceStatus はお題ソースのフェッチ状態を表す。
type PromptSourceStatus string

const (
	// PromptSourceActive はアクティブなフェッチ状態。
	PromptSourceActive PromptSourceStatus = "active"
	// PromptSourceStopped は停止されたフェッチ状態。
	PromptSourceStopped PromptSourceStatus = "stopped"
)

// PromptSourceState はお題ソースのフェッチ制御状態を表す。
// 連続エラー回数と次回フェッチ時刻による指数バックオフを保持する。
type PromptSourceState struct {
	ID                string
	URL               string
	Kind              string // "sheet" または "feed"
	Status            PromptSourceStatus
	ConsecutiveErrors int
	ErrorMessage      string
	ETag              string
	LastModified      string
	NextFetchAt       time.Time
	CreatedAt         time.Time
	UpdatedAt         time.Time
}
