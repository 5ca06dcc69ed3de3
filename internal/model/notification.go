// Package model はドメインモデルを定義する。
package model

import "time"

// NotificationType は通知の種別を表す。
type NotificationType string

const (
	// NotificationBadge はバッジ獲得通知。
	NotificationBadge NotificationType = "badge"
	// NotificationLike はいいね通知。
	NotificationLike NotificationType = "like"
	// NotificationFollow はフォロー通知。
	NotificationFollow NotificationType = "follow"
	// NotificationPurchase はプレミアム購入完了通知。
	NotificationPurchase NotificationType = "purchase"
	// NotificationSystem は運営からのお知らせ。
	NotificationSystem NotificationType = "system"
)

// Notification はユーザーへの通知を表す。
// ReadAtは未読の間nilで、一度既読になったら未読には戻らない（単調）。
type Notification struct {
	ID        string
	UserID    string
	Type      NotificationType
	Title     string
	Body      string
	Link      string
	Metadata  string // JSON文字列。空の場合は"{}"
	CreatedAt time.Time
	ReadAt    *time.Time
}

// IsRead は通知が既読かどうかを返す。
func (n *Notification) IsRead() bool {
	return n.ReadAt != nil
}
