// Package model はドメインモデルを定義する。
package model

import "time"

// Profile はユーザーの公開プロフィールを表す。
// IsPremiumはエンタイトルメントレコード（Redis上のSubscriptionRecord）の
// キャッシュであり、正とするのはレコード側。entitlement.Serviceが整合させる。
type Profile struct {
	UserID    string
	Username  string
	AvatarID  string
	Title     string
	IsPremium bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// DefaultProfile はプロフィール行が存在しないユーザーに対するデフォルト値を返す。
// GET /api/profile はこの値とDB行をマージして返す。
func DefaultProfile(userID string) *Profile {
	return &Profile{
		UserID:   userID,
		Username: "",
		AvatarID: "pencil",
		Title:    "",
	}
}

// ProfileUpdate はPATCH /api/profileで更新可能なフィールドのホワイトリスト。
// nilフィールドは変更しない部分更新を表す。
type ProfileUpdate struct {
	Username *string
	AvatarID *string
	Title    *string
}
