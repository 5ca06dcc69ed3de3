// Package model はドメインモデルを定義する。
package model

import "time"

// SubscriptionRecord はプレミアム購入の正記録を表す。
// 決済Webhookのみが作成し、ユーザーIDをキーとして耐久KVストアに1回だけ書き込まれる。
// プロフィールのis_premiumフラグはこのレコードのキャッシュにすぎない。
type SubscriptionRecord struct {
	UserID           string    `json:"user_id"`
	Status           string    `json:"status"`
	StripeSessionID  string    `json:"stripe_session_id"`
	StripeCustomerID string    `json:"stripe_customer_id"`
	AmountTotal      int64     `json:"amount_total"`
	Currency         string    `json:"currency"`
	PurchasedAt      time.Time `json:"purchased_at"`
}

// SubscriptionStatusActive は有効なプレミアム購入を表すステータス。
const SubscriptionStatusActive = "active"
