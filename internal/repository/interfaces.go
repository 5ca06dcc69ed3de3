// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"
	"time"

	"github.com/hitoshi/doodleprompt/internal/model"
)

// UserRepository はユーザーデータの永続化インターフェース。
type UserRepository interface {
	// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.User, error)

	// CreateWithIdentity はユーザーとidentityを同一トランザクションで作成する。
	CreateWithIdentity(ctx context.Context, user *model.User, identity *model.Identity) error

	// DeleteByID は指定IDのユーザーを削除する。
	// identities、profiles、doodles等の関連行はCASCADE削除される。
	DeleteByID(ctx context.Context, id string) error
}

// IdentityRepository は外部IdP紐付け情報の永続化インターフェース。
type IdentityRepository interface {
	// FindByProviderAndProviderUserID はproviderとprovider_user_idでidentityを検索する。
	// 見つからない場合はnilを返す。
	FindByProviderAndProviderUserID(ctx context.Context, provider, providerUserID string) (*model.Identity, error)
}

// SessionRepository はセッションデータの永続化インターフェース。
type SessionRepository interface {
	// Create はセッションを作成する。
	Create(ctx context.Context, session *model.Session) error
	// FindByID は指定IDのセッションを取得する。期限切れの場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Session, error)
	// DeleteByID は指定IDのセッションを削除する。
	DeleteByID(ctx context.Context, id string) error
	// DeleteByUserID は指定ユーザーの全セッションを削除する。
	DeleteByUserID(ctx context.Context, userID string) error
}

// ProfileRepository はプロフィールデータの永続化インターフェース。
type ProfileRepository interface {
	// FindByUserID は指定ユーザーのプロフィールを取得する。見つからない場合はnilを返す。
	FindByUserID(ctx context.Context, userID string) (*model.Profile, error)

	// FindByUsername はユーザー名でプロフィールを検索する。見つからない場合はnilを返す。
	// 照合は大文字小文字を区別しない。
	FindByUsername(ctx context.Context, username string) (*model.Profile, error)

	// Upsert はプロフィールのホワイトリストフィールドを冪等にUPSERTする。
	// nilフィールドは変更せず、既存の値を維持する部分更新を行う。
	Upsert(ctx context.Context, userID string, update model.ProfileUpdate) (*model.Profile, error)

	// SetPremium はis_premiumフラグを設定する。
	// エンタイトルメントレコードとの整合処理からのみ呼び出される。
	SetPremium(ctx context.Context, userID string, premium bool) error
}

// StreakRepository はストリーク状態の永続化インターフェース。
type StreakRepository interface {
	// FindByUserID は指定ユーザーのストリーク状態を取得する。見つからない場合はnilを返す。
	FindByUserID(ctx context.Context, userID string) (*model.StreakState, error)

	// Save はストリーク状態を冪等にUPSERTする。
	// 同一暦日の並行記録はlast_viewed_dateの条件付き更新で1回の書き込みに収束する。
	Save(ctx context.Context, state *model.StreakState) error
}

// BadgeRepository はバッジの永続化インターフェース。
type BadgeRepository interface {
	// ListByUserID はユーザーの獲得バッジ一覧をearned_at昇順で返す。
	ListByUserID(ctx context.Context, userID string) ([]*model.Badge, error)

	// Insert はバッジを追記する。(user_id, badge_type)が既に存在する場合は
	// 何もせずfalseを返す（ON CONFLICT DO NOTHING）。
	Insert(ctx context.Context, badge *model.Badge) (bool, error)
}

// NotificationRepository は通知データの永続化インターフェース。
type NotificationRepository interface {
	// Create は通知を作成する。
	Create(ctx context.Context, n *model.Notification) error

	// FindByID は指定IDの通知を取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Notification, error)

	// ListByUserID はユーザーの通知一覧をcreated_at降順で返す。
	// unreadOnlyがtrueの場合はread_at IS NULLの行のみ返す。
	// cursorがゼロ値の場合は先頭から取得する。
	ListByUserID(ctx context.Context, userID string, unreadOnly bool, cursor time.Time, limit int) ([]*model.Notification, error)

	// CountUnread はユーザーの未読通知数を返す。
	CountUnread(ctx context.Context, userID string) (int, error)

	// MarkRead は指定通知を既読にする。既に既読の場合は変更しない（単調）。
	// 行が存在し自ユーザーの所有である場合にtrueを返す。
	MarkRead(ctx context.Context, userID, notificationID string) (bool, error)

	// MarkAllRead はユーザーの全未読通知を既読にする。既読にした件数を返す。
	MarkAllRead(ctx context.Context, userID string) (int, error)

	// Delete は指定通知を削除する。存在しない場合もエラーにしない（冪等）。
	Delete(ctx context.Context, userID, notificationID string) error

	// DeleteAllRead はユーザーの既読通知を全て削除する。
	DeleteAllRead(ctx context.Context, userID string) error
}

// DoodleRepository は作品データの永続化インターフェース。
type DoodleRepository interface {
	// Create は作品を作成する。
	Create(ctx context.Context, doodle *model.Doodle) error

	// FindByID は指定IDの作品を取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Doodle, error)

	// ListByUserID はユーザーの作品一覧をいいね数付き・created_at降順で返す。
	// viewerIDは閲覧ユーザーのいいね状態の解決に使用する。
	ListByUserID(ctx context.Context, userID, viewerID string, cursor time.Time, limit int) ([]model.DoodleWithStats, error)

	// ListByPromptDate は指定お題日の作品一覧をいいね数付き・created_at降順で返す。
	ListByPromptDate(ctx context.Context, promptDate, viewerID string, cursor time.Time, limit int) ([]model.DoodleWithStats, error)

	// CountByUserID はユーザーの投稿作品数を返す。
	CountByUserID(ctx context.Context, userID string) (int, error)

	// IncrementShareCount はシェア回数をインクリメントし、更新後の値を返す。
	IncrementShareCount(ctx context.Context, doodleID string) (int, error)

	// DeleteByID は作品を削除する。所有ユーザーの作品のみ削除できる。
	DeleteByID(ctx context.Context, userID, doodleID string) error
}

// SocialRepository はいいね・フォロー関係の永続化インターフェース。
type SocialRepository interface {
	// InsertLike はいいねを追記する。既に存在する場合は何もせずfalseを返す。
	InsertLike(ctx context.Context, userID, doodleID string) (bool, error)

	// DeleteLike はいいねを削除する。存在しない場合もエラーにしない（冪等）。
	DeleteLike(ctx context.Context, userID, doodleID string) error

	// CountLikesReceived はユーザーの全作品が獲得した累計いいね数を返す。
	CountLikesReceived(ctx context.Context, userID string) (int, error)

	// InsertFollow はフォロー関係を追記する。既に存在する場合は何もせずfalseを返す。
	InsertFollow(ctx context.Context, followerID, followeeID string) (bool, error)

	// DeleteFollow はフォロー関係を削除する。存在しない場合もエラーにしない（冪等）。
	DeleteFollow(ctx context.Context, followerID, followeeID string) error

	// CountFollowers はユーザーのフォロワー数を返す。
	CountFollowers(ctx context.Context, userID string) (int, error)

	// ListFollowerIDs はユーザーをフォローしているユーザーIDの一覧を返す。
	ListFollowerIDs(ctx context.Context, userID string) ([]string, error)
}

// PromptRepository はお題データの永続化インターフェース。
type PromptRepository interface {
	// FindByDate は指定暦日のお題を取得する。見つからない場合はnilを返す。
	FindByDate(ctx context.Context, date string) (*model.Prompt, error)

	// Upsert はお題を冪等にUPSERTする。同一日付の再取得は上書き更新となる。
	Upsert(ctx context.Context, prompt *model.Prompt) error

	// ListSourcesDueForFetch はフェッチ対象のお題ソースを取得する。
	// next_fetch_at <= now() かつ status = 'active' のソースを
	// FOR UPDATE SKIP LOCKEDで排他的に取得する。
	ListSourcesDueForFetch(ctx context.Context) ([]*model.PromptSourceState, error)

	// UpsertSource はお題ソースをURLをキーに冪等に登録する。
	UpsertSource(ctx context.Context, source *model.PromptSourceState) error

	// UpdateSourceState はお題ソースのフェッチ制御状態を更新する。
	UpdateSourceState(ctx context.Context, source *model.PromptSourceState) error
}

// EntitlementRepository はプレミアム購入記録（SubscriptionRecord）の
// 耐久KVストアインターフェース。決済Webhookのみが書き込む。
type EntitlementRepository interface {
	// PutIfAbsent はユーザーIDをキーにレコードを1回だけ書き込む。
	// 既にレコードが存在する場合は書き込まずfalseを返す（プロバイダ再送に対して冪等）。
	PutIfAbsent(ctx context.Context, record *model.SubscriptionRecord) (bool, error)

	// Get は指定ユーザーのレコードを取得する。見つからない場合はnilを返す。
	Get(ctx context.Context, userID string) (*model.SubscriptionRecord, error)
}
