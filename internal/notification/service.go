// Package notification はユーザー通知の作成・取得・既読管理を提供する。
package notification

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/doodleprompt/internal/model"
	"github.com/hitoshi/doodleprompt/internal/repository"
)

const (
	// defaultListLimit は一覧取得のデフォルト件数。
	defaultListLimit = 20
	// maxListLimit は一覧取得の最大件数。
	maxListLimit = 100
	// unreadCountTTL は未読件数キャッシュの有効期間。
	unreadCountTTL = 30 * time.Second
)

// Service は通知に関するビジネスロジックを提供する。
type Service struct {
	notificationRepo repository.NotificationRepository
	unreadCache      *unreadCountCache
}

// NewService はServiceを生成する。
func NewService(notificationRepo repository.NotificationRepository) *Service {
	return &Service{
		notificationRepo: notificationRepo,
		unreadCache:      newUnreadCountCache(unreadCountTTL),
	}
}

// CreateInput は通知作成の入力。
type CreateInput struct {
	UserID   string
	Type     model.NotificationType
	Title    string
	Body     string
	Link     string
	Metadata map[string]string
}

// Create は通知を作成する。Metadataはnil可（空オブジェクトとして保存される）。
func (s *Service) Create(ctx context.Context, input CreateInput) (*model.Notification, error) {
	if input.UserID == "" {
		return nil, model.NewMissingFieldError("userId")
	}
	if input.Title == "" {
		return nil, model.NewMissingFieldError("title")
	}

	metadata := "{}"
	if len(input.Metadata) > 0 {
		data, err := json.Marshal(input.Metadata)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal metadata: %w", err)
		}
		metadata = string(data)
	}

	n := &model.Notification{
		ID:        uuid.New().String(),
		UserID:    input.UserID,
		Type:      input.Type,
		Title:     input.Title,
		Body:      input.Body,
		Link:      input.Link,
		Metadata:  metadata,
		CreatedAt: time.Now(),
	}

	if err := s.notificationRepo.Create(ctx, n); err != nil {
		return nil, fmt.Errorf("failed to create notification: %w", err)
	}

	s.unreadCache.invalidate(input.UserID)
	return n, nil
}

// List はユーザーの通知一覧をcreated_at降順で返す。
// limitが0以下の場合はデフォルト値、上限超過の場合は上限に丸める。
func (s *Service) List(ctx context.Context, userID string, unreadOnly bool, cursor time.Time, limit int) ([]*model.Notification, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}

	notifications, err := s.notificationRepo.ListByUserID(ctx, userID, unreadOnly, cursor, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list notifications: %w", err)
	}
	return notifications, nil
}

// UnreadCount はユーザーの未読通知数を返す。
// TTLキャッシュ経由で返すため、値は最大でTTLぶん古い可能性がある。
func (s *Service) UnreadCount(ctx context.Context, userID string) (int, error) {
	if count, ok := s.unreadCache.get(userID); ok {
		return count, nil
	}

	count, err := s.notificationRepo.CountUnread(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("failed to count unread notifications: %w", err)
	}

	s.unreadCache.set(userID, count)
	return count, nil
}

// MarkRead は指定通知を既読にする。一度既読になった通知は未読に戻らない。
// 通知が存在しないか他ユーザーの所有の場合はAPIErrorを返す。
func (s *Service) MarkRead(ctx context.Context, userID, notificationID string) error {
	found, err := s.notificationRepo.MarkRead(ctx, userID, notificationID)
	if err != nil {
		return fmt.Errorf("failed to mark notification read: %w", err)
	}
	if !found {
		return model.NewNotificationNotFoundError(notificationID)
	}

	s.unreadCache.invalidate(userID)
	return nil
}

// MarkAllRead はユーザーの全未読通知を既読にし、既読にした件数を返す。
func (s *Service) MarkAllRead(ctx context.Context, userID string) (int, error) {
	count, err := s.notificationRepo.MarkAllRead(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("failed to mark all notifications read: %w", err)
	}

	s.unreadCache.invalidate(userID)
	return count, nil
}

// Delete は指定通知を削除する。存在しない場合もエラーにしない（冪等）。
func (s *Service) Delete(ctx context.Context, userID, notificationID string) error {
	if err := s.notificationRepo.Delete(ctx, userID, notificationID); err != nil {
		return fmt.Errorf("failed to delete notification: %w", err)
	}

	s.unreadCache.invalidate(userID)
	return nil
}

// DeleteAllRead はユーザーの既読通知を全て削除する。
func (s *Service) DeleteAllRead(ctx context.Context, userID string) error {
	if err := s.notificationRepo.DeleteAllRead(ctx, userID); err != nil {
		return fmt.Errorf("failed to delete read notifications: %w", err)
	}
	return nil
}

// --- 他サービスからの通知発行 ---
// いずれもベストエフォートで、失敗はログに残すのみで呼び出し元に伝播させない。

// NotifyBadgeEarned はバッジ獲得通知を発行する。
func (s *Service) NotifyBadgeEarned(ctx context.Context, userID string, badgeType model.BadgeType) {
	_, err := s.Create(ctx, CreateInput{
		UserID:   userID,
		Type:     model.NotificationBadge,
		Title:    "新しいバッジを獲得しました！",
		Link:     "/profile",
		Metadata: map[string]string{"badge_type": string(badgeType)},
	})
	if err != nil {
		slog.Error("failed to create badge notification",
			slog.String("user_id", userID),
			slog.String("badge_type", string(badgeType)),
			slog.String("error", err.Error()),
		)
	}
}

// NotifyLike はいいね通知を作品の所有者に発行する。
func (s *Service) NotifyLike(ctx context.Context, ownerID, doodleID string) {
	_, err := s.Create(ctx, CreateInput{
		UserID:   ownerID,
		Type:     model.NotificationLike,
		Title:    "あなたの作品にいいねがつきました",
		Link:     "/doodles/" + doodleID,
		Metadata: map[string]string{"doodle_id": doodleID},
	})
	if err != nil {
		slog.Error("failed to create like notification",
			slog.String("user_id", ownerID),
			slog.String("doodle_id", doodleID),
			slog.String("error", err.Error()),
		)
	}
}

// NotifyFollow はフォロー通知を発行する。
func (s *Service) NotifyFollow(ctx context.Context, followeeID, followerID string) {
	_, err := s.Create(ctx, CreateInput{
		UserID:   followeeID,
		Type:     model.NotificationFollow,
		Title:    "新しいフォロワーがいます",
		Metadata: map[string]string{"follower_id": followerID},
	})
	if err != nil {
		slog.Error("failed to create follow notification",
			slog.String("user_id", followeeID),
			slog.String("error", err.Error()),
		)
	}
}

// NotifyPurchase はプレミアム購入完了通知を発行する。
func (s *Service) NotifyPurchase(ctx context.Context, userID string) {
	_, err := s.Create(ctx, CreateInput{
		UserID: userID,
		Type:   model.NotificationPurchase,
		Title:  "プレミアムへようこそ！",
		Body:   "プレミアム特典が有効になりました。追加のお題とストリークフリーズをお楽しみください。",
		Link:   "/premium",
	})
	if err != nil {
		slog.Error("failed to create purchase notification",
			slog.String("user_id", userID),
			slog.String("error", err.Error()),
		)
	}
}
