// Package social はいいねとフォローの関係管理を提供する。
package social

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/hitoshi/doodleprompt/internal/model"
	"github.com/hitoshi/doodleprompt/internal/repository"
)

// BadgeEvaluator はカウンタスナップショットに対するバッジ判定インターフェース。
type BadgeEvaluator interface {
	Evaluate(ctx context.Context, userID string, counters model.BadgeCounters) ([]*model.Badge, error)
}

// Notifier はいいね・フォロー通知の送信インターフェース。
// 通知失敗は操作の成否に影響しない（ベストエフォート）。
type Notifier interface {
	NotifyLike(ctx context.Context, ownerID, doodleID string)
	NotifyFollow(ctx context.Context, followeeID, followerID string)
}

// Service はいいね・フォローに関するビジネスロジックを提供する。
type Service struct {
	socialRepo repository.SocialRepository
	doodleRepo repository.DoodleRepository
	userRepo   repository.UserRepository
	badges     BadgeEvaluator
	notifier   Notifier
}

// NewService はServiceを生成する。badgesとnotifierはnil可。
func NewService(
	socialRepo repository.SocialRepository,
	doodleRepo repository.DoodleRepository,
	userRepo repository.UserRepository,
	badges BadgeEvaluator,
	notifier Notifier,
) *Service {
	return &Service{
		socialRepo: socialRepo,
		doodleRepo: doodleRepo,
		userRepo:   userRepo,
		badges:     badges,
		notifier:   notifier,
	}
}

// Like は作品にいいねを付ける。同一ユーザーの重複いいねは1回に収束する（冪等）。
// 初回のいいねのみ作品の所有者へ通知し、所有者の累計獲得いいね数で
// バッジ判定を行う。
func (s *Service) Like(ctx context.Context, userID, doodleID string) error {
	doodle, err := s.doodleRepo.FindByID(ctx, doodleID)
	if err != nil {
		return fmt.Errorf("failed to find doodle: %w", err)
	}
	if doodle == nil {
		return model.NewDoodleNotFoundError(doodleID)
	}

	inserted, err := s.socialRepo.InsertLike(ctx, userID, doodleID)
	if err != nil {
		return fmt.Errorf("failed to insert like: %w", err)
	}
	if !inserted {
		// 既にいいね済み。カウントも通知も増やさない
		return nil
	}

	// 自作品へのいいねは許可するが通知しない
	if s.notifier != nil && doodle.UserID != userID {
		s.notifier.NotifyLike(ctx, doodle.UserID, doodleID)
	}

	s.evaluateLikeBadges(ctx, doodle.UserID)
	return nil
}

// Unlike はいいねを取り消す。存在しない場合もエラーにしない（冪等）。
// 獲得済みバッジは取り消さない。
func (s *Service) Unlike(ctx context.Context, userID, doodleID string) error {
	if err := s.socialRepo.DeleteLike(ctx, userID, doodleID); err != nil {
		return fmt.Errorf("failed to delete like: %w", err)
	}
	return nil
}

// evaluateLikeBadges は所有者の累計獲得いいね数でバッジ判定を行う（ベストエフォート）。
func (s *Service) evaluateLikeBadges(ctx context.Context, ownerID string) {
	if s.badges == nil {
		return
	}
	count, err := s.socialRepo.CountLikesReceived(ctx, ownerID)
	if err != nil {
		slog.Error("failed to count likes for badge evaluation",
			slog.String("user_id", ownerID),
			slog.String("error", err.Error()),
		)
		return
	}
	if _, err := s.badges.Evaluate(ctx, ownerID, model.BadgeCounters{LikesReceived: count}); err != nil {
		slog.Error("failed to evaluate like badges",
			slog.String("user_id", ownerID),
			slog.String("error", err.Error()),
		)
	}
}

// Follow はユーザーをフォローする。自分自身へのフォローは拒否する。
// 重複フォローは1回に収束し、初回のみ相手へ通知する（冪等）。
func (s *Service) Follow(ctx context.Context, followerID, followeeID string) error {
	if followeeID == "" {
		return model.NewMissingFieldError("followeeId")
	}
	if followerID == followeeID {
		return model.NewSelfFollowError()
	}

	followee, err := s.userRepo.FindByID(ctx, followeeID)
	if err != nil {
		return fmt.Errorf("failed to find followee: %w", err)
	}
	if followee == nil {
		return model.NewUserNotFoundError()
	}

	inserted, err := s.socialRepo.InsertFollow(ctx, followerID, followeeID)
	if err != nil {
		return fmt.Errorf("failed to insert follow: %w", err)
	}
	if !inserted {
		return nil
	}

	slog.Info("user followed",
		slog.String("follower_id", followerID),
		slog.String("followee_id", followeeID),
	)
	if s.notifier != nil {
		s.notifier.NotifyFollow(ctx, followeeID, followerID)
	}
	return nil
}

// Unfollow はフォローを解除する。存在しない場合もエラーにしない（冪等）。
func (s *Service) Unfollow(ctx context.Context, followerID, followeeID string) error {
	if err := s.socialRepo.DeleteFollow(ctx, followerID, followeeID); err != nil {
		return fmt.Errorf("failed to delete follow: %w", err)
	}
	return nil
}

// CountFollowers はユーザーのフォロワー数を返す。
func (s *Service) CountFollowers(ctx context.Context, userID string) (int, error) {
	count, err := s.socialRepo.CountFollowers(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("failed to count followers: %w", err)
	}
	return count, nil
}

// CountLikesReceived はユーザーの全作品が獲得した累計いいね数を返す。
func (s *Service) CountLikesReceived(ctx context.Context, userID string) (int, error) {
	count, err := s.socialRepo.CountLikesReceived(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("failed to count likes received: %w", err)
	}
	return count, nil
}
