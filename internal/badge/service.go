// Package badge はバッジの判定と付与を提供する。
package badge

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/doodleprompt/internal/model"
	"github.com/hitoshi/doodleprompt/internal/repository"
)

// threshold はカウンタの種類と到達値からバッジ種別への対応を表す。
type threshold struct {
	badgeType model.BadgeType
	counter   func(c model.BadgeCounters) int
	value     int
}

// thresholds はバッジ判定のカタログ。
// カウンタは単調増加の前提で判定し、後退しても獲得済みバッジは取り消さない。
var thresholds = []threshold{
	{model.BadgeStreak3, func(c model.BadgeCounters) int { return c.StreakDays }, 3},
	{model.BadgeStreak7, func(c model.BadgeCounters) int { return c.StreakDays }, 7},
	{model.BadgeStreak30, func(c model.BadgeCounters) int { return c.StreakDays }, 30},
	{model.BadgeStreak100, func(c model.BadgeCounters) int { return c.StreakDays }, 100},
	{model.BadgeFirstDoodle, func(c model.BadgeCounters) int { return c.DoodleCount }, 1},
	{model.BadgeDoodle10, func(c model.BadgeCounters) int { return c.DoodleCount }, 10},
	{model.BadgeDoodle50, func(c model.BadgeCounters) int { return c.DoodleCount }, 50},
	{model.BadgeLiked10, func(c model.BadgeCounters) int { return c.LikesReceived }, 10},
	{model.BadgeLiked100, func(c model.BadgeCounters) int { return c.LikesReceived }, 100},
	{model.BadgeShare5, func(c model.BadgeCounters) int { return c.ShareCount }, 5},
}

// Notifier はバッジ獲得通知の送信インターフェース。
// 通知失敗はバッジ付与を妨げない（ベストエフォート）。
type Notifier interface {
	NotifyBadgeEarned(ctx context.Context, userID string, badgeType model.BadgeType)
}

// Service はバッジに関するビジネスロジックを提供する。
type Service struct {
	badgeRepo repository.BadgeRepository
	notifier  Notifier
}

// NewService はServiceを生成する。notifierはnil可。
func NewService(badgeRepo repository.BadgeRepository, notifier Notifier) *Service {
	return &Service{
		badgeRepo: badgeRepo,
		notifier:  notifier,
	}
}

// ListBadges はユーザーの獲得バッジ一覧を返す。
func (s *Service) ListBadges(ctx context.Context, userID string) ([]*model.Badge, error) {
	badges, err := s.badgeRepo.ListByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list badges: %w", err)
	}
	return badges, nil
}

// Evaluate はカウンタのスナップショットに対して全閾値を判定し、
// 新たに到達したバッジを付与する。付与したバッジの一覧を返す。
// 同一アクションで複数の閾値を跨いだ場合は全て同時に付与される。
// (user_id, badge_type)の重複挿入はON CONFLICT DO NOTHINGで吸収されるため、
// 並行呼び出しでも二重付与は起きない。
func (s *Service) Evaluate(ctx context.Context, userID string, counters model.BadgeCounters) ([]*model.Badge, error) {
	awarded := []*model.Badge{}

	for _, th := range thresholds {
		if th.counter(counters) < th.value {
			continue
		}

		badge := &model.Badge{
			ID:        uuid.New().String(),
			UserID:    userID,
			BadgeType: th.badgeType,
			EarnedAt:  time.Now(),
		}

		inserted, err := s.badgeRepo.Insert(ctx, badge)
		if err != nil {
			return nil, fmt.Errorf("failed to insert badge %s: %w", th.badgeType, err)
		}
		if !inserted {
			continue
		}

		awarded = append(awarded, badge)
		slog.Info("badge awarded",
			slog.String("user_id", userID),
			slog.String("badge_type", string(th.badgeType)),
		)

		if s.notifier != nil {
			s.notifier.NotifyBadgeEarned(ctx, userID, th.badgeType)
		}
	}

	return awarded, nil
}
