// Package streak は連続アクセス日数の記録と判定を提供する。
package streak

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/hitoshi/doodleprompt/internal/clock"
	"github.com/hitoshi/doodleprompt/internal/model"
	"github.com/hitoshi/doodleprompt/internal/repository"
)

// graceDays はストリークが維持される最大の暦日ギャップ。
// last_viewed_dateからの差がこの値以下であればストリークは継続する。
const graceDays = 2

// BadgeEvaluator はカウンタスナップショットに対するバッジ判定インターフェース。
type BadgeEvaluator interface {
	Evaluate(ctx context.Context, userID string, counters model.BadgeCounters) ([]*model.Badge, error)
}

// Service はストリークに関するビジネスロジックを提供する。
type Service struct {
	streakRepo  repository.StreakRepository
	profileRepo repository.ProfileRepository
	badges      BadgeEvaluator

	// テストで時刻を固定するためのフック
	now func() time.Time
}

// NewService はServiceを生成する。badgesはnil可。
func NewService(streakRepo repository.StreakRepository, profileRepo repository.ProfileRepository, badges BadgeEvaluator) *Service {
	return &Service{
		streakRepo:  streakRepo,
		profileRepo: profileRepo,
		badges:      badges,
		now:         time.Now,
	}
}

// GetState はユーザーの現在のストリーク状態を返す。
// 記録がないユーザーにはゼロ値の状態を返す。
func (s *Service) GetState(ctx context.Context, userID string) (*model.StreakState, error) {
	state, err := s.streakRepo.FindByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to find streak state: %w", err)
	}
	if state == nil {
		return &model.StreakState{UserID: userID}, nil
	}
	return state, nil
}

// RecordView は「今日お題を見た」ことを記録し、ストリークを更新する。
// 同一暦日の再記録は状態を変更しない（冪等）。
//
// 暦日ギャップごとの挙動:
//   - ギャップ0: 記録済み。変更なし
//   - ギャップ1: ストリーク+1
//   - ギャップ2（猶予内）: ストリーク+1
//   - ギャップ3かつフリーズ利用可能: フリーズを消費してストリーク+1
//   - それ以外: ストリークを1にリセット（今回の記録が新しいストリークの1日目）
func (s *Service) RecordView(ctx context.Context, userID string) (*model.StreakResult, error) {
	now := s.now()
	today := clock.DayOf(now)

	state, err := s.streakRepo.FindByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to find streak state: %w", err)
	}

	// 初回記録
	if state == nil || state.LastViewedDate == "" {
		newState := &model.StreakState{
			UserID:         userID,
			CurrentStreak:  1,
			LongestStreak:  1,
			LastViewedDate: today,
		}
		if state != nil {
			newState.FreezeAvailable = state.FreezeAvailable
			newState.FreezeUsedAt = state.FreezeUsedAt
		}
		if err := s.refreshFreeze(ctx, userID, newState, now); err != nil {
			return nil, err
		}
		if err := s.streakRepo.Save(ctx, newState); err != nil {
			return nil, fmt.Errorf("failed to save streak state: %w", err)
		}
		s.evaluateStreakBadges(ctx, userID, newState.CurrentStreak)
		return &model.StreakResult{State: newState, Extended: true}, nil
	}

	gap, err := clock.DaysBetween(state.LastViewedDate, today)
	if err != nil {
		return nil, fmt.Errorf("failed to compute day gap: %w", err)
	}

	// 同一暦日（または時計の巻き戻り）: 冪等に何もしない
	if gap <= 0 {
		return &model.StreakResult{State: state, AlreadySeen: true}, nil
	}

	// 月替わりのフリーズ復活を先に解決する
	if err := s.refreshFreeze(ctx, userID, state, now); err != nil {
		return nil, err
	}

	result := &model.StreakResult{State: state}

	switch {
	case gap <= graceDays:
		state.CurrentStreak++
		result.Extended = true
	case gap == graceDays+1 && state.FreezeAvailable:
		// フリーズは猶予を超えた欠落1日分だけを許容する
		state.CurrentStreak++
		state.FreezeAvailable = false
		usedAt := now
		state.FreezeUsedAt = &usedAt
		result.Extended = true
		result.FrozenGap = true
		slog.Info("streak freeze applied",
			slog.String("user_id", userID),
			slog.Int("gap_days", gap),
			slog.Int("current_streak", state.CurrentStreak),
		)
	default:
		// 今回の記録自体が新しいストリークの1日目となる
		state.CurrentStreak = 1
		result.WasReset = true
		slog.Info("streak reset",
			slog.String("user_id", userID),
			slog.Int("gap_days", gap),
		)
	}

	if state.CurrentStreak > state.LongestStreak {
		state.LongestStreak = state.CurrentStreak
	}
	state.LastViewedDate = today

	if err := s.streakRepo.Save(ctx, state); err != nil {
		return nil, fmt.Errorf("failed to save streak state: %w", err)
	}

	if result.Extended {
		s.evaluateStreakBadges(ctx, userID, state.CurrentStreak)
	}

	return result, nil
}

// evaluateStreakBadges は連続日数に対するバッジ判定を行う（ベストエフォート）。
func (s *Service) evaluateStreakBadges(ctx context.Context, userID string, days int) {
	if s.badges == nil {
		return
	}
	if _, err := s.badges.Evaluate(ctx, userID, model.BadgeCounters{StreakDays: days}); err != nil {
		slog.Error("failed to evaluate streak badges",
			slog.String("user_id", userID),
			slog.String("error", err.Error()),
		)
	}
}

// refreshFreeze は月次のフリーズ復活を遅延評価で反映する。
// プレミアム会員のみフリーズを保有でき、暦月ごとに1回復活する。
func (s *Service) refreshFreeze(ctx context.Context, userID string, state *model.StreakState, now time.Time) error {
	profile, err := s.profileRepo.FindByUserID(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to find profile: %w", err)
	}

	if profile == nil || !profile.IsPremium {
		state.FreezeAvailable = false
		return nil
	}

	// 未使用、または前回使用が先月以前であれば復活する
	if state.FreezeUsedAt == nil || !clock.SameMonth(*state.FreezeUsedAt, now) {
		state.FreezeAvailable = true
	}
	return nil
}
