// Package entitlement はプレミアム購入記録とプロフィールの整合処理を提供する。
package entitlement

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/hitoshi/doodleprompt/internal/model"
	"github.com/hitoshi/doodleprompt/internal/repository"
)

// Service はエンタイトルメントの照会と修復を提供する。
//
// 正とするのはKVストア上のSubscriptionRecordであり、プロフィールの
// is_premiumフラグはそのキャッシュ。Reconcileはレコードからフラグへの
// 一方向の修復のみ行い、レコードのないユーザーのフラグを落とすことはしない
// （フラグの剥奪は返金処理など明示的な運用操作に限る）。
type Service struct {
	entitlementRepo repository.EntitlementRepository
	profileRepo     repository.ProfileRepository
}

// NewService はServiceを生成する。
func NewService(entitlementRepo repository.EntitlementRepository, profileRepo repository.ProfileRepository) *Service {
	return &Service{
		entitlementRepo: entitlementRepo,
		profileRepo:     profileRepo,
	}
}

// IsPremium は指定ユーザーがプレミアムかどうかをレコードから判定する。
func (s *Service) IsPremium(ctx context.Context, userID string) (bool, error) {
	record, err := s.entitlementRepo.Get(ctx, userID)
	if err != nil {
		return false, fmt.Errorf("failed to get subscription record: %w", err)
	}
	return record != nil && record.Status == model.SubscriptionStatusActive, nil
}

// Reconcile はレコードとプロフィールフラグの不整合を修復する。
// レコードがありフラグが立っていない場合のみフラグを立てる。
// 修復を行った場合はtrueを返す。
func (s *Service) Reconcile(ctx context.Context, userID string) (bool, error) {
	record, err := s.entitlementRepo.Get(ctx, userID)
	if err != nil {
		return false, fmt.Errorf("failed to get subscription record: %w", err)
	}
	if record == nil || record.Status != model.SubscriptionStatusActive {
		return false, nil
	}

	profile, err := s.profileRepo.FindByUserID(ctx, userID)
	if err != nil {
		return false, fmt.Errorf("failed to find profile: %w", err)
	}
	if profile != nil && profile.IsPremium {
		return false, nil
	}

	if err := s.profileRepo.SetPremium(ctx, userID, true); err != nil {
		return false, fmt.Errorf("failed to repair premium flag: %w", err)
	}

	slog.Info("premium flag repaired from subscription record",
		slog.String("user_id", userID),
		slog.String("session_id", record.StripeSessionID),
	)
	return true, nil
}
