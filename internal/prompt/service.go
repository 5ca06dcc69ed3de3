package prompt

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/doodleprompt/internal/clock"
	"github.com/hitoshi/doodleprompt/internal/model"
	"github.com/hitoshi/doodleprompt/internal/repository"
)

// SSRFValidator はお題ソース登録時のURL検証インターフェース。
type SSRFValidator interface {
	ValidateURL(rawURL string) error
}

// Service はお題の提供とソース管理のビジネスロジックを提供する。
type Service struct {
	promptRepo repository.PromptRepository
	ssrfGuard  SSRFValidator
}

// NewService はServiceを生成する。
func NewService(promptRepo repository.PromptRepository, ssrfGuard SSRFValidator) *Service {
	return &Service{
		promptRepo: promptRepo,
		ssrfGuard:  ssrfGuard,
	}
}

// TodayPrompt は正規タイムゾーンにおける今日のお題を返す。
// プレミアム会員でない場合はPremiumTextを空にして返す。
// お題が未登録の場合はAPIErrorを返す。
func (s *Service) TodayPrompt(ctx context.Context, isPremium bool) (*model.Prompt, error) {
	return s.PromptForDate(ctx, clock.Today(), isPremium)
}

// PromptForDate は指定暦日のお題を返す。
func (s *Service) PromptForDate(ctx context.Context, date string, isPremium bool) (*model.Prompt, error) {
	if _, err := clock.ParseDay(date); err != nil {
		return nil, model.NewPromptNotFoundError(date)
	}

	prompt, err := s.promptRepo.FindByDate(ctx, date)
	if err != nil {
		return nil, fmt.Errorf("failed to find prompt: %w", err)
	}
	if prompt == nil {
		return nil, model.NewPromptNotFoundError(date)
	}

	if !isPremium && prompt.PremiumText != "" {
		// 無料ユーザーにはプレミアムお題を開示しない
		redacted := *prompt
		redacted.PremiumText = ""
		return &redacted, nil
	}

	return prompt, nil
}

// RegisterSource はお題ソースを登録する。
// URLはSSRF検証を通過する必要がある。同一URLの再登録は冪等。
func (s *Service) RegisterSource(ctx context.Context, rawURL, kind string) (*model.PromptSourceState, error) {
	if rawURL == "" {
		return nil, model.NewMissingFieldError("url")
	}
	if kind != KindSheet && kind != KindFeed {
		return nil, model.NewMissingFieldError("kind")
	}

	if err := s.ssrfGuard.ValidateURL(rawURL); err != nil {
		return nil, model.NewSSRFBlockedError()
	}

	source := &model.PromptSourceState{
		ID:          uuid.New().String(),
		URL:         rawURL,
		Kind:        kind,
		Status:      model.PromptSourceActive,
		NextFetchAt: time.Now(),
	}

	if err := s.promptRepo.UpsertSource(ctx, source); err != nil {
		return nil, fmt.Errorf("failed to register prompt source: %w", err)
	}

	return source, nil
}
