package prompt

import (
	"context"
	"errors"
	"testing"

	"github.com/hitoshi/doodleprompt/internal/model"
)

// --- モック定義 ---

type mockPromptRepo struct {
	findByDateFn   func(ctx context.Context, date string) (*model.Prompt, error)
	upsertFn       func(ctx context.Context, prompt *model.Prompt) error
	upsertSourceFn func(ctx context.Context, source *model.PromptSourceState) error
}

func (m *mockPromptRepo) FindByDate(ctx context.Context, date string) (*model.Prompt, error) {
	if m.findByDateFn != nil {
		return m.findByDateFn(ctx, date)
	}
	return nil, nil
}

func (m *mockPromptRepo) Upsert(ctx context.Context, prompt *model.Prompt) error {
	if m.upsertFn != nil {
		return m.upsertFn(ctx, prompt)
	}
	return nil
}

func (m *mockPromptRepo) ListSourcesDueForFetch(_ context.Context) ([]*model.PromptSourceState, error) {
	return nil, nil
}

func (m *mockPromptRepo) UpsertSource(ctx context.Context, source *model.PromptSourceState) error {
	if m.upsertSourceFn != nil {
		return m.upsertSourceFn(ctx, source)
	}
	return nil
}

func (m *mockPromptRepo) UpdateSourceState(_ context.Context, _ *model.PromptSourceState) error {
	return nil
}

type mockSSRFValidator struct {
	validateFn func(rawURL string) error
}

func (m *mockSSRFValidator) ValidateURL(rawURL string) error {
	if m.validateFn != nil {
		return m.validateFn(rawURL)
	}
	return nil
}

// --- PromptForDate ---

// TestPromptForDate_PremiumRedaction は無料ユーザーへのプレミアムお題の
// 非開示を検証する。
func TestPromptForDate_PremiumRedaction(t *testing.T) {
	repo := &mockPromptRepo{
		findByDateFn: func(_ context.Context, date string) (*model.Prompt, error) {
			return &model.Prompt{
				Date:        date,
				Text:        "ねこの宇宙飛行士",
				PremiumText: "月面でお昼寝するねこ",
				Source:      KindSheet,
			}, nil
		},
	}
	svc := NewService(repo, &mockSSRFValidator{})

	free, err := svc.PromptForDate(context.Background(), "2026-03-10", false)
	if err != nil {
		t.Fatalf("PromptForDate returned error: %v", err)
	}
	if free.PremiumText != "" {
		t.Error("premium text should be redacted for free users")
	}
	if free.Text != "ねこの宇宙飛行士" {
		t.Errorf("base text should be preserved, got %s", free.Text)
	}

	premium, err := svc.PromptForDate(context.Background(), "2026-03-10", true)
	if err != nil {
		t.Fatalf("PromptForDate returned error: %v", err)
	}
	if premium.PremiumText != "月面でお昼寝するねこ" {
		t.Error("premium text should be visible for premium users")
	}
}

// TestPromptForDate_NotFound はお題未登録日でAPIErrorが返ることを検証する。
func TestPromptForDate_NotFound(t *testing.T) {
	svc := NewService(&mockPromptRepo{}, &mockSSRFValidator{})

	_, err := svc.PromptForDate(context.Background(), "2026-03-10", false)
	if err == nil {
		t.Fatal("expected error for missing prompt")
	}

	var apiErr *model.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %T", err)
	}
	if apiErr.Code != model.ErrCodePromptNotFound {
		t.Errorf("expected code %s, got %s", model.ErrCodePromptNotFound, apiErr.Code)
	}
}

// TestPromptForDate_InvalidDate は日付形式不正でAPIErrorが返ることを検証する。
func TestPromptForDate_InvalidDate(t *testing.T) {
	findCalled := false
	repo := &mockPromptRepo{
		findByDateFn: func(_ context.Context, _ string) (*model.Prompt, error) {
			findCalled = true
			return nil, nil
		},
	}
	svc := NewService(repo, &mockSSRFValidator{})

	_, err := svc.PromptForDate(context.Background(), "03/10/2026", false)
	if err == nil {
		t.Fatal("expected error for invalid date format")
	}
	if findCalled {
		t.Error("repository should not be queried for invalid date")
	}
}

// --- RegisterSource ---

// TestRegisterSource はソース登録の正常系を検証する。
func TestRegisterSource(t *testing.T) {
	var upserted *model.PromptSourceState
	repo := &mockPromptRepo{
		upsertSourceFn: func(_ context.Context, source *model.PromptSourceState) error {
			upserted = source
			return nil
		},
	}
	svc := NewService(repo, &mockSSRFValidator{})

	source, err := svc.RegisterSource(context.Background(), "https://sheets.example.com/prompts.csv", KindSheet)
	if err != nil {
		t.Fatalf("RegisterSource returned error: %v", err)
	}

	if upserted == nil {
		t.Fatal("expected source to be upserted")
	}
	if source.Status != model.PromptSourceActive {
		t.Errorf("expected active status, got %s", source.Status)
	}
	if source.ID == "" {
		t.Error("expected ID to be generated")
	}
}

// TestRegisterSource_SSRFBlocked はSSRF検証失敗でAPIErrorが返ることを検証する。
func TestRegisterSource_SSRFBlocked(t *testing.T) {
	guard := &mockSSRFValidator{
		validateFn: func(_ string) error {
			return errors.New("blocked IP address")
		},
	}
	svc := NewService(&mockPromptRepo{}, guard)

	_, err := svc.RegisterSource(context.Background(), "http://169.254.169.254/prompts.csv", KindSheet)
	if err == nil {
		t.Fatal("expected error for blocked URL")
	}

	var apiErr *model.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %T", err)
	}
	if apiErr.Code != model.ErrCodeSSRFBlocked {
		t.Errorf("expected code %s, got %s", model.ErrCodeSSRFBlocked, apiErr.Code)
	}
}

// TestRegisterSource_Validation は入力バリデーションを検証する。
func TestRegisterSource_Validation(t *testing.T) {
	svc := NewService(&mockPromptRepo{}, &mockSSRFValidator{})

	if _, err := svc.RegisterSource(context.Background(), "", KindSheet); err == nil {
		t.Error("expected error for empty URL")
	}
	if _, err := svc.RegisterSource(context.Background(), "https://example.com/p.csv", "unknown"); err == nil {
		t.Error("expected error for unknown kind")
	}
}
