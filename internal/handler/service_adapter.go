package handler

import (
	"context"

	"github.com/hitoshi/doodleprompt/internal/doodle"
	"github.com/hitoshi/doodleprompt/internal/model"
	"github.com/hitoshi/doodleprompt/internal/payment"
	"github.com/hitoshi/doodleprompt/internal/profile"
	"github.com/hitoshi/doodleprompt/internal/prompt"
	"github.com/hitoshi/doodleprompt/internal/repository"
)

// PaymentServiceAdapter は payment.Service を PaymentServiceInterface に適合させるアダプタ。
// チェックアウト作成に必要なメールアドレスをユーザーリポジトリから補完する。
type PaymentServiceAdapter struct {
	svc      *payment.Service
	userRepo repository.UserRepository
}

// NewPaymentServiceAdapter はPaymentServiceAdapterを生成する。
func NewPaymentServiceAdapter(svc *payment.Service, userRepo repository.UserRepository) *PaymentServiceAdapter {
	return &PaymentServiceAdapter{svc: svc, userRepo: userRepo}
}

// CreateCheckout はユーザーのメールアドレスを解決してCheckoutセッションを作成する。
func (a *PaymentServiceAdapter) CreateCheckout(ctx context.Context, userID string) (string, string, error) {
	user, err := a.userRepo.FindByID(ctx, userID)
	if err != nil {
		return "", "", err
	}
	if user == nil {
		return "", "", model.NewUserNotFoundError()
	}
	return a.svc.CreateCheckout(ctx, userID, user.Email)
}

// VerifySession はCheckoutセッションの決済完了状態を返す。
func (a *PaymentServiceAdapter) VerifySession(ctx context.Context, sessionID string) (bool, error) {
	return a.svc.VerifySession(ctx, sessionID)
}

// HandleWebhook は決済プロバイダからのWebhookを処理する。
func (a *PaymentServiceAdapter) HandleWebhook(ctx context.Context, payload []byte, sigHeader string) error {
	return a.svc.HandleWebhook(ctx, payload, sigHeader)
}

// ShareDataAdapter は共有ページの構成データをドメインサービスから集約するアダプタ。
type ShareDataAdapter struct {
	doodleSvc  *doodle.Service
	promptSvc  *prompt.Service
	profileSvc *profile.Service
	doodleRepo repository.DoodleRepository
}

// NewShareDataAdapter はShareDataAdapterを生成する。
func NewShareDataAdapter(
	doodleSvc *doodle.Service,
	promptSvc *prompt.Service,
	profileSvc *profile.Service,
	doodleRepo repository.DoodleRepository,
) *ShareDataAdapter {
	return &ShareDataAdapter{
		doodleSvc:  doodleSvc,
		promptSvc:  promptSvc,
		profileSvc: profileSvc,
		doodleRepo: doodleRepo,
	}
}

// DoodleForShare は作品と作者の表示名を返す。
// 作者プロフィールが取得できない場合は表示名を空で返す（ページ側でフォールバック）。
func (a *ShareDataAdapter) DoodleForShare(ctx context.Context, doodleID string) (*model.Doodle, string, error) {
	d, err := a.doodleSvc.Get(ctx, doodleID)
	if err != nil {
		return nil, "", err
	}

	authorName := ""
	if p, err := a.profileSvc.GetProfile(ctx, d.UserID); err == nil {
		authorName = p.Username
	}
	return d, authorName, nil
}

// PromptForShare は指定暦日の公開お題を返す。
// 共有ページは不特定多数が閲覧するため、プレミアムお題は常に含めない。
func (a *ShareDataAdapter) PromptForShare(ctx context.Context, date string) (*model.Prompt, error) {
	return a.promptSvc.PromptForDate(ctx, date, false)
}

// ProfileForShare はユーザー名で公開プロフィールと作品数を返す。
func (a *ShareDataAdapter) ProfileForShare(ctx context.Context, username string) (*model.Profile, int, error) {
	p, err := a.profileSvc.GetProfileByUsername(ctx, username)
	if err != nil {
		return nil, 0, err
	}

	count, err := a.doodleRepo.CountByUserID(ctx, p.UserID)
	if err != nil {
		return nil, 0, err
	}
	return p, count, nil
}

// --- compile-time interface checks ---

var _ PaymentServiceInterface = (*PaymentServiceAdapter)(nil)
var _ ShareDataProvider = (*ShareDataAdapter)(nil)
