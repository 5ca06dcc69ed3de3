package payment

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/hitoshi/doodleprompt/internal/email"
	"github.com/hitoshi/doodleprompt/internal/metrics"
	"github.com/hitoshi/doodleprompt/internal/model"
	"github.com/hitoshi/doodleprompt/internal/repository"
)

// PurchaseNotifier は購入完了通知の発行インターフェース。
type PurchaseNotifier interface {
	NotifyPurchase(ctx context.Context, userID string)
}

// ServiceConfig は決済サービスの設定。
type ServiceConfig struct {
	WebhookSecret string
	PriceID       string // 未設定の場合チェックアウト作成は失敗する
	BaseURL       string // 決済完了後のリダイレクト先の基点
}

// Service は決済に関するビジネスロジックを提供する。
//
// プレミアム購入の正記録（SubscriptionRecord）を書き込むのはWebhook処理のみで、
// プロフィールのis_premiumフラグや通知・メールはレコード永続化後の
// ベストエフォートな二次効果として扱う。
type Service struct {
	stripe          StripeAPI
	entitlementRepo repository.EntitlementRepository
	profileRepo     repository.ProfileRepository
	userRepo        repository.UserRepository
	notifier        PurchaseNotifier
	emailSender     email.Sender
	collector       metrics.MetricsCollector
	config          ServiceConfig

	// テストで時刻を固定するためのフック
	now func() time.Time
}

// NewService はServiceを生成する。notifier、emailSender、collectorはnil可。
func NewService(
	stripe StripeAPI,
	entitlementRepo repository.EntitlementRepository,
	profileRepo repository.ProfileRepository,
	userRepo repository.UserRepository,
	notifier PurchaseNotifier,
	emailSender email.Sender,
	collector metrics.MetricsCollector,
	config ServiceConfig,
) *Service {
	return &Service{
		stripe:          stripe,
		entitlementRepo: entitlementRepo,
		profileRepo:     profileRepo,
		userRepo:        userRepo,
		notifier:        notifier,
		emailSender:     emailSender,
		collector:       collector,
		config:          config,
		now:             time.Now,
	}
}

// CreateCheckout はCheckoutセッションを作成し、セッションIDと決済ページのURLを返す。
func (s *Service) CreateCheckout(ctx context.Context, userID, userEmail string) (string, string, error) {
	if userID == "" {
		return "", "", model.NewMissingFieldError("userId")
	}
	if userEmail == "" {
		return "", "", model.NewMissingFieldError("userEmail")
	}
	if s.config.PriceID == "" {
		return "", "", model.NewCheckoutNotConfiguredError()
	}

	session, err := s.stripe.CreateCheckoutSession(ctx, CheckoutParams{
		UserID:     userID,
		UserEmail:  userEmail,
		PriceID:    s.config.PriceID,
		SuccessURL: s.config.BaseURL + "/premium/success?session_id={CHECKOUT_SESSION_ID}",
		CancelURL:  s.config.BaseURL + "/premium",
	})
	if err != nil {
		return "", "", fmt.Errorf("failed to create checkout session: %w", err)
	}

	slog.Info("checkout session created",
		slog.String("user_id", userID),
		slog.String("session_id", session.ID),
	)
	return session.ID, session.URL, nil
}

// VerifySession はCheckoutセッションの決済状態を返す。
// 読み取り専用で、エンタイトルメントを一切変更しない。
// エンタイトルメントの書き込みはWebhook経由のみ。
func (s *Service) VerifySession(ctx context.Context, sessionID string) (bool, error) {
	if sessionID == "" {
		return false, model.NewMissingFieldError("session_id")
	}

	session, err := s.stripe.GetCheckoutSession(ctx, sessionID)
	if err != nil {
		return false, fmt.Errorf("failed to get checkout session: %w", err)
	}

	return session.PaymentStatus == "paid", nil
}

// HandleWebhook は決済プロバイダからのWebhookを処理する。
// 署名検証に失敗した場合はエラーを返す（フェイルクローズ）。
// checkout.session.completed以外のイベントは無視して成功を返す。
// レコード永続化の失敗のみエラーを返す（プロバイダが再送する）。
func (s *Service) HandleWebhook(ctx context.Context, payload []byte, sigHeader string) error {
	if err := VerifySignature(payload, sigHeader, s.config.WebhookSecret, s.now()); err != nil {
		s.recordWebhook("unknown", "rejected")
		return &model.APIError{
			Code:     model.ErrCodeInvalidSignature,
			Message:  "Webhook署名の検証に失敗しました。",
			Category: "payment",
			Action:   "Webhookシークレットの設定を確認してください。",
		}
	}

	event, err := ParseEvent(payload)
	if err != nil {
		s.recordWebhook("unknown", "rejected")
		return model.NewMissingFieldError("type")
	}

	if event.Type != EventCheckoutCompleted {
		slog.Info("ignoring webhook event",
			slog.String("event_type", event.Type),
		)
		s.recordWebhook(event.Type, "ignored")
		return nil
	}

	session, err := SessionFromEvent(event)
	if err != nil {
		s.recordWebhook(event.Type, "rejected")
		return model.NewMissingFieldError("data.object")
	}

	userID := session.Metadata["userId"]
	if userID == "" {
		// metadataにuserIdがないセッションは購入者を特定できない
		s.recordWebhook(event.Type, "rejected")
		return model.NewMissingFieldError("metadata.userId")
	}

	record := &model.SubscriptionRecord{
		UserID:           userID,
		Status:           model.SubscriptionStatusActive,
		StripeSessionID:  session.ID,
		StripeCustomerID: session.CustomerID,
		AmountTotal:      session.AmountTotal,
		Currency:         session.Currency,
		PurchasedAt:      s.now(),
	}

	inserted, err := s.entitlementRepo.PutIfAbsent(ctx, record)
	if err != nil {
		s.recordWebhook(event.Type, "error")
		return fmt.Errorf("failed to persist subscription record: %w", err)
	}

	if !inserted {
		// プロバイダの再送。レコードは既にあるため成功として応答する
		slog.Info("duplicate webhook delivery ignored",
			slog.String("user_id", userID),
			slog.String("session_id", session.ID),
		)
		s.recordWebhook(event.Type, "duplicate")
		return nil
	}

	slog.Info("premium purchase recorded",
		slog.String("user_id", userID),
		slog.String("session_id", session.ID),
		slog.Int64("amount_total", session.AmountTotal),
		slog.String("currency", session.Currency),
	)
	s.recordWebhook(event.Type, "persisted")

	// 二次効果はベストエフォート。失敗してもWebhookは成功として応答する
	// （レコードが正であり、フラグはentitlement.Serviceが後で修復できる）
	s.applySecondaryEffects(ctx, userID)
	return nil
}

// applySecondaryEffects はレコード永続化後の二次効果を適用する。
func (s *Service) applySecondaryEffects(ctx context.Context, userID string) {
	if err := s.profileRepo.SetPremium(ctx, userID, true); err != nil {
		slog.Error("failed to set premium flag",
			slog.String("user_id", userID),
			slog.String("error", err.Error()),
		)
	}

	if s.notifier != nil {
		s.notifier.NotifyPurchase(ctx, userID)
	}

	if s.emailSender != nil {
		user, err := s.userRepo.FindByID(ctx, userID)
		if err != nil || user == nil {
			slog.Error("failed to find user for confirmation email",
				slog.String("user_id", userID),
			)
			return
		}
		if err := s.emailSender.SendPurchaseConfirmation(ctx, user.Email); err != nil {
			slog.Error("failed to send purchase confirmation email",
				slog.String("user_id", userID),
				slog.String("error", err.Error()),
			)
			s.recordEmail(false)
			return
		}
		s.recordEmail(true)
	}
}

func (s *Service) recordWebhook(eventType, outcome string) {
	if s.collector != nil {
		s.collector.RecordWebhookEvent(eventType, outcome)
	}
}

func (s *Service) recordEmail(success bool) {
	if s.collector != nil {
		s.collector.RecordEmailSent(success)
	}
}
