package handler

import (
	"context"
	"encoding/json"
	"io"
	"net/http"

	"github.com/hitoshi/doodleprompt/internal/middleware"
)

// stripeSignatureHeader は決済プロバイダが署名を載せるHTTPヘッダー。
const stripeSignatureHeader = "Stripe-Signature"

// maxWebhookBodySize はWebhookペイロードの最大サイズ。
const maxWebhookBodySize = 1 << 20 // 1MiB

// PaymentServiceInterface は決済ハンドラーが必要とするサービスインターフェース。
type PaymentServiceInterface interface {
	// CreateCheckout はCheckoutセッションを作成し、セッションIDと決済ページのURLを返す。
	CreateCheckout(ctx context.Context, userID string) (string, string, error)
	// VerifySession はCheckoutセッションの決済完了状態を返す。読み取り専用。
	VerifySession(ctx context.Context, sessionID string) (bool, error)
	// HandleWebhook は決済プロバイダからのWebhookを処理する。
	HandleWebhook(ctx context.Context, payload []byte, sigHeader string) error
}

// PaymentHandler は決済のHTTPハンドラー。
type PaymentHandler struct {
	service PaymentServiceInterface
}

// NewPaymentHandler はPaymentHandlerを生成する。
func NewPaymentHandler(service PaymentServiceInterface) *PaymentHandler {
	return &PaymentHandler{
		service: service,
	}
}

// checkoutResponse はチェックアウト作成のAPIレスポンス。
// セッションIDはフロントエンドが決済完了後の確認（GET /api/payments/verify）に使う。
type checkoutResponse struct {
	SessionID   string `json:"session_id"`
	CheckoutURL string `json:"checkout_url"`
}

// verifyResponse は決済確認のAPIレスポンス。
type verifyResponse struct {
	Paid bool `json:"paid"`
}

// CreateCheckout はプレミアム購入のCheckoutセッションを作成する。
// POST /api/payments/checkout
func (h *PaymentHandler) CreateCheckout(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorizedResponse(w)
		return
	}

	sessionID, url, err := h.service.CreateCheckout(r.Context(), userID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(checkoutResponse{SessionID: sessionID, CheckoutURL: url})
}

// VerifySession は決済完了画面からのセッション確認を処理する。
// エンタイトルメントは一切変更しない（書き込みはWebhook経由のみ）。
// GET /api/payments/verify?session_id=xxx
func (h *PaymentHandler) VerifySession(w http.ResponseWriter, r *http.Request) {
	if _, err := middleware.UserIDFromContext(r.Context()); err != nil {
		writeUnauthorizedResponse(w)
		return
	}

	sessionID := r.URL.Query().Get("session_id")

	paid, err := h.service.VerifySession(r.Context(), sessionID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(verifyResponse{Paid: paid})
}

// HandleWebhook は決済プロバイダからのWebhookを処理する。
// 署名検証のため、ボディはパースせず生のバイト列のまま渡す。
// POST /webhooks/stripe
func (h *PaymentHandler) HandleWebhook(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBodySize))
	if err != nil {
		http.Error(w, "failed to read request body", http.StatusBadRequest)
		return
	}

	sigHeader := r.Header.Get(stripeSignatureHeader)

	if err := h.service.HandleWebhook(r.Context(), payload, sigHeader); err != nil {
		handleServiceError(w, err)
		return
	}

	// プロバイダには2xxを返せば再送されない
	w.WriteHeader(http.StatusOK)
}
