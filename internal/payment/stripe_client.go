// Package payment はStripe Checkoutによるプレミアム購入処理を提供する。
package payment

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// defaultStripeBaseURL はStripe APIのベースURL。
const defaultStripeBaseURL = "https://api.stripe.com"

// CheckoutSession はStripe Checkoutセッションの必要最小限のビュー。
type CheckoutSession struct {
	ID            string            `json:"id"`
	URL           string            `json:"url"`
	PaymentStatus string            `json:"payment_status"`
	CustomerID    string            `json:"customer"`
	AmountTotal   int64             `json:"amount_total"`
	Currency      string            `json:"currency"`
	Metadata      map[string]string `json:"metadata"`
}

// CheckoutParams はCheckoutセッション作成のパラメータ。
type CheckoutParams struct {
	UserID     string
	UserEmail  string
	PriceID    string
	SuccessURL string
	CancelURL  string
}

// StripeAPI はStripe APIクライアントのインターフェース。
type StripeAPI interface {
	// CreateCheckoutSession はCheckoutセッションを作成する。
	// userIdはセッションのmetadataに埋め込まれ、Webhookで購入者の特定に使用される。
	CreateCheckoutSession(ctx context.Context, params CheckoutParams) (*CheckoutSession, error)

	// GetCheckoutSession は既存のCheckoutセッションの状態を取得する。
	GetCheckoutSession(ctx context.Context, sessionID string) (*CheckoutSession, error)
}

// StripeClient はStripe APIのHTTPクライアント。
// フォームエンコードされたリクエストボディとBearer認証を使用する。
type StripeClient struct {
	secretKey  string
	baseURL    string
	httpClient *http.Client
}

// NewStripeClient はStripeClientを生成する。
func NewStripeClient(secretKey string) *StripeClient {
	return &StripeClient{
		secretKey:  secretKey,
		baseURL:    defaultStripeBaseURL,
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
}

// NewStripeClientWithBaseURL はベースURLを指定してStripeClientを生成する（テスト用）。
func NewStripeClientWithBaseURL(secretKey, baseURL string) *StripeClient {
	c := NewStripeClient(secretKey)
	c.baseURL = baseURL
	return c
}

// CreateCheckoutSession はCheckoutセッションを作成する。
func (c *StripeClient) CreateCheckoutSession(ctx context.Context, params CheckoutParams) (*CheckoutSession, error) {
	form := url.Values{}
	form.Set("mode", "payment")
	form.Set("line_items[0][price]", params.PriceID)
	form.Set("line_items[0][quantity]", "1")
	form.Set("customer_email", params.UserEmail)
	form.Set("metadata[userId]", params.UserID)
	form.Set("success_url", params.SuccessURL)
	form.Set("cancel_url", params.CancelURL)

	session := &CheckoutSession{}
	if err := c.do(ctx, http.MethodPost, "/v1/checkout/sessions", form, session); err != nil {
		return nil, fmt.Errorf("failed to create checkout session: %w", err)
	}
	return session, nil
}

// GetCheckoutSession は既存のCheckoutセッションの状態を取得する。
func (c *StripeClient) GetCheckoutSession(ctx context.Context, sessionID string) (*CheckoutSession, error) {
	session := &CheckoutSession{}
	if err := c.do(ctx, http.MethodGet, "/v1/checkout/sessions/"+url.PathEscape(sessionID), nil, session); err != nil {
		return nil, fmt.Errorf("failed to get checkout session: %w", err)
	}
	return session, nil
}

// do はStripe APIへのリクエストを実行し、レスポンスをデコードする。
func (c *StripeClient) do(ctx context.Context, method, path string, form url.Values, out any) error {
	var body io.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.secretKey)
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("stripe API returned status %d: %s", resp.StatusCode, string(respBody))
	}

	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	return nil
}

// compile-time interface check
var _ StripeAPI = (*StripeClient)(nil)
