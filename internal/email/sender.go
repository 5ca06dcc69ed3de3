// Package email はSendGridによるトランザクションメール送信を提供する。
package email

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

// sendGridURL はSendGrid Mail Send APIのエンドポイント。
const sendGridURL = "https://api.sendgrid.com/v3/mail/send"

// Sender はメール送信のインターフェース。
type Sender interface {
	// SendPurchaseConfirmation はプレミアム購入確認メールを送信する。
	SendPurchaseConfirmation(ctx context.Context, toEmail string) error
}

// SendGridSender はSendGrid v3 APIを使用するSender実装。
type SendGridSender struct {
	apiKey      string
	senderEmail string
	baseURL     string
	httpClient  *http.Client
}

// NewSendGridSender はSendGridSenderを生成する。
func NewSendGridSender(apiKey, senderEmail string) *SendGridSender {
	return &SendGridSender{
		apiKey:      apiKey,
		senderEmail: senderEmail,
		baseURL:     sendGridURL,
		httpClient:  &http.Client{Timeout: 15 * time.Second},
	}
}

// SendGridリクエスト形式
type sgEmail struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

type sgContent struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

type sgPersonalization struct {
	To []sgEmail `json:"to"`
}

type sgRequest struct {
	Personalizations []sgPersonalization `json:"personalizations"`
	From             sgEmail             `json:"from"`
	Subject          string              `json:"subject"`
	Content          []sgContent         `json:"content"`
}

// SendPurchaseConfirmation はプレミアム購入確認メールを送信する。
func (s *SendGridSender) SendPurchaseConfirmation(ctx context.Context, toEmail string) error {
	body := sgRequest{
		Personalizations: []sgPersonalization{
			{To: []sgEmail{{Email: toEmail}}},
		},
		From: sgEmail{
			Email: s.senderEmail,
			Name:  "Daily Doodle Prompt",
		},
		Subject: "プレミアムへようこそ！",
		Content: []sgContent{
			{
				Type: "text/plain",
				Value: "プレミアムのご購入ありがとうございます。\n\n" +
					"本日から追加のお題とストリークフリーズがご利用いただけます。\n" +
					"毎日のお絵かきをお楽しみください！\n",
			},
		},
	}

	bodyBytes, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal email request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL, bytes.NewBuffer(bodyBytes))
	if err != nil {
		return fmt.Errorf("failed to create email request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+s.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("email request failed: %w", err)
	}
	defer resp.Body.Close()

	// SendGridは成功時202を返す
	if resp.StatusCode >= 400 {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("sendgrid error: status=%d body=%s", resp.StatusCode, respBody)
	}

	return nil
}

// compile-time interface check
var _ Sender = (*SendGridSender)(nil)

// NoopSender はAPIキー未設定時に使用するSender実装。
// 送信せずログのみ出力する。
type NoopSender struct{}

// SendPurchaseConfirmation はログ出力のみ行う。
func (s *NoopSender) SendPurchaseConfirmation(_ context.Context, toEmail string) error {
	slog.Info("email sending disabled, skipping purchase confirmation",
		slog.String("to", toEmail),
	)
	return nil
}

// compile-time interface check
var _ Sender = (*NoopSender)(nil)
