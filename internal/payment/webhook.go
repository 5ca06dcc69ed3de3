package payment

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// signatureTolerance はWebhook署名タイムスタンプの許容ずれ。
// これより古い署名はリプレイ攻撃とみなして拒否する。
const signatureTolerance = 5 * time.Minute

// EventCheckoutCompleted は購入完了を表すWebhookイベント種別。
const EventCheckoutCompleted = "checkout.session.completed"

// WebhookEvent はStripe Webhookイベントの必要最小限のビュー。
type WebhookEvent struct {
	ID   string `json:"id"`
	Type string `json:"type"`
	Data struct {
		Object json.RawMessage `json:"object"`
	} `json:"data"`
}

// VerifySignature はStripe-Signatureヘッダを検証する。
// ヘッダ形式: "t=<unix秒>,v1=<hex HMAC-SHA256>"
// 署名はsecretをキーとした "<t>.<rawペイロード>" のHMAC-SHA256。
// 検証は生のリクエストボディに対して行う必要がある（再シリアライズ不可）。
func VerifySignature(payload []byte, sigHeader, secret string, now time.Time) error {
	if sigHeader == "" {
		return fmt.Errorf("missing signature header")
	}

	var timestamp string
	var signatures []string
	for _, part := range strings.Split(sigHeader, ",") {
		key, value, found := strings.Cut(strings.TrimSpace(part), "=")
		if !found {
			continue
		}
		switch key {
		case "t":
			timestamp = value
		case "v1":
			signatures = append(signatures, value)
		}
	}

	if timestamp == "" || len(signatures) == 0 {
		return fmt.Errorf("malformed signature header")
	}

	ts, err := strconv.ParseInt(timestamp, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid signature timestamp: %w", err)
	}
	if now.Sub(time.Unix(ts, 0)) > signatureTolerance {
		return fmt.Errorf("signature timestamp too old")
	}

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(timestamp))
	mac.Write([]byte("."))
	mac.Write(payload)
	expected := hex.EncodeToString(mac.Sum(nil))

	for _, sig := range signatures {
		if hmac.Equal([]byte(expected), []byte(sig)) {
			return nil
		}
	}
	return fmt.Errorf("signature mismatch")
}

// ParseEvent はWebhookペイロードをイベントにデコードする。
func ParseEvent(payload []byte) (*WebhookEvent, error) {
	event := &WebhookEvent{}
	if err := json.Unmarshal(payload, event); err != nil {
		return nil, fmt.Errorf("failed to parse webhook event: %w", err)
	}
	if event.Type == "" {
		return nil, fmt.Errorf("webhook event has no type")
	}
	return event, nil
}

// SessionFromEvent はイベントのdata.objectをCheckoutセッションとしてデコードする。
func SessionFromEvent(event *WebhookEvent) (*CheckoutSession, error) {
	session := &CheckoutSession{}
	if err := json.Unmarshal(event.Data.Object, session); err != nil {
		return nil, fmt.Errorf("failed to parse checkout session object: %w", err)
	}
	return session, nil
}
