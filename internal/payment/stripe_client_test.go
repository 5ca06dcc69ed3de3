package payment

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

// TestStripeClient_CreateCheckoutSession はセッション作成リクエストの形式を検証する。
func TestStripeClient_CreateCheckoutSession(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("unexpected method: %s", r.Method)
		}
		if r.URL.Path != "/v1/checkout/sessions" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer sk_test" {
			t.Errorf("unexpected authorization header: %s", got)
		}
		if got := r.Header.Get("Content-Type"); got != "application/x-www-form-urlencoded" {
			t.Errorf("unexpected content type: %s", got)
		}

		if err := r.ParseForm(); err != nil {
			t.Fatalf("failed to parse form: %v", err)
		}
		if got := r.PostForm.Get("mode"); got != "payment" {
			t.Errorf("unexpected mode: %s", got)
		}
		if got := r.PostForm.Get("line_items[0][price]"); got != "price_1" {
			t.Errorf("unexpected price: %s", got)
		}
		if got := r.PostForm.Get("metadata[userId]"); got != "user-1" {
			t.Errorf("userId must be embedded in metadata, got %s", got)
		}
		if got := r.PostForm.Get("customer_email"); got != "artist@example.com" {
			t.Errorf("unexpected customer email: %s", got)
		}

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":"cs_1","url":"https://checkout.stripe.com/pay/cs_1"}`))
	}))
	defer server.Close()

	client := NewStripeClientWithBaseURL("sk_test", server.URL)
	session, err := client.CreateCheckoutSession(context.Background(), CheckoutParams{
		UserID:     "user-1",
		UserEmail:  "artist@example.com",
		PriceID:    "price_1",
		SuccessURL: "https://doodle.example.com/premium/success",
		CancelURL:  "https://doodle.example.com/premium",
	})
	if err != nil {
		t.Fatalf("CreateCheckoutSession returned error: %v", err)
	}

	if session.ID != "cs_1" {
		t.Errorf("unexpected session ID: %s", session.ID)
	}
	if session.URL != "https://checkout.stripe.com/pay/cs_1" {
		t.Errorf("unexpected session URL: %s", session.URL)
	}
}

// TestStripeClient_GetCheckoutSession はセッション取得を検証する。
func TestStripeClient_GetCheckoutSession(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			t.Errorf("unexpected method: %s", r.Method)
		}
		if r.URL.Path != "/v1/checkout/sessions/cs_1" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":"cs_1","payment_status":"paid","customer":"cus_1","amount_total":500,"currency":"usd"}`))
	}))
	defer server.Close()

	client := NewStripeClientWithBaseURL("sk_test", server.URL)
	session, err := client.GetCheckoutSession(context.Background(), "cs_1")
	if err != nil {
		t.Fatalf("GetCheckoutSession returned error: %v", err)
	}

	if session.PaymentStatus != "paid" {
		t.Errorf("unexpected payment status: %s", session.PaymentStatus)
	}
	if session.AmountTotal != 500 {
		t.Errorf("unexpected amount: %d", session.AmountTotal)
	}
}

// TestStripeClient_APIError はAPIエラー応答がエラーとして返ることを検証する。
func TestStripeClient_APIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":{"message":"No such price"}}`))
	}))
	defer server.Close()

	client := NewStripeClientWithBaseURL("sk_test", server.URL)
	_, err := client.CreateCheckoutSession(context.Background(), CheckoutParams{PriceID: "price_missing"})
	if err == nil {
		t.Fatal("expected error for non-200 response")
	}
}
