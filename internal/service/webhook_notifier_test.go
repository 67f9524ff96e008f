package service

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/upi-next/internal/constants"
	"github.com/upi-next/internal/models"
)

func TestWebhookNotifierSignsAndPosts(t *testing.T) {
	const secret = "test-webhook-secret"

	var gotEvent string
	var gotBody []byte
	var gotSignature string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		if err != nil {
			t.Errorf("read body failed: %v", err)
		}
		gotBody = body
		gotSignature = r.Header.Get("X-Webhook-Signature")
		var event struct {
			Event string `json:"event"`
		}
		_ = json.Unmarshal(body, &event)
		gotEvent = event.Event
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	notifier := NewWebhookNotifier(server.URL, secret)
	if notifier == nil {
		t.Fatalf("expected notifier with endpoint configured")
	}

	amount, _ := models.NewMoneyFromString("100.00")
	payment := &models.PaymentIntent{
		PaymentNo: "pay_webhook_001",
		Amount:    amount,
		Currency:  constants.CurrencyINR,
		Status:    constants.PaymentStatusCaptured,
	}
	if err := notifier.NotifyPayment(context.Background(), payment); err != nil {
		t.Fatalf("notify payment failed: %v", err)
	}

	if gotEvent != "payment.captured" {
		t.Fatalf("expected payment.captured event, got %q", gotEvent)
	}
	if !VerifyWebhookSignature(secret, gotBody, gotSignature) {
		t.Fatalf("signature did not verify against posted body")
	}
	if VerifyWebhookSignature("wrong-secret", gotBody, gotSignature) {
		t.Fatalf("signature verified with wrong secret")
	}
}

func TestWebhookNotifierNonSuccessStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	notifier := NewWebhookNotifier(server.URL, "secret")
	amount, _ := models.NewMoneyFromString("10.00")
	refund := &models.Refund{
		RefundNo:  "rfnd_webhook_001",
		PaymentNo: "pay_webhook_001",
		Amount:    amount,
		Status:    constants.PaymentStatusFailed,
	}
	err := notifier.NotifyRefund(context.Background(), refund)
	if err == nil {
		t.Fatalf("expected error on non-2xx response")
	}
}

func TestNewWebhookNotifierEmptyEndpoint(t *testing.T) {
	if NewWebhookNotifier("", "secret") != nil {
		t.Fatalf("expected nil notifier without endpoint")
	}
	if NewWebhookNotifier("   ", "secret") != nil {
		t.Fatalf("expected nil notifier for blank endpoint")
	}
}
