package service

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/upi-next/internal/models"
)

var (
	// ErrWebhookRequestFailed 通知请求失败
	ErrWebhookRequestFailed = errors.New("webhook request failed")
)

// WebhookNotifier 终态结果通知器。
// 支付或退款进入终态后向外部地址推送 JSON 事件，
// 请求体使用 HMAC-SHA256 签名（X-Webhook-Signature 头）。
type WebhookNotifier struct {
	endpoint string
	secret   string
	client   *http.Client
}

// NewWebhookNotifier 创建通知器；未配置地址时返回 nil（调用方空值安全）
func NewWebhookNotifier(endpoint, secret string) *WebhookNotifier {
	endpoint = strings.TrimSpace(endpoint)
	if endpoint == "" {
		return nil
	}
	return &WebhookNotifier{
		endpoint: endpoint,
		secret:   secret,
		client:   &http.Client{Timeout: 15 * time.Second},
	}
}

// webhookEvent 通知事件载荷
type webhookEvent struct {
	Event     string      `json:"event"`
	Timestamp int64       `json:"timestamp"`
	Data      interface{} `json:"data"`
}

// NotifyPayment 推送支付终态事件
func (n *WebhookNotifier) NotifyPayment(ctx context.Context, payment *models.PaymentIntent) error {
	return n.send(ctx, webhookEvent{
		Event:     "payment." + payment.Status,
		Timestamp: time.Now().Unix(),
		Data:      payment,
	})
}

// NotifyRefund 推送退款终态事件
func (n *WebhookNotifier) NotifyRefund(ctx context.Context, refund *models.Refund) error {
	return n.send(ctx, webhookEvent{
		Event:     "refund." + refund.Status,
		Timestamp: time.Now().Unix(),
		Data:      refund,
	})
}

func (n *WebhookNotifier) send(ctx context.Context, event webhookEvent) error {
	body, err := json.Marshal(event)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if n.secret != "" {
		req.Header.Set("X-Webhook-Signature", n.sign(body))
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%w: status %d", ErrWebhookRequestFailed, resp.StatusCode)
	}
	return nil
}

func (n *WebhookNotifier) sign(body []byte) string {
	return signWebhookBody(n.secret, body)
}

func signWebhookBody(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifyWebhookSignature 校验通知签名（本地联调的回显接收端使用）
func VerifyWebhookSignature(secret string, body []byte, signature string) bool {
	if secret == "" || signature == "" {
		return false
	}
	expected := signWebhookBody(secret, body)
	return hmac.Equal([]byte(expected), []byte(signature))
}
