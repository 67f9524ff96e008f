package public

import (
	"encoding/json"
	"io"

	"github.com/upi-next/internal/http/response"
	"github.com/upi-next/internal/logger"
	"github.com/upi-next/internal/service"

	"github.com/gin-gonic/gin"
)

// WebhookEchoResponse 回显结果
type WebhookEchoResponse struct {
	Event          string          `json:"event"`
	SignatureValid bool            `json:"signature_valid"`
	Payload        json.RawMessage `json:"payload"`
}

// WebhookEcho 本地联调用的通知接收端。
// 把网关 webhook_url 指向本接口即可观察终态推送与签名是否正确。
func (h *Handler) WebhookEcho(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		respondError(c, response.CodeBadRequest, "error.request_invalid", err)
		return
	}

	var event struct {
		Event string `json:"event"`
	}
	if err := json.Unmarshal(body, &event); err != nil {
		respondError(c, response.CodeBadRequest, "error.request_invalid", err)
		return
	}

	signature := c.GetHeader("X-Webhook-Signature")
	valid := service.VerifyWebhookSignature(h.Config.Gateway.WebhookSecret, body, signature)

	logger.Infow("webhook_echo_received",
		"event", event.Event,
		"signature_valid", valid,
	)
	response.Success(c, WebhookEchoResponse{
		Event:          event.Event,
		SignatureValid: valid,
		Payload:        body,
	})
}
