package shared

import (
	"github.com/upi-next/internal/http/response"
	"github.com/upi-next/internal/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// errorMessages 接口错误文案静态表，key 不命中时原样返回。
var errorMessages = map[string]string{
	"error.amount_invalid":         "amount must be positive and within the allowed limit",
	"error.vpa_invalid":            "vpa format is invalid",
	"error.description_required":   "description is required",
	"error.provider_not_supported": "upi provider is not supported",
	"error.payment_not_found":      "payment not found",
	"error.refund_not_found":       "refund not found",
	"error.refund_not_captured":    "only captured payments can be refunded",
	"error.refund_over_amount":     "refund amount exceeds refundable balance",
	"error.payment_link_not_found": "payment link not found or expired",
	"error.demo_account_not_found": "demo account not found",
	"error.cache_unavailable":      "cache is unavailable",
	"error.request_invalid":        "request payload is invalid",
	"error.payment_create_failed":  "failed to create payment",
	"error.payment_query_failed":   "failed to query payment",
	"error.refund_create_failed":   "failed to create refund",
	"error.rate_limited":           "too many requests, slow down",
	"error.route_not_found":        "route not found",
	"error.internal":               "internal server error",
}

// Message 查询错误文案
func Message(key string) string {
	if msg, ok := errorMessages[key]; ok {
		return msg
	}
	return key
}

// RequestLog 提供携带 request_id 的日志实例。
func RequestLog(c *gin.Context) *zap.SugaredLogger {
	if c == nil {
		return logger.S()
	}
	if requestID, ok := c.Get("request_id"); ok {
		if id, ok := requestID.(string); ok && id != "" {
			return logger.SW("request_id", id)
		}
	}
	return logger.S()
}

// RespondError 返回错误响应，并在有原始错误时记录日志。
func RespondError(c *gin.Context, code int, key string, err error) {
	msg := Message(key)
	if err != nil {
		RequestLog(c).Errorw("handler_error",
			"code", code,
			"message", msg,
			"error", err,
		)
	}
	response.Error(c, code, msg)
}
