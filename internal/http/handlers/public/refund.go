package public

import (
	"errors"
	"strings"

	"github.com/upi-next/internal/http/response"
	"github.com/upi-next/internal/models"
	"github.com/upi-next/internal/service"

	"github.com/gin-gonic/gin"
)

// CreateRefundRequest 创建退款请求；amount 省略时全额退款
type CreateRefundRequest struct {
	Amount *models.Money `json:"amount"`
}

// CreateRefund 发起退款
func (h *Handler) CreateRefund(c *gin.Context) {
	paymentNo := strings.TrimSpace(c.Param("payment_no"))
	if paymentNo == "" {
		respondError(c, response.CodeBadRequest, "error.request_invalid", nil)
		return
	}
	var req CreateRefundRequest
	if err := c.ShouldBindJSON(&req); err != nil && err.Error() != "EOF" {
		respondError(c, response.CodeBadRequest, "error.request_invalid", err)
		return
	}

	refund, err := h.RefundService.CreateRefund(c.Request.Context(), paymentNo, req.Amount)
	if err != nil {
		respondRefundCreateError(c, err)
		return
	}
	response.Success(c, refund)
}

// ListRefunds 查询支付单下的退款记录
func (h *Handler) ListRefunds(c *gin.Context) {
	paymentNo := strings.TrimSpace(c.Param("payment_no"))
	if paymentNo == "" {
		respondError(c, response.CodeBadRequest, "error.request_invalid", nil)
		return
	}
	refunds, err := h.RefundService.ListRefunds(paymentNo)
	if err != nil {
		if errors.Is(err, service.ErrPaymentNotFound) {
			respondError(c, response.CodeNotFound, "error.payment_not_found", nil)
			return
		}
		respondError(c, response.CodeInternal, "error.payment_query_failed", err)
		return
	}
	response.Success(c, refunds)
}

// GetRefund 查询退款单
func (h *Handler) GetRefund(c *gin.Context) {
	refundNo := strings.TrimSpace(c.Param("refund_no"))
	if refundNo == "" {
		respondError(c, response.CodeBadRequest, "error.request_invalid", nil)
		return
	}
	refund, err := h.RefundService.GetRefund(refundNo)
	if err != nil {
		if errors.Is(err, service.ErrRefundNotFound) {
			respondError(c, response.CodeNotFound, "error.refund_not_found", nil)
			return
		}
		respondError(c, response.CodeInternal, "error.payment_query_failed", err)
		return
	}
	response.Success(c, refund)
}
