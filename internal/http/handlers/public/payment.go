package public

import (
	"errors"
	"strings"
	"time"

	"github.com/upi-next/internal/http/handlers/shared"
	"github.com/upi-next/internal/http/response"
	"github.com/upi-next/internal/models"
	"github.com/upi-next/internal/repository"
	"github.com/upi-next/internal/service"

	"github.com/gin-gonic/gin"
)

// CreatePaymentRequest 创建支付请求
type CreatePaymentRequest struct {
	Amount      models.Money `json:"amount"`
	VPA         string       `json:"vpa" binding:"required"`
	PayerVPA    string       `json:"payer_vpa"`
	Provider    string       `json:"provider"`
	Description string       `json:"description"`
}

// AwaitPaymentQuery 轮询等待终态的查询参数
type AwaitPaymentQuery struct {
	MaxAttempts int `form:"max_attempts,default=-1"`
	IntervalMS  int `form:"interval_ms"`
}

// ListPaymentsQuery 支付历史查询参数
type ListPaymentsQuery struct {
	Page     int    `form:"page,default=1"`
	PageSize int    `form:"page_size,default=20"`
	Status   string `form:"status"`
	Provider string `form:"provider"`
	VPA      string `form:"vpa"`
}

// CreatePaymentLinkRequest 创建收款链接请求
type CreatePaymentLinkRequest struct {
	Amount      models.Money `json:"amount"`
	VPA         string       `json:"vpa" binding:"required"`
	Description string       `json:"description"`
}

// CreatePayment 创建支付单
func (h *Handler) CreatePayment(c *gin.Context) {
	var req CreatePaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.request_invalid", err)
		return
	}

	payment, err := h.GatewayService.CreatePayment(c.Request.Context(), service.CreatePaymentInput{
		UserID:      getUserID(c),
		Amount:      req.Amount,
		VPA:         req.VPA,
		PayerVPA:    req.PayerVPA,
		Provider:    req.Provider,
		Description: req.Description,
		ClientIP:    c.ClientIP(),
	})
	if err != nil {
		respondPaymentCreateError(c, err)
		return
	}
	response.Success(c, payment)
}

// GetPayment 查询支付单
func (h *Handler) GetPayment(c *gin.Context) {
	paymentNo := strings.TrimSpace(c.Param("payment_no"))
	if paymentNo == "" {
		respondError(c, response.CodeBadRequest, "error.request_invalid", nil)
		return
	}
	payment, err := h.GatewayService.GetPayment(paymentNo)
	if err != nil {
		if errors.Is(err, service.ErrPaymentNotFound) {
			respondError(c, response.CodeNotFound, "error.payment_not_found", nil)
			return
		}
		respondError(c, response.CodeInternal, "error.payment_query_failed", err)
		return
	}
	response.Success(c, payment)
}

// AwaitPayment 轮询等待支付进入终态。
// 预算耗尽仍未终态时返回快照并带 timed_out 标记，不视为错误。
func (h *Handler) AwaitPayment(c *gin.Context) {
	paymentNo := strings.TrimSpace(c.Param("payment_no"))
	if paymentNo == "" {
		respondError(c, response.CodeBadRequest, "error.request_invalid", nil)
		return
	}
	var query AwaitPaymentQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		respondError(c, response.CodeBadRequest, "error.request_invalid", err)
		return
	}

	result, err := h.ReconcileService.AwaitTerminal(
		c.Request.Context(),
		paymentNo,
		query.MaxAttempts,
		time.Duration(query.IntervalMS)*time.Millisecond,
	)
	if err != nil {
		if errors.Is(err, service.ErrPaymentNotFound) {
			respondError(c, response.CodeNotFound, "error.payment_not_found", nil)
			return
		}
		respondError(c, response.CodeInternal, "error.payment_query_failed", err)
		return
	}
	response.Success(c, result)
}

// ListPayments 查询支付历史
func (h *Handler) ListPayments(c *gin.Context) {
	var query ListPaymentsQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		respondError(c, response.CodeBadRequest, "error.request_invalid", err)
		return
	}
	page, pageSize := shared.NormalizePagination(query.Page, query.PageSize)

	payments, total, err := h.GatewayService.ListPayments(repository.PaymentListFilter{
		UserID:   getUserID(c),
		Status:   strings.TrimSpace(query.Status),
		Provider: strings.ToLower(strings.TrimSpace(query.Provider)),
		PayeeVPA: strings.ToLower(strings.TrimSpace(query.VPA)),
		Page:     page,
		PageSize: pageSize,
	})
	if err != nil {
		respondError(c, response.CodeInternal, "error.payment_query_failed", err)
		return
	}
	response.SuccessWithPage(c, payments, response.NewPagination(page, pageSize, total))
}

// CreatePaymentLink 生成收款链接
func (h *Handler) CreatePaymentLink(c *gin.Context) {
	var req CreatePaymentLinkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.request_invalid", err)
		return
	}
	link, err := h.PaymentLinkService.CreateLink(c.Request.Context(), req.VPA, req.Amount, req.Description)
	if err != nil {
		respondPaymentLinkError(c, err)
		return
	}
	response.Success(c, link)
}

// ResolvePaymentLink 解析收款链接
func (h *Handler) ResolvePaymentLink(c *gin.Context) {
	link, err := h.PaymentLinkService.ResolveLink(c.Request.Context(), c.Param("link_id"))
	if err != nil {
		respondPaymentLinkError(c, err)
		return
	}
	response.Success(c, link)
}
