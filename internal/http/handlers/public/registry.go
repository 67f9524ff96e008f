package public

import (
	"strings"

	"github.com/upi-next/internal/http/response"
	"github.com/upi-next/internal/models"
	"github.com/upi-next/internal/registry"
	"github.com/upi-next/internal/service"

	"github.com/gin-gonic/gin"
)

// PaymentMethod 可用支付方式及该金额下的费用预估
type PaymentMethod struct {
	Code        string       `json:"code"`
	DisplayName string       `json:"display_name"`
	Fee         models.Money `json:"fee"`
	Tax         models.Money `json:"tax"`
	Total       models.Money `json:"total"`
}

// PaymentMethodsResponse 支付方式目录响应
type PaymentMethodsResponse struct {
	Amount  models.Money    `json:"amount"`
	Methods []PaymentMethod `json:"methods"`
}

// ListProviders 返回支持的 UPI 提供方目录
func (h *Handler) ListProviders(c *gin.Context) {
	response.Success(c, registry.ListProviders())
}

// ListPaymentMethods 返回可用支付方式，并按传入金额预估手续费与税费
func (h *Handler) ListPaymentMethods(c *gin.Context) {
	raw := strings.TrimSpace(c.Query("amount"))
	if raw == "" {
		respondError(c, response.CodeBadRequest, "error.request_invalid", nil)
		return
	}
	amount, err := models.NewMoneyFromString(raw)
	if err != nil || !amount.Decimal.IsPositive() {
		respondError(c, response.CodeBadRequest, "error.amount_invalid", err)
		return
	}

	fee, tax := service.CalculateFee(amount)
	total := models.NewMoneyFromDecimal(amount.Decimal.Add(fee.Decimal).Add(tax.Decimal))

	providers := registry.ListProviders()
	methods := make([]PaymentMethod, 0, len(providers))
	for _, p := range providers {
		methods = append(methods, PaymentMethod{
			Code:        p.Code,
			DisplayName: p.DisplayName,
			Fee:         fee,
			Tax:         tax,
			Total:       total,
		})
	}

	response.Success(c, PaymentMethodsResponse{Amount: amount, Methods: methods})
}

// ListDemoAccounts 返回演示付款账户目录
func (h *Handler) ListDemoAccounts(c *gin.Context) {
	response.Success(c, registry.ListDemoAccounts())
}

// GetDemoAccount 根据 VPA 查询演示账户
func (h *Handler) GetDemoAccount(c *gin.Context) {
	vpa := c.Param("vpa")
	if err := service.ValidateVPA(vpa); err != nil {
		respondError(c, response.CodeBadRequest, "error.vpa_invalid", nil)
		return
	}
	account := registry.FindDemoAccount(vpa)
	if account == nil {
		respondError(c, response.CodeNotFound, "error.demo_account_not_found", nil)
		return
	}
	response.Success(c, account)
}
