package public

import (
	"errors"

	"github.com/upi-next/internal/http/response"
	"github.com/upi-next/internal/service"

	"github.com/gin-gonic/gin"
)

// mappedHandlerError 定义业务错误到接口错误响应的映射关系。
type mappedHandlerError struct {
	target error
	code   int
	key    string
}

func respondWithMappedError(c *gin.Context, err error, rules []mappedHandlerError, fallbackCode int, fallbackKey string) {
	for _, rule := range rules {
		if errors.Is(err, rule.target) {
			respondError(c, rule.code, rule.key, nil)
			return
		}
	}
	respondError(c, fallbackCode, fallbackKey, err)
}

func concatMappedHandlerErrors(groups ...[]mappedHandlerError) []mappedHandlerError {
	total := 0
	for _, group := range groups {
		total += len(group)
	}
	result := make([]mappedHandlerError, 0, total)
	for _, group := range groups {
		result = append(result, group...)
	}
	return result
}

var paymentValidationErrorRules = []mappedHandlerError{
	{target: service.ErrInvalidAmount, code: response.CodeBadRequest, key: "error.amount_invalid"},
	{target: service.ErrInvalidVPA, code: response.CodeBadRequest, key: "error.vpa_invalid"},
	{target: service.ErrMissingDescription, code: response.CodeBadRequest, key: "error.description_required"},
	{target: service.ErrProviderNotSupported, code: response.CodeBadRequest, key: "error.provider_not_supported"},
}

var refundCreateErrorRules = []mappedHandlerError{
	{target: service.ErrPaymentNotFound, code: response.CodeNotFound, key: "error.payment_not_found"},
	{target: service.ErrRefundNotCaptured, code: response.CodeConflict, key: "error.refund_not_captured"},
	{target: service.ErrOverRefund, code: response.CodeBadRequest, key: "error.refund_over_amount"},
	{target: service.ErrInvalidAmount, code: response.CodeBadRequest, key: "error.amount_invalid"},
}

var paymentLinkErrorRules = []mappedHandlerError{
	{target: service.ErrCacheUnavailable, code: response.CodeInternal, key: "error.cache_unavailable"},
	{target: service.ErrPaymentLinkNotFound, code: response.CodeNotFound, key: "error.payment_link_not_found"},
}

func respondPaymentCreateError(c *gin.Context, err error) {
	respondWithMappedError(c, err, paymentValidationErrorRules, response.CodeInternal, "error.payment_create_failed")
}

func respondRefundCreateError(c *gin.Context, err error) {
	respondWithMappedError(c, err, refundCreateErrorRules, response.CodeInternal, "error.refund_create_failed")
}

func respondPaymentLinkError(c *gin.Context, err error) {
	respondWithMappedError(c, err, concatMappedHandlerErrors(paymentValidationErrorRules, paymentLinkErrorRules), response.CodeInternal, "error.payment_create_failed")
}
