package service

import "errors"

// 校验错误（同步拒绝，不落任何记录）
var (
	ErrInvalidAmount        = errors.New("invalid amount")
	ErrInvalidVPA           = errors.New("invalid vpa")
	ErrMissingDescription   = errors.New("missing description")
	ErrProviderNotSupported = errors.New("provider not supported")
)

// 查询错误
var (
	ErrPaymentNotFound = errors.New("payment not found")
	ErrRefundNotFound  = errors.New("refund not found")
)

// 退款前置条件错误（同步拒绝，不落退款记录）
var (
	ErrRefundNotCaptured = errors.New("payment not captured, cannot refund")
	ErrOverRefund        = errors.New("refund amount exceeds remaining refundable balance")
)

// 支付链接错误
var (
	ErrPaymentLinkNotFound = errors.New("payment link not found or expired")
	ErrCacheUnavailable    = errors.New("cache unavailable")
)
