package repository

import "time"

// PaymentListFilter 查询支付列表的过滤条件
type PaymentListFilter struct {
	Page        int
	PageSize    int
	UserID      uint
	Provider    string
	Status      string
	PayeeVPA    string
	CreatedFrom *time.Time
	CreatedTo   *time.Time
}

// RefundListFilter 查询退款列表的过滤条件
type RefundListFilter struct {
	Page      int
	PageSize  int
	PaymentNo string
	Status    string
}

// StatusErrorInfo 终态失败信息（成功终态为空）
type StatusErrorInfo struct {
	Code        string
	Description string
}
