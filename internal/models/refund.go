package models

import (
	"time"
)

// Refund 退款记录（创建后与父支付各自独立推进）
type Refund struct {
	ID               uint       `gorm:"primarykey" json:"-"`                       // 主键
	RefundNo         string     `gorm:"uniqueIndex;not null" json:"id"`            // 对外退款编号
	PaymentNo        string     `gorm:"index;not null" json:"parent_id"`           // 父支付编号（必须已 captured）
	Amount           Money      `gorm:"type:decimal(20,2);not null" json:"amount"` // 退款金额（累计不超过父支付金额）
	Currency         string     `gorm:"not null" json:"currency"`                  // 币种
	Status           string     `gorm:"index;not null" json:"status"`              // 退款状态（同支付状态枚举）
	ErrorCode        string     `json:"error_code,omitempty"`                      // 终态失败错误码
	ErrorDescription string     `json:"error_description,omitempty"`               // 终态失败描述
	CreatedAt        time.Time  `gorm:"index" json:"created_at"`                   // 创建时间
	UpdatedAt        time.Time  `gorm:"index" json:"updated_at"`                   // 更新时间
	CapturedAt       *time.Time `gorm:"index" json:"captured_at,omitempty"`        // 首次进入终态时间
}

// TableName 指定表名
func (Refund) TableName() string {
	return "refunds"
}
