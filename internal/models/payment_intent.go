package models

import (
	"time"
)

// PaymentIntent 支付意向记录
// 除 Status/ErrorCode/ErrorDescription/CapturedAt 由网关状态机独占写入外，
// 其余字段创建后不可变。
type PaymentIntent struct {
	ID               uint       `gorm:"primarykey" json:"-"`                              // 主键
	PaymentNo        string     `gorm:"uniqueIndex;not null" json:"id"`                   // 对外支付编号
	UserID           uint       `gorm:"index" json:"user_id,omitempty"`                   // 用户ID（游客为 0）
	Amount           Money      `gorm:"type:decimal(20,2);not null" json:"amount"`        // 支付金额
	Fee              Money      `gorm:"type:decimal(20,2);not null;default:0" json:"fee"` // 手续费
	Tax              Money      `gorm:"type:decimal(20,2);not null;default:0" json:"tax"` // 手续费税额
	SettlementAmount Money      `gorm:"type:decimal(20,2);not null;default:0" json:"settlement_amount"` // 结算金额
	Currency         string     `gorm:"not null" json:"currency"`                         // 币种
	PayeeAddress     string     `gorm:"index;not null" json:"vpa"`                        // 收款 VPA
	PayerAddress     string     `gorm:"index" json:"payer_vpa,omitempty"`                 // 付款 VPA（选择演示账户时填写）
	Provider         string     `gorm:"index;not null" json:"provider"`                   // UPI 提供方
	Description      string     `gorm:"type:text;not null" json:"description"`            // 用途描述
	Status           string     `gorm:"index;not null" json:"status"`                     // 支付状态
	ErrorCode        string     `json:"error_code,omitempty"`                             // 终态失败错误码
	ErrorDescription string     `json:"error_description,omitempty"`                      // 终态失败描述
	ClientIP         string     `gorm:"type:varchar(64)" json:"-"`                        // 发起方IP
	CreatedAt        time.Time  `gorm:"index" json:"created_at"`                          // 创建时间
	UpdatedAt        time.Time  `gorm:"index" json:"updated_at"`                          // 更新时间
	CapturedAt       *time.Time `gorm:"index" json:"captured_at,omitempty"`               // 首次进入终态时间（仅写一次）
}

// TableName 指定表名
func (PaymentIntent) TableName() string {
	return "payment_intents"
}
