package service

import (
	"regexp"
	"strings"

	"github.com/upi-next/internal/models"
	"github.com/upi-next/internal/registry"
)

// vpaPattern 校验 UPI 虚拟支付地址（Virtual Payment Address）格式：
// 本地部分允许字母/数字/点/下划线/连字符，@ 后的 PSP 域标识允许字母/数字/点/连字符。
var vpaPattern = regexp.MustCompile(`^[A-Za-z0-9._-]+@[A-Za-z0-9.-]+$`)

// PaymentValidator 对支付创建请求做同步校验。
// 校验全部通过之前不会产生任何支付记录。
type PaymentValidator struct {
	maxAmount models.Money
}

func NewPaymentValidator(maxAmount models.Money) *PaymentValidator {
	return &PaymentValidator{maxAmount: maxAmount}
}

// ValidateCreate 按 金额 -> VPA -> 描述 -> 渠道 的固定顺序检查，
// 返回第一个命中的错误。
func (v *PaymentValidator) ValidateCreate(amount models.Money, vpa, description, provider string) error {
	if err := v.ValidateAmount(amount); err != nil {
		return err
	}
	if err := ValidateVPA(vpa); err != nil {
		return err
	}
	if strings.TrimSpace(description) == "" {
		return ErrMissingDescription
	}
	if provider != "" && !registry.IsSupportedProvider(provider) {
		return ErrProviderNotSupported
	}
	return nil
}

// ValidateAmount 金额必须为正且不超过单笔上限。
func (v *PaymentValidator) ValidateAmount(amount models.Money) error {
	if !amount.Decimal.IsPositive() {
		return ErrInvalidAmount
	}
	if amount.Decimal.GreaterThan(v.maxAmount.Decimal) {
		return ErrInvalidAmount
	}
	return nil
}

// ValidateVPA 独立导出，退款与演示账户查询也会用到。
func ValidateVPA(vpa string) error {
	if vpa == "" || len(vpa) > 255 || !vpaPattern.MatchString(vpa) {
		return ErrInvalidVPA
	}
	return nil
}
