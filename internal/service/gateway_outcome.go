package service

import (
	"hash/fnv"
	"math/rand"
	"strings"
	"time"

	"github.com/upi-next/internal/constants"
	"github.com/upi-next/internal/models"
	"github.com/upi-next/internal/registry"
)

// outcomePolicy 模拟网关的结算裁决策略。
// 同一 (种子, 收款地址, 金额) 的裁决结果稳定可复现，便于测试与回放。
type outcomePolicy struct {
	seed           int64
	successRate    float64
	refundFailRate float64
	minDelay       time.Duration
	maxDelay       time.Duration
	blockedVPAs    map[string]bool
}

func newOutcomePolicy(seed int64, successRate, refundFailRate float64, minDelayMS, maxDelayMS int, blockedVPAs []string) *outcomePolicy {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	if successRate <= 0 || successRate > 1 {
		successRate = 0.85
	}
	if refundFailRate < 0 || refundFailRate >= 1 {
		refundFailRate = 0
	}
	if minDelayMS <= 0 {
		minDelayMS = 1000
	}
	if maxDelayMS < minDelayMS {
		maxDelayMS = minDelayMS
	}
	blocked := make(map[string]bool, len(blockedVPAs))
	for _, vpa := range blockedVPAs {
		vpa = strings.ToLower(strings.TrimSpace(vpa))
		if vpa != "" {
			blocked[vpa] = true
		}
	}
	return &outcomePolicy{
		seed:           seed,
		successRate:    successRate,
		refundFailRate: refundFailRate,
		minDelay:       time.Duration(minDelayMS) * time.Millisecond,
		maxDelay:       time.Duration(maxDelayMS) * time.Millisecond,
		blockedVPAs:    blocked,
	}
}

// rng 按 (种子 ^ 编号摘要) 派生确定性随机源
func (p *outcomePolicy) rng(no string) *rand.Rand {
	h := fnv.New64a()
	h.Write([]byte(no))
	return rand.New(rand.NewSource(p.seed ^ int64(h.Sum64())))
}

// delays 返回 推进延迟 与 结算延迟，总和落在 [minDelay, maxDelay]
func (p *outcomePolicy) delays(no string) (advance time.Duration, settle time.Duration) {
	rng := p.rng(no)
	total := p.minDelay
	if span := p.maxDelay - p.minDelay; span > 0 {
		total += time.Duration(rng.Int63n(int64(span)))
	}
	advance = total / 3
	settle = total - advance
	return advance, settle
}

// decidePayment 裁决一笔支付的终态。
// 成功返回空错误码；失败返回网关错误码。
// 检查顺序：拦截名单 -> 演示账户余额 -> 单笔限额 -> 周期限额 -> 概率掷签。
func (p *outcomePolicy) decidePayment(payment *models.PaymentIntent, periodTotal models.Money) string {
	payerVPA := strings.ToLower(strings.TrimSpace(payment.PayerAddress))
	if payerVPA == "" {
		payerVPA = strings.ToLower(strings.TrimSpace(payment.PayeeAddress))
	}
	if p.blockedVPAs[payerVPA] {
		return constants.GatewayErrInvalidVPA
	}

	if account := registry.FindDemoAccount(payment.PayerAddress); account != nil {
		if payment.Amount.Decimal.GreaterThan(account.Balance.Decimal) {
			return constants.GatewayErrInsufficientBalance
		}
		if payment.Amount.Decimal.GreaterThan(account.TxnLimit.Decimal) {
			return constants.GatewayErrTxnLimitExceeded
		}
		if periodTotal.Decimal.Add(payment.Amount.Decimal).GreaterThan(account.DailyLimit.Decimal) {
			return constants.GatewayErrTxnLimitExceeded
		}
	}

	// 掷签只依赖 (种子, 收款地址, 金额)，同一请求在固定种子下跨进程可复现
	rng := p.rng(outcomeKey(payment.PayeeAddress, payment.Amount))
	if rng.Float64() < p.successRate {
		return ""
	}
	if rng.Intn(2) == 0 {
		return constants.GatewayErrPaymentDeclined
	}
	return constants.GatewayErrUPITimeout
}

// outcomeKey 拼接裁决随机源的派生键
func outcomeKey(vpa string, amount models.Money) string {
	return strings.ToLower(strings.TrimSpace(vpa)) + "|" + amount.Decimal.StringFixed(2)
}

// decideRefund 裁决一笔退款的终态（默认总是成功）
func (p *outcomePolicy) decideRefund(refund *models.Refund) string {
	if p.refundFailRate <= 0 {
		return ""
	}
	rng := p.rng(refund.RefundNo)
	if rng.Float64() < p.refundFailRate {
		return constants.GatewayErrPaymentDeclined
	}
	return ""
}
