package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/upi-next/internal/config"
	"github.com/upi-next/internal/constants"
	"github.com/upi-next/internal/logger"
	"github.com/upi-next/internal/models"
	"github.com/upi-next/internal/queue"
	"github.com/upi-next/internal/repository"

	"github.com/shopspring/decimal"
)

// 手续费规则：max(2% 金额, 2.00) + 18% 税
var (
	feeRate    = decimal.NewFromFloat(0.02)
	feeMinimum = decimal.NewFromInt(2)
	feeTaxRate = decimal.NewFromFloat(0.18)
)

// GatewayService 模拟支付网关。
// 负责支付/退款记录的创建与异步状态机推进：
// created -> pending -> captured/failed，延迟与终态由 outcomePolicy 裁决。
// 终态一旦写入立即生效，不依赖任何读方在场。
type GatewayService struct {
	paymentRepo repository.PaymentRepository
	refundRepo  repository.RefundRepository
	queueClient *queue.Client
	notifier    *WebhookNotifier
	validator   *PaymentValidator
	policy      *outcomePolicy
}

// CreatePaymentInput 支付创建参数
type CreatePaymentInput struct {
	UserID      uint
	Amount      models.Money
	VPA         string // 收款地址
	PayerVPA    string // 付款地址（可选，选择演示账户时填写）
	Provider    string
	Description string
	ClientIP    string
}

// NewGatewayService 创建模拟网关服务
func NewGatewayService(paymentRepo repository.PaymentRepository, refundRepo repository.RefundRepository, queueClient *queue.Client, notifier *WebhookNotifier, cfg config.GatewayConfig) *GatewayService {
	maxAmount, err := models.NewMoneyFromString(cfg.MaxAmount)
	if err != nil || !maxAmount.Decimal.IsPositive() {
		maxAmount = models.NewMoneyFromDecimal(decimal.NewFromInt(200000))
	}
	return &GatewayService{
		paymentRepo: paymentRepo,
		refundRepo:  refundRepo,
		queueClient: queueClient,
		notifier:    notifier,
		validator:   NewPaymentValidator(maxAmount),
		policy: newOutcomePolicy(
			cfg.OutcomeSeed,
			cfg.SuccessRate,
			cfg.RefundFailRate,
			cfg.MinDelayMS,
			cfg.MaxDelayMS,
			cfg.BlockedVPAs,
		),
	}
}

// Validator 暴露校验器（处理器层做参数预检）
func (s *GatewayService) Validator() *PaymentValidator {
	return s.validator
}

// CreatePayment 创建支付记录并排程异步推进。
// 校验失败同步返回错误，不产生任何记录。
func (s *GatewayService) CreatePayment(ctx context.Context, input CreatePaymentInput) (*models.PaymentIntent, error) {
	provider := strings.ToLower(strings.TrimSpace(input.Provider))
	if provider == "" {
		provider = constants.ProviderOther
	}
	if err := s.validator.ValidateCreate(input.Amount, input.VPA, input.Description, provider); err != nil {
		return nil, err
	}
	if input.PayerVPA != "" {
		if err := ValidateVPA(input.PayerVPA); err != nil {
			return nil, err
		}
	}

	fee, tax := CalculateFee(input.Amount)
	settlement := input.Amount.Decimal.Sub(fee.Decimal).Sub(tax.Decimal)

	payment := &models.PaymentIntent{
		PaymentNo:        generatePaymentNo(),
		UserID:           input.UserID,
		Amount:           input.Amount,
		Fee:              fee,
		Tax:              tax,
		SettlementAmount: models.NewMoneyFromDecimal(settlement),
		Currency:         constants.CurrencyINR,
		PayeeAddress:     strings.ToLower(strings.TrimSpace(input.VPA)),
		PayerAddress:     strings.ToLower(strings.TrimSpace(input.PayerVPA)),
		Provider:         provider,
		Description:      strings.TrimSpace(input.Description),
		Status:           constants.PaymentStatusCreated,
		ClientIP:         input.ClientIP,
	}
	if err := s.paymentRepo.Create(payment); err != nil {
		return nil, err
	}

	advanceDelay, _ := s.policy.delays(payment.PaymentNo)
	s.scheduleAdvance(constants.IntentKindPayment, payment.PaymentNo, advanceDelay)

	logger.Infow("payment_created",
		"payment_no", payment.PaymentNo,
		"amount", payment.Amount.String(),
		"provider", payment.Provider,
		"advance_delay_ms", advanceDelay.Milliseconds(),
	)
	return payment, nil
}

// GetPayment 查询支付记录
func (s *GatewayService) GetPayment(paymentNo string) (*models.PaymentIntent, error) {
	payment, err := s.paymentRepo.GetByPaymentNo(paymentNo)
	if err != nil {
		return nil, err
	}
	if payment == nil {
		return nil, ErrPaymentNotFound
	}
	return payment, nil
}

// ListPayments 查询支付历史
func (s *GatewayService) ListPayments(filter repository.PaymentListFilter) ([]models.PaymentIntent, int64, error) {
	return s.paymentRepo.List(filter)
}

// AdvanceToPending 将记录从 created 推进到 pending，并排程结算。
// 记录已越过 pending 时静默跳过（任务重复投递是正常情况）。
func (s *GatewayService) AdvanceToPending(ctx context.Context, kind, no string) error {
	var err error
	switch kind {
	case constants.IntentKindRefund:
		err = s.refundRepo.UpdateStatus(no, constants.PaymentStatusPending, nil)
	default:
		err = s.paymentRepo.UpdateStatus(no, constants.PaymentStatusPending, nil)
	}
	if err != nil {
		if errors.Is(err, repository.ErrStatusConflict) {
			return nil
		}
		if errors.Is(err, repository.ErrNotFound) {
			if kind == constants.IntentKindRefund {
				return ErrRefundNotFound
			}
			return ErrPaymentNotFound
		}
		return err
	}

	_, settleDelay := s.policy.delays(no)
	s.scheduleSettle(kind, no, settleDelay)
	logger.Infow("payment_pending", "kind", kind, "no", no, "settle_delay_ms", settleDelay.Milliseconds())
	return nil
}

// Settle 裁决终态并落库，随后发送结果通知。
// 重复结算幂等：记录已是终态时直接跳过。
func (s *GatewayService) Settle(ctx context.Context, kind, no string) error {
	if kind == constants.IntentKindRefund {
		return s.settleRefund(ctx, no)
	}
	return s.settlePayment(ctx, no)
}

func (s *GatewayService) settlePayment(ctx context.Context, no string) error {
	payment, err := s.paymentRepo.GetByPaymentNo(no)
	if err != nil {
		return err
	}
	if payment == nil {
		return ErrPaymentNotFound
	}
	if constants.IsTerminalPaymentStatus(payment.Status) {
		return nil
	}

	periodTotal := models.Money{}
	if payment.PayerAddress != "" {
		now := time.Now()
		dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
		periodTotal, err = s.paymentRepo.SumCapturedByPayerSince(payment.PayerAddress, dayStart, payment.PaymentNo)
		if err != nil {
			return err
		}
	}

	errorCode := s.policy.decidePayment(payment, periodTotal)
	if err := s.applyTerminal(s.paymentRepo.UpdateStatus, no, errorCode); err != nil {
		return err
	}

	updated, err := s.paymentRepo.GetByPaymentNo(no)
	if err == nil && updated != nil {
		s.notifyPayment(updated)
		logger.Infow("payment_settled",
			"payment_no", updated.PaymentNo,
			"status", updated.Status,
			"error_code", updated.ErrorCode,
		)
	}
	return nil
}

func (s *GatewayService) settleRefund(ctx context.Context, no string) error {
	refund, err := s.refundRepo.GetByRefundNo(no)
	if err != nil {
		return err
	}
	if refund == nil {
		return ErrRefundNotFound
	}
	if constants.IsTerminalPaymentStatus(refund.Status) {
		return nil
	}

	errorCode := s.policy.decideRefund(refund)
	if err := s.applyTerminal(s.refundRepo.UpdateStatus, no, errorCode); err != nil {
		return err
	}

	updated, err := s.refundRepo.GetByRefundNo(no)
	if err == nil && updated != nil {
		s.notifyRefund(updated)
		logger.Infow("refund_settled",
			"refund_no", updated.RefundNo,
			"payment_no", updated.PaymentNo,
			"status", updated.Status,
			"error_code", updated.ErrorCode,
		)
	}
	return nil
}

// applyTerminal 写入终态；并发写入撞上既有终态时按幂等处理
func (s *GatewayService) applyTerminal(update func(string, string, *repository.StatusErrorInfo) error, no, errorCode string) error {
	var err error
	if errorCode == "" {
		err = update(no, constants.PaymentStatusCaptured, nil)
	} else {
		err = update(no, constants.PaymentStatusFailed, &repository.StatusErrorInfo{
			Code:        errorCode,
			Description: constants.GatewayErrDescriptions[errorCode],
		})
	}
	if err != nil && errors.Is(err, repository.ErrStatusConflict) {
		return nil
	}
	return err
}

// ScheduleAdvance 供补偿扫描重新排程卡在 created 的记录
func (s *GatewayService) ScheduleAdvance(kind, no string, delay time.Duration) {
	s.scheduleAdvance(kind, no, delay)
}

// ScheduleSettle 供补偿扫描重新排程卡在 pending 的记录
func (s *GatewayService) ScheduleSettle(kind, no string, delay time.Duration) {
	s.scheduleSettle(kind, no, delay)
}

// scheduleAdvance 排程推进任务。
// 队列可用时走 asynq 延迟投递；否则退化为进程内定时器。
func (s *GatewayService) scheduleAdvance(kind, no string, delay time.Duration) {
	if s.queueClient.Enabled() {
		err := s.queueClient.EnqueuePaymentAdvance(queue.PaymentTransitionPayload{Kind: kind, No: no}, delay)
		if err == nil {
			return
		}
		logger.Warnw("payment_advance_enqueue_failed", "kind", kind, "no", no, "error", err)
	}
	time.AfterFunc(delay, func() {
		if err := s.AdvanceToPending(context.Background(), kind, no); err != nil {
			logger.Errorw("payment_advance_failed", "kind", kind, "no", no, "error", err)
		}
	})
}

// scheduleSettle 排程结算任务
func (s *GatewayService) scheduleSettle(kind, no string, delay time.Duration) {
	if s.queueClient.Enabled() {
		err := s.queueClient.EnqueuePaymentSettle(queue.PaymentTransitionPayload{Kind: kind, No: no}, delay)
		if err == nil {
			return
		}
		logger.Warnw("payment_settle_enqueue_failed", "kind", kind, "no", no, "error", err)
	}
	time.AfterFunc(delay, func() {
		if err := s.Settle(context.Background(), kind, no); err != nil {
			logger.Errorw("payment_settle_failed", "kind", kind, "no", no, "error", err)
		}
	})
}

func (s *GatewayService) notifyPayment(payment *models.PaymentIntent) {
	if s.notifier == nil {
		return
	}
	go func() {
		if err := s.notifier.NotifyPayment(context.Background(), payment); err != nil {
			logger.Warnw("payment_webhook_failed", "payment_no", payment.PaymentNo, "error", err)
		}
	}()
}

func (s *GatewayService) notifyRefund(refund *models.Refund) {
	if s.notifier == nil {
		return
	}
	go func() {
		if err := s.notifier.NotifyRefund(context.Background(), refund); err != nil {
			logger.Warnw("refund_webhook_failed", "refund_no", refund.RefundNo, "error", err)
		}
	}()
}

// CalculateFee 计算手续费与税额：手续费取 2% 与 2.00 的较大值，税按 18% 计
func CalculateFee(amount models.Money) (fee models.Money, tax models.Money) {
	f := amount.Decimal.Mul(feeRate)
	if f.LessThan(feeMinimum) {
		f = feeMinimum
	}
	t := f.Mul(feeTaxRate)
	return models.NewMoneyFromDecimal(f), models.NewMoneyFromDecimal(t)
}

func generatePaymentNo() string {
	now := time.Now().Format("20060102150405")
	return fmt.Sprintf("pay_%s_%s", now, randNumeric(6))
}

func generateRefundNo() string {
	now := time.Now().Format("20060102150405")
	return fmt.Sprintf("rfnd_%s_%s", now, randNumeric(6))
}

func randNumeric(length int) string {
	var b strings.Builder
	for i := 0; i < length; i++ {
		n, err := rand.Int(rand.Reader, big.NewInt(10))
		if err != nil {
			b.WriteString("0")
			continue
		}
		b.WriteString(fmt.Sprintf("%d", n.Int64()))
	}
	return b.String()
}
