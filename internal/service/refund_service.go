package service

import (
	"context"
	"strings"

	"github.com/upi-next/internal/constants"
	"github.com/upi-next/internal/logger"
	"github.com/upi-next/internal/models"
	"github.com/upi-next/internal/repository"
)

// RefundService 退款处理。
// 前置条件同步校验（父支付必须已成交、累计退款不得超额），
// 通过后创建退款记录并复用网关状态机异步推进。
type RefundService struct {
	paymentRepo repository.PaymentRepository
	refundRepo  repository.RefundRepository
	gateway     *GatewayService
}

// NewRefundService 创建退款服务
func NewRefundService(paymentRepo repository.PaymentRepository, refundRepo repository.RefundRepository, gateway *GatewayService) *RefundService {
	return &RefundService{
		paymentRepo: paymentRepo,
		refundRepo:  refundRepo,
		gateway:     gateway,
	}
}

// CreateRefund 发起退款。
// amount 为空时按剩余可退金额全额退款；部分退款可多次发起，
// 未失败退款的累计金额以父支付金额封顶。
func (s *RefundService) CreateRefund(ctx context.Context, paymentNo string, amount *models.Money) (*models.Refund, error) {
	payment, err := s.paymentRepo.GetByPaymentNo(paymentNo)
	if err != nil {
		return nil, err
	}
	if payment == nil {
		return nil, ErrPaymentNotFound
	}
	if payment.Status != constants.PaymentStatusCaptured {
		return nil, ErrRefundNotCaptured
	}

	refunded, err := s.refundRepo.SumActiveByPaymentNo(payment.PaymentNo)
	if err != nil {
		return nil, err
	}
	remaining := payment.Amount.Decimal.Sub(refunded.Decimal)
	if !remaining.IsPositive() {
		return nil, ErrOverRefund
	}

	refundAmount := models.NewMoneyFromDecimal(remaining)
	if amount != nil && !amount.Decimal.IsZero() {
		if !amount.Decimal.IsPositive() {
			return nil, ErrInvalidAmount
		}
		if amount.Decimal.GreaterThan(remaining) {
			return nil, ErrOverRefund
		}
		refundAmount = models.NewMoneyFromDecimal(amount.Decimal)
	}

	refund := &models.Refund{
		RefundNo:  generateRefundNo(),
		PaymentNo: payment.PaymentNo,
		Amount:    refundAmount,
		Currency:  payment.Currency,
		Status:    constants.PaymentStatusCreated,
	}
	if err := s.refundRepo.Create(refund); err != nil {
		return nil, err
	}

	advanceDelay, _ := s.gateway.policy.delays(refund.RefundNo)
	s.gateway.scheduleAdvance(constants.IntentKindRefund, refund.RefundNo, advanceDelay)

	logger.Infow("refund_created",
		"refund_no", refund.RefundNo,
		"payment_no", refund.PaymentNo,
		"amount", refund.Amount.String(),
	)
	return refund, nil
}

// GetRefund 查询退款记录
func (s *RefundService) GetRefund(refundNo string) (*models.Refund, error) {
	refund, err := s.refundRepo.GetByRefundNo(refundNo)
	if err != nil {
		return nil, err
	}
	if refund == nil {
		return nil, ErrRefundNotFound
	}
	return refund, nil
}

// ListRefunds 查询父支付下的退款记录
func (s *RefundService) ListRefunds(paymentNo string) ([]models.Refund, error) {
	paymentNo = strings.TrimSpace(paymentNo)
	payment, err := s.paymentRepo.GetByPaymentNo(paymentNo)
	if err != nil {
		return nil, err
	}
	if payment == nil {
		return nil, ErrPaymentNotFound
	}
	return s.refundRepo.ListByPaymentNo(paymentNo)
}
