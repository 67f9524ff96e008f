package service

import (
	"context"
	"time"

	"github.com/upi-next/internal/config"
	"github.com/upi-next/internal/constants"
	"github.com/upi-next/internal/logger"
	"github.com/upi-next/internal/models"
	"github.com/upi-next/internal/repository"
)

// ReconcileResult 轮询对账结果。
// TimedOut 表示轮询预算耗尽仍未观察到终态，属于正常返回而非错误；
// Payment 始终携带最后一次读到的记录快照。
type ReconcileResult struct {
	Payment  *models.PaymentIntent `json:"payment"`
	Attempts int                   `json:"attempts"`
	TimedOut bool                  `json:"timed_out"`
}

// ReconcileService 客户端视角的状态轮询器。
// 只读访问支付存储，不参与状态推进；网关终态不依赖轮询者在场。
type ReconcileService struct {
	paymentRepo repository.PaymentRepository
	interval    time.Duration
	maxAttempts int
}

// NewReconcileService 创建轮询对账服务
func NewReconcileService(paymentRepo repository.PaymentRepository, cfg config.ReconcileConfig) *ReconcileService {
	interval := time.Duration(cfg.IntervalMS) * time.Millisecond
	if interval <= 0 {
		interval = time.Second
	}
	maxAttempts := cfg.MaxAttempts
	if maxAttempts < 0 {
		maxAttempts = 0
	}
	return &ReconcileService{
		paymentRepo: paymentRepo,
		interval:    interval,
		maxAttempts: maxAttempts,
	}
}

// DefaultMaxAttempts 默认重试预算
func (s *ReconcileService) DefaultMaxAttempts() int {
	return s.maxAttempts
}

// AwaitTerminal 轮询直到记录进入终态或预算耗尽。
// 首次读取无条件执行；maxAttempts 限定其后的重试次数，
// maxAttempts=0 表示只读一次立即返回。
// ctx 取消时返回 ctx.Err()，不再继续轮询。
func (s *ReconcileService) AwaitTerminal(ctx context.Context, paymentNo string, maxAttempts int, interval time.Duration) (*ReconcileResult, error) {
	if interval <= 0 {
		interval = s.interval
	}
	if maxAttempts < 0 {
		maxAttempts = s.maxAttempts
	}

	payment, err := s.paymentRepo.GetByPaymentNo(paymentNo)
	if err != nil {
		return nil, err
	}
	if payment == nil {
		return nil, ErrPaymentNotFound
	}

	result := &ReconcileResult{Payment: payment, Attempts: 0}
	if constants.IsTerminalPaymentStatus(payment.Status) {
		return result, nil
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}

		payment, err = s.paymentRepo.GetByPaymentNo(paymentNo)
		if err != nil {
			return nil, err
		}
		if payment == nil {
			return nil, ErrPaymentNotFound
		}
		result.Payment = payment
		result.Attempts = attempt
		if constants.IsTerminalPaymentStatus(payment.Status) {
			return result, nil
		}
	}

	result.TimedOut = true
	logger.Warnw("reconcile_timed_out",
		"payment_no", paymentNo,
		"attempts", result.Attempts,
		"last_status", result.Payment.Status,
	)
	return result, nil
}
