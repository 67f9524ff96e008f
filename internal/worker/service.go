package worker

import (
	"context"
	"errors"
	"time"

	"github.com/upi-next/internal/config"
	"github.com/upi-next/internal/constants"
	"github.com/upi-next/internal/logger"
	"github.com/upi-next/internal/queue"

	"github.com/hibiken/asynq"
)

const (
	stuckSweepInterval = time.Minute
	stuckSweepGrace    = 30 * time.Second
	stuckSweepBatch    = 100
)

// Service 异步队列服务
type Service struct {
	name     string
	server   *asynq.Server
	mux      *asynq.ServeMux
	consumer *Consumer
}

// NewService 创建异步队列服务
func NewService(cfg *config.QueueConfig, consumer *Consumer) (*Service, error) {
	if cfg == nil || !cfg.Enabled {
		return nil, errors.New("queue disabled")
	}
	if consumer == nil {
		return nil, errors.New("consumer is nil")
	}
	opt, serverCfg := queue.BuildServerConfig(cfg)
	server := asynq.NewServer(opt, serverCfg)
	mux := asynq.NewServeMux()
	consumer.Register(mux)
	return &Service{
		name:     "worker",
		server:   server,
		mux:      mux,
		consumer: consumer,
	}, nil
}

// Name 服务名称
func (s *Service) Name() string {
	if s == nil || s.name == "" {
		return "worker"
	}
	return s.name
}

// Start 启动服务
func (s *Service) Start(ctx context.Context) error {
	if s == nil || s.server == nil || s.mux == nil {
		return errors.New("worker not initialized")
	}
	if s.consumer != nil && s.consumer.GatewayService != nil {
		go s.runStuckSweepLoop(ctx)
	}
	return s.server.Run(s.mux)
}

// Stop 停止服务
func (s *Service) Stop(ctx context.Context) error {
	if s == nil || s.server == nil {
		return nil
	}
	_ = ctx
	s.server.Shutdown()
	return nil
}

// runStuckSweepLoop 周期扫描滞留记录并重新排程。
// 延迟任务可能因进程重启丢失，扫描保证终态推进不依赖单次投递成功。
func (s *Service) runStuckSweepLoop(ctx context.Context) {
	if s == nil || s.consumer == nil || s.consumer.GatewayService == nil {
		return
	}
	runOnce := func() {
		s.sweepStuck()
	}
	runOnce()

	ticker := time.NewTicker(stuckSweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			runOnce()
		}
	}
}

func (s *Service) sweepStuck() {
	olderThan := time.Now().Add(-stuckSweepGrace)

	created, err := s.consumer.PaymentRepo.ListStuckCreated(olderThan, stuckSweepBatch)
	if err != nil {
		logger.Warnw("worker_stuck_created_scan_failed", "error", err)
	} else {
		for _, payment := range created {
			s.consumer.GatewayService.ScheduleAdvance(constants.IntentKindPayment, payment.PaymentNo, 0)
		}
		if len(created) > 0 {
			logger.Infow("worker_stuck_created_rescheduled", "count", len(created))
		}
	}

	pending, err := s.consumer.PaymentRepo.ListStuckPending(olderThan, stuckSweepBatch)
	if err != nil {
		logger.Warnw("worker_stuck_pending_scan_failed", "error", err)
	} else {
		for _, payment := range pending {
			s.consumer.GatewayService.ScheduleSettle(constants.IntentKindPayment, payment.PaymentNo, 0)
		}
		if len(pending) > 0 {
			logger.Infow("worker_stuck_pending_rescheduled", "count", len(pending))
		}
	}

	// 退款与支付走同一条投递链路，滞留记录同样需要兜底
	refundsCreated, err := s.consumer.RefundRepo.ListStuckCreated(olderThan, stuckSweepBatch)
	if err != nil {
		logger.Warnw("worker_stuck_refund_created_scan_failed", "error", err)
	} else {
		for _, refund := range refundsCreated {
			s.consumer.GatewayService.ScheduleAdvance(constants.IntentKindRefund, refund.RefundNo, 0)
		}
		if len(refundsCreated) > 0 {
			logger.Infow("worker_stuck_refund_created_rescheduled", "count", len(refundsCreated))
		}
	}

	refundsPending, err := s.consumer.RefundRepo.ListStuckPending(olderThan, stuckSweepBatch)
	if err != nil {
		logger.Warnw("worker_stuck_refund_pending_scan_failed", "error", err)
		return
	}
	for _, refund := range refundsPending {
		s.consumer.GatewayService.ScheduleSettle(constants.IntentKindRefund, refund.RefundNo, 0)
	}
	if len(refundsPending) > 0 {
		logger.Infow("worker_stuck_refund_pending_rescheduled", "count", len(refundsPending))
	}
}
