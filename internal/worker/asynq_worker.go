package worker

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/upi-next/internal/logger"
	"github.com/upi-next/internal/provider"
	"github.com/upi-next/internal/queue"
	"github.com/upi-next/internal/service"

	"github.com/hibiken/asynq"
)

// Consumer 异步任务消费者
type Consumer struct {
	*provider.Container
}

// NewConsumer 创建消费者
func NewConsumer(c *provider.Container) *Consumer {
	return &Consumer{
		Container: c,
	}
}

// Register 注册消费者
func (c *Consumer) Register(mux *asynq.ServeMux) {
	if c == nil || mux == nil {
		logger.Debugw("worker_register_skip_nil", "consumer_nil", c == nil, "mux_nil", mux == nil)
		return
	}
	mux.HandleFunc(queue.TaskPaymentAdvance, c.handlePaymentAdvance)
	mux.HandleFunc(queue.TaskPaymentSettle, c.handlePaymentSettle)
}

func (c *Consumer) handlePaymentAdvance(ctx context.Context, task *asynq.Task) error {
	payload, ok := c.decodePayload(task, "worker_payment_advance")
	if !ok {
		return nil
	}
	if err := c.GatewayService.AdvanceToPending(ctx, payload.Kind, payload.No); err != nil {
		// 记录可能尚未落库或已被删除：重试没有意义
		if errors.Is(err, service.ErrPaymentNotFound) || errors.Is(err, service.ErrRefundNotFound) {
			logger.Debugw("worker_payment_advance_skip_not_found", "kind", payload.Kind, "no", payload.No)
			return nil
		}
		logger.Warnw("worker_payment_advance_failed", "kind", payload.Kind, "no", payload.No, "error", err)
		return err
	}
	return nil
}

func (c *Consumer) handlePaymentSettle(ctx context.Context, task *asynq.Task) error {
	payload, ok := c.decodePayload(task, "worker_payment_settle")
	if !ok {
		return nil
	}
	if err := c.GatewayService.Settle(ctx, payload.Kind, payload.No); err != nil {
		if errors.Is(err, service.ErrPaymentNotFound) || errors.Is(err, service.ErrRefundNotFound) {
			logger.Debugw("worker_payment_settle_skip_not_found", "kind", payload.Kind, "no", payload.No)
			return nil
		}
		logger.Warnw("worker_payment_settle_failed", "kind", payload.Kind, "no", payload.No, "error", err)
		return err
	}
	return nil
}

func (c *Consumer) decodePayload(task *asynq.Task, event string) (queue.PaymentTransitionPayload, bool) {
	var payload queue.PaymentTransitionPayload
	if c == nil || task == nil {
		logger.Debugw(event+"_skip_nil", "consumer_nil", c == nil, "task_nil", task == nil)
		return payload, false
	}
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		logger.Warnw(event+"_unmarshal_failed", "error", err)
		return payload, false
	}
	if payload.No == "" {
		logger.Debugw(event+"_skip_invalid_payload", "kind", payload.Kind)
		return payload, false
	}
	return payload, true
}
