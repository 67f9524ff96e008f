package queue

import (
	"encoding/json"

	"github.com/upi-next/internal/constants"

	"github.com/hibiken/asynq"
)

const (
	// TaskPaymentAdvance 支付推进任务（created -> pending）
	TaskPaymentAdvance = constants.TaskPaymentAdvance
	// TaskPaymentSettle 支付结算任务（pending -> captured/failed）
	TaskPaymentSettle = constants.TaskPaymentSettle
)

// PaymentTransitionPayload 状态推进任务载荷（支付与退款共用）
type PaymentTransitionPayload struct {
	Kind string `json:"kind"` // payment / refund
	No   string `json:"no"`   // 支付编号或退款编号
}

// NewPaymentAdvanceTask 创建支付推进任务
func NewPaymentAdvanceTask(payload PaymentTransitionPayload) (*asynq.Task, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskPaymentAdvance, body), nil
}

// NewPaymentSettleTask 创建支付结算任务
func NewPaymentSettleTask(payload PaymentTransitionPayload) (*asynq.Task, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskPaymentSettle, body), nil
}
