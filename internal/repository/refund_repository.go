package repository

import (
	"errors"
	"strings"
	"time"

	"github.com/upi-next/internal/constants"
	"github.com/upi-next/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// RefundRepository 退款数据访问接口
type RefundRepository interface {
	Create(refund *models.Refund) error
	GetByRefundNo(refundNo string) (*models.Refund, error)
	UpdateStatus(refundNo string, newStatus string, errInfo *StatusErrorInfo) error
	ListByPaymentNo(paymentNo string) ([]models.Refund, error)
	ListStuckCreated(olderThan time.Time, limit int) ([]models.Refund, error)
	ListStuckPending(olderThan time.Time, limit int) ([]models.Refund, error)
	SumActiveByPaymentNo(paymentNo string) (models.Money, error)
	WithTx(tx *gorm.DB) *GormRefundRepository
}

// GormRefundRepository GORM 实现
type GormRefundRepository struct {
	db *gorm.DB
}

// NewRefundRepository 创建退款仓库
func NewRefundRepository(db *gorm.DB) *GormRefundRepository {
	return &GormRefundRepository{db: db}
}

// WithTx 绑定事务
func (r *GormRefundRepository) WithTx(tx *gorm.DB) *GormRefundRepository {
	if tx == nil {
		return r
	}
	return &GormRefundRepository{db: tx}
}

// Create 创建退款记录
func (r *GormRefundRepository) Create(refund *models.Refund) error {
	return r.db.Create(refund).Error
}

// GetByRefundNo 根据退款编号获取记录
func (r *GormRefundRepository) GetByRefundNo(refundNo string) (*models.Refund, error) {
	refundNo = strings.TrimSpace(refundNo)
	if refundNo == "" {
		return nil, nil
	}
	var refund models.Refund
	if err := r.db.Where("refund_no = ?", refundNo).First(&refund).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &refund, nil
}

// UpdateStatus 推进退款状态（与支付记录相同的单向推进约束）
func (r *GormRefundRepository) UpdateStatus(refundNo string, newStatus string, errInfo *StatusErrorInfo) error {
	refundNo = strings.TrimSpace(refundNo)
	if refundNo == "" {
		return ErrNotFound
	}
	return r.db.Transaction(func(tx *gorm.DB) error {
		var refund models.Refund
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("refund_no = ?", refundNo).
			First(&refund).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}

		applied, err := statusTransition(refund.Status, newStatus)
		if err != nil {
			return err
		}
		if !applied {
			return nil
		}

		now := time.Now()
		updates := map[string]interface{}{
			"status":     newStatus,
			"updated_at": now,
		}
		if constants.IsTerminalPaymentStatus(newStatus) && refund.CapturedAt == nil {
			updates["captured_at"] = now
		}
		if newStatus == constants.PaymentStatusFailed && errInfo != nil {
			updates["error_code"] = errInfo.Code
			updates["error_description"] = errInfo.Description
		}
		return tx.Model(&models.Refund{}).
			Where("refund_no = ?", refundNo).
			Updates(updates).Error
	})
}

// ListByPaymentNo 查询父支付下的退款记录
func (r *GormRefundRepository) ListByPaymentNo(paymentNo string) ([]models.Refund, error) {
	var refunds []models.Refund
	if err := r.db.Where("payment_no = ?", strings.TrimSpace(paymentNo)).
		Order("id desc").Find(&refunds).Error; err != nil {
		return nil, err
	}
	return refunds, nil
}

// ListStuckCreated 查询长时间停留在 created 的退款（调度任务丢失时兜底补偿）
func (r *GormRefundRepository) ListStuckCreated(olderThan time.Time, limit int) ([]models.Refund, error) {
	if limit <= 0 {
		limit = 100
	}
	var refunds []models.Refund
	if err := r.db.Where("status = ? AND created_at < ?", constants.PaymentStatusCreated, olderThan).
		Order("id asc").Limit(limit).Find(&refunds).Error; err != nil {
		return nil, err
	}
	return refunds, nil
}

// ListStuckPending 查询长时间停留在 pending 的退款（结算任务丢失时兜底补偿）
func (r *GormRefundRepository) ListStuckPending(olderThan time.Time, limit int) ([]models.Refund, error) {
	if limit <= 0 {
		limit = 100
	}
	var refunds []models.Refund
	if err := r.db.Where("status = ? AND updated_at < ?", constants.PaymentStatusPending, olderThan).
		Order("id asc").Limit(limit).Find(&refunds).Error; err != nil {
		return nil, err
	}
	return refunds, nil
}

// SumActiveByPaymentNo 统计父支付下未失败退款的累计金额（部分退款封顶用）
func (r *GormRefundRepository) SumActiveByPaymentNo(paymentNo string) (models.Money, error) {
	paymentNo = strings.TrimSpace(paymentNo)
	if paymentNo == "" {
		return models.Money{}, nil
	}
	var result struct {
		Total models.Money
	}
	err := r.db.Model(&models.Refund{}).
		Select("COALESCE(SUM(amount), 0) AS total").
		Where("payment_no = ? AND status <> ?", paymentNo, constants.PaymentStatusFailed).
		Scan(&result).Error
	if err != nil {
		return models.Money{}, err
	}
	return result.Total, nil
}
