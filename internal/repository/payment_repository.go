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

// PaymentRepository 支付数据访问接口
type PaymentRepository interface {
	Create(payment *models.PaymentIntent) error
	GetByPaymentNo(paymentNo string) (*models.PaymentIntent, error)
	UpdateStatus(paymentNo string, newStatus string, errInfo *StatusErrorInfo) error
	List(filter PaymentListFilter) ([]models.PaymentIntent, int64, error)
	ListStuckCreated(olderThan time.Time, limit int) ([]models.PaymentIntent, error)
	ListStuckPending(olderThan time.Time, limit int) ([]models.PaymentIntent, error)
	SumCapturedByPayerSince(payerVPA string, since time.Time, excludePaymentNo string) (models.Money, error)
	WithTx(tx *gorm.DB) *GormPaymentRepository
}

// GormPaymentRepository GORM 实现
type GormPaymentRepository struct {
	db *gorm.DB
}

// NewPaymentRepository 创建支付仓库
func NewPaymentRepository(db *gorm.DB) *GormPaymentRepository {
	return &GormPaymentRepository{db: db}
}

// WithTx 绑定事务
func (r *GormPaymentRepository) WithTx(tx *gorm.DB) *GormPaymentRepository {
	if tx == nil {
		return r
	}
	return &GormPaymentRepository{db: tx}
}

// Create 创建支付记录
func (r *GormPaymentRepository) Create(payment *models.PaymentIntent) error {
	return r.db.Create(payment).Error
}

// GetByPaymentNo 根据支付编号获取记录
func (r *GormPaymentRepository) GetByPaymentNo(paymentNo string) (*models.PaymentIntent, error) {
	paymentNo = strings.TrimSpace(paymentNo)
	if paymentNo == "" {
		return nil, nil
	}
	var payment models.PaymentIntent
	if err := r.db.Where("payment_no = ?", paymentNo).First(&payment).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &payment, nil
}

// UpdateStatus 推进支付状态。
// 单向推进：created -> pending -> captured/failed；重复写入同一终态幂等跳过，
// 其余回退或改写终态的写入返回 ErrStatusConflict 且不改动记录。
// 行级锁保证同一编号的写入串行（单 key 单写者）。
func (r *GormPaymentRepository) UpdateStatus(paymentNo string, newStatus string, errInfo *StatusErrorInfo) error {
	paymentNo = strings.TrimSpace(paymentNo)
	if paymentNo == "" {
		return ErrNotFound
	}
	return r.db.Transaction(func(tx *gorm.DB) error {
		var payment models.PaymentIntent
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("payment_no = ?", paymentNo).
			First(&payment).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}

		applied, err := statusTransition(payment.Status, newStatus)
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
		if constants.IsTerminalPaymentStatus(newStatus) && payment.CapturedAt == nil {
			updates["captured_at"] = now
		}
		if newStatus == constants.PaymentStatusFailed && errInfo != nil {
			updates["error_code"] = errInfo.Code
			updates["error_description"] = errInfo.Description
		}
		return tx.Model(&models.PaymentIntent{}).
			Where("payment_no = ?", paymentNo).
			Updates(updates).Error
	})
}

// List 查询支付历史（倒序分页）
func (r *GormPaymentRepository) List(filter PaymentListFilter) ([]models.PaymentIntent, int64, error) {
	query := r.db.Model(&models.PaymentIntent{})

	if filter.UserID != 0 {
		query = query.Where("user_id = ?", filter.UserID)
	}
	if filter.Provider != "" {
		query = query.Where("provider = ?", filter.Provider)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.PayeeVPA != "" {
		query = query.Where("payee_address = ?", filter.PayeeVPA)
	}
	if filter.CreatedFrom != nil {
		query = query.Where("created_at >= ?", *filter.CreatedFrom)
	}
	if filter.CreatedTo != nil {
		query = query.Where("created_at <= ?", *filter.CreatedTo)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	query = applyPagination(query, filter.Page, filter.PageSize)

	var payments []models.PaymentIntent
	if err := query.Order("id desc").Find(&payments).Error; err != nil {
		return nil, 0, err
	}
	return payments, total, nil
}

// ListStuckCreated 查询长时间停留在 created 的记录（调度任务丢失时兜底补偿）
func (r *GormPaymentRepository) ListStuckCreated(olderThan time.Time, limit int) ([]models.PaymentIntent, error) {
	if limit <= 0 {
		limit = 100
	}
	var payments []models.PaymentIntent
	if err := r.db.Where("status = ? AND created_at < ?", constants.PaymentStatusCreated, olderThan).
		Order("id asc").Limit(limit).Find(&payments).Error; err != nil {
		return nil, err
	}
	return payments, nil
}

// ListStuckPending 查询长时间停留在 pending 的记录（结算任务丢失时兜底补偿）
func (r *GormPaymentRepository) ListStuckPending(olderThan time.Time, limit int) ([]models.PaymentIntent, error) {
	if limit <= 0 {
		limit = 100
	}
	var payments []models.PaymentIntent
	if err := r.db.Where("status = ? AND updated_at < ?", constants.PaymentStatusPending, olderThan).
		Order("id asc").Limit(limit).Find(&payments).Error; err != nil {
		return nil, err
	}
	return payments, nil
}

// SumCapturedByPayerSince 统计付款账户某时间以来的成交总额（周期限额用）。
// excludePaymentNo 排除正在结算的那笔记录，它的金额由裁决方单独计入。
func (r *GormPaymentRepository) SumCapturedByPayerSince(payerVPA string, since time.Time, excludePaymentNo string) (models.Money, error) {
	payerVPA = strings.TrimSpace(payerVPA)
	if payerVPA == "" {
		return models.Money{}, nil
	}
	query := r.db.Model(&models.PaymentIntent{}).
		Select("COALESCE(SUM(amount), 0) AS total").
		Where("payer_address = ? AND status IN ? AND created_at >= ?",
			payerVPA,
			[]string{constants.PaymentStatusPending, constants.PaymentStatusCaptured},
			since,
		)
	if excludePaymentNo = strings.TrimSpace(excludePaymentNo); excludePaymentNo != "" {
		query = query.Where("payment_no <> ?", excludePaymentNo)
	}
	var result struct {
		Total models.Money
	}
	if err := query.Scan(&result).Error; err != nil {
		return models.Money{}, err
	}
	return result.Total, nil
}
