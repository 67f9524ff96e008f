package repository

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/upi-next/internal/constants"
	"github.com/upi-next/internal/models"

	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

func setupRefundRepositoryTest(t *testing.T) (*GormRefundRepository, *gorm.DB) {
	t.Helper()
	dsn := fmt.Sprintf("file:refund_repo_test_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	if err := db.AutoMigrate(&models.PaymentIntent{}, &models.Refund{}); err != nil {
		t.Fatalf("auto migrate failed: %v", err)
	}
	return NewRefundRepository(db), db
}

func newTestRefund(refundNo, paymentNo string, amount int64, status string) *models.Refund {
	return &models.Refund{
		RefundNo:  refundNo,
		PaymentNo: paymentNo,
		Amount:    models.NewMoneyFromDecimal(decimal.NewFromInt(amount)),
		Currency:  constants.CurrencyINR,
		Status:    status,
	}
}

func TestRefundRepositoryUpdateStatusForwardOnly(t *testing.T) {
	repo, _ := setupRefundRepositoryTest(t)

	refund := newTestRefund("rfnd_20250101120000_000001", "pay_001", 50, constants.PaymentStatusCreated)
	if err := repo.Create(refund); err != nil {
		t.Fatalf("create refund failed: %v", err)
	}

	if err := repo.UpdateStatus(refund.RefundNo, constants.PaymentStatusPending, nil); err != nil {
		t.Fatalf("advance to pending failed: %v", err)
	}
	if err := repo.UpdateStatus(refund.RefundNo, constants.PaymentStatusCaptured, nil); err != nil {
		t.Fatalf("advance to captured failed: %v", err)
	}

	err := repo.UpdateStatus(refund.RefundNo, constants.PaymentStatusFailed, nil)
	if !errors.Is(err, ErrStatusConflict) {
		t.Fatalf("expected ErrStatusConflict when rewriting terminal status, got %v", err)
	}

	got, err := repo.GetByRefundNo(refund.RefundNo)
	if err != nil {
		t.Fatalf("get refund failed: %v", err)
	}
	if got.Status != constants.PaymentStatusCaptured {
		t.Fatalf("expected status captured, got %s", got.Status)
	}
	if got.CapturedAt == nil {
		t.Fatalf("captured_at should be set on terminal status")
	}
}

func TestRefundRepositorySumActiveByPaymentNo(t *testing.T) {
	repo, db := setupRefundRepositoryTest(t)

	entries := []struct {
		no     string
		amount int64
		status string
	}{
		{"rfnd_sum_001", 30, constants.PaymentStatusCaptured},
		{"rfnd_sum_002", 20, constants.PaymentStatusPending},
		{"rfnd_sum_003", 10, constants.PaymentStatusCreated},
		{"rfnd_sum_004", 40, constants.PaymentStatusFailed},
	}
	for _, entry := range entries {
		if err := db.Create(newTestRefund(entry.no, "pay_001", entry.amount, entry.status)).Error; err != nil {
			t.Fatalf("create refund failed: %v", err)
		}
	}
	if err := db.Create(newTestRefund("rfnd_sum_005", "pay_other", 999, constants.PaymentStatusCaptured)).Error; err != nil {
		t.Fatalf("create refund failed: %v", err)
	}

	// 失败退款不占用额度，其余状态都算
	total, err := repo.SumActiveByPaymentNo("pay_001")
	if err != nil {
		t.Fatalf("sum failed: %v", err)
	}
	expected := decimal.NewFromInt(60)
	if !total.Decimal.Equal(expected) {
		t.Fatalf("expected sum %s, got %s", expected, total.Decimal)
	}
}

func TestRefundRepositoryListStuck(t *testing.T) {
	repo, db := setupRefundRepositoryTest(t)
	now := time.Now()

	staleCreated := newTestRefund("rfnd_stuck_001", "pay_001", 10, constants.PaymentStatusCreated)
	staleCreated.CreatedAt = now.Add(-10 * time.Minute)
	stalePending := newTestRefund("rfnd_stuck_002", "pay_001", 10, constants.PaymentStatusPending)
	stalePending.CreatedAt = now.Add(-10 * time.Minute)
	stalePending.UpdatedAt = now.Add(-10 * time.Minute)
	fresh := newTestRefund("rfnd_stuck_003", "pay_001", 10, constants.PaymentStatusCreated)
	fresh.CreatedAt = now
	for _, refund := range []*models.Refund{staleCreated, stalePending, fresh} {
		if err := db.Create(refund).Error; err != nil {
			t.Fatalf("create refund failed: %v", err)
		}
	}

	stuckCreated, err := repo.ListStuckCreated(now.Add(-time.Minute), 10)
	if err != nil {
		t.Fatalf("list stuck created failed: %v", err)
	}
	if len(stuckCreated) != 1 || stuckCreated[0].RefundNo != "rfnd_stuck_001" {
		t.Fatalf("expected only stale created refund, got %d", len(stuckCreated))
	}

	stuckPending, err := repo.ListStuckPending(now.Add(-time.Minute), 10)
	if err != nil {
		t.Fatalf("list stuck pending failed: %v", err)
	}
	if len(stuckPending) != 1 || stuckPending[0].RefundNo != "rfnd_stuck_002" {
		t.Fatalf("expected only stale pending refund, got %d", len(stuckPending))
	}
}

func TestRefundRepositoryListByPaymentNo(t *testing.T) {
	repo, db := setupRefundRepositoryTest(t)

	for i := 0; i < 3; i++ {
		refund := newTestRefund(fmt.Sprintf("rfnd_list_00%d", i), "pay_001", 10, constants.PaymentStatusCreated)
		if err := db.Create(refund).Error; err != nil {
			t.Fatalf("create refund failed: %v", err)
		}
	}

	refunds, err := repo.ListByPaymentNo("pay_001")
	if err != nil {
		t.Fatalf("list refunds failed: %v", err)
	}
	if len(refunds) != 3 {
		t.Fatalf("expected 3 refunds, got %d", len(refunds))
	}
	if refunds[0].RefundNo != "rfnd_list_002" {
		t.Fatalf("expected newest first, got %s", refunds[0].RefundNo)
	}
}
