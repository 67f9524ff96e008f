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

func setupPaymentRepositoryTest(t *testing.T) (*GormPaymentRepository, *gorm.DB) {
	t.Helper()
	dsn := fmt.Sprintf("file:payment_repo_test_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	if err := db.AutoMigrate(&models.PaymentIntent{}, &models.Refund{}); err != nil {
		t.Fatalf("auto migrate failed: %v", err)
	}
	return NewPaymentRepository(db), db
}

func newTestPayment(paymentNo string, amount int64, status string) *models.PaymentIntent {
	money := models.NewMoneyFromDecimal(decimal.NewFromInt(amount))
	return &models.PaymentIntent{
		PaymentNo:        paymentNo,
		Amount:           money,
		Fee:              models.NewMoneyFromDecimal(decimal.NewFromInt(2)),
		Tax:              models.NewMoneyFromDecimal(decimal.Zero),
		SettlementAmount: money,
		Currency:         constants.CurrencyINR,
		PayeeAddress:     "merchant@upi",
		Provider:         constants.ProviderPaytm,
		Description:      "test payment",
		Status:           status,
	}
}

func TestPaymentRepositoryUpdateStatusForwardOnly(t *testing.T) {
	repo, _ := setupPaymentRepositoryTest(t)

	payment := newTestPayment("pay_20250101120000_000001", 100, constants.PaymentStatusCreated)
	if err := repo.Create(payment); err != nil {
		t.Fatalf("create payment failed: %v", err)
	}

	if err := repo.UpdateStatus(payment.PaymentNo, constants.PaymentStatusPending, nil); err != nil {
		t.Fatalf("advance to pending failed: %v", err)
	}
	got, err := repo.GetByPaymentNo(payment.PaymentNo)
	if err != nil {
		t.Fatalf("get payment failed: %v", err)
	}
	if got.Status != constants.PaymentStatusPending {
		t.Fatalf("expected status pending, got %s", got.Status)
	}
	if got.CapturedAt != nil {
		t.Fatalf("captured_at should be nil before terminal status")
	}

	if err := repo.UpdateStatus(payment.PaymentNo, constants.PaymentStatusCaptured, nil); err != nil {
		t.Fatalf("advance to captured failed: %v", err)
	}
	got, err = repo.GetByPaymentNo(payment.PaymentNo)
	if err != nil {
		t.Fatalf("get payment failed: %v", err)
	}
	if got.Status != constants.PaymentStatusCaptured {
		t.Fatalf("expected status captured, got %s", got.Status)
	}
	if got.CapturedAt == nil {
		t.Fatalf("captured_at should be set on terminal status")
	}
}

func TestPaymentRepositoryUpdateStatusRejectsBackward(t *testing.T) {
	repo, _ := setupPaymentRepositoryTest(t)

	payment := newTestPayment("pay_20250101120000_000002", 100, constants.PaymentStatusPending)
	if err := repo.Create(payment); err != nil {
		t.Fatalf("create payment failed: %v", err)
	}

	err := repo.UpdateStatus(payment.PaymentNo, constants.PaymentStatusCreated, nil)
	if !errors.Is(err, ErrStatusConflict) {
		t.Fatalf("expected ErrStatusConflict, got %v", err)
	}
	got, err := repo.GetByPaymentNo(payment.PaymentNo)
	if err != nil {
		t.Fatalf("get payment failed: %v", err)
	}
	if got.Status != constants.PaymentStatusPending {
		t.Fatalf("status should stay pending after rejected write, got %s", got.Status)
	}
}

func TestPaymentRepositoryUpdateStatusTerminalRules(t *testing.T) {
	repo, _ := setupPaymentRepositoryTest(t)

	payment := newTestPayment("pay_20250101120000_000003", 100, constants.PaymentStatusPending)
	if err := repo.Create(payment); err != nil {
		t.Fatalf("create payment failed: %v", err)
	}

	errInfo := &StatusErrorInfo{
		Code:        constants.GatewayErrPaymentDeclined,
		Description: constants.GatewayErrDescriptions[constants.GatewayErrPaymentDeclined],
	}
	if err := repo.UpdateStatus(payment.PaymentNo, constants.PaymentStatusFailed, errInfo); err != nil {
		t.Fatalf("fail payment failed: %v", err)
	}
	got, err := repo.GetByPaymentNo(payment.PaymentNo)
	if err != nil {
		t.Fatalf("get payment failed: %v", err)
	}
	if got.ErrorCode != constants.GatewayErrPaymentDeclined {
		t.Fatalf("expected error code %s, got %s", constants.GatewayErrPaymentDeclined, got.ErrorCode)
	}
	if got.CapturedAt == nil {
		t.Fatalf("captured_at should record first terminal transition")
	}
	firstTerminalAt := *got.CapturedAt

	// 重复写入同一终态：幂等跳过，时间戳不变
	if err := repo.UpdateStatus(payment.PaymentNo, constants.PaymentStatusFailed, errInfo); err != nil {
		t.Fatalf("idempotent terminal write should succeed: %v", err)
	}
	got, err = repo.GetByPaymentNo(payment.PaymentNo)
	if err != nil {
		t.Fatalf("get payment failed: %v", err)
	}
	if !got.CapturedAt.Equal(firstTerminalAt) {
		t.Fatalf("captured_at changed on idempotent write")
	}

	// 改写成另一终态：冲突
	err = repo.UpdateStatus(payment.PaymentNo, constants.PaymentStatusCaptured, nil)
	if !errors.Is(err, ErrStatusConflict) {
		t.Fatalf("expected ErrStatusConflict when rewriting terminal status, got %v", err)
	}
}

func TestPaymentRepositoryUpdateStatusNotFound(t *testing.T) {
	repo, _ := setupPaymentRepositoryTest(t)

	err := repo.UpdateStatus("pay_missing", constants.PaymentStatusPending, nil)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestPaymentRepositoryListFilters(t *testing.T) {
	repo, db := setupPaymentRepositoryTest(t)

	for i := 0; i < 5; i++ {
		payment := newTestPayment(fmt.Sprintf("pay_20250101120000_10000%d", i), 100, constants.PaymentStatusCaptured)
		if i%2 == 0 {
			payment.Provider = constants.ProviderPhonepe
		}
		if err := db.Create(payment).Error; err != nil {
			t.Fatalf("create payment failed: %v", err)
		}
	}

	payments, total, err := repo.List(PaymentListFilter{Provider: constants.ProviderPhonepe, Page: 1, PageSize: 2})
	if err != nil {
		t.Fatalf("list payments failed: %v", err)
	}
	if total != 3 {
		t.Fatalf("expected total 3, got %d", total)
	}
	if len(payments) != 2 {
		t.Fatalf("expected page of 2, got %d", len(payments))
	}
}

func TestPaymentRepositorySumCapturedByPayerSince(t *testing.T) {
	repo, db := setupPaymentRepositoryTest(t)
	now := time.Now()

	entries := []struct {
		no     string
		amount int64
		status string
		age    time.Duration
	}{
		{"pay_sum_001", 100, constants.PaymentStatusCaptured, time.Hour},
		{"pay_sum_002", 200, constants.PaymentStatusPending, time.Hour},
		{"pay_sum_003", 400, constants.PaymentStatusFailed, time.Hour},
		{"pay_sum_004", 800, constants.PaymentStatusCaptured, 48 * time.Hour},
	}
	for _, entry := range entries {
		payment := newTestPayment(entry.no, entry.amount, entry.status)
		payment.PayerAddress = "user@paytm"
		payment.CreatedAt = now.Add(-entry.age)
		if err := db.Create(payment).Error; err != nil {
			t.Fatalf("create payment failed: %v", err)
		}
	}

	total, err := repo.SumCapturedByPayerSince("user@paytm", now.Add(-24*time.Hour), "")
	if err != nil {
		t.Fatalf("sum failed: %v", err)
	}
	expected := decimal.NewFromInt(300)
	if !total.Decimal.Equal(expected) {
		t.Fatalf("expected sum %s, got %s", expected, total.Decimal)
	}

	// 排除指定编号（结算中的记录由裁决方单独计入金额）
	total, err = repo.SumCapturedByPayerSince("user@paytm", now.Add(-24*time.Hour), "pay_sum_002")
	if err != nil {
		t.Fatalf("sum with exclusion failed: %v", err)
	}
	expected = decimal.NewFromInt(100)
	if !total.Decimal.Equal(expected) {
		t.Fatalf("expected sum %s excluding pending record, got %s", expected, total.Decimal)
	}
}

func TestPaymentRepositoryListStuck(t *testing.T) {
	repo, db := setupPaymentRepositoryTest(t)
	now := time.Now()

	stale := newTestPayment("pay_stuck_001", 100, constants.PaymentStatusCreated)
	stale.CreatedAt = now.Add(-10 * time.Minute)
	fresh := newTestPayment("pay_stuck_002", 100, constants.PaymentStatusCreated)
	fresh.CreatedAt = now
	for _, payment := range []*models.PaymentIntent{stale, fresh} {
		if err := db.Create(payment).Error; err != nil {
			t.Fatalf("create payment failed: %v", err)
		}
	}

	stuck, err := repo.ListStuckCreated(now.Add(-time.Minute), 10)
	if err != nil {
		t.Fatalf("list stuck failed: %v", err)
	}
	if len(stuck) != 1 || stuck[0].PaymentNo != "pay_stuck_001" {
		t.Fatalf("expected only stale record, got %d", len(stuck))
	}
}
