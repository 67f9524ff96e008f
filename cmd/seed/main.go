package main

import (
	"fmt"
	"time"

	"github.com/upi-next/internal/config"
	"github.com/upi-next/internal/constants"
	"github.com/upi-next/internal/logger"
	"github.com/upi-next/internal/models"
	"github.com/upi-next/internal/service"

	"github.com/shopspring/decimal"
)

func main() {
	// 连接数据库
	cfg := config.Load()
	logger.Init(cfg.Server.Mode, cfg.Log.ToLoggerOptions())
	stdLog := logger.StdLogger()
	if err := models.InitDB(cfg.Database.Driver, cfg.Database.DSN, models.DBPoolConfig{
		MaxOpenConns:           cfg.Database.Pool.MaxOpenConns,
		MaxIdleConns:           cfg.Database.Pool.MaxIdleConns,
		ConnMaxLifetimeSeconds: cfg.Database.Pool.ConnMaxLifetimeSeconds,
		ConnMaxIdleTimeSeconds: cfg.Database.Pool.ConnMaxIdleTimeSeconds,
	}); err != nil {
		stdLog.Fatalf("Failed to connect database: %v", err)
	}

	// 自动迁移
	if err := models.AutoMigrate(); err != nil {
		stdLog.Fatalf("Failed to migrate database: %v", err)
	}

	now := time.Now()
	seeds := []struct {
		amount    int64
		payer     string
		provider  string
		desc      string
		status    string
		errorCode string
		age       time.Duration
	}{
		{amount: 499, payer: "user@paytm", provider: constants.ProviderPaytm, desc: "Mobile recharge", status: constants.PaymentStatusCaptured, age: 72 * time.Hour},
		{amount: 1250, payer: "customer@phonepe", provider: constants.ProviderPhonepe, desc: "Grocery order", status: constants.PaymentStatusCaptured, age: 48 * time.Hour},
		{amount: 18000, payer: "customer@phonepe", provider: constants.ProviderPhonepe, desc: "Laptop EMI", status: constants.PaymentStatusFailed, errorCode: constants.GatewayErrInsufficientBalance, age: 24 * time.Hour},
		{amount: 2999, payer: "buyer@gpay", provider: constants.ProviderGooglepay, desc: "Annual subscription", status: constants.PaymentStatusCaptured, age: 12 * time.Hour},
		{amount: 75, payer: "buyer@gpay", provider: constants.ProviderGooglepay, desc: "Coffee", status: constants.PaymentStatusFailed, errorCode: constants.GatewayErrUPITimeout, age: 6 * time.Hour},
	}

	created := 0
	for i, seed := range seeds {
		amount := models.NewMoneyFromDecimal(decimal.NewFromInt(seed.amount))
		fee, tax := service.CalculateFee(amount)
		createdAt := now.Add(-seed.age)
		capturedAt := createdAt.Add(3 * time.Second)

		payment := models.PaymentIntent{
			PaymentNo:        fmt.Sprintf("pay_%s_%06d", createdAt.Format("20060102150405"), i),
			Amount:           amount,
			Fee:              fee,
			Tax:              tax,
			SettlementAmount: models.NewMoneyFromDecimal(amount.Decimal.Sub(fee.Decimal).Sub(tax.Decimal)),
			Currency:         constants.CurrencyINR,
			PayeeAddress:     "merchant@upi",
			PayerAddress:     seed.payer,
			Provider:         seed.provider,
			Description:      seed.desc,
			Status:           seed.status,
			CreatedAt:        createdAt,
			UpdatedAt:        capturedAt,
			CapturedAt:       &capturedAt,
		}
		if seed.errorCode != "" {
			payment.ErrorCode = seed.errorCode
			payment.ErrorDescription = constants.GatewayErrDescriptions[seed.errorCode]
		}
		if err := models.DB.Create(&payment).Error; err != nil {
			stdLog.Printf("Skip seed payment %s: %v", payment.PaymentNo, err)
			continue
		}
		created++
	}

	stdLog.Printf("Seed finished: %d payments created", created)
}
