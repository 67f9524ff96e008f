package service

import (
	"errors"
	"strings"
	"testing"

	"github.com/upi-next/internal/models"

	"github.com/shopspring/decimal"
)

func TestValidateVPA(t *testing.T) {
	valid := []string{
		"user@paytm",
		"customer@phonepe",
		"first.last@okaxis",
		"user_1-a@ybl",
		"9876543210@upi",
		"user@ok.axis",
		"user@ok-icici",
		"_user@upi",
		"user@1bank",
		".user@paytm",
	}
	for _, vpa := range valid {
		if err := ValidateVPA(vpa); err != nil {
			t.Fatalf("vpa %q should be valid: %v", vpa, err)
		}
	}

	invalid := []string{
		"",
		"useronly",
		"@paytm",
		"user@",
		"user@@paytm",
		"user @paytm",
		"user@pay tm",
		"user@pay_tm",
		strings.Repeat("a", 255) + "@upi",
	}
	for _, vpa := range invalid {
		if err := ValidateVPA(vpa); !errors.Is(err, ErrInvalidVPA) {
			t.Fatalf("vpa %q should be invalid, got %v", vpa, err)
		}
	}
}

func TestValidatorAmountBounds(t *testing.T) {
	validator := NewPaymentValidator(models.NewMoneyFromDecimal(decimal.NewFromInt(200000)))

	cases := []struct {
		amount string
		valid  bool
	}{
		{"-1", false},
		{"0", false},
		{"0.01", true},
		{"199999.99", true},
		{"200000", true},
		{"200000.01", false},
	}
	for _, tc := range cases {
		amount, err := models.NewMoneyFromString(tc.amount)
		if err != nil {
			t.Fatalf("parse %q failed: %v", tc.amount, err)
		}
		err = validator.ValidateAmount(amount)
		if tc.valid && err != nil {
			t.Fatalf("amount %s should be valid: %v", tc.amount, err)
		}
		if !tc.valid && !errors.Is(err, ErrInvalidAmount) {
			t.Fatalf("amount %s should be invalid, got %v", tc.amount, err)
		}
	}
}

func TestValidatorCreateOrder(t *testing.T) {
	validator := NewPaymentValidator(models.NewMoneyFromDecimal(decimal.NewFromInt(200000)))
	amount := models.NewMoneyFromDecimal(decimal.NewFromInt(100))

	// 金额在 VPA 之前校验
	badAmount, _ := models.NewMoneyFromString("-1")
	if err := validator.ValidateCreate(badAmount, "bad vpa", "desc", "paytm"); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("amount should be checked first, got %v", err)
	}
	// VPA 在描述之前校验
	if err := validator.ValidateCreate(amount, "bad vpa", "", "paytm"); !errors.Is(err, ErrInvalidVPA) {
		t.Fatalf("vpa should be checked before description, got %v", err)
	}
	if err := validator.ValidateCreate(amount, "merchant@upi", "  ", "paytm"); !errors.Is(err, ErrMissingDescription) {
		t.Fatalf("expected ErrMissingDescription, got %v", err)
	}
	if err := validator.ValidateCreate(amount, "merchant@upi", "desc", "venmo"); !errors.Is(err, ErrProviderNotSupported) {
		t.Fatalf("expected ErrProviderNotSupported, got %v", err)
	}
	if err := validator.ValidateCreate(amount, "merchant@upi", "desc", "paytm"); err != nil {
		t.Fatalf("valid request rejected: %v", err)
	}
}
