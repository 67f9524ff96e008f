package registry

import (
	"strings"

	"github.com/upi-next/internal/constants"
	"github.com/upi-next/internal/models"

	"github.com/shopspring/decimal"
)

// Provider UPI 提供方条目
type Provider struct {
	Code        string `json:"code"`
	DisplayName string `json:"display_name"`
}

// ProviderAccount 演示付款账户（只读夹具，支付流程不扣减余额）
type ProviderAccount struct {
	VPA               string       `json:"vpa"`
	AccountHolderName string       `json:"account_holder_name"`
	Provider          string       `json:"provider"`
	Balance           models.Money `json:"balance"`
	TxnLimit          models.Money `json:"txn_limit"`
	DailyLimit        models.Money `json:"daily_limit"`
}

// 进程级静态目录，启动时初始化一次，运行期不修改。
var (
	providers = []Provider{
		{Code: constants.ProviderPaytm, DisplayName: "Paytm"},
		{Code: constants.ProviderPhonepe, DisplayName: "PhonePe"},
		{Code: constants.ProviderGooglepay, DisplayName: "Google Pay"},
		{Code: constants.ProviderAmazonpay, DisplayName: "Amazon Pay"},
		{Code: constants.ProviderBhim, DisplayName: "BHIM"},
		{Code: constants.ProviderOther, DisplayName: "Other"},
	}

	providerCodes = buildProviderCodes()

	demoAccounts = []ProviderAccount{
		{
			VPA:               "user@paytm",
			AccountHolderName: "John Doe",
			Provider:          constants.ProviderPaytm,
			Balance:           models.NewMoneyFromDecimal(decimal.NewFromInt(25000)),
			TxnLimit:          models.NewMoneyFromDecimal(decimal.NewFromInt(50000)),
			DailyLimit:        models.NewMoneyFromDecimal(decimal.NewFromInt(100000)),
		},
		{
			VPA:               "customer@phonepe",
			AccountHolderName: "Jane Smith",
			Provider:          constants.ProviderPhonepe,
			Balance:           models.NewMoneyFromDecimal(decimal.NewFromInt(15000)),
			TxnLimit:          models.NewMoneyFromDecimal(decimal.NewFromInt(50000)),
			DailyLimit:        models.NewMoneyFromDecimal(decimal.NewFromInt(100000)),
		},
		{
			VPA:               "buyer@gpay",
			AccountHolderName: "Mike Johnson",
			Provider:          constants.ProviderGooglepay,
			Balance:           models.NewMoneyFromDecimal(decimal.NewFromInt(35000)),
			TxnLimit:          models.NewMoneyFromDecimal(decimal.NewFromInt(50000)),
			DailyLimit:        models.NewMoneyFromDecimal(decimal.NewFromInt(100000)),
		},
	}

	demoAccountIndex = buildDemoAccountIndex()
)

func buildProviderCodes() map[string]bool {
	codes := make(map[string]bool, len(providers))
	for _, p := range providers {
		codes[p.Code] = true
	}
	return codes
}

func buildDemoAccountIndex() map[string]*ProviderAccount {
	index := make(map[string]*ProviderAccount, len(demoAccounts))
	for i := range demoAccounts {
		index[demoAccounts[i].VPA] = &demoAccounts[i]
	}
	return index
}

// ListProviders 返回支持的提供方目录（固定顺序）
func ListProviders() []Provider {
	result := make([]Provider, len(providers))
	copy(result, providers)
	return result
}

// ListDemoAccounts 返回演示账户目录（固定顺序）
func ListDemoAccounts() []ProviderAccount {
	result := make([]ProviderAccount, len(demoAccounts))
	copy(result, demoAccounts)
	return result
}

// IsSupportedProvider 判断提供方是否属于支持集合
func IsSupportedProvider(code string) bool {
	return providerCodes[strings.ToLower(strings.TrimSpace(code))]
}

// FindDemoAccount 根据 VPA 查找演示账户，未命中返回 nil
func FindDemoAccount(vpa string) *ProviderAccount {
	account, ok := demoAccountIndex[strings.ToLower(strings.TrimSpace(vpa))]
	if !ok {
		return nil
	}
	return account
}
