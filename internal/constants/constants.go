package constants

// 支付状态常量（单向推进：created -> pending -> captured/failed）
const (
	PaymentStatusCreated  = "created"
	PaymentStatusPending  = "pending"
	PaymentStatusCaptured = "captured"
	PaymentStatusFailed   = "failed"
)

// PaymentStatusRank 支付状态推进顺序（两个终态同级）
var PaymentStatusRank = map[string]int{
	PaymentStatusCreated:  0,
	PaymentStatusPending:  1,
	PaymentStatusCaptured: 2,
	PaymentStatusFailed:   2,
}

// IsTerminalPaymentStatus 判断是否为终态
func IsTerminalPaymentStatus(status string) bool {
	return status == PaymentStatusCaptured || status == PaymentStatusFailed
}

// UPI 提供方常量
const (
	ProviderPaytm     = "paytm"
	ProviderPhonepe   = "phonepe"
	ProviderGooglepay = "googlepay"
	ProviderAmazonpay = "amazonpay"
	ProviderBhim      = "bhim"
	ProviderOther     = "other"
)

// 网关终态错误码常量
const (
	GatewayErrInsufficientBalance = "INSUFFICIENT_BALANCE"
	GatewayErrInvalidVPA          = "INVALID_VPA"
	GatewayErrTxnLimitExceeded    = "TRANSACTION_LIMIT_EXCEEDED"
	GatewayErrPaymentDeclined     = "PAYMENT_DECLINED"
	GatewayErrUPITimeout          = "UPI_TIMEOUT"
)

// GatewayErrDescriptions 错误码对应的展示文案（静态映射，调用方不解析自由文本）
var GatewayErrDescriptions = map[string]string{
	GatewayErrInsufficientBalance: "Insufficient balance in the account",
	GatewayErrInvalidVPA:          "VPA is invalid or not found",
	GatewayErrTxnLimitExceeded:    "Transaction amount exceeds the allowed limit",
	GatewayErrPaymentDeclined:     "Payment declined by bank",
	GatewayErrUPITimeout:          "UPI payment timed out",
}

// 记录类型常量（网关状态机同时驱动支付与退款）
const (
	IntentKindPayment = "payment"
	IntentKindRefund  = "refund"
)

// 异步任务名称常量
const (
	TaskPaymentAdvance = "payment:advance"
	TaskPaymentSettle  = "payment:settle"
)

// 队列名称常量
const (
	QueueDefault = "default"
)

// 默认币种
const (
	CurrencyINR = "INR"
)
