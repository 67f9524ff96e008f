package service

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/upi-next/internal/cache"
	"github.com/upi-next/internal/config"
	"github.com/upi-next/internal/constants"
	"github.com/upi-next/internal/logger"
	"github.com/upi-next/internal/models"
)

// PaymentLink 可分享的收款链接，存入 Redis 并按 TTL 自动失效
type PaymentLink struct {
	LinkID      string       `json:"link_id"`
	VPA         string       `json:"vpa"`
	Amount      models.Money `json:"amount"`
	Currency    string       `json:"currency"`
	Description string       `json:"description"`
	UPIUri      string       `json:"upi_uri"`
	CreatedAt   time.Time    `json:"created_at"`
	ExpiresAt   time.Time    `json:"expires_at"`
}

// PaymentLinkService 收款链接管理
type PaymentLinkService struct {
	validator *PaymentValidator
	ttl       time.Duration
}

// NewPaymentLinkService 创建收款链接服务
func NewPaymentLinkService(validator *PaymentValidator, cfg config.GatewayConfig) *PaymentLinkService {
	ttl := time.Duration(cfg.LinkExpireSecond) * time.Second
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &PaymentLinkService{validator: validator, ttl: ttl}
}

// CreateLink 生成收款链接。
// 与支付创建走同一套校验；缓存不可用时拒绝创建（链接必须能过期）。
func (s *PaymentLinkService) CreateLink(ctx context.Context, vpa string, amount models.Money, description string) (*PaymentLink, error) {
	if !cache.Enabled() {
		return nil, ErrCacheUnavailable
	}
	if err := s.validator.ValidateAmount(amount); err != nil {
		return nil, err
	}
	if err := ValidateVPA(vpa); err != nil {
		return nil, err
	}
	if strings.TrimSpace(description) == "" {
		return nil, ErrMissingDescription
	}

	now := time.Now()
	link := &PaymentLink{
		LinkID:      fmt.Sprintf("plink_%s_%s", now.Format("20060102150405"), randNumeric(6)),
		VPA:         strings.ToLower(strings.TrimSpace(vpa)),
		Amount:      amount,
		Currency:    constants.CurrencyINR,
		Description: strings.TrimSpace(description),
		CreatedAt:   now,
		ExpiresAt:   now.Add(s.ttl),
	}
	link.UPIUri = buildUPIUri(link.VPA, link.Amount, link.Description)

	if err := cache.SetJSON(ctx, linkCacheKey(link.LinkID), link, s.ttl); err != nil {
		return nil, err
	}

	logger.Infow("payment_link_created", "link_id", link.LinkID, "amount", link.Amount.String())
	return link, nil
}

// ResolveLink 解析收款链接；过期或不存在返回 ErrPaymentLinkNotFound
func (s *PaymentLinkService) ResolveLink(ctx context.Context, linkID string) (*PaymentLink, error) {
	if !cache.Enabled() {
		return nil, ErrCacheUnavailable
	}
	linkID = strings.TrimSpace(linkID)
	if linkID == "" {
		return nil, ErrPaymentLinkNotFound
	}
	var link PaymentLink
	found, err := cache.GetJSON(ctx, linkCacheKey(linkID), &link)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, ErrPaymentLinkNotFound
	}
	return &link, nil
}

func linkCacheKey(linkID string) string {
	return "payment_link:" + linkID
}

// buildUPIUri 拼接标准 upi://pay 收款串
func buildUPIUri(vpa string, amount models.Money, description string) string {
	query := url.Values{}
	query.Set("pa", vpa)
	query.Set("am", amount.String())
	query.Set("cu", constants.CurrencyINR)
	query.Set("tn", description)
	return "upi://pay?" + query.Encode()
}
