package router

import (
	"fmt"
	"strings"

	"github.com/upi-next/internal/cache"
	"github.com/upi-next/internal/config"
	publichandlers "github.com/upi-next/internal/http/handlers/public"
	"github.com/upi-next/internal/logger"
	"github.com/upi-next/internal/provider"

	"github.com/gin-gonic/gin"
)

// SetupRouter 初始化路由
func SetupRouter(cfg *config.Config, c *provider.Container) *gin.Engine {
	log := logger.L
	if log == nil {
		log = logger.Init(cfg.Server.Mode, cfg.Log.ToLoggerOptions())
	}
	r := gin.New()

	publicHandler := publichandlers.New(c)
	redisPrefix := strings.TrimSpace(cfg.Redis.Prefix)
	if redisPrefix == "" {
		redisPrefix = "upi"
	}
	redisClient := cache.Client()
	paymentCreateRule := RateLimitRule{
		Prefix:        fmt.Sprintf("%s:rate:payment_create", redisPrefix),
		WindowSeconds: cfg.Security.PaymentRateLimit.WindowSeconds,
		MaxRequests:   cfg.Security.PaymentRateLimit.MaxRequests,
	}

	// 中间件
	r.Use(gin.Recovery())
	r.Use(RequestIDMiddleware())
	r.Use(LoggerMiddleware(log))
	r.Use(CORSMiddleware(cfg.CORS))
	r.Use(IdentityMiddleware(cfg.UserJWT.SecretKey))

	// API 路由组
	apiV1 := r.Group("/api/v1")
	{
		// 目录接口
		apiV1.GET("/providers", publicHandler.ListProviders)
		apiV1.GET("/payment-methods", publicHandler.ListPaymentMethods)
		apiV1.GET("/demo-accounts", publicHandler.ListDemoAccounts)
		apiV1.GET("/demo-accounts/:vpa", publicHandler.GetDemoAccount)

		// 支付接口
		apiV1.POST("/payments", RateLimitMiddleware(redisClient, paymentCreateRule, KeyByIP), publicHandler.CreatePayment)
		apiV1.GET("/payments", publicHandler.ListPayments)
		apiV1.GET("/payments/:payment_no", publicHandler.GetPayment)
		apiV1.GET("/payments/:payment_no/await", publicHandler.AwaitPayment)

		// 退款接口
		apiV1.POST("/payments/:payment_no/refunds", publicHandler.CreateRefund)
		apiV1.GET("/payments/:payment_no/refunds", publicHandler.ListRefunds)
		apiV1.GET("/refunds/:refund_no", publicHandler.GetRefund)

		// 收款链接接口
		apiV1.POST("/payment-links", publicHandler.CreatePaymentLink)
		apiV1.GET("/payment-links/:link_id", publicHandler.ResolvePaymentLink)

		// 本地联调：终态通知回显
		apiV1.POST("/webhook-echo", publicHandler.WebhookEcho)
	}

	// 健康检查
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	return r
}
