package provider

import (
	"github.com/upi-next/internal/cache"
	"github.com/upi-next/internal/config"
	"github.com/upi-next/internal/logger"
	"github.com/upi-next/internal/models"
	"github.com/upi-next/internal/queue"
	"github.com/upi-next/internal/repository"
	"github.com/upi-next/internal/service"
)

// Container 依赖注入容器
type Container struct {
	Config      *config.Config
	QueueClient *queue.Client

	// Repositories
	PaymentRepo repository.PaymentRepository
	RefundRepo  repository.RefundRepository

	// Services
	GatewayService     *service.GatewayService
	RefundService      *service.RefundService
	ReconcileService   *service.ReconcileService
	PaymentLinkService *service.PaymentLinkService
	WebhookNotifier    *service.WebhookNotifier
}

// NewContainer 初始化容器
func NewContainer(cfg *config.Config) *Container {
	// 初始化缓存
	if err := cache.InitRedis(&cfg.Redis); err != nil {
		logger.Warnw("provider_init_redis_failed", "error", err)
	}

	// 初始化队列客户端
	var queueClient *queue.Client
	if cfg.Queue.Enabled {
		qc, err := queue.NewClient(&cfg.Queue)
		if err != nil {
			logger.Errorw("provider_init_queue_client_failed", "error", err)
		} else {
			queueClient = qc
		}
	}

	c := &Container{
		Config:      cfg,
		QueueClient: queueClient,
	}

	// 1. 初始化 Repositories
	c.initRepositories()

	// 2. 初始化 Services
	c.initServices()

	return c
}

func (c *Container) initRepositories() {
	db := models.DB
	c.PaymentRepo = repository.NewPaymentRepository(db)
	c.RefundRepo = repository.NewRefundRepository(db)
}

func (c *Container) initServices() {
	c.WebhookNotifier = service.NewWebhookNotifier(c.Config.Gateway.WebhookURL, c.Config.Gateway.WebhookSecret)
	c.GatewayService = service.NewGatewayService(c.PaymentRepo, c.RefundRepo, c.QueueClient, c.WebhookNotifier, c.Config.Gateway)
	c.RefundService = service.NewRefundService(c.PaymentRepo, c.RefundRepo, c.GatewayService)
	c.ReconcileService = service.NewReconcileService(c.PaymentRepo, c.Config.Reconcile)
	c.PaymentLinkService = service.NewPaymentLinkService(c.GatewayService.Validator(), c.Config.Gateway)
}
