package provider

import (
	"time"

	"github.com/saddle-ledger/internal/cache"
	"github.com/saddle-ledger/internal/config"
	"github.com/saddle-ledger/internal/eventbus"
	"github.com/saddle-ledger/internal/logger"
	"github.com/saddle-ledger/internal/models"
	"github.com/saddle-ledger/internal/queue"
	"github.com/saddle-ledger/internal/repository"
	"github.com/saddle-ledger/internal/service"
	"github.com/saddle-ledger/internal/shopify"

	"gorm.io/gorm"
)

// Container 依赖注入容器
type Container struct {
	Config      *config.Config
	DB          *gorm.DB
	QueueClient *queue.Client
	Publisher   eventbus.Publisher
	Locker      *cache.OrderLocker

	// Shopify
	ShopifyClient   *shopify.Client
	SessionVerifier *shopify.SessionVerifier

	// Repositories
	OrderRepo  repository.OrderRepository
	SerialRepo repository.SerialNumberRepository

	// Services
	IngestionService  *service.IngestionService
	AssignmentService *service.AssignmentService
	LedgerService     *service.LedgerService
	ResyncService     *service.ResyncService
}

// NewContainer 初始化容器（连接 Redis、队列、Kafka）
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

	c := NewContainerWithDB(cfg, models.DB, eventbus.New(cfg.Kafka))
	c.QueueClient = queueClient
	return c
}

// NewContainerWithDB 基于给定连接组装仓储与服务，不触碰外部中间件
func NewContainerWithDB(cfg *config.Config, db *gorm.DB, publisher eventbus.Publisher) *Container {
	if publisher == nil {
		publisher = eventbus.NopPublisher{}
	}
	c := &Container{
		Config:    cfg,
		DB:        db,
		Publisher: publisher,
		Locker:    cache.NewOrderLocker(seconds(cfg.Serial.LockTTLSeconds)),
	}

	// 1. 初始化 Repositories
	c.initRepositories()

	// 2. 初始化 Services
	c.initServices()

	return c
}

// Close 释放容器持有的外部资源
func (c *Container) Close() {
	if c == nil {
		return
	}
	if c.QueueClient != nil {
		if err := c.QueueClient.Close(); err != nil {
			logger.Warnw("provider_close_queue_client_failed", "error", err)
		}
	}
	if c.Publisher != nil {
		if err := c.Publisher.Close(); err != nil {
			logger.Warnw("provider_close_publisher_failed", "error", err)
		}
	}
	if err := cache.Close(); err != nil {
		logger.Warnw("provider_close_redis_failed", "error", err)
	}
}

func (c *Container) initRepositories() {
	c.OrderRepo = repository.NewOrderRepository(c.DB)
	c.SerialRepo = repository.NewSerialNumberRepository(c.DB)
}

func (c *Container) initServices() {
	shopifyCfg := c.Config.Shopify
	c.ShopifyClient = shopify.NewClient(shopify.Config{
		ShopDomain:  shopifyCfg.ShopDomain,
		APIVersion:  shopifyCfg.APIVersion,
		AccessToken: shopifyCfg.AccessToken,
		Timeout:     seconds(shopifyCfg.TimeoutSeconds),
		MaxRetries:  shopifyCfg.MaxRetries,
	}, nil)
	c.SessionVerifier = shopify.NewSessionVerifier(shopifyCfg.APIKey, shopifyCfg.APISecret)

	c.IngestionService = service.NewIngestionService(c.DB, c.OrderRepo)
	c.AssignmentService = service.NewAssignmentService(
		c.DB,
		c.OrderRepo,
		c.SerialRepo,
		service.NewRandomSerialGenerator(),
		c.Locker,
		c.Publisher,
		service.AssignmentOptions{
			MaxAttempts: c.Config.Serial.MaxAttempts,
			LockWait:    seconds(c.Config.Serial.LockWaitSeconds),
		},
	)
	c.LedgerService = service.NewLedgerService(c.DB, c.OrderRepo, c.SerialRepo)
	c.ResyncService = service.NewResyncService(c.ShopifyClient, c.IngestionService, c.AssignmentService, service.ResyncOptions{
		SaddleTag: shopifyCfg.SaddleTag,
		PageSize:  shopifyCfg.PageSize,
	})
}

func seconds(n int) time.Duration {
	if n <= 0 {
		return 0
	}
	return time.Duration(n) * time.Second
}
