package router

import (
	"github.com/saddle-ledger/internal/cache"
	"github.com/saddle-ledger/internal/config"
	adminhandlers "github.com/saddle-ledger/internal/http/handlers/admin"
	webhookhandlers "github.com/saddle-ledger/internal/http/handlers/webhook"
	"github.com/saddle-ledger/internal/logger"
	"github.com/saddle-ledger/internal/provider"

	"github.com/gin-gonic/gin"
)

// SetupRouter 初始化路由
func SetupRouter(cfg *config.Config, c *provider.Container) *gin.Engine {
	log := logger.L
	if log == nil {
		log = logger.Init(cfg.Server.Mode, cfg.Log.ToLoggerOptions())
	}
	r := gin.New()

	webhookHandler := webhookhandlers.New(c)
	adminHandler := adminhandlers.New(c)
	exportRule := RateLimitRule{
		Prefix:        cache.Key("rate", "export"),
		WindowSeconds: cfg.Export.RateLimitWindowSeconds,
		MaxRequests:   cfg.Export.RateLimitMax,
		MessageKey:    "error.export_too_many",
	}

	// 中间件
	r.Use(gin.Recovery())
	r.Use(RequestIDMiddleware())
	r.Use(LoggerMiddleware(log))

	// Shopify webhook：HMAC 签名校验在 handler 内完成，不走 CORS 与会话鉴权
	webhooks := r.Group("/webhooks")
	{
		webhooks.POST("/orders/create", webhookHandler.OrdersCreate)
		webhooks.POST("/orders/fulfilled", webhookHandler.OrdersFulfilled)
	}

	// 嵌入式后台接口
	admin := r.Group("/admin/api")
	admin.Use(CORSMiddleware(cfg.CORS))
	admin.Use(ShopifySessionMiddleware(c.SessionVerifier))
	{
		admin.GET("/orders", adminHandler.ListOrders)
		admin.GET("/orders/:id", adminHandler.GetOrder)
		admin.GET("/orders/:id/serials", adminHandler.ListOrderSerials)
		admin.POST("/orders/resync", adminHandler.ResyncOrders)
		admin.GET("/serials/export", RateLimitMiddleware(cache.Client(), exportRule, KeyByShop), adminHandler.ExportSerials)
	}

	// 健康检查
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	return r
}
