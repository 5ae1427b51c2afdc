package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"syscall"

	"github.com/saddle-ledger/internal/app"
	"github.com/saddle-ledger/internal/config"
	"github.com/saddle-ledger/internal/logger"
	"github.com/saddle-ledger/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
)

func main() {
	mode := flag.String("mode", app.ModeAll, "启动模式: all | api | worker")
	flag.Parse()

	fmt.Println("\033[1;36msaddle-ledger\033[0m \033[2mShopify 马鞍序列号台账\033[0m")

	if err := run(*mode); err != nil {
		logger.StdLogger().Fatalf("saddle-ledger: %v", err)
	}
}

func run(mode string) error {
	// .env 仅用于本地开发，不存在时忽略
	_ = godotenv.Load()

	cfg := config.Load()
	logger.Init(cfg.Server.Mode, cfg.Log.ToLoggerOptions())
	release := cfg.Server.Mode == gin.ReleaseMode

	if cfg.Shopify.APISecret == "" {
		if release {
			return errors.New("shopify.api_secret is required in release mode")
		}
		logger.Warnw("shopify_api_secret_missing", "effect", "webhook and session verification will reject every request")
	}

	if err := models.Setup(cfg.Database); err != nil {
		return fmt.Errorf("database: %w", err)
	}
	if release {
		gin.SetMode(gin.ReleaseMode)
	}

	return app.Run(app.Options{
		Config:  cfg,
		Mode:    mode,
		Logger:  logger.S(),
		Signals: []os.Signal{syscall.SIGINT, syscall.SIGTERM},
	})
}
