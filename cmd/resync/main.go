// resync 从 Shopify 回填带马鞍标签的订单，已履约订单同时补齐序列号。
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/saddle-ledger/internal/config"
	"github.com/saddle-ledger/internal/logger"
	"github.com/saddle-ledger/internal/models"
	"github.com/saddle-ledger/internal/provider"

	"github.com/joho/godotenv"
)

func main() {
	shop := flag.String("shop", "", "店铺域名，默认使用 shopify.shop_domain")
	flag.Parse()

	if err := run(*shop); err != nil {
		fmt.Fprintln(os.Stderr, "resync:", err)
		os.Exit(1)
	}
}

func run(shop string) error {
	_ = godotenv.Load()

	cfg := config.Load()
	logger.Init(cfg.Server.Mode, cfg.Log.ToLoggerOptions())
	if err := models.Setup(cfg.Database); err != nil {
		return err
	}

	container := provider.NewContainer(cfg)
	defer container.Close()

	if shop == "" {
		shop = cfg.Shopify.ShopDomain
	}
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	result, err := container.ResyncService.Resync(ctx, shop)
	if err != nil {
		return err
	}
	fmt.Printf("shop=%s fetched=%d created=%d existing=%d skipped=%d serials=%d\n",
		result.ShopDomain,
		result.Fetched,
		result.Created,
		result.Existing,
		result.Skipped,
		result.SerialsAssigned,
	)
	return nil
}
