package app

import (
	"errors"

	"github.com/saddle-ledger/internal/config"
	"github.com/saddle-ledger/internal/logger"
	"github.com/saddle-ledger/internal/provider"
	"github.com/saddle-ledger/internal/router"
	"github.com/saddle-ledger/internal/worker"
)

// BuildRunner 构建服务运行器，返回的 cleanup 用于释放容器资源
func BuildRunner(cfg *config.Config, mode string) (*Runner, func(), error) {
	if cfg == nil {
		return nil, nil, errors.New("config is nil")
	}
	if !isValidMode(mode) {
		return nil, nil, errors.New("unknown mode: " + mode)
	}

	container := provider.NewContainer(cfg)
	cleanup := container.Close

	var services []Service

	// 初始化 HTTP 服务
	if mode == ModeAll || mode == ModeAPI {
		engine := router.SetupRouter(cfg, container)
		services = append(services, NewHTTPService(cfg.Server.Addr(), engine))
	}

	// 初始化 Worker 服务；all 模式下队列未开启时 webhook 同步处理，无需消费者
	if mode == ModeWorker || (mode == ModeAll && cfg.Queue.Enabled) {
		consumer := worker.NewConsumer(container.IngestionService, container.AssignmentService)
		workerService, err := worker.NewService(&cfg.Queue, consumer)
		if err != nil {
			cleanup()
			return nil, nil, err
		}
		services = append(services, workerService)
	} else if mode == ModeAll {
		logger.Infow("app_worker_skipped", "reason", "queue disabled")
	}

	if len(services) == 0 {
		cleanup()
		return nil, nil, errors.New("no services initialized (check mode and config)")
	}

	return NewRunner(services...), cleanup, nil
}

// Run 应用启动入口
func Run(opts Options) error {
	opts = normalizeOptions(opts)
	if opts.Config == nil {
		return errors.New("config is nil")
	}

	runner, cleanup, err := BuildRunner(opts.Config, opts.Mode)
	if err != nil {
		return err
	}
	defer cleanup()

	opts.Logger.Infow("app_start",
		"addr", opts.Config.Server.Addr(),
		"mode", opts.Mode,
		"webhook_process_mode", opts.Config.Webhook.ProcessMode,
	)
	return RunWithOptions(runner, opts)
}
