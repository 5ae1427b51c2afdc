package app

import (
	"os"
	"time"

	"github.com/saddle-ledger/internal/config"
	"github.com/saddle-ledger/internal/logger"

	"go.uber.org/zap"
)

// 启动模式：all 同时运行 HTTP 与 worker；api / worker 用于拆分部署
const (
	ModeAll    = "all"
	ModeAPI    = "api"
	ModeWorker = "worker"
)

const defaultShutdownTimeout = 10 * time.Second

func isValidMode(mode string) bool {
	return mode == ModeAll || mode == ModeAPI || mode == ModeWorker
}

// Options 启动选项
type Options struct {
	Config          *config.Config
	Mode            string
	Logger          *zap.SugaredLogger
	Signals         []os.Signal   // 为空时不监听信号
	ShutdownTimeout time.Duration // 停止全部服务的总时限
}

func normalizeOptions(opts Options) Options {
	if opts.Mode == "" {
		opts.Mode = ModeAll
	}
	if opts.Logger == nil {
		opts.Logger = logger.S()
	}
	if opts.ShutdownTimeout <= 0 {
		opts.ShutdownTimeout = defaultShutdownTimeout
	}
	return opts
}
