package worker

import (
	"context"
	"errors"

	"github.com/saddle-ledger/internal/config"
	"github.com/saddle-ledger/internal/logger"
	"github.com/saddle-ledger/internal/queue"

	"github.com/hibiken/asynq"
)

// Service 消费 webhook 任务的 asynq 服务
type Service struct {
	server *asynq.Server
	mux    *asynq.ServeMux
}

// NewService 创建 worker；队列未启用时返回错误
func NewService(cfg *config.QueueConfig, consumer *Consumer) (*Service, error) {
	if cfg == nil || !cfg.Enabled {
		return nil, queue.ErrQueueDisabled
	}
	if consumer == nil {
		return nil, errors.New("consumer is nil")
	}
	opt, serverCfg := queue.BuildServerConfig(cfg)
	serverCfg.Logger = logger.S().Named("asynq")
	serverCfg.ErrorHandler = asynq.ErrorHandlerFunc(reportTaskFailure)

	mux := asynq.NewServeMux()
	consumer.Register(mux)
	return &Service{
		server: asynq.NewServer(opt, serverCfg),
		mux:    mux,
	}, nil
}

// reportTaskFailure 记录失败任务；重试耗尽时升级为 error，需要人工补偿（resync）
func reportTaskFailure(ctx context.Context, task *asynq.Task, err error) {
	retried, _ := asynq.GetRetryCount(ctx)
	maxRetry, _ := asynq.GetMaxRetry(ctx)
	log := logger.FromContext(ctx).With(
		"task", task.Type(),
		"retried", retried,
		"max_retry", maxRetry,
		"error", err,
	)
	if errors.Is(err, asynq.SkipRetry) || retried >= maxRetry {
		log.Errorw("worker_task_dead")
		return
	}
	log.Warnw("worker_task_retry_scheduled")
}

// Name 服务名称
func (s *Service) Name() string {
	return "worker"
}

// Start 阻塞运行直到 Stop
func (s *Service) Start(_ context.Context) error {
	if s == nil || s.server == nil {
		return errors.New("worker not initialized")
	}
	return s.server.Run(s.mux)
}

// Stop 等待进行中的任务结束后退出
func (s *Service) Stop(_ context.Context) error {
	if s == nil || s.server == nil {
		return nil
	}
	s.server.Shutdown()
	return nil
}
