package worker

import (
	"context"
	"errors"
	"fmt"

	"github.com/saddle-ledger/internal/logger"
	"github.com/saddle-ledger/internal/queue"
	"github.com/saddle-ledger/internal/service"

	"github.com/hibiken/asynq"
)

// OrderIngester 订单入库
type OrderIngester interface {
	Ingest(ctx context.Context, event service.OrderCreatedEvent) (*service.IngestResult, error)
}

// SerialAssigner 序列号分配
type SerialAssigner interface {
	Assign(ctx context.Context, event service.OrderFulfilledEvent) (*service.AssignmentResult, error)
}

// Consumer 异步任务消费者
type Consumer struct {
	ingestion OrderIngester
	assigner  SerialAssigner
}

// NewConsumer 创建消费者
func NewConsumer(ingestion OrderIngester, assigner SerialAssigner) *Consumer {
	return &Consumer{
		ingestion: ingestion,
		assigner:  assigner,
	}
}

// Register 注册消费者
func (c *Consumer) Register(mux *asynq.ServeMux) {
	if c == nil || mux == nil {
		logger.Debugw("worker_register_skip_nil", "consumer_nil", c == nil, "mux_nil", mux == nil)
		return
	}
	mux.HandleFunc(queue.TaskOrderCreated, c.handleOrderCreated)
	mux.HandleFunc(queue.TaskOrderFulfilled, c.handleOrderFulfilled)
}

func (c *Consumer) handleOrderCreated(ctx context.Context, task *asynq.Task) error {
	payload, err := queue.DecodeOrderCreated(task)
	if err != nil {
		logger.Warnw("worker_order_created_unmarshal_failed", "error", err)
		return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
	}
	ctx = logger.WithFields(ctx, "webhook_id", payload.WebhookID, "task", task.Type())
	result, err := c.ingestion.Ingest(ctx, payload.Event)
	if err != nil {
		return c.classify(ctx, "worker_order_created", err)
	}
	logger.FromContext(ctx).Debugw("worker_order_created_done",
		"order_id", result.Order.ID,
		"created", result.Created,
	)
	return nil
}

func (c *Consumer) handleOrderFulfilled(ctx context.Context, task *asynq.Task) error {
	payload, err := queue.DecodeOrderFulfilled(task)
	if err != nil {
		logger.Warnw("worker_order_fulfilled_unmarshal_failed", "error", err)
		return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
	}
	ctx = logger.WithFields(ctx, "webhook_id", payload.WebhookID, "task", task.Type())
	result, err := c.assigner.Assign(ctx, payload.Event)
	if err != nil {
		return c.classify(ctx, "worker_order_fulfilled", err)
	}
	logger.FromContext(ctx).Debugw("worker_order_fulfilled_done",
		"order_id", result.Order.ID,
		"status", result.Status,
		"serials", len(result.Serials),
	)
	return nil
}

// classify 订单不存在直接确认；格式错误不再重试；其余交给队列重试
func (c *Consumer) classify(ctx context.Context, event string, err error) error {
	log := logger.FromContext(ctx)
	switch {
	case errors.Is(err, service.ErrOrderNotFound):
		log.Warnw(event+"_skip_order_not_found", "error", err)
		return nil
	case errors.Is(err, service.ErrMalformedEvent):
		log.Warnw(event+"_skip_malformed", "error", err)
		return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
	default:
		log.Errorw(event+"_failed", "error", err)
		return err
	}
}
