package queue

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/saddle-ledger/internal/config"
	"github.com/saddle-ledger/internal/constants"

	"github.com/hibiken/asynq"
)

const (
	// WebhookQueue webhook 事件队列
	WebhookQueue = constants.QueueWebhooks

	defaultMaxRetry  = 10
	defaultRetention = 24 * time.Hour
)

// ErrQueueDisabled 队列未启用
var ErrQueueDisabled = errors.New("queue disabled")

type enqueuer interface {
	Enqueue(task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
	Close() error
}

// Client 队列客户端封装
type Client struct {
	client   enqueuer
	enabled  bool
	maxRetry int
}

// NewClient 创建队列客户端
func NewClient(cfg *config.QueueConfig) (*Client, error) {
	if cfg == nil || !cfg.Enabled {
		return &Client{enabled: false}, nil
	}
	maxRetry := cfg.MaxRetry
	if maxRetry <= 0 {
		maxRetry = defaultMaxRetry
	}
	return &Client{
		client:   asynq.NewClient(buildRedisOpt(cfg)),
		enabled:  true,
		maxRetry: maxRetry,
	}, nil
}

// Enabled 判断是否启用
func (c *Client) Enabled() bool {
	return c != nil && c.enabled && c.client != nil
}

// Close 关闭客户端
func (c *Client) Close() error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Close()
}

// EnqueueOrderCreated 推送 orders/create 处理任务
func (c *Client) EnqueueOrderCreated(payload OrderCreatedPayload) (bool, error) {
	if !c.Enabled() {
		return false, ErrQueueDisabled
	}
	task, err := NewOrderCreatedTask(payload)
	if err != nil {
		return false, err
	}
	return c.enqueue(task, payload.WebhookID)
}

// EnqueueOrderFulfilled 推送 orders/fulfilled 处理任务
func (c *Client) EnqueueOrderFulfilled(payload OrderFulfilledPayload) (bool, error) {
	if !c.Enabled() {
		return false, ErrQueueDisabled
	}
	task, err := NewOrderFulfilledTask(payload)
	if err != nil {
		return false, err
	}
	return c.enqueue(task, payload.WebhookID)
}

// enqueue 以 webhook ID 作为任务 ID，重复投递返回 false
func (c *Client) enqueue(task *asynq.Task, webhookID string) (bool, error) {
	options := []asynq.Option{
		asynq.Queue(WebhookQueue),
		asynq.MaxRetry(c.maxRetry),
		asynq.Retention(defaultRetention),
	}
	if id := strings.TrimSpace(webhookID); id != "" {
		options = append(options, asynq.TaskID(task.Type()+":"+id))
	}
	_, err := c.client.Enqueue(task, options...)
	if errors.Is(err, asynq.ErrTaskIDConflict) || errors.Is(err, asynq.ErrDuplicateTask) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// BuildServerConfig 生成队列服务配置
func BuildServerConfig(cfg *config.QueueConfig) (asynq.RedisClientOpt, asynq.Config) {
	opt := buildRedisOpt(cfg)
	concurrency := 10
	if cfg != nil && cfg.Concurrency > 0 {
		concurrency = cfg.Concurrency
	}
	queues := map[string]int{WebhookQueue: 10, constants.QueueDefault: 5}
	if cfg != nil && len(cfg.Queues) > 0 {
		queues = cfg.Queues
	}
	return opt, asynq.Config{
		Concurrency:    concurrency,
		Queues:         queues,
		RetryDelayFunc: retryDelay,
	}
}

// retryDelay 指数退避，上限 10 分钟
func retryDelay(n int, _ error, _ *asynq.Task) time.Duration {
	if n < 0 {
		n = 0
	}
	if n > 10 {
		n = 10
	}
	delay := time.Duration(1<<uint(n)) * 5 * time.Second
	if delay > 10*time.Minute {
		delay = 10 * time.Minute
	}
	return delay
}

func buildRedisOpt(cfg *config.QueueConfig) asynq.RedisClientOpt {
	host := "127.0.0.1"
	port := 6379
	password := ""
	db := 0
	if cfg != nil {
		if strings.TrimSpace(cfg.Host) != "" {
			host = strings.TrimSpace(cfg.Host)
		}
		if cfg.Port > 0 {
			port = cfg.Port
		}
		password = cfg.Password
		db = cfg.DB
	}
	return asynq.RedisClientOpt{
		Addr:     fmt.Sprintf("%s:%d", host, port),
		Password: password,
		DB:       db,
	}
}
