package queue

import (
	"encoding/json"
	"fmt"

	"github.com/saddle-ledger/internal/constants"
	"github.com/saddle-ledger/internal/service"

	"github.com/hibiken/asynq"
)

const (
	// TaskOrderCreated orders/create 入库任务
	TaskOrderCreated = constants.TaskWebhookOrderCreated
	// TaskOrderFulfilled orders/fulfilled 序列号分配任务
	TaskOrderFulfilled = constants.TaskWebhookOrderFulfilled
)

// OrderCreatedPayload 入库任务载荷
type OrderCreatedPayload struct {
	WebhookID string                    `json:"webhook_id"`
	Event     service.OrderCreatedEvent `json:"event"`
}

// OrderFulfilledPayload 分配任务载荷
type OrderFulfilledPayload struct {
	WebhookID string                      `json:"webhook_id"`
	Event     service.OrderFulfilledEvent `json:"event"`
}

// NewOrderCreatedTask 创建入库任务
func NewOrderCreatedTask(payload OrderCreatedPayload) (*asynq.Task, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskOrderCreated, body), nil
}

// NewOrderFulfilledTask 创建分配任务
func NewOrderFulfilledTask(payload OrderFulfilledPayload) (*asynq.Task, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskOrderFulfilled, body), nil
}

// DecodeOrderCreated 解析入库任务
func DecodeOrderCreated(task *asynq.Task) (OrderCreatedPayload, error) {
	var payload OrderCreatedPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return payload, fmt.Errorf("%w: decode %s payload: %v", service.ErrMalformedEvent, task.Type(), err)
	}
	return payload, nil
}

// DecodeOrderFulfilled 解析分配任务
func DecodeOrderFulfilled(task *asynq.Task) (OrderFulfilledPayload, error) {
	var payload OrderFulfilledPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return payload, fmt.Errorf("%w: decode %s payload: %v", service.ErrMalformedEvent, task.Type(), err)
	}
	return payload, nil
}
