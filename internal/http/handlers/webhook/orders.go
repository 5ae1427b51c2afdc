package webhook

import (
	"errors"

	"github.com/saddle-ledger/internal/constants"
	"github.com/saddle-ledger/internal/logger"
	"github.com/saddle-ledger/internal/queue"
	"github.com/saddle-ledger/internal/service"

	"github.com/gin-gonic/gin"
)

// OrdersCreate orders/create：订单入库
func (h *Handler) OrdersCreate(c *gin.Context) {
	d, ok := h.receive(c, constants.WebhookTopicOrdersCreate)
	if !ok {
		return
	}
	defer h.settle(d)
	event := service.OrderCreatedEventFromWebhook(d.Shop, d.Payload)
	log := logger.FromContext(d.ctx)

	if h.queueMode() {
		enqueued, err := h.QueueClient.EnqueueOrderCreated(queue.OrderCreatedPayload{WebhookID: d.ID, Event: event})
		if err != nil {
			h.fail(c, d, err)
			return
		}
		log.Infow("webhook_order_created_enqueued", "enqueued", enqueued)
		h.ack(c, d, outcomeQueued)
		return
	}

	result, err := h.IngestionService.Ingest(d.ctx, event)
	switch {
	case err == nil && result.Created:
		h.ack(c, d, outcomeProcessed)
	case err == nil:
		h.ack(c, d, outcomeAlreadyProcessed)
	case errors.Is(err, service.ErrMalformedEvent):
		log.Warnw("webhook_order_created_malformed", "error", err)
		h.ack(c, d, outcomeMalformed)
	default:
		h.fail(c, d, err)
	}
}

// OrdersFulfilled orders/fulfilled：分配序列号
func (h *Handler) OrdersFulfilled(c *gin.Context) {
	d, ok := h.receive(c, constants.WebhookTopicOrdersFulfilled)
	if !ok {
		return
	}
	defer h.settle(d)
	event := service.OrderFulfilledEventFromWebhook(d.Shop, d.Payload)
	log := logger.FromContext(d.ctx)

	if h.queueMode() {
		enqueued, err := h.QueueClient.EnqueueOrderFulfilled(queue.OrderFulfilledPayload{WebhookID: d.ID, Event: event})
		if err != nil {
			h.fail(c, d, err)
			return
		}
		log.Infow("webhook_order_fulfilled_enqueued", "enqueued", enqueued)
		h.ack(c, d, outcomeQueued)
		return
	}

	result, err := h.AssignmentService.Assign(d.ctx, event)
	switch {
	case err == nil && result.Status == service.AssignmentStatusAlreadyProcessed:
		h.ack(c, d, outcomeAlreadyProcessed)
	case err == nil:
		h.ack(c, d, outcomeProcessed)
	case errors.Is(err, service.ErrOrderNotFound):
		// 订单尚未入库，确认投递不再重试
		h.ack(c, d, outcomeOrderNotFound)
	case errors.Is(err, service.ErrMalformedEvent):
		log.Warnw("webhook_order_fulfilled_malformed", "error", err)
		h.ack(c, d, outcomeMalformed)
	default:
		h.fail(c, d, err)
	}
}
