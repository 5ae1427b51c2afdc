package constants

// 订单履约状态常量
const (
	FulfillmentStatusUnfulfilled = "UNFULFILLED"
	FulfillmentStatusFulfilled   = "FULFILLED"
)

// 序列号状态常量
const (
	SerialStatusPending  = "PENDING"
	SerialStatusAssigned = "ASSIGNED"
)

// Webhook 主题（Shopify X-Shopify-Topic）
const (
	WebhookTopicOrdersCreate    = "orders/create"
	WebhookTopicOrdersFulfilled = "orders/fulfilled"
)

// 内部事件名
const (
	EventOrderCreated    = "order.created"
	EventOrderFulfilled  = "order.fulfilled"
	EventSerialsAssigned = "serials.assigned"
)

// 序列号导出
const (
	SerialExportFilename    = "saddle-serial-numbers.csv"
	SerialExportContentType = "text/csv; charset=utf-8"
)

// SaddleKeyword 判定马鞍商品的关键字（大小写不敏感）
const SaddleKeyword = "saddle"

// Webhook 处理模式
const (
	WebhookProcessModeSync  = "sync"
	WebhookProcessModeQueue = "queue"
)

// 异步任务
const (
	QueueDefault  = "default"
	QueueWebhooks = "webhooks"

	TaskWebhookOrderCreated   = "webhook:order_created"
	TaskWebhookOrderFulfilled = "webhook:order_fulfilled"
)
