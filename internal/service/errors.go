package service

import "errors"

var (
	// ErrMalformedEvent 事件缺少必填字段或字段非法，确认后丢弃，不重试
	ErrMalformedEvent = errors.New("malformed event")
	// ErrOrderNotFound 订单不存在（履约事件早于创建事件或从未入库）
	ErrOrderNotFound = errors.New("order not found")
	// ErrPersistence 存储失败，需要由网关重投
	ErrPersistence = errors.New("persistence failure")
	// ErrSerialAttemptsExhausted 序列号冲突重试次数耗尽，按存储失败处理
	ErrSerialAttemptsExhausted = errors.New("serial generation attempts exhausted")
	// ErrAssignmentBusy 同一订单正在分配中，等待锁超时
	ErrAssignmentBusy = errors.New("serial assignment in progress")
	// ErrShopDomainRequired 缺少店铺域名
	ErrShopDomainRequired = errors.New("shop domain required")
	// ErrResyncUnavailable 未配置 Shopify Admin API，无法同步
	ErrResyncUnavailable = errors.New("shopify admin api not configured")
	// ErrResyncFailed 从 Shopify 拉取订单失败
	ErrResyncFailed = errors.New("shopify resync failed")
)

// IsRetryable 事件处理失败后是否应让网关重投
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, ErrPersistence) || errors.Is(err, ErrAssignmentBusy)
}
