package webhook

import "github.com/saddle-ledger/internal/provider"

// Handler Shopify webhook 处理器
// 说明：webhook 使用真实 HTTP 状态码，非 2xx 时平台会重新投递。
type Handler struct {
	*provider.Container
}

// New 创建 webhook 处理器
func New(c *provider.Container) *Handler {
	return &Handler{Container: c}
}
