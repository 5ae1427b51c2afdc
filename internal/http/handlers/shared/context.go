package shared

import (
	"strings"

	"github.com/saddle-ledger/internal/http/response"

	"github.com/gin-gonic/gin"
)

// ShopDomainContextKey 会话中间件写入的店铺域名
const ShopDomainContextKey = "shop_domain"

// GetShopDomain 读取当前会话店铺，缺失时直接返回 401。
func GetShopDomain(c *gin.Context) (string, bool) {
	shop := strings.TrimSpace(c.GetString(ShopDomainContextKey))
	if shop == "" {
		RespondError(c, response.CodeUnauthorized, "error.unauthorized", nil)
		return "", false
	}
	return shop, true
}
