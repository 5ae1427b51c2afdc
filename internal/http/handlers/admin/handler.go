package admin

import (
	"strconv"
	"strings"

	handlershared "github.com/saddle-ledger/internal/http/handlers/shared"
	"github.com/saddle-ledger/internal/http/response"
	"github.com/saddle-ledger/internal/provider"

	"github.com/gin-gonic/gin"
)

// Handler 嵌入式后台接口处理器入口
// 说明：所有接口依赖会话中间件写入的店铺域名，数据按店铺隔离。
type Handler struct {
	*provider.Container
}

// New 创建后台处理器
func New(c *provider.Container) *Handler {
	return &Handler{Container: c}
}

func respondError(c *gin.Context, code int, key string, err error) {
	handlershared.RespondError(c, code, key, err)
}

func respondServiceError(c *gin.Context, err error) {
	handlershared.RespondServiceError(c, err)
}

func parseIDParam(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(strings.TrimSpace(c.Param("id")), 10, 64)
	if err != nil || id == 0 {
		respondError(c, response.CodeBadRequest, "error.bad_request", nil)
		return 0, false
	}
	return uint(id), true
}
