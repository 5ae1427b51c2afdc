package admin

import (
	"github.com/saddle-ledger/internal/constants"
	handlershared "github.com/saddle-ledger/internal/http/handlers/shared"
	"github.com/saddle-ledger/internal/http/response"

	"github.com/gin-gonic/gin"
)

// attachmentWriter 首次写入时才写下载响应头；此前出错仍可返回 JSON 错误信封
type attachmentWriter struct {
	c       *gin.Context
	started bool
}

func (w *attachmentWriter) Write(p []byte) (int, error) {
	if !w.started {
		response.Attachment(w.c, constants.SerialExportFilename, constants.SerialExportContentType)
		w.started = true
	}
	return w.c.Writer.Write(p)
}

// ExportSerials 流式导出全部序列号 CSV；每次请求重新查询
func (h *Handler) ExportSerials(c *gin.Context) {
	shop, ok := handlershared.GetShopDomain(c)
	if !ok {
		return
	}
	out := &attachmentWriter{c: c}
	rows, err := h.LedgerService.ExportAllSerials(c.Request.Context(), shop, out)
	if err != nil {
		if !out.started {
			respondServiceError(c, err)
			return
		}
		// 响应头已发出，只能截断正文
		handlershared.RequestLog(c).Errorw("serials_export_interrupted", "shop_domain", shop, "rows", rows, "error", err)
		_ = c.Error(err)
		c.Abort()
		return
	}
	handlershared.RequestLog(c).Infow("serials_exported", "shop_domain", shop, "rows", rows)
}
