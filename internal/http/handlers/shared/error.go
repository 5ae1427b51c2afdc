package shared

import (
	"errors"

	"github.com/saddle-ledger/internal/http/response"
	"github.com/saddle-ledger/internal/logger"
	"github.com/saddle-ledger/internal/service"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// RequestLog 提供携带 request_id 的日志实例。
func RequestLog(c *gin.Context) *zap.SugaredLogger {
	if c == nil {
		return logger.S()
	}
	if id := c.GetString("request_id"); id != "" {
		return logger.S().With("request_id", id)
	}
	return logger.S()
}

// RespondError 返回国际化错误响应，并在有原始错误时记录日志。
func RespondError(c *gin.Context, code int, key string, err error) {
	appErr := response.WrapError(code, key, err)
	if err != nil {
		RequestLog(c).Errorw("handler_error",
			"code", appErr.Code,
			"message_key", appErr.MessageKey,
			"error", err,
		)
	}
	response.Fail(c, appErr)
}

// MapServiceError 将服务层错误映射为业务码与文案 key。
func MapServiceError(err error) *response.AppError {
	switch {
	case errors.Is(err, service.ErrOrderNotFound):
		return response.WrapError(response.CodeNotFound, "error.order_not_found", err)
	case errors.Is(err, service.ErrShopDomainRequired):
		return response.WrapError(response.CodeBadRequest, "error.shop_required", err)
	case errors.Is(err, service.ErrMalformedEvent):
		return response.WrapError(response.CodeBadRequest, "error.bad_request", err)
	case errors.Is(err, service.ErrAssignmentBusy):
		return response.WrapError(response.CodeConflict, "error.assignment_busy", err)
	case errors.Is(err, service.ErrResyncUnavailable):
		return response.WrapError(response.CodeServiceUnavailable, "error.resync_unavailable", err)
	case errors.Is(err, service.ErrResyncFailed):
		return response.WrapError(response.CodeInternal, "error.resync_failed", err)
	default:
		return response.WrapError(response.CodeInternal, "error.internal", err)
	}
}

// RespondServiceError 输出服务层错误；仅内部错误记录 error 级日志。
func RespondServiceError(c *gin.Context, err error) {
	appErr := MapServiceError(err)
	if appErr.Code >= response.CodeInternal {
		RequestLog(c).Errorw("handler_service_error", "code", appErr.Code, "error", err)
	} else {
		RequestLog(c).Debugw("handler_service_rejected", "code", appErr.Code, "error", err)
	}
	response.Fail(c, appErr)
}
