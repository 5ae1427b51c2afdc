package response

import (
	"net/http"
	"strconv"

	"github.com/saddle-ledger/internal/i18n"

	"github.com/gin-gonic/gin"
)

// requestIDKey 与 router 中间件写入的上下文键一致
const requestIDKey = "request_id"

// Response 统一响应结构，HTTP 状态固定 200，业务结果看 status_code
type Response struct {
	StatusCode int         `json:"status_code"`
	Msg        string      `json:"msg"`
	Data       interface{} `json:"data"`
	Pagination *Pagination `json:"pagination,omitempty"`
}

// Pagination 分页信息
type Pagination struct {
	Page      int   `json:"page"`
	PageSize  int   `json:"page_size"`
	Total     int64 `json:"total"`
	TotalPage int64 `json:"total_page"`
}

// NewPagination 计算总页数
func NewPagination(page, pageSize int, total int64) Pagination {
	p := Pagination{Page: page, PageSize: pageSize, Total: total}
	if pageSize > 0 {
		p.TotalPage = (total + int64(pageSize) - 1) / int64(pageSize)
	}
	return p
}

func Success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Response{StatusCode: CodeOK, Msg: "success", Data: data})
}

func SuccessWithPage(c *gin.Context, data interface{}, pagination Pagination) {
	c.JSON(http.StatusOK, Response{StatusCode: CodeOK, Msg: "success", Data: data, Pagination: &pagination})
}

// Error 输出业务错误；data 只携带 request_id 便于排查
func Error(c *gin.Context, code int, msg string) {
	var data interface{}
	if id := c.GetString(requestIDKey); id != "" {
		data = gin.H{requestIDKey: id}
	}
	c.JSON(http.StatusOK, Response{StatusCode: code, Msg: msg, Data: data})
}

// Fail 按请求语言翻译 AppError 的文案
func Fail(c *gin.Context, appErr *AppError) {
	if appErr == nil {
		appErr = WrapError(CodeInternal, "error.internal", nil)
	}
	Error(c, appErr.Code, i18n.T(i18n.ResolveLocale(c), appErr.MessageKey))
}

func Unauthorized(c *gin.Context, msg string) {
	Error(c, CodeUnauthorized, msg)
}

// Attachment 写下载响应头，正文由调用方流式写入；文件名总是加引号
func Attachment(c *gin.Context, filename, contentType string) {
	c.Header("Content-Type", contentType)
	c.Header("Content-Disposition", "attachment; filename="+strconv.Quote(filename))
	c.Header("Cache-Control", "no-store")
	c.Status(http.StatusOK)
}
