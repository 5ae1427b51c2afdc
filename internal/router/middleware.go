package router

import (
	"strings"
	"time"

	handlershared "github.com/saddle-ledger/internal/http/handlers/shared"
	"github.com/saddle-ledger/internal/http/response"
	"github.com/saddle-ledger/internal/i18n"
	"github.com/saddle-ledger/internal/logger"
	"github.com/saddle-ledger/internal/shopify"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	requestIDKey    = "request_id"
	requestIDHeader = "X-Request-ID"
	maxRequestIDLen = 128
)

// RequestIDMiddleware 沿用调用方的 X-Request-ID（过长则重新生成），
// 同时写入 gin 上下文与请求 context 的日志字段。
func RequestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := strings.TrimSpace(c.GetHeader(requestIDHeader))
		if id == "" || len(id) > maxRequestIDLen {
			id = uuid.NewString()
		}
		c.Set(requestIDKey, id)
		c.Header(requestIDHeader, id)
		c.Request = c.Request.WithContext(logger.WithFields(c.Request.Context(), requestIDKey, id))
		c.Next()
	}
}

func getRequestID(c *gin.Context) string {
	return c.GetString(requestIDKey)
}

// LoggerMiddleware 每个请求一行访问日志；5xx 或 handler 记录了错误时升为 error
func LoggerMiddleware(base *zap.Logger) gin.HandlerFunc {
	if base == nil {
		base = zap.L()
	}
	sugar := base.Sugar()
	return func(c *gin.Context) {
		started := time.Now()
		c.Next()

		status := c.Writer.Status()
		kv := []interface{}{
			"request_id", getRequestID(c),
			"method", c.Request.Method,
			"route", c.FullPath(),
			"status", status,
			"latency", time.Since(started),
			"client_ip", c.ClientIP(),
		}
		if shop := c.GetString(handlershared.ShopDomainContextKey); shop != "" {
			kv = append(kv, "shop_domain", shop)
		}
		if len(c.Errors) > 0 {
			kv = append(kv, "errors", c.Errors.String())
		}
		if status >= 500 || len(c.Errors) > 0 {
			sugar.Errorw("http_request", kv...)
			return
		}
		sugar.Infow("http_request", kv...)
	}
}

// bearerToken 解析 Authorization: Bearer <token>；ok=false 表示缺失头部
func bearerToken(header string) (token string, ok bool) {
	header = strings.TrimSpace(header)
	if header == "" {
		return "", false
	}
	scheme, rest, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", true
	}
	return strings.TrimSpace(rest), true
}

// ShopifySessionMiddleware 校验 App Bridge 会话令牌，通过后写入店铺域名
func ShopifySessionMiddleware(verifier *shopify.SessionVerifier) gin.HandlerFunc {
	reject := func(c *gin.Context, key string) {
		response.Unauthorized(c, i18n.T(i18n.ResolveLocale(c), key))
		c.Abort()
	}
	return func(c *gin.Context) {
		token, present := bearerToken(c.GetHeader("Authorization"))
		if !present {
			reject(c, "error.session_token_missing")
			return
		}
		if token == "" {
			reject(c, "error.session_token_invalid")
			return
		}
		claims, err := verifier.Verify(token)
		if err != nil {
			handlershared.RequestLog(c).Debugw("session_token_rejected", "error", err)
			reject(c, "error.session_token_invalid")
			return
		}
		shop := claims.ShopDomain()
		c.Set(handlershared.ShopDomainContextKey, shop)
		c.Request = c.Request.WithContext(logger.WithFields(c.Request.Context(), "shop_domain", shop))
		c.Next()
	}
}
