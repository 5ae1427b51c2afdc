package router

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	handlershared "github.com/saddle-ledger/internal/http/handlers/shared"
	"github.com/saddle-ledger/internal/http/response"
	"github.com/saddle-ledger/internal/i18n"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

// RateLimitKeyFunc 从请求中取限流维度
type RateLimitKeyFunc func(*gin.Context) string

// RateLimitRule 固定窗口限流规则；WindowSeconds 或 MaxRequests 非正时不限流
type RateLimitRule struct {
	Prefix        string
	WindowSeconds int
	MaxRequests   int
	MessageKey    string // 超限提示，带一个等待秒数参数
}

func (r RateLimitRule) enabled() bool {
	return r.WindowSeconds > 0 && r.MaxRequests > 0
}

func (r RateLimitRule) key(subject string) string {
	if r.Prefix == "" {
		return subject
	}
	return r.Prefix + ":" + subject
}

// windowState 当前窗口计数与剩余秒数
type windowState struct {
	count int64
	ttl   int64
}

// 首次计数时设置过期，保证窗口不会因并发请求被不断延长
var fixedWindowScript = redis.NewScript(`
local n = redis.call("INCR", KEYS[1])
if n == 1 then
	redis.call("EXPIRE", KEYS[1], ARGV[1])
end
return {n, redis.call("TTL", KEYS[1])}
`)

func hitWindow(ctx context.Context, client *redis.Client, key string, windowSeconds int) (windowState, error) {
	reply, err := fixedWindowScript.Run(ctx, client, []string{key}, windowSeconds).Slice()
	if err != nil {
		return windowState{}, err
	}
	if len(reply) != 2 {
		return windowState{}, fmt.Errorf("rate limit reply has %d values", len(reply))
	}
	count, ok := toInt64(reply[0])
	if !ok {
		return windowState{}, fmt.Errorf("rate limit counter %v is not an integer", reply[0])
	}
	ttl, _ := toInt64(reply[1])
	return windowState{count: count, ttl: ttl}, nil
}

// RateLimitMiddleware 基于 Redis 的固定窗口限流。
// 未配置 Redis 时放行；Redis 出错时返回 503，不静默放行导出这类重查询。
func RateLimitMiddleware(client *redis.Client, rule RateLimitRule, keyFunc RateLimitKeyFunc) gin.HandlerFunc {
	if keyFunc == nil {
		keyFunc = KeyByIP
	}
	limit := strconv.Itoa(rule.MaxRequests)
	return func(c *gin.Context) {
		if client == nil || !rule.enabled() {
			c.Next()
			return
		}
		subject := strings.TrimSpace(keyFunc(c))
		if subject == "" {
			subject = c.ClientIP()
		}
		key := rule.key(subject)

		state, err := hitWindow(c.Request.Context(), client, key, rule.WindowSeconds)
		if err != nil {
			handlershared.RequestLog(c).Warnw("rate_limit_unavailable", "key", key, "error", err)
			response.Error(c, response.CodeServiceUnavailable, i18n.T(i18n.ResolveLocale(c), "error.rate_limit_unavailable"))
			c.Abort()
			return
		}

		remaining := int64(rule.MaxRequests) - state.count
		if remaining < 0 {
			remaining = 0
		}
		c.Header("X-RateLimit-Limit", limit)
		c.Header("X-RateLimit-Remaining", strconv.FormatInt(remaining, 10))

		if state.count <= int64(rule.MaxRequests) {
			c.Next()
			return
		}
		wait := retryAfterSeconds(state.ttl, rule.WindowSeconds)
		c.Header("Retry-After", strconv.Itoa(wait))
		handlershared.RequestLog(c).Infow("rate_limited", "key", key, "count", state.count)
		msgKey := rule.MessageKey
		if msgKey == "" {
			msgKey = "error.rate_limited"
		}
		response.Error(c, response.CodeTooManyRequests, i18n.Sprintf(i18n.ResolveLocale(c), msgKey, wait))
		c.Abort()
	}
}

// retryAfterSeconds TTL 异常（-1/-2）时退回整窗口，至少 1 秒
func retryAfterSeconds(ttl int64, windowSeconds int) int {
	wait := int(ttl)
	if wait < 1 {
		wait = windowSeconds
	}
	if wait < 1 {
		wait = 1
	}
	return wait
}

// KeyByIP 按客户端 IP 限流
func KeyByIP(c *gin.Context) string {
	return c.ClientIP()
}

// KeyByShop 按会话店铺限流，未鉴权时退回 IP
func KeyByShop(c *gin.Context) string {
	if shop := strings.TrimSpace(c.GetString(handlershared.ShopDomainContextKey)); shop != "" {
		return shop
	}
	return c.ClientIP()
}

// toInt64 Lua 整数回复在 go-redis 中为 int64，兼容其它数值类型
func toInt64(value interface{}) (int64, bool) {
	switch v := value.(type) {
	case int64:
		return v, true
	case int:
		return int64(v), true
	case float64:
		return int64(v), true
	case string:
		n, err := strconv.ParseInt(v, 10, 64)
		return n, err == nil
	}
	return 0, false
}
