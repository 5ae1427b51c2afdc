// Package i18n 接口提示文案
package i18n

import (
	"fmt"
	"strings"

	"github.com/gin-gonic/gin"
)

const (
	LocaleZhCN = "zh-CN"
	LocaleEnUS = "en-US"

	DefaultLocale = LocaleEnUS
	localeHeader  = "X-Locale"
)

var messages = map[string]map[string]string{
	LocaleEnUS: {
		"error.bad_request":            "invalid request parameters",
		"error.unauthorized":           "unauthorized",
		"error.session_token_missing":  "missing session token",
		"error.session_token_invalid":  "invalid session token",
		"error.shop_required":          "shop domain is required",
		"error.order_not_found":        "order not found",
		"error.internal":               "internal server error",
		"error.assignment_busy":        "order is being processed, retry later",
		"error.resync_unavailable":     "order resync is not configured",
		"error.resync_failed":          "order resync failed",
		"error.rate_limit_unavailable": "rate limiter unavailable",
		"error.rate_limited":           "too many requests, retry in %d seconds",
		"error.export_too_many":        "export requested too often, retry in %d seconds",
	},
	LocaleZhCN: {
		"error.bad_request":            "请求参数错误",
		"error.unauthorized":           "未授权",
		"error.session_token_missing":  "缺少会话令牌",
		"error.session_token_invalid":  "会话令牌无效",
		"error.shop_required":          "缺少店铺域名",
		"error.order_not_found":        "订单不存在",
		"error.internal":               "服务器内部错误",
		"error.assignment_busy":        "订单正在处理中，请稍后重试",
		"error.resync_unavailable":     "未配置订单同步",
		"error.resync_failed":          "订单同步失败",
		"error.rate_limit_unavailable": "限流服务不可用",
		"error.rate_limited":           "请求过于频繁，请 %d 秒后再试",
		"error.export_too_many":        "导出过于频繁，请 %d 秒后再试",
	},
}

// T 返回文案，缺失时回退默认语言，仍缺失返回 key
func T(locale, key string) string {
	if msg, ok := messages[normalizeLocale(locale)][key]; ok {
		return msg
	}
	if msg, ok := messages[DefaultLocale][key]; ok {
		return msg
	}
	return key
}

// Sprintf 带参数的文案
func Sprintf(locale, key string, args ...interface{}) string {
	return fmt.Sprintf(T(locale, key), args...)
}

// ResolveLocale 依次读取 X-Locale、Accept-Language
func ResolveLocale(c *gin.Context) string {
	if c == nil || c.Request == nil {
		return DefaultLocale
	}
	if locale := normalizeLocale(c.GetHeader(localeHeader)); locale != "" {
		return locale
	}
	for _, part := range strings.Split(c.GetHeader("Accept-Language"), ",") {
		tag := strings.TrimSpace(strings.SplitN(part, ";", 2)[0])
		if locale := normalizeLocale(tag); locale != "" {
			return locale
		}
	}
	return DefaultLocale
}

func normalizeLocale(raw string) string {
	lower := strings.ToLower(strings.TrimSpace(raw))
	switch {
	case lower == "":
		return ""
	case strings.HasPrefix(lower, "zh"):
		return LocaleZhCN
	case strings.HasPrefix(lower, "en"):
		return LocaleEnUS
	default:
		return ""
	}
}
