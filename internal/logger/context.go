package logger

import (
	"context"

	"go.uber.org/zap"
)

type ctxFieldsKey struct{}

// WithFields 在 ctx 上累加日志字段（request_id、shop_domain、webhook_id 等）
func WithFields(ctx context.Context, kv ...interface{}) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	if len(kv) == 0 {
		return ctx
	}
	prev := fieldsFrom(ctx)
	fields := make([]interface{}, 0, len(prev)+len(kv))
	fields = append(append(fields, prev...), kv...)
	return context.WithValue(ctx, ctxFieldsKey{}, fields)
}

// FromContext 带上 WithFields 字段的 logger
func FromContext(ctx context.Context) *zap.SugaredLogger {
	if ctx == nil {
		return S()
	}
	if fields := fieldsFrom(ctx); len(fields) > 0 {
		return S().With(fields...)
	}
	return S()
}

func fieldsFrom(ctx context.Context) []interface{} {
	fields, _ := ctx.Value(ctxFieldsKey{}).([]interface{})
	return fields
}
