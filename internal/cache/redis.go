package cache

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/saddle-ledger/internal/config"
	"github.com/saddle-ledger/internal/logger"

	"github.com/redis/go-redis/v9"
)

const (
	defaultRedisHost   = "127.0.0.1"
	defaultRedisPort   = 6379
	redisPingTimeout   = 3 * time.Second
	redisOpTimeout     = 2 * time.Second
	defaultRedisPrefix = "saddle"
)

// redisClient 为 nil 表示未启用：订单锁与 webhook 去重使用进程内实现
var (
	redisClient *redis.Client
	redisPrefix = defaultRedisPrefix
)

func redisAddr(cfg *config.RedisConfig) string {
	host := strings.TrimSpace(cfg.Host)
	if host == "" {
		host = defaultRedisHost
	}
	port := cfg.Port
	if port <= 0 {
		port = defaultRedisPort
	}
	return net.JoinHostPort(host, strconv.Itoa(port))
}

// InitRedis 连接并探活；未启用时保持 nil 客户端
func InitRedis(cfg *config.RedisConfig) error {
	if cfg == nil || !cfg.Enabled {
		return nil
	}
	if prefix := strings.TrimSpace(cfg.Prefix); prefix != "" {
		redisPrefix = prefix
	}
	addr := redisAddr(cfg)
	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		ReadTimeout:  redisOpTimeout,
		WriteTimeout: redisOpTimeout,
	})

	ctx, cancel := context.WithTimeout(context.Background(), redisPingTimeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return fmt.Errorf("redis %s: %w", addr, err)
	}
	redisClient = client
	logger.Infow("redis_connected", "addr", addr, "db", cfg.DB, "prefix", redisPrefix)
	return nil
}

// Enabled Redis 是否可用
func Enabled() bool {
	return redisClient != nil
}

// Client 未启用时返回 nil，调用方据此走降级路径
func Client() *redis.Client {
	return redisClient
}

func Close() error {
	if redisClient == nil {
		return nil
	}
	client := redisClient
	redisClient = nil
	return client.Close()
}

// Key 以全局前缀拼接 key，忽略空段
func Key(parts ...string) string {
	var b strings.Builder
	b.WriteString(redisPrefix)
	for _, part := range parts {
		if part = strings.TrimSpace(part); part != "" {
			b.WriteByte(':')
			b.WriteString(part)
		}
	}
	return b.String()
}
