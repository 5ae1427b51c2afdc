package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/saddle-ledger/internal/constants"
	"github.com/saddle-ledger/internal/logger"

	"github.com/spf13/viper"
)

// Config 应用配置结构
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Log      LogConfig      `mapstructure:"log"`
	Database DatabaseConfig `mapstructure:"database"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Queue    QueueConfig    `mapstructure:"queue"`
	Shopify  ShopifyConfig  `mapstructure:"shopify"`
	Webhook  WebhookConfig  `mapstructure:"webhook"`
	Serial   SerialConfig   `mapstructure:"serial"`
	Kafka    KafkaConfig    `mapstructure:"kafka"`
	CORS     CORSConfig     `mapstructure:"cors"`
	Export   ExportConfig   `mapstructure:"export"`
}

// ServerConfig 服务器配置
type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port string `mapstructure:"port"`
	Mode string `mapstructure:"mode"` // debug / release
}

// Addr 监听地址
func (c ServerConfig) Addr() string {
	return c.Host + ":" + c.Port
}

// LogConfig 日志配置
type LogConfig struct {
	Level      string `mapstructure:"level"`
	Dir        string `mapstructure:"dir"`
	Filename   string `mapstructure:"filename"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
	Compress   bool   `mapstructure:"compress"`
}

// ToLoggerOptions 转换为 logger 配置
func (c LogConfig) ToLoggerOptions() logger.Options {
	return logger.Options{
		Level:      c.Level,
		Dir:        c.Dir,
		Filename:   c.Filename,
		MaxSizeMB:  c.MaxSizeMB,
		MaxBackups: c.MaxBackups,
		MaxAgeDays: c.MaxAgeDays,
		Compress:   c.Compress,
	}
}

// DatabasePoolConfig 数据库连接池配置
type DatabasePoolConfig struct {
	MaxOpenConns           int `mapstructure:"max_open_conns"`
	MaxIdleConns           int `mapstructure:"max_idle_conns"`
	ConnMaxLifetimeSeconds int `mapstructure:"conn_max_lifetime_seconds"`
	ConnMaxIdleTimeSeconds int `mapstructure:"conn_max_idle_time_seconds"`
}

// DatabaseConfig 数据库配置
type DatabaseConfig struct {
	Driver string             `mapstructure:"driver"` // 数据库驱动（sqlite/postgres/mysql）
	DSN    string             `mapstructure:"dsn"`    // 数据库连接串
	Pool   DatabasePoolConfig `mapstructure:"pool"`
}

// RedisConfig Redis 配置
type RedisConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	Prefix   string `mapstructure:"prefix"`
}

// QueueConfig 异步队列配置
type QueueConfig struct {
	Enabled     bool           `mapstructure:"enabled"`
	Host        string         `mapstructure:"host"`
	Port        int            `mapstructure:"port"`
	Password    string         `mapstructure:"password"`
	DB          int            `mapstructure:"db"`
	Concurrency int            `mapstructure:"concurrency"`
	MaxRetry    int            `mapstructure:"max_retry"`
	Queues      map[string]int `mapstructure:"queues"`
}

// ShopifyConfig Shopify 应用配置
type ShopifyConfig struct {
	ShopDomain     string `mapstructure:"shop_domain"`     // 默认店铺域名（resync 使用）
	APIVersion     string `mapstructure:"api_version"`     // Admin API 版本
	AccessToken    string `mapstructure:"access_token"`    // 离线访问令牌
	APIKey         string `mapstructure:"api_key"`         // 应用 client id（session token aud）
	APISecret      string `mapstructure:"api_secret"`      // 应用密钥（webhook HMAC / session token 签名）
	SaddleTag      string `mapstructure:"saddle_tag"`      // resync 时筛选订单的标签
	PageSize       int    `mapstructure:"page_size"`       // GraphQL 分页大小
	TimeoutSeconds int    `mapstructure:"timeout_seconds"` // 单次请求超时
	MaxRetries     int    `mapstructure:"max_retries"`     // 限流/5xx 重试次数
}

// WebhookConfig Webhook 处理配置
type WebhookConfig struct {
	ProcessMode      string `mapstructure:"process_mode"` // sync / queue
	VerifySignature  bool   `mapstructure:"verify_signature"`
	DedupeTTLSeconds int    `mapstructure:"dedupe_ttl_seconds"`
	ClaimTTLSeconds  int    `mapstructure:"claim_ttl_seconds"` // 处理中标记的存活时间，进程崩溃后到期即可重投
	MaxBodyBytes     int64  `mapstructure:"max_body_bytes"`
}

// IsQueueMode 是否走异步队列
func (c WebhookConfig) IsQueueMode() bool {
	return strings.EqualFold(strings.TrimSpace(c.ProcessMode), constants.WebhookProcessModeQueue)
}

// DedupeTTL 投递去重窗口
func (c WebhookConfig) DedupeTTL() time.Duration {
	if c.DedupeTTLSeconds <= 0 {
		return 24 * time.Hour
	}
	return time.Duration(c.DedupeTTLSeconds) * time.Second
}

// ClaimTTL 处理中标记的存活时间
func (c WebhookConfig) ClaimTTL() time.Duration {
	if c.ClaimTTLSeconds <= 0 {
		return 2 * time.Minute
	}
	return time.Duration(c.ClaimTTLSeconds) * time.Second
}

// SerialConfig 序列号分配配置
type SerialConfig struct {
	MaxAttempts     int `mapstructure:"max_attempts"`      // 单个序列号冲突重试上限
	LockTTLSeconds  int `mapstructure:"lock_ttl_seconds"`  // 分配锁持有上限
	LockWaitSeconds int `mapstructure:"lock_wait_seconds"` // 等待分配锁上限
}

// KafkaConfig 事件发布配置
type KafkaConfig struct {
	Enabled bool     `mapstructure:"enabled"`
	Brokers []string `mapstructure:"brokers"`
	Topic   string   `mapstructure:"topic"`
}

// ExportConfig 导出限流配置
type ExportConfig struct {
	RateLimitWindowSeconds int `mapstructure:"rate_limit_window_seconds"`
	RateLimitMax           int `mapstructure:"rate_limit_max"`
}

// CORSConfig 跨域配置
type CORSConfig struct {
	AllowedOrigins   []string `mapstructure:"allowed_origins"`
	AllowedMethods   []string `mapstructure:"allowed_methods"`
	AllowedHeaders   []string `mapstructure:"allowed_headers"`
	AllowCredentials bool     `mapstructure:"allow_credentials"`
	MaxAge           int      `mapstructure:"max_age"`
}

// Load 从 config.yml 加载配置
func Load() *Config {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("../")   // 如果从 cmd/server 运行
	viper.AddConfigPath("./etc") // etc 文件夹

	setDefaults()

	// 环境变量支持，例如 shopify.api_secret -> SHOPIFY_API_SECRET
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := viper.ReadInConfig(); err != nil {
		logger.Warnw("config_file_read_failed",
			"error", err,
			"fallback", "env_or_defaults",
		)
	} else {
		logger.Infow("config_file_loaded", "file", viper.ConfigFileUsed())
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		logger.Errorw("config_unmarshal_failed", "error", err)
		panic(fmt.Errorf("配置解析失败: %w", err))
	}
	return &cfg
}

func setDefaults() {
	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.port", "8080")
	viper.SetDefault("server.mode", "debug")
	viper.SetDefault("log.level", "info")
	viper.SetDefault("log.dir", "")
	viper.SetDefault("log.filename", "saddle-ledger.log")
	viper.SetDefault("log.max_size_mb", 100)
	viper.SetDefault("log.max_backups", 7)
	viper.SetDefault("log.max_age_days", 30)
	viper.SetDefault("log.compress", true)
	viper.SetDefault("database.driver", "sqlite")
	viper.SetDefault("database.dsn", "./db/saddle-ledger.db")
	viper.SetDefault("database.pool.max_open_conns", 1)
	viper.SetDefault("database.pool.max_idle_conns", 1)
	viper.SetDefault("database.pool.conn_max_lifetime_seconds", 0)
	viper.SetDefault("database.pool.conn_max_idle_time_seconds", 0)
	viper.SetDefault("redis.enabled", false)
	viper.SetDefault("redis.host", "127.0.0.1")
	viper.SetDefault("redis.port", 6379)
	viper.SetDefault("redis.password", "")
	viper.SetDefault("redis.db", 0)
	viper.SetDefault("redis.prefix", "saddle")
	viper.SetDefault("queue.enabled", false)
	viper.SetDefault("queue.host", "127.0.0.1")
	viper.SetDefault("queue.port", 6379)
	viper.SetDefault("queue.password", "")
	viper.SetDefault("queue.db", 1)
	viper.SetDefault("queue.concurrency", 10)
	viper.SetDefault("queue.max_retry", 10)
	viper.SetDefault("queue.queues", map[string]int{
		"webhooks": 10,
		"default":  5,
	})
	viper.SetDefault("shopify.shop_domain", "")
	viper.SetDefault("shopify.api_version", "2025-01")
	viper.SetDefault("shopify.access_token", "")
	viper.SetDefault("shopify.api_key", "")
	viper.SetDefault("shopify.api_secret", "")
	viper.SetDefault("shopify.saddle_tag", "saddles")
	viper.SetDefault("shopify.page_size", 250)
	viper.SetDefault("shopify.timeout_seconds", 30)
	viper.SetDefault("shopify.max_retries", 5)
	viper.SetDefault("webhook.process_mode", constants.WebhookProcessModeSync)
	viper.SetDefault("webhook.verify_signature", true)
	viper.SetDefault("webhook.dedupe_ttl_seconds", 86400)
	viper.SetDefault("webhook.claim_ttl_seconds", 120)
	viper.SetDefault("webhook.max_body_bytes", 2<<20)
	viper.SetDefault("serial.max_attempts", 20)
	viper.SetDefault("serial.lock_ttl_seconds", 30)
	viper.SetDefault("serial.lock_wait_seconds", 10)
	viper.SetDefault("kafka.enabled", false)
	viper.SetDefault("kafka.brokers", []string{"127.0.0.1:9092"})
	viper.SetDefault("kafka.topic", "saddle.serials")
	viper.SetDefault("export.rate_limit_window_seconds", 60)
	viper.SetDefault("export.rate_limit_max", 10)
	viper.SetDefault("cors.allowed_origins", []string{"*"})
	viper.SetDefault("cors.allowed_methods", []string{"GET", "POST", "OPTIONS"})
	viper.SetDefault("cors.allowed_headers", []string{
		"Content-Type",
		"Content-Length",
		"Accept-Encoding",
		"Authorization",
		"Cache-Control",
		"X-Requested-With",
	})
	viper.SetDefault("cors.allow_credentials", true)
	viper.SetDefault("cors.max_age", 600)
}
