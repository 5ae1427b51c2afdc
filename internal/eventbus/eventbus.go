// Package eventbus 将领域事件发布到 Kafka
package eventbus

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/saddle-ledger/internal/config"
	"github.com/saddle-ledger/internal/logger"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
)

const (
	defaultTopic        = "saddle.serials"
	defaultWriteTimeout = 5 * time.Second
	headerEventType     = "event_type"
)

// ErrPublisherClosed 发布器已关闭
var ErrPublisherClosed = errors.New("event publisher closed")

// Envelope 事件信封
type Envelope struct {
	EventID    string          `json:"event_id"`
	Type       string          `json:"type"`
	OccurredAt time.Time       `json:"occurred_at"`
	Payload    json.RawMessage `json:"payload"`
}

// Publisher 事件发布器
type Publisher interface {
	Publish(ctx context.Context, eventType, key string, payload interface{}) error
	Close() error
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher 同步写入 Kafka，按订单键分区保证同一订单事件有序
type KafkaPublisher struct {
	writer  messageWriter
	timeout time.Duration
	now     func() time.Time
	closed  bool
}

// NewKafkaPublisher 创建 Kafka 发布器
func NewKafkaPublisher(brokers []string, topic string) *KafkaPublisher {
	if strings.TrimSpace(topic) == "" {
		topic = defaultTopic
	}
	return newKafkaPublisher(&kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
	})
}

func newKafkaPublisher(writer messageWriter) *KafkaPublisher {
	return &KafkaPublisher{
		writer:  writer,
		timeout: defaultWriteTimeout,
		now:     time.Now,
	}
}

// New 按配置创建发布器；未启用或未配置 broker 时返回空实现
func New(cfg config.KafkaConfig) Publisher {
	brokers := make([]string, 0, len(cfg.Brokers))
	for _, broker := range cfg.Brokers {
		if broker = strings.TrimSpace(broker); broker != "" {
			brokers = append(brokers, broker)
		}
	}
	if !cfg.Enabled || len(brokers) == 0 {
		return NopPublisher{}
	}
	logger.Infow("eventbus_kafka_enabled", "brokers", brokers, "topic", cfg.Topic)
	return NewKafkaPublisher(brokers, cfg.Topic)
}

// Publish 发布事件
func (p *KafkaPublisher) Publish(ctx context.Context, eventType, key string, payload interface{}) error {
	if p.closed {
		return ErrPublisherClosed
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal event payload: %w", err)
	}
	envelope := Envelope{
		EventID:    uuid.NewString(),
		Type:       eventType,
		OccurredAt: p.now().UTC(),
		Payload:    raw,
	}
	value, err := json.Marshal(envelope)
	if err != nil {
		return fmt.Errorf("marshal event envelope: %w", err)
	}

	writeCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()
	err = p.writer.WriteMessages(writeCtx, kafka.Message{
		Key:     []byte(key),
		Value:   value,
		Time:    envelope.OccurredAt,
		Headers: []kafka.Header{{Key: headerEventType, Value: []byte(eventType)}},
	})
	if err != nil {
		return fmt.Errorf("write kafka message: %w", err)
	}
	logger.Debugw("eventbus_published", "type", eventType, "key", key, "event_id", envelope.EventID)
	return nil
}

// Close 关闭底层 writer
func (p *KafkaPublisher) Close() error {
	if p.closed {
		return nil
	}
	p.closed = true
	return p.writer.Close()
}

// NopPublisher 丢弃事件
type NopPublisher struct{}

// Publish 空实现
func (NopPublisher) Publish(context.Context, string, string, interface{}) error { return nil }

// Close 空实现
func (NopPublisher) Close() error { return nil }
