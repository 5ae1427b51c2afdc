package eventbus

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/saddle-ledger/internal/config"

	"github.com/segmentio/kafka-go"
)

type fakeWriter struct {
	messages []kafka.Message
	err      error
	closed   bool
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.messages = append(w.messages, msgs...)
	return nil
}

func (w *fakeWriter) Close() error {
	w.closed = true
	return nil
}

func TestKafkaPublisherWritesEnvelope(t *testing.T) {
	writer := &fakeWriter{}
	publisher := newKafkaPublisher(writer)
	publisher.now = func() time.Time { return time.Date(2025, 6, 1, 8, 0, 0, 0, time.FixedZone("CST", 8*3600)) }

	payload := map[string]interface{}{"order_number": "#1001", "serial_values": []string{"AB-12345"}}
	if err := publisher.Publish(context.Background(), "serials.assigned", "shop:gid://shopify/Order/1", payload); err != nil {
		t.Fatalf("publish failed: %v", err)
	}
	if len(writer.messages) != 1 {
		t.Fatalf("expected 1 message, got %d", len(writer.messages))
	}
	msg := writer.messages[0]
	if string(msg.Key) != "shop:gid://shopify/Order/1" {
		t.Fatalf("unexpected key: %s", msg.Key)
	}
	if len(msg.Headers) != 1 || string(msg.Headers[0].Value) != "serials.assigned" {
		t.Fatalf("unexpected headers: %+v", msg.Headers)
	}

	var envelope Envelope
	if err := json.Unmarshal(msg.Value, &envelope); err != nil {
		t.Fatalf("decode envelope failed: %v", err)
	}
	if envelope.EventID == "" || envelope.Type != "serials.assigned" {
		t.Fatalf("unexpected envelope: %+v", envelope)
	}
	if envelope.OccurredAt.Location() != time.UTC || envelope.OccurredAt.Hour() != 0 {
		t.Fatalf("occurred_at should be normalized to UTC: %v", envelope.OccurredAt)
	}
	var decoded struct {
		OrderNumber  string   `json:"order_number"`
		SerialValues []string `json:"serial_values"`
	}
	if err := json.Unmarshal(envelope.Payload, &decoded); err != nil {
		t.Fatalf("decode payload failed: %v", err)
	}
	if decoded.OrderNumber != "#1001" || len(decoded.SerialValues) != 1 {
		t.Fatalf("unexpected payload: %+v", decoded)
	}
}

func TestKafkaPublisherErrors(t *testing.T) {
	writer := &fakeWriter{err: errors.New("leader not available")}
	publisher := newKafkaPublisher(writer)
	if err := publisher.Publish(context.Background(), "serials.assigned", "k", struct{}{}); err == nil {
		t.Fatalf("expected write error")
	}
	if err := publisher.Publish(context.Background(), "serials.assigned", "k", make(chan int)); err == nil {
		t.Fatalf("expected marshal error")
	}
	if err := publisher.Close(); err != nil || !writer.closed {
		t.Fatalf("close failed: %v", err)
	}
	if err := publisher.Publish(context.Background(), "serials.assigned", "k", struct{}{}); !errors.Is(err, ErrPublisherClosed) {
		t.Fatalf("expected ErrPublisherClosed, got %v", err)
	}
}

func TestNewFallsBackToNop(t *testing.T) {
	if _, ok := New(config.KafkaConfig{Enabled: false, Brokers: []string{"localhost:9092"}}).(NopPublisher); !ok {
		t.Fatalf("disabled kafka should use nop publisher")
	}
	if _, ok := New(config.KafkaConfig{Enabled: true, Brokers: []string{" "}}).(NopPublisher); !ok {
		t.Fatalf("kafka without brokers should use nop publisher")
	}
	publisher := New(config.KafkaConfig{Enabled: true, Brokers: []string{"localhost:9092"}, Topic: "saddle.serials"})
	if _, ok := publisher.(*KafkaPublisher); !ok {
		t.Fatalf("expected kafka publisher, got %T", publisher)
	}
	_ = publisher.Close()
}
