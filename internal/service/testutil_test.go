package service

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/saddle-ledger/internal/models"
	"github.com/saddle-ledger/internal/repository"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
)

const testShop = "saddlery.myshopify.com"

type testEnv struct {
	db         *gorm.DB
	orderRepo  *repository.GormOrderRepository
	serialRepo *repository.GormSerialNumberRepository
	ingestion  *IngestionService
	ledger     *LedgerService
}

func setupServiceTest(t *testing.T) *testEnv {
	t.Helper()
	dsn := fmt.Sprintf("file:service_test_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{TranslateError: true})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("get sql db failed: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	if err := models.Migrate(db); err != nil {
		t.Fatalf("auto migrate failed: %v", err)
	}
	orderRepo := repository.NewOrderRepository(db)
	serialRepo := repository.NewSerialNumberRepository(db)
	return &testEnv{
		db:         db,
		orderRepo:  orderRepo,
		serialRepo: serialRepo,
		ingestion:  NewIngestionService(db, orderRepo),
		ledger:     NewLedgerService(db, orderRepo, serialRepo),
	}
}

func (e *testEnv) assigner(generator SerialGenerator, locker AssignmentLocker, publisher EventPublisher, maxAttempts int) *AssignmentService {
	return NewAssignmentService(e.db, e.orderRepo, e.serialRepo, generator, locker, publisher, AssignmentOptions{
		MaxAttempts: maxAttempts,
		LockWait:    5 * time.Second,
	})
}

func (e *testEnv) countSerials(t *testing.T, where string, args ...interface{}) int64 {
	t.Helper()
	var count int64
	query := e.db.Model(&models.SerialNumber{})
	if where != "" {
		query = query.Where(where, args...)
	}
	if err := query.Count(&count).Error; err != nil {
		t.Fatalf("count serials failed: %v", err)
	}
	return count
}

// saddleOrderEvent 一个马鞍订单行（数量 3）+ 一个非马鞍订单行（数量 2）
func saddleOrderEvent(externalID, number string) OrderCreatedEvent {
	return OrderCreatedEvent{
		ExternalOrderID: externalID,
		OrderNumber:     number,
		ShopDomain:      testShop,
		CustomerName:    "Ada Lovelace",
		TotalPrice:      "3897.00",
		Currency:        "usd",
		OrderedAt:       time.Date(2025, 4, 1, 12, 0, 0, 0, time.UTC),
		LineItems: []LineItemPayload{
			{ExternalLineItemID: externalID + "-li-1", Title: "Trail Saddle", SKU: "TS-16", Quantity: 3, ProductType: "Western Saddle"},
			{ExternalLineItemID: externalID + "-li-2", Title: "Saddle Pad", SKU: "PAD-1", Quantity: 2, ProductType: "Tack", Tags: []string{"pads"}},
		},
	}
}

func mustIngest(t *testing.T, env *testEnv, event OrderCreatedEvent) *models.Order {
	t.Helper()
	result, err := env.ingestion.Ingest(context.Background(), event)
	if err != nil {
		t.Fatalf("ingest failed: %v", err)
	}
	return result.Order
}

type sequenceGenerator struct {
	mu     sync.Mutex
	values []string
	calls  int
}

func (g *sequenceGenerator) Next() (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls++
	if len(g.values) == 0 {
		return "", fmt.Errorf("sequence exhausted")
	}
	value := g.values[0]
	if len(g.values) > 1 {
		g.values = g.values[1:]
	}
	return value, nil
}

type publishedEvent struct {
	eventType string
	key       string
	payload   interface{}
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []publishedEvent
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, eventType, key string, payload interface{}) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, publishedEvent{eventType: eventType, key: key, payload: payload})
	return p.err
}
