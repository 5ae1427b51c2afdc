package repository

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/saddle-ledger/internal/constants"
	"github.com/saddle-ledger/internal/models"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
)

const testShop = "saddlery.myshopify.com"

func setupRepositoryTest(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:repository_test_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{TranslateError: true})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("get sql db failed: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	if err := models.Migrate(db); err != nil {
		t.Fatalf("auto migrate failed: %v", err)
	}
	return db
}

func createTestOrder(t *testing.T, repo *GormOrderRepository, externalID, number string, orderedAt time.Time, items ...models.LineItem) *models.Order {
	t.Helper()
	order := &models.Order{
		ShopDomain:        testShop,
		ExternalOrderID:   externalID,
		OrderNumber:       number,
		FulfillmentStatus: constants.FulfillmentStatusUnfulfilled,
		OrderedAt:         orderedAt,
	}
	if err := repo.CreateWithLineItems(order, items); err != nil {
		t.Fatalf("create order failed: %v", err)
	}
	return order
}

func TestOrderRepositoryCreateAndGetByExternalID(t *testing.T) {
	db := setupRepositoryTest(t)
	repo := NewOrderRepository(db)
	sku := "SAD-01"
	order := createTestOrder(t, repo, "gid-1", "#1001", time.Now(),
		models.LineItem{ExternalLineItemID: "li-1", Title: "Trail Saddle", SKU: &sku, Quantity: 2, IsSaddle: true},
		models.LineItem{ExternalLineItemID: "li-2", Title: "Saddle Pad", Quantity: 1},
	)

	got, err := repo.GetByExternalID(testShop, "gid-1")
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if got == nil || got.ID != order.ID {
		t.Fatalf("expected order %d, got %+v", order.ID, got)
	}
	if len(got.LineItems) != 2 || got.LineItems[0].ShopDomain != testShop {
		t.Fatalf("expected 2 line items scoped to shop, got %+v", got.LineItems)
	}

	missing, err := repo.GetByExternalID("other.myshopify.com", "gid-1")
	if err != nil || missing != nil {
		t.Fatalf("order must be tenant scoped, got %+v err=%v", missing, err)
	}
}

func TestOrderRepositoryUniqueExternalOrderPerShop(t *testing.T) {
	db := setupRepositoryTest(t)
	repo := NewOrderRepository(db)
	createTestOrder(t, repo, "gid-dup", "#1", time.Now())

	dup := &models.Order{ShopDomain: testShop, ExternalOrderID: "gid-dup", OrderNumber: "#1", FulfillmentStatus: constants.FulfillmentStatusUnfulfilled}
	err := repo.CreateWithLineItems(dup, nil)
	if !IsUniqueViolation(err) {
		t.Fatalf("expected unique violation, got %v", err)
	}

	other := &models.Order{ShopDomain: "other.myshopify.com", ExternalOrderID: "gid-dup", OrderNumber: "#1", FulfillmentStatus: constants.FulfillmentStatusUnfulfilled}
	if err := repo.CreateWithLineItems(other, nil); err != nil {
		t.Fatalf("same external id in another shop should be allowed: %v", err)
	}
}

func TestOrderRepositoryMarkFulfilledOnlyOnce(t *testing.T) {
	db := setupRepositoryTest(t)
	repo := NewOrderRepository(db)
	order := createTestOrder(t, repo, "gid-2", "#1002", time.Now())

	now := time.Now()
	first, err := repo.MarkFulfilled(order.ID, now)
	if err != nil || !first {
		t.Fatalf("first mark should transition, got %v err=%v", first, err)
	}
	second, err := repo.MarkFulfilled(order.ID, now)
	if err != nil || second {
		t.Fatalf("second mark should be a no-op, got %v err=%v", second, err)
	}
}

func TestSerialNumberRepositoryUniqueValuePerShop(t *testing.T) {
	db := setupRepositoryTest(t)
	orders := NewOrderRepository(db)
	serials := NewSerialNumberRepository(db)
	order := createTestOrder(t, orders, "gid-3", "#1003", time.Now(),
		models.LineItem{ExternalLineItemID: "li-3", Title: "Saddle", Quantity: 2, IsSaddle: true},
	)
	item := order.LineItems[0]

	first := &models.SerialNumber{LineItemID: item.ID, OrderID: order.ID, ShopDomain: testShop, SerialValue: "AB-12345", Status: constants.SerialStatusAssigned}
	if err := serials.Create(first); err != nil {
		t.Fatalf("create serial failed: %v", err)
	}
	dup := &models.SerialNumber{LineItemID: item.ID, OrderID: order.ID, ShopDomain: testShop, SerialValue: "AB-12345", Status: constants.SerialStatusAssigned}
	if err := serials.Create(dup); !IsUniqueViolation(err) {
		t.Fatalf("expected unique violation on duplicate serial, got %v", err)
	}
	count, err := serials.CountByOrder(order.ID)
	if err != nil || count != 1 {
		t.Fatalf("expected 1 serial, got %d err=%v", count, err)
	}
}

func TestSerialNumberRepositoryStreamExportRowsOrdering(t *testing.T) {
	db := setupRepositoryTest(t)
	orders := NewOrderRepository(db)
	serials := NewSerialNumberRepository(db)
	base := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)

	older := createTestOrder(t, orders, "gid-old", "#1", base,
		models.LineItem{ExternalLineItemID: "li-old", Title: "Old Saddle", Quantity: 1, IsSaddle: true},
	)
	newer := createTestOrder(t, orders, "gid-new", "#2", base.Add(24*time.Hour),
		models.LineItem{ExternalLineItemID: "li-new", Title: "New Saddle", Quantity: 2, IsSaddle: true},
	)
	values := []struct {
		order *models.Order
		value string
	}{
		{older, "AA-10000"},
		{newer, "BB-20000"},
		{newer, "CC-30000"},
	}
	for _, v := range values {
		row := &models.SerialNumber{
			LineItemID:  v.order.LineItems[0].ID,
			OrderID:     v.order.ID,
			ShopDomain:  testShop,
			SerialValue: v.value,
			Status:      constants.SerialStatusAssigned,
		}
		if err := serials.Create(row); err != nil {
			t.Fatalf("create serial failed: %v", err)
		}
	}

	var got []string
	err := serials.StreamExportRows(testShop, func(row SerialExportRow) error {
		got = append(got, row.OrderNumber+":"+row.SerialValue)
		return nil
	})
	if err != nil {
		t.Fatalf("stream failed: %v", err)
	}
	want := "#2:BB-20000,#2:CC-30000,#1:AA-10000"
	if strings.Join(got, ",") != want {
		t.Fatalf("unexpected export order: got %v want %s", got, want)
	}
}

func TestOrderRepositoryListWithCountsAndSearch(t *testing.T) {
	db := setupRepositoryTest(t)
	repo := NewOrderRepository(db)
	serials := NewSerialNumberRepository(db)
	now := time.Now()
	first := createTestOrder(t, repo, "gid-a", "#1001", now.Add(-time.Hour),
		models.LineItem{ExternalLineItemID: "a-1", Title: "Saddle", Quantity: 3, IsSaddle: true},
		models.LineItem{ExternalLineItemID: "a-2", Title: "Bridle", Quantity: 5},
	)
	createTestOrder(t, repo, "gid-b", "#2002", now,
		models.LineItem{ExternalLineItemID: "b-1", Title: "Bridle", Quantity: 1},
	)
	if err := serials.Create(&models.SerialNumber{
		LineItemID: first.LineItems[0].ID, OrderID: first.ID, ShopDomain: testShop,
		SerialValue: "ZZ-99999", Status: constants.SerialStatusAssigned,
	}); err != nil {
		t.Fatalf("create serial failed: %v", err)
	}

	rows, total, err := repo.List(OrderListFilter{ShopDomain: testShop, Page: 1, PageSize: 20})
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if total != 2 || len(rows) != 2 {
		t.Fatalf("expected 2 orders, got total=%d rows=%d", total, len(rows))
	}
	if rows[0].OrderNumber != "#2002" {
		t.Fatalf("expected newest first, got %s", rows[0].OrderNumber)
	}
	if rows[1].SaddleUnits != 3 || rows[1].AssignedCount != 1 {
		t.Fatalf("unexpected counts: %+v", rows[1])
	}

	saddleOnly, total, err := repo.List(OrderListFilter{ShopDomain: testShop, OnlySaddle: true})
	if err != nil || total != 1 || len(saddleOnly) != 1 {
		t.Fatalf("saddle filter failed: total=%d err=%v", total, err)
	}

	searched, total, err := repo.List(OrderListFilter{ShopDomain: testShop, Search: "#100"})
	if err != nil || total != 1 || searched[0].ExternalOrderID != "gid-a" {
		t.Fatalf("search failed: total=%d err=%v", total, err)
	}
}
