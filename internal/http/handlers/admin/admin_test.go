package admin

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/saddle-ledger/internal/config"
	handlershared "github.com/saddle-ledger/internal/http/handlers/shared"
	"github.com/saddle-ledger/internal/models"
	"github.com/saddle-ledger/internal/provider"
	"github.com/saddle-ledger/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
)

const testShop = "saddlery.myshopify.com"

type envelope struct {
	StatusCode int             `json:"status_code"`
	Msg        string          `json:"msg"`
	Data       json.RawMessage `json:"data"`
	Pagination struct {
		Total int64 `json:"total"`
	} `json:"pagination"`
}

func setupAdminTest(t *testing.T) (*gin.Engine, *provider.Container) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	dsn := fmt.Sprintf("file:admin_test_%d?mode=memory&cache=shared", time.Now().UnixNano())
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

	container := provider.NewContainerWithDB(&config.Config{}, db, nil)
	h := New(container)
	r := gin.New()
	api := r.Group("/admin/api")
	api.Use(func(c *gin.Context) {
		if shop := c.GetHeader("X-Test-Shop"); shop != "" {
			c.Set(handlershared.ShopDomainContextKey, shop)
		}
		c.Next()
	})
	api.GET("/orders", h.ListOrders)
	api.GET("/orders/:id", h.GetOrder)
	api.GET("/orders/:id/serials", h.ListOrderSerials)
	api.GET("/serials/export", h.ExportSerials)
	api.POST("/orders/resync", h.ResyncOrders)
	return r, container
}

func seedFulfilledOrder(t *testing.T, c *provider.Container, externalID, number, title string, qty int) *models.Order {
	t.Helper()
	ctx := context.Background()
	result, err := c.IngestionService.Ingest(ctx, service.OrderCreatedEvent{
		ExternalOrderID: externalID,
		OrderNumber:     number,
		ShopDomain:      testShop,
		OrderedAt:       time.Date(2025, 4, 1, 12, 0, 0, 0, time.UTC),
		LineItems: []service.LineItemPayload{
			{ExternalLineItemID: externalID + "/li", Title: title, SKU: "SKU-1", Quantity: qty, ProductType: "Saddle"},
		},
	})
	if err != nil {
		t.Fatalf("ingest failed: %v", err)
	}
	if _, err := c.AssignmentService.Assign(ctx, service.OrderFulfilledEvent{ExternalOrderID: externalID, ShopDomain: testShop}); err != nil {
		t.Fatalf("assign failed: %v", err)
	}
	return result.Order
}

func doRequest(r *gin.Engine, method, path, shop string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	if shop != "" {
		req.Header.Set("X-Test-Shop", shop)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decodeEnvelope(t *testing.T, w *httptest.ResponseRecorder) envelope {
	t.Helper()
	if w.Code != http.StatusOK {
		t.Fatalf("http status want 200 got %d", w.Code)
	}
	var resp envelope
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal response failed: %v, body=%s", err, w.Body.String())
	}
	return resp
}

func TestExportSerialsCSV(t *testing.T) {
	r, c := setupAdminTest(t)
	seedFulfilledOrder(t, c, "gid://shopify/Order/1", "#1001", `Saddle, "Deluxe"`, 3)

	w := doRequest(r, http.MethodGet, "/admin/api/serials/export", testShop)
	if w.Code != http.StatusOK {
		t.Fatalf("status want 200 got %d", w.Code)
	}
	if got := w.Header().Get("Content-Disposition"); got != `attachment; filename="saddle-serial-numbers.csv"` {
		t.Fatalf("unexpected content disposition: %s", got)
	}
	if got := w.Header().Get("Content-Type"); !strings.HasPrefix(got, "text/csv") {
		t.Fatalf("unexpected content type: %s", got)
	}
	records, err := csv.NewReader(strings.NewReader(w.Body.String())).ReadAll()
	if err != nil {
		t.Fatalf("parse csv failed: %v", err)
	}
	if len(records) != 4 {
		t.Fatalf("expected header + 3 rows, got %d", len(records))
	}
	for _, row := range records[1:] {
		if row[0] != "#1001" || row[2] != `Saddle, "Deluxe"` || !service.IsValidSerial(row[4]) || row[5] != "gid://shopify/Order/1/li" {
			t.Fatalf("unexpected row: %v", row)
		}
	}
}

func TestExportSerialsQueryFailureKeepsEnvelope(t *testing.T) {
	r, c := setupAdminTest(t)
	seedFulfilledOrder(t, c, "gid://shopify/Order/9", "#1009", "Trail Saddle", 1)
	if err := c.DB.Migrator().DropTable(&models.SerialNumber{}); err != nil {
		t.Fatalf("drop table failed: %v", err)
	}

	w := doRequest(r, http.MethodGet, "/admin/api/serials/export", testShop)
	if got := w.Header().Get("Content-Disposition"); got != "" {
		t.Fatalf("failed export must not start a download, got %s", got)
	}
	if resp := decodeEnvelope(t, w); resp.StatusCode != 500 {
		t.Fatalf("status_code want 500 got %d (%s)", resp.StatusCode, resp.Msg)
	}
}

func TestGetOrderAndSerials(t *testing.T) {
	r, c := setupAdminTest(t)
	order := seedFulfilledOrder(t, c, "gid://shopify/Order/2", "#1002", "Trail Saddle", 2)

	resp := decodeEnvelope(t, doRequest(r, http.MethodGet, fmt.Sprintf("/admin/api/orders/%d", order.ID), testShop))
	if resp.StatusCode != 0 {
		t.Fatalf("status_code want 0 got %d (%s)", resp.StatusCode, resp.Msg)
	}
	var detail models.Order
	if err := json.Unmarshal(resp.Data, &detail); err != nil {
		t.Fatalf("decode order failed: %v", err)
	}
	if detail.FulfillmentStatus != "FULFILLED" || len(detail.LineItems) != 1 || len(detail.LineItems[0].SerialNumbers) != 2 {
		t.Fatalf("unexpected order detail: %+v", detail)
	}

	resp = decodeEnvelope(t, doRequest(r, http.MethodGet, fmt.Sprintf("/admin/api/orders/%d/serials", order.ID), testShop))
	var serials struct {
		LineItems []service.LineItemSerials `json:"line_items"`
	}
	if err := json.Unmarshal(resp.Data, &serials); err != nil {
		t.Fatalf("decode serials failed: %v", err)
	}
	if len(serials.LineItems) != 1 || len(serials.LineItems[0].SerialValues) != 2 {
		t.Fatalf("unexpected serials: %+v", serials)
	}
}

func TestGetOrderErrors(t *testing.T) {
	r, c := setupAdminTest(t)
	order := seedFulfilledOrder(t, c, "gid://shopify/Order/3", "#1003", "Trail Saddle", 1)

	cases := []struct {
		name string
		path string
		shop string
		code int
	}{
		{name: "unknown id", path: "/admin/api/orders/9999", shop: testShop, code: 404},
		{name: "other shop", path: fmt.Sprintf("/admin/api/orders/%d", order.ID), shop: "other.myshopify.com", code: 404},
		{name: "bad id", path: "/admin/api/orders/abc", shop: testShop, code: 400},
		{name: "no session", path: fmt.Sprintf("/admin/api/orders/%d", order.ID), shop: "", code: 401},
	}
	for _, tc := range cases {
		resp := decodeEnvelope(t, doRequest(r, http.MethodGet, tc.path, tc.shop))
		if resp.StatusCode != tc.code {
			t.Fatalf("%s: status_code want %d got %d", tc.name, tc.code, resp.StatusCode)
		}
	}
}

func TestListOrders(t *testing.T) {
	r, c := setupAdminTest(t)
	seedFulfilledOrder(t, c, "gid://shopify/Order/4", "#1004", "Trail Saddle", 1)
	seedFulfilledOrder(t, c, "gid://shopify/Order/5", "#1005", "Pony Saddle", 2)

	resp := decodeEnvelope(t, doRequest(r, http.MethodGet, "/admin/api/orders?page=1&page_size=10", testShop))
	if resp.StatusCode != 0 || resp.Pagination.Total != 2 {
		t.Fatalf("unexpected list response: code=%d total=%d", resp.StatusCode, resp.Pagination.Total)
	}

	resp = decodeEnvelope(t, doRequest(r, http.MethodGet, "/admin/api/orders?search=1005", testShop))
	if resp.Pagination.Total != 1 {
		t.Fatalf("search should match one order, got %d", resp.Pagination.Total)
	}

	resp = decodeEnvelope(t, doRequest(r, http.MethodGet, "/admin/api/orders?fulfillment_status=bogus", testShop))
	if resp.StatusCode != 400 {
		t.Fatalf("invalid status filter should be rejected, got %d", resp.StatusCode)
	}
}

func TestResyncUnavailableWithoutCredentials(t *testing.T) {
	r, _ := setupAdminTest(t)
	resp := decodeEnvelope(t, doRequest(r, http.MethodPost, "/admin/api/orders/resync", testShop))
	if resp.StatusCode != 503 {
		t.Fatalf("status_code want 503 got %d", resp.StatusCode)
	}
}
