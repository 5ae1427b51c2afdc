package service

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/saddle-ledger/internal/models"
	"github.com/saddle-ledger/internal/repository"

	"gorm.io/gorm"
)

// serialExportHeader 导出列顺序
var serialExportHeader = []string{
	"orderNumber",
	"orderDate",
	"productTitle",
	"sku",
	"serialValue",
	"lineItemId",
}

// LedgerService 序列号台账查询与导出
type LedgerService struct {
	db         *gorm.DB
	orderRepo  repository.OrderRepository
	serialRepo repository.SerialNumberRepository
}

// NewLedgerService 创建台账服务
func NewLedgerService(db *gorm.DB, orderRepo repository.OrderRepository, serialRepo repository.SerialNumberRepository) *LedgerService {
	return &LedgerService{
		db:         db,
		orderRepo:  orderRepo,
		serialRepo: serialRepo,
	}
}

// LineItemSerials 单个马鞍订单行及其序列号
type LineItemSerials struct {
	LineItemID         uint     `json:"line_item_id"`
	ExternalLineItemID string   `json:"external_line_item_id"`
	Title              string   `json:"title"`
	SKU                string   `json:"sku"`
	Quantity           int      `json:"quantity"`
	SerialValues       []string `json:"serial_values"`
}

// OrderListResult 订单列表
type OrderListResult struct {
	Items []repository.OrderSummary
	Total int64
}

func (s *LedgerService) orders(ctx context.Context) repository.OrderRepository {
	return s.orderRepo.WithTx(s.db.WithContext(ctx))
}

func (s *LedgerService) serials(ctx context.Context) repository.SerialNumberRepository {
	return s.serialRepo.WithTx(s.db.WithContext(ctx))
}

// GetOrder 获取订单及其马鞍订单行、序列号
func (s *LedgerService) GetOrder(ctx context.Context, shopDomain string, orderID uint) (*models.Order, error) {
	shopDomain = normalizeShopDomain(shopDomain)
	if shopDomain == "" {
		return nil, ErrShopDomainRequired
	}
	order, err := s.orders(ctx).GetDetail(shopDomain, orderID)
	if err != nil {
		return nil, fmt.Errorf("%w: get order: %v", ErrPersistence, err)
	}
	if order == nil {
		return nil, ErrOrderNotFound
	}
	return order, nil
}

// ListOrders 订单列表
func (s *LedgerService) ListOrders(ctx context.Context, filter repository.OrderListFilter) (*OrderListResult, error) {
	filter.ShopDomain = normalizeShopDomain(filter.ShopDomain)
	if filter.ShopDomain == "" {
		return nil, ErrShopDomainRequired
	}
	items, total, err := s.orders(ctx).List(filter)
	if err != nil {
		return nil, fmt.Errorf("%w: list orders: %v", ErrPersistence, err)
	}
	return &OrderListResult{Items: items, Total: total}, nil
}

// ListOrderSerials 按马鞍订单行列出已分配序列号；未分配时 SerialValues 为空列表
func (s *LedgerService) ListOrderSerials(ctx context.Context, shopDomain string, orderID uint) ([]LineItemSerials, error) {
	order, err := s.GetOrder(ctx, shopDomain, orderID)
	if err != nil {
		return nil, err
	}
	result := make([]LineItemSerials, 0, len(order.LineItems))
	for _, item := range order.SaddleLineItems() {
		values := make([]string, 0, len(item.SerialNumbers))
		for _, serial := range item.SerialNumbers {
			values = append(values, serial.SerialValue)
		}
		result = append(result, LineItemSerials{
			LineItemID:         item.ID,
			ExternalLineItemID: item.ExternalLineItemID,
			Title:              item.Title,
			SKU:                item.SKUValue(),
			Quantity:           item.Quantity,
			SerialValues:       values,
		})
	}
	return result, nil
}

// ExportAllSerials 将店铺全部序列号以 CSV 写入 w，每次调用重新查询
func (s *LedgerService) ExportAllSerials(ctx context.Context, shopDomain string, w io.Writer) (int, error) {
	shopDomain = normalizeShopDomain(shopDomain)
	if shopDomain == "" {
		return 0, ErrShopDomainRequired
	}
	writer := csv.NewWriter(w)
	if err := writer.Write(serialExportHeader); err != nil {
		return 0, err
	}
	rows := 0
	err := s.serials(ctx).StreamExportRows(shopDomain, func(row repository.SerialExportRow) error {
		rows++
		return writer.Write(serialExportRecord(row))
	})
	if err != nil {
		return rows, fmt.Errorf("%w: export serials: %v", ErrPersistence, err)
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return rows, err
	}
	return rows, nil
}

func serialExportRecord(row repository.SerialExportRow) []string {
	sku := ""
	if row.SKU.Valid {
		sku = strings.TrimSpace(row.SKU.String)
	}
	return []string{
		row.OrderNumber,
		formatOrderDate(row.OrderedAt),
		row.ProductTitle,
		sku,
		row.SerialValue,
		row.ExternalLineItemID,
	}
}

func formatOrderDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
