package service

import (
	"fmt"
	"strings"
	"time"

	"github.com/saddle-ledger/internal/constants"
	"github.com/saddle-ledger/internal/models"
)

// LineItemPayload order.created 事件中的订单行
type LineItemPayload struct {
	ExternalLineItemID string   `json:"external_line_item_id"`
	Title              string   `json:"title"`
	SKU                string   `json:"sku"`
	Quantity           int      `json:"quantity"`
	ProductType        string   `json:"product_type"`
	Tags               []string `json:"tags"`
}

// OrderCreatedEvent order.created 事件
type OrderCreatedEvent struct {
	ExternalOrderID string            `json:"external_order_id"`
	OrderNumber     string            `json:"order_number"`
	ShopDomain      string            `json:"shop_domain"`
	CustomerName    string            `json:"customer_name,omitempty"`
	TotalPrice      string            `json:"total_price,omitempty"`
	Currency        string            `json:"currency,omitempty"`
	OrderedAt       time.Time         `json:"ordered_at"`
	LineItems       []LineItemPayload `json:"line_items"`
}

// OrderFulfilledEvent order.fulfilled 事件
type OrderFulfilledEvent struct {
	ExternalOrderID string `json:"external_order_id"`
	ShopDomain      string `json:"shop_domain"`
}

// Normalize 去除首尾空白并校验必填字段
func (e *OrderCreatedEvent) Normalize() error {
	e.ExternalOrderID = strings.TrimSpace(e.ExternalOrderID)
	e.OrderNumber = strings.TrimSpace(e.OrderNumber)
	e.ShopDomain = normalizeShopDomain(e.ShopDomain)
	e.CustomerName = strings.TrimSpace(e.CustomerName)
	e.Currency = strings.ToUpper(strings.TrimSpace(e.Currency))
	if e.ExternalOrderID == "" {
		return fmt.Errorf("%w: external_order_id is required", ErrMalformedEvent)
	}
	if e.ShopDomain == "" {
		return fmt.Errorf("%w: shop_domain is required", ErrMalformedEvent)
	}
	if e.OrderNumber == "" {
		return fmt.Errorf("%w: order_number is required", ErrMalformedEvent)
	}
	if _, err := models.ParseMoney(e.TotalPrice); err != nil {
		return fmt.Errorf("%w: invalid total_price %q", ErrMalformedEvent, e.TotalPrice)
	}
	seen := make(map[string]struct{}, len(e.LineItems))
	for i := range e.LineItems {
		item := &e.LineItems[i]
		item.ExternalLineItemID = strings.TrimSpace(item.ExternalLineItemID)
		item.Title = strings.TrimSpace(item.Title)
		item.SKU = strings.TrimSpace(item.SKU)
		item.ProductType = strings.TrimSpace(item.ProductType)
		if item.ExternalLineItemID == "" {
			return fmt.Errorf("%w: line_items[%d].external_line_item_id is required", ErrMalformedEvent, i)
		}
		if _, dup := seen[item.ExternalLineItemID]; dup {
			return fmt.Errorf("%w: duplicate line item %s", ErrMalformedEvent, item.ExternalLineItemID)
		}
		seen[item.ExternalLineItemID] = struct{}{}
		if item.Title == "" {
			return fmt.Errorf("%w: line_items[%d].title is required", ErrMalformedEvent, i)
		}
		if item.Quantity <= 0 {
			return fmt.Errorf("%w: line_items[%d].quantity must be positive", ErrMalformedEvent, i)
		}
	}
	return nil
}

// Normalize 去除首尾空白并校验必填字段
func (e *OrderFulfilledEvent) Normalize() error {
	e.ExternalOrderID = strings.TrimSpace(e.ExternalOrderID)
	e.ShopDomain = normalizeShopDomain(e.ShopDomain)
	if e.ExternalOrderID == "" {
		return fmt.Errorf("%w: external_order_id is required", ErrMalformedEvent)
	}
	if e.ShopDomain == "" {
		return fmt.Errorf("%w: shop_domain is required", ErrMalformedEvent)
	}
	return nil
}

// IsSaddle 商品类型或任一标签包含 "saddle"（大小写不敏感）即判定为马鞍
func (p LineItemPayload) IsSaddle() bool {
	if strings.Contains(strings.ToLower(p.ProductType), constants.SaddleKeyword) {
		return true
	}
	return models.StringArray(p.Tags).ContainsFold(constants.SaddleKeyword)
}

func normalizeShopDomain(raw string) string {
	return strings.ToLower(strings.TrimSpace(raw))
}
