package service

import (
	"strings"

	"github.com/saddle-ledger/internal/shopify"
)

// OrderCreatedEventFromWebhook 将 orders/create webhook 转换为入库事件
func OrderCreatedEventFromWebhook(shopDomain string, payload shopify.OrderWebhook) OrderCreatedEvent {
	event := OrderCreatedEvent{
		ExternalOrderID: payload.OrderGID(),
		OrderNumber:     payload.Name,
		ShopDomain:      shopDomain,
		CustomerName:    payload.CustomerName(),
		TotalPrice:      payload.TotalPrice,
		Currency:        payload.Currency,
		OrderedAt:       payload.CreatedAt,
		LineItems:       make([]LineItemPayload, 0, len(payload.LineItems)),
	}
	for _, item := range payload.LineItems {
		sku := ""
		if item.SKU != nil {
			sku = *item.SKU
		}
		event.LineItems = append(event.LineItems, LineItemPayload{
			ExternalLineItemID: item.LineItemGID(),
			Title:              item.Title,
			SKU:                sku,
			Quantity:           item.Quantity,
			ProductType:        item.ProductType,
			Tags:               []string(item.Tags),
		})
	}
	return event
}

// OrderFulfilledEventFromWebhook 将 orders/fulfilled webhook 转换为分配事件
func OrderFulfilledEventFromWebhook(shopDomain string, payload shopify.OrderWebhook) OrderFulfilledEvent {
	return OrderFulfilledEvent{
		ExternalOrderID: payload.OrderGID(),
		ShopDomain:      shopDomain,
	}
}

// OrderCreatedEventFromAdminOrder 将 Admin GraphQL 订单转换为入库事件
func OrderCreatedEventFromAdminOrder(shopDomain string, order shopify.Order) OrderCreatedEvent {
	event := OrderCreatedEvent{
		ExternalOrderID: order.ID,
		OrderNumber:     order.Name,
		ShopDomain:      shopDomain,
		CustomerName:    order.CustomerName(),
		TotalPrice:      order.TotalPriceSet.ShopMoney.Amount,
		Currency:        order.TotalPriceSet.ShopMoney.CurrencyCode,
		OrderedAt:       order.CreatedAt,
		LineItems:       make([]LineItemPayload, 0, len(order.LineItems.Nodes)),
	}
	for _, item := range order.LineItems.Nodes {
		payload := LineItemPayload{
			ExternalLineItemID: item.ID,
			Title:              item.Title,
			SKU:                strings.TrimSpace(item.SKU),
			Quantity:           item.Quantity,
		}
		if item.Product != nil {
			payload.ProductType = item.Product.ProductType
			payload.Tags = item.Product.Tags
		}
		event.LineItems = append(event.LineItems, payload)
	}
	return event
}
