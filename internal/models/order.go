package models

import (
	"time"
)

// Order 订单表（仅保存与马鞍序列号相关的订单）
type Order struct {
	ID                uint       `gorm:"primarykey" json:"id"`                                                                                // 主键
	ShopDomain        string     `gorm:"type:varchar(255);not null;uniqueIndex:idx_orders_shop_external,priority:1" json:"shop_domain"`       // 店铺域名（租户）
	ExternalOrderID   string     `gorm:"type:varchar(128);not null;uniqueIndex:idx_orders_shop_external,priority:2" json:"external_order_id"` // 平台订单ID
	OrderNumber       string     `gorm:"type:varchar(64);not null;index" json:"order_number"`                                                 // 订单号（如 #1001）
	CustomerName      string     `gorm:"type:varchar(255)" json:"customer_name,omitempty"`                                                    // 客户名称
	Currency          string     `gorm:"type:varchar(8)" json:"currency,omitempty"`                                                           // 币种
	TotalPrice        Money      `gorm:"type:decimal(20,2);not null;default:0" json:"total_price"`                                            // 订单总额
	FulfillmentStatus string     `gorm:"type:varchar(32);not null;index" json:"fulfillment_status"`                                           // 履约状态（UNFULFILLED/FULFILLED）
	FulfilledAt       *time.Time `gorm:"index" json:"fulfilled_at"`                                                                           // 履约时间
	OrderedAt         time.Time  `gorm:"index" json:"ordered_at"`                                                                             // 平台下单时间
	CreatedAt         time.Time  `gorm:"index" json:"created_at"`                                                                             // 创建时间
	UpdatedAt         time.Time  `json:"updated_at"`                                                                                          // 更新时间

	LineItems     []LineItem     `gorm:"foreignKey:OrderID" json:"line_items,omitempty"`     // 订单行
	SerialNumbers []SerialNumber `gorm:"foreignKey:OrderID" json:"serial_numbers,omitempty"` // 已分配序列号
}

// TableName 指定表名
func (Order) TableName() string {
	return "orders"
}

// SaddleLineItems 返回马鞍订单行
func (o *Order) SaddleLineItems() []LineItem {
	if o == nil {
		return nil
	}
	items := make([]LineItem, 0, len(o.LineItems))
	for _, item := range o.LineItems {
		if item.IsSaddle {
			items = append(items, item)
		}
	}
	return items
}

// RequiredSerialCount 需要分配的序列号数量（马鞍订单行数量之和）
func (o *Order) RequiredSerialCount() int {
	total := 0
	for _, item := range o.SaddleLineItems() {
		total += item.Quantity
	}
	return total
}
