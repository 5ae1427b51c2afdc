package models

import "time"

// LineItem 订单行表
type LineItem struct {
	ID                 uint        `gorm:"primarykey" json:"id"`                                                                                        // 主键
	OrderID            uint        `gorm:"index;not null" json:"order_id"`                                                                              // 订单ID
	ShopDomain         string      `gorm:"type:varchar(255);not null;uniqueIndex:idx_line_items_shop_external,priority:1" json:"shop_domain"`           // 店铺域名
	ExternalLineItemID string      `gorm:"type:varchar(128);not null;uniqueIndex:idx_line_items_shop_external,priority:2" json:"external_line_item_id"` // 平台订单行ID
	Title              string      `gorm:"type:varchar(500);not null" json:"title"`                                                                     // 商品标题
	SKU                *string     `gorm:"type:varchar(128)" json:"sku"`                                                                                // SKU
	Quantity           int         `gorm:"not null" json:"quantity"`                                                                                    // 数量
	ProductType        string      `gorm:"type:varchar(255)" json:"product_type,omitempty"`                                                             // 商品类型
	Tags               StringArray `gorm:"type:json" json:"tags"`                                                                                       // 商品标签
	IsSaddle           bool        `gorm:"not null;default:false;index" json:"is_saddle"`                                                               // 是否马鞍（入库时计算，不再修改）
	CreatedAt          time.Time   `gorm:"index" json:"created_at"`                                                                                     // 创建时间

	Order         *Order         `gorm:"foreignKey:OrderID" json:"-"`
	SerialNumbers []SerialNumber `gorm:"foreignKey:LineItemID" json:"serial_numbers,omitempty"` // 序列号
}

// TableName 指定表名
func (LineItem) TableName() string {
	return "line_items"
}

// SKUValue 返回 SKU，空值返回空串
func (l LineItem) SKUValue() string {
	if l.SKU == nil {
		return ""
	}
	return *l.SKU
}
