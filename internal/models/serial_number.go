package models

import "time"

// SerialNumber 序列号表，每条对应一件实物马鞍
type SerialNumber struct {
	ID          uint      `gorm:"primarykey" json:"id"`                                                                               // 主键
	LineItemID  uint      `gorm:"index;not null" json:"line_item_id"`                                                                 // 订单行ID
	OrderID     uint      `gorm:"index;not null" json:"order_id"`                                                                     // 订单ID（冗余，便于查询）
	ShopDomain  string    `gorm:"type:varchar(255);not null;uniqueIndex:idx_serial_numbers_shop_value,priority:1" json:"shop_domain"` // 店铺域名
	SerialValue string    `gorm:"type:varchar(16);not null;uniqueIndex:idx_serial_numbers_shop_value,priority:2" json:"serial_value"` // 序列号（LL-NNNNN）
	Status      string    `gorm:"type:varchar(16);not null;index" json:"status"`                                                      // 状态（PENDING/ASSIGNED）
	CreatedAt   time.Time `gorm:"index" json:"created_at"`                                                                            // 创建时间

	LineItem *LineItem `gorm:"foreignKey:LineItemID" json:"-"`
	Order    *Order    `gorm:"foreignKey:OrderID" json:"-"`
}

// TableName 指定表名
func (SerialNumber) TableName() string {
	return "serial_numbers"
}
