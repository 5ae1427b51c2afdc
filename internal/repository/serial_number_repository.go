package repository

import (
	"database/sql"
	"time"

	"github.com/saddle-ledger/internal/models"

	"gorm.io/gorm"
)

// SerialNumberRepository 序列号数据访问接口
type SerialNumberRepository interface {
	Create(serial *models.SerialNumber) error
	CountByOrder(orderID uint) (int64, error)
	ListByOrder(orderID uint) ([]models.SerialNumber, error)
	StreamExportRows(shopDomain string, fn func(row SerialExportRow) error) error
	WithTx(tx *gorm.DB) *GormSerialNumberRepository
}

// SerialExportRow 序列号导出行
type SerialExportRow struct {
	OrderNumber        string
	OrderedAt          time.Time
	ProductTitle       string
	SKU                sql.NullString
	SerialValue        string
	ExternalLineItemID string
}

// GormSerialNumberRepository GORM 实现
type GormSerialNumberRepository struct {
	db *gorm.DB
}

// NewSerialNumberRepository 创建序列号仓库
func NewSerialNumberRepository(db *gorm.DB) *GormSerialNumberRepository {
	return &GormSerialNumberRepository{db: db}
}

// WithTx 绑定事务
func (r *GormSerialNumberRepository) WithTx(tx *gorm.DB) *GormSerialNumberRepository {
	if tx == nil {
		return r
	}
	return &GormSerialNumberRepository{db: tx}
}

// Create 写入单条序列号；唯一约束冲突原样返回，由调用方用 IsUniqueViolation 判定
func (r *GormSerialNumberRepository) Create(serial *models.SerialNumber) error {
	return r.db.Create(serial).Error
}

// CountByOrder 统计订单已有序列号数量
func (r *GormSerialNumberRepository) CountByOrder(orderID uint) (int64, error) {
	var count int64
	if err := r.db.Model(&models.SerialNumber{}).Where("order_id = ?", orderID).Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// ListByOrder 按订单获取序列号（按创建顺序）
func (r *GormSerialNumberRepository) ListByOrder(orderID uint) ([]models.SerialNumber, error) {
	var rows []models.SerialNumber
	if err := r.db.Where("order_id = ?", orderID).
		Order("line_item_id asc, created_at asc, id asc").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// StreamExportRows 逐行读取导出数据：订单下单时间倒序，再按订单行、序列号创建顺序
func (r *GormSerialNumberRepository) StreamExportRows(shopDomain string, fn func(row SerialExportRow) error) error {
	rows, err := r.db.Table("serial_numbers AS sn").
		Select("o.order_number, o.ordered_at, li.title, li.sku, sn.serial_value, li.external_line_item_id").
		Joins("JOIN line_items li ON li.id = sn.line_item_id").
		Joins("JOIN orders o ON o.id = sn.order_id").
		Where("sn.shop_domain = ?", shopDomain).
		Order("o.ordered_at desc, o.id desc, li.id asc, sn.created_at asc, sn.id asc").
		Rows()
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var row SerialExportRow
		if err := rows.Scan(
			&row.OrderNumber,
			&row.OrderedAt,
			&row.ProductTitle,
			&row.SKU,
			&row.SerialValue,
			&row.ExternalLineItemID,
		); err != nil {
			return err
		}
		if err := fn(row); err != nil {
			return err
		}
	}
	return rows.Err()
}
