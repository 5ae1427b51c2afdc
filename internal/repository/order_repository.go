package repository

import (
	"errors"
	"strings"
	"time"

	"github.com/saddle-ledger/internal/constants"
	"github.com/saddle-ledger/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// OrderRepository 订单数据访问接口
type OrderRepository interface {
	CreateWithLineItems(order *models.Order, items []models.LineItem) error
	GetByExternalID(shopDomain, externalOrderID string) (*models.Order, error)
	GetByExternalIDForUpdate(shopDomain, externalOrderID string) (*models.Order, error)
	GetDetail(shopDomain string, id uint) (*models.Order, error)
	ExistsInShop(shopDomain string, id uint) (bool, error)
	MarkFulfilled(id uint, fulfilledAt time.Time) (bool, error)
	List(filter OrderListFilter) ([]OrderSummary, int64, error)
	WithTx(tx *gorm.DB) *GormOrderRepository
}

// OrderSummary 订单列表行
type OrderSummary struct {
	models.Order
	SaddleUnits   int64 `json:"saddle_units"`   // 马鞍件数
	AssignedCount int64 `json:"assigned_count"` // 已分配序列号数
}

// GormOrderRepository GORM 实现
type GormOrderRepository struct {
	db *gorm.DB
}

// NewOrderRepository 创建订单仓库
func NewOrderRepository(db *gorm.DB) *GormOrderRepository {
	return &GormOrderRepository{db: db}
}

// WithTx 绑定事务
func (r *GormOrderRepository) WithTx(tx *gorm.DB) *GormOrderRepository {
	if tx == nil {
		return r
	}
	return &GormOrderRepository{db: tx}
}

// CreateWithLineItems 创建订单与订单行，调用方负责事务边界
func (r *GormOrderRepository) CreateWithLineItems(order *models.Order, items []models.LineItem) error {
	if order == nil {
		return errors.New("order is nil")
	}
	// 关联由下方显式写入，避免 gorm 自动 upsert 关联
	if err := r.db.Omit(clause.Associations).Create(order).Error; err != nil {
		return err
	}
	for i := range items {
		items[i].OrderID = order.ID
		items[i].ShopDomain = order.ShopDomain
	}
	if len(items) > 0 {
		if err := r.db.Omit(clause.Associations).Create(&items).Error; err != nil {
			return err
		}
	}
	order.LineItems = items
	return nil
}

// GetByExternalID 按店铺 + 平台订单ID 获取订单（含订单行）
func (r *GormOrderRepository) GetByExternalID(shopDomain, externalOrderID string) (*models.Order, error) {
	return r.getByExternalID(r.db, shopDomain, externalOrderID)
}

// GetByExternalIDForUpdate 加行锁读取订单（sqlite 方言会忽略锁子句）
func (r *GormOrderRepository) GetByExternalIDForUpdate(shopDomain, externalOrderID string) (*models.Order, error) {
	return r.getByExternalID(r.db.Clauses(clause.Locking{Strength: "UPDATE"}), shopDomain, externalOrderID)
}

func (r *GormOrderRepository) getByExternalID(query *gorm.DB, shopDomain, externalOrderID string) (*models.Order, error) {
	var order models.Order
	err := query.
		Where("shop_domain = ? AND external_order_id = ?", shopDomain, externalOrderID).
		Take(&order).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	if err := r.db.Where("order_id = ?", order.ID).Order("id asc").Find(&order.LineItems).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

// GetDetail 获取订单详情：马鞍订单行及其序列号
func (r *GormOrderRepository) GetDetail(shopDomain string, id uint) (*models.Order, error) {
	var order models.Order
	err := r.db.
		Preload("LineItems", func(db *gorm.DB) *gorm.DB {
			return db.Where("is_saddle = ?", true).Order("id asc")
		}).
		Preload("LineItems.SerialNumbers", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at asc, id asc")
		}).
		Where("id = ? AND shop_domain = ?", id, shopDomain).
		Take(&order).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &order, nil
}

// ExistsInShop 订单是否属于该店铺
func (r *GormOrderRepository) ExistsInShop(shopDomain string, id uint) (bool, error) {
	var count int64
	if err := r.db.Model(&models.Order{}).
		Where("id = ? AND shop_domain = ?", id, shopDomain).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// MarkFulfilled 条件更新履约状态，仅 UNFULFILLED -> FULFILLED 生效，返回是否本次完成迁移
func (r *GormOrderRepository) MarkFulfilled(id uint, fulfilledAt time.Time) (bool, error) {
	result := r.db.Model(&models.Order{}).
		Where("id = ? AND fulfillment_status = ?", id, constants.FulfillmentStatusUnfulfilled).
		Updates(map[string]interface{}{
			"fulfillment_status": constants.FulfillmentStatusFulfilled,
			"fulfilled_at":       fulfilledAt,
			"updated_at":         fulfilledAt,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// List 订单列表，附带马鞍件数与已分配数量
func (r *GormOrderRepository) List(filter OrderListFilter) ([]OrderSummary, int64, error) {
	query := r.db.Model(&models.Order{}).Where("orders.shop_domain = ?", filter.ShopDomain)
	if search := normalizeOrderNumberSearch(filter.Search); search != "" {
		condition, pattern := containsCondition(r.db, "orders.order_number", search)
		query = query.Where(condition, pattern)
	}
	if status := strings.TrimSpace(filter.FulfillmentStatus); status != "" {
		query = query.Where("orders.fulfillment_status = ?", strings.ToUpper(status))
	}
	if filter.OnlySaddle {
		query = query.Where("EXISTS (SELECT 1 FROM line_items li WHERE li.order_id = orders.id AND li.is_saddle = ?)", true)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var rows []OrderSummary
	listQuery := query.
		Select("orders.*, " +
			"(SELECT COALESCE(SUM(li.quantity), 0) FROM line_items li WHERE li.order_id = orders.id AND li.is_saddle = ?) AS saddle_units, " +
			"(SELECT COUNT(*) FROM serial_numbers sn WHERE sn.order_id = orders.id) AS assigned_count", true).
		Order("orders.ordered_at desc, orders.id desc")
	listQuery = applyPagination(listQuery, filter.Page, filter.PageSize)
	if err := listQuery.Scan(&rows).Error; err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}
