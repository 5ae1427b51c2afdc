package service

import (
	"context"
	"fmt"
	"time"

	"github.com/saddle-ledger/internal/constants"
	"github.com/saddle-ledger/internal/logger"
	"github.com/saddle-ledger/internal/models"
	"github.com/saddle-ledger/internal/repository"

	"gorm.io/gorm"
)

// IngestionService 订单入库服务
type IngestionService struct {
	db        *gorm.DB
	orderRepo repository.OrderRepository
	now       func() time.Time
}

// NewIngestionService 创建订单入库服务
func NewIngestionService(db *gorm.DB, orderRepo repository.OrderRepository) *IngestionService {
	return &IngestionService{
		db:        db,
		orderRepo: orderRepo,
		now:       time.Now,
	}
}

// IngestResult 入库结果
type IngestResult struct {
	Order   *models.Order
	Created bool // false 表示订单已存在，本次为幂等空操作
}

// Ingest 处理 order.created：订单不存在时在同一事务内写入订单与全部订单行，已存在则不做修改
func (s *IngestionService) Ingest(ctx context.Context, event OrderCreatedEvent) (*IngestResult, error) {
	if err := event.Normalize(); err != nil {
		return nil, err
	}
	log := logger.FromContext(ctx).With(
		"shop_domain", event.ShopDomain,
		"external_order_id", event.ExternalOrderID,
	)

	var result *IngestResult
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		orderRepo := s.orderRepo.WithTx(tx)
		existing, err := orderRepo.GetByExternalID(event.ShopDomain, event.ExternalOrderID)
		if err != nil {
			return err
		}
		if existing != nil {
			result = &IngestResult{Order: existing}
			return nil
		}

		order, items, err := s.buildOrder(event)
		if err != nil {
			return err
		}
		if err := orderRepo.CreateWithLineItems(order, items); err != nil {
			return err
		}
		result = &IngestResult{Order: order, Created: true}
		return nil
	})
	if err != nil {
		if repository.IsUniqueViolation(err) {
			// 并发投递同一订单，另一方已提交
			existing, getErr := s.orderRepo.WithTx(s.db.WithContext(ctx)).GetByExternalID(event.ShopDomain, event.ExternalOrderID)
			if getErr == nil && existing != nil {
				log.Infow("order_ingest_race_resolved")
				return &IngestResult{Order: existing}, nil
			}
			if getErr == nil {
				// 订单不存在却冲突：订单行 ID 已属于另一订单，重投也无法成功
				log.Warnw("order_ingest_line_item_conflict", "error", err)
				return nil, fmt.Errorf("%w: line item already belongs to another order: %v", ErrMalformedEvent, err)
			}
		}
		log.Errorw("order_ingest_failed", "error", err)
		return nil, fmt.Errorf("%w: ingest order: %v", ErrPersistence, err)
	}

	if result.Created {
		log.Infow("order_ingested",
			"order_id", result.Order.ID,
			"order_number", result.Order.OrderNumber,
			"line_items", len(result.Order.LineItems),
			"saddle_units", result.Order.RequiredSerialCount(),
		)
	} else {
		log.Debugw("order_ingest_skipped_existing", "order_id", result.Order.ID)
	}
	return result, nil
}

func (s *IngestionService) buildOrder(event OrderCreatedEvent) (*models.Order, []models.LineItem, error) {
	total, err := models.ParseMoney(event.TotalPrice)
	if err != nil {
		return nil, nil, err
	}
	now := s.now()
	orderedAt := event.OrderedAt
	if orderedAt.IsZero() {
		orderedAt = now
	}
	order := &models.Order{
		ShopDomain:        event.ShopDomain,
		ExternalOrderID:   event.ExternalOrderID,
		OrderNumber:       event.OrderNumber,
		CustomerName:      event.CustomerName,
		Currency:          event.Currency,
		TotalPrice:        total,
		FulfillmentStatus: constants.FulfillmentStatusUnfulfilled,
		OrderedAt:         orderedAt,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	items := make([]models.LineItem, 0, len(event.LineItems))
	for _, payload := range event.LineItems {
		item := models.LineItem{
			ShopDomain:         event.ShopDomain,
			ExternalLineItemID: payload.ExternalLineItemID,
			Title:              payload.Title,
			Quantity:           payload.Quantity,
			ProductType:        payload.ProductType,
			Tags:               models.StringArray(payload.Tags),
			IsSaddle:           payload.IsSaddle(),
			CreatedAt:          now,
		}
		if payload.SKU != "" {
			sku := payload.SKU
			item.SKU = &sku
		}
		items = append(items, item)
	}
	return order, items, nil
}
