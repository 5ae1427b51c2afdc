package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/saddle-ledger/internal/constants"
	"github.com/saddle-ledger/internal/logger"
	"github.com/saddle-ledger/internal/models"
	"github.com/saddle-ledger/internal/repository"

	"gorm.io/gorm"
)

const (
	defaultSerialMaxAttempts = 20
	defaultAssignLockWait    = 10 * time.Second
)

// AssignmentLocker 按订单串行化序列号分配
type AssignmentLocker interface {
	Acquire(ctx context.Context, key string) (release func(), err error)
}

// EventPublisher 领域事件发布
type EventPublisher interface {
	Publish(ctx context.Context, eventType, key string, payload interface{}) error
}

// AssignmentStatus 分配结果状态
type AssignmentStatus string

const (
	AssignmentStatusAssigned         AssignmentStatus = "assigned"
	AssignmentStatusAlreadyProcessed AssignmentStatus = "already_processed"
	AssignmentStatusNoSaddleItems    AssignmentStatus = "no_saddle_items"
)

// AssignmentResult 分配结果
type AssignmentResult struct {
	Order      *models.Order
	Status     AssignmentStatus
	Serials    []models.SerialNumber
	Collisions int
}

// AssignmentOptions 分配参数
type AssignmentOptions struct {
	MaxAttempts int           // 单个序列号的生成尝试上限
	LockWait    time.Duration // 等待订单锁上限
}

// SerialsAssignedPayload serials.assigned 事件内容
type SerialsAssignedPayload struct {
	ShopDomain      string   `json:"shop_domain"`
	OrderID         uint     `json:"order_id"`
	ExternalOrderID string   `json:"external_order_id"`
	OrderNumber     string   `json:"order_number"`
	SerialValues    []string `json:"serial_values"`
}

// AssignmentService 序列号分配服务
type AssignmentService struct {
	db          *gorm.DB
	orderRepo   repository.OrderRepository
	serialRepo  repository.SerialNumberRepository
	generator   SerialGenerator
	locker      AssignmentLocker
	publisher   EventPublisher
	maxAttempts int
	lockWait    time.Duration
	now         func() time.Time
}

// NewAssignmentService 创建序列号分配服务
func NewAssignmentService(
	db *gorm.DB,
	orderRepo repository.OrderRepository,
	serialRepo repository.SerialNumberRepository,
	generator SerialGenerator,
	locker AssignmentLocker,
	publisher EventPublisher,
	options AssignmentOptions,
) *AssignmentService {
	if generator == nil {
		generator = NewRandomSerialGenerator()
	}
	maxAttempts := options.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = defaultSerialMaxAttempts
	}
	lockWait := options.LockWait
	if lockWait <= 0 {
		lockWait = defaultAssignLockWait
	}
	return &AssignmentService{
		db:          db,
		orderRepo:   orderRepo,
		serialRepo:  serialRepo,
		generator:   generator,
		locker:      locker,
		publisher:   publisher,
		maxAttempts: maxAttempts,
		lockWait:    lockWait,
		now:         time.Now,
	}
}

// Assign 处理 order.fulfilled：为每件马鞍生成唯一序列号，同一订单只分配一次。
// 订单内全部序列号在同一事务中提交，不会出现部分分配。
func (s *AssignmentService) Assign(ctx context.Context, event OrderFulfilledEvent) (*AssignmentResult, error) {
	if err := event.Normalize(); err != nil {
		return nil, err
	}
	log := logger.FromContext(ctx).With(
		"shop_domain", event.ShopDomain,
		"external_order_id", event.ExternalOrderID,
	)

	release, err := s.acquire(ctx, event.ShopDomain+":"+event.ExternalOrderID)
	if err != nil {
		log.Warnw("serial_assign_lock_busy", "error", err)
		return nil, err
	}
	defer release()

	var result *AssignmentResult
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		orderRepo := s.orderRepo.WithTx(tx)
		serialRepo := s.serialRepo.WithTx(tx)

		order, err := orderRepo.GetByExternalIDForUpdate(event.ShopDomain, event.ExternalOrderID)
		if err != nil {
			return err
		}
		if order == nil {
			return ErrOrderNotFound
		}

		existing, err := serialRepo.CountByOrder(order.ID)
		if err != nil {
			return err
		}
		if existing > 0 {
			serials, err := serialRepo.ListByOrder(order.ID)
			if err != nil {
				return err
			}
			result = &AssignmentResult{Order: order, Status: AssignmentStatusAlreadyProcessed, Serials: serials}
			return nil
		}

		serials, collisions, err := s.createSerials(tx, order)
		if err != nil {
			return err
		}
		now := s.now()
		if _, err := orderRepo.MarkFulfilled(order.ID, now); err != nil {
			return err
		}
		order.FulfillmentStatus = constants.FulfillmentStatusFulfilled
		order.FulfilledAt = &now

		status := AssignmentStatusAssigned
		if len(serials) == 0 {
			status = AssignmentStatusNoSaddleItems
		}
		result = &AssignmentResult{Order: order, Status: status, Serials: serials, Collisions: collisions}
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrOrderNotFound) {
			log.Warnw("serial_assign_order_not_found")
			return nil, ErrOrderNotFound
		}
		log.Errorw("serial_assign_failed", "error", err)
		if errors.Is(err, ErrPersistence) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: assign serials: %v", ErrPersistence, err)
	}

	switch result.Status {
	case AssignmentStatusAlreadyProcessed:
		log.Infow("serial_assign_already_processed", "order_id", result.Order.ID, "serials", len(result.Serials))
	case AssignmentStatusNoSaddleItems:
		log.Infow("serial_assign_no_saddle_items", "order_id", result.Order.ID)
	default:
		log.Infow("serials_assigned",
			"order_id", result.Order.ID,
			"order_number", result.Order.OrderNumber,
			"serials", len(result.Serials),
			"collisions", result.Collisions,
		)
		s.publishAssigned(ctx, result)
	}
	return result, nil
}

func (s *AssignmentService) acquire(ctx context.Context, key string) (func(), error) {
	if s.locker == nil {
		return func() {}, nil
	}
	lockCtx, cancel := context.WithTimeout(ctx, s.lockWait)
	defer cancel()
	release, err := s.locker.Acquire(lockCtx, key)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrAssignmentBusy, err)
	}
	return release, nil
}

// createSerials 逐件写入序列号；每次写入在保存点内执行，唯一约束冲突时回滚保存点并换一个候选值
func (s *AssignmentService) createSerials(tx *gorm.DB, order *models.Order) ([]models.SerialNumber, int, error) {
	serials := make([]models.SerialNumber, 0, order.RequiredSerialCount())
	collisions := 0
	for _, item := range order.SaddleLineItems() {
		for unit := 0; unit < item.Quantity; unit++ {
			serial, retried, err := s.createOne(tx, order, item)
			collisions += retried
			if err != nil {
				return nil, collisions, err
			}
			serials = append(serials, *serial)
		}
	}
	return serials, collisions, nil
}

func (s *AssignmentService) createOne(tx *gorm.DB, order *models.Order, item models.LineItem) (*models.SerialNumber, int, error) {
	collisions := 0
	for attempt := 1; attempt <= s.maxAttempts; attempt++ {
		value, err := s.generator.Next()
		if err != nil {
			return nil, collisions, err
		}
		serial := &models.SerialNumber{
			LineItemID:  item.ID,
			OrderID:     order.ID,
			ShopDomain:  order.ShopDomain,
			SerialValue: value,
			Status:      constants.SerialStatusAssigned,
			CreatedAt:   s.now(),
		}
		err = tx.Transaction(func(sp *gorm.DB) error {
			return s.serialRepo.WithTx(sp).Create(serial)
		})
		if err == nil {
			return serial, collisions, nil
		}
		if !repository.IsUniqueViolation(err) {
			return nil, collisions, err
		}
		collisions++
		logger.Debugw("serial_value_collision",
			"order_id", order.ID,
			"line_item_id", item.ID,
			"attempt", attempt,
		)
	}
	return nil, collisions, fmt.Errorf("%w: %w after %d attempts", ErrPersistence, ErrSerialAttemptsExhausted, s.maxAttempts)
}

func (s *AssignmentService) publishAssigned(ctx context.Context, result *AssignmentResult) {
	if s.publisher == nil || result == nil || result.Order == nil {
		return
	}
	values := make([]string, 0, len(result.Serials))
	for _, serial := range result.Serials {
		values = append(values, serial.SerialValue)
	}
	payload := SerialsAssignedPayload{
		ShopDomain:      result.Order.ShopDomain,
		OrderID:         result.Order.ID,
		ExternalOrderID: result.Order.ExternalOrderID,
		OrderNumber:     result.Order.OrderNumber,
		SerialValues:    values,
	}
	key := result.Order.ShopDomain + ":" + result.Order.ExternalOrderID
	if err := s.publisher.Publish(ctx, constants.EventSerialsAssigned, key, payload); err != nil {
		logger.FromContext(ctx).Warnw("serials_assigned_publish_failed",
			"order_id", result.Order.ID,
			"error", err,
		)
	}
}
