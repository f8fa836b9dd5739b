// internal/service/order/infrastructure/gorm_repository.go
package infrastructure

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"gorm.io/gorm"

	"ordermesh/internal/service/order/domain"
)

// GormOrderRepository 是 domain.OrderRepository 的 GORM/MySQL 实现。
// 事件通过同事务的 outbox 行落库，发布由 OutboxRelay 负责。
type GormOrderRepository struct {
	db *gorm.DB
}

func NewGormOrderRepository(db *gorm.DB) *GormOrderRepository {
	return &GormOrderRepository{db: db}
}

func insertOutbox(tx *gorm.DB, events []domain.Event) error {
	for _, event := range events {
		row, err := ToOutboxModel(event)
		if err != nil {
			return err
		}
		if err := tx.Create(row).Error; err != nil {
			return errors.Wrap(err, "insert outbox row")
		}
	}
	return nil
}

// CreateWithEvents 在一个事务里插入订单、订单行和 outbox 行。
// 任何一步失败整个事务回滚，不会出现半个订单或孤儿事件。
func (r *GormOrderRepository) CreateWithEvents(ctx context.Context, order *domain.Order, events []domain.Event) error {
	model := ToOrderModel(order)
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(model).Error; err != nil {
			return errors.Wrap(err, "insert order")
		}
		return insertOutbox(tx, events)
	})
}

// UpdateWithEvents 以乐观锁保存订单：UPDATE ... WHERE id = ? AND version = ?。
// 没有命中任何行说明版本已过期，返回 domain.ErrVersionConflict。
// 订单行全量替换，事件写入 outbox，全部在一个事务里。
func (r *GormOrderRepository) UpdateWithEvents(ctx context.Context, order *domain.Order, events []domain.Event) error {
	model := ToOrderModel(order)
	newVersion := order.Version + 1

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&OrderModel{}).
			Where("id = ? AND version = ?", model.ID, model.Version).
			Updates(map[string]interface{}{
				"status":           model.Status,
				"sub_total":        model.SubTotal,
				"discount_amount":  model.DiscountAmount,
				"tax_amount":       model.TaxAmount,
				"shipping_cost":    model.ShippingCost,
				"total_amount":     model.TotalAmount,
				"notes":            model.Notes,
				"ship_line1":       model.ShipLine1,
				"ship_line2":       model.ShipLine2,
				"ship_city":        model.ShipCity,
				"ship_state":       model.ShipState,
				"ship_postal_code": model.ShipPostalCode,
				"ship_country":     model.ShipCountry,
				"version":          newVersion,
				"updated_at":       model.UpdatedAt,
			})
		if res.Error != nil {
			return errors.Wrap(res.Error, "update order")
		}
		if res.RowsAffected == 0 {
			return domain.ErrVersionConflict
		}

		// 订单行全量替换：行数少、改动频率低，diff 不值得
		if err := tx.Where("order_id = ?", model.ID).Delete(&OrderItemModel{}).Error; err != nil {
			return errors.Wrap(err, "delete old order items")
		}
		if len(model.Items) > 0 {
			if err := tx.Create(&model.Items).Error; err != nil {
				return errors.Wrap(err, "insert order items")
			}
		}
		return insertOutbox(tx, events)
	})
	if err != nil {
		return err
	}
	order.Version = newVersion
	return nil
}

// DeleteWithEvents 物理删除订单和订单行，同事务写入取消事件。
func (r *GormOrderRepository) DeleteWithEvents(ctx context.Context, order *domain.Order, events []domain.Event) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("order_id = ?", order.ID).Delete(&OrderItemModel{}).Error; err != nil {
			return errors.Wrap(err, "delete order items")
		}
		res := tx.Where("id = ? AND version = ?", order.ID, order.Version).Delete(&OrderModel{})
		if res.Error != nil {
			return errors.Wrap(res.Error, "delete order")
		}
		if res.RowsAffected == 0 {
			return domain.ErrVersionConflict
		}
		return insertOutbox(tx, events)
	})
}

// FindByID 加载完整聚合（含订单行）。
func (r *GormOrderRepository) FindByID(ctx context.Context, id string) (*domain.Order, error) {
	var model OrderModel
	err := r.db.WithContext(ctx).Preload("Items").Where("id = ?", id).First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrOrderNotFound
		}
		return nil, errors.Wrap(err, "find order")
	}
	return ToDomainOrder(&model), nil
}

// Search 按条件分页查询，按下单时间倒序。
func (r *GormOrderRepository) Search(ctx context.Context, query domain.OrderQuery) ([]*domain.Order, int64, error) {
	db := r.db.WithContext(ctx).Model(&OrderModel{})
	if query.CustomerID != "" {
		db = db.Where("customer_id = ?", query.CustomerID)
	}
	if query.Status != "" {
		db = db.Where("status = ?", string(query.Status))
	}
	if query.FromDate != nil {
		db = db.Where("order_date >= ?", *query.FromDate)
	}
	if query.ToDate != nil {
		db = db.Where("order_date <= ?", *query.ToDate)
	}
	if query.OrderNumber != "" {
		db = db.Where("order_number = ?", query.OrderNumber)
	}

	var total int64
	if err := db.Count(&total).Error; err != nil {
		return nil, 0, errors.Wrap(err, "count orders")
	}

	var models []OrderModel
	err := db.Preload("Items").
		Order("order_date DESC").
		Offset((query.Page - 1) * query.PageSize).
		Limit(query.PageSize).
		Find(&models).Error
	if err != nil {
		return nil, 0, errors.Wrap(err, "search orders")
	}

	orders := make([]*domain.Order, len(models))
	for i := range models {
		orders[i] = ToDomainOrder(&models[i])
	}
	return orders, total, nil
}

// --- outbox 查询，供 OutboxRelay 使用 ---

// FetchPendingOutbox 取一批未发送的 outbox 行，按插入顺序。
func (r *GormOrderRepository) FetchPendingOutbox(ctx context.Context, limit int) ([]OutboxModel, error) {
	var rows []OutboxModel
	err := r.db.WithContext(ctx).
		Where("sent_at IS NULL").
		Order("id ASC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, errors.Wrap(err, "fetch pending outbox rows")
	}
	return rows, nil
}

// MarkOutboxSent 标记一行已发布。
func (r *GormOrderRepository) MarkOutboxSent(ctx context.Context, id uint64) error {
	now := time.Now()
	return r.db.WithContext(ctx).
		Model(&OutboxModel{}).
		Where("id = ?", id).
		Update("sent_at", now).Error
}

// CountPendingOutbox 统计积压行数，用于指标上报。
func (r *GormOrderRepository) CountPendingOutbox(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&OutboxModel{}).
		Where("sent_at IS NULL").
		Count(&count).Error
	return count, err
}
