// internal/service/product/application/service.go
package application

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"ordermesh/internal/pkg/logger"
	"ordermesh/internal/pkg/metrics"
	"ordermesh/internal/service/product/domain"
)

// ProductApplicationService 承载商品查询和库存台账两类用例。
// 查询走 HTTP，台账变更只由订单事件驱动。
type ProductApplicationService struct {
	repo domain.ProductRepository
}

func NewProductApplicationService(repo domain.ProductRepository) *ProductApplicationService {
	return &ProductApplicationService{repo: repo}
}

// ProductView 是对外暴露的商品读模型。
type ProductView struct {
	ID           string          `json:"id"`
	Name         string          `json:"name"`
	SKU          string          `json:"sku"`
	Price        decimal.Decimal `json:"price"`
	Stock        int             `json:"stock"`
	MinimumStock int             `json:"minimumStock"`
	IsActive     bool            `json:"isActive"`
}

func viewOf(p *domain.Product) ProductView {
	return ProductView{
		ID:           p.ID,
		Name:         p.Name,
		SKU:          p.SKU,
		Price:        p.Price,
		Stock:        p.Stock,
		MinimumStock: p.MinimumStock,
		IsActive:     p.IsActive,
	}
}

// GetProduct 按 id 查询单个商品。
func (s *ProductApplicationService) GetProduct(ctx context.Context, id string) (*ProductView, error) {
	p, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	v := viewOf(p)
	return &v, nil
}

// GetProductsBatch 批量查询。只返回存在的商品，缺失的 id 由调用方
// 通过数量对比识别，这里不报错。
func (s *ProductApplicationService) GetProductsBatch(ctx context.Context, ids []string) ([]ProductView, error) {
	products, err := s.repo.FindByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	views := make([]ProductView, len(products))
	for i, p := range products {
		views[i] = viewOf(p)
	}
	return views, nil
}

// StockMovementItem 是订单事件载荷里的行投影。
type StockMovementItem struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
}

// OrderCreatedMessage 是台账对 OrderCreated 事件的消费视图，
// 只解码自己关心的字段。
type OrderCreatedMessage struct {
	EventID    string              `json:"eventId"`
	OrderID    string              `json:"orderId"`
	Items      []StockMovementItem `json:"items"`
	OccurredAt time.Time           `json:"occurredAt"`
}

// OrderCancelledMessage 是台账对 OrderCancelled 事件的消费视图。
type OrderCancelledMessage struct {
	EventID    string              `json:"eventId"`
	OrderID    string              `json:"orderId"`
	Items      []StockMovementItem `json:"items"`
	OccurredAt time.Time           `json:"occurredAt"`
}

// ApplyOrderCreated 按订单行逐项扣减库存。
// 扣减是无条件的：库存可以为负，超卖记入指标供对账；
// 扣减后跌破安全水位时打印告警日志。
func (s *ProductApplicationService) ApplyOrderCreated(ctx context.Context, msg OrderCreatedMessage) error {
	for _, item := range msg.Items {
		product, err := s.repo.AdjustStock(ctx, item.ProductID, -item.Quantity)
		if err != nil {
			return err
		}
		metrics.StockDecrements.Inc()
		s.observe(ctx, msg.OrderID, product, -item.Quantity)
	}
	return nil
}

// ApplyOrderCancelled 回补已取消订单占用的库存。
func (s *ProductApplicationService) ApplyOrderCancelled(ctx context.Context, msg OrderCancelledMessage) error {
	for _, item := range msg.Items {
		if _, err := s.repo.AdjustStock(ctx, item.ProductID, item.Quantity); err != nil {
			return err
		}
	}
	return nil
}

func (s *ProductApplicationService) observe(ctx context.Context, orderID string, product *domain.Product, delta int) {
	if product.Oversold() {
		metrics.StockOversold.Inc()
		logger.Ctx(ctx).Error().
			Str("product_id", product.ID).
			Str("order_id", orderID).
			Int("stock", product.Stock).
			Msg("stock went negative, reconciliation required")
		return
	}
	if product.BelowMinimum() {
		logger.Ctx(ctx).Warn().
			Str("product_id", product.ID).
			Int("stock", product.Stock).
			Int("minimum_stock", product.MinimumStock).
			Int("delta", delta).
			Msg("stock fell below minimum level")
	}
}
