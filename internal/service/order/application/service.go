// internal/service/order/application/service.go
package application

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"ordermesh/internal/pkg/logger"
	"ordermesh/internal/pkg/metrics"
	"ordermesh/internal/service/order/domain"
	"ordermesh/internal/service/order/domain/port"
)

// OrderApplicationService 是订单工作流的编排器。
// 它协调商品查询、库存校验、聚合构建、事务持久化和事件写出（outbox），
// 自己不包含任何传输层或存储层细节。
type OrderApplicationService struct {
	orderRepo       domain.OrderRepository
	productService  port.ProductService
	customerService port.CustomerService
	discountEngine  port.DiscountEngine
	locker          port.OrderLocker

	pricing     domain.PricingPolicy
	callTimeout time.Duration
	tracer      trace.Tracer
	now         func() time.Time
}

func NewOrderApplicationService(
	orderRepo domain.OrderRepository,
	productService port.ProductService,
	customerService port.CustomerService,
	discountEngine port.DiscountEngine,
	locker port.OrderLocker,
	pricing domain.PricingPolicy,
	callTimeout time.Duration,
	tracer trace.Tracer,
) *OrderApplicationService {
	return &OrderApplicationService{
		orderRepo:       orderRepo,
		productService:  productService,
		customerService: customerService,
		discountEngine:  discountEngine,
		locker:          locker,
		pricing:         pricing,
		callTimeout:     callTimeout,
		tracer:          tracer,
		now:             time.Now,
	}
}

// CreateOrder 创建订单：
//  1. 入参校验（任何 I/O 之前）
//  2. 客户存在性校验（服务不可达时放行并告警，明确不存在时拒绝）
//  3. 批量拉取商品并校验库存（整单成败，不做部分履约）
//  4. 快照商品信息，构建聚合并计算金额
//  5. 订单 + 订单行 + 事件 outbox 行在同一个数据库事务里落库
//
// 事件的实际发布由 outbox relay 在事务提交后异步完成，
// 因此发布失败永远不会回滚订单，也不会丢事件。
func (s *OrderApplicationService) CreateOrder(ctx context.Context, req *CreateOrderRequest) (*OrderResponse, error) {
	ctx, span := s.tracer.Start(ctx, "order.CreateOrder")
	defer span.End()
	span.SetAttributes(
		attribute.String("customer.id", req.CustomerID),
		attribute.Int("order.item_count", len(req.Items)),
	)

	if err := validateItemRequests(req.CustomerID, req.Items); err != nil {
		metrics.OrdersFailed.WithLabelValues("create", "validation").Inc()
		return nil, err
	}

	if err := s.checkCustomerExists(ctx, req.CustomerID); err != nil {
		metrics.OrdersFailed.WithLabelValues("create", "customer").Inc()
		span.RecordError(err)
		return nil, err
	}

	products, err := s.resolveProducts(ctx, productIDs(req.Items))
	if err != nil {
		metrics.OrdersFailed.WithLabelValues("create", "product").Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, "product resolution failed")
		return nil, err
	}

	// 库存校验基于商品服务的一次性读取，真正的扣减由库存台账
	// 在消费 OrderCreated 事件时异步执行。并发下单可能超卖，
	// 由台账侧的对账指标兜底。
	items := make([]domain.OrderItem, 0, len(req.Items))
	for _, reqItem := range req.Items {
		product := products[reqItem.ProductID]
		if !product.IsActive {
			metrics.OrdersFailed.WithLabelValues("create", "inactive_product").Inc()
			return nil, domain.NewBusinessRuleError("product.inactive",
				"product "+product.ID+" is not available for ordering")
		}
		if product.Stock < reqItem.Quantity {
			metrics.OrdersFailed.WithLabelValues("create", "stock").Inc()
			return nil, &domain.InsufficientStockError{
				ProductID: product.ID,
				Available: product.Stock,
				Requested: reqItem.Quantity,
			}
		}
		items = append(items, snapshotItem(product, reqItem.Quantity))
	}

	now := s.now()
	order, err := domain.NewOrder(uuid.New().String(), req.CustomerID, items, req.ShippingAddress.toDomain(), req.Notes, now)
	if err != nil {
		return nil, err
	}

	if err := s.applyDiscount(ctx, order); err != nil {
		span.RecordError(err)
		return nil, err
	}
	order.RecalculateTotals(s.pricing)

	created := domain.OrderCreatedEvent{
		EventID:     uuid.New().String(),
		OrderID:     order.ID,
		OrderNumber: order.OrderNumber,
		CustomerID:  order.CustomerID,
		Items:       domain.EventItemsFromOrder(order),
		OccurredAt:  now,
	}
	if err := s.orderRepo.CreateWithEvents(ctx, order, []domain.Event{created}); err != nil {
		metrics.OrdersFailed.WithLabelValues("create", "persistence").Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to persist order")
		return nil, err
	}

	metrics.OrdersCreated.Inc()
	logger.Ctx(ctx).Info().
		Str("order_id", order.ID).
		Str("order_number", order.OrderNumber).
		Str("total", order.TotalAmount.String()).
		Msg("order created")
	span.AddEvent("Order persisted with outbox event.")
	return FromOrder(order), nil
}

// UpdateOrder 更新订单。整个操作要求订单处于 Pending 状态：
// 非 Pending 订单无论 patch 内容是什么都直接拒绝。
// 乐观锁版本校验保证同一订单的并发更新恰好一个成功。
func (s *OrderApplicationService) UpdateOrder(ctx context.Context, orderID string, req *UpdateOrderRequest) (*OrderResponse, error) {
	ctx, span := s.tracer.Start(ctx, "order.UpdateOrder")
	defer span.End()
	span.SetAttributes(attribute.String("order.id", orderID))

	release, err := s.locker.Acquire(ctx, orderID)
	if err != nil {
		return nil, &domain.UnavailableError{Service: "order-lock", Err: err}
	}
	defer release()

	order, err := s.orderRepo.FindByID(ctx, orderID)
	if err != nil {
		metrics.OrdersFailed.WithLabelValues("update", "not_found").Inc()
		return nil, err
	}

	if order.Status != domain.StatusPending {
		metrics.OrdersFailed.WithLabelValues("update", "state").Inc()
		return nil, domain.NewBusinessRuleError("order.immutable",
			"only pending orders can be updated, current status: "+string(order.Status))
	}

	now := s.now()
	var events []domain.Event

	if req.Items != nil {
		if err := validateItemRequests(order.CustomerID, req.Items); err != nil {
			return nil, err
		}
		products, err := s.resolveProducts(ctx, productIDs(req.Items))
		if err != nil {
			span.RecordError(err)
			return nil, err
		}
		// 已有行保留下单时的快照，只有新增的行取当前商品信息
		newItems := make([]domain.OrderItem, 0, len(req.Items))
		for _, reqItem := range req.Items {
			newItems = append(newItems, snapshotItem(products[reqItem.ProductID], reqItem.Quantity))
		}
		if err := order.UpdateItems(newItems, now); err != nil {
			return nil, err
		}
		if err := s.applyDiscount(ctx, order); err != nil {
			span.RecordError(err)
			return nil, err
		}
		order.RecalculateTotals(s.pricing)
	}

	if req.Notes != nil {
		order.Notes = *req.Notes
		order.UpdatedAt = now
	}

	if req.Status != nil && *req.Status != order.Status {
		prev, err := order.ChangeStatus(*req.Status, now)
		if err != nil {
			metrics.OrdersFailed.WithLabelValues("update", "transition").Inc()
			return nil, err
		}
		events = append(events, s.statusEvents(order, prev, req.Reason, now)...)
	}

	if err := s.orderRepo.UpdateWithEvents(ctx, order, events); err != nil {
		if errors.Is(err, domain.ErrVersionConflict) {
			metrics.OrdersFailed.WithLabelValues("update", "conflict").Inc()
		}
		span.RecordError(err)
		return nil, err
	}

	logger.Ctx(ctx).Info().Str("order_id", order.ID).Msg("order updated")
	return FromOrder(order), nil
}

// ChangeOrderStatus 是独立的状态流转入口（确认、发货、送达、取消）。
// 它不受 Pending 门限限制，只受状态流转表约束。
func (s *OrderApplicationService) ChangeOrderStatus(ctx context.Context, orderID string, req *ChangeStatusRequest) (*OrderResponse, error) {
	ctx, span := s.tracer.Start(ctx, "order.ChangeOrderStatus")
	defer span.End()
	span.SetAttributes(
		attribute.String("order.id", orderID),
		attribute.String("order.target_status", string(req.Status)),
	)

	release, err := s.locker.Acquire(ctx, orderID)
	if err != nil {
		return nil, &domain.UnavailableError{Service: "order-lock", Err: err}
	}
	defer release()

	order, err := s.orderRepo.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	prev, err := order.ChangeStatus(req.Status, now)
	if err != nil {
		metrics.OrdersFailed.WithLabelValues("status", "transition").Inc()
		span.RecordError(err)
		return nil, err
	}

	events := s.statusEvents(order, prev, req.Reason, now)
	if err := s.orderRepo.UpdateWithEvents(ctx, order, events); err != nil {
		span.RecordError(err)
		return nil, err
	}

	logger.Ctx(ctx).Info().
		Str("order_id", order.ID).
		Str("from", string(prev)).
		Str("to", string(order.Status)).
		Msg("order status changed")
	return FromOrder(order), nil
}

// DeleteOrder 物理删除 Pending 订单，并通过 outbox 发布取消事件
// 让库存台账回补预扣的数量。
func (s *OrderApplicationService) DeleteOrder(ctx context.Context, orderID string) error {
	ctx, span := s.tracer.Start(ctx, "order.DeleteOrder")
	defer span.End()
	span.SetAttributes(attribute.String("order.id", orderID))

	release, err := s.locker.Acquire(ctx, orderID)
	if err != nil {
		return &domain.UnavailableError{Service: "order-lock", Err: err}
	}
	defer release()

	order, err := s.orderRepo.FindByID(ctx, orderID)
	if err != nil {
		metrics.OrdersFailed.WithLabelValues("delete", "not_found").Inc()
		return err
	}
	if err := order.EnsureDeletable(); err != nil {
		metrics.OrdersFailed.WithLabelValues("delete", "state").Inc()
		return err
	}

	cancelled := domain.OrderCancelledEvent{
		EventID:    uuid.New().String(),
		OrderID:    order.ID,
		CustomerID: order.CustomerID,
		Items:      domain.EventItemsFromOrder(order),
		Reason:     "order deleted",
		OccurredAt: s.now(),
	}
	if err := s.orderRepo.DeleteWithEvents(ctx, order, []domain.Event{cancelled}); err != nil {
		span.RecordError(err)
		return err
	}

	logger.Ctx(ctx).Info().Str("order_id", order.ID).Msg("order deleted")
	return nil
}

// GetOrder 返回订单读模型。
func (s *OrderApplicationService) GetOrder(ctx context.Context, orderID string) (*OrderResponse, error) {
	ctx, span := s.tracer.Start(ctx, "order.GetOrder")
	defer span.End()

	order, err := s.orderRepo.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	return FromOrder(order), nil
}

// ListOrders 分页查询订单。
func (s *OrderApplicationService) ListOrders(ctx context.Context, req *ListOrdersRequest) (*ListOrdersResponse, error) {
	ctx, span := s.tracer.Start(ctx, "order.ListOrders")
	defer span.End()

	query := domain.OrderQuery{
		Page:        req.Page,
		PageSize:    req.PageSize,
		CustomerID:  req.CustomerID,
		FromDate:    req.FromDate,
		ToDate:      req.ToDate,
		OrderNumber: req.OrderNumber,
	}
	if req.Status != "" {
		status := domain.Status(req.Status)
		if !domain.ValidStatus(status) {
			return nil, domain.NewValidationError("status", "unknown status: "+req.Status)
		}
		query.Status = status
	}
	if query.Page < 1 {
		query.Page = 1
	}
	if query.PageSize < 1 || query.PageSize > 100 {
		query.PageSize = 20
	}

	orders, total, err := s.orderRepo.Search(ctx, query)
	if err != nil {
		return nil, err
	}

	responses := make([]*OrderResponse, len(orders))
	for i, o := range orders {
		responses[i] = FromOrder(o)
	}
	return &ListOrdersResponse{
		Orders:   responses,
		Page:     query.Page,
		PageSize: query.PageSize,
		Total:    total,
	}, nil
}

// checkCustomerExists 做客户存在性校验。
// 客户服务不可达时选择放行（fail-open）：下单是主链路，
// 不能因为一个辅助校验服务抖动而拒单；明确查到不存在才拒绝。
func (s *OrderApplicationService) checkCustomerExists(ctx context.Context, customerID string) error {
	callCtx, cancel := context.WithTimeout(ctx, s.callTimeout)
	defer cancel()

	exists, err := s.customerService.Exists(callCtx, customerID)
	if err != nil {
		var unavailable *domain.UnavailableError
		if errors.As(err, &unavailable) || errors.Is(err, context.DeadlineExceeded) {
			logger.Ctx(ctx).Warn().Err(err).
				Str("customer_id", customerID).
				Msg("customer service unreachable, proceeding without existence check")
			return nil
		}
		return err
	}
	if !exists {
		return domain.ErrCustomerNotFound
	}
	return nil
}

// resolveProducts 批量拉取商品，返回按 id 索引的映射。
// 返回数量与请求数量不一致时按 NotFound 处理；超时视为商品服务不可用。
func (s *OrderApplicationService) resolveProducts(ctx context.Context, ids []string) (map[string]port.ProductDetails, error) {
	callCtx, cancel := context.WithTimeout(ctx, s.callTimeout)
	defer cancel()

	products, err := s.productService.GetProductsBatch(callCtx, ids)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, &domain.UnavailableError{Service: "product-service", Err: err}
		}
		return nil, err
	}

	byID := make(map[string]port.ProductDetails, len(products))
	for _, p := range products {
		byID[p.ID] = p
	}
	for _, id := range ids {
		if _, ok := byID[id]; !ok {
			return nil, domain.ErrProductNotFound
		}
	}
	return byID, nil
}

// applyDiscount 求值折扣规则并把折扣率分摊到订单行。
// 规则求值失败只告警不拒单。
func (s *OrderApplicationService) applyDiscount(ctx context.Context, order *domain.Order) error {
	subtotal := decimal.Zero
	for _, item := range order.Items {
		subtotal = subtotal.Add(item.UnitPrice.Mul(decimal.NewFromInt(int64(item.Quantity))))
	}

	fact := port.DiscountFact{
		CustomerID: order.CustomerID,
		Subtotal:   subtotal.InexactFloat64(),
		ItemCount:  int64(len(order.Items)),
	}
	rate, err := s.discountEngine.Rate(ctx, fact)
	if err != nil {
		logger.Ctx(ctx).Warn().Err(err).Msg("discount rule evaluation failed, applying no discount")
		rate = decimal.Zero
	}
	order.ApplyDiscountRate(rate)
	return nil
}

// statusEvents 构造状态流转相关的事件。
// 流转到 Cancelled 时额外发布取消事件，用于库存回补。
func (s *OrderApplicationService) statusEvents(order *domain.Order, prev domain.Status, reason string, now time.Time) []domain.Event {
	events := []domain.Event{domain.OrderStatusUpdatedEvent{
		EventID:        uuid.New().String(),
		OrderID:        order.ID,
		OrderNumber:    order.OrderNumber,
		CustomerID:     order.CustomerID,
		PreviousStatus: prev,
		NewStatus:      order.Status,
		Reason:         reason,
		OccurredAt:     now,
	}}
	if order.Status == domain.StatusCancelled {
		events = append(events, domain.OrderCancelledEvent{
			EventID:    uuid.New().String(),
			OrderID:    order.ID,
			CustomerID: order.CustomerID,
			Items:      domain.EventItemsFromOrder(order),
			Reason:     reason,
			OccurredAt: now,
		})
	}
	return events
}

func validateItemRequests(customerID string, items []ItemRequest) error {
	if customerID == "" {
		return domain.NewValidationError("customerId", "customer id is required")
	}
	if len(items) == 0 {
		return domain.NewValidationError("items", "order must contain at least one item")
	}
	for _, item := range items {
		if item.ProductID == "" {
			return domain.NewValidationError("items.productId", "product id is required")
		}
		if item.Quantity <= 0 {
			return domain.NewValidationError("items.quantity", "quantity must be greater than zero")
		}
	}
	return nil
}

func productIDs(items []ItemRequest) []string {
	ids := make([]string, 0, len(items))
	seen := make(map[string]bool, len(items))
	for _, item := range items {
		if !seen[item.ProductID] {
			seen[item.ProductID] = true
			ids = append(ids, item.ProductID)
		}
	}
	return ids
}

func snapshotItem(product port.ProductDetails, quantity int) domain.OrderItem {
	return domain.OrderItem{
		ID:          uuid.New().String(),
		ProductID:   product.ID,
		ProductName: product.Name,
		ProductSKU:  product.SKU,
		Quantity:    quantity,
		UnitPrice:   product.Price,
	}
}
