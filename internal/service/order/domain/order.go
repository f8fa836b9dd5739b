// internal/service/order/domain/order.go
package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// ShippingAddress 是订单上的收货地址快照。
type ShippingAddress struct {
	Line1      string
	Line2      string
	City       string
	State      string
	PostalCode string
	Country    string
}

// OrderItem 是订单行。ProductName/ProductSKU/UnitPrice 是下单时刻的快照，
// 商品后续改名、改价都不影响已有订单。
type OrderItem struct {
	ID          string
	ProductID   string
	ProductName string
	ProductSKU  string
	Quantity    int
	UnitPrice   decimal.Decimal
	Discount    decimal.Decimal
	TotalPrice  decimal.Decimal
}

// Order 是订单聚合的根实体。
// 金额字段永远由 RecalculateTotals 从订单行推导，不允许外部直接赋值。
type Order struct {
	ID          string
	CustomerID  string
	OrderNumber string
	Status      Status
	OrderDate   time.Time

	SubTotal       decimal.Decimal
	DiscountAmount decimal.Decimal
	TaxAmount      decimal.Decimal
	ShippingCost   decimal.Decimal
	TotalAmount    decimal.Decimal

	Notes           string
	ShippingAddress ShippingAddress
	Items           []OrderItem

	// Version 是乐观锁版本号，每次持久化成功后 +1。
	Version   int64
	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewOrder 是订单的工厂函数。订单号由 NewOrderNumber 生成，初始状态 Pending。
// items 必须已经带好商品快照。
func NewOrder(id, customerID string, items []OrderItem, addr ShippingAddress, notes string, now time.Time) (*Order, error) {
	if customerID == "" {
		return nil, NewValidationError("customerId", "customer id is required")
	}
	if err := validateItems(items); err != nil {
		return nil, err
	}

	return &Order{
		ID:              id,
		CustomerID:      customerID,
		OrderNumber:     NewOrderNumber(now),
		Status:          StatusPending,
		OrderDate:       now,
		Notes:           notes,
		ShippingAddress: addr,
		Items:           items,
		Version:         1,
		CreatedAt:       now,
		UpdatedAt:       now,
	}, nil
}

func validateItems(items []OrderItem) error {
	if len(items) == 0 {
		return NewValidationError("items", "order must contain at least one item")
	}
	seen := make(map[string]bool, len(items))
	for _, item := range items {
		if item.ProductID == "" {
			return NewValidationError("items.productId", "product id is required")
		}
		if item.Quantity <= 0 {
			return NewValidationError("items.quantity", "quantity must be greater than zero")
		}
		if item.UnitPrice.IsNegative() {
			return NewValidationError("items.unitPrice", "unit price must not be negative")
		}
		if seen[item.ProductID] {
			return NewValidationError("items.productId", "duplicate product id: "+item.ProductID)
		}
		seen[item.ProductID] = true
	}
	return nil
}

// lines 把订单行投影为金额计算的输入。
func (o *Order) lines() []LineAmount {
	lines := make([]LineAmount, len(o.Items))
	for i, item := range o.Items {
		lines[i] = LineAmount{Quantity: item.Quantity, UnitPrice: item.UnitPrice, Discount: item.Discount}
	}
	return lines
}

// ApplyDiscountRate 按订单级折扣率给每一行分摊折扣金额。
// rate 为 0 时清空已有折扣。必须在 RecalculateTotals 之前调用。
func (o *Order) ApplyDiscountRate(rate decimal.Decimal) {
	for i := range o.Items {
		gross := o.Items[i].UnitPrice.Mul(decimal.NewFromInt(int64(o.Items[i].Quantity))).Round(2)
		o.Items[i].Discount = gross.Mul(rate).Round(2)
	}
}

// RecalculateTotals 从订单行重新推导全部金额字段。
// 任何修改订单行的路径都必须在持久化前调用它，保证
// totalAmount == subTotal + taxAmount + shippingCost 恒成立。
func (o *Order) RecalculateTotals(policy PricingPolicy) {
	for i := range o.Items {
		o.Items[i].TotalPrice = LineTotal(LineAmount{
			Quantity:  o.Items[i].Quantity,
			UnitPrice: o.Items[i].UnitPrice,
			Discount:  o.Items[i].Discount,
		})
	}
	totals := ComputeTotals(o.lines(), policy)
	o.SubTotal = totals.SubTotal
	o.DiscountAmount = totals.DiscountAmount
	o.TaxAmount = totals.TaxAmount
	o.ShippingCost = totals.ShippingCost
	o.TotalAmount = totals.TotalAmount
}

// UpdateItems 对订单行做差量更新：
// 不在 newItems 里的行删除；productId 相同的行只更新数量（保留下单时的快照价格）；
// 新出现的行必须已带好商品快照。
// 只有 Pending 状态的订单允许修改。
func (o *Order) UpdateItems(newItems []OrderItem, now time.Time) error {
	if o.Status != StatusPending {
		return NewBusinessRuleError("order.immutable",
			"only pending orders can be modified, current status: "+string(o.Status))
	}
	if err := validateItems(newItems); err != nil {
		return err
	}

	existing := make(map[string]OrderItem, len(o.Items))
	for _, item := range o.Items {
		existing[item.ProductID] = item
	}

	merged := make([]OrderItem, 0, len(newItems))
	for _, incoming := range newItems {
		if current, ok := existing[incoming.ProductID]; ok {
			// 已有行：保留行 ID 和快照，只接受数量变化
			current.Quantity = incoming.Quantity
			merged = append(merged, current)
		} else {
			merged = append(merged, incoming)
		}
	}
	o.Items = merged
	o.UpdatedAt = now
	return nil
}

// ChangeStatus 按状态流转表推进状态，返回旧状态用于事件发布。
func (o *Order) ChangeStatus(to Status, now time.Time) (Status, error) {
	if !ValidStatus(to) {
		return o.Status, NewValidationError("status", "unknown status: "+string(to))
	}
	if !CanTransition(o.Status, to) {
		return o.Status, &InvalidStateError{From: o.Status, To: to}
	}
	prev := o.Status
	o.Status = to
	o.UpdatedAt = now
	return prev, nil
}

// EnsureDeletable 校验订单是否允许被物理删除。只有 Pending 状态可以删。
func (o *Order) EnsureDeletable() error {
	if o.Status != StatusPending {
		return NewBusinessRuleError("order.undeletable",
			"only pending orders can be deleted, current status: "+string(o.Status))
	}
	return nil
}
