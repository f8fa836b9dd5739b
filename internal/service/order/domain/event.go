// internal/service/order/domain/event.go
package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Kafka topic 按事件类型划分，key 统一用 orderId 保证单订单事件有序。
const (
	TopicOrderCreated       = "orders.created"
	TopicOrderStatusUpdated = "orders.status.updated"
	TopicOrderCancelled     = "orders.cancelled"
)

const (
	EventTypeOrderCreated       = "OrderCreated"
	EventTypeOrderStatusUpdated = "OrderStatusUpdated"
	EventTypeOrderCancelled     = "OrderCancelled"
)

// Event 是所有领域事件的公共契约，outbox 持久化和 relay 路由都依赖它。
type Event interface {
	GetEventID() string
	EventType() string
	Topic() string
	// Key 是 Kafka 分区 key。
	Key() string
}

// EventItem 是事件载荷里的订单行投影，库存台账按它扣减。
type EventItem struct {
	ProductID string          `json:"productId"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unitPrice"`
}

// OrderCreatedEvent 在订单创建事务提交后（经由 outbox）发布。
type OrderCreatedEvent struct {
	EventID     string      `json:"eventId"`
	OrderID     string      `json:"orderId"`
	OrderNumber string      `json:"orderNumber"`
	CustomerID  string      `json:"customerId"`
	Items       []EventItem `json:"items"`
	OccurredAt  time.Time   `json:"occurredAt"`
}

func (e OrderCreatedEvent) GetEventID() string { return e.EventID }
func (e OrderCreatedEvent) EventType() string  { return EventTypeOrderCreated }
func (e OrderCreatedEvent) Topic() string      { return TopicOrderCreated }
func (e OrderCreatedEvent) Key() string        { return e.OrderID }

// OrderStatusUpdatedEvent 在每次成功的状态流转后发布，恰好一次写入 outbox。
type OrderStatusUpdatedEvent struct {
	EventID        string    `json:"eventId"`
	OrderID        string    `json:"orderId"`
	OrderNumber    string    `json:"orderNumber"`
	CustomerID     string    `json:"customerId"`
	PreviousStatus Status    `json:"previousStatus"`
	NewStatus      Status    `json:"newStatus"`
	Reason         string    `json:"reason,omitempty"`
	OccurredAt     time.Time `json:"occurredAt"`
}

func (e OrderStatusUpdatedEvent) GetEventID() string { return e.EventID }
func (e OrderStatusUpdatedEvent) EventType() string  { return EventTypeOrderStatusUpdated }
func (e OrderStatusUpdatedEvent) Topic() string      { return TopicOrderStatusUpdated }
func (e OrderStatusUpdatedEvent) Key() string        { return e.OrderID }

// OrderCancelledEvent 在订单被删除（Pending 硬删）或取消时发布。
// 携带订单行，库存台账据此回补扣减。
type OrderCancelledEvent struct {
	EventID    string      `json:"eventId"`
	OrderID    string      `json:"orderId"`
	CustomerID string      `json:"customerId"`
	Items      []EventItem `json:"items"`
	Reason     string      `json:"reason,omitempty"`
	OccurredAt time.Time   `json:"occurredAt"`
}

func (e OrderCancelledEvent) GetEventID() string { return e.EventID }
func (e OrderCancelledEvent) EventType() string  { return EventTypeOrderCancelled }
func (e OrderCancelledEvent) Topic() string      { return TopicOrderCancelled }
func (e OrderCancelledEvent) Key() string        { return e.OrderID }

// EventItemsFromOrder 把订单行投影成事件载荷。
func EventItemsFromOrder(o *Order) []EventItem {
	items := make([]EventItem, len(o.Items))
	for i, item := range o.Items {
		items[i] = EventItem{
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice,
		}
	}
	return items
}
