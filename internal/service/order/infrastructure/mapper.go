// internal/service/order/infrastructure/mapper.go
package infrastructure

import (
	"encoding/json"

	"github.com/pkg/errors"

	"ordermesh/internal/service/order/domain"
)

// ToOrderModel 把聚合映射成数据库模型。
func ToOrderModel(o *domain.Order) *OrderModel {
	items := make([]OrderItemModel, len(o.Items))
	for i, item := range o.Items {
		items[i] = OrderItemModel{
			ID:          item.ID,
			OrderID:     o.ID,
			ProductID:   item.ProductID,
			ProductName: item.ProductName,
			ProductSKU:  item.ProductSKU,
			Quantity:    item.Quantity,
			UnitPrice:   item.UnitPrice,
			Discount:    item.Discount,
			TotalPrice:  item.TotalPrice,
		}
	}
	return &OrderModel{
		ID:             o.ID,
		CustomerID:     o.CustomerID,
		OrderNumber:    o.OrderNumber,
		Status:         string(o.Status),
		OrderDate:      o.OrderDate,
		SubTotal:       o.SubTotal,
		DiscountAmount: o.DiscountAmount,
		TaxAmount:      o.TaxAmount,
		ShippingCost:   o.ShippingCost,
		TotalAmount:    o.TotalAmount,
		Notes:          o.Notes,
		ShipLine1:      o.ShippingAddress.Line1,
		ShipLine2:      o.ShippingAddress.Line2,
		ShipCity:       o.ShippingAddress.City,
		ShipState:      o.ShippingAddress.State,
		ShipPostalCode: o.ShippingAddress.PostalCode,
		ShipCountry:    o.ShippingAddress.Country,
		Version:        o.Version,
		CreatedAt:      o.CreatedAt,
		UpdatedAt:      o.UpdatedAt,
		Items:          items,
	}
}

// ToDomainOrder 把数据库模型还原成聚合。
func ToDomainOrder(m *OrderModel) *domain.Order {
	items := make([]domain.OrderItem, len(m.Items))
	for i, item := range m.Items {
		items[i] = domain.OrderItem{
			ID:          item.ID,
			ProductID:   item.ProductID,
			ProductName: item.ProductName,
			ProductSKU:  item.ProductSKU,
			Quantity:    item.Quantity,
			UnitPrice:   item.UnitPrice,
			Discount:    item.Discount,
			TotalPrice:  item.TotalPrice,
		}
	}
	return &domain.Order{
		ID:             m.ID,
		CustomerID:     m.CustomerID,
		OrderNumber:    m.OrderNumber,
		Status:         domain.Status(m.Status),
		OrderDate:      m.OrderDate,
		SubTotal:       m.SubTotal,
		DiscountAmount: m.DiscountAmount,
		TaxAmount:      m.TaxAmount,
		ShippingCost:   m.ShippingCost,
		TotalAmount:    m.TotalAmount,
		Notes:          m.Notes,
		ShippingAddress: domain.ShippingAddress{
			Line1:      m.ShipLine1,
			Line2:      m.ShipLine2,
			City:       m.ShipCity,
			State:      m.ShipState,
			PostalCode: m.ShipPostalCode,
			Country:    m.ShipCountry,
		},
		Version:   m.Version,
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
		Items:     items,
	}
}

// ToOutboxModel 把领域事件序列化成 outbox 行。
func ToOutboxModel(event domain.Event) (*OutboxModel, error) {
	payload, err := json.Marshal(event)
	if err != nil {
		return nil, errors.Wrapf(err, "marshal event %s", event.EventType())
	}
	return &OutboxModel{
		EventID:   event.GetEventID(),
		EventType: event.EventType(),
		Topic:     event.Topic(),
		MsgKey:    event.Key(),
		Payload:   payload,
	}, nil
}
