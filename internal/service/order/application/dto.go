// internal/service/order/application/dto.go
package application

import (
	"time"

	"github.com/shopspring/decimal"

	"ordermesh/internal/service/order/domain"
)

// ItemRequest 是创建/更新订单时的订单行输入。
type ItemRequest struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
}

// AddressRequest 是收货地址输入。
type AddressRequest struct {
	Line1      string `json:"line1"`
	Line2      string `json:"line2,omitempty"`
	City       string `json:"city"`
	State      string `json:"state,omitempty"`
	PostalCode string `json:"postalCode"`
	Country    string `json:"country"`
}

func (a AddressRequest) toDomain() domain.ShippingAddress {
	return domain.ShippingAddress{
		Line1:      a.Line1,
		Line2:      a.Line2,
		City:       a.City,
		State:      a.State,
		PostalCode: a.PostalCode,
		Country:    a.Country,
	}
}

// CreateOrderRequest 是创建订单用例的输入。
type CreateOrderRequest struct {
	CustomerID      string         `json:"customerId"`
	Items           []ItemRequest  `json:"items"`
	ShippingAddress AddressRequest `json:"shippingAddress"`
	Notes           string         `json:"notes,omitempty"`
}

// UpdateOrderRequest 是更新订单用例的输入。nil 字段表示不修改。
type UpdateOrderRequest struct {
	Items  []ItemRequest  `json:"items,omitempty"`
	Status *domain.Status `json:"status,omitempty"`
	Reason string         `json:"reason,omitempty"`
	Notes  *string        `json:"notes,omitempty"`
}

// ChangeStatusRequest 是独立的状态流转入口的输入。
type ChangeStatusRequest struct {
	Status domain.Status `json:"status"`
	Reason string        `json:"reason,omitempty"`
}

// ListOrdersRequest 是分页查询参数。
type ListOrdersRequest struct {
	Page        int
	PageSize    int
	CustomerID  string
	Status      string
	FromDate    *time.Time
	ToDate      *time.Time
	OrderNumber string
}

// ItemResponse 是订单行读模型。
type ItemResponse struct {
	ID          string          `json:"id"`
	ProductID   string          `json:"productId"`
	ProductName string          `json:"productName"`
	ProductSKU  string          `json:"productSku"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unitPrice"`
	Discount    decimal.Decimal `json:"discount"`
	TotalPrice  decimal.Decimal `json:"totalPrice"`
}

// OrderResponse 是订单读模型。商品名/SKU 来自下单时的快照，
// 不做任何事后的商品重查。
type OrderResponse struct {
	ID              string          `json:"id"`
	OrderNumber     string          `json:"orderNumber"`
	CustomerID      string          `json:"customerId"`
	Status          domain.Status   `json:"status"`
	OrderDate       time.Time       `json:"orderDate"`
	SubTotal        decimal.Decimal `json:"subTotal"`
	DiscountAmount  decimal.Decimal `json:"discountAmount"`
	TaxAmount       decimal.Decimal `json:"taxAmount"`
	ShippingCost    decimal.Decimal `json:"shippingCost"`
	TotalAmount     decimal.Decimal `json:"totalAmount"`
	Notes           string          `json:"notes,omitempty"`
	ShippingAddress AddressRequest  `json:"shippingAddress"`
	Items           []ItemResponse  `json:"items"`
	CreatedAt       time.Time       `json:"createdAt"`
	UpdatedAt       time.Time       `json:"updatedAt"`
}

// ListOrdersResponse 是分页查询结果。
type ListOrdersResponse struct {
	Orders   []*OrderResponse `json:"orders"`
	Page     int              `json:"page"`
	PageSize int              `json:"pageSize"`
	Total    int64            `json:"total"`
}

// FromOrder 把聚合投影成读模型。
func FromOrder(o *domain.Order) *OrderResponse {
	items := make([]ItemResponse, len(o.Items))
	for i, item := range o.Items {
		items[i] = ItemResponse{
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
	return &OrderResponse{
		ID:          o.ID,
		OrderNumber: o.OrderNumber,
		CustomerID:  o.CustomerID,
		Status:      o.Status,
		OrderDate:   o.OrderDate,
		SubTotal:    o.SubTotal,

		DiscountAmount: o.DiscountAmount,
		TaxAmount:      o.TaxAmount,
		ShippingCost:   o.ShippingCost,
		TotalAmount:    o.TotalAmount,
		Notes:          o.Notes,
		ShippingAddress: AddressRequest{
			Line1:      o.ShippingAddress.Line1,
			Line2:      o.ShippingAddress.Line2,
			City:       o.ShippingAddress.City,
			State:      o.ShippingAddress.State,
			PostalCode: o.ShippingAddress.PostalCode,
			Country:    o.ShippingAddress.Country,
		},
		Items:     items,
		CreatedAt: o.CreatedAt,
		UpdatedAt: o.UpdatedAt,
	}
}
