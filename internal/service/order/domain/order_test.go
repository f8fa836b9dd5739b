package domain

import (
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2026, 8, 28, 10, 0, 0, 0, time.UTC)

func testItems() []OrderItem {
	return []OrderItem{
		{ID: "i-1", ProductID: "p-1", ProductName: "Keyboard", ProductSKU: "KB-1", Quantity: 2, UnitPrice: d("15.00")},
		{ID: "i-2", ProductID: "p-2", ProductName: "Mouse", ProductSKU: "MS-2", Quantity: 2, UnitPrice: d("10.00")},
	}
}

func newTestOrder(t *testing.T) *Order {
	t.Helper()
	order, err := NewOrder("o-1", "c-1", testItems(), ShippingAddress{Line1: "1 Main St", City: "Springfield"}, "", testNow)
	require.NoError(t, err)
	return order
}

func TestNewOrder_Defaults(t *testing.T) {
	order := newTestOrder(t)

	assert.Equal(t, StatusPending, order.Status)
	assert.EqualValues(t, 1, order.Version)
	assert.Equal(t, testNow, order.OrderDate)
	assert.True(t, strings.HasPrefix(order.OrderNumber, "ORD-20260828-"))
	assert.Len(t, order.OrderNumber, len("ORD-20260828-")+10)
}

func TestNewOrder_Validation(t *testing.T) {
	cases := []struct {
		name       string
		customerID string
		items      []OrderItem
		field      string
	}{
		{"missing customer", "", testItems(), "customerId"},
		{"no items", "c-1", nil, "items"},
		{"zero quantity", "c-1", []OrderItem{{ProductID: "p-1", Quantity: 0, UnitPrice: d("1.00")}}, "items.quantity"},
		{"missing product id", "c-1", []OrderItem{{ProductID: "", Quantity: 1, UnitPrice: d("1.00")}}, "items.productId"},
		{"negative price", "c-1", []OrderItem{{ProductID: "p-1", Quantity: 1, UnitPrice: d("-0.01")}}, "items.unitPrice"},
		{"duplicate product", "c-1", []OrderItem{
			{ProductID: "p-1", Quantity: 1, UnitPrice: d("1.00")},
			{ProductID: "p-1", Quantity: 2, UnitPrice: d("1.00")},
		}, "items.productId"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewOrder("o-1", tc.customerID, tc.items, ShippingAddress{}, "", testNow)
			var validationErr *ValidationError
			require.ErrorAs(t, err, &validationErr)
			assert.Equal(t, tc.field, validationErr.Field)
		})
	}
}

func TestOrder_RecalculateTotals(t *testing.T) {
	order := newTestOrder(t)
	order.RecalculateTotals(testPolicy())

	assert.True(t, d("50.00").Equal(order.SubTotal))
	assert.True(t, d("7.50").Equal(order.TaxAmount))
	assert.True(t, d("10.00").Equal(order.ShippingCost))
	assert.True(t, d("67.50").Equal(order.TotalAmount))
	assert.True(t, d("30.00").Equal(order.Items[0].TotalPrice))
}

func TestOrder_ApplyDiscountRate(t *testing.T) {
	order := newTestOrder(t)
	order.ApplyDiscountRate(d("0.10"))
	order.RecalculateTotals(testPolicy())

	// 每行按毛额的 10% 分摊：30.00 -> 3.00，20.00 -> 2.00
	assert.True(t, d("3.00").Equal(order.Items[0].Discount))
	assert.True(t, d("2.00").Equal(order.Items[1].Discount))
	assert.True(t, d("45.00").Equal(order.SubTotal))
	assert.True(t, d("5.00").Equal(order.DiscountAmount))

	// 折扣率归零时清空已有折扣
	order.ApplyDiscountRate(decimal.Zero)
	order.RecalculateTotals(testPolicy())
	assert.True(t, order.DiscountAmount.IsZero())
	assert.True(t, d("50.00").Equal(order.SubTotal))
}

func TestOrder_UpdateItems_Diff(t *testing.T) {
	order := newTestOrder(t)

	// p-1 改数量（快照保留），p-2 移除，p-3 新增
	err := order.UpdateItems([]OrderItem{
		{ProductID: "p-1", ProductName: "RENAMED", Quantity: 5, UnitPrice: d("99.99")},
		{ID: "i-3", ProductID: "p-3", ProductName: "Dock", ProductSKU: "DK-3", Quantity: 1, UnitPrice: d("89.90")},
	}, testNow.Add(time.Minute))
	require.NoError(t, err)

	require.Len(t, order.Items, 2)
	kept := order.Items[0]
	assert.Equal(t, "i-1", kept.ID)
	assert.Equal(t, "Keyboard", kept.ProductName, "existing line keeps its snapshot")
	assert.True(t, d("15.00").Equal(kept.UnitPrice), "existing line keeps its snapshot price")
	assert.Equal(t, 5, kept.Quantity)

	added := order.Items[1]
	assert.Equal(t, "p-3", added.ProductID)
	assert.Equal(t, "Dock", added.ProductName)
}

func TestOrder_UpdateItems_RejectedWhenNotPending(t *testing.T) {
	order := newTestOrder(t)
	_, err := order.ChangeStatus(StatusConfirmed, testNow)
	require.NoError(t, err)

	err = order.UpdateItems(testItems(), testNow)
	var ruleErr *BusinessRuleError
	require.ErrorAs(t, err, &ruleErr)
	assert.Equal(t, "order.immutable", ruleErr.Rule)
}

func TestOrder_ChangeStatus(t *testing.T) {
	order := newTestOrder(t)

	prev, err := order.ChangeStatus(StatusConfirmed, testNow)
	require.NoError(t, err)
	assert.Equal(t, StatusPending, prev)
	assert.Equal(t, StatusConfirmed, order.Status)

	_, err = order.ChangeStatus(StatusDelivered, testNow)
	var stateErr *InvalidStateError
	require.ErrorAs(t, err, &stateErr)
	assert.Equal(t, StatusConfirmed, stateErr.From)
	assert.Equal(t, StatusDelivered, stateErr.To)
	assert.Equal(t, StatusConfirmed, order.Status, "failed transition must not change state")

	_, err = order.ChangeStatus(Status("ARCHIVED"), testNow)
	var validationErr *ValidationError
	require.ErrorAs(t, err, &validationErr)
}

func TestOrder_EnsureDeletable(t *testing.T) {
	order := newTestOrder(t)
	assert.NoError(t, order.EnsureDeletable())

	_, err := order.ChangeStatus(StatusConfirmed, testNow)
	require.NoError(t, err)

	err = order.EnsureDeletable()
	var ruleErr *BusinessRuleError
	require.ErrorAs(t, err, &ruleErr)
	assert.Equal(t, "order.undeletable", ruleErr.Rule)
}

func TestNewOrderNumber_Format(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		num := NewOrderNumber(testNow)
		require.True(t, strings.HasPrefix(num, "ORD-20260828-"), num)
		suffix := strings.TrimPrefix(num, "ORD-20260828-")
		require.Len(t, suffix, 10)
		for _, c := range suffix {
			assert.Contains(t, orderNumberAlphabet, string(c))
		}
		assert.False(t, seen[num], "order numbers should not repeat: %s", num)
		seen[num] = true
	}
}
