package domain

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testPolicy() PricingPolicy {
	return PricingPolicy{
		TaxRate:               decimal.RequireFromString("0.15"),
		FreeShippingThreshold: decimal.RequireFromString("100.00"),
		FlatShippingFee:       decimal.RequireFromString("10.00"),
	}
}

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestComputeTotals_TypicalOrder(t *testing.T) {
	lines := []LineAmount{
		{Quantity: 2, UnitPrice: d("15.00")},
		{Quantity: 2, UnitPrice: d("10.00")},
	}

	totals := ComputeTotals(lines, testPolicy())

	assert.True(t, d("50.00").Equal(totals.SubTotal), "subtotal: %s", totals.SubTotal)
	assert.True(t, d("7.50").Equal(totals.TaxAmount), "tax: %s", totals.TaxAmount)
	assert.True(t, d("10.00").Equal(totals.ShippingCost), "shipping: %s", totals.ShippingCost)
	assert.True(t, d("67.50").Equal(totals.TotalAmount), "total: %s", totals.TotalAmount)
}

func TestComputeTotals_FreeShippingBoundary(t *testing.T) {
	policy := testPolicy()

	// 恰好等于阈值：不免运费
	atThreshold := ComputeTotals([]LineAmount{{Quantity: 1, UnitPrice: d("100.00")}}, policy)
	assert.True(t, d("10.00").Equal(atThreshold.ShippingCost))

	// 严格大于阈值：免运费
	overThreshold := ComputeTotals([]LineAmount{{Quantity: 1, UnitPrice: d("100.01")}}, policy)
	assert.True(t, decimal.Zero.Equal(overThreshold.ShippingCost))
}

func TestComputeTotals_RoundsEachStep(t *testing.T) {
	// 3 × 0.333 = 0.999，行金额归一到 1.00
	totals := ComputeTotals([]LineAmount{{Quantity: 3, UnitPrice: d("0.333")}}, testPolicy())
	assert.True(t, d("1.00").Equal(totals.SubTotal), "subtotal: %s", totals.SubTotal)
	assert.True(t, d("0.15").Equal(totals.TaxAmount), "tax: %s", totals.TaxAmount)
}

func TestComputeTotals_WithLineDiscounts(t *testing.T) {
	lines := []LineAmount{
		{Quantity: 2, UnitPrice: d("30.00"), Discount: d("6.00")},
		{Quantity: 1, UnitPrice: d("20.00"), Discount: d("2.00")},
	}

	totals := ComputeTotals(lines, testPolicy())

	assert.True(t, d("72.00").Equal(totals.SubTotal))
	assert.True(t, d("8.00").Equal(totals.DiscountAmount))
	assert.True(t, d("10.80").Equal(totals.TaxAmount))
}

func TestComputeTotals_InvariantHolds(t *testing.T) {
	cases := [][]LineAmount{
		{{Quantity: 1, UnitPrice: d("0.01")}},
		{{Quantity: 7, UnitPrice: d("13.37")}, {Quantity: 3, UnitPrice: d("0.99"), Discount: d("0.50")}},
		{{Quantity: 100, UnitPrice: d("99.99")}},
	}

	for _, lines := range cases {
		totals := ComputeTotals(lines, testPolicy())
		expected := totals.SubTotal.Add(totals.TaxAmount).Add(totals.ShippingCost)
		assert.True(t, expected.Equal(totals.TotalAmount),
			"total %s != %s + %s + %s", totals.TotalAmount, totals.SubTotal, totals.TaxAmount, totals.ShippingCost)
	}
}

func TestComputeTotals_Deterministic(t *testing.T) {
	lines := []LineAmount{
		{Quantity: 3, UnitPrice: d("19.99")},
		{Quantity: 1, UnitPrice: d("45.45"), Discount: d("4.55")},
	}

	first := ComputeTotals(lines, testPolicy())
	second := ComputeTotals(lines, testPolicy())

	require.True(t, first.TotalAmount.Equal(second.TotalAmount))
	require.True(t, first.TaxAmount.Equal(second.TaxAmount))
	require.True(t, first.ShippingCost.Equal(second.ShippingCost))
}

func TestLineTotal(t *testing.T) {
	assert.True(t, d("30.00").Equal(LineTotal(LineAmount{Quantity: 2, UnitPrice: d("15.00")})))
	assert.True(t, d("27.00").Equal(LineTotal(LineAmount{Quantity: 2, UnitPrice: d("15.00"), Discount: d("3.00")})))
}
