package rule

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ordermesh/internal/service/order/domain/port"
)

func testRules(t *testing.T, rules ...Rule) *CELDiscountEngine {
	t.Helper()
	engine, err := NewCELDiscountEngine(rules)
	require.NoError(t, err)
	return engine
}

func TestCELDiscountEngine_PicksHighestRate(t *testing.T) {
	engine := testRules(t,
		Rule{Name: "big-order", Expression: "subtotal > 500.0 ? 0.05 : 0.0"},
		Rule{Name: "bulk-buyer", Expression: "itemCount >= 10 ? 0.03 : 0.0"},
	)

	rate, err := engine.Rate(context.Background(), port.DiscountFact{Subtotal: 600.0, ItemCount: 12})
	require.NoError(t, err)
	assert.True(t, decimal.RequireFromString("0.05").Equal(rate))

	rate, err = engine.Rate(context.Background(), port.DiscountFact{Subtotal: 100.0, ItemCount: 12})
	require.NoError(t, err)
	assert.True(t, decimal.RequireFromString("0.03").Equal(rate))

	rate, err = engine.Rate(context.Background(), port.DiscountFact{Subtotal: 100.0, ItemCount: 1})
	require.NoError(t, err)
	assert.True(t, rate.IsZero())
}

func TestCELDiscountEngine_ClampsRate(t *testing.T) {
	engine := testRules(t, Rule{Name: "broken", Expression: "0.99"})
	rate, err := engine.Rate(context.Background(), port.DiscountFact{})
	require.NoError(t, err)
	assert.True(t, decimal.RequireFromString("0.90").Equal(rate))

	engine = testRules(t, Rule{Name: "negative", Expression: "-0.10"})
	rate, err = engine.Rate(context.Background(), port.DiscountFact{})
	require.NoError(t, err)
	assert.True(t, rate.IsZero())
}

func TestCELDiscountEngine_CustomerRule(t *testing.T) {
	engine := testRules(t, Rule{Name: "vip", Expression: `customerId == "c-vip" ? 0.10 : 0.0`})

	rate, err := engine.Rate(context.Background(), port.DiscountFact{CustomerID: "c-vip"})
	require.NoError(t, err)
	assert.True(t, decimal.RequireFromString("0.10").Equal(rate))

	rate, err = engine.Rate(context.Background(), port.DiscountFact{CustomerID: "c-other"})
	require.NoError(t, err)
	assert.True(t, rate.IsZero())
}

func TestNewCELDiscountEngine_RejectsInvalidExpression(t *testing.T) {
	_, err := NewCELDiscountEngine([]Rule{{Name: "bad", Expression: "subtotal >"}})
	require.Error(t, err)
}

func TestCELDiscountEngine_NonDoubleResult(t *testing.T) {
	engine := testRules(t, Rule{Name: "bool", Expression: "subtotal > 10.0"})
	_, err := engine.Rate(context.Background(), port.DiscountFact{Subtotal: 20.0})
	require.Error(t, err)
}
