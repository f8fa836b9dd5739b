// internal/service/order/domain/port/discount.go
package port

import (
	"context"

	"github.com/shopspring/decimal"
)

// DiscountFact 是折扣规则求值的输入事实。
type DiscountFact struct {
	CustomerID string  `json:"customerId"`
	Subtotal   float64 `json:"subtotal"`
	ItemCount  int64   `json:"itemCount"`
}

// DiscountEngine 对一组配置化规则求值，返回订单级折扣率（0 表示无折扣）。
// 多条规则命中时取最大折扣率。
type DiscountEngine interface {
	Rate(ctx context.Context, fact DiscountFact) (decimal.Decimal, error)
}

// NoDiscount 是未配置任何规则时的空实现。
type NoDiscount struct{}

func (NoDiscount) Rate(_ context.Context, _ DiscountFact) (decimal.Decimal, error) {
	return decimal.Zero, nil
}
