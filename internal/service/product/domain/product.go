// internal/service/product/domain/product.go
package domain

import (
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

var ErrProductNotFound = errors.New("product not found")

// Product 是商品聚合。Stock 是当前可售库存，允许为负：
// 订单侧的校验和库存台账的扣减之间没有全局锁，并发下单
// 可能超卖，超卖量通过指标暴露给对账流程。
type Product struct {
	ID           string
	Name         string
	SKU          string
	Description  string
	Price        decimal.Decimal
	Stock        int
	MinimumStock int
	IsActive     bool
	Version      int64
}

// BelowMinimum 判断库存是否已跌破安全水位。
func (p *Product) BelowMinimum() bool {
	return p.Stock < p.MinimumStock
}

// Oversold 判断库存是否已为负。
func (p *Product) Oversold() bool {
	return p.Stock < 0
}
