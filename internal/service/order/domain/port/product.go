// internal/service/order/domain/port/product.go
package port

import (
	"context"

	"github.com/shopspring/decimal"
)

// ProductDetails 是商品服务返回的读模型，编排器据此做库存校验和快照。
type ProductDetails struct {
	ID           string          `json:"id"`
	Name         string          `json:"name"`
	SKU          string          `json:"sku"`
	Price        decimal.Decimal `json:"price"`
	Stock        int             `json:"stock"`
	MinimumStock int             `json:"minimumStock"`
	IsActive     bool            `json:"isActive"`
}

// ProductService 是商品服务的出站端口。
type ProductService interface {
	// GetProductsBatch 批量查询商品。只返回存在的商品，
	// 调用方通过数量对比识别缺失的 id。
	GetProductsBatch(ctx context.Context, ids []string) ([]ProductDetails, error)
}
