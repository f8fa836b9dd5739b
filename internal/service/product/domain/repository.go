// internal/service/product/domain/repository.go
package domain

import "context"

// ProductRepository 是商品聚合的持久化端口。
type ProductRepository interface {
	// FindByID 按 id 加载商品，不存在时返回 ErrProductNotFound。
	FindByID(ctx context.Context, id string) (*Product, error)

	// FindByIDs 批量加载，只返回存在的商品。
	FindByIDs(ctx context.Context, ids []string) ([]*Product, error)

	// AdjustStock 原子地对库存做增量调整（delta 为负表示扣减），
	// 返回调整后的商品快照。不存在时返回 ErrProductNotFound。
	AdjustStock(ctx context.Context, id string, delta int) (*Product, error)

	// Save 创建或覆盖一个商品，初始化种子数据时使用。
	Save(ctx context.Context, product *Product) error
}
