// internal/service/product/infrastructure/gorm_repository.go
package infrastructure

import (
	"context"

	"github.com/pkg/errors"
	"gorm.io/gorm"

	"ordermesh/internal/service/product/domain"
)

// GormProductRepository 是 domain.ProductRepository 的 MySQL 实现。
type GormProductRepository struct {
	db *gorm.DB
}

func NewGormProductRepository(db *gorm.DB) *GormProductRepository {
	return &GormProductRepository{db: db}
}

func (r *GormProductRepository) FindByID(ctx context.Context, id string) (*domain.Product, error) {
	var model ProductModel
	err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrProductNotFound
		}
		return nil, errors.Wrap(err, "find product")
	}
	return toDomainProduct(&model), nil
}

func (r *GormProductRepository) FindByIDs(ctx context.Context, ids []string) ([]*domain.Product, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var models []ProductModel
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&models).Error; err != nil {
		return nil, errors.Wrap(err, "find products by ids")
	}
	products := make([]*domain.Product, len(models))
	for i := range models {
		products[i] = toDomainProduct(&models[i])
	}
	return products, nil
}

// AdjustStock 用单条 UPDATE 做原子增量，避免读-改-写竞态，
// 然后在同一事务里读回最新快照供调用方做水位判断。
func (r *GormProductRepository) AdjustStock(ctx context.Context, id string, delta int) (*domain.Product, error) {
	var model ProductModel
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&ProductModel{}).
			Where("id = ?", id).
			Updates(map[string]interface{}{
				"stock":   gorm.Expr("stock + ?", delta),
				"version": gorm.Expr("version + 1"),
			})
		if res.Error != nil {
			return errors.Wrap(res.Error, "adjust stock")
		}
		if res.RowsAffected == 0 {
			return domain.ErrProductNotFound
		}
		return tx.First(&model, "id = ?", id).Error
	})
	if err != nil {
		return nil, err
	}
	return toDomainProduct(&model), nil
}

func (r *GormProductRepository) Save(ctx context.Context, product *domain.Product) error {
	model := ProductModel{
		ID:           product.ID,
		Name:         product.Name,
		SKU:          product.SKU,
		Description:  product.Description,
		Price:        product.Price,
		Stock:        product.Stock,
		MinimumStock: product.MinimumStock,
		IsActive:     product.IsActive,
		Version:      product.Version,
	}
	if model.Version == 0 {
		model.Version = 1
	}
	return errors.Wrap(r.db.WithContext(ctx).Save(&model).Error, "save product")
}

func toDomainProduct(m *ProductModel) *domain.Product {
	return &domain.Product{
		ID:           m.ID,
		Name:         m.Name,
		SKU:          m.SKU,
		Description:  m.Description,
		Price:        m.Price,
		Stock:        m.Stock,
		MinimumStock: m.MinimumStock,
		IsActive:     m.IsActive,
		Version:      m.Version,
	}
}
