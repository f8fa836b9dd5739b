// internal/service/customer/infrastructure/gorm_repository.go
package infrastructure

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"gorm.io/gorm"

	"ordermesh/internal/service/customer/domain"
)

// CustomerModel 对应 customers 表。
type CustomerModel struct {
	ID        string `gorm:"primaryKey;size:36"`
	Name      string `gorm:"size:255;not null"`
	Email     string `gorm:"size:255;uniqueIndex;not null"`
	IsActive  bool   `gorm:"not null;default:true"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (CustomerModel) TableName() string { return "customers" }

func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(&CustomerModel{})
}

// GormCustomerRepository 是 domain.CustomerRepository 的 MySQL 实现。
type GormCustomerRepository struct {
	db *gorm.DB
}

func NewGormCustomerRepository(db *gorm.DB) *GormCustomerRepository {
	return &GormCustomerRepository{db: db}
}

func (r *GormCustomerRepository) FindByID(ctx context.Context, id string) (*domain.Customer, error) {
	var model CustomerModel
	err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrCustomerNotFound
		}
		return nil, errors.Wrap(err, "find customer")
	}
	return &domain.Customer{
		ID:       model.ID,
		Name:     model.Name,
		Email:    model.Email,
		IsActive: model.IsActive,
	}, nil
}

func (r *GormCustomerRepository) Save(ctx context.Context, customer *domain.Customer) error {
	model := CustomerModel{
		ID:       customer.ID,
		Name:     customer.Name,
		Email:    customer.Email,
		IsActive: customer.IsActive,
	}
	return errors.Wrap(r.db.WithContext(ctx).Save(&model).Error, "save customer")
}
