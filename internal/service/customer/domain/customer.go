// internal/service/customer/domain/customer.go
package domain

import (
	"context"

	"github.com/pkg/errors"
)

var ErrCustomerNotFound = errors.New("customer not found")

// Customer 是客户档案。订单域只关心存在性，其余字段服务于后台管理。
type Customer struct {
	ID       string
	Name     string
	Email    string
	IsActive bool
}

// CustomerRepository 是客户档案的持久化端口。
type CustomerRepository interface {
	// FindByID 按 id 加载客户，不存在时返回 ErrCustomerNotFound。
	FindByID(ctx context.Context, id string) (*Customer, error)

	// Save 创建或覆盖客户，初始化种子数据时使用。
	Save(ctx context.Context, customer *Customer) error
}
