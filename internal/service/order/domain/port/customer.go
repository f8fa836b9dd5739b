// internal/service/order/domain/port/customer.go
package port

import "context"

// CustomerService 是客户服务的出站端口，只用于下单前的存在性校验。
type CustomerService interface {
	Exists(ctx context.Context, customerID string) (bool, error)
}
