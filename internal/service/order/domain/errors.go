// internal/service/order/domain/errors.go
package domain

import (
	"fmt"

	"github.com/pkg/errors"
)

// 哨兵错误：调用方用 errors.Is 判断。
var (
	ErrOrderNotFound    = errors.New("order not found")
	ErrProductNotFound  = errors.New("product not found")
	ErrCustomerNotFound = errors.New("customer not found")
	// ErrVersionConflict 表示乐观锁版本不匹配，订单已被并发修改。
	ErrVersionConflict = errors.New("order was modified concurrently")
)

// ValidationError 表示请求数据不合法，映射到 HTTP 400。
type ValidationError struct {
	Field   string
	Message string
}

func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed on %s: %s", e.Field, e.Message)
}

// InsufficientStockError 表示下单数量超过可用库存。
type InsufficientStockError struct {
	ProductID string
	Available int
	Requested int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for product %s: available %d, requested %d",
		e.ProductID, e.Available, e.Requested)
}

// InvalidStateError 表示状态机不允许的状态迁移。
type InvalidStateError struct {
	From Status
	To   Status
}

func (e *InvalidStateError) Error() string {
	return fmt.Sprintf("invalid status transition from %s to %s", e.From, e.To)
}

// BusinessRuleError 表示违反业务规则，Rule 是规则标识，方便日志聚合。
type BusinessRuleError struct {
	Rule    string
	Message string
}

func NewBusinessRuleError(rule, message string) *BusinessRuleError {
	return &BusinessRuleError{Rule: rule, Message: message}
}

func (e *BusinessRuleError) Error() string {
	return fmt.Sprintf("business rule %s violated: %s", e.Rule, e.Message)
}

// UnavailableError 表示某个下游依赖暂时不可用。
type UnavailableError struct {
	Service string
	Err     error
}

func (e *UnavailableError) Error() string {
	return fmt.Sprintf("service %s unavailable: %v", e.Service, e.Err)
}

func (e *UnavailableError) Unwrap() error { return e.Err }
