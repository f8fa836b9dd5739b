// internal/service/order/domain/state.go
package domain

// Status 定义了订单的生命周期状态
type Status string

const (
	StatusPending    Status = "PENDING"    // 已创建，未确认，唯一可修改/可删除的状态
	StatusConfirmed  Status = "CONFIRMED"  // 已确认
	StatusProcessing Status = "PROCESSING" // 处理中
	StatusShipped    Status = "SHIPPED"    // 已发货
	StatusDelivered  Status = "DELIVERED"  // 已送达（终态）
	StatusCancelled  Status = "CANCELLED"  // 已取消（终态）
)

// transitions 是唯一的状态流转表，create/update/delete 路径统一查这张表，
// 不允许在各个 handler 里散落 switch 判断。
var transitions = map[Status][]Status{
	StatusPending:    {StatusConfirmed, StatusCancelled},
	StatusConfirmed:  {StatusProcessing, StatusCancelled},
	StatusProcessing: {StatusShipped, StatusCancelled},
	StatusShipped:    {StatusDelivered, StatusCancelled},
	StatusDelivered:  {},
	StatusCancelled:  {},
}

// ValidStatus 判断字符串是否为已知状态。
func ValidStatus(s Status) bool {
	_, ok := transitions[s]
	return ok
}

// CanTransition 查表判断 from -> to 是否合法。
func CanTransition(from, to Status) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// IsTerminal 判断状态是否为终态。
func (s Status) IsTerminal() bool {
	return len(transitions[s]) == 0
}
