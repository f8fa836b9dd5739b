// internal/service/order/domain/repository.go
package domain

import (
	"context"
	"time"
)

// OrderQuery 是分页/过滤查询参数。零值字段表示不过滤。
type OrderQuery struct {
	Page        int
	PageSize    int
	CustomerID  string
	Status      Status
	FromDate    *time.Time
	ToDate      *time.Time
	OrderNumber string
}

// OrderRepository 是订单聚合的持久化出站端口。
//
// 带 WithEvents 后缀的方法必须把订单变更和事件的 outbox 落库放在同一个
// 数据库事务里：事务失败则两者都不存在，这是事件发布策略的基石。
type OrderRepository interface {
	// CreateWithEvents 插入订单 + 订单行 + outbox 行。
	CreateWithEvents(ctx context.Context, order *Order, events []Event) error

	// UpdateWithEvents 以乐观锁方式保存订单（WHERE version = ?），
	// 版本不匹配时返回 ErrVersionConflict。成功后 order.Version 已自增。
	UpdateWithEvents(ctx context.Context, order *Order, events []Event) error

	// DeleteWithEvents 物理删除订单和订单行，同事务写入取消事件。
	DeleteWithEvents(ctx context.Context, order *Order, events []Event) error

	// FindByID 加载完整聚合（含订单行），不存在时返回 ErrOrderNotFound。
	FindByID(ctx context.Context, id string) (*Order, error)

	// Search 返回一页订单和满足过滤条件的总数。
	Search(ctx context.Context, query OrderQuery) ([]*Order, int64, error)
}
