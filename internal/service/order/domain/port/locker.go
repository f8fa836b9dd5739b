// internal/service/order/domain/port/locker.go
package port

import "context"

// OrderLocker 在多实例部署下序列化对同一订单的并发修改。
// 乐观锁版本号是正确性兜底，这个锁只是减少无谓的冲突重试。
type OrderLocker interface {
	// Acquire 获取 orderID 对应的互斥锁，返回释放函数。
	Acquire(ctx context.Context, orderID string) (release func(), err error)
}

// NoopLocker 在未配置分布式锁时使用，完全依赖乐观锁。
type NoopLocker struct{}

func (NoopLocker) Acquire(_ context.Context, _ string) (func(), error) {
	return func() {}, nil
}
