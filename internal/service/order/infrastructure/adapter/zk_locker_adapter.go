// internal/service/order/infrastructure/adapter/zk_locker_adapter.go
package adapter

import (
	"context"

	"github.com/rs/zerolog/log"

	"ordermesh/internal/pkg/zookeeper"
)

// ZkOrderLocker 用 ZooKeeper 分布式锁实现 port.OrderLocker。
// 锁资源按订单 ID 划分，多实例部署下同一订单的更新互相串行。
type ZkOrderLocker struct {
	conn *zookeeper.Conn
}

func NewZkOrderLocker(conn *zookeeper.Conn) *ZkOrderLocker {
	return &ZkOrderLocker{conn: conn}
}

func (l *ZkOrderLocker) Acquire(ctx context.Context, orderID string) (func(), error) {
	lock, err := zookeeper.NewDistributedLock(l.conn, "order-"+orderID)
	if err != nil {
		return nil, err
	}
	if err := lock.Lock(ctx); err != nil {
		return nil, err
	}
	return func() {
		if err := lock.Unlock(); err != nil {
			log.Error().Err(err).Str("order_id", orderID).Msg("failed to release order lock")
		}
	}, nil
}
