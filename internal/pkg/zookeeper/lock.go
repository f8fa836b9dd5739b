// internal/pkg/zookeeper/lock.go
package zookeeper

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/go-zookeeper/zk"
)

const lockRoot = "/ordermesh/locks"

// DistributedLock 基于临时顺序节点实现的分布式互斥锁。
// 用于在多实例部署下序列化对同一订单的并发修改。
type DistributedLock struct {
	conn     *Conn
	path     string // 锁的路径，例如 /ordermesh/locks/order-123
	lockNode string // 成功获取锁后自己创建的节点路径
}

// NewDistributedLock 创建一个针对 resourceID 的锁实例。
func NewDistributedLock(conn *Conn, resourceID string) (*DistributedLock, error) {
	if err := conn.EnsurePath("/ordermesh"); err != nil {
		return nil, fmt.Errorf("ensure lock root: %w", err)
	}
	if err := conn.EnsurePath(lockRoot); err != nil {
		return nil, fmt.Errorf("ensure lock root: %w", err)
	}
	lockPath := lockRoot + "/" + resourceID
	if err := conn.EnsurePath(lockPath); err != nil {
		return nil, fmt.Errorf("ensure lock path %s: %w", lockPath, err)
	}
	return &DistributedLock{conn: conn, path: lockPath}, nil
}

// Lock 尝试获取锁，获取不到则等待前序节点释放，直到 ctx 取消。
func (l *DistributedLock) Lock(ctx context.Context) error {
	// 1. 创建临时顺序节点 /ordermesh/locks/<resource>/lock-NNNN
	nodePath, err := l.conn.CreateProtectedEphemeralSequential(l.path+"/lock-", []byte{}, zk.WorldACL(zk.PermAll))
	if err != nil {
		return fmt.Errorf("failed to create sequential node: %w", err)
	}
	l.lockNode = nodePath

	for {
		children, _, err := l.conn.Children(l.path)
		if err != nil {
			return fmt.Errorf("failed to get children nodes: %w", err)
		}
		sort.Strings(children)

		myNodeName := strings.TrimPrefix(l.lockNode, l.path+"/")
		if myNodeName == children[0] {
			// 自己是最小节点，获取锁成功
			return nil
		}

		// 监听排在自己前面的那个节点
		prevIndex := -1
		for i, child := range children {
			if child == myNodeName {
				prevIndex = i - 1
				break
			}
		}
		if prevIndex < 0 {
			// 自己的节点不在列表里，会话可能已经过期
			return zk.ErrNoNode
		}

		prevNode := l.path + "/" + children[prevIndex]
		exists, _, watch, err := l.conn.ExistsW(prevNode)
		if err != nil {
			return fmt.Errorf("failed to watch previous node: %w", err)
		}
		if !exists {
			// 前序节点在 watch 建立前已经释放，重试
			continue
		}

		select {
		case <-watch:
			// 前序节点发生变化，重新竞争
		case <-ctx.Done():
			l.Unlock()
			return ctx.Err()
		}
	}
}

// Unlock 释放锁。临时节点在会话断开时也会自动删除。
func (l *DistributedLock) Unlock() error {
	if l.lockNode == "" {
		return nil
	}
	err := l.conn.Delete(l.lockNode, -1)
	l.lockNode = ""
	if err != nil && err != zk.ErrNoNode {
		return err
	}
	return nil
}
