// internal/pkg/session/manager.go
package session

import (
	"context"
	"fmt"
	"time"

	"ordermesh/internal/pkg/redis"
)

const sessionTTL = 24 * time.Hour

// Manager 维护 "客户 -> 推送网关节点" 的会话映射，存储在 Redis。
// 多节点部署时，网关据此判断某条推送是否归本节点投递。
type Manager struct {
	client *redis.Client
}

func NewManager(client *redis.Client) *Manager {
	return &Manager{client: client}
}

func sessionKey(customerID string) string {
	return fmt.Sprintf("push:session:%s", customerID)
}

// SetUserGateway 记录客户当前连接的网关节点。
func (m *Manager) SetUserGateway(ctx context.Context, customerID, nodeID string) error {
	return m.client.GetClient().Set(ctx, sessionKey(customerID), nodeID, sessionTTL).Err()
}

// GetUserGateway 查询客户所在的网关节点，未连接时返回空串。
func (m *Manager) GetUserGateway(ctx context.Context, customerID string) (string, error) {
	nodeID, err := m.client.GetClient().Get(ctx, sessionKey(customerID)).Result()
	if err != nil {
		return "", err
	}
	return nodeID, nil
}

// RemoveUserGateway 在客户断开连接时清理会话。
func (m *Manager) RemoveUserGateway(ctx context.Context, customerID string) error {
	return m.client.Del(ctx, sessionKey(customerID))
}
