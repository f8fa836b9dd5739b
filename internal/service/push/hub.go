// internal/service/push/hub.go
package push

import (
	"context"
	"sync"

	"ordermesh/internal/pkg/logger"
)

// Hub 维护本节点所有活跃的 WebSocket 连接，按客户 ID 索引。
// 同一客户重复连接时，新连接顶掉旧连接。
type Hub struct {
	nodeID     string
	register   chan *Client
	unregister chan *Client

	lock    sync.RWMutex
	clients map[string]*Client
}

func NewHub(nodeID string) *Hub {
	return &Hub{
		nodeID:     nodeID,
		register:   make(chan *Client),
		unregister: make(chan *Client),
		clients:    make(map[string]*Client),
	}
}

// Run 处理连接的注册与注销，阻塞到 ctx 取消。
func (h *Hub) Run(ctx context.Context) error {
	for {
		select {
		case client := <-h.register:
			h.lock.Lock()
			if old, ok := h.clients[client.customerID]; ok {
				close(old.send)
			}
			h.clients[client.customerID] = client
			h.lock.Unlock()
			logger.Ctx(ctx).Info().
				Str("customer_id", client.customerID).
				Str("node_id", h.nodeID).
				Msg("push client registered")
		case client := <-h.unregister:
			h.lock.Lock()
			if current, ok := h.clients[client.customerID]; ok && current == client {
				delete(h.clients, client.customerID)
				close(client.send)
			}
			h.lock.Unlock()
			logger.Ctx(ctx).Info().
				Str("customer_id", client.customerID).
				Msg("push client unregistered")
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Send 向指定客户推送一条消息，客户未连接到本节点时返回 false。
// send channel 满说明连接已拥塞，消息丢弃。
func (h *Hub) Send(customerID string, message []byte) bool {
	h.lock.RLock()
	client, ok := h.clients[customerID]
	h.lock.RUnlock()
	if !ok {
		return false
	}
	select {
	case client.send <- message:
		return true
	default:
		return false
	}
}
