// internal/service/push/client.go
package push

import (
	"context"
	"time"

	"github.com/gorilla/websocket"

	"ordermesh/internal/pkg/logger"
	"ordermesh/internal/pkg/session"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

// Client 代表一条 WebSocket 连接。
type Client struct {
	hub        *Hub
	conn       *websocket.Conn
	send       chan []byte
	customerID string
	sessions   *session.Manager
}

// readPump 只消费心跳，客户端不上行业务消息。
// 连接断开时注销并清理 Redis 会话。
func (c *Client) readPump() {
	defer func() {
		c.hub.unregister <- c
		if err := c.sessions.RemoveUserGateway(context.Background(), c.customerID); err != nil {
			logger.Ctx(context.Background()).Warn().Err(err).
				Str("customer_id", c.customerID).
				Msg("failed to remove push session")
		}
		c.conn.Close()
	}()

	c.conn.SetReadLimit(512)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

// writePump 把 send channel 的消息写入连接，并按周期发心跳。
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
