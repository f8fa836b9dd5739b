// internal/service/push/handler.go
package push

import (
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"ordermesh/internal/pkg/logger"
	"ordermesh/internal/pkg/session"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// 简化处理，允许所有跨域
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Handler 暴露 WebSocket 接入点。
type Handler struct {
	hub      *Hub
	sessions *session.Manager
}

func NewHandler(hub *Hub, sessions *session.Manager) *Handler {
	return &Handler{hub: hub, sessions: sessions}
}

func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/ws", h.serveWs)
}

// serveWs 把 HTTP 连接升级为 WebSocket 并注册到 Hub。
func (h *Handler) serveWs(w http.ResponseWriter, r *http.Request) {
	customerID := r.URL.Query().Get("customerId")
	if customerID == "" {
		http.Error(w, "customerId is required", http.StatusBadRequest)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Ctx(r.Context()).Error().Err(err).Msg("websocket upgrade failed")
		return
	}

	client := &Client{
		hub:        h.hub,
		conn:       conn,
		send:       make(chan []byte, 256),
		customerID: customerID,
		sessions:   h.sessions,
	}
	h.hub.register <- client

	if err := h.sessions.SetUserGateway(r.Context(), customerID, h.hub.nodeID); err != nil {
		logger.Ctx(r.Context()).Error().Err(err).
			Str("customer_id", customerID).
			Msg("failed to record push session")
		conn.Close()
		return
	}

	go client.writePump()
	go client.readPump()
}
