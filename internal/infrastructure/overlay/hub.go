// Package overlay ブラウザオーバーレイへのWebSocket配信
package overlay

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"command-server/internal/domain/port"
	otelinfra "command-server/internal/infrastructure/observability/otel"
)

const writeTimeout = 5 * time.Second

var _ port.OverlaySink = (*Hub)(nil)

type client struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (c *client) writeJSON(v any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return c.conn.WriteJSON(v)
}

// Hub 接続中のオーバーレイにコマンドを配信する
type Hub struct {
	upgrader websocket.Upgrader
	logger   *otelinfra.Logger

	mu      sync.RWMutex
	clients map[*client]struct{}
}

// NewHub 新しいHubを作成
func NewHub(logger *otelinfra.Logger) *Hub {
	return &Hub{
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		logger:  logger,
		clients: make(map[*client]struct{}),
	}
}

// ServeWS WebSocket接続を受け付ける
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn(r.Context(), "Overlay upgrade failed", map[string]interface{}{
			"error": err.Error(),
		})
		return
	}

	c := &client{conn: conn}
	h.mu.Lock()
	h.clients[c] = struct{}{}
	n := len(h.clients)
	h.mu.Unlock()

	h.logger.Info(r.Context(), "Overlay connected", map[string]interface{}{
		"remote_addr": r.RemoteAddr,
		"clients":     n,
	})

	go h.readLoop(c)
}

// readLoop 切断を検知するまで受信を読み捨てる
func (h *Hub) readLoop(c *client) {
	defer h.remove(c)
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *Hub) remove(c *client) {
	h.mu.Lock()
	_, ok := h.clients[c]
	delete(h.clients, c)
	h.mu.Unlock()
	if ok {
		_ = c.conn.Close()
	}
}

// Clients 接続数を返す
func (h *Hub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Update 全オーバーレイにコマンドを送る
// 接続がない場合は何もしない。送信に失敗した接続は切断する
func (h *Hub) Update(ctx context.Context, cmd port.OverlayCommand) error {
	h.mu.RLock()
	clients := make([]*client, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.RUnlock()

	if len(clients) == 0 {
		h.logger.Debug(ctx, "No overlay connected", map[string]interface{}{
			"title": cmd.Title,
		})
		return nil
	}

	var errs []error
	for _, c := range clients {
		if err := c.writeJSON(cmd); err != nil {
			errs = append(errs, err)
			h.remove(c)
		}
	}
	if len(errs) == len(clients) {
		return errors.Join(errs...)
	}
	return nil
}

// Close 全接続を閉じる
func (h *Hub) Close() {
	h.mu.Lock()
	clients := h.clients
	h.clients = make(map[*client]struct{})
	h.mu.Unlock()

	for c := range clients {
		c.mu.Lock()
		_ = c.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutdown"),
			time.Now().Add(time.Second))
		c.mu.Unlock()
		_ = c.conn.Close()
	}
}
