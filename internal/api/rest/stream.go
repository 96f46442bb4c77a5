package rest

import (
	"context"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/clintrovert/scrummaster/internal/events"
)

const writeTimeout = 5 * time.Second

// StreamHub pushes every bus event to connected websocket clients
type StreamHub struct {
	upgrader websocket.Upgrader
	logger   *zap.Logger
	disabled atomic.Bool

	mu      sync.Mutex
	clients map[*websocket.Conn]struct{}
}

// NewStreamHub creates an empty hub
func NewStreamHub(logger *zap.Logger) *StreamHub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StreamHub{
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		logger:  logger,
		clients: make(map[*websocket.Conn]struct{}),
	}
}

// ServeHTTP upgrades the request and keeps the client registered until it
// disconnects
func (h *StreamHub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	h.mu.Lock()
	h.clients[conn] = struct{}{}
	h.mu.Unlock()
	h.logger.Debug("stream client connected", zap.String("remote", r.RemoteAddr))

	defer h.drop(conn)

	// clients only listen; reading surfaces the close frame
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Debug("stream client read error", zap.Error(err))
			}
			return
		}
	}
}

// Update broadcasts e. Clients that fail to receive it are disconnected.
func (h *StreamHub) Update(_ context.Context, e events.Event) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	for conn := range h.clients {
		_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
		if err := conn.WriteJSON(e); err != nil {
			h.logger.Debug("dropping stream client", zap.Error(err))
			delete(h.clients, conn)
			conn.Close()
		}
	}
	return nil
}

// Clients returns the number of connected clients
func (h *StreamHub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Close disconnects every client
func (h *StreamHub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for conn := range h.clients {
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
			time.Now().Add(writeTimeout))
		conn.Close()
		delete(h.clients, conn)
	}
}

func (h *StreamHub) drop(conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[conn]; ok {
		delete(h.clients, conn)
		conn.Close()
	}
}

// SetEnabled switches broadcasting on or off
func (h *StreamHub) SetEnabled(enabled bool) { h.disabled.Store(!enabled) }

func (h *StreamHub) Name() string      { return "StreamHub" }
func (h *StreamHub) Enabled() bool     { return !h.disabled.Load() }
func (h *StreamHub) Kind() events.Kind { return events.KindStream }
