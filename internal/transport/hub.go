// Package transport exposes the chat pipeline over a WebSocket push
// channel: it upgrades connections, decodes inbound conversation
// payloads, and delivers response events back to the originating
// connection by ID.
package transport

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/coder/websocket"

	"github.com/nlqbot/nlq-server/internal/stream"
)

// Hub tracks active WebSocket connections by connection ID and pushes
// encoded payloads to them. It is the pipeline's delivery channel; a
// send to an unknown ID means the client disconnected mid-resolution
// and fails with an error the caller is expected to log and drop.
type Hub struct {
	mu    sync.RWMutex
	conns map[string]*websocket.Conn
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{conns: make(map[string]*websocket.Conn)}
}

// Register adds a connection under the given ID.
func (h *Hub) Register(connectionID string, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if existing, ok := h.conns[connectionID]; ok && existing != conn {
		_ = existing.Close(websocket.StatusNormalClosure, "connection replaced")
	}
	h.conns[connectionID] = conn
	slog.Info("chat connection registered", "connection_id", connectionID)
}

// Unregister drops the connection if it is still the registered one.
func (h *Hub) Unregister(connectionID string, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if current, ok := h.conns[connectionID]; ok && current == conn {
		delete(h.conns, connectionID)
		slog.Info("chat connection unregistered", "connection_id", connectionID)
	}
}

// SendEvent pushes one stream event to the connection.
func (h *Hub) SendEvent(ctx context.Context, connectionID string, ev stream.Event) error {
	data, err := encodeEvent(ev)
	if err != nil {
		return err
	}
	return h.write(ctx, connectionID, data)
}

// SendMessage pushes a single non-streamed message to the connection.
func (h *Hub) SendMessage(ctx context.Context, connectionID string, text string) error {
	data, err := encodeMessage(text)
	if err != nil {
		return err
	}
	return h.write(ctx, connectionID, data)
}

func (h *Hub) write(ctx context.Context, connectionID string, data []byte) error {
	h.mu.RLock()
	conn, ok := h.conns[connectionID]
	h.mu.RUnlock()
	if !ok {
		return fmt.Errorf("connection %q is gone", connectionID)
	}
	if err := conn.Write(ctx, websocket.MessageText, data); err != nil {
		return fmt.Errorf("write to connection %q: %w", connectionID, err)
	}
	return nil
}
