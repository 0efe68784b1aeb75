package transport

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"log/slog"
	"net"
	"net/http"
	"strings"

	"github.com/coder/websocket"

	"github.com/nlqbot/nlq-server/internal/domain"
)

// RateLimitMessage is sent as a plain message when a client outruns the
// limiter; the turn it tried to send is dropped.
const RateLimitMessage = "You are sending messages too quickly. Please wait a moment and try again."

// TurnDispatcher accepts turns for background resolution and releases
// per-connection state on disconnect.
type TurnDispatcher interface {
	Dispatch(connectionID string, turns []domain.Turn)
	Forget(connectionID string)
}

// ChatHandler upgrades chat WebSocket connections and feeds inbound
// conversation payloads to the dispatcher. Responses travel back
// through the hub, not through this read loop.
type ChatHandler struct {
	hub           *Hub
	dispatcher    TurnDispatcher
	limiter       *RateLimiter
	allowedOrigin string
	isDev         bool
}

// NewChatHandler creates a chat WebSocket handler.
func NewChatHandler(hub *Hub, dispatcher TurnDispatcher, limiter *RateLimiter, allowedOrigin string, isDev bool) *ChatHandler {
	return &ChatHandler{
		hub:           hub,
		dispatcher:    dispatcher,
		limiter:       limiter,
		allowedOrigin: allowedOrigin,
		isDev:         isDev,
	}
}

// Inbound payload: the client resends the whole visible conversation on
// every turn, latest user message last. Content is a list of text parts.
type chatRequest struct {
	Messages []chatMessage `json:"messages"`
}

type chatMessage struct {
	Role    string     `json:"role"`
	Content []textPart `json:"content"`
}

type textPart struct {
	Text string `json:"text"`
}

// ServeHTTP implements http.Handler for WebSocket upgrade.
func (h *ChatHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if !h.checkOrigin(r) {
		http.Error(w, "origin not allowed", http.StatusForbidden)
		return
	}

	ws, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		slog.Error("Failed to accept WebSocket", "error", err, "ip", r.RemoteAddr)
		return
	}
	defer func() {
		if closeErr := ws.Close(websocket.StatusNormalClosure, "chat ended"); closeErr != nil {
			slog.Debug("Failed to close websocket", "error", closeErr)
		}
	}()

	connectionID := newConnectionID()
	slog.Info("chat connection accepted", "connection_id", connectionID, "ip", r.RemoteAddr)

	h.hub.Register(connectionID, ws)
	defer h.hub.Unregister(connectionID, ws)
	defer h.dispatcher.Forget(connectionID)

	h.readLoop(r.Context(), ws, connectionID, clientKey(r))
}

func (h *ChatHandler) readLoop(ctx context.Context, ws *websocket.Conn, connectionID, limiterKey string) {
	for {
		_, message, err := ws.Read(ctx)
		if err != nil {
			if websocket.CloseStatus(err) != -1 {
				slog.Debug("WebSocket closed by client", "connection_id", connectionID)
			} else {
				slog.Warn("WebSocket read error", "error", err, "connection_id", connectionID)
			}
			return
		}

		var req chatRequest
		if err := json.Unmarshal(message, &req); err != nil {
			slog.Warn("malformed chat payload", "error", err, "connection_id", connectionID)
			h.push(ctx, connectionID, domain.ApologyMessage)
			continue
		}
		turns := toTurns(req)
		if len(turns) == 0 {
			slog.Warn("chat payload without messages", "connection_id", connectionID)
			h.push(ctx, connectionID, domain.ApologyMessage)
			continue
		}

		if h.limiter != nil && !h.limiter.Allow(limiterKey) {
			slog.Warn("chat turn rate limited", "connection_id", connectionID)
			h.push(ctx, connectionID, RateLimitMessage)
			continue
		}

		h.dispatcher.Dispatch(connectionID, turns)
	}
}

func (h *ChatHandler) push(ctx context.Context, connectionID, text string) {
	if err := h.hub.SendMessage(ctx, connectionID, text); err != nil {
		slog.Debug("Failed to push message", "error", err, "connection_id", connectionID)
	}
}

func (h *ChatHandler) checkOrigin(r *http.Request) bool {
	if h.isDev {
		return true
	}
	origin := r.Header.Get("Origin")
	// No configured frontend URL means no origin pin, same as "*".
	if origin == "" || h.allowedOrigin == "" || h.allowedOrigin == "*" {
		return true
	}
	if origin == h.allowedOrigin {
		return true
	}
	slog.Warn("WebSocket origin rejected", "origin", origin, "allowed", h.allowedOrigin)
	return false
}

// toTurns flattens the wire conversation into domain turns, joining the
// text parts of each message. Turns with no text are dropped.
func toTurns(req chatRequest) []domain.Turn {
	turns := make([]domain.Turn, 0, len(req.Messages))
	for _, m := range req.Messages {
		var b strings.Builder
		for _, part := range m.Content {
			b.WriteString(part.Text)
		}
		text := strings.TrimSpace(b.String())
		if text == "" {
			continue
		}
		role := domain.RoleUser
		if m.Role == "assistant" {
			role = domain.RoleAssistant
		}
		turns = append(turns, domain.Turn{Role: role, Text: text})
	}
	return turns
}

func newConnectionID() string {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		// crypto/rand failing means the host is broken beyond rescue.
		panic(err)
	}
	return hex.EncodeToString(b)
}

// clientKey extracts the client host for rate limiting, ignoring the
// ephemeral port.
func clientKey(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
