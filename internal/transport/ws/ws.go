// Package ws implements the live-stream transport: the WebSocket
// connection a chat client opens, carrying both a user's chat turns and
// ARIA's proactive pushes. Grounded on the generic typed-envelope and
// mutex-guarded-write idiom of
// nugget-thane-ai-agent/internal/homeassistant/websocket.go, adapted from
// a client dialing out to a server accepting connections.
package ws

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/aria-platform/aria-core/internal/conversation"
	"github.com/aria-platform/aria-core/internal/core"
	"github.com/aria-platform/aria-core/internal/gateway"
	"github.com/aria-platform/aria-core/internal/streamhub"
	"github.com/aria-platform/aria-core/internal/telemetry"
)

// closePolicyViolation is the close code spec.md names for auth failure,
// a URL/token user_id mismatch, or a missing token.
const closePolicyViolation = 1008

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin:     func(*http.Request) bool { return true },
}

// Connector registers and unregisters a Stream with whatever presence
// registry the process uses. redishub.Hub satisfies it directly; a
// process-local streamhub.Hub needs a small adapter, since its Connect
// and Disconnect take no context.
type Connector interface {
	Connect(ctx context.Context, userID string, s streamhub.Stream) error
	Disconnect(ctx context.Context, userID string, s streamhub.Stream)
}

// Authenticator validates the token presented for a chat handshake
// against the user_id named in the URL. The wire format of the token
// itself is out of scope; implementations typically verify a session
// cookie or bearer JWT issued by another ARIA service.
type Authenticator interface {
	Authenticate(r *http.Request, userID, token string) bool
}

// Handler upgrades chat handshakes to WebSocket connections and runs
// each connection's read loop.
type Handler struct {
	conn    Connector
	conv    *conversation.Service
	gw      *gateway.Gateway
	auth    Authenticator
	logger  telemetry.Logger
	metrics telemetry.Metrics
}

// New constructs a Handler.
func New(conn Connector, conv *conversation.Service, gw *gateway.Gateway, auth Authenticator, logger telemetry.Logger, metrics telemetry.Metrics) *Handler {
	if logger == nil {
		logger = telemetry.NoopLogger{}
	}
	if metrics == nil {
		metrics = telemetry.NoopMetrics{}
	}
	return &Handler{conn: conn, conv: conv, gw: gw, auth: auth, logger: logger, metrics: metrics}
}

// ServeHTTP handles one chat handshake: it expects user_id, token, and
// conversation_id query parameters, upgrades the connection, replays any
// queued login messages, and then serves inbound frames until the
// connection closes.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("user_id")
	token := r.URL.Query().Get("token")
	conversationID := r.URL.Query().Get("conversation_id")

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn(r.Context(), "ws: upgrade failed", "error", err)
		return
	}

	if userID == "" || token == "" || (h.auth != nil && !h.auth.Authenticate(r, userID, token)) {
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(closePolicyViolation, "policy violation"),
			time.Now().Add(5*time.Second))
		_ = conn.Close()
		return
	}

	s := &stream{conn: conn}
	h.serve(r.Context(), s, userID, conversationID)
}

type stream struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (s *stream) Send(msg streamhub.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn.WriteJSON(outboundFrame(msg))
}

func (s *stream) sendRaw(frameType string, payload any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn.WriteJSON(map[string]any{"type": frameType, "payload": payload})
}

func outboundFrame(msg streamhub.Message) map[string]any {
	switch msg.Type {
	case "aria.message":
		return map[string]any{
			"type": msg.Type,
			"payload": map[string]any{
				"message":         msg.Content,
				"rich_content":    msg.RichContent,
				"ui_commands":     msg.UICommands,
				"suggestions":     msg.Suggestions,
				"conversation_id": msg.ConversationID,
			},
		}
	default:
		return map[string]any{"type": msg.Type, "payload": msg.Content}
	}
}

func (h *Handler) serve(ctx context.Context, s *stream, userID, conversationID string) {
	defer func() { _ = s.conn.Close() }()

	sessionID := conversationID
	if err := s.sendRaw("connected", map[string]any{"user_id": userID, "session_id": sessionID}); err != nil {
		return
	}

	if err := h.conn.Connect(ctx, userID, s); err != nil {
		h.logger.Warn(ctx, "ws: connect to presence registry failed", "user_id", userID, "error", err)
	}
	defer h.conn.Disconnect(ctx, userID, s)

	if _, err := h.conv.Start(ctx, conversationID, userID, time.Now().UTC()); err != nil {
		h.logger.Warn(ctx, "ws: start conversation failed", "conversation_id", conversationID, "error", err)
	}
	h.replayLoginQueue(ctx, s, userID)

	for {
		var frame inboundFrame
		if err := s.conn.ReadJSON(&frame); err != nil {
			return
		}
		h.dispatch(ctx, s, userID, conversationID, frame)
	}
}

func (h *Handler) replayLoginQueue(ctx context.Context, s *stream, userID string) {
	rows, err := h.conv.ReplayHandshake(ctx, userID)
	if err != nil {
		h.logger.Warn(ctx, "ws: replay login queue failed", "user_id", userID, "error", err)
		return
	}
	for _, row := range rows {
		_ = s.sendRaw("signal.detected", map[string]any{
			"category": row.Category, "title": row.Title, "message": row.Message,
		})
	}
}

type inboundFrame struct {
	Type           string `json:"type"`
	Message        string `json:"message"`
	ConversationID string `json:"conversation_id"`
	Route          string `json:"route"`
	ActionID       string `json:"action_id"`
	Modality       string `json:"modality"`
}

func (h *Handler) dispatch(ctx context.Context, s *stream, userID, conversationID string, frame inboundFrame) {
	switch frame.Type {
	case "ping", "heartbeat":
		_ = s.sendRaw("pong", map[string]any{})
	case "user.message":
		convID := frame.ConversationID
		if convID == "" {
			convID = conversationID
		}
		h.handleUserMessage(ctx, s, userID, convID, frame.Message)
	case "user.navigate", "user.approve", "user.reject", "modality.change":
		// Business-route dispatch (navigation, action approval, modality
		// switching) is out of scope here; the handshake and chat turn
		// plumbing is what this component owns.
		h.logger.Debug(ctx, "ws: inbound frame acknowledged, not dispatched", "type", frame.Type, "user_id", userID)
	default:
		h.logger.Debug(ctx, "ws: unknown inbound frame type", "type", frame.Type, "user_id", userID)
	}
}

func (h *Handler) handleUserMessage(ctx context.Context, s *stream, userID, conversationID, message string) {
	err := h.conv.Turn(ctx, conversationID, func(ctx context.Context) error {
		return h.streamTurn(ctx, s, userID, conversationID, message)
	})
	if err != nil {
		_ = s.sendRaw("aria.stream_error", map[string]any{
			"error": err.Error(), "conversation_id": conversationID, "recoverable": false,
		})
	}
}

func (h *Handler) streamTurn(ctx context.Context, s *stream, userID, conversationID, message string) error {
	_ = s.sendRaw("aria.thinking", map[string]any{})

	chunks, err := h.gw.Stream(ctx, core.LLMCall{UserID: userID, Prompt: message})
	if err != nil {
		return err
	}

	var text string
	for chunk := range chunks {
		if chunk.Err != nil {
			return chunk.Err
		}
		if chunk.Text != "" {
			text += chunk.Text
			_ = s.sendRaw("aria.token", map[string]any{"content": chunk.Text, "conversation_id": conversationID})
		}
		if chunk.Done {
			break
		}
	}

	if err := s.sendRaw("aria.stream_complete", map[string]any{"conversation_id": conversationID}); err != nil {
		return err
	}
	return s.Send(streamhub.Message{Type: "aria.message", Content: text, ConversationID: conversationID})
}
