package chat

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/avoronin/relaychat/internal/auth"
	"github.com/avoronin/relaychat/internal/domain"
	"github.com/avoronin/relaychat/internal/presence"
	"github.com/avoronin/relaychat/internal/store"
	"github.com/coder/websocket"
)

// WebSocketHandler owns the lifecycle of one realtime connection:
// authenticate, register presence, serve events, and clean up on disconnect.
type WebSocketHandler struct {
	repo          store.Repository
	registry      *presence.Registry
	relay         *Service
	tokens        *auth.Tokens
	allowedOrigin string
	isDev         bool
}

// NewWebSocketHandler creates a new realtime connection handler.
func NewWebSocketHandler(repo store.Repository, registry *presence.Registry, relay *Service, tokens *auth.Tokens, allowedOrigin string, isDev bool) *WebSocketHandler {
	return &WebSocketHandler{
		repo:          repo,
		registry:      registry,
		relay:         relay,
		tokens:        tokens,
		allowedOrigin: allowedOrigin,
		isDev:         isDev,
	}
}

// ServeHTTP authenticates the handshake, upgrades the connection, and runs
// the event loop until the client disconnects.
func (h *WebSocketHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	raw := auth.TokenFromRequest(r)
	if raw == "" {
		http.Error(w, "no token provided", http.StatusUnauthorized)
		return
	}
	claims, err := h.tokens.Verify(raw)
	if err != nil {
		slog.Warn("WebSocket authentication failed", "error", err, "ip", r.RemoteAddr)
		http.Error(w, "invalid or expired token", http.StatusUnauthorized)
		return
	}

	if !h.checkOrigin(r) {
		http.Error(w, "origin not allowed", http.StatusForbidden)
		return
	}

	ws, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		slog.Error("Failed to accept WebSocket", "error", err, "user_id", claims.UserID)
		return
	}

	client := NewClient(claims.UserID, claims.Username, ws)
	defer client.Close("session ended")

	slog.Info("User connected", "user_id", client.UserID, "username", client.Username, "ip", r.RemoteAddr)

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	h.registry.Register(client.UserID, client)
	defer h.terminate(client)

	h.relay.BroadcastStatus(ctx, client.UserID, client.Username, true)

	h.eventLoop(ctx, client)
}

// terminate runs the disconnect effects in order: deregister, persist the
// durable offline flag and last-seen time, broadcast the offline status.
// Each step is best-effort; a persistence failure must not stop the rest.
// A session displaced by a reconnect skips the offline effects entirely,
// since the user is still live on the replacement connection.
func (h *WebSocketHandler) terminate(client *Client) {
	if !h.registry.Deregister(client.UserID, client) {
		slog.Debug("Session was replaced, skipping offline effects", "user_id", client.UserID)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := h.repo.SetPresence(ctx, client.UserID, false, time.Now()); err != nil {
		slog.Warn("Failed to persist offline status", "error", err, "user_id", client.UserID)
	}

	h.relay.BroadcastStatus(ctx, client.UserID, client.Username, false)
	slog.Info("User disconnected", "user_id", client.UserID, "username", client.Username)
}

// eventLoop reads frames one at a time and dispatches them synchronously.
// Two events from the same connection are never handled concurrently.
func (h *WebSocketHandler) eventLoop(ctx context.Context, client *Client) {
	for {
		data, err := client.Read(ctx)
		if err != nil {
			if websocket.CloseStatus(err) != -1 {
				slog.Debug("WebSocket closed by client", "user_id", client.UserID)
			} else if ctx.Err() == nil {
				slog.Warn("WebSocket read error", "error", err, "user_id", client.UserID)
			}
			return
		}

		var event InboundEvent
		if err := json.Unmarshal(data, &event); err != nil {
			h.pushError(ctx, client, "Invalid event payload")
			continue
		}

		h.dispatch(ctx, client, event)
	}
}

func (h *WebSocketHandler) dispatch(ctx context.Context, client *Client, event InboundEvent) {
	switch event.Type {
	case EventGetChatHistory:
		messages, err := h.relay.History(ctx, client.UserID, event.OtherUserID)
		if err != nil {
			h.pushOperationError(ctx, client, err, "Other user ID is required", "Failed to fetch chat history")
			return
		}
		if messages == nil {
			messages = []*domain.Message{}
		}
		h.push(ctx, client, OutboundEvent{Type: EventChatHistory, Data: messages})

	case EventSendMessage:
		msg, err := h.relay.Send(ctx, client.UserID, event.ReceiverID, event.Message)
		if err != nil {
			h.pushOperationError(ctx, client, err, "Receiver ID and message are required", "Failed to send message")
			return
		}
		h.push(ctx, client, messageEvent(EventMessageSent, msg))

	case EventTyping:
		h.relay.Typing(ctx, client.UserID, client.Username, event.ReceiverID)

	case EventStopTyping:
		h.relay.StopTyping(ctx, client.UserID, event.ReceiverID)

	case EventMarkAsRead:
		if err := h.relay.MarkRead(ctx, event.MessageID); err != nil {
			h.pushOperationError(ctx, client, err, "Message ID is required", "Failed to mark message as read")
			return
		}
		h.push(ctx, client, OutboundEvent{Type: EventMessageRead, Data: ReadReceipt{MessageID: event.MessageID}})

	default:
		slog.Debug("Ignoring unknown event type", "type", event.Type, "user_id", client.UserID)
	}
}

// pushOperationError maps a relay failure onto the error event the client
// sees. Validation failures carry their own message; anything else gets the
// operation's generic failure text.
func (h *WebSocketHandler) pushOperationError(ctx context.Context, client *Client, err error, missingMsg, genericMsg string) {
	switch {
	case errors.Is(err, domain.ErrMissingParameter):
		h.pushError(ctx, client, missingMsg)
	case errors.Is(err, domain.ErrEmptyBody):
		h.pushError(ctx, client, "Message cannot be empty")
	case errors.Is(err, domain.ErrBodyTooLong):
		h.pushError(ctx, client, "Message cannot exceed 1000 characters")
	case errors.Is(err, domain.ErrNotFound):
		h.pushError(ctx, client, "Message not found")
	default:
		slog.Error("Realtime operation failed", "error", err, "user_id", client.UserID)
		h.pushError(ctx, client, genericMsg)
	}
}

func (h *WebSocketHandler) push(ctx context.Context, client *Client, event OutboundEvent) {
	if err := client.Push(ctx, event); err != nil {
		slog.Debug("Failed to push event", "error", err, "user_id", client.UserID, "type", event.Type)
	}
}

func (h *WebSocketHandler) pushError(ctx context.Context, client *Client, message string) {
	h.push(ctx, client, errorEvent(message))
}

func (h *WebSocketHandler) checkOrigin(r *http.Request) bool {
	if h.isDev {
		return true
	}
	origin := r.Header.Get("Origin")
	if origin == "" || h.allowedOrigin == "*" {
		return true
	}
	if origin == h.allowedOrigin {
		return true
	}
	slog.Warn("WebSocket origin rejected", "origin", origin, "allowed", h.allowedOrigin)
	return false
}
