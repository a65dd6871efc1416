package chat

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/avoronin/relaychat/internal/domain"
	"github.com/avoronin/relaychat/internal/presence"
	"github.com/avoronin/relaychat/internal/store"
	"github.com/google/uuid"
)

// Service implements the message relay and typing signal relay on top of the
// durable store and the presence registry.
type Service struct {
	repo     store.Repository
	registry *presence.Registry
}

// NewService creates a relay service.
func NewService(repo store.Repository, registry *presence.Registry) *Service {
	return &Service{repo: repo, registry: registry}
}

// History returns the full conversation between the caller and another user,
// oldest first, with usernames resolved.
func (s *Service) History(ctx context.Context, callerID, otherUserID string) ([]*domain.Message, error) {
	if otherUserID == "" {
		return nil, fmt.Errorf("%w: other user ID", domain.ErrMissingParameter)
	}
	return s.repo.ListConversation(ctx, callerID, otherUserID)
}

// Send validates and persists a message, then delivers it to the receiver's
// live connection if one is registered. Persistence strictly precedes
// delivery: a message that failed to persist is never pushed anywhere.
// The returned message carries resolved usernames and is what the caller
// acknowledges with a message_sent event.
func (s *Service) Send(ctx context.Context, senderID, receiverID, body string) (*domain.Message, error) {
	if receiverID == "" || body == "" {
		return nil, fmt.Errorf("%w: receiver ID and message", domain.ErrMissingParameter)
	}
	if strings.TrimSpace(body) == "" {
		return nil, domain.ErrEmptyBody
	}
	if utf8.RuneCountInString(body) > domain.MaxMessageLength {
		return nil, domain.ErrBodyTooLong
	}

	// The sender closing its connection mid-send must not lose the message:
	// persistence runs to completion even if the caller's context is
	// cancelled, and a gone recipient is handled as an absent one below.
	ctx = context.WithoutCancel(ctx)

	msg := &domain.Message{
		MessageID:  uuid.NewString(),
		SenderID:   senderID,
		ReceiverID: receiverID,
		Body:       body,
		SentAt:     time.Now(),
	}
	if err := s.repo.CreateMessage(ctx, msg); err != nil {
		return nil, fmt.Errorf("persist message: %w", err)
	}

	// Re-read through the store to resolve sender/receiver usernames.
	resolved, err := s.repo.GetMessage(ctx, msg.MessageID)
	if err != nil {
		slog.Warn("Failed to resolve message names", "error", err, "message_id", msg.MessageID)
		resolved = msg
	}

	if conn := s.registry.Lookup(receiverID); conn != nil {
		if err := conn.Push(ctx, messageEvent(EventReceiveMessage, resolved)); err != nil {
			// The receiver vanished mid-delivery. The message is already
			// durable, so this is the same as an offline receiver.
			slog.Debug("Delivery to receiver failed", "error", err, "receiver_id", receiverID)
		}
	}

	return resolved, nil
}

// MarkRead sets the read flag on a message. Any connected user may mark any
// message read; there is no ownership check on this path.
func (s *Service) MarkRead(ctx context.Context, messageID string) error {
	if messageID == "" {
		return fmt.Errorf("%w: message ID", domain.ErrMissingParameter)
	}
	return s.repo.MarkMessageRead(ctx, messageID)
}

// Delete permanently removes a message. Only the sender may delete it.
func (s *Service) Delete(ctx context.Context, messageID, callerID string) error {
	msg, err := s.repo.GetMessage(ctx, messageID)
	if err != nil {
		return err
	}
	if msg.SenderID != callerID {
		return fmt.Errorf("%w: only the sender can delete a message", domain.ErrUnauthorized)
	}
	return s.repo.DeleteMessage(ctx, messageID)
}

// Typing forwards a typing signal to the receiver if connected. Fire and
// forget: a missing receiver ID or an offline receiver is silently dropped.
func (s *Service) Typing(ctx context.Context, senderID, senderName, receiverID string) {
	if receiverID == "" {
		return
	}
	if conn := s.registry.Lookup(receiverID); conn != nil {
		event := OutboundEvent{Type: EventUserTyping, Data: TypingSignal{UserID: senderID, Username: senderName}}
		if err := conn.Push(ctx, event); err != nil {
			slog.Debug("Typing signal dropped", "error", err, "receiver_id", receiverID)
		}
	}
}

// StopTyping forwards a stop-typing signal to the receiver if connected.
func (s *Service) StopTyping(ctx context.Context, senderID, receiverID string) {
	if receiverID == "" {
		return
	}
	if conn := s.registry.Lookup(receiverID); conn != nil {
		event := OutboundEvent{Type: EventUserStopTyping, Data: TypingSignal{UserID: senderID}}
		if err := conn.Push(ctx, event); err != nil {
			slog.Debug("Stop-typing signal dropped", "error", err, "receiver_id", receiverID)
		}
	}
}

// BroadcastStatus announces a presence transition to every connection in the
// registry snapshot, the transitioning user's own connection included.
func (s *Service) BroadcastStatus(ctx context.Context, userID, username string, online bool) {
	event := OutboundEvent{Type: EventUserStatus, Data: UserStatus{UserID: userID, Username: username, Online: online}}
	for _, conn := range s.registry.Snapshot() {
		if err := conn.Push(ctx, event); err != nil {
			slog.Debug("Status broadcast dropped for one connection", "error", err, "user_id", userID)
		}
	}
}
