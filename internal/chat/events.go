// Package chat implements the realtime connection lifecycle and the message
// relay between two users.
package chat

import "github.com/avoronin/relaychat/internal/domain"

// Inbound event types accepted from a client.
const (
	EventGetChatHistory = "get_chat_history"
	EventSendMessage    = "send_message"
	EventTyping         = "typing"
	EventStopTyping     = "stop_typing"
	EventMarkAsRead     = "mark_as_read"
)

// Outbound event types pushed to clients.
const (
	EventChatHistory    = "chat_history"
	EventReceiveMessage = "receive_message"
	EventMessageSent    = "message_sent"
	EventUserTyping     = "user_typing"
	EventUserStopTyping = "user_stop_typing"
	EventMessageRead    = "message_read"
	EventUserStatus     = "user_status"
	EventError          = "error"
)

// InboundEvent is one client frame. Type selects the operation; the
// remaining fields are populated depending on the type.
type InboundEvent struct {
	Type        string `json:"type"`
	OtherUserID string `json:"otherUserId,omitempty"`
	ReceiverID  string `json:"receiverId,omitempty"`
	Message     string `json:"message,omitempty"`
	MessageID   string `json:"messageId,omitempty"`
}

// OutboundEvent is one server frame.
type OutboundEvent struct {
	Type string `json:"type"`
	Data any    `json:"data,omitempty"`
}

// UserStatus announces a presence transition to all connected clients.
type UserStatus struct {
	UserID   string `json:"userId"`
	Username string `json:"username"`
	Online   bool   `json:"online"`
}

// TypingSignal notifies a single recipient that the sender is typing.
type TypingSignal struct {
	UserID   string `json:"userId"`
	Username string `json:"username,omitempty"`
}

// ReadReceipt acknowledges a mark-as-read request to its caller.
type ReadReceipt struct {
	MessageID string `json:"messageId"`
}

// ErrorPayload carries an operation failure back to the caller.
type ErrorPayload struct {
	Message string `json:"message"`
}

func errorEvent(message string) OutboundEvent {
	return OutboundEvent{Type: EventError, Data: ErrorPayload{Message: message}}
}

func messageEvent(eventType string, msg *domain.Message) OutboundEvent {
	return OutboundEvent{Type: eventType, Data: msg}
}
