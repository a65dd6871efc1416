package domain

import "time"

// MaxMessageLength bounds the body of a chat message, counted in characters.
const MaxMessageLength = 1000

// Message represents one persisted chat message between two users.
// SenderName and ReceiverName are resolved from the users table at read
// time; the stored record carries only the ids.
type Message struct {
	MessageID    string    `json:"messageId"`
	SenderID     string    `json:"senderId"`
	ReceiverID   string    `json:"receiverId"`
	SenderName   string    `json:"senderName,omitempty"`
	ReceiverName string    `json:"receiverName,omitempty"`
	Body         string    `json:"message"`
	SentAt       time.Time `json:"timestamp"`
	Read         bool      `json:"read"`
}
