// Package store provides data persistence interfaces and implementations.
package store

import (
	"context"
	"time"

	"github.com/avoronin/relaychat/internal/domain"
)

// Repository defines the interface for persisting user and message data.
type Repository interface {
	// CreateUser inserts a new user record. Returns domain.ErrUsernameTaken
	// if the username is already registered.
	CreateUser(ctx context.Context, user *domain.User) error

	// GetUser retrieves a user by id. Returns domain.ErrNotFound if absent.
	GetUser(ctx context.Context, userID string) (*domain.User, error)

	// GetUserByUsername retrieves a user by username. Returns
	// domain.ErrNotFound if absent.
	GetUserByUsername(ctx context.Context, username string) (*domain.User, error)

	// ListUsers returns all registered users.
	ListUsers(ctx context.Context) ([]*domain.User, error)

	// ListOnlineUsers returns users whose durable online flag is set.
	ListOnlineUsers(ctx context.Context) ([]*domain.User, error)

	// SetPresence updates the durable online flag and last-seen timestamp.
	SetPresence(ctx context.Context, userID string, online bool, lastSeen time.Time) error

	// CreateMessage persists a new message record.
	CreateMessage(ctx context.Context, msg *domain.Message) error

	// GetMessage retrieves a message by id. Returns domain.ErrNotFound if absent.
	GetMessage(ctx context.Context, messageID string) (*domain.Message, error)

	// ListConversation returns all messages exchanged between the two users,
	// in both directions, ordered ascending by send time with insertion order
	// as the tie-break. Sender and receiver usernames are resolved.
	ListConversation(ctx context.Context, userID, otherUserID string) ([]*domain.Message, error)

	// MarkMessageRead sets the read flag on a message. Returns
	// domain.ErrNotFound if the id is unknown.
	MarkMessageRead(ctx context.Context, messageID string) error

	// DeleteMessage permanently removes a message record.
	DeleteMessage(ctx context.Context, messageID string) error

	// Ping verifies database connectivity.
	Ping(ctx context.Context) error

	// Close closes the database connection.
	Close() error
}
