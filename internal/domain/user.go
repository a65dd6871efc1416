// Package domain contains the core entities of the chat relay.
package domain

import "time"

// User represents a registered account.
type User struct {
	UserID       string    `json:"userId"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	Online       bool      `json:"online"`
	LastSeenAt   time.Time `json:"lastSeen"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"-"`
}
