package domain

import "errors"

var (
	// ErrNotFound is returned when a referenced user or message does not exist.
	ErrNotFound = errors.New("not found")

	// ErrUsernameTaken is returned when registering a username that already exists.
	ErrUsernameTaken = errors.New("username already exists")

	// ErrInvalidCredentials is returned on login with an unknown username or
	// a password mismatch. The two cases are deliberately indistinguishable.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrUnauthorized is returned when an authenticated caller attempts an
	// operation it is not entitled to, such as deleting another user's message.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrEmptyBody is returned when a message body is empty after trimming.
	ErrEmptyBody = errors.New("message cannot be empty")

	// ErrMissingParameter is returned when a required field is absent.
	ErrMissingParameter = errors.New("missing required parameter")

	// ErrBodyTooLong is returned when a message body exceeds MaxMessageLength.
	ErrBodyTooLong = errors.New("message cannot exceed 1000 characters")
)
