// Package api provides HTTP handlers for the chat relay REST surface.
package api

import (
	"encoding/json"
	"net/http"

	"github.com/avoronin/relaychat/internal/auth"
	"github.com/avoronin/relaychat/internal/chat"
	"github.com/avoronin/relaychat/internal/store"
	"github.com/go-playground/validator/v10"
)

// Handler provides common handler dependencies.
type Handler struct {
	repo     store.Repository
	relay    *chat.Service
	tokens   *auth.Tokens
	validate *validator.Validate
}

// NewHandler creates a new Handler with common dependencies.
func NewHandler(repo store.Repository, relay *chat.Service, tokens *auth.Tokens) *Handler {
	return &Handler{
		repo:     repo,
		relay:    relay,
		tokens:   tokens,
		validate: validator.New(),
	}
}

// JSON writes a JSON response with the given status code.
func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, `{"error": "failed to encode response"}`, http.StatusInternalServerError)
	}
}

// Error writes a JSON error response.
func Error(w http.ResponseWriter, status int, message string) {
	JSON(w, status, map[string]string{"error": message})
}
