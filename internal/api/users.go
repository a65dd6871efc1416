package api

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/avoronin/relaychat/internal/domain"
	"github.com/go-chi/chi/v5"
)

type userResponse struct {
	UserID    string     `json:"userId"`
	Username  string     `json:"username"`
	Online    bool       `json:"online"`
	LastSeen  time.Time  `json:"lastSeen"`
	CreatedAt *time.Time `json:"createdAt,omitempty"`
}

// RegisterUserRoutes mounts the authenticated user directory endpoints.
func (h *Handler) RegisterUserRoutes(r chi.Router) {
	r.Route("/users", func(r chi.Router) {
		r.Get("/", h.listUsers)
		r.Get("/online", h.listOnlineUsers)
		r.Get("/{userID}", h.getUser)
	})
}

func (h *Handler) listUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.repo.ListUsers(r.Context())
	if err != nil {
		slog.Error("Failed to list users", "error", err)
		Error(w, http.StatusInternalServerError, "Server error fetching users")
		return
	}

	out := make([]userResponse, 0, len(users))
	for _, u := range users {
		out = append(out, toUserResponse(u, true))
	}
	JSON(w, http.StatusOK, out)
}

func (h *Handler) listOnlineUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.repo.ListOnlineUsers(r.Context())
	if err != nil {
		slog.Error("Failed to list online users", "error", err)
		Error(w, http.StatusInternalServerError, "Server error fetching online users")
		return
	}

	out := make([]userResponse, 0, len(users))
	for _, u := range users {
		out = append(out, toUserResponse(u, false))
	}
	JSON(w, http.StatusOK, out)
}

func (h *Handler) getUser(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")

	user, err := h.repo.GetUser(r.Context(), userID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			Error(w, http.StatusNotFound, "User not found")
			return
		}
		slog.Error("Failed to fetch user", "error", err, "user_id", userID)
		Error(w, http.StatusInternalServerError, "Server error fetching user")
		return
	}

	JSON(w, http.StatusOK, toUserResponse(user, true))
}

func toUserResponse(u *domain.User, withCreatedAt bool) userResponse {
	resp := userResponse{
		UserID:   u.UserID,
		Username: u.Username,
		Online:   u.Online,
		LastSeen: u.LastSeenAt,
	}
	if withCreatedAt {
		createdAt := u.CreatedAt
		resp.CreatedAt = &createdAt
	}
	return resp
}
