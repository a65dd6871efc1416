package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"regexp"
	"time"

	"github.com/avoronin/relaychat/internal/auth"
	"github.com/avoronin/relaychat/internal/domain"
	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

var usernamePattern = regexp.MustCompile(`^[a-zA-Z0-9_]+$`)

type registerRequest struct {
	Username string `json:"username" validate:"required,min=3"`
	Password string `json:"password" validate:"required,min=6"`
}

type loginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// RegisterAuthRoutes mounts the unauthenticated registration and login endpoints.
func (h *Handler) RegisterAuthRoutes(r chi.Router) {
	r.Route("/auth", func(r chi.Router) {
		r.Post("/register", h.register)
		r.Post("/login", h.login)
	})
}

func (h *Handler) register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		Error(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if err := h.validate.Struct(req); err != nil {
		Error(w, http.StatusBadRequest, registerValidationMessage(err))
		return
	}
	if !usernamePattern.MatchString(req.Username) {
		Error(w, http.StatusBadRequest, "Username can only contain letters, numbers, and underscores")
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		slog.Error("Failed to hash password", "error", err)
		Error(w, http.StatusInternalServerError, "Server error during registration")
		return
	}

	now := time.Now()
	user := &domain.User{
		UserID:       uuid.NewString(),
		Username:     req.Username,
		PasswordHash: hash,
		LastSeenAt:   now,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := h.repo.CreateUser(r.Context(), user); err != nil {
		if errors.Is(err, domain.ErrUsernameTaken) {
			Error(w, http.StatusBadRequest, "Username already exists")
			return
		}
		slog.Error("Failed to create user", "error", err)
		Error(w, http.StatusInternalServerError, "Server error during registration")
		return
	}

	slog.Info("User registered", "user_id", user.UserID, "username", user.Username)
	JSON(w, http.StatusCreated, map[string]string{
		"message":  "User registered successfully",
		"userId":   user.UserID,
		"username": user.Username,
	})
}

func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		Error(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if err := h.validate.Struct(req); err != nil {
		Error(w, http.StatusBadRequest, "Username and password are required")
		return
	}

	user, err := h.repo.GetUserByUsername(r.Context(), req.Username)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			Error(w, http.StatusUnauthorized, "Invalid credentials")
			return
		}
		slog.Error("Failed to look up user", "error", err)
		Error(w, http.StatusInternalServerError, "Server error during login")
		return
	}

	if !auth.CheckPassword(req.Password, user.PasswordHash) {
		Error(w, http.StatusUnauthorized, "Invalid credentials")
		return
	}

	token, err := h.tokens.Generate(user.UserID, user.Username)
	if err != nil {
		slog.Error("Failed to generate token", "error", err)
		Error(w, http.StatusInternalServerError, "Server error during login")
		return
	}

	slog.Info("User logged in", "user_id", user.UserID, "username", user.Username)
	JSON(w, http.StatusOK, map[string]string{
		"token":    token,
		"userId":   user.UserID,
		"username": user.Username,
	})
}

// registerValidationMessage maps a validator failure onto the message the
// client expects for that field and rule.
func registerValidationMessage(err error) string {
	var fieldErrors validator.ValidationErrors
	if !errors.As(err, &fieldErrors) || len(fieldErrors) == 0 {
		return "Username and password are required"
	}

	fe := fieldErrors[0]
	switch {
	case fe.Tag() == "required":
		return "Username and password are required"
	case fe.Field() == "Username":
		return "Username must be at least 3 characters long"
	default:
		return "Password must be at least 6 characters long"
	}
}
