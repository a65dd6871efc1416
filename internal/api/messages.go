package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/avoronin/relaychat/internal/auth"
	"github.com/avoronin/relaychat/internal/domain"
	"github.com/go-chi/chi/v5"
)

// RegisterMessageRoutes mounts the authenticated message endpoints. Delete
// has no realtime counterpart; it exists only on the REST surface.
func (h *Handler) RegisterMessageRoutes(r chi.Router) {
	r.Delete("/messages/{messageID}", h.deleteMessage)
}

func (h *Handler) deleteMessage(w http.ResponseWriter, r *http.Request) {
	messageID := chi.URLParam(r, "messageID")
	callerID := auth.UserIDFromContext(r.Context())

	if err := h.relay.Delete(r.Context(), messageID, callerID); err != nil {
		switch {
		case errors.Is(err, domain.ErrNotFound):
			Error(w, http.StatusNotFound, "Message not found")
		case errors.Is(err, domain.ErrUnauthorized):
			Error(w, http.StatusForbidden, "Unauthorized to delete this message")
		default:
			slog.Error("Failed to delete message", "error", err, "message_id", messageID)
			Error(w, http.StatusInternalServerError, "Server error deleting message")
		}
		return
	}

	JSON(w, http.StatusOK, map[string]string{"message": "Message deleted successfully"})
}
