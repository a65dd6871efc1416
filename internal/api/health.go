package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// RegisterHealth mounts the public health endpoint.
func (h *Handler) RegisterHealth(r chi.Router) {
	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		JSON(w, http.StatusOK, map[string]string{
			"status":  "ok",
			"message": "Server is running",
		})
	})
}
