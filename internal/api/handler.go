// Package api provides HTTP handlers for the gateway's local record API.
//
// The application shell uses these routes as its embedded store: reads and
// writes go to the local cache, while the remote backend stays the source
// of truth for every entity except the chat transcript.
package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/smart-assistant/gateway/internal/store"
)

// Handler serves the local record API backed by the persistence store.
type Handler struct {
	store store.Store
}

// NewHandler creates a new Handler.
func NewHandler(st store.Store) *Handler {
	return &Handler{store: st}
}

// JSON writes a JSON response with the given status code.
func JSON(w http.ResponseWriter, status int, v interface{}) {
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

// RegisterRoutes mounts the local record API under /local.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/local", func(r chi.Router) {
		r.Get("/chat/history", h.getChatHistory)
		r.Post("/chat/history", h.saveChatMessage)
		r.Delete("/chat/history", h.clearChatHistory)

		r.Route("/{collection}", func(r chi.Router) {
			r.Get("/", h.listRecords)
			r.Delete("/", h.clearCollection)
			r.Get("/{id}", h.getRecord)
			r.Put("/{id}", h.putRecord)
			r.Delete("/{id}", h.deleteRecord)
		})
	})
}
