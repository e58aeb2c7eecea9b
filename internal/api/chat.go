package api

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/smart-assistant/gateway/internal/domain"
	"github.com/smart-assistant/gateway/internal/identity"
)

func userParam(w http.ResponseWriter, r *http.Request) (int, bool) {
	userID := identity.UserIDFromContext(r.Context())
	if userID < 1 {
		Error(w, http.StatusBadRequest, "missing user identity")
		return 0, false
	}
	return userID, true
}

func (h *Handler) getChatHistory(w http.ResponseWriter, r *http.Request) {
	userID, ok := userParam(w, r)
	if !ok {
		return
	}

	history, err := h.store.GetChatHistory(r.Context(), userID)
	if err != nil {
		Error(w, http.StatusInternalServerError, "failed to read chat history")
		return
	}
	if history == nil {
		history = []domain.ChatMessage{}
	}
	JSON(w, http.StatusOK, history)
}

func (h *Handler) saveChatMessage(w http.ResponseWriter, r *http.Request) {
	userID, ok := userParam(w, r)
	if !ok {
		return
	}

	var msg domain.ChatMessage
	if err := json.NewDecoder(r.Body).Decode(&msg); err != nil {
		Error(w, http.StatusBadRequest, "invalid chat message")
		return
	}

	saved, err := h.store.SaveChatMessage(r.Context(), userID, msg)
	if err != nil {
		// A failed local save must not disturb the live chat experience;
		// the message survives in the shell's in-memory state and is simply
		// absent from the transcript after a reload.
		slog.Warn("failed to persist chat message locally", "user_id", userID, "error", err)
		JSON(w, http.StatusAccepted, map[string]bool{"persisted": false})
		return
	}
	JSON(w, http.StatusCreated, saved)
}

func (h *Handler) clearChatHistory(w http.ResponseWriter, r *http.Request) {
	userID, ok := userParam(w, r)
	if !ok {
		return
	}

	if err := h.store.ClearChatHistory(r.Context(), userID); err != nil {
		Error(w, http.StatusInternalServerError, "failed to clear chat history")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
