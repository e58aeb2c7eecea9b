package api

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/smart-assistant/gateway/internal/domain"
)

func collectionParam(w http.ResponseWriter, r *http.Request) (string, bool) {
	collection := chi.URLParam(r, "collection")
	if !domain.ValidCollection(collection) {
		Error(w, http.StatusNotFound, "unknown collection")
		return "", false
	}
	return collection, true
}

func (h *Handler) listRecords(w http.ResponseWriter, r *http.Request) {
	collection, ok := collectionParam(w, r)
	if !ok {
		return
	}

	records, err := h.store.GetAll(r.Context(), collection)
	if err != nil {
		Error(w, http.StatusInternalServerError, "failed to read collection")
		return
	}
	if records == nil {
		records = []domain.Record{}
	}
	JSON(w, http.StatusOK, records)
}

func (h *Handler) getRecord(w http.ResponseWriter, r *http.Request) {
	collection, ok := collectionParam(w, r)
	if !ok {
		return
	}

	rec, err := h.store.Get(r.Context(), collection, chi.URLParam(r, "id"))
	if err != nil {
		Error(w, http.StatusInternalServerError, "failed to read record")
		return
	}
	if rec == nil {
		Error(w, http.StatusNotFound, "not found")
		return
	}
	JSON(w, http.StatusOK, rec)
}

func (h *Handler) putRecord(w http.ResponseWriter, r *http.Request) {
	collection, ok := collectionParam(w, r)
	if !ok {
		return
	}

	payload, err := io.ReadAll(r.Body)
	if err != nil {
		Error(w, http.StatusBadRequest, "failed to read request body")
		return
	}
	if !json.Valid(payload) {
		Error(w, http.StatusBadRequest, "payload must be valid JSON")
		return
	}

	rec := domain.Record{ID: chi.URLParam(r, "id"), Payload: payload}
	if err := h.store.Put(r.Context(), collection, rec); err != nil {
		Error(w, http.StatusInternalServerError, "failed to store record")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) deleteRecord(w http.ResponseWriter, r *http.Request) {
	collection, ok := collectionParam(w, r)
	if !ok {
		return
	}

	if err := h.store.Delete(r.Context(), collection, chi.URLParam(r, "id")); err != nil {
		Error(w, http.StatusInternalServerError, "failed to delete record")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) clearCollection(w http.ResponseWriter, r *http.Request) {
	collection, ok := collectionParam(w, r)
	if !ok {
		return
	}

	if err := h.store.Clear(r.Context(), collection); err != nil {
		Error(w, http.StatusInternalServerError, "failed to clear collection")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
