package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/smart-assistant/gateway/internal/domain"
)

func doRequest(t *testing.T, router http.Handler, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var r *http.Request
	if body == "" {
		r = httptest.NewRequest(method, target, nil)
	} else {
		r = httptest.NewRequest(method, target, strings.NewReader(body))
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, r)
	return w
}

func TestGetRecord_Missing(t *testing.T) {
	router := newTestRouter(t)

	w := doRequest(t, router, http.MethodGet, "/local/tasks/999", "")
	if w.Code != http.StatusNotFound {
		t.Errorf("Expected 404 for missing record, got %d", w.Code)
	}
}

func TestPutThenGetRecord(t *testing.T) {
	router := newTestRouter(t)

	w := doRequest(t, router, http.MethodPut, "/local/tasks/t1", `{"title":"buy milk"}`)
	if w.Code != http.StatusNoContent {
		t.Fatalf("Expected 204 from put, got %d", w.Code)
	}

	w = doRequest(t, router, http.MethodGet, "/local/tasks/t1", "")
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200 from get, got %d", w.Code)
	}

	var rec domain.Record
	if err := json.NewDecoder(w.Body).Decode(&rec); err != nil {
		t.Fatalf("Failed to decode record: %v", err)
	}
	if rec.ID != "t1" {
		t.Errorf("Expected id t1, got %q", rec.ID)
	}
	var payload map[string]string
	if err := json.Unmarshal(rec.Payload, &payload); err != nil {
		t.Fatalf("Failed to decode payload: %v", err)
	}
	if payload["title"] != "buy milk" {
		t.Errorf("Expected title preserved, got %q", payload["title"])
	}
}

func TestPutRecord_RejectsInvalidJSON(t *testing.T) {
	router := newTestRouter(t)

	w := doRequest(t, router, http.MethodPut, "/local/notes/n1", `{"broken`)
	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for invalid payload, got %d", w.Code)
	}
}

func TestUnknownCollection(t *testing.T) {
	router := newTestRouter(t)

	w := doRequest(t, router, http.MethodGet, "/local/bookmarks/", "")
	if w.Code != http.StatusNotFound {
		t.Errorf("Expected 404 for unknown collection, got %d", w.Code)
	}
}

func TestClearCollection(t *testing.T) {
	router := newTestRouter(t)

	doRequest(t, router, http.MethodPut, "/local/timers/tm1", `{"label":"tea"}`)
	doRequest(t, router, http.MethodPut, "/local/timers/tm2", `{"label":"eggs"}`)

	w := doRequest(t, router, http.MethodDelete, "/local/timers/", "")
	if w.Code != http.StatusNoContent {
		t.Fatalf("Expected 204 from clear, got %d", w.Code)
	}

	w = doRequest(t, router, http.MethodGet, "/local/timers/", "")
	var records []domain.Record
	if err := json.NewDecoder(w.Body).Decode(&records); err != nil {
		t.Fatalf("Failed to decode records: %v", err)
	}
	if len(records) != 0 {
		t.Errorf("Expected empty collection after clear, got %d records", len(records))
	}
}

func TestDeleteRecord_MissingIsNoOp(t *testing.T) {
	router := newTestRouter(t)

	w := doRequest(t, router, http.MethodDelete, "/local/notes/absent", "")
	if w.Code != http.StatusNoContent {
		t.Errorf("Expected 204 deleting a missing record, got %d", w.Code)
	}
}
