package cache

import (
	"net/http"
	"slices"
	"testing"
	"time"
)

func newTestCache(t *testing.T) *Cache {
	t.Helper()
	c, err := Open(t.TempDir(), "smart-assistant-v1")
	if err != nil {
		t.Fatalf("Failed to open cache: %v", err)
	}
	t.Cleanup(func() {
		if err := c.Close(); err != nil {
			t.Errorf("Failed to close cache: %v", err)
		}
	})
	return c
}

func TestMatch_Miss(t *testing.T) {
	c := newTestCache(t)

	entry, err := c.Match(c.CurrentGeneration(), "http://origin/missing.js")
	if err != nil {
		t.Fatalf("Match returned error on miss: %v", err)
	}
	if entry != nil {
		t.Errorf("Expected nil entry on miss, got %+v", entry)
	}
}

func TestPut_ThenMatch(t *testing.T) {
	c := newTestCache(t)
	generation := c.CurrentGeneration()
	url := "http://origin/app.js"

	stored := &Entry{
		Status:   http.StatusOK,
		Header:   http.Header{"Content-Type": []string{"application/javascript"}},
		Body:     []byte("console.log('hi')"),
		StoredAt: time.Now(),
	}
	if err := c.Put(generation, url, stored); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	entry, err := c.Match(generation, url)
	if err != nil {
		t.Fatalf("Match failed: %v", err)
	}
	if entry == nil {
		t.Fatal("Expected cached entry, got nil")
	}
	if entry.Status != http.StatusOK {
		t.Errorf("Expected status 200, got %d", entry.Status)
	}
	if string(entry.Body) != "console.log('hi')" {
		t.Errorf("Unexpected body %q", entry.Body)
	}
	if entry.Header.Get("Content-Type") != "application/javascript" {
		t.Errorf("Unexpected content type %q", entry.Header.Get("Content-Type"))
	}
}

func TestPut_OverwritesSameURL(t *testing.T) {
	c := newTestCache(t)
	generation := c.CurrentGeneration()
	url := "http://origin/index.html"

	if err := c.Put(generation, url, &Entry{Status: 200, Body: []byte("old")}); err != nil {
		t.Fatalf("First put failed: %v", err)
	}
	if err := c.Put(generation, url, &Entry{Status: 200, Body: []byte("new")}); err != nil {
		t.Fatalf("Second put failed: %v", err)
	}

	entry, err := c.Match(generation, url)
	if err != nil {
		t.Fatalf("Match failed: %v", err)
	}
	if string(entry.Body) != "new" {
		t.Errorf("Expected overwritten body, got %q", entry.Body)
	}
}

func TestGenerations_ListAndDrop(t *testing.T) {
	c := newTestCache(t)
	old := "smart-assistant-v1-2020-01-01"
	current := c.CurrentGeneration()

	if err := c.EnsureGeneration(old); err != nil {
		t.Fatalf("EnsureGeneration failed: %v", err)
	}
	if err := c.Put(old, "http://origin/stale.js", &Entry{Status: 200, Body: []byte("x")}); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	if err := c.EnsureGeneration(current); err != nil {
		t.Fatalf("EnsureGeneration failed: %v", err)
	}

	names, err := c.Generations()
	if err != nil {
		t.Fatalf("Generations failed: %v", err)
	}
	if len(names) != 2 || !slices.Contains(names, old) || !slices.Contains(names, current) {
		t.Fatalf("Expected [%s %s], got %v", old, current, names)
	}

	if err := c.DropGeneration(old); err != nil {
		t.Fatalf("DropGeneration failed: %v", err)
	}

	names, err = c.Generations()
	if err != nil {
		t.Fatalf("Generations failed: %v", err)
	}
	if len(names) != 1 || names[0] != current {
		t.Errorf("Expected only current generation, got %v", names)
	}

	entry, err := c.Match(old, "http://origin/stale.js")
	if err != nil {
		t.Fatalf("Match failed: %v", err)
	}
	if entry != nil {
		t.Error("Expected dropped generation's entries to be gone")
	}
}
