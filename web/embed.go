// Package web embeds the offline fallback document, served when a page
// fetch misses the cache and the upstream origin is unreachable.
package web

import (
	"embed"
	"net/http"
)

//go:embed static
var staticFS embed.FS

// Fallback returns an http.Handler serving the embedded offline page.
func Fallback() http.Handler {
	page, err := staticFS.ReadFile("static/offline.html")
	if err != nil {
		panic("web: missing embedded offline page: " + err.Error())
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write(page)
	})
}
