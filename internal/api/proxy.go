package api

import (
	"log/slog"
	"net/http"
	"net/http/httputil"
	"net/url"
)

// NewBackendProxy returns a pass-through reverse proxy for backend API
// routes. These must always hit the network and are never cached.
func NewBackendProxy(upstream *url.URL) http.Handler {
	proxy := httputil.NewSingleHostReverseProxy(upstream)
	proxy.ErrorHandler = func(w http.ResponseWriter, r *http.Request, err error) {
		slog.Warn("backend proxy error", "url", r.URL.String(), "error", err)
		Error(w, http.StatusBadGateway, "backend unreachable")
	}
	return proxy
}
