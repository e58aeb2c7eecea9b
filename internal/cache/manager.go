package cache

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httputil"
	"net/url"
	"strings"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"
)

// precacheConcurrency bounds parallel asset fetches during install.
const precacheConcurrency = 4

// Manager drives the cache lifecycle: install precaches the fixed shell
// asset list into the current generation, activate deletes stale
// generations, and ServeHTTP intercepts page fetches cache-first.
type Manager struct {
	cache    *Cache
	upstream *url.URL
	client   *http.Client
	proxy    *httputil.ReverseProxy
	assets   []string
	markers  []string
	fallback http.Handler

	sweeping atomic.Bool
}

// NewManager creates a cache manager fronting the upstream origin.
// assets is the fixed precache list, markers are URL substrings that must
// always hit the network, and fallback (optional) is served when both
// cache and upstream fail.
func NewManager(c *Cache, upstream *url.URL, assets, markers []string, fallback http.Handler) *Manager {
	proxy := httputil.NewSingleHostReverseProxy(upstream)
	proxy.ErrorHandler = func(w http.ResponseWriter, r *http.Request, err error) {
		slog.Warn("upstream proxy error", "url", r.URL.String(), "error", err)
		http.Error(w, `{"error":"upstream unreachable"}`, http.StatusBadGateway)
	}

	return &Manager{
		cache:    c,
		upstream: upstream,
		client:   &http.Client{Timeout: 30 * time.Second},
		proxy:    proxy,
		assets:   assets,
		markers:  markers,
		fallback: fallback,
	}
}

// Install opens the current generation and populates it with the fixed
// asset list. Any asset failure fails the whole install attempt; assets are
// simply not pre-cached until the next successful install. No retries.
func (m *Manager) Install(ctx context.Context) error {
	generation := m.cache.CurrentGeneration()
	if err := m.cache.EnsureGeneration(generation); err != nil {
		return fmt.Errorf("open generation: %w", err)
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(precacheConcurrency)
	for _, asset := range m.assets {
		asset := asset
		g.Go(func() error {
			return m.precache(ctx, generation, asset)
		})
	}
	if err := g.Wait(); err != nil {
		return fmt.Errorf("precache assets: %w", err)
	}

	slog.Info("cache install complete", "generation", generation, "assets", len(m.assets))
	return nil
}

func (m *Manager) precache(ctx context.Context, generation, asset string) error {
	target := m.upstream.ResolveReference(&url.URL{Path: asset}).String()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return fmt.Errorf("build request for %s: %w", asset, err)
	}

	resp, err := m.client.Do(req)
	if err != nil {
		return fmt.Errorf("fetch %s: %w", asset, err)
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			slog.Debug("failed to close precache response body", "asset", asset, "error", closeErr)
		}
	}()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("fetch %s: status %d", asset, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read %s: %w", asset, err)
	}

	return m.cache.Put(generation, target, &Entry{
		Status:   resp.StatusCode,
		Header:   resp.Header.Clone(),
		Body:     body,
		StoredAt: m.cache.now(),
	})
}

// Activate deletes every prefix-managed generation other than the current
// one. Cache delete failures abort activation.
func (m *Manager) Activate() error {
	current := m.cache.CurrentGeneration()
	generations, err := m.cache.Generations()
	if err != nil {
		return err
	}

	for _, name := range generations {
		if name == current {
			continue
		}
		if _, ok := generationDate(m.cache.prefix, name); !ok {
			continue
		}
		if err := m.cache.DropGeneration(name); err != nil {
			return err
		}
		slog.Info("deleted stale cache generation", "generation", name)
	}
	return nil
}

// ServeHTTP intercepts page fetches. Non-GET requests and requests whose
// URL contains a bypass marker pass through to the upstream untouched.
// Other GETs are answered from the current generation when possible; on a
// miss the upstream response is returned and, if successful, stored.
func (m *Manager) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet || m.bypassed(r) {
		m.proxy.ServeHTTP(w, r)
		return
	}

	target := m.targetURL(r)
	generation := m.cache.CurrentGeneration()
	entry, err := m.cache.Match(generation, target)
	if err != nil {
		slog.Warn("cache lookup failed", "url", target, "error", err)
	}
	if entry != nil {
		writeEntry(w, entry)
		return
	}

	m.fetchAndCache(w, r, generation, target)
}

func (m *Manager) fetchAndCache(w http.ResponseWriter, r *http.Request, generation, target string) {
	req, err := http.NewRequestWithContext(r.Context(), http.MethodGet, target, nil)
	if err != nil {
		http.Error(w, `{"error":"bad request"}`, http.StatusBadRequest)
		return
	}
	req.Header = r.Header.Clone()

	resp, err := m.client.Do(req)
	if err != nil {
		slog.Warn("upstream fetch failed", "url", target, "error", err)
		m.offline(w, r)
		return
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			slog.Debug("failed to close upstream response body", "url", target, "error", closeErr)
		}
	}()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		slog.Warn("upstream body read failed", "url", target, "error", err)
		m.offline(w, r)
		return
	}

	copyHeader(w.Header(), resp.Header)
	w.WriteHeader(resp.StatusCode)
	if _, err := w.Write(body); err != nil {
		slog.Debug("response write failed", "url", target, "error", err)
	}

	// Only successful http(s) responses are cached; everything else is
	// returned as-is without caching.
	if resp.StatusCode != http.StatusOK || !strings.HasPrefix(target, "http") {
		return
	}
	if err := m.cache.Put(generation, target, &Entry{
		Status:   resp.StatusCode,
		Header:   resp.Header.Clone(),
		Body:     body,
		StoredAt: m.cache.now(),
	}); err != nil {
		slog.Warn("failed to cache response", "url", target, "error", err)
	}
}

// offline serves the embedded fallback document when both the cache and
// the network fail.
func (m *Manager) offline(w http.ResponseWriter, r *http.Request) {
	if m.fallback != nil {
		m.fallback.ServeHTTP(w, r)
		return
	}
	http.Error(w, `{"error":"upstream unreachable"}`, http.StatusBadGateway)
}

// bypassed checks the URL as the shell requested it, so an API path
// marker fires on the request path while a backend-origin marker only
// fires on absolute-form requests naming that origin.
func (m *Manager) bypassed(r *http.Request) bool {
	requested := r.URL.String()
	for _, marker := range m.markers {
		if marker != "" && strings.Contains(requested, marker) {
			return true
		}
	}
	return false
}

func (m *Manager) targetURL(r *http.Request) string {
	u := *m.upstream
	u.Path = r.URL.Path
	u.RawQuery = r.URL.RawQuery
	return u.String()
}

func writeEntry(w http.ResponseWriter, entry *Entry) {
	copyHeader(w.Header(), entry.Header)
	w.WriteHeader(entry.Status)
	if _, err := w.Write(entry.Body); err != nil {
		slog.Debug("cached response write failed", "error", err)
	}
}

func copyHeader(dst, src http.Header) {
	for k, values := range src {
		for _, v := range values {
			dst.Add(k, v)
		}
	}
}
