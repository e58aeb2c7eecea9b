// Package notify relays the backend notification WebSocket to the shell.
// The gateway never caches or inspects notification frames; it only keeps
// the channel alive across the two hops.
package notify

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/coder/websocket"

	"github.com/smart-assistant/gateway/internal/identity"
)

// Relay upgrades shell connections and pipes frames to and from the
// upstream notification endpoint.
type Relay struct {
	upstream *url.URL
}

// NewRelay creates a relay fronting the upstream origin.
func NewRelay(upstream *url.URL) *Relay {
	return &Relay{upstream: upstream}
}

// ServeHTTP implements http.Handler for WebSocket upgrade.
func (rl *Relay) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	userID := identity.UserIDFromContext(r.Context())
	slog.Info("notification relay connection", "user_id", userID, "ip", r.RemoteAddr)

	shell, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		slog.Error("failed to accept notification socket", "error", err, "user_id", userID)
		return
	}
	defer func() {
		if closeErr := shell.Close(websocket.StatusNormalClosure, "relay ended"); closeErr != nil {
			slog.Debug("failed to close shell socket", "error", closeErr, "user_id", userID)
		}
	}()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	backend, _, err := websocket.Dial(ctx, rl.backendURL(r), &websocket.DialOptions{
		HTTPHeader: http.Header{identity.UserHeaderName: r.Header.Values(identity.UserHeaderName)},
	})
	if err != nil {
		slog.Warn("notification backend unreachable", "error", err, "user_id", userID)
		if closeErr := shell.Close(websocket.StatusGoingAway, "backend unreachable"); closeErr != nil {
			slog.Debug("failed to close shell socket", "error", closeErr, "user_id", userID)
		}
		return
	}
	defer func() {
		if closeErr := backend.Close(websocket.StatusNormalClosure, "relay ended"); closeErr != nil {
			slog.Debug("failed to close backend socket", "error", closeErr, "user_id", userID)
		}
	}()

	errCh := make(chan error, 2)
	go func() { errCh <- pipe(ctx, shell, backend) }()
	go func() { errCh <- pipe(ctx, backend, shell) }()

	// First closed direction ends the relay; the deferred closes unblock
	// the other pipe.
	if err := <-errCh; err != nil && websocket.CloseStatus(err) < 0 && ctx.Err() == nil {
		slog.Debug("notification relay ended", "error", err, "user_id", userID)
	}
}

// backendURL maps the shell's request onto the upstream WebSocket endpoint.
func (rl *Relay) backendURL(r *http.Request) string {
	u := *rl.upstream
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	u.Path = r.URL.Path
	u.RawQuery = r.URL.RawQuery
	return u.String()
}

func pipe(ctx context.Context, dst, src *websocket.Conn) error {
	for {
		typ, data, err := src.Read(ctx)
		if err != nil {
			return err
		}
		if err := dst.Write(ctx, typ, data); err != nil {
			return err
		}
	}
}
