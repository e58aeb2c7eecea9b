// Package identity resolves the shell-provided user identity.
//
// The gateway runs on the same machine as the application shell and trusts
// it: identity is a plain user id carried in a header or query parameter,
// not an authentication mechanism. Authentication happens at the remote
// backend, outside this process.
package identity

import (
	"context"
	"net/http"
	"strconv"
	"strings"
)

// UserHeaderName carries the owning user id on shell requests.
const UserHeaderName = "X-Assistant-User-ID"

type contextKey int

const userIDKey contextKey = iota

// UserIDFromContext extracts the user id from the request context.
// Returns 0 when no identity was provided.
func UserIDFromContext(ctx context.Context) int {
	if v, ok := ctx.Value(userIDKey).(int); ok {
		return v
	}
	return 0
}

func userIDFromRequest(r *http.Request) int {
	v := r.Header.Get(UserHeaderName)
	if v == "" {
		v = r.URL.Query().Get("user_id")
	}
	id, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil || id < 1 {
		return 0
	}
	return id
}

// Middleware injects the shell-provided user id into the request context.
func Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := context.WithValue(r.Context(), userIDKey, userIDFromRequest(r))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
