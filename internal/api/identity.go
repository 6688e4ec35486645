package api

import (
	"context"
	"net"
	"net/http"

	"github.com/bambooreports/securedelivery/internal/models"
)

type contextKey string

const identityKey contextKey = "identity"

// RequireIdentity extracts the authenticated user from the headers set by
// the upstream auth proxy. Authentication itself happens before this
// service; requests without an identity are rejected here.
func RequireIdentity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user := models.UserIdentity{
			ID:          r.Header.Get("X-User-Id"),
			Email:       r.Header.Get("X-User-Email"),
			DisplayName: r.Header.Get("X-User-Name"),
		}
		if user.ID == "" || user.Email == "" {
			writeError(w, http.StatusUnauthorized, "missing user identity")
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), identityKey, user)))
	})
}

func identityFrom(r *http.Request) models.UserIdentity {
	user, _ := r.Context().Value(identityKey).(models.UserIdentity)
	return user
}

// clientIP returns the downloading client's address. RealIP middleware has
// already rewritten RemoteAddr from the proxy forwarding headers; a bare
// address (no port) passes through as-is.
func clientIP(r *http.Request) string {
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
