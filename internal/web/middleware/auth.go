package middleware

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/JonMunkholm/traintrack/internal/auth"
	"github.com/JonMunkholm/traintrack/internal/core"
)

// SessionCookie carries the session token for browser pages.
const SessionCookie = "traintrack_session"

type ctxKey struct{}

// Principal is the authenticated staff member.
type Principal struct {
	Username string    `json:"username"`
	Role     auth.Role `json:"role"`
}

// PrincipalFromContext returns the authenticated staff member, if any.
func PrincipalFromContext(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(ctxKey{}).(Principal)
	return p, ok
}

// WithPrincipal stores p on ctx. Tests use it to bypass token parsing.
func WithPrincipal(ctx context.Context, p Principal) context.Context {
	ctx = context.WithValue(ctx, ctxKey{}, p)
	return core.ContextWithActor(ctx, p.Username)
}

// Authenticate requires a valid session token in the Authorization header
// or the session cookie.
func Authenticate(tokens *auth.Manager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := bearer(r)
			if raw == "" {
				deny(w, r, http.StatusUnauthorized, "missing session token", "AUTH002")
				return
			}
			claims, err := tokens.ParseToken(raw)
			if err != nil {
				deny(w, r, http.StatusUnauthorized, "invalid or expired session token", "AUTH002")
				return
			}
			notePrincipal(r, claims.Subject)
			ctx := WithPrincipal(r.Context(), Principal{Username: claims.Subject, Role: claims.Role})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireRole rejects principals below min.
func RequireRole(min auth.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p, ok := PrincipalFromContext(r.Context())
			if !ok {
				deny(w, r, http.StatusUnauthorized, "missing session token", "AUTH002")
				return
			}
			if !p.Role.AtLeast(min) {
				deny(w, r, http.StatusForbidden, "forbidden: requires role "+string(min), "AUTH003")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func bearer(r *http.Request) string {
	if h := r.Header.Get("Authorization"); strings.HasPrefix(h, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
	}
	if c, err := r.Cookie(SessionCookie); err == nil {
		return c.Value
	}
	return ""
}

func deny(w http.ResponseWriter, r *http.Request, status int, msg, code string) {
	slog.Warn("auth: request denied",
		"path", r.URL.Path,
		"method", r.Method,
		"status", status,
		"remote_addr", r.RemoteAddr,
	)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": msg, "message": msg, "code": code})
}
