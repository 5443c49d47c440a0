package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"
)

// contextKey is unexported so no other package can read or overwrite the
// user id stored by this middleware.
type contextKey string

const userIDKey contextKey = "userID"

// CookieName is the cookie that carries the session token for browsers.
const CookieName = "token"

var errNoToken = errors.New("auth: no token")

// RequireAuth rejects requests without a valid session token with 401 and
// stores the user id in the context for the handlers behind it.
//
// Tokens are accepted from "Authorization: Bearer <jwt>" (the mobile app)
// or the "token" cookie (browsers). The header wins when both are present.
func RequireAuth(tokens *TokenService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID, err := extractUserID(r, tokens)
			if err != nil {
				w.Header().Set("Content-Type", "application/json")
				w.Header().Set("WWW-Authenticate", `Bearer realm="kitchi"`)
				w.WriteHeader(http.StatusUnauthorized)
				w.Write([]byte(`{"error":"unauthorized","message":"Please sign in again."}` + "\n")) //nolint:errcheck
				return
			}

			next.ServeHTTP(w, r.WithContext(WithUserID(r.Context(), userID)))
		})
	}
}

// OptionalAuth attaches the user id when a valid token is present but never
// blocks the request. Used on sign-out, which must work with an expired
// session.
func OptionalAuth(tokens *TokenService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if userID, err := extractUserID(r, tokens); err == nil {
				r = r.WithContext(WithUserID(r.Context(), userID))
			}
			next.ServeHTTP(w, r)
		})
	}
}

// WithUserID returns a context carrying userID. Exported for handler tests.
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIDKey, userID)
}

// UserIDFromContext returns ("", false) for anonymous requests.
func UserIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(userIDKey).(string)
	return id, ok && id != ""
}

func extractUserID(r *http.Request, tokens *TokenService) (string, error) {
	token := bearerToken(r)
	if token == "" {
		if cookie, err := r.Cookie(CookieName); err == nil {
			token = cookie.Value
		}
	}
	if token == "" {
		return "", errNoToken
	}
	return tokens.Validate(token)
}

func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if len(h) < 7 || !strings.EqualFold(h[:7], "bearer ") {
		return ""
	}
	return strings.TrimSpace(h[7:])
}
