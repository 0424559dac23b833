// middleware.go -- request authentication for protected routes.
package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/MGallo-Code/styx/internal/store"
	"github.com/jackc/pgx/v5"
)

type contextKey string

const userContextKey contextKey = "authenticated_user"

// UserFromContext returns the authenticated user placed by RequireAuth.
func UserFromContext(ctx context.Context) (*store.User, bool) {
	user, ok := ctx.Value(userContextKey).(*store.User)
	return user, ok
}

// WithUser returns a context carrying the user the way RequireAuth attaches
// it. Handler tests use it to bypass the middleware.
func WithUser(ctx context.Context, user *store.User) context.Context {
	return context.WithValue(ctx, userContextKey, user)
}

// bearerToken extracts the access token from the request: the access_token
// cookie first, then the Authorization: Bearer header.
func bearerToken(r *http.Request) string {
	if cookie, err := r.Cookie(CookieAccessToken); err == nil && cookie.Value != "" {
		return cookie.Value
	}
	header := r.Header.Get("Authorization")
	if token, ok := strings.CutPrefix(header, "Bearer "); ok {
		return strings.TrimSpace(token)
	}
	return ""
}

// RequireAuth gates routes on a live access token. The token registry is
// the sole authority: a token absent from the registry is rejected no
// matter what its signature or exp claim say, which is what makes logout
// revocation immediate. Presenting a refresh token here is a 401.
func (h *AuthHandler) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		if token == "" {
			Unauthorized(w, r, "authentication required")
			return
		}

		content, err := h.TR.Lookup(r.Context(), token)
		if err != nil {
			if errors.Is(err, store.ErrTokenNotFound) {
				Unauthorized(w, r, "invalid or expired token")
				return
			}
			// Corrupt entry or registry outage -- server fault, not the client's.
			logError(r, "token lookup failed", "error", err)
			InternalServerError(w, r, err)
			return
		}

		if content.Kind != store.TokenKindAccess {
			logInfo(r, "non-access token presented for authentication", "user_id", content.UserID)
			Unauthorized(w, r, "invalid or expired token")
			return
		}

		user, err := h.PS.GetUserByID(r.Context(), content.UserID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				// Registry entry outlived the user row.
				logWarn(r, "token resolved to non-existent user", "user_id", content.UserID)
				Unauthorized(w, r, "invalid or expired token")
				return
			}
			InternalServerError(w, r, err)
			return
		}

		if !user.Active {
			logInfo(r, "request from locked account", "user_id", user.ID)
			Forbidden(w, r, "account locked")
			return
		}

		ctx := context.WithValue(r.Context(), userContextKey, user)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
