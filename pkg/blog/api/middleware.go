package api

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/tendant/simple-blog/pkg/blog"
	"github.com/tendant/simple-blog/pkg/blog/auth"
)

// Context keys for middleware
type contextKey string

const identityKey contextKey = "identity"

// IdentityFromContext returns the caller resolved by Authenticate, or nil
// for anonymous requests.
func IdentityFromContext(ctx context.Context) *blog.Identity {
	identity, _ := ctx.Value(identityKey).(*blog.Identity)
	return identity
}

// WithIdentity returns a context carrying identity
func WithIdentity(ctx context.Context, identity *blog.Identity) context.Context {
	return context.WithValue(ctx, identityKey, identity)
}

// Authenticate resolves the caller from the bearer token or the token
// cookie. Invalid or expired tokens are served as anonymous. A resolved
// caller gets a local author record before the handler runs.
func Authenticate(authn blog.AuthService, service blog.Service, logger *slog.Logger) func(http.Handler) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := auth.TokenFromRequest(r)
			if token == "" {
				next.ServeHTTP(w, r)
				return
			}

			identity, err := authn.CurrentUser(r.Context(), token)
			if err != nil {
				logger.DebugContext(r.Context(), "ignoring invalid credentials", "error", err)
				next.ServeHTTP(w, r)
				return
			}
			if identity == nil {
				next.ServeHTTP(w, r)
				return
			}

			if err := service.EnsureAuthor(r.Context(), identity); err != nil {
				logger.ErrorContext(r.Context(), "failed to sync author", "author_id", identity.ID, "error", err)
				writeError(w, r, logger, err)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), identity)))
		})
	}
}

// RequireAuth rejects anonymous requests with 401
func RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if IdentityFromContext(r.Context()) == nil {
			writeError(w, r, nil, blog.ErrUnauthenticated)
			return
		}
		next.ServeHTTP(w, r)
	})
}
