package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"strap/internal/auth"
	"strap/internal/logger"
	"strap/internal/metrics"
	"strap/internal/session"
)

// PublicPrefix covers the provider entry point, the OAuth callback and
// logout. Everything else requires a signed-in visitor.
const PublicPrefix = "/auth/"

// unexported, collision-proof context key
type identityContextKeyType struct{}

var identityKey = identityContextKeyType{}

// IdentityFromContext extracts the signed-in visitor from context.
func IdentityFromContext(ctx context.Context) (*auth.Identity, bool) {
	id, ok := ctx.Value(identityKey).(*auth.Identity)
	return id, ok && id != nil
}

// WithIdentity returns ctx carrying id.
func WithIdentity(ctx context.Context, id *auth.Identity) context.Context {
	return context.WithValue(ctx, identityKey, id)
}

type AuthMiddleware struct {
	Store     session.Store
	LoginPath string
}

func NewAuthMiddleware(store session.Store, loginPath string) *AuthMiddleware {
	return &AuthMiddleware{Store: store, LoginPath: loginPath}
}

// RequireAuth is the session gate. Requests outside PublicPrefix without a
// session identity are redirected to LoginPath and go no further.
func (a *AuthMiddleware) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasPrefix(r.URL.Path, PublicPrefix) {
			next.ServeHTTP(w, r)
			return
		}

		id, err := a.Store.Load(r)
		if err != nil {
			if !errors.Is(err, session.ErrNoIdentity) {
				// tampered, stale or unreadable; same as signed out
				logger.Warn("session unreadable", map[string]any{
					"path":  r.URL.Path,
					"error": err.Error(),
				})
			}
			metrics.GateRedirects.Inc()
			http.Redirect(w, r, a.LoginPath, http.StatusFound)
			return
		}

		next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), id)))
	})
}
