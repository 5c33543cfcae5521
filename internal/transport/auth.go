package transport

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/rpggio/stepflow/internal/auth"
)

// ErrUnauthorized indicates invalid or missing credentials.
var ErrUnauthorized = errors.New("unauthorized")

type userKey struct{}

// UserResolver resolves a user ID from a bearer token.
type UserResolver interface {
	ResolveUser(ctx context.Context, token string) (string, error)
}

// UserFromContext returns the authenticated user ID from context, if present.
func UserFromContext(ctx context.Context) (string, bool) {
	userID, ok := ctx.Value(userKey{}).(string)
	return userID, ok && userID != ""
}

// WithUser returns ctx carrying userID.
func WithUser(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userKey{}, userID)
}

// AuthMiddleware enforces bearer token authentication.
func AuthMiddleware(resolver UserResolver) func(http.Handler) http.Handler {
	return authMiddleware(resolver, false)
}

// DownloadAuthMiddleware also accepts the token as a ?token= query parameter, for links opened by a browser.
func DownloadAuthMiddleware(resolver UserResolver) func(http.Handler) http.Handler {
	return authMiddleware(resolver, true)
}

func authMiddleware(resolver UserResolver, allowQuery bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r)
			if token == "" && allowQuery {
				token = strings.TrimSpace(r.URL.Query().Get("token"))
			}
			if token == "" {
				writeError(w, r, ErrUnauthorized, "missing bearer token")
				return
			}

			userID, err := resolver.ResolveUser(r.Context(), token)
			switch {
			case err == nil && userID != "":
			case err == nil, errors.Is(err, auth.ErrInvalidToken), errors.Is(err, ErrUnauthorized):
				writeError(w, r, ErrUnauthorized, "invalid bearer token")
				return
			default:
				writeError(w, r, err, "could not verify credentials")
				return
			}

			next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), userID)))
		})
	}
}

func bearerToken(r *http.Request) string {
	parts := strings.Fields(r.Header.Get("Authorization"))
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return ""
	}
	return parts[1]
}
