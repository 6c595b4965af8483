package chi

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/kailas-cloud/metarepo/internal/domain"
)

// exemptPaths are routes that bypass authentication (health, metrics).
var exemptPaths = map[string]struct{}{
	"/health":  {},
	"/metrics": {},
}

type appCtxKey struct{}

// ApplicationResolver resolves an API token to the owning application.
type ApplicationResolver interface {
	GetByToken(ctx context.Context, token string) (domain.Application, error)
}

// AuthMiddleware returns a middleware that validates Bearer tokens and
// stores the resolved application in the request context.
func AuthMiddleware(apps ApplicationResolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// Exempt paths
			if _, ok := exemptPaths[r.URL.Path]; ok {
				next.ServeHTTP(w, r)
				return
			}

			auth := r.Header.Get("Authorization")
			if auth == "" {
				writeError(w, http.StatusUnauthorized, codeUnauthorized, "missing authorization header")
				return
			}

			const bearerPrefix = "Bearer "
			if !strings.HasPrefix(auth, bearerPrefix) {
				writeError(w, http.StatusUnauthorized, codeUnauthorized, "authorization header must use Bearer scheme")
				return
			}

			token := auth[len(bearerPrefix):]
			app, err := apps.GetByToken(r.Context(), token)
			if err != nil {
				if errors.Is(err, domain.ErrApplicationNotFound) {
					writeError(w, http.StatusUnauthorized, codeUnauthorized, "invalid api token")
					return
				}
				writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
				return
			}

			ctx := context.WithValue(r.Context(), appCtxKey{}, app)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// applicationFrom extracts the authenticated application from the context.
func applicationFrom(ctx context.Context) (domain.Application, bool) {
	app, ok := ctx.Value(appCtxKey{}).(domain.Application)
	return app, ok && !app.IsZero()
}
