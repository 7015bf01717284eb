package chi

import (
	"context"
	"net/http"
	"strings"

	"github.com/kailas-cloud/paperdex/internal/domain/visibility"
)

type ctxKey int

const visibilityKey ctxKey = iota

// exemptPaths are routes that bypass authentication (health, metrics).
var exemptPaths = map[string]struct{}{
	"/health":  {},
	"/metrics": {},
}

// PrincipalAuth returns a middleware that resolves Bearer tokens to
// principals. Requests without an Authorization header proceed anonymously
// and see public papers only; a presented but unknown token is rejected.
func PrincipalAuth(principals map[string]int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, ok := exemptPaths[r.URL.Path]; ok {
				next.ServeHTTP(w, r)
				return
			}

			auth := r.Header.Get("Authorization")
			if auth == "" {
				next.ServeHTTP(w, withVisibility(r, visibility.Anonymous()))
				return
			}

			const bearerPrefix = "Bearer "
			if !strings.HasPrefix(auth, bearerPrefix) {
				writeError(w, http.StatusUnauthorized,
					codeUnauthorized, "authorization header must use Bearer scheme")
				return
			}

			token := auth[len(bearerPrefix):]
			principal, ok := principals[token]
			if !ok {
				writeError(w, http.StatusUnauthorized, codeUnauthorized, "invalid api token")
				return
			}

			next.ServeHTTP(w, withVisibility(r, visibility.Principal(principal)))
		})
	}
}

func withVisibility(r *http.Request, vis visibility.Context) *http.Request {
	return r.WithContext(context.WithValue(r.Context(), visibilityKey, vis))
}

// VisibilityFromContext extracts the caller's visibility scope. Requests that
// never passed the auth middleware read as anonymous.
func VisibilityFromContext(ctx context.Context) visibility.Context {
	if vis, ok := ctx.Value(visibilityKey).(visibility.Context); ok {
		return vis
	}
	return visibility.Anonymous()
}
