package chi

import (
	"net/http"
	"strings"
)

// AdminAuthMiddleware returns a middleware that validates the admin
// Bearer token. An empty token disables authentication (pass-through),
// mirroring deployments without an admin secret configured.
func AdminAuthMiddleware(token string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if token == "" {
			return next
		}

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			auth := r.Header.Get("Authorization")

			const bearerPrefix = "Bearer "
			if !strings.HasPrefix(auth, bearerPrefix) || auth[len(bearerPrefix):] != token {
				writeError(w, http.StatusUnauthorized, "Unauthorized")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
