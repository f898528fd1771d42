package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"
)

// RequireAdmin returns middleware that guards administrative endpoints with a
// static bearer token. An empty configured token disables the admin surface
// entirely.
func RequireAdmin(token string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if token == "" {
				http.Error(w, "Admin API disabled", http.StatusForbidden)
				return
			}

			auth := r.Header.Get("Authorization")
			got, ok := strings.CutPrefix(auth, "Bearer ")
			if !ok || subtle.ConstantTimeCompare([]byte(got), []byte(token)) != 1 {
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
