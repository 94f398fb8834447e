package api

import (
	"crypto/subtle"
	"net/http"
)

// apiKeyHeader is the shared-secret header checked on webhook routes.
const apiKeyHeader = "X-API-KEY"

// APIKey rejects requests whose X-API-KEY header does not match the
// configured key. An empty key disables the check, for providers that
// sign requests by other means or for local development.
func APIKey(key string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if key == "" {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got := r.Header.Get(apiKeyHeader)
			if subtle.ConstantTimeCompare([]byte(got), []byte(key)) != 1 {
				writeError(w, http.StatusUnauthorized, "invalid api key")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
