package api

import (
	"crypto/subtle"
	"net/http"
	"strings"
)

// AdminKeyAuth guards catalog maintenance endpoints with a static bearer key.
//
// Contract:
// - Caller sends `Authorization: Bearer <ADMIN_API_KEY>`.
// - An empty configured key disables the endpoints entirely (404), so a missing env var
//   never leaves them open.
func AdminKeyAuth(key string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if key == "" {
				WriteError(w, http.StatusNotFound, "NOT_FOUND", "not found")
				return
			}

			authz := strings.TrimSpace(r.Header.Get("Authorization"))
			if !strings.HasPrefix(strings.ToLower(authz), "bearer ") {
				WriteError(w, http.StatusUnauthorized, "UNAUTHORIZED", "missing admin key")
				return
			}
			given := strings.TrimSpace(authz[7:])
			if subtle.ConstantTimeCompare([]byte(given), []byte(key)) != 1 {
				WriteError(w, http.StatusUnauthorized, "UNAUTHORIZED", "invalid admin key")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// RequireIdentity rejects anonymous calls to JSON endpoints that are scoped by user.
func RequireIdentity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if IdentityFromContext(r.Context()) == nil {
			WriteError(w, http.StatusUnauthorized, "UNAUTHORIZED", "sign in required")
			return
		}
		next.ServeHTTP(w, r)
	})
}
