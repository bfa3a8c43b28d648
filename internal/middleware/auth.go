// Package middleware provides the HTTP middleware shared by all routes.
package middleware

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/bardofig/roozterfaceapp/internal/auth"
)

// RequireAuth validates the bearer token and attaches the caller to the
// request context. Requests without a valid token are rejected with an
// unauthenticated error.
func RequireAuth(jwtManager *auth.JWTManager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				writeUnauthenticated(w, auth.ErrMissingToken.Error())
				return
			}

			parts := strings.Split(authHeader, " ")
			if len(parts) != 2 || parts[0] != "Bearer" {
				writeUnauthenticated(w, auth.ErrInvalidToken.Error())
				return
			}

			caller, err := jwtManager.Validate(parts[1])
			if err != nil {
				writeUnauthenticated(w, auth.ErrInvalidToken.Error())
				return
			}

			next.ServeHTTP(w, r.WithContext(auth.WithCaller(r.Context(), caller)))
		})
	}
}

func writeUnauthenticated(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	json.NewEncoder(w).Encode(map[string]string{
		"code":    "unauthenticated",
		"message": message,
	})
}
