package middleware

import (
	"context"
	"net/http"
	"strings"

	"opsdeck/internal/core/domain"
	"opsdeck/internal/core/services"
)

type sessionKeyType struct{}

var sessionKey = sessionKeyType{}

// SessionUserFrom returns the authenticated user placed by AuthMiddleware.
func SessionUserFrom(ctx context.Context) (domain.SessionUser, bool) {
	u, ok := ctx.Value(sessionKey).(domain.SessionUser)
	return u, ok
}

// AuthMiddleware validates the bearer token and injects the resolved
// SessionUser into the request context. EventSource cannot set headers, so a
// ?token= query parameter is accepted as a fallback for stream endpoints.
func AuthMiddleware(tokenSvc *services.TokenService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := ""
			if authHeader := r.Header.Get("Authorization"); authHeader != "" {
				parts := strings.Split(authHeader, " ")
				if len(parts) != 2 || parts[0] != "Bearer" {
					http.Error(w, "invalid authorization format", http.StatusUnauthorized)
					return
				}
				raw = parts[1]
			} else {
				raw = r.URL.Query().Get("token")
			}
			if raw == "" {
				http.Error(w, "authorization required", http.StatusUnauthorized)
				return
			}

			user, err := tokenSvc.ValidateToken(raw)
			if err != nil {
				http.Error(w, "unauthorized: "+err.Error(), http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), sessionKey, *user)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
