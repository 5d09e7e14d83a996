package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/comas-edu/identity-service/internal/token"
	"go.uber.org/zap"
)

// JWTAuth guards protected routes. It expects an "Authorization: Bearer
// <token>" header, validates the session assertion and stores the
// account id and email on the request context.
func JWTAuth(issuer *token.Issuer, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				logger.Warn("Missing Authorization header", zap.String("path", r.URL.Path))
				http.Error(w, "authorization token is not provided", http.StatusUnauthorized)
				return
			}

			parts := strings.Fields(authHeader)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
				logger.Warn("Invalid Authorization header format", zap.String("path", r.URL.Path))
				http.Error(w, "authorization token format is invalid, expected 'Bearer <token>'", http.StatusUnauthorized)
				return
			}

			claims, err := issuer.Parse(parts[1])
			if err != nil {
				logger.Warn("Failed to validate session token", zap.String("path", r.URL.Path), zap.Error(err))
				http.Error(w, "invalid or expired token", http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), UserIDCtxKey, claims.ID)
			ctx = context.WithValue(ctx, UserEmailCtxKey, claims.Email)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
