package adapter

import (
	"net/http"

	"github.com/comas-edu/identity-service/internal/middleware"
	"github.com/comas-edu/identity-service/internal/token"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// NewRouter wires the auth routes. Reset endpoints are protected: the
// account email comes from the session token, never the request body.
func NewRouter(h *AuthHandler, issuer *token.Issuer, logger *zap.Logger) *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.Logger(logger))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	// Public auth routes
	r.Post("/api/auth/register", h.Register)
	r.Post("/api/auth/login", h.Login)
	r.Get("/api/auth/verify-email", h.VerifyEmail)

	// Protected auth routes (require JWT authentication)
	r.Group(func(authRouter chi.Router) {
		authRouter.Use(middleware.JWTAuth(issuer, logger))

		authRouter.Get("/api/auth/profile", h.Profile)
		authRouter.Get("/api/auth/request-reset-code", h.RequestResetCode)
		authRouter.Post("/api/auth/reset-password", h.ResetPassword)
	})

	return r
}
