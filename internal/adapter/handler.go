package adapter

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/comas-edu/identity-service/internal/entity"
	"github.com/comas-edu/identity-service/internal/middleware"
	"github.com/comas-edu/identity-service/internal/repository"
	"github.com/comas-edu/identity-service/internal/usecase"
	"go.uber.org/zap"
)

// AuthService is what the HTTP layer needs from the credential and
// verification lifecycles.
type AuthService interface {
	Register(ctx context.Context, in usecase.RegisterInput) (*usecase.RegisterResult, error)
	Login(ctx context.Context, email, password string) (string, entity.Role, error)
	VerifyEmail(ctx context.Context, email, code string) error
	RequestResetCode(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, email, oldPassword, newPassword, resetCode string) error
	Profile(ctx context.Context, email string) (*entity.User, error)
}

type AuthHandler struct {
	service AuthService
	logger  *zap.Logger
}

func NewAuthHandler(service AuthService, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{
		service: service,
		logger:  logger.Named("AuthHTTPHandler"),
	}
}

// statusFromError maps the domain error taxonomy onto HTTP status codes.
func statusFromError(err error) int {
	switch {
	case errors.Is(err, usecase.ErrMissingFields),
		errors.Is(err, usecase.ErrNoPendingCode),
		errors.Is(err, usecase.ErrResetCodeRequired),
		errors.Is(err, usecase.ErrPhoneMissing),
		errors.Is(err, usecase.ErrResetCodeExpired),
		errors.Is(err, usecase.ErrVerificationCodeExpired):
		return http.StatusBadRequest
	case errors.Is(err, usecase.ErrInvalidCredentials),
		errors.Is(err, usecase.ErrInvalidVerificationCode),
		errors.Is(err, usecase.ErrInvalidResetCode),
		errors.Is(err, usecase.ErrOldPasswordIncorrect):
		return http.StatusUnauthorized
	case errors.Is(err, usecase.ErrAccountLocked),
		errors.Is(err, usecase.ErrMaxLoginAttempts),
		errors.Is(err, usecase.ErrVerificationPurged),
		errors.Is(err, usecase.ErrForbiddenRole):
		return http.StatusForbidden
	case errors.Is(err, usecase.ErrUserAlreadyExists),
		errors.Is(err, usecase.ErrAlreadyVerified):
		return http.StatusConflict
	case errors.Is(err, repository.ErrUserNotFound):
		return http.StatusNotFound
	case errors.Is(err, usecase.ErrEmailPolicy),
		errors.Is(err, usecase.ErrMailRejected):
		return http.StatusPreconditionFailed
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, err error) {
	status := statusFromError(err)
	message := err.Error()
	if status == http.StatusInternalServerError {
		message = "internal server error"
	}
	writeJSON(w, status, map[string]string{"error": message})
}

type registerRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Phone    string `json:"phone"`
}

type registeredUser struct {
	ID    string      `json:"id"`
	Email string      `json:"email"`
	Name  string      `json:"name"`
	Role  entity.Role `json:"role"`
}

type registerResponse struct {
	Message string         `json:"message"`
	Warning string         `json:"warning,omitempty"`
	User    registeredUser `json:"user"`
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Error("Failed to decode request body for Register", zap.Error(err))
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	h.logger.Info("HTTP Register request received", zap.String("email", req.Email))

	result, err := h.service.Register(r.Context(), usecase.RegisterInput{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
		Phone:    req.Phone,
	})
	if err != nil {
		h.logger.Warn("Failed to register user", zap.String("email", req.Email), zap.Error(err))
		writeError(w, err)
		return
	}

	resp := registerResponse{
		Message: "User registered successfully. Please verify your email.",
		User: registeredUser{
			ID:    result.ID,
			Email: result.Email,
			Name:  result.Name,
			Role:  result.Role,
		},
	}
	if !result.MailDispatched {
		resp.Warning = "Verification email could not be delivered. Please request a resend."
	}
	writeJSON(w, http.StatusCreated, resp)
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Error("Failed to decode request body for Login", zap.Error(err))
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	tokenString, role, err := h.service.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		h.logger.Warn("Failed to login user", zap.String("email", req.Email), zap.Error(err))
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"token": tokenString,
		"role":  role,
	})
}

func (h *AuthHandler) VerifyEmail(w http.ResponseWriter, r *http.Request) {
	email := r.URL.Query().Get("email")
	code := r.URL.Query().Get("code")
	if email == "" || code == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "email and code are required"})
		return
	}
	h.logger.Info("HTTP VerifyEmail request received", zap.String("email", email))

	if err := h.service.VerifyEmail(r.Context(), email, code); err != nil {
		h.logger.Warn("Email verification failed", zap.String("email", email), zap.Error(err))
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Email verified successfully"})
}

func (h *AuthHandler) RequestResetCode(w http.ResponseWriter, r *http.Request) {
	email, ok := r.Context().Value(middleware.UserEmailCtxKey).(string)
	if !ok || email == "" {
		h.logger.Warn("User email not found in token for RequestResetCode")
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "user email not found in token"})
		return
	}
	h.logger.Info("HTTP RequestResetCode request received", zap.String("email", email))

	if err := h.service.RequestResetCode(r.Context(), email); err != nil {
		h.logger.Warn("Failed to issue reset code", zap.String("email", email), zap.Error(err))
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Password reset code sent to phone"})
}

type resetPasswordRequest struct {
	OldPassword string `json:"oldPassword"`
	NewPassword string `json:"newPassword"`
	ResetCode   string `json:"resetCode"`
}

func (h *AuthHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	email, ok := r.Context().Value(middleware.UserEmailCtxKey).(string)
	if !ok || email == "" {
		h.logger.Warn("User email not found in token for ResetPassword")
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "user email not found in token"})
		return
	}

	var req resetPasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Error("Failed to decode request body for ResetPassword", zap.Error(err))
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if req.OldPassword == "" || req.NewPassword == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "old and new passwords are required"})
		return
	}
	h.logger.Info("HTTP ResetPassword request received", zap.String("email", email))

	if err := h.service.ResetPassword(r.Context(), email, req.OldPassword, req.NewPassword, req.ResetCode); err != nil {
		h.logger.Warn("Failed to reset password", zap.String("email", email), zap.Error(err))
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Password reset successfully"})
}

func (h *AuthHandler) Profile(w http.ResponseWriter, r *http.Request) {
	email, ok := r.Context().Value(middleware.UserEmailCtxKey).(string)
	if !ok || email == "" {
		h.logger.Warn("User email not found in token for Profile")
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "user email not found in token"})
		return
	}

	user, err := h.service.Profile(r.Context(), email)
	if err != nil {
		h.logger.Warn("Failed to fetch profile", zap.String("email", email), zap.Error(err))
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"id":         user.ID.Hex(),
		"email":      user.Email,
		"name":       user.Name,
		"phone":      user.Phone,
		"role":       user.Role,
		"is_active":  user.IsActive,
		"created_at": user.CreatedAt.Format(time.RFC3339),
	})
}
