package usecase

import (
	"context"
	"errors"
	"fmt"

	"github.com/comas-edu/identity-service/internal/entity"
	"github.com/comas-edu/identity-service/internal/repository"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

type RegisterInput struct {
	Name     string
	Email    string
	Password string
	Phone    string
}

// RegisterResult is the sanitized projection returned to the caller.
// The password hash is never echoed. MailDispatched is false when the
// account was created but the verification email could not be sent; the
// caller should prompt the user to request a resend.
type RegisterResult struct {
	ID             string
	Email          string
	Name           string
	Role           entity.Role
	MailDispatched bool
}

// Register creates an unverified student account and dispatches the
// initial verification code. A dispatch failure does not roll back the
// account; the reissue path in VerifyEmail covers resending.
func (u *AuthUsecase) Register(ctx context.Context, in RegisterInput) (*RegisterResult, error) {
	if in.Email == "" || in.Password == "" {
		return nil, ErrMissingFields
	}

	_, err := u.repo.GetUserByEmail(ctx, in.Email)
	if err == nil {
		return nil, ErrUserAlreadyExists
	}
	if !errors.Is(err, repository.ErrUserNotFound) {
		return nil, err
	}

	if !u.emailPolicy.MatchString(in.Email) {
		return nil, ErrEmailPolicy
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), u.bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	code, createdAt, err := GenerateCode(u.now())
	if err != nil {
		return nil, err
	}

	user := &entity.User{
		Email:                 in.Email,
		Name:                  in.Name,
		Phone:                 in.Phone,
		Role:                  entity.RoleStudent,
		Password:              string(hash),
		IsActive:              false,
		EmailVerificationCode: code,
		EmailCodeCreatedAt:    &createdAt,
	}

	id, err := u.repo.CreateUser(ctx, user)
	if err != nil {
		if errors.Is(err, repository.ErrDuplicateEmail) {
			return nil, ErrUserAlreadyExists
		}
		return nil, err
	}
	u.metrics.RegistrationsTotal.Inc()

	dispatched := true
	if err := u.sendVerificationCode(ctx, in.Email, in.Name, code); err != nil {
		u.logger.Warn("Verification email dispatch failed after registration",
			zap.String("email", in.Email), zap.Error(err))
		dispatched = false
	}

	return &RegisterResult{
		ID:             id.Hex(),
		Email:          in.Email,
		Name:           in.Name,
		Role:           entity.RoleStudent,
		MailDispatched: dispatched,
	}, nil
}

// Login evaluates a credential attempt against the lockout policy and,
// on success, returns a signed session token and the account role.
// Unknown email and wrong password are indistinguishable to the caller.
func (u *AuthUsecase) Login(ctx context.Context, email, password string) (string, entity.Role, error) {
	if email == "" || password == "" {
		return "", "", ErrMissingFields
	}

	user, err := u.repo.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return "", "", ErrInvalidCredentials
		}
		return "", "", err
	}

	now := u.now()
	if u.lockout.Locked(user.AccountLockedUntil, now) {
		u.logger.Warn("Login attempt on locked account", zap.String("email", email))
		return "", "", ErrAccountLocked
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		u.metrics.LoginFailuresTotal.Inc()
		retries, incErr := u.repo.IncrementLoginRetries(ctx, email)
		if incErr != nil {
			return "", "", incErr
		}
		if u.lockout.ShouldLock(retries) {
			until := u.lockout.LockUntil(now)
			u.logger.Warn("Locking account after repeated login failures",
				zap.String("email", email), zap.Int("retries", retries), zap.Time("until", until))
			if lockErr := u.repo.LockAccount(ctx, email, until); lockErr != nil {
				return "", "", lockErr
			}
			u.metrics.AccountLockoutsTotal.Inc()
			if pubErr := u.audit.PublishAccountLocked(ctx, email, until); pubErr != nil {
				u.logger.Warn("Failed to publish account-locked event", zap.String("email", email), zap.Error(pubErr))
			}
			return "", "", ErrMaxLoginAttempts
		}
		return "", "", ErrInvalidCredentials
	}

	if err := u.repo.ResetLoginState(ctx, email); err != nil {
		return "", "", err
	}

	token, err := u.repo.GetToken(ctx, email)
	if err != nil {
		return "", "", err
	}
	if token == "" {
		token, err = u.tokens.Issue(user.ID.Hex(), user.Email)
		if err != nil {
			return "", "", err
		}
		if err := u.repo.CacheToken(ctx, email, token, u.tokens.TTL()); err != nil {
			u.logger.Warn("Failed to cache session token, proceeding", zap.String("email", email), zap.Error(err))
		}
	}

	return token, user.Role, nil
}

// RequestResetCode issues a password reset code over the secondary SMS
// channel. The account must have a registered phone number.
func (u *AuthUsecase) RequestResetCode(ctx context.Context, email string) error {
	user, err := u.repo.GetUserByEmail(ctx, email)
	if err != nil {
		return err
	}
	if user.Phone == "" {
		return ErrPhoneMissing
	}

	code, createdAt, err := GenerateCode(u.now())
	if err != nil {
		return err
	}

	message := fmt.Sprintf("Hello! Requested password reset code: %s. Ignore if you did not request.", code)
	if err := u.sms.SendSMS(ctx, []string{user.Phone}, message); err != nil {
		return fmt.Errorf("failed to send password reset SMS: %w", err)
	}

	if err := u.repo.SavePasswordResetCode(ctx, email, code, createdAt); err != nil {
		return err
	}
	u.metrics.ResetRequestsTotal.Inc()
	return nil
}

// ResetPassword performs the dual check: the current password and the
// SMS reset code must both be valid. The reset code is single use and
// cleared on success.
func (u *AuthUsecase) ResetPassword(ctx context.Context, email, oldPassword, newPassword, resetCode string) error {
	user, err := u.repo.GetUserByEmail(ctx, email)
	if err != nil {
		return err
	}

	if user.PasswordResetCode == "" || resetCode == "" {
		return ErrResetCodeRequired
	}

	if user.ResetCodeCreatedAt == nil || u.now().Sub(*user.ResetCodeCreatedAt) > resetCodeValidity {
		return ErrResetCodeExpired
	}

	if resetCode != user.PasswordResetCode {
		return ErrInvalidResetCode
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(oldPassword)); err != nil {
		return ErrOldPasswordIncorrect
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), u.bcryptCost)
	if err != nil {
		return fmt.Errorf("failed to hash new password: %w", err)
	}
	if err := u.repo.UpdatePassword(ctx, email, string(hash)); err != nil {
		return err
	}
	if err := u.repo.ClearPasswordResetCode(ctx, email); err != nil {
		u.logger.Warn("Failed to clear used reset code, proceeding", zap.String("email", email), zap.Error(err))
	}
	if pubErr := u.audit.PublishPasswordReset(ctx, email); pubErr != nil {
		u.logger.Warn("Failed to publish password-reset event", zap.String("email", email), zap.Error(pubErr))
	}
	return nil
}

// Profile returns the account record for an authenticated caller. The
// adapter layer is responsible for projecting away the password hash.
func (u *AuthUsecase) Profile(ctx context.Context, email string) (*entity.User, error) {
	return u.repo.GetUserByEmail(ctx, email)
}

// RequireRole is a simple role-equality guard for staff-only surfaces.
func (u *AuthUsecase) RequireRole(ctx context.Context, email string, role entity.Role) error {
	user, err := u.repo.GetUserByEmail(ctx, email)
	if err != nil {
		return err
	}
	if user.Role != role {
		return ErrForbiddenRole
	}
	return nil
}
