package usecase

import "errors"

var (
	ErrMissingFields      = errors.New("email and password are required")
	ErrUserAlreadyExists  = errors.New("user already exists")
	ErrEmailPolicy        = errors.New("email does not meet institutional policy")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrAccountLocked      = errors.New("account is temporarily locked")
	ErrMaxLoginAttempts   = errors.New("maximum login attempts exceeded, account locked for 1 hour")

	ErrAlreadyVerified         = errors.New("email already verified")
	ErrNoPendingCode           = errors.New("no verification code found for this email")
	ErrVerificationPurged      = errors.New("maximum email verification attempts exceeded, account data deleted")
	ErrInvalidVerificationCode = errors.New("invalid email verification code")
	ErrVerificationCodeExpired = errors.New("verification code expired, a new code has been sent")
	ErrMailRejected            = errors.New("failed to send verification email")

	ErrPhoneMissing         = errors.New("phone number not found for this user")
	ErrResetCodeRequired    = errors.New("password reset code is required")
	ErrResetCodeExpired     = errors.New("password reset code has expired")
	ErrInvalidResetCode     = errors.New("invalid password reset code")
	ErrOldPasswordIncorrect = errors.New("old password is incorrect")

	ErrForbiddenRole = errors.New("access forbidden for this action")
)
