package usecase

import (
	"context"
	"fmt"
	"net/url"

	"go.uber.org/zap"
)

// sendVerificationCode dispatches the verification email carrying the
// code and a clickable link. The stored code is left untouched on
// failure so a resend can reuse or regenerate it.
func (u *AuthUsecase) sendVerificationCode(ctx context.Context, email, name, code string) error {
	link := fmt.Sprintf("%s/api/auth/verify-email?email=%s&code=%s",
		u.baseURL, url.QueryEscape(email), code)

	rejected, err := u.mailer.SendVerificationEmail(ctx, email, name, code, link)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrMailRejected, err)
	}
	if len(rejected) > 0 {
		u.logger.Warn("Mail gateway rejected recipients", zap.Strings("rejected", rejected))
		return ErrMailRejected
	}
	return nil
}

// VerifyEmail drives the email verification state machine for one
// submitted code:
//
//	already verified            -> conflict
//	no pending code             -> invalid input
//	retries exhausted           -> account purged (irreversible)
//	code mismatch               -> retry counted
//	code older than 24h         -> new code issued, retry counted
//	match within window         -> account activated
func (u *AuthUsecase) VerifyEmail(ctx context.Context, email, code string) error {
	user, err := u.repo.GetUserByEmail(ctx, email)
	if err != nil {
		return err
	}

	if user.IsActive {
		return ErrAlreadyVerified
	}

	if user.EmailVerificationCode == "" || user.EmailCodeCreatedAt == nil {
		return ErrNoPendingCode
	}

	if user.EmailVerificationRetries >= maxVerificationRetries {
		// Destructive terminal transition for unverified, low-trust
		// accounts. Logged and published before execution.
		u.logger.Warn("Purging account after verification retry exhaustion",
			zap.String("email", email), zap.Int("retries", user.EmailVerificationRetries))
		if pubErr := u.audit.PublishAccountPurged(ctx, email); pubErr != nil {
			u.logger.Warn("Failed to publish account-purged event", zap.String("email", email), zap.Error(pubErr))
		}
		if err := u.repo.DeleteUserByEmail(ctx, email); err != nil {
			return err
		}
		u.metrics.AccountPurgesTotal.Inc()
		return ErrVerificationPurged
	}

	if code != user.EmailVerificationCode {
		if _, incErr := u.repo.IncrementVerificationRetries(ctx, email); incErr != nil {
			return incErr
		}
		return ErrInvalidVerificationCode
	}

	if u.now().Sub(*user.EmailCodeCreatedAt) > emailCodeValidity {
		newCode, createdAt, genErr := GenerateCode(u.now())
		if genErr != nil {
			return genErr
		}
		if err := u.repo.SaveVerificationCode(ctx, email, newCode, createdAt); err != nil {
			return err
		}
		if _, incErr := u.repo.IncrementVerificationRetries(ctx, email); incErr != nil {
			return incErr
		}
		if sendErr := u.sendVerificationCode(ctx, email, user.Name, newCode); sendErr != nil {
			u.logger.Warn("Failed to resend verification code after expiry",
				zap.String("email", email), zap.Error(sendErr))
		}
		return ErrVerificationCodeExpired
	}

	if err := u.repo.MarkEmailVerified(ctx, email); err != nil {
		return err
	}
	u.metrics.EmailVerificationsTotal.Inc()
	u.logger.Info("Email verified successfully", zap.String("email", email))
	return nil
}
