package usecase

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/comas-edu/identity-service/internal/entity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func pendingUser(codeAge time.Duration, now time.Time, retries int) *entity.User {
	createdAt := now.Add(-codeAge)
	return &entity.User{
		Email:                    testEmail,
		Name:                     "Alice",
		EmailVerificationCode:    "123456",
		EmailCodeCreatedAt:       &createdAt,
		EmailVerificationRetries: retries,
	}
}

func TestVerifyEmail_Success(t *testing.T) {
	u, deps := newTestUsecase(t)
	ctx := context.Background()
	now := time.Date(2025, 2, 3, 10, 0, 0, 0, time.UTC)
	u.now = func() time.Time { return now }

	deps.repo.On("GetUserByEmail", ctx, testEmail).Return(pendingUser(time.Hour, now, 0), nil)
	deps.repo.On("MarkEmailVerified", ctx, testEmail).Return(nil)

	err := u.VerifyEmail(ctx, testEmail, "123456")
	require.NoError(t, err)
	deps.repo.AssertExpectations(t)
}

func TestVerifyEmail_AlreadyVerified(t *testing.T) {
	u, deps := newTestUsecase(t)
	ctx := context.Background()

	deps.repo.On("GetUserByEmail", ctx, testEmail).Return(&entity.User{Email: testEmail, IsActive: true}, nil)

	err := u.VerifyEmail(ctx, testEmail, "123456")
	assert.ErrorIs(t, err, ErrAlreadyVerified)
	deps.repo.AssertNotCalled(t, "MarkEmailVerified", mock.Anything, mock.Anything)
}

func TestVerifyEmail_NoPendingCode(t *testing.T) {
	u, deps := newTestUsecase(t)
	ctx := context.Background()

	deps.repo.On("GetUserByEmail", ctx, testEmail).Return(&entity.User{Email: testEmail}, nil)

	err := u.VerifyEmail(ctx, testEmail, "123456")
	assert.ErrorIs(t, err, ErrNoPendingCode)
}

func TestVerifyEmail_Mismatch_CountsRetry(t *testing.T) {
	u, deps := newTestUsecase(t)
	ctx := context.Background()
	now := time.Now()
	u.now = func() time.Time { return now }

	deps.repo.On("GetUserByEmail", ctx, testEmail).Return(pendingUser(time.Hour, now, 0), nil)
	deps.repo.On("IncrementVerificationRetries", ctx, testEmail).Return(1, nil)

	err := u.VerifyEmail(ctx, testEmail, "000000")
	assert.ErrorIs(t, err, ErrInvalidVerificationCode)
	deps.repo.AssertExpectations(t)
	deps.repo.AssertNotCalled(t, "MarkEmailVerified", mock.Anything, mock.Anything)
}

func TestVerifyEmail_RetriesExhausted_PurgesAccount(t *testing.T) {
	u, deps := newTestUsecase(t)
	ctx := context.Background()
	now := time.Now()
	u.now = func() time.Time { return now }

	deps.repo.On("GetUserByEmail", ctx, testEmail).Return(pendingUser(time.Hour, now, 3), nil)
	deps.audit.On("PublishAccountPurged", ctx, testEmail).Return(nil)
	deps.repo.On("DeleteUserByEmail", ctx, testEmail).Return(nil)

	// Even the correct code cannot rescue an exhausted account.
	err := u.VerifyEmail(ctx, testEmail, "123456")
	assert.ErrorIs(t, err, ErrVerificationPurged)
	deps.repo.AssertExpectations(t)
	deps.audit.AssertExpectations(t)
}

func TestVerifyEmail_ExpiredCode_ReissuesAndResends(t *testing.T) {
	u, deps := newTestUsecase(t)
	ctx := context.Background()
	now := time.Date(2025, 2, 3, 10, 0, 0, 0, time.UTC)
	u.now = func() time.Time { return now }

	deps.repo.On("GetUserByEmail", ctx, testEmail).Return(pendingUser(25*time.Hour, now, 1), nil)
	deps.repo.On("SaveVerificationCode", ctx, testEmail, mock.MatchedBy(func(code string) bool {
		return regexp.MustCompile(`^\d{6}$`).MatchString(code)
	}), now).Return(nil)
	deps.repo.On("IncrementVerificationRetries", ctx, testEmail).Return(2, nil)
	deps.mailer.On("SendVerificationEmail", ctx, testEmail, "Alice", mock.AnythingOfType("string"), mock.AnythingOfType("string")).
		Return(nil, nil)

	err := u.VerifyEmail(ctx, testEmail, "123456")
	assert.ErrorIs(t, err, ErrVerificationCodeExpired)
	deps.repo.AssertExpectations(t)
	deps.mailer.AssertExpectations(t)
	deps.repo.AssertNotCalled(t, "MarkEmailVerified", mock.Anything, mock.Anything)
}

func TestVerifyEmail_ExpiredCode_ResendFailureStillReports(t *testing.T) {
	u, deps := newTestUsecase(t)
	ctx := context.Background()
	now := time.Now()
	u.now = func() time.Time { return now }

	deps.repo.On("GetUserByEmail", ctx, testEmail).Return(pendingUser(48*time.Hour, now, 0), nil)
	deps.repo.On("SaveVerificationCode", ctx, testEmail, mock.Anything, mock.Anything).Return(nil)
	deps.repo.On("IncrementVerificationRetries", ctx, testEmail).Return(1, nil)
	deps.mailer.On("SendVerificationEmail", ctx, testEmail, "Alice", mock.Anything, mock.Anything).
		Return(nil, assert.AnError)

	err := u.VerifyEmail(ctx, testEmail, "123456")
	assert.ErrorIs(t, err, ErrVerificationCodeExpired)
}

func TestSendVerificationCode_LinkEscapesEmail(t *testing.T) {
	u, deps := newTestUsecase(t)
	ctx := context.Background()

	deps.mailer.On("SendVerificationEmail", ctx, "a+b@comas.edu.gh", "Alice", "123456",
		"http://localhost:3000/api/auth/verify-email?email=a%2Bb%40comas.edu.gh&code=123456").
		Return(nil, nil)

	err := u.sendVerificationCode(ctx, "a+b@comas.edu.gh", "Alice", "123456")
	require.NoError(t, err)
	deps.mailer.AssertExpectations(t)
}

func TestSendVerificationCode_RejectedRecipient(t *testing.T) {
	u, deps := newTestUsecase(t)
	ctx := context.Background()

	deps.mailer.On("SendVerificationEmail", ctx, testEmail, "Alice", "123456", mock.Anything).
		Return([]string{testEmail}, nil)

	err := u.sendVerificationCode(ctx, testEmail, "Alice", "123456")
	assert.ErrorIs(t, err, ErrMailRejected)
}
