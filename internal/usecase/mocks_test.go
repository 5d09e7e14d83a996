package usecase

import (
	"context"
	"testing"
	"time"

	"github.com/comas-edu/identity-service/internal/entity"
	"github.com/comas-edu/identity-service/internal/platform/metrics"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

type MockUserRepository struct{ mock.Mock }

func (m *MockUserRepository) CreateUser(ctx context.Context, user *entity.User) (primitive.ObjectID, error) {
	args := m.Called(ctx, user)
	return args.Get(0).(primitive.ObjectID), args.Error(1)
}
func (m *MockUserRepository) GetUserByEmail(ctx context.Context, email string) (*entity.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.User), args.Error(1)
}
func (m *MockUserRepository) SaveVerificationCode(ctx context.Context, email, code string, createdAt time.Time) error {
	args := m.Called(ctx, email, code, createdAt)
	return args.Error(0)
}
func (m *MockUserRepository) MarkEmailVerified(ctx context.Context, email string) error {
	args := m.Called(ctx, email)
	return args.Error(0)
}
func (m *MockUserRepository) IncrementVerificationRetries(ctx context.Context, email string) (int, error) {
	args := m.Called(ctx, email)
	return args.Int(0), args.Error(1)
}
func (m *MockUserRepository) IncrementLoginRetries(ctx context.Context, email string) (int, error) {
	args := m.Called(ctx, email)
	return args.Int(0), args.Error(1)
}
func (m *MockUserRepository) LockAccount(ctx context.Context, email string, until time.Time) error {
	args := m.Called(ctx, email, until)
	return args.Error(0)
}
func (m *MockUserRepository) ResetLoginState(ctx context.Context, email string) error {
	args := m.Called(ctx, email)
	return args.Error(0)
}
func (m *MockUserRepository) SavePasswordResetCode(ctx context.Context, email, code string, createdAt time.Time) error {
	args := m.Called(ctx, email, code, createdAt)
	return args.Error(0)
}
func (m *MockUserRepository) ClearPasswordResetCode(ctx context.Context, email string) error {
	args := m.Called(ctx, email)
	return args.Error(0)
}
func (m *MockUserRepository) UpdatePassword(ctx context.Context, email, passwordHash string) error {
	args := m.Called(ctx, email, passwordHash)
	return args.Error(0)
}
func (m *MockUserRepository) DeleteUserByEmail(ctx context.Context, email string) error {
	args := m.Called(ctx, email)
	return args.Error(0)
}
func (m *MockUserRepository) CacheToken(ctx context.Context, email, token string, expiration time.Duration) error {
	args := m.Called(ctx, email, token, expiration)
	return args.Error(0)
}
func (m *MockUserRepository) GetToken(ctx context.Context, email string) (string, error) {
	args := m.Called(ctx, email)
	return args.String(0), args.Error(1)
}

type MockMailer struct{ mock.Mock }

func (m *MockMailer) SendVerificationEmail(ctx context.Context, toEmail, toName, code, link string) ([]string, error) {
	args := m.Called(ctx, toEmail, toName, code, link)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

type MockSMSSender struct{ mock.Mock }

func (m *MockSMSSender) SendSMS(ctx context.Context, recipients []string, message string) error {
	args := m.Called(ctx, recipients, message)
	return args.Error(0)
}

type MockAuditPublisher struct{ mock.Mock }

func (m *MockAuditPublisher) PublishAccountLocked(ctx context.Context, email string, until time.Time) error {
	args := m.Called(ctx, email, until)
	return args.Error(0)
}
func (m *MockAuditPublisher) PublishAccountPurged(ctx context.Context, email string) error {
	args := m.Called(ctx, email)
	return args.Error(0)
}
func (m *MockAuditPublisher) PublishPasswordReset(ctx context.Context, email string) error {
	args := m.Called(ctx, email)
	return args.Error(0)
}

type MockTokenIssuer struct{ mock.Mock }

func (m *MockTokenIssuer) Issue(id, email string) (string, error) {
	args := m.Called(id, email)
	return args.String(0), args.Error(1)
}
func (m *MockTokenIssuer) TTL() time.Duration {
	args := m.Called()
	return args.Get(0).(time.Duration)
}

type testDeps struct {
	repo   *MockUserRepository
	mailer *MockMailer
	sms    *MockSMSSender
	audit  *MockAuditPublisher
	tokens *MockTokenIssuer
}

func newTestUsecase(t *testing.T) (*AuthUsecase, *testDeps) {
	t.Helper()
	deps := &testDeps{
		repo:   new(MockUserRepository),
		mailer: new(MockMailer),
		sms:    new(MockSMSSender),
		audit:  new(MockAuditPublisher),
		tokens: new(MockTokenIssuer),
	}
	u, err := NewAuthUsecase(
		deps.repo,
		deps.mailer,
		deps.sms,
		deps.audit,
		deps.tokens,
		metrics.NewManager("test"),
		GeneralEmailPattern,
		"http://localhost:3000",
		bcrypt.MinCost,
		zap.NewNop(),
	)
	require.NoError(t, err)
	return u, deps
}

func mustHash(t *testing.T, password string) string {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	return string(hash)
}
