package usecase

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"github.com/comas-edu/identity-service/internal/entity"
	"github.com/comas-edu/identity-service/internal/platform/metrics"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// Policy windows for one-time codes. Single canonical values; the
// original deployment drifted between code paths.
const (
	emailCodeValidity      = 24 * time.Hour
	resetCodeValidity      = time.Hour
	maxVerificationRetries = 3
)

// Institutional email patterns. Production restricts registration to the
// student subdomain; every other environment accepts the general domain.
const (
	StudentEmailPattern = `^[a-zA-Z0-9]+@st\.comas\.edu\.gh$`
	GeneralEmailPattern = `^[a-zA-Z0-9]+@comas\.edu\.gh$`
)

// EmailPatternForEnv picks the registration email policy for a
// deployment environment.
func EmailPatternForEnv(env string) string {
	if env == "production" {
		return StudentEmailPattern
	}
	return GeneralEmailPattern
}

// UserRepository is the account store contract. Counter methods are
// atomic increment-and-return so lifecycles never read-modify-write
// counters across concurrent requests.
type UserRepository interface {
	CreateUser(ctx context.Context, user *entity.User) (primitive.ObjectID, error)
	GetUserByEmail(ctx context.Context, email string) (*entity.User, error)
	SaveVerificationCode(ctx context.Context, email, code string, createdAt time.Time) error
	MarkEmailVerified(ctx context.Context, email string) error
	IncrementVerificationRetries(ctx context.Context, email string) (int, error)
	IncrementLoginRetries(ctx context.Context, email string) (int, error)
	LockAccount(ctx context.Context, email string, until time.Time) error
	ResetLoginState(ctx context.Context, email string) error
	SavePasswordResetCode(ctx context.Context, email, code string, createdAt time.Time) error
	ClearPasswordResetCode(ctx context.Context, email string) error
	UpdatePassword(ctx context.Context, email, passwordHash string) error
	DeleteUserByEmail(ctx context.Context, email string) error
	CacheToken(ctx context.Context, email, token string, expiration time.Duration) error
	GetToken(ctx context.Context, email string) (string, error)
}

// Mailer dispatches transactional email and reports rejected
// recipients. A non-empty rejected list is a dispatch failure even when
// err is nil.
type Mailer interface {
	SendVerificationEmail(ctx context.Context, toEmail, toName, code, link string) (rejected []string, err error)
}

// SMSSender dispatches a message to phone numbers. A non-nil error means
// the gateway refused or is misconfigured.
type SMSSender interface {
	SendSMS(ctx context.Context, recipients []string, message string) error
}

// AuditPublisher emits an event for every security-relevant transition.
// Publishing is best effort; failures are logged and never block the
// transition itself.
type AuditPublisher interface {
	PublishAccountLocked(ctx context.Context, email string, until time.Time) error
	PublishAccountPurged(ctx context.Context, email string) error
	PublishPasswordReset(ctx context.Context, email string) error
}

// TokenIssuer signs the session assertion for a successful login.
type TokenIssuer interface {
	Issue(id, email string) (string, error)
	TTL() time.Duration
}

// AuthUsecase owns the credential and verification lifecycles: per-account
// retry counters, lockout, code issuance and expiry, and the
// retry-exhaustion purge.
type AuthUsecase struct {
	repo        UserRepository
	mailer      Mailer
	sms         SMSSender
	audit       AuditPublisher
	tokens      TokenIssuer
	metrics     *metrics.Manager
	logger      *zap.Logger
	lockout     LockoutPolicy
	emailPolicy *regexp.Regexp
	bcryptCost  int
	baseURL     string

	now func() time.Time
}

func NewAuthUsecase(
	repo UserRepository,
	mailer Mailer,
	sms SMSSender,
	audit AuditPublisher,
	tokens TokenIssuer,
	m *metrics.Manager,
	emailPattern string,
	baseURL string,
	bcryptCost int,
	logger *zap.Logger,
) (*AuthUsecase, error) {
	re, err := regexp.Compile(emailPattern)
	if err != nil {
		return nil, fmt.Errorf("invalid email policy pattern %q: %w", emailPattern, err)
	}
	return &AuthUsecase{
		repo:        repo,
		mailer:      mailer,
		sms:         sms,
		audit:       audit,
		tokens:      tokens,
		metrics:     m,
		logger:      logger.Named("AuthUsecase"),
		lockout:     DefaultLockoutPolicy(),
		emailPolicy: re,
		bcryptCost:  bcryptCost,
		baseURL:     baseURL,
		now:         time.Now,
	}, nil
}
