package repository

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/comas-edu/identity-service/internal/entity"
	"github.com/go-redis/redis/v8"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

var (
	ErrDuplicateEmail = errors.New("email already exists")
	ErrUserNotFound   = errors.New("user not found")
)

type mongoUser struct {
	ID                       primitive.ObjectID `bson:"_id,omitempty"`
	Email                    string             `bson:"email"`
	Name                     string             `bson:"name"`
	Phone                    string             `bson:"phone,omitempty"`
	Role                     entity.Role        `bson:"role"`
	Password                 string             `bson:"password"`
	IsActive                 bool               `bson:"is_active"`
	LoginRetries             int                `bson:"login_retries"`
	AccountLockedUntil       *time.Time         `bson:"account_locked_until,omitempty"`
	EmailVerificationCode    string             `bson:"email_verification_code,omitempty"`
	EmailCodeCreatedAt       *time.Time         `bson:"email_code_created_at,omitempty"`
	EmailVerificationRetries int                `bson:"email_verification_retries"`
	PasswordResetCode        string             `bson:"password_reset_code,omitempty"`
	ResetCodeCreatedAt       *time.Time         `bson:"reset_code_created_at,omitempty"`
	CreatedAt                time.Time          `bson:"created_at"`
	UpdatedAt                time.Time          `bson:"updated_at"`
}

func (m *mongoUser) toEntity() *entity.User {
	return &entity.User{
		ID:                       m.ID,
		Email:                    m.Email,
		Name:                     m.Name,
		Phone:                    m.Phone,
		Role:                     m.Role,
		Password:                 m.Password,
		IsActive:                 m.IsActive,
		LoginRetries:             m.LoginRetries,
		AccountLockedUntil:       m.AccountLockedUntil,
		EmailVerificationCode:    m.EmailVerificationCode,
		EmailCodeCreatedAt:       m.EmailCodeCreatedAt,
		EmailVerificationRetries: m.EmailVerificationRetries,
		PasswordResetCode:        m.PasswordResetCode,
		ResetCodeCreatedAt:       m.ResetCodeCreatedAt,
		CreatedAt:                m.CreatedAt,
		UpdatedAt:                m.UpdatedAt,
	}
}

func fromEntity(e *entity.User) *mongoUser {
	return &mongoUser{
		ID:                       e.ID,
		Email:                    e.Email,
		Name:                     e.Name,
		Phone:                    e.Phone,
		Role:                     e.Role,
		Password:                 e.Password,
		IsActive:                 e.IsActive,
		LoginRetries:             e.LoginRetries,
		AccountLockedUntil:       e.AccountLockedUntil,
		EmailVerificationCode:    e.EmailVerificationCode,
		EmailCodeCreatedAt:       e.EmailCodeCreatedAt,
		EmailVerificationRetries: e.EmailVerificationRetries,
		PasswordResetCode:        e.PasswordResetCode,
		ResetCodeCreatedAt:       e.ResetCodeCreatedAt,
		CreatedAt:                e.CreatedAt,
		UpdatedAt:                e.UpdatedAt,
	}
}

// UserRepository persists accounts in MongoDB and caches session tokens
// in Redis. Counter updates go through atomic $inc operations so that
// concurrent requests never lose an increment.
type UserRepository struct {
	db     *mongo.Database
	redis  *redis.Client
	logger *zap.Logger
}

func NewUserRepository(db *mongo.Database, rds *redis.Client, logger *zap.Logger) *UserRepository {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Ensure indexes (idempotent operation)
	userCollection := db.Collection("users")
	indexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
	}
	_, err := userCollection.Indexes().CreateMany(ctx, indexes)
	if err != nil {
		logger.Warn("Failed to create indexes for users collection (may already exist)", zap.Error(err))
	} else {
		logger.Info("Successfully ensured indexes for users collection")
	}

	return &UserRepository{
		db:     db,
		redis:  rds,
		logger: logger.Named("UserRepository"),
	}
}

func (r *UserRepository) users() *mongo.Collection {
	return r.db.Collection("users")
}

func (r *UserRepository) CreateUser(ctx context.Context, user *entity.User) (primitive.ObjectID, error) {
	r.logger.Info("Attempting to create user in repository", zap.String("email", user.Email))

	dbUser := fromEntity(user)
	if dbUser.ID.IsZero() {
		dbUser.ID = primitive.NewObjectID()
	}
	now := time.Now()
	dbUser.CreatedAt = now
	dbUser.UpdatedAt = now

	_, err := r.users().InsertOne(ctx, dbUser)
	if err != nil {
		var writeException mongo.WriteException
		if errors.As(err, &writeException) {
			for _, writeError := range writeException.WriteErrors {
				if writeError.Code == 11000 && strings.Contains(writeError.Message, "email_1") {
					r.logger.Warn("Duplicate email during user creation", zap.String("email", user.Email), zap.Error(writeError))
					return primitive.NilObjectID, ErrDuplicateEmail
				}
			}
		}
		r.logger.Error("Database error during user creation", zap.String("email", user.Email), zap.Error(err))
		return primitive.NilObjectID, err
	}
	r.logger.Info("User created successfully in repository", zap.String("userID", dbUser.ID.Hex()))
	return dbUser.ID, nil
}

func (r *UserRepository) GetUserByEmail(ctx context.Context, email string) (*entity.User, error) {
	r.logger.Debug("Attempting to get user by email from repository", zap.String("email", email))
	var dbUser mongoUser
	err := r.users().FindOne(ctx, bson.M{"email": email}).Decode(&dbUser)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			r.logger.Debug("User not found by email in repository", zap.String("email", email))
			return nil, ErrUserNotFound
		}
		r.logger.Error("Database error fetching user by email", zap.String("email", email), zap.Error(err))
		return nil, err
	}
	return dbUser.toEntity(), nil
}

// updateByEmail applies a partial $set/$unset/$inc document to one account.
func (r *UserRepository) updateByEmail(ctx context.Context, email string, update bson.M) error {
	result, err := r.users().UpdateOne(ctx, bson.M{"email": email}, update)
	if err != nil {
		r.logger.Error("Database error updating user", zap.String("email", email), zap.Error(err))
		return err
	}
	if result.MatchedCount == 0 {
		r.logger.Warn("User not found during update attempt", zap.String("email", email))
		return ErrUserNotFound
	}
	return nil
}

func (r *UserRepository) SaveVerificationCode(ctx context.Context, email, code string, createdAt time.Time) error {
	r.logger.Info("Saving email verification code", zap.String("email", email))
	return r.updateByEmail(ctx, email, bson.M{
		"$set": bson.M{
			"email_verification_code": code,
			"email_code_created_at":   createdAt,
			"updated_at":              time.Now(),
		},
	})
}

// MarkEmailVerified is the terminal happy-path transition of the
// verification lifecycle: code and timestamp are removed, the retry
// counter resets and the account becomes active.
func (r *UserRepository) MarkEmailVerified(ctx context.Context, email string) error {
	r.logger.Info("Marking email as verified", zap.String("email", email))
	return r.updateByEmail(ctx, email, bson.M{
		"$set": bson.M{
			"is_active":                  true,
			"email_verification_retries": 0,
			"updated_at":                 time.Now(),
		},
		"$unset": bson.M{
			"email_verification_code": "",
			"email_code_created_at":   "",
		},
	})
}

// IncrementVerificationRetries atomically bumps the verification retry
// counter and returns the post-increment value.
func (r *UserRepository) IncrementVerificationRetries(ctx context.Context, email string) (int, error) {
	return r.incrementCounter(ctx, email, "email_verification_retries")
}

// IncrementLoginRetries atomically bumps the login retry counter and
// returns the post-increment value.
func (r *UserRepository) IncrementLoginRetries(ctx context.Context, email string) (int, error) {
	return r.incrementCounter(ctx, email, "login_retries")
}

func (r *UserRepository) incrementCounter(ctx context.Context, email, field string) (int, error) {
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	update := bson.M{
		"$inc": bson.M{field: 1},
		"$set": bson.M{"updated_at": time.Now()},
	}
	var dbUser mongoUser
	err := r.users().FindOneAndUpdate(ctx, bson.M{"email": email}, update, opts).Decode(&dbUser)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return 0, ErrUserNotFound
		}
		r.logger.Error("Database error incrementing counter", zap.String("email", email), zap.String("field", field), zap.Error(err))
		return 0, err
	}
	switch field {
	case "login_retries":
		return dbUser.LoginRetries, nil
	default:
		return dbUser.EmailVerificationRetries, nil
	}
}

func (r *UserRepository) LockAccount(ctx context.Context, email string, until time.Time) error {
	r.logger.Warn("Locking account", zap.String("email", email), zap.Time("until", until))
	return r.updateByEmail(ctx, email, bson.M{
		"$set": bson.M{
			"account_locked_until": until,
			"updated_at":           time.Now(),
		},
	})
}

// ResetLoginState clears the retry counter and any lock after a
// successful login.
func (r *UserRepository) ResetLoginState(ctx context.Context, email string) error {
	return r.updateByEmail(ctx, email, bson.M{
		"$set": bson.M{
			"login_retries": 0,
			"updated_at":    time.Now(),
		},
		"$unset": bson.M{
			"account_locked_until": "",
		},
	})
}

func (r *UserRepository) SavePasswordResetCode(ctx context.Context, email, code string, createdAt time.Time) error {
	r.logger.Info("Saving password reset code", zap.String("email", email))
	return r.updateByEmail(ctx, email, bson.M{
		"$set": bson.M{
			"password_reset_code":   code,
			"reset_code_created_at": createdAt,
			"updated_at":            time.Now(),
		},
	})
}

func (r *UserRepository) ClearPasswordResetCode(ctx context.Context, email string) error {
	return r.updateByEmail(ctx, email, bson.M{
		"$set": bson.M{"updated_at": time.Now()},
		"$unset": bson.M{
			"password_reset_code":   "",
			"reset_code_created_at": "",
		},
	})
}

func (r *UserRepository) UpdatePassword(ctx context.Context, email, passwordHash string) error {
	r.logger.Info("Updating password", zap.String("email", email))
	return r.updateByEmail(ctx, email, bson.M{
		"$set": bson.M{
			"password":   passwordHash,
			"updated_at": time.Now(),
		},
	})
}

// DeleteUserByEmail removes the account record and invalidates any
// cached session token. Used by the verification retry-exhaustion purge.
func (r *UserRepository) DeleteUserByEmail(ctx context.Context, email string) error {
	r.logger.Warn("Hard deleting user", zap.String("email", email))
	result, err := r.users().DeleteOne(ctx, bson.M{"email": email})
	if err != nil {
		r.logger.Error("Database error hard deleting user", zap.String("email", email), zap.Error(err))
		return err
	}
	if result.DeletedCount == 0 {
		r.logger.Warn("User not found for hard delete", zap.String("email", email))
		return ErrUserNotFound
	}
	if err := r.InvalidateToken(ctx, email); err != nil {
		r.logger.Warn("Failed to invalidate token during hard delete, proceeding", zap.String("email", email), zap.Error(err))
	}
	r.logger.Info("User hard deleted successfully", zap.String("email", email))
	return nil
}

// CacheToken stores a session token in Redis with the token's lifetime
// as TTL.
func (r *UserRepository) CacheToken(ctx context.Context, email, token string, expiration time.Duration) error {
	return r.redis.Set(ctx, "token:"+email, token, expiration).Err()
}

// InvalidateToken removes a cached session token from Redis.
func (r *UserRepository) InvalidateToken(ctx context.Context, email string) error {
	return r.redis.Del(ctx, "token:"+email).Err()
}

// GetToken retrieves a cached session token from Redis.
func (r *UserRepository) GetToken(ctx context.Context, email string) (string, error) {
	token, err := r.redis.Get(ctx, "token:"+email).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil // Token not found is not an application error here
	}
	return token, err
}
