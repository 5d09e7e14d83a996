package entity

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Role of an account. Students self-register; staff and admin accounts
// are provisioned through an administrative path.
type Role string

const (
	RoleStudent Role = "STUDENT"
	RoleStaff   Role = "STAFF"
	RoleAdmin   Role = "ADMIN"
)

// User is the persisted identity record for one account. Email is the
// natural key. Password always holds the bcrypt hash, never plaintext.
type User struct {
	ID       primitive.ObjectID
	Email    string
	Name     string
	Phone    string
	Role     Role
	Password string // bcrypt hash

	// IsActive flips to true exactly once, on successful email verification.
	IsActive bool

	// Login security. The lock is checked lazily by timestamp comparison;
	// there is no background sweep.
	LoginRetries       int
	AccountLockedUntil *time.Time

	// Email verification. Code and timestamp are both set or both nil.
	EmailVerificationCode    string
	EmailCodeCreatedAt       *time.Time
	EmailVerificationRetries int

	// Password reset. Code and timestamp are both set or both nil.
	PasswordResetCode  string
	ResetCodeCreatedAt *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}
