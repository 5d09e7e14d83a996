package middleware

// ContextKey is a custom type for context keys to avoid collisions.
type ContextKey string

const (
	// UserIDCtxKey carries the authenticated account id extracted from
	// the session token.
	UserIDCtxKey = ContextKey("user_id")

	// UserEmailCtxKey carries the authenticated account email extracted
	// from the session token.
	UserEmailCtxKey = ContextKey("user_email")
)
