package middleware

import "context"

// contextKey is a private type for context keys set by this package.
// Using a custom type prevents collisions.
type contextKey string

const (
	loggerCtxKey = contextKey("logger")
	userIDKey    = contextKey("userID")
	tenantIDKey  = contextKey("tenantID")
)

// GetUserIDFromCtx retrieves the authenticated user ID from the context.
func GetUserIDFromCtx(ctx context.Context) (string, bool) {
	val := ctx.Value(userIDKey)
	if val == nil {
		return "", false
	}
	userID, ok := val.(string)
	return userID, ok
}

// GetTenantIDFromCtx retrieves the authenticated tenant ID from the context.
// The tenant ID is stamped by the auth middleware from the token claims; the
// core never validates its existence, it only scopes queries by it.
func GetTenantIDFromCtx(ctx context.Context) (string, bool) {
	val := ctx.Value(tenantIDKey)
	if val == nil {
		return "", false
	}
	tenantID, ok := val.(string)
	return tenantID, ok
}

// WithTenantID returns a context carrying the given tenant ID. Exposed for
// tests and the maintenance commands, which bypass the HTTP middleware.
func WithTenantID(ctx context.Context, tenantID string) context.Context {
	return context.WithValue(ctx, tenantIDKey, tenantID)
}
