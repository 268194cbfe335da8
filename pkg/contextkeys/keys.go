// Package contextkeys provides centralized context key definitions
//
// IMPORTANT: All context keys used across the application must be defined here.
// This prevents typos, documents dependencies, and makes key usage discoverable.
//
// USAGE PATTERN:
//   import "github.com/devopshub/gatehouse/pkg/contextkeys"
//   ctx = context.WithValue(ctx, contextkeys.SessionKey, snapshot)
//   snapshot := ctx.Value(contextkeys.SessionKey).(*auth.Snapshot)
package contextkeys

import "context"

// Key is the type for context keys to prevent collisions
type Key string

const (
	// SessionKey contains *auth.Snapshot for the authenticated session
	// Set by: middleware.SessionAuthenticator.Attach (pkg/middleware/session.go)
	// Required by: All gated API endpoints
	// Type: *auth.Snapshot
	SessionKey Key = "session"

	// RequestIDKey contains request ID string (UUID)
	// Set by: HTTP middleware, observability layer
	// Used by: Logger, audit trail
	// Type: string
	RequestIDKey Key = "request_id"

	// LoggerKey contains *observability.Logger
	// Set by: Observability middleware
	// Used by: Handlers that need structured logging with request context
	// Type: *observability.Logger
	LoggerKey Key = "logger"
)

// Helper functions for type-safe context operations

// WithSession adds the session snapshot to the context
func WithSession(ctx context.Context, snapshot interface{}) context.Context {
	return context.WithValue(ctx, SessionKey, snapshot)
}

// WithRequestID adds request ID to the context
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, RequestIDKey, requestID)
}

// GetRequestID retrieves the request ID from the context
func GetRequestID(ctx context.Context) string {
	if id, ok := ctx.Value(RequestIDKey).(string); ok {
		return id
	}
	return ""
}
