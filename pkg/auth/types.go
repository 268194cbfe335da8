package auth

import (
	"strings"
	"time"
)

// DefaultPermanentAdminEmail is the compiled-in permanent admin. It can be
// overridden at startup via GATEHOUSE_PERMANENT_ADMIN but never at runtime.
const DefaultPermanentAdminEmail = "satyapadamati5@gmail.com"

// User represents a signed-in identity. Users are ephemeral: created on
// login, destroyed on logout, never persisted on their own.
type User struct {
	Email string `json:"email"`
}

// Permission represents one entry of the permission list
type Permission struct {
	Email     string    `json:"email"`
	IsAdmin   bool      `json:"is_admin"`
	GrantedBy string    `json:"granted_by,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// PendingRequest represents an access request awaiting an admin decision
type PendingRequest struct {
	Email       string    `json:"email"`
	RequestedAt time.Time `json:"requested_at"`
}

// Session represents a login session backed by a bearer token.
// Only the SHA-256 hash of the token is stored.
type Session struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	TokenHash string    `json:"-"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Expired reports whether the session has passed its expiry
func (s *Session) Expired(now time.Time) bool {
	return now.After(s.ExpiresAt)
}

// Snapshot is the derived per-request view of a session's access state
type Snapshot struct {
	Email      string `json:"email"`
	Authorized bool   `json:"authorized"`
	Admin      bool   `json:"admin"`
}

// NormalizeEmail canonicalizes an email for use as a permission key:
// lower-cased and trimmed. Idempotent.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
