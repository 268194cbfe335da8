package auth

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/devopshub/gatehouse/pkg/observability"
)

// ControllerConfig configures a Controller
type ControllerConfig struct {
	// PermanentAdminEmail overrides the compiled-in permanent admin when set
	PermanentAdminEmail string
	SessionTTL          time.Duration
	Logger              *observability.Logger
}

// Controller mediates all access-control state: the current permission list,
// the pending-request queue, and login sessions.
//
// The in-memory mirrors are store-confirmed: a mutation is applied locally
// only after the corresponding store write succeeds, and reads are served
// from the mirror so a store outage never corrupts what users already see.
type Controller struct {
	store          PermissionStore
	sessions       SessionStore
	tokens         *TokenGenerator
	permanentAdmin string
	sessionTTL     time.Duration
	logger         *observability.Logger

	mu          sync.RWMutex
	permissions map[string]Permission
	pending     []PendingRequest
}

// NewController creates a Controller over the given stores
func NewController(store PermissionStore, sessions SessionStore, cfg ControllerConfig) *Controller {
	permanentAdmin := NormalizeEmail(cfg.PermanentAdminEmail)
	if permanentAdmin == "" {
		permanentAdmin = DefaultPermanentAdminEmail
	}

	sessionTTL := cfg.SessionTTL
	if sessionTTL <= 0 {
		sessionTTL = 24 * time.Hour
	}

	logger := cfg.Logger
	if logger == nil {
		logger = observability.NewLogger(observability.InfoLevel, nil)
	}

	return &Controller{
		store:          store,
		sessions:       sessions,
		tokens:         NewTokenGenerator(),
		permanentAdmin: permanentAdmin,
		sessionTTL:     sessionTTL,
		logger:         logger,
		permissions:    make(map[string]Permission),
	}
}

// PermanentAdminEmail returns the email that can never lose admin rights
func (c *Controller) PermanentAdminEmail() string {
	return c.permanentAdmin
}

// Refresh loads the permission list and pending queue from the store,
// fetching both concurrently. On failure the prior mirrors are kept.
func (c *Controller) Refresh(ctx context.Context) error {
	var (
		perms   []Permission
		pending []PendingRequest
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		perms, err = c.store.ListPermissions(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		pending, err = c.store.ListPendingRequests(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return fmt.Errorf("failed to refresh access state: %w", err)
	}

	byEmail := make(map[string]Permission, len(perms))
	for _, p := range perms {
		byEmail[p.Email] = p
	}

	c.mu.Lock()
	c.permissions = byEmail
	c.pending = pending
	c.mu.Unlock()

	return nil
}

// Seed installs the initial permission list on an empty store. The permanent
// admin is always included and always flagged admin.
func (c *Controller) Seed(ctx context.Context, emails []string) error {
	seen := map[string]bool{c.permanentAdmin: true}
	perms := []Permission{{Email: c.permanentAdmin, IsAdmin: true}}

	for _, raw := range emails {
		email := NormalizeEmail(raw)
		if email == "" || seen[email] {
			continue
		}
		seen[email] = true
		perms = append(perms, Permission{Email: email})
	}

	if err := c.store.Seed(ctx, perms); err != nil {
		return err
	}

	return c.Refresh(ctx)
}

// deriveFlags computes authorization from the permission list. The permanent
// admin is authorized admin no matter what the list says.
func deriveFlags(perms map[string]Permission, permanentAdmin, email string) (authorized, admin bool) {
	if email == "" {
		return false, false
	}
	if email == permanentAdmin {
		return true, true
	}

	p, ok := perms[email]
	if !ok {
		return false, false
	}
	return true, p.IsAdmin
}

// SnapshotFor derives the current access state for an email. Flags are never
// cached; every call re-reads the permission mirror, so removals and revokes
// reach live sessions without re-login.
func (c *Controller) SnapshotFor(email string) Snapshot {
	email = NormalizeEmail(email)

	c.mu.RLock()
	authorized, admin := deriveFlags(c.permissions, c.permanentAdmin, email)
	c.mu.RUnlock()

	return Snapshot{Email: email, Authorized: authorized, Admin: admin}
}

// Login normalizes the email and mints a session. An email that normalizes
// to empty returns ErrEmptyEmail with no state change.
func (c *Controller) Login(ctx context.Context, emailInput string) (string, *Session, error) {
	email := NormalizeEmail(emailInput)
	if email == "" {
		return "", nil, ErrEmptyEmail
	}

	token, tokenHash, err := c.tokens.GenerateToken()
	if err != nil {
		return "", nil, fmt.Errorf("failed to mint session token: %w", err)
	}

	session := &Session{
		Email:     email,
		TokenHash: tokenHash,
		ExpiresAt: time.Now().Add(c.sessionTTL),
	}
	if err := c.sessions.CreateSession(ctx, session); err != nil {
		return "", nil, err
	}

	c.logger.WithField("email", email).Info("User logged in")
	return token, session, nil
}

// Logout destroys the session behind the token. Unknown tokens are a no-op.
func (c *Controller) Logout(ctx context.Context, token string) error {
	return c.sessions.DeleteSession(ctx, c.tokens.HashToken(token))
}

// Authenticate resolves a bearer token to its session. Expired and unknown
// tokens return ErrSessionNotFound.
func (c *Controller) Authenticate(ctx context.Context, token string) (*Session, error) {
	if err := c.tokens.ValidateTokenFormat(token); err != nil {
		return nil, ErrSessionNotFound
	}

	session, err := c.sessions.GetSessionByTokenHash(ctx, c.tokens.HashToken(token))
	if err != nil {
		return nil, err
	}
	if session.Expired(time.Now()) {
		return nil, ErrSessionNotFound
	}

	return session, nil
}

// AddPermission inserts a non-admin permission for the email. Duplicate
// inserts are a no-op.
func (c *Controller) AddPermission(ctx context.Context, emailInput, grantedBy string) error {
	email := NormalizeEmail(emailInput)
	if email == "" {
		return ErrEmptyEmail
	}

	perm := Permission{Email: email, GrantedBy: NormalizeEmail(grantedBy)}
	inserted, err := c.store.InsertPermission(ctx, perm)
	if err != nil {
		return err
	}
	if !inserted {
		return nil
	}

	now := time.Now()
	perm.CreatedAt = now
	perm.UpdatedAt = now

	c.mu.Lock()
	c.permissions[email] = perm
	c.mu.Unlock()

	return nil
}

// RemovePermission deletes a permission. The permanent admin is rejected with
// ProtectedRecordError before any store call; any live session for the
// removed email loses authorization on its next snapshot.
func (c *Controller) RemovePermission(ctx context.Context, emailInput string) error {
	email := NormalizeEmail(emailInput)
	if email == "" {
		return ErrEmptyEmail
	}
	if email == c.permanentAdmin {
		return &ProtectedRecordError{Email: email}
	}

	if err := c.store.DeletePermission(ctx, email); err != nil {
		return err
	}

	c.mu.Lock()
	delete(c.permissions, email)
	c.mu.Unlock()

	c.logger.WithField("email", email).Info("Permission removed")
	return nil
}

// GrantAdmin sets the admin bit. Granting to the permanent admin is a no-op.
func (c *Controller) GrantAdmin(ctx context.Context, emailInput string) error {
	return c.setAdmin(ctx, emailInput, true)
}

// RevokeAdmin clears the admin bit. Revoking the permanent admin is a no-op;
// a user revoking their own bit loses admin on their next snapshot.
func (c *Controller) RevokeAdmin(ctx context.Context, emailInput string) error {
	return c.setAdmin(ctx, emailInput, false)
}

func (c *Controller) setAdmin(ctx context.Context, emailInput string, isAdmin bool) error {
	email := NormalizeEmail(emailInput)
	if email == "" {
		return ErrEmptyEmail
	}
	if email == c.permanentAdmin {
		return nil
	}

	if err := c.store.SetAdmin(ctx, email, isAdmin); err != nil {
		return err
	}

	c.mu.Lock()
	if p, ok := c.permissions[email]; ok {
		p.IsAdmin = isAdmin
		p.UpdatedAt = time.Now()
		c.permissions[email] = p
	}
	c.mu.Unlock()

	return nil
}

// RequestAccess queues an access request. Requests from emails that are
// already pending or already permitted are silently ignored.
func (c *Controller) RequestAccess(ctx context.Context, emailInput string) error {
	email := NormalizeEmail(emailInput)
	if email == "" {
		return ErrEmptyEmail
	}

	created, err := c.store.InsertPendingRequest(ctx, email)
	if err != nil {
		return err
	}
	if !created {
		return nil
	}

	c.mu.Lock()
	c.pending = append(c.pending, PendingRequest{Email: email, RequestedAt: time.Now()})
	c.mu.Unlock()

	c.logger.WithField("email", email).Info("Access requested")
	return nil
}

// ApproveRequest promotes a pending request to a non-admin permission. The
// store write is atomic: after it the email is permitted and not pending,
// never both or neither.
func (c *Controller) ApproveRequest(ctx context.Context, emailInput, approvedBy string) error {
	email := NormalizeEmail(emailInput)
	if email == "" {
		return ErrEmptyEmail
	}

	grantedBy := NormalizeEmail(approvedBy)
	if err := c.store.Approve(ctx, email, grantedBy); err != nil {
		return err
	}

	now := time.Now()
	c.mu.Lock()
	if _, ok := c.permissions[email]; !ok {
		c.permissions[email] = Permission{
			Email:     email,
			GrantedBy: grantedBy,
			CreatedAt: now,
			UpdatedAt: now,
		}
	}
	c.removePendingLocked(email)
	c.mu.Unlock()

	c.logger.WithField("email", email).Info("Access request approved")
	return nil
}

// DenyRequest drops a pending request without touching the permission list
func (c *Controller) DenyRequest(ctx context.Context, emailInput string) error {
	email := NormalizeEmail(emailInput)
	if email == "" {
		return ErrEmptyEmail
	}

	if err := c.store.DeletePendingRequest(ctx, email); err != nil {
		return err
	}

	c.mu.Lock()
	c.removePendingLocked(email)
	c.mu.Unlock()

	c.logger.WithField("email", email).Info("Access request denied")
	return nil
}

// removePendingLocked removes an email from the pending mirror. Callers hold c.mu.
func (c *Controller) removePendingLocked(email string) {
	for i, r := range c.pending {
		if r.Email == email {
			c.pending = append(c.pending[:i], c.pending[i+1:]...)
			return
		}
	}
}

// Permissions returns the permission list ordered by creation time
func (c *Controller) Permissions() []Permission {
	c.mu.RLock()
	perms := make([]Permission, 0, len(c.permissions))
	for _, p := range c.permissions {
		perms = append(perms, p)
	}
	c.mu.RUnlock()

	sort.Slice(perms, func(i, j int) bool {
		if perms[i].CreatedAt.Equal(perms[j].CreatedAt) {
			return perms[i].Email < perms[j].Email
		}
		return perms[i].CreatedAt.Before(perms[j].CreatedAt)
	})

	return perms
}

// PendingRequests returns the pending queue, oldest first
func (c *Controller) PendingRequests() []PendingRequest {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]PendingRequest, len(c.pending))
	copy(out, c.pending)
	return out
}

// Counts returns the sizes of the permission list and pending queue
func (c *Controller) Counts() (permissions, pending int) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.permissions), len(c.pending)
}
