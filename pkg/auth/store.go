package auth

import (
	"context"
	"database/sql"
	"fmt"
)

// PermissionStore persists the permission list and the pending-request queue.
//
// Implementations provide keyed upsert/delete over both collections plus the
// two multi-record atomic operations the portal needs: approving a request
// and seeding the initial list.
type PermissionStore interface {
	ListPermissions(ctx context.Context) ([]Permission, error)
	GetPermission(ctx context.Context, email string) (*Permission, error)

	// InsertPermission adds a non-existing permission. Inserting an email
	// that is already present is a no-op; the bool reports whether a row
	// was created.
	InsertPermission(ctx context.Context, perm Permission) (bool, error)

	DeletePermission(ctx context.Context, email string) error

	// SetAdmin flips the admin bit; returns NotFoundError when the email has
	// no permission row.
	SetAdmin(ctx context.Context, email string, isAdmin bool) error

	ListPendingRequests(ctx context.Context) ([]PendingRequest, error)

	// InsertPendingRequest adds a request only when the email is neither
	// already pending nor already permitted. The bool reports whether a row
	// was created.
	InsertPendingRequest(ctx context.Context, email string) (bool, error)

	DeletePendingRequest(ctx context.Context, email string) error

	// Approve atomically promotes a pending request to a non-admin
	// permission and removes it from the queue. Either both writes happen
	// or neither does.
	Approve(ctx context.Context, email, grantedBy string) error

	// Seed installs the initial permission list in one batch, only when the
	// permissions table is empty.
	Seed(ctx context.Context, perms []Permission) error
}

// PostgresPermissionStore implements PermissionStore using PostgreSQL
type PostgresPermissionStore struct {
	db *sql.DB
}

// NewPostgresPermissionStore creates a new PostgreSQL-backed permission store
func NewPostgresPermissionStore(db *sql.DB) *PostgresPermissionStore {
	return &PostgresPermissionStore{db: db}
}

// ListPermissions returns every permission record, oldest first
func (s *PostgresPermissionStore) ListPermissions(ctx context.Context) ([]Permission, error) {
	query := `
		SELECT email, is_admin, granted_by, created_at, updated_at
		FROM permissions
		ORDER BY created_at ASC
	`
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list permissions: %w", err)
	}
	defer rows.Close()

	var perms []Permission
	for rows.Next() {
		var p Permission
		if err := rows.Scan(&p.Email, &p.IsAdmin, &p.GrantedBy, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan permission: %w", err)
		}
		perms = append(perms, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate permissions: %w", err)
	}

	return perms, nil
}

// GetPermission retrieves one permission by normalized email
func (s *PostgresPermissionStore) GetPermission(ctx context.Context, email string) (*Permission, error) {
	query := `
		SELECT email, is_admin, granted_by, created_at, updated_at
		FROM permissions
		WHERE email = $1
	`
	var p Permission
	err := s.db.QueryRowContext(ctx, query, email).Scan(
		&p.Email, &p.IsAdmin, &p.GrantedBy, &p.CreatedAt, &p.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, &NotFoundError{Kind: "permission", Email: email}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get permission: %w", err)
	}

	return &p, nil
}

// InsertPermission adds a permission if absent
func (s *PostgresPermissionStore) InsertPermission(ctx context.Context, perm Permission) (bool, error) {
	query := `
		INSERT INTO permissions (email, is_admin, granted_by)
		VALUES ($1, $2, $3)
		ON CONFLICT (email) DO NOTHING
	`
	res, err := s.db.ExecContext(ctx, query, perm.Email, perm.IsAdmin, perm.GrantedBy)
	if err != nil {
		return false, fmt.Errorf("failed to insert permission: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read insert result: %w", err)
	}

	return affected > 0, nil
}

// DeletePermission removes a permission row. Deleting an absent email is a no-op.
func (s *PostgresPermissionStore) DeletePermission(ctx context.Context, email string) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM permissions WHERE email = $1", email); err != nil {
		return fmt.Errorf("failed to delete permission: %w", err)
	}
	return nil
}

// SetAdmin flips the admin bit on an existing permission
func (s *PostgresPermissionStore) SetAdmin(ctx context.Context, email string, isAdmin bool) error {
	query := `
		UPDATE permissions
		SET is_admin = $2, updated_at = NOW()
		WHERE email = $1
	`
	res, err := s.db.ExecContext(ctx, query, email, isAdmin)
	if err != nil {
		return fmt.Errorf("failed to update permission: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read update result: %w", err)
	}
	if affected == 0 {
		return &NotFoundError{Kind: "permission", Email: email}
	}

	return nil
}

// ListPendingRequests returns the pending queue, oldest first
func (s *PostgresPermissionStore) ListPendingRequests(ctx context.Context) ([]PendingRequest, error) {
	query := `
		SELECT email, requested_at
		FROM pending_requests
		ORDER BY requested_at ASC
	`
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list pending requests: %w", err)
	}
	defer rows.Close()

	var reqs []PendingRequest
	for rows.Next() {
		var r PendingRequest
		if err := rows.Scan(&r.Email, &r.RequestedAt); err != nil {
			return nil, fmt.Errorf("failed to scan pending request: %w", err)
		}
		reqs = append(reqs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate pending requests: %w", err)
	}

	return reqs, nil
}

// InsertPendingRequest queues an access request unless the email is already
// pending or already holds a permission
func (s *PostgresPermissionStore) InsertPendingRequest(ctx context.Context, email string) (bool, error) {
	query := `
		INSERT INTO pending_requests (email)
		SELECT $1
		WHERE NOT EXISTS (SELECT 1 FROM permissions WHERE email = $1)
		ON CONFLICT (email) DO NOTHING
	`
	res, err := s.db.ExecContext(ctx, query, email)
	if err != nil {
		return false, fmt.Errorf("failed to insert pending request: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read insert result: %w", err)
	}

	return affected > 0, nil
}

// DeletePendingRequest removes a queued request. Absent emails are a no-op.
func (s *PostgresPermissionStore) DeletePendingRequest(ctx context.Context, email string) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM pending_requests WHERE email = $1", email); err != nil {
		return fmt.Errorf("failed to delete pending request: %w", err)
	}
	return nil
}

// Approve promotes a pending request to a non-admin permission in one transaction
func (s *PostgresPermissionStore) Approve(ctx context.Context, email, grantedBy string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to start transaction: %w", err)
	}

	insert := `
		INSERT INTO permissions (email, is_admin, granted_by)
		VALUES ($1, FALSE, $2)
		ON CONFLICT (email) DO NOTHING
	`
	if _, err := tx.ExecContext(ctx, insert, email, grantedBy); err != nil {
		tx.Rollback()
		return fmt.Errorf("failed to insert approved permission: %w", err)
	}

	if _, err := tx.ExecContext(ctx, "DELETE FROM pending_requests WHERE email = $1", email); err != nil {
		tx.Rollback()
		return fmt.Errorf("failed to remove pending request: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit approval: %w", err)
	}

	return nil
}

// Seed installs the initial permission list when the table is empty
func (s *PostgresPermissionStore) Seed(ctx context.Context, perms []Permission) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to start transaction: %w", err)
	}

	var count int
	if err := tx.QueryRowContext(ctx, "SELECT COUNT(*) FROM permissions").Scan(&count); err != nil {
		tx.Rollback()
		return fmt.Errorf("failed to count permissions: %w", err)
	}
	if count > 0 {
		tx.Rollback()
		return nil
	}

	insert := `
		INSERT INTO permissions (email, is_admin, granted_by)
		VALUES ($1, $2, $3)
		ON CONFLICT (email) DO NOTHING
	`
	for _, p := range perms {
		if _, err := tx.ExecContext(ctx, insert, p.Email, p.IsAdmin, p.GrantedBy); err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to seed permission %s: %w", p.Email, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit seed: %w", err)
	}

	return nil
}
