// Package audit records administrative actions. Every permission grant,
// revocation, and request decision leaves one event row so access changes
// stay reconstructable.
package audit

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Actions recorded by the admin surface
const (
	ActionPermissionAdded   = "permission.added"
	ActionPermissionRemoved = "permission.removed"
	ActionAdminGranted      = "admin.granted"
	ActionAdminRevoked      = "admin.revoked"
	ActionRequestApproved   = "request.approved"
	ActionRequestDenied     = "request.denied"
	ActionContentAdded      = "content.added"
	ActionContentUpdated    = "content.updated"
	ActionContentRemoved    = "content.removed"
)

// Event is one recorded administrative action
type Event struct {
	ID        string    `json:"id"`
	Actor     string    `json:"actor"`
	Action    string    `json:"action"`
	Subject   string    `json:"subject"`
	Detail    string    `json:"detail,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Recorder persists audit events
type Recorder interface {
	Record(ctx context.Context, event Event) error
	ListEvents(ctx context.Context, limit int) ([]Event, error)
	DeleteEventsBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// PostgresRecorder implements Recorder using PostgreSQL
type PostgresRecorder struct {
	db *sql.DB
}

// NewPostgresRecorder creates a new PostgreSQL-backed audit recorder
func NewPostgresRecorder(db *sql.DB) *PostgresRecorder {
	return &PostgresRecorder{db: db}
}

// Record inserts one event, assigning ID and timestamp
func (r *PostgresRecorder) Record(ctx context.Context, event Event) error {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO audit_events (id, actor, action, subject, detail)
		VALUES ($1, $2, $3, $4, $5)
	`, event.ID, event.Actor, event.Action, event.Subject, event.Detail)
	if err != nil {
		return fmt.Errorf("failed to record audit event: %w", err)
	}

	return nil
}

// ListEvents returns the most recent events, newest first
func (r *PostgresRecorder) ListEvents(ctx context.Context, limit int) ([]Event, error) {
	if limit <= 0 {
		limit = 100
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT id, actor, action, subject, detail, created_at
		FROM audit_events
		ORDER BY created_at DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list audit events: %w", err)
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		var e Event
		if err := rows.Scan(&e.ID, &e.Actor, &e.Action, &e.Subject, &e.Detail, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan audit event: %w", err)
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate audit events: %w", err)
	}

	return events, nil
}

// DeleteEventsBefore removes events older than cutoff, returning the count
func (r *PostgresRecorder) DeleteEventsBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx,
		"DELETE FROM audit_events WHERE created_at < $1", cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to purge audit events: %w", err)
	}

	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count purged audit events: %w", err)
	}

	return deleted, nil
}
