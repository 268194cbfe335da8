package content

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// Store persists library content
type Store interface {
	// ListContent returns all items, newest first. A table without the
	// created_at ordering column falls back to an unordered read.
	ListContent(ctx context.Context) ([]Content, error)

	GetContent(ctx context.Context, id string) (*Content, error)

	// CreateContent inserts the item, assigning ID and timestamps
	CreateContent(ctx context.Context, item *Content) error

	// UpdateContent replaces the row matching item.ID; NotFoundError when absent
	UpdateContent(ctx context.Context, item *Content) error

	// DeleteContent removes the row; absent IDs are a no-op
	DeleteContent(ctx context.Context, id string) error

	CountContent(ctx context.Context) (int64, error)
}

// PostgresStore implements Store using PostgreSQL
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a new PostgreSQL-backed content store
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const contentColumns = "id, title, description, thumbnail_url, drive_file_id, type, duration, series, created_at, updated_at"

// ListContent returns all content, newest first
func (s *PostgresStore) ListContent(ctx context.Context) ([]Content, error) {
	ordered := fmt.Sprintf("SELECT %s FROM content ORDER BY created_at DESC", contentColumns)

	items, err := s.queryContent(ctx, ordered)
	if err == nil {
		return items, nil
	}

	// Tables imported from the portal's first deployment predate the
	// created_at column; serve them unordered rather than failing.
	if isUndefinedColumn(err) {
		plain := fmt.Sprintf("SELECT %s FROM content", contentColumns)
		return s.queryContent(ctx, plain)
	}

	return nil, err
}

func (s *PostgresStore) queryContent(ctx context.Context, query string) ([]Content, error) {
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list content: %w", err)
	}
	defer rows.Close()

	var items []Content
	for rows.Next() {
		var c Content
		if err := rows.Scan(
			&c.ID, &c.Title, &c.Description, &c.ThumbnailURL, &c.DriveFileID,
			&c.Type, &c.Duration, &c.Series, &c.CreatedAt, &c.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan content: %w", err)
		}
		items = append(items, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate content: %w", err)
	}

	return items, nil
}

// isUndefinedColumn reports the PostgreSQL undefined_column error (42703)
func isUndefinedColumn(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "42703"
	}
	return false
}

// GetContent retrieves one item by ID
func (s *PostgresStore) GetContent(ctx context.Context, id string) (*Content, error) {
	query := fmt.Sprintf("SELECT %s FROM content WHERE id = $1", contentColumns)

	var c Content
	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&c.ID, &c.Title, &c.Description, &c.ThumbnailURL, &c.DriveFileID,
		&c.Type, &c.Duration, &c.Series, &c.CreatedAt, &c.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, &NotFoundError{ID: id}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get content: %w", err)
	}

	return &c, nil
}

// CreateContent inserts the item with a fresh ID and server timestamps
func (s *PostgresStore) CreateContent(ctx context.Context, item *Content) error {
	if item.ID == "" {
		item.ID = uuid.NewString()
	}

	query := `
		INSERT INTO content (id, title, description, thumbnail_url, drive_file_id, type, duration, series)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at, updated_at
	`
	err := s.db.QueryRowContext(ctx, query,
		item.ID, item.Title, item.Description, item.ThumbnailURL,
		item.DriveFileID, item.Type, item.Duration, item.Series,
	).Scan(&item.CreatedAt, &item.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create content: %w", err)
	}

	return nil
}

// UpdateContent replaces the stored row for item.ID
func (s *PostgresStore) UpdateContent(ctx context.Context, item *Content) error {
	query := `
		UPDATE content
		SET title = $2, description = $3, thumbnail_url = $4, drive_file_id = $5,
		    type = $6, duration = $7, series = $8, updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at
	`
	err := s.db.QueryRowContext(ctx, query,
		item.ID, item.Title, item.Description, item.ThumbnailURL,
		item.DriveFileID, item.Type, item.Duration, item.Series,
	).Scan(&item.UpdatedAt)
	if err == sql.ErrNoRows {
		return &NotFoundError{ID: item.ID}
	}
	if err != nil {
		return fmt.Errorf("failed to update content: %w", err)
	}

	return nil
}

// DeleteContent removes the row matching id. Absent IDs are a no-op.
func (s *PostgresStore) DeleteContent(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM content WHERE id = $1", id); err != nil {
		return fmt.Errorf("failed to delete content: %w", err)
	}
	return nil
}

// CountContent returns the number of content rows
func (s *PostgresStore) CountContent(ctx context.Context) (int64, error) {
	var count int64
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM content").Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count content: %w", err)
	}
	return count, nil
}
