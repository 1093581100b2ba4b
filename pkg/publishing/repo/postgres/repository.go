package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/obscura-press/obscura/pkg/publishing"
)

// DBTX is an interface that allows us to use either a database connection
// or a transaction
type DBTX interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Exec(context.Context, string, ...interface{}) (pgconn.CommandTag, error)
	Query(context.Context, string, ...interface{}) (pgx.Rows, error)
	QueryRow(context.Context, string, ...interface{}) pgx.Row
}

// Repository implements publishing.Repository using PostgreSQL.
// Schema: migrations/postgres/001_publishing.sql.
type Repository struct {
	db DBTX
}

// New creates a new PostgreSQL repository
func New(db DBTX) *Repository {
	return &Repository{db: db}
}

// NewWithPool creates a new PostgreSQL repository with connection pool
func NewWithPool(pool *pgxpool.Pool) *Repository {
	return &Repository{db: pool}
}

const itemColumns = `id, kind, status, title, body, author_name, author_email,
       scheduled_for, reviewed_at, rejection_reason, thumbnail, gallery,
       created_at, updated_at`

func (r *Repository) Create(ctx context.Context, item *publishing.ContentItem) error {
	thumbnail, gallery, err := encodeAssets(item)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO content_item (
			id, kind, status, title, body, author_name, author_email,
			scheduled_for, reviewed_at, rejection_reason, thumbnail, gallery,
			created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`

	_, err = r.db.Exec(ctx, query,
		item.ID, item.Kind, item.Status, item.Title, item.Body,
		item.AuthorName, item.AuthorEmail,
		item.ScheduledFor, item.ReviewedAt, nullString(item.RejectionReason),
		thumbnail, gallery, item.CreatedAt, item.UpdatedAt)
	if err != nil {
		return r.handlePostgresError("create content item", err)
	}
	return nil
}

func (r *Repository) Get(ctx context.Context, id uuid.UUID) (*publishing.ContentItem, error) {
	query := `SELECT ` + itemColumns + ` FROM content_item WHERE id = $1`
	item, err := scanItem(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, publishing.ErrNotFound
		}
		return nil, err
	}
	return item, nil
}

func (r *Repository) List(ctx context.Context, filters publishing.ListContentFilters) ([]*publishing.ContentItem, error) {
	var conds []string
	var args []interface{}
	if filters.Kind != nil {
		args = append(args, *filters.Kind)
		conds = append(conds, fmt.Sprintf("kind = $%d", len(args)))
	}
	if filters.Status != nil {
		args = append(args, *filters.Status)
		conds = append(conds, fmt.Sprintf("status = $%d", len(args)))
	}

	query := `SELECT ` + itemColumns + ` FROM content_item`
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY created_at DESC"
	if filters.Limit != nil && *filters.Limit > 0 {
		args = append(args, *filters.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	if filters.Offset != nil && *filters.Offset > 0 {
		args = append(args, *filters.Offset)
		query += fmt.Sprintf(" OFFSET $%d", len(args))
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []*publishing.ContentItem
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, item)
	}
	return result, rows.Err()
}

// UpdateStatusIf applies the mutation inside a transaction holding a row
// lock, so the status check and the write are one atomic step. A losing
// concurrent caller sees (false, nil).
func (r *Repository) UpdateStatusIf(ctx context.Context, id uuid.UUID, expected publishing.Status, mutate func(*publishing.ContentItem)) (bool, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return false, err
	}
	defer tx.Rollback(ctx)

	query := `SELECT ` + itemColumns + ` FROM content_item WHERE id = $1 FOR UPDATE`
	item, err := scanItem(tx.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, publishing.ErrNotFound
		}
		return false, err
	}
	if item.Status != expected {
		return false, nil
	}

	mutate(item)

	thumbnail, gallery, err := encodeAssets(item)
	if err != nil {
		return false, err
	}

	update := `
		UPDATE content_item SET
			status = $2, title = $3, body = $4, scheduled_for = $5,
			reviewed_at = $6, rejection_reason = $7, thumbnail = $8,
			gallery = $9, updated_at = $10
		WHERE id = $1 AND status = $11`

	tag, err := tx.Exec(ctx, update,
		item.ID, item.Status, item.Title, item.Body, item.ScheduledFor,
		item.ReviewedAt, nullString(item.RejectionReason),
		thumbnail, gallery, item.UpdatedAt, expected)
	if err != nil {
		return false, r.handlePostgresError("conditional status update", err)
	}
	if tag.RowsAffected() == 0 {
		return false, nil
	}
	return true, tx.Commit(ctx)
}

func (r *Repository) QueryDue(ctx context.Context, before time.Time) ([]uuid.UUID, error) {
	query := `
		SELECT id FROM content_item
		WHERE kind IN ($1, $2) AND status = $3 AND scheduled_for <= $4
		ORDER BY scheduled_for ASC`

	rows, err := r.db.Query(ctx, query,
		publishing.KindArticle, publishing.KindMystery, publishing.StatusScheduled, before)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var due []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		due = append(due, id)
	}
	return due, rows.Err()
}

func (r *Repository) Delete(ctx context.Context, id uuid.UUID) (*publishing.ContentItem, error) {
	query := `DELETE FROM content_item WHERE id = $1 RETURNING ` + itemColumns
	item, err := scanItem(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, publishing.ErrNotFound
		}
		return nil, r.handlePostgresError("delete content item", err)
	}
	return item, nil
}

// Helpers

func encodeAssets(item *publishing.ContentItem) ([]byte, []byte, error) {
	var thumbnail []byte
	if item.Thumbnail != nil {
		b, err := json.Marshal(item.Thumbnail)
		if err != nil {
			return nil, nil, fmt.Errorf("encode thumbnail: %w", err)
		}
		thumbnail = b
	}

	gallery := item.Gallery
	if gallery == nil {
		gallery = []publishing.GalleryImage{}
	}
	g, err := json.Marshal(gallery)
	if err != nil {
		return nil, nil, fmt.Errorf("encode gallery: %w", err)
	}
	return thumbnail, g, nil
}

func scanItem(row pgx.Row) (*publishing.ContentItem, error) {
	var item publishing.ContentItem
	var reason *string
	var thumbnail, gallery []byte

	err := row.Scan(
		&item.ID, &item.Kind, &item.Status, &item.Title, &item.Body,
		&item.AuthorName, &item.AuthorEmail,
		&item.ScheduledFor, &item.ReviewedAt, &reason,
		&thumbnail, &gallery, &item.CreatedAt, &item.UpdatedAt)
	if err != nil {
		return nil, err
	}

	if reason != nil {
		item.RejectionReason = *reason
	}
	if len(thumbnail) > 0 {
		var ref publishing.AssetRef
		if err := json.Unmarshal(thumbnail, &ref); err != nil {
			return nil, fmt.Errorf("decode thumbnail: %w", err)
		}
		item.Thumbnail = &ref
	}
	if len(gallery) > 0 {
		if err := json.Unmarshal(gallery, &item.Gallery); err != nil {
			return nil, fmt.Errorf("decode gallery: %w", err)
		}
		if len(item.Gallery) == 0 {
			item.Gallery = nil
		}
	}
	return &item, nil
}

func nullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// Error handling helper
func (r *Repository) handlePostgresError(operation string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505": // unique_violation
			return fmt.Errorf("content item already exists: %w", err)
		case "23502": // not_null_violation
			return fmt.Errorf("required field %s is missing: %w", pgErr.ColumnName, err)
		case "42P01": // undefined_table
			return fmt.Errorf("table does not exist - database migration required: %w", err)
		default:
			return fmt.Errorf("database error in %s (code %s): %w", operation, pgErr.Code, err)
		}
	}
	return fmt.Errorf("database error in %s: %w", operation, err)
}
