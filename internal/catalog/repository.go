package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// Repository persists the local copies of catalog documents.
type Repository interface {
	// Load returns the stored document.
	// Returns ErrDocumentNotFound if no copy exists.
	Load(ctx context.Context, name string) ([]byte, error)

	// Save stores a document, replacing any previous copy.
	Save(ctx context.Context, name string, data []byte) error
}

// SQLiteRepository implements Repository using the catalog_documents table.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository creates a new SQLite-backed repository.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// Load returns the stored document.
func (r *SQLiteRepository) Load(ctx context.Context, name string) ([]byte, error) {
	var data []byte
	err := r.db.QueryRowContext(ctx,
		"SELECT content FROM catalog_documents WHERE name = ?", name,
	).Scan(&data)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrDocumentNotFound
		}
		return nil, fmt.Errorf("querying catalog document %s: %w", name, err)
	}
	return data, nil
}

// Save stores a document.
func (r *SQLiteRepository) Save(ctx context.Context, name string, data []byte) error {
	query := `
		INSERT INTO catalog_documents (name, content, fetched_at)
		VALUES (?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET
			content = excluded.content,
			fetched_at = excluded.fetched_at`

	if _, err := r.db.ExecContext(ctx, query, name, data, time.Now().UTC().Format(time.RFC3339)); err != nil {
		return fmt.Errorf("saving catalog document %s: %w", name, err)
	}
	return nil
}
