package gapanalysis

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// ErrReportNotFound is returned when a report id does not exist.
var ErrReportNotFound = errors.New("gapanalysis: report not found")

const (
	// defaultListLimit caps List when the caller passes no limit.
	defaultListLimit = 50

	// createdAtLayout is fixed width so created_at sorts lexically.
	createdAtLayout = "2006-01-02T15:04:05.000000Z"
)

// Summary is the list view of a stored report.
type Summary struct {
	ID          string    `json:"id"`
	CreatedAt   time.Time `json:"created_at"`
	Source      string    `json:"source,omitempty"`
	DeviceCount int       `json:"device_count"`
	GapCount    int       `json:"gap_count"`
}

// Repository persists gap reports.
type Repository interface {
	// Save stores a report. Saving an existing id replaces it.
	Save(ctx context.Context, report *Report) error

	// Get returns a report by id.
	// Returns ErrReportNotFound if the report does not exist.
	Get(ctx context.Context, id string) (*Report, error)

	// List returns report summaries, newest first.
	List(ctx context.Context, limit int) ([]Summary, error)
}

// SQLiteRepository implements Repository using SQLite.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository creates a new SQLite-backed repository.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// Save stores a report.
func (r *SQLiteRepository) Save(ctx context.Context, report *Report) error {
	body, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("marshalling report: %w", err)
	}

	query := `
		INSERT INTO gap_reports (id, created_at, source, device_count, gap_count, report)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			created_at = excluded.created_at,
			source = excluded.source,
			device_count = excluded.device_count,
			gap_count = excluded.gap_count,
			report = excluded.report`

	_, err = r.db.ExecContext(ctx, query,
		report.ID,
		report.CreatedAt.UTC().Format(createdAtLayout),
		report.Source,
		report.DeviceCount,
		report.GapCount(),
		string(body),
	)
	if err != nil {
		return fmt.Errorf("inserting gap report: %w", err)
	}
	return nil
}

// Get returns a report by id.
func (r *SQLiteRepository) Get(ctx context.Context, id string) (*Report, error) {
	var body string
	err := r.db.QueryRowContext(ctx, "SELECT report FROM gap_reports WHERE id = ?", id).Scan(&body)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrReportNotFound
		}
		return nil, fmt.Errorf("querying gap report: %w", err)
	}

	var report Report
	if err := json.Unmarshal([]byte(body), &report); err != nil {
		return nil, fmt.Errorf("unmarshalling gap report %s: %w", id, err)
	}
	return &report, nil
}

// List returns report summaries, newest first.
func (r *SQLiteRepository) List(ctx context.Context, limit int) ([]Summary, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}

	query := `
		SELECT id, created_at, source, device_count, gap_count
		FROM gap_reports
		ORDER BY created_at DESC
		LIMIT ?`

	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("querying gap reports: %w", err)
	}
	defer rows.Close()

	var summaries []Summary
	for rows.Next() {
		var s Summary
		var createdAt string
		if err := rows.Scan(&s.ID, &createdAt, &s.Source, &s.DeviceCount, &s.GapCount); err != nil {
			return nil, fmt.Errorf("scanning gap report: %w", err)
		}
		s.CreatedAt, _ = time.Parse(createdAtLayout, createdAt) //nolint:errcheck // Format is controlled
		summaries = append(summaries, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating gap reports: %w", err)
	}
	return summaries, nil
}
