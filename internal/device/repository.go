package device

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/nerrad567/tuya-ce-core/internal/tuya"
)

// Repository defines the interface for device persistence operations.
// This abstraction allows for different implementations (SQLite, mock, etc.)
// and enables unit testing without database dependencies.
type Repository interface {
	// GetByID retrieves a device by its Tuya id.
	// Returns ErrDeviceNotFound if the device does not exist.
	GetByID(ctx context.Context, id string) (*Device, error)

	// List retrieves all devices ordered by name.
	List(ctx context.Context) ([]Device, error)

	// Upsert inserts a device or replaces its descriptor, keeping created_at.
	Upsert(ctx context.Context, device *Device) error

	// Delete removes a device and its entity records.
	// Returns ErrDeviceNotFound if the device does not exist.
	Delete(ctx context.Context, id string) error

	// SetOnline updates only the online flag.
	SetOnline(ctx context.Context, id string, online bool, at time.Time) error

	// Entities returns the entity unique ids published for a device.
	Entities(ctx context.Context, deviceID string) ([]Entity, error)

	// SaveEntities replaces the device's entity records with entities.
	// Records that already exist keep their created_at.
	SaveEntities(ctx context.Context, deviceID string, entities []Entity) error

	// RenameEntity changes an entity's unique id.
	RenameEntity(ctx context.Context, from, to string) error
}

// SQLiteRepository implements Repository using SQLite.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository creates a new SQLite-backed repository.
// The db parameter should be an open, migrated SQLite connection.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

const deviceColumns = `id, name, category, model, product_name, descriptor, online, created_at, updated_at`

// GetByID retrieves a device by its Tuya id.
func (r *SQLiteRepository) GetByID(ctx context.Context, id string) (*Device, error) {
	query := `SELECT ` + deviceColumns + ` FROM devices WHERE id = ?`

	device, err := scanDevice(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrDeviceNotFound
		}
		return nil, fmt.Errorf("querying device by id: %w", err)
	}
	return device, nil
}

// List retrieves all devices.
func (r *SQLiteRepository) List(ctx context.Context) ([]Device, error) {
	query := `SELECT ` + deviceColumns + ` FROM devices ORDER BY name, id`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("querying devices: %w", err)
	}
	defer rows.Close()

	var devices []Device
	for rows.Next() {
		d, err := scanDevice(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning device: %w", err)
		}
		devices = append(devices, *d)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating devices: %w", err)
	}
	return devices, nil
}

// Upsert inserts or replaces a device.
func (r *SQLiteRepository) Upsert(ctx context.Context, device *Device) error {
	descriptorJSON, err := json.Marshal(device.DeviceDescriptor)
	if err != nil {
		return fmt.Errorf("marshalling descriptor: %w", err)
	}

	now := time.Now().UTC()
	if device.CreatedAt.IsZero() {
		device.CreatedAt = now
	}
	if device.UpdatedAt.IsZero() {
		device.UpdatedAt = now
	}

	query := `
		INSERT INTO devices (` + deviceColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			category = excluded.category,
			model = excluded.model,
			product_name = excluded.product_name,
			descriptor = excluded.descriptor,
			online = excluded.online,
			updated_at = excluded.updated_at`

	_, err = r.db.ExecContext(ctx, query,
		device.ID,
		device.Name,
		device.Category,
		device.Model,
		device.ProductName,
		string(descriptorJSON),
		boolToInt(device.Online),
		device.CreatedAt.UTC().Format(time.RFC3339),
		device.UpdatedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("upserting device: %w", err)
	}
	return nil
}

// Delete removes a device by id. Entity records cascade.
func (r *SQLiteRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, "DELETE FROM devices WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting device: %w", err)
	}
	return requireRow(result, ErrDeviceNotFound)
}

// SetOnline updates the online flag.
func (r *SQLiteRepository) SetOnline(ctx context.Context, id string, online bool, at time.Time) error {
	result, err := r.db.ExecContext(ctx,
		"UPDATE devices SET online = ?, updated_at = ? WHERE id = ?",
		boolToInt(online), at.UTC().Format(time.RFC3339), id,
	)
	if err != nil {
		return fmt.Errorf("updating online flag: %w", err)
	}
	return requireRow(result, ErrDeviceNotFound)
}

// Entities returns a device's entity records ordered by unique id.
func (r *SQLiteRepository) Entities(ctx context.Context, deviceID string) ([]Entity, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT unique_id, device_id, platform, entity_key, created_at
		FROM device_entities
		WHERE device_id = ?
		ORDER BY unique_id`, deviceID)
	if err != nil {
		return nil, fmt.Errorf("querying entities: %w", err)
	}
	defer rows.Close()

	var entities []Entity
	for rows.Next() {
		var e Entity
		var createdAt string
		if err := rows.Scan(&e.UniqueID, &e.DeviceID, &e.Platform, &e.Key, &createdAt); err != nil {
			return nil, fmt.Errorf("scanning entity: %w", err)
		}
		e.CreatedAt, _ = time.Parse(time.RFC3339, createdAt) //nolint:errcheck // Format is controlled
		entities = append(entities, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating entities: %w", err)
	}
	return entities, nil
}

// SaveEntities replaces the device's entity records in one transaction.
func (r *SQLiteRepository) SaveEntities(ctx context.Context, deviceID string, entities []Entity) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // Rollback is no-op after commit

	keep := make([]any, 0, len(entities)+1)
	keep = append(keep, deviceID)
	now := time.Now().UTC().Format(time.RFC3339)

	for _, e := range entities {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO device_entities (unique_id, device_id, platform, entity_key, created_at)
			VALUES (?, ?, ?, ?, ?)
			ON CONFLICT(unique_id) DO UPDATE SET
				device_id = excluded.device_id,
				platform = excluded.platform,
				entity_key = excluded.entity_key`,
			e.UniqueID, deviceID, e.Platform, e.Key, now,
		)
		if err != nil {
			return fmt.Errorf("saving entity %s: %w", e.UniqueID, err)
		}
		keep = append(keep, e.UniqueID)
	}

	query := "DELETE FROM device_entities WHERE device_id = ?"
	if len(entities) > 0 {
		query += " AND unique_id NOT IN (?" + strings.Repeat(", ?", len(entities)-1) + ")"
	}
	if _, err := tx.ExecContext(ctx, query, keep...); err != nil {
		return fmt.Errorf("removing stale entities: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing entities: %w", err)
	}
	return nil
}

// RenameEntity changes an entity's unique id.
func (r *SQLiteRepository) RenameEntity(ctx context.Context, from, to string) error {
	result, err := r.db.ExecContext(ctx,
		"UPDATE device_entities SET unique_id = ? WHERE unique_id = ?", to, from,
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return ErrEntityExists
		}
		return fmt.Errorf("renaming entity: %w", err)
	}
	return requireRow(result, ErrEntityNotFound)
}

// scanner is implemented by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanDevice(row scanner) (*Device, error) {
	var (
		d              Device
		descriptorJSON string
		online         int
		createdAt      string
		updatedAt      string
	)

	err := row.Scan(
		&d.ID,
		&d.Name,
		&d.Category,
		&d.Model,
		&d.ProductName,
		&descriptorJSON,
		&online,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return nil, err
	}

	var desc tuya.DeviceDescriptor
	if err := json.Unmarshal([]byte(descriptorJSON), &desc); err != nil {
		return nil, fmt.Errorf("unmarshalling descriptor: %w", err)
	}
	d.Function = desc.Function
	d.StatusRange = desc.StatusRange
	d.Status = desc.Status
	d.Online = online != 0

	var parseErr error
	d.CreatedAt, parseErr = time.Parse(time.RFC3339, createdAt)
	if parseErr != nil {
		return nil, fmt.Errorf("parsing created_at: %w", parseErr)
	}
	d.UpdatedAt, parseErr = time.Parse(time.RFC3339, updatedAt)
	if parseErr != nil {
		return nil, fmt.Errorf("parsing updated_at: %w", parseErr)
	}

	return &d, nil
}

func requireRow(result sql.Result, notFound error) error {
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if n == 0 {
		return notFound
	}
	return nil
}

// boolToInt converts a boolean to 0/1 for SQLite storage.
func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// isUniqueConstraintError checks if an error is a SQLite unique constraint violation.
func isUniqueConstraintError(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "unique constraint")
}
