package gapanalysis

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/nerrad567/tuya-ce-core/internal/capability"
	"github.com/nerrad567/tuya-ce-core/internal/infrastructure/database"
	"github.com/nerrad567/tuya-ce-core/internal/tuya"
	_ "github.com/nerrad567/tuya-ce-core/migrations"
)

func setupTestRepo(t *testing.T) *SQLiteRepository {
	t.Helper()

	db, err := database.Open(context.Background(), database.Config{
		Path:        filepath.Join(t.TempDir(), "test.db"),
		BusyTimeout: 5,
	})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	t.Cleanup(func() { db.Close() }) //nolint:errcheck // Test cleanup

	if err := db.Migrate(context.Background()); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}
	return NewSQLiteRepository(db.DB)
}

func testReport(id string, created time.Time) *Report {
	return &Report{
		ID:          id,
		CreatedAt:   created,
		Source:      "dump.json",
		DeviceCount: 2,
		Gaps: Gaps{
			"kg": {"switch": {"switch_3": {"type": "Boolean"}}},
		},
		UnsupportedDevices: map[string][]tuya.Info{"wnykq": {{Name: "IR"}}},
		Failures:           []capability.DeviceFailure{{DeviceID: "x", Error: "boom"}},
	}
}

func TestSQLiteRepository_SaveGet(t *testing.T) {
	repo := setupTestRepo(t)
	ctx := context.Background()
	created := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	if err := repo.Save(ctx, testReport("r1", created)); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	got, err := repo.Get(ctx, "r1")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if !got.CreatedAt.Equal(created) || got.Source != "dump.json" || got.DeviceCount != 2 {
		t.Errorf("Get() header = %+v", got)
	}
	if got.Gaps["kg"]["switch"]["switch_3"]["type"] != "Boolean" {
		t.Errorf("Get() gaps = %v", got.Gaps)
	}
	if len(got.Failures) != 1 || got.UnsupportedDevices["wnykq"][0].Name != "IR" {
		t.Errorf("Get() failures/unsupported = %v / %v", got.Failures, got.UnsupportedDevices)
	}

	if _, err := repo.Get(ctx, "missing"); !errors.Is(err, ErrReportNotFound) {
		t.Errorf("Get(missing) error = %v, want ErrReportNotFound", err)
	}
}

func TestSQLiteRepository_List(t *testing.T) {
	repo := setupTestRepo(t)
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	for i, id := range []string{"old", "mid", "new"} {
		if err := repo.Save(ctx, testReport(id, base.Add(time.Duration(i)*time.Hour))); err != nil {
			t.Fatalf("Save(%s) error = %v", id, err)
		}
	}

	all, err := repo.List(ctx, 0)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(all) != 3 || all[0].ID != "new" || all[2].ID != "old" {
		t.Fatalf("List() = %+v", all)
	}
	if all[0].GapCount != 1 {
		t.Errorf("GapCount = %d, want 1", all[0].GapCount)
	}

	limited, err := repo.List(ctx, 2)
	if err != nil {
		t.Fatalf("List(2) error = %v", err)
	}
	if len(limited) != 2 {
		t.Errorf("List(2) = %d rows", len(limited))
	}

	// Saving again replaces.
	updated := testReport("old", base.Add(5*time.Hour))
	if err := repo.Save(ctx, updated); err != nil {
		t.Fatalf("Save() update error = %v", err)
	}
	all, _ = repo.List(ctx, 0) //nolint:errcheck // checked above
	if len(all) != 3 || all[0].ID != "old" {
		t.Errorf("after update List() = %+v", all)
	}
}
