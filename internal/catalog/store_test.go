package catalog

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/nerrad567/tuya-ce-core/internal/infrastructure/database"
	_ "github.com/nerrad567/tuya-ce-core/migrations"
)

const (
	testDevicesDoc   = `{"devices": {"kg": {"switch": [{"key": "switch_1", "dp_code": "switch_1"}]}, "cz": {"scene": true}}}`
	testCountriesDoc = `[{"name": "Germany", "country_code": "49", "endpoint": "https://openapi.tuyaeu.com"}]`
	testUnitsDoc     = `{"temperature": {"°C": {"unit": "°C", "aliases": ["℃"], "device_classes": ["temperature"]}}}`
)

// fakeRemote serves catalog documents and counts requests per document.
type fakeRemote struct {
	mu     sync.Mutex
	docs   map[string]string
	status int
	hits   map[string]int
}

func newFakeRemote() *fakeRemote {
	return &fakeRemote{
		docs: map[string]string{
			DocumentDevices:   testDevicesDoc,
			DocumentCountries: testCountriesDoc,
			DocumentUnits:     testUnitsDoc,
		},
		status: http.StatusOK,
		hits:   map[string]int{},
	}
}

func (f *fakeRemote) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	name := strings.TrimSuffix(strings.TrimPrefix(r.URL.Path, "/"), ".json")
	f.hits[name]++

	if f.status != http.StatusOK {
		w.WriteHeader(f.status)
		return
	}
	doc, ok := f.docs[name]
	if !ok {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(doc)) //nolint:errcheck // Test server
}

func (f *fakeRemote) set(name, doc string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.docs[name] = doc
}

func (f *fakeRemote) setStatus(status int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.status = status
}

func (f *fakeRemote) count(name string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.hits[name]
}

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

func setupTestStore(t *testing.T) (*Store, *SQLiteRepository, *fakeRemote) {
	t.Helper()

	remote := newFakeRemote()
	srv := httptest.NewServer(remote)
	t.Cleanup(srv.Close)

	repo := setupTestRepo(t)
	store := NewStore(repo, NewHTTPFetcher(srv.URL+"/", 5*time.Second), nil)
	return store, repo, remote
}

func TestNewStore_EmptySnapshot(t *testing.T) {
	store := NewStore(setupTestRepo(t), nil, nil)

	snap := store.Snapshot()
	if snap.Loaded() {
		t.Error("initial snapshot should not be loaded")
	}
	if len(store.Devices()) != 0 {
		t.Errorf("Devices() len = %d, want 0", len(store.Devices()))
	}
	if _, ok := store.Units().Lookup("temperature", "°C"); !ok {
		t.Error("initial snapshot should carry built-in units")
	}
}

func TestStore_Load_FetchesMissingDocuments(t *testing.T) {
	store, repo, remote := setupTestStore(t)
	ctx := context.Background()

	if err := store.Load(ctx, false); err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	snap := store.Snapshot()
	if !snap.Loaded() {
		t.Fatal("snapshot not marked loaded")
	}
	if got := snap.Devices.Categories(); len(got) != 2 {
		t.Errorf("Categories() = %v, want 2 entries", got)
	}
	if c, ok := snap.CountryByCode("49"); !ok || c.Endpoint != "https://openapi.tuyaeu.com" {
		t.Errorf("CountryByCode(49) = %+v, %v", c, ok)
	}
	if u, ok := snap.Units.Lookup("temperature", "℃"); !ok || u.Unit != "°C" {
		t.Errorf("Units.Lookup(℃) = %+v, %v", u, ok)
	}
	for _, name := range Documents() {
		if snap.Sources[name] != SourceRemote {
			t.Errorf("Sources[%s] = %q, want %q", name, snap.Sources[name], SourceRemote)
		}
		if _, err := repo.Load(ctx, name); err != nil {
			t.Errorf("local copy of %s not saved: %v", name, err)
		}
		if remote.count(name) != 1 {
			t.Errorf("%s fetched %d times, want 1", name, remote.count(name))
		}
	}
}

func TestStore_Load_PrefersLocalCopies(t *testing.T) {
	store, _, remote := setupTestStore(t)
	ctx := context.Background()

	if err := store.Load(ctx, false); err != nil {
		t.Fatalf("first Load() error = %v", err)
	}
	if err := store.Load(ctx, false); err != nil {
		t.Fatalf("second Load() error = %v", err)
	}

	for _, name := range Documents() {
		if remote.count(name) != 1 {
			t.Errorf("%s fetched %d times, want 1", name, remote.count(name))
		}
		if got := store.Snapshot().Sources[name]; got != SourceLocal {
			t.Errorf("Sources[%s] = %q, want %q", name, got, SourceLocal)
		}
	}
}

func TestStore_Load_ForceRefetches(t *testing.T) {
	store, repo, remote := setupTestStore(t)
	ctx := context.Background()

	if err := store.Load(ctx, false); err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	remote.set(DocumentCountries, `[{"name": "Japan", "country_code": "81", "endpoint": "https://openapi.tuyacn.com"}]`)
	if err := store.Load(ctx, true); err != nil {
		t.Fatalf("forced Load() error = %v", err)
	}

	if _, ok := store.Snapshot().CountryByCode("81"); !ok {
		t.Error("forced load did not pick up new countries document")
	}
	data, err := repo.Load(ctx, DocumentCountries)
	if err != nil {
		t.Fatalf("repo.Load() error = %v", err)
	}
	if !strings.Contains(string(data), "Japan") {
		t.Errorf("local copy not refreshed: %s", data)
	}
}

func TestStore_Load_FailureKeepsSnapshot(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*fakeRemote)
		wantErr error
	}{
		{
			name:    "remote error",
			mutate:  func(f *fakeRemote) { f.setStatus(http.StatusInternalServerError) },
			wantErr: ErrFetchFailed,
		},
		{
			name:    "invalid devices document",
			mutate:  func(f *fakeRemote) { f.set(DocumentDevices, `{"devices": [`) },
			wantErr: ErrInvalidDocument,
		},
		{
			name:    "invalid units document",
			mutate:  func(f *fakeRemote) { f.set(DocumentUnits, `"nope"`) },
			wantErr: ErrInvalidDocument,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store, repo, remote := setupTestStore(t)
			ctx := context.Background()

			if err := store.Load(ctx, false); err != nil {
				t.Fatalf("Load() error = %v", err)
			}
			before := store.Snapshot()
			localBefore, err := repo.Load(ctx, DocumentDevices)
			if err != nil {
				t.Fatalf("repo.Load() error = %v", err)
			}

			tt.mutate(remote)
			err = store.Load(ctx, true)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Load() error = %v, want %v", err, tt.wantErr)
			}

			if store.Snapshot() != before {
				t.Error("snapshot replaced after failed load")
			}
			localAfter, err := repo.Load(ctx, DocumentDevices)
			if err != nil {
				t.Fatalf("repo.Load() error = %v", err)
			}
			if string(localAfter) != string(localBefore) {
				t.Error("local copy overwritten by failed load")
			}
		})
	}
}

func TestStore_Load_NoFetcher(t *testing.T) {
	store := NewStore(setupTestRepo(t), nil, nil)

	err := store.Load(context.Background(), false)
	if !errors.Is(err, ErrFetchFailed) {
		t.Fatalf("Load() error = %v, want ErrFetchFailed", err)
	}
}

func TestStore_Load_LocalOnly(t *testing.T) {
	repo := setupTestRepo(t)
	ctx := context.Background()

	for name, doc := range map[string]string{
		DocumentDevices:   testDevicesDoc,
		DocumentCountries: testCountriesDoc,
		DocumentUnits:     testUnitsDoc,
	} {
		if err := repo.Save(ctx, name, []byte(doc)); err != nil {
			t.Fatalf("Save(%s) error = %v", name, err)
		}
	}

	store := NewStore(repo, nil, nil)
	if err := store.Load(ctx, false); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(store.Countries()) != 1 {
		t.Errorf("Countries() len = %d, want 1", len(store.Countries()))
	}
}

func TestStore_OnLoad(t *testing.T) {
	store, _, remote := setupTestStore(t)
	ctx := context.Background()

	var calls []*Snapshot
	store.OnLoad(func(s *Snapshot) { calls = append(calls, s) })

	if err := store.Load(ctx, false); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	remote.setStatus(http.StatusBadGateway)
	_ = store.Load(ctx, true) //nolint:errcheck // Failure expected

	if len(calls) != 1 {
		t.Fatalf("OnLoad called %d times, want 1", len(calls))
	}
	if calls[0] != store.Snapshot() {
		t.Error("OnLoad received a different snapshot")
	}
}

// warnRecorder captures warnings logged by the store.
type warnRecorder struct {
	noopLogger
	mu    sync.Mutex
	warns []string
}

func (w *warnRecorder) Warn(msg string, args ...any) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.warns = append(w.warns, msg)
}

func TestStore_Load_UnsupportedConversion(t *testing.T) {
	remote := newFakeRemote()
	remote.set(DocumentUnits, `[
		{"unit": "V", "aliases": ["volt"], "device_classes": ["voltage"]},
		{"unit": "kPa", "device_classes": ["pressure"], "conversion_unit": "bar"}
	]`)
	srv := httptest.NewServer(remote)
	t.Cleanup(srv.Close)

	logger := &warnRecorder{}
	store := NewStore(setupTestRepo(t), NewHTTPFetcher(srv.URL+"/", 5*time.Second), logger)

	if err := store.Load(context.Background(), false); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(store.Devices()) != 2 || len(store.Countries()) != 1 {
		t.Errorf("Devices() = %d, Countries() = %d, want 2 and 1", len(store.Devices()), len(store.Countries()))
	}

	res := store.Units().Resolve("pressure", "kPa")
	if res.Unit != "kPa" || res.Value(101.3) != 101.3 {
		t.Errorf("Resolve(pressure, kPa) = %+v, want native unit unchanged", res)
	}

	logger.mu.Lock()
	defer logger.mu.Unlock()
	if len(logger.warns) != 1 {
		t.Errorf("warnings = %v, want one", logger.warns)
	}
}

func TestSQLiteRepository_LoadMissing(t *testing.T) {
	repo := setupTestRepo(t)

	_, err := repo.Load(context.Background(), DocumentUnits)
	if !errors.Is(err, ErrDocumentNotFound) {
		t.Errorf("Load() error = %v, want ErrDocumentNotFound", err)
	}
}

func TestSQLiteRepository_SaveOverwrites(t *testing.T) {
	repo := setupTestRepo(t)
	ctx := context.Background()

	for _, doc := range []string{`[1]`, `[2]`} {
		if err := repo.Save(ctx, DocumentCountries, []byte(doc)); err != nil {
			t.Fatalf("Save() error = %v", err)
		}
	}
	data, err := repo.Load(ctx, DocumentCountries)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if string(data) != `[2]` {
		t.Errorf("Load() = %s, want [2]", data)
	}
}

func TestHTTPFetcher_Fetch(t *testing.T) {
	var gotAccept string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAccept = r.Header.Get("Accept")
		switch r.URL.Path {
		case "/cfg/units.json":
			w.Write([]byte(`[]`)) //nolint:errcheck // Test server
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	f := NewHTTPFetcher(srv.URL+"/cfg/", time.Second)
	ctx := context.Background()

	data, err := f.Fetch(ctx, "units")
	if err != nil {
		t.Fatalf("Fetch(units) error = %v", err)
	}
	if string(data) != `[]` {
		t.Errorf("Fetch(units) = %s", data)
	}
	if gotAccept != "application/json" {
		t.Errorf("Accept header = %q", gotAccept)
	}

	if _, err := f.Fetch(ctx, "devices"); !errors.Is(err, ErrFetchFailed) {
		t.Errorf("Fetch(devices) error = %v, want ErrFetchFailed", err)
	}
}

func TestHTTPFetcher_ContextCancelled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := NewHTTPFetcher(srv.URL+"/", time.Second).Fetch(ctx, "units"); !errors.Is(err, ErrFetchFailed) {
		t.Errorf("Fetch() error = %v, want ErrFetchFailed", err)
	}
}
