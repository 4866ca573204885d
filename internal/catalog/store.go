package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/nerrad567/tuya-ce-core/internal/capability"
	"github.com/nerrad567/tuya-ce-core/internal/units"
)

// Logger defines the logging interface used by the Store.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Store serves the current catalog snapshot.
//
// Reads are lock-free. Loads are serialised and publish a fresh snapshot
// only after every document has been decoded.
type Store struct {
	repo    Repository
	fetcher Fetcher
	logger  Logger

	current atomic.Pointer[Snapshot]
	loadMu  sync.Mutex

	listenersMu sync.RWMutex
	listeners   []func(*Snapshot)
}

// NewStore creates a store holding an empty snapshot with the built-in units.
func NewStore(repo Repository, fetcher Fetcher, logger Logger) *Store {
	if logger == nil {
		logger = noopLogger{}
	}
	s := &Store{repo: repo, fetcher: fetcher, logger: logger}
	s.current.Store(emptySnapshot())
	return s
}

// OnLoad registers fn to run after every successful load.
func (s *Store) OnLoad(fn func(*Snapshot)) {
	s.listenersMu.Lock()
	defer s.listenersMu.Unlock()
	s.listeners = append(s.listeners, fn)
}

// Snapshot returns the current snapshot.
func (s *Store) Snapshot() *Snapshot {
	return s.current.Load()
}

// Devices returns the current capability table.
func (s *Store) Devices() capability.Table {
	return s.Snapshot().Devices
}

// Countries returns the current country list.
func (s *Store) Countries() []Country {
	return s.Snapshot().Countries
}

// Units returns the current unit registry.
func (s *Store) Units() *units.Registry {
	return s.Snapshot().Units
}

type loadedDocument struct {
	data   []byte
	source string
}

// Load reads every document, fetching the ones with no local copy, or all of
// them when force is set. On error the current snapshot is kept.
func (s *Store) Load(ctx context.Context, force bool) error {
	s.loadMu.Lock()
	defer s.loadMu.Unlock()

	docs := make(map[string]loadedDocument, len(Documents()))
	for _, name := range Documents() {
		doc, err := s.read(ctx, name, force)
		if err != nil {
			return err
		}
		docs[name] = doc
	}

	snap, err := decodeSnapshot(docs)
	if err != nil {
		return err
	}
	for _, u := range snap.Units.Unconverted() {
		s.logger.Warn("unit conversion not supported, readings keep native unit",
			"unit", u.Unit, "conversion_unit", u.ConversionUnit)
	}

	for _, name := range Documents() {
		doc := docs[name]
		if doc.source != SourceRemote {
			continue
		}
		if err := s.repo.Save(ctx, name, doc.data); err != nil {
			return fmt.Errorf("saving %s: %w", name, err)
		}
	}

	s.current.Store(snap)
	s.logger.Info("catalog loaded",
		"categories", len(snap.Devices),
		"countries", len(snap.Countries),
		"device_classes", len(snap.Units.DeviceClasses()),
		"forced", force,
	)

	s.listenersMu.RLock()
	listeners := append([]func(*Snapshot){}, s.listeners...)
	s.listenersMu.RUnlock()
	for _, fn := range listeners {
		fn(snap)
	}

	return nil
}

func (s *Store) read(ctx context.Context, name string, force bool) (loadedDocument, error) {
	if !force {
		data, err := s.repo.Load(ctx, name)
		switch {
		case err == nil:
			s.logger.Debug("catalog document loaded from local copy", "document", name)
			return loadedDocument{data: data, source: SourceLocal}, nil
		case !errors.Is(err, ErrDocumentNotFound):
			return loadedDocument{}, fmt.Errorf("loading %s: %w", name, err)
		}
	}

	if s.fetcher == nil {
		return loadedDocument{}, fmt.Errorf("%w: %s: no remote source configured", ErrFetchFailed, name)
	}

	data, err := s.fetcher.Fetch(ctx, name)
	if err != nil {
		return loadedDocument{}, err
	}
	s.logger.Info("catalog document fetched", "document", name, "bytes", len(data))
	return loadedDocument{data: data, source: SourceRemote}, nil
}

func decodeSnapshot(docs map[string]loadedDocument) (*Snapshot, error) {
	table, err := capability.ParseTable(docs[DocumentDevices].data)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrInvalidDocument, DocumentDevices, err)
	}

	var countries []Country
	if err := json.Unmarshal(docs[DocumentCountries].data, &countries); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrInvalidDocument, DocumentCountries, err)
	}

	unitDocs, err := units.ParseDocuments(docs[DocumentUnits].data)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrInvalidDocument, DocumentUnits, err)
	}
	registry := units.FromDocuments(unitDocs)

	sources := make(map[string]string, len(docs))
	for name, doc := range docs {
		sources[name] = doc.source
	}

	return &Snapshot{
		Devices:   table,
		Countries: countries,
		Units:     registry,
		LoadedAt:  time.Now().UTC(),
		Sources:   sources,
	}, nil
}

// CountryByCode returns the country with the given dialling code.
func (s *Snapshot) CountryByCode(code string) (Country, bool) {
	for _, c := range s.Countries {
		if c.CountryCode == code {
			return c, true
		}
	}
	return Country{}, false
}
