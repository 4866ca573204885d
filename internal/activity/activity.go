package activity

import (
	"context"
	"time"
)

// Actions recorded in the trail.
const (
	ActionCatalogRefresh   = "catalog_refresh"
	ActionAnalysis         = "analysis"
	ActionDeviceRegistered = "device_registered"
	ActionDeviceRemoved    = "device_removed"
)

// Subjects an entry can be about.
const (
	SubjectCatalog = "catalog"
	SubjectReport  = "report"
	SubjectDevice  = "device"
)

// Sources an entry can come from.
const (
	SourceAPI    = "api"
	SourceMQTT   = "mqtt"
	SourceCLI    = "cli"
	SourceBridge = "bridge"
)

// Entry is one recorded event.
type Entry struct {
	ID        string         `json:"id"`
	Action    string         `json:"action"`
	Subject   string         `json:"subject"`
	SubjectID string         `json:"subject_id,omitempty"`
	Actor     string         `json:"actor,omitempty"`
	Source    string         `json:"source"`
	Details   map[string]any `json:"details,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}

// CatalogRefresh describes the outcome of a catalog refresh.
func CatalogRefresh(source, actor string, categories, countries int, err error) Entry {
	details := map[string]any{"success": err == nil}
	if err != nil {
		details["error"] = err.Error()
	} else {
		details["categories"] = categories
		details["countries"] = countries
	}
	return Entry{
		Action:  ActionCatalogRefresh,
		Subject: SubjectCatalog,
		Actor:   actor,
		Source:  source,
		Details: details,
	}
}

// Filter controls which entries List returns.
type Filter struct {
	Action    string // optional: exact action
	Subject   string // optional: exact subject
	SubjectID string // optional: exact subject id
	Limit     int    // default 50, max 200
	Offset    int
}

// Page is one page of entries, newest first.
type Page struct {
	Entries []Entry `json:"entries"`
	Total   int     `json:"total"`
	Limit   int     `json:"limit"`
	Offset  int     `json:"offset"`
}

// Repository stores entries.
type Repository interface {
	Create(ctx context.Context, entry *Entry) error
	List(ctx context.Context, filter Filter) (*Page, error)
}

// Logger defines the logging interface used by the Recorder.
type Logger interface {
	Warn(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Warn(string, ...any) {}

// Recorder writes entries on behalf of other components. A nil *Recorder
// records nothing, so callers need no guard when the trail is disabled.
type Recorder struct {
	repo   Repository
	logger Logger
}

// NewRecorder creates a recorder. A nil logger discards output.
func NewRecorder(repo Repository, logger Logger) *Recorder {
	if logger == nil {
		logger = noopLogger{}
	}
	return &Recorder{repo: repo, logger: logger}
}

// Record stores entry. Failures are logged, never returned.
func (r *Recorder) Record(ctx context.Context, entry Entry) {
	if r == nil || r.repo == nil {
		return
	}
	if err := r.repo.Create(ctx, &entry); err != nil {
		r.logger.Warn("recording activity failed", "action", entry.Action, "subject_id", entry.SubjectID, "error", err)
	}
}

// List returns a page of entries. A nil recorder returns an empty page.
func (r *Recorder) List(ctx context.Context, filter Filter) (*Page, error) {
	if r == nil || r.repo == nil {
		filter = clamp(filter)
		return &Page{Entries: []Entry{}, Limit: filter.Limit, Offset: filter.Offset}, nil
	}
	return r.repo.List(ctx, filter)
}

const (
	defaultLimit = 50
	maxLimit     = 200
)

func clamp(f Filter) Filter {
	if f.Limit <= 0 {
		f.Limit = defaultLimit
	}
	if f.Limit > maxLimit {
		f.Limit = maxLimit
	}
	if f.Offset < 0 {
		f.Offset = 0
	}
	return f
}
