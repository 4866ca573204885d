package gapanalysis

import (
	"time"

	"github.com/google/uuid"

	"github.com/nerrad567/tuya-ce-core/internal/capability"
	"github.com/nerrad567/tuya-ce-core/internal/platform"
	"github.com/nerrad567/tuya-ce-core/internal/tuya"
)

// Logger defines the logging interface used by the Analyzer.
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

// matchesField is the spec field MatchComponents writes.
const matchesField = "matches"

// Gaps maps category -> domain -> code -> spec for everything the table lacks.
type Gaps = capability.Classified

// Report is the result of one analysis run.
type Report struct {
	ID                 string                     `json:"id"`
	CreatedAt          time.Time                  `json:"created_at"`
	Source             string                     `json:"source,omitempty"`
	DeviceCount        int                        `json:"device_count"`
	Gaps               Gaps                       `json:"gaps"`
	UnsupportedDevices map[string][]tuya.Info     `json:"unsupported_devices"`
	Failures           []capability.DeviceFailure `json:"failures"`
}

// GapCount returns the number of gap codes in the report.
func (r *Report) GapCount() int {
	n := 0
	for _, domains := range r.Gaps {
		for _, codes := range domains {
			n += len(codes)
		}
	}
	return n
}

// Options configure an Analyzer.
type Options struct {
	// MatchComponents annotates each gap with table capabilities sharing its key.
	MatchComponents bool

	// Aliases overrides the default alias table when non-nil.
	Aliases Aliases
}

// Analyzer runs gap analysis. It is safe for concurrent use.
type Analyzer struct {
	classifier      *capability.Classifier
	aliases         Aliases
	matchComponents bool
	logger          Logger
	now             func() time.Time
}

// NewAnalyzer creates an analyzer around a classifier. A nil logger discards output.
func NewAnalyzer(classifier *capability.Classifier, opts Options, logger Logger) *Analyzer {
	if logger == nil {
		logger = noopLogger{}
	}
	aliases := opts.Aliases
	if aliases == nil {
		aliases = DefaultAliases()
	}
	return &Analyzer{
		classifier:      classifier,
		aliases:         aliases,
		matchComponents: opts.MatchComponents,
		logger:          logger,
		now:             time.Now,
	}
}

// WithMatchComponents returns a copy of the analyzer with component matching
// switched on or off.
func (a *Analyzer) WithMatchComponents(enabled bool) *Analyzer {
	cp := *a
	cp.matchComponents = enabled
	return &cp
}

// Analyze classifies devices and reports what the table is missing.
func (a *Analyzer) Analyze(devices []*tuya.DeviceDescriptor, table capability.Table) *Report {
	batch := a.classifier.Classify(devices)

	gaps := a.FindGaps(batch.Classified, table)
	if a.matchComponents {
		a.MatchComponents(gaps, table)
	}

	report := &Report{
		ID:                 uuid.NewString(),
		CreatedAt:          a.now().UTC(),
		DeviceCount:        len(devices),
		Gaps:               gaps,
		UnsupportedDevices: batch.Unsupported,
		Failures:           batch.Failures,
	}

	a.logger.Info("gap analysis complete",
		"report_id", report.ID,
		"devices", report.DeviceCount,
		"gaps", report.GapCount(),
		"unsupported_categories", len(report.UnsupportedDevices),
		"failures", len(report.Failures),
	)
	return report
}

// AnalyzeDiagnostics analyses a parsed diagnostics dump. Devices that could
// not be decoded are reported as failures next to classification failures.
func (a *Analyzer) AnalyzeDiagnostics(diag *tuya.Diagnostics, table capability.Table, source string) *Report {
	report := a.Analyze(diag.Devices, table)
	report.Source = source
	report.DeviceCount += len(diag.Failures)

	decodeFailures := make([]capability.DeviceFailure, 0, len(diag.Failures)+len(report.Failures))
	for _, f := range diag.Failures {
		decodeFailures = append(decodeFailures, capability.DeviceFailure{DeviceID: f.Ref, Error: f.Err})
	}
	report.Failures = append(decodeFailures, report.Failures...)

	return report
}

// FindGaps diffs classified capabilities against the table. The result
// shares no maps with its inputs.
func (a *Analyzer) FindGaps(classified capability.Classified, table capability.Table) Gaps {
	gaps := Gaps{}

	for _, category := range tuya.SortedKeys(classified) {
		domains := classified[category]

		stored, ok := table[category]
		if !ok {
			a.logger.Debug("gap identified for category", "category", category)
			gaps[category] = cloneClassification(domains)
			continue
		}

		for _, domain := range tuya.SortedKeys(domains) {
			codes := domains[domain]
			satisfying := a.satisfying(stored, domain)

			if len(satisfying) == 0 {
				a.logger.Debug("gap identified for domain", "category", category, "domain", domain)
				addGaps(gaps, category, domain, codes)
				continue
			}

			missing := capability.DomainCapabilities{}
			for code, spec := range codes {
				if !anyHasKey(satisfying, code) {
					missing[code] = spec
				}
			}
			if len(missing) > 0 {
				a.logger.Debug("gap identified for codes", "category", category, "domain", domain, "count", len(missing))
				addGaps(gaps, category, domain, missing)
			}
		}
	}

	return gaps
}

func (a *Analyzer) satisfying(stored capability.CategoryEntry, live string) []capability.DomainEntry {
	var out []capability.DomainEntry
	for _, domain := range tuya.SortedKeys(stored) {
		if a.aliases.Satisfies(domain, live) {
			out = append(out, stored[domain])
		}
	}
	return out
}

func anyHasKey(entries []capability.DomainEntry, key string) bool {
	for _, e := range entries {
		if e.HasKey(key) {
			return true
		}
	}
	return false
}

func addGaps(gaps Gaps, category, domain string, codes capability.DomainCapabilities) {
	domains, ok := gaps[category]
	if !ok {
		domains = capability.Classification{}
		gaps[category] = domains
	}
	domains[domain] = cloneCodes(codes)
}

func cloneClassification(in capability.Classification) capability.Classification {
	out := make(capability.Classification, len(in))
	for domain, codes := range in {
		out[domain] = cloneCodes(codes)
	}
	return out
}

func cloneCodes(in capability.DomainCapabilities) capability.DomainCapabilities {
	out := make(capability.DomainCapabilities, len(in))
	for code, spec := range in {
		out[code] = spec.Clone()
	}
	return out
}

// MatchComponents annotates every gap with a "matches" map of domain to the
// capabilities, from any category, that share the gap's key. Simple
// platforms are skipped. Nothing else in gaps changes.
func (a *Analyzer) MatchComponents(gaps Gaps, table capability.Table) {
	for _, domains := range gaps {
		for _, codes := range domains {
			for code, spec := range codes {
				spec[matchesField] = a.components(code, table)
			}
		}
	}
}

func (a *Analyzer) components(key string, table capability.Table) map[string][]capability.Capability {
	matches := map[string][]capability.Capability{}

	for _, category := range table.Categories() {
		entries := table[category]
		for _, domain := range tuya.SortedKeys(entries) {
			entry := entries[domain]
			if p, ok := platform.Parse(domain); entry.Simple || (ok && p.Simple()) {
				continue
			}
			for _, item := range entry.Capabilities {
				if item.Key() == key {
					matches[domain] = append(matches[domain], item.Clone())
				}
			}
		}
	}

	return matches
}
