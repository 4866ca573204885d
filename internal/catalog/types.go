package catalog

import (
	"time"

	"github.com/nerrad567/tuya-ce-core/internal/capability"
	"github.com/nerrad567/tuya-ce-core/internal/units"
)

// Document names.
const (
	DocumentDevices   = "devices"
	DocumentCountries = "countries"
	DocumentUnits     = "units"
)

// Documents returns the document names in load order.
func Documents() []string {
	return []string{DocumentDevices, DocumentCountries, DocumentUnits}
}

// Document sources recorded on a snapshot.
const (
	SourceLocal  = "local"
	SourceRemote = "remote"
)

// Country is a Tuya cloud region.
type Country struct {
	Name        string `json:"name"`
	CountryCode string `json:"country_code"`
	Endpoint    string `json:"endpoint"`
}

// Snapshot is one loaded catalog. It is never modified after publication.
type Snapshot struct {
	Devices   capability.Table
	Countries []Country
	Units     *units.Registry
	LoadedAt  time.Time
	Sources   map[string]string
}

// Loaded reports whether the snapshot came from a successful load.
func (s *Snapshot) Loaded() bool {
	return !s.LoadedAt.IsZero()
}

func emptySnapshot() *Snapshot {
	return &Snapshot{
		Devices: capability.Table{},
		Units:   units.Default(),
		Sources: map[string]string{},
	}
}
