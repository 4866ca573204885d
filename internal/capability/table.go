package capability

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/nerrad567/tuya-ce-core/internal/tuya"
)

// Capability is one record of the table: a key plus the fields of the
// platform it belongs to.
type Capability map[string]any

// Key returns the data point code the capability describes.
func (c Capability) Key() string {
	k, _ := c["key"].(string)
	return k
}

// Has reports whether field is present, including an explicit null.
func (c Capability) Has(field string) bool {
	_, ok := c[field]
	return ok
}

// String returns a string field.
func (c Capability) String(field string) (string, bool) {
	s, ok := c[field].(string)
	return s, ok
}

// Clone returns a deep copy of the capability.
func (c Capability) Clone() Capability {
	if c == nil {
		return nil
	}
	out := make(Capability, len(c))
	for k, v := range c {
		out[k] = tuya.CloneValue(v)
	}
	return out
}

// DomainEntry is the table value for one category/domain pair. Simple
// platforms store a boolean; everything else a list of capabilities.
type DomainEntry struct {
	Simple       bool
	Enabled      bool
	Capabilities []Capability
}

// SimpleEntry returns the entry stored for a simple platform.
func SimpleEntry(enabled bool) DomainEntry {
	return DomainEntry{Simple: true, Enabled: enabled}
}

// Find returns the capability with the given key.
func (e DomainEntry) Find(key string) (Capability, bool) {
	for _, c := range e.Capabilities {
		if c.Key() == key {
			return c, true
		}
	}
	return nil, false
}

// HasKey reports whether a capability with key exists.
func (e DomainEntry) HasKey(key string) bool {
	_, ok := e.Find(key)
	return ok
}

// Clone returns a deep copy of the entry.
func (e DomainEntry) Clone() DomainEntry {
	out := DomainEntry{Simple: e.Simple, Enabled: e.Enabled}
	if e.Capabilities != nil {
		out.Capabilities = make([]Capability, len(e.Capabilities))
		for i, c := range e.Capabilities {
			out.Capabilities[i] = c.Clone()
		}
	}
	return out
}

// UnmarshalJSON accepts a boolean, a list of capability objects, a single
// capability object or null.
func (e *DomainEntry) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return fmt.Errorf("%w: empty domain entry", ErrInvalidTable)
	}

	switch data[0] {
	case 't', 'f':
		var b bool
		if err := json.Unmarshal(data, &b); err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidTable, err)
		}
		*e = SimpleEntry(b)
	case '[':
		var caps []Capability
		if err := json.Unmarshal(data, &caps); err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidTable, err)
		}
		*e = DomainEntry{Capabilities: caps}
	case '{':
		var c Capability
		if err := json.Unmarshal(data, &c); err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidTable, err)
		}
		*e = DomainEntry{Capabilities: []Capability{c}}
	case 'n':
		*e = DomainEntry{}
	default:
		return fmt.Errorf("%w: unexpected domain entry %.20s", ErrInvalidTable, data)
	}
	return nil
}

// MarshalJSON writes simple entries back as a boolean.
func (e DomainEntry) MarshalJSON() ([]byte, error) {
	if e.Simple {
		return json.Marshal(e.Enabled)
	}
	if e.Capabilities == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(e.Capabilities)
}

// CategoryEntry maps a domain to its entry for one category.
type CategoryEntry map[string]DomainEntry

// Table maps a category to its domains. A loaded table is never mutated;
// refreshes replace it wholesale.
type Table map[string]CategoryEntry

// ParseTable decodes the devices document. Both the bare table and the
// {"devices": {...}} wrapper are accepted.
func ParseTable(data []byte) (Table, error) {
	var wrapper struct {
		Devices json.RawMessage `json:"devices"`
	}
	if err := json.Unmarshal(data, &wrapper); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidTable, err)
	}
	if t := bytes.TrimSpace(wrapper.Devices); len(t) > 0 && t[0] == '{' {
		data = wrapper.Devices
	}

	var table Table
	if err := json.Unmarshal(data, &table); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidTable, err)
	}
	if table == nil {
		table = Table{}
	}
	return table, nil
}

// Category returns the entry for a category.
func (t Table) Category(category string) (CategoryEntry, bool) {
	c, ok := t[category]
	return c, ok
}

// Categories returns the category codes in lexical order.
func (t Table) Categories() []string {
	return tuya.SortedKeys(t)
}

// Clone returns a deep copy of the table.
func (t Table) Clone() Table {
	if t == nil {
		return nil
	}
	out := make(Table, len(t))
	for category, domains := range t {
		cp := make(CategoryEntry, len(domains))
		for domain, entry := range domains {
			cp[domain] = entry.Clone()
		}
		out[category] = cp
	}
	return out
}
