package tuya

import (
	"maps"
	"slices"
	"strings"
	"unicode"
	"unicode/utf8"
)

// DataPointSpec is the declared specification of one data point, as found in a
// device's function or status_range map: {"type": "Integer", "values": "{...}"}.
// Tuya sends "values" as a JSON-encoded string; diagnostic dumps carry a
// decoded "value" object instead.
type DataPointSpec map[string]any

// Type returns the declared type ("Boolean", "Integer", "Enum", ...) and
// whether the spec carries a string type at all.
func (s DataPointSpec) Type() (string, bool) {
	t, ok := s["type"].(string)
	return t, ok
}

// Clone returns a deep copy of the spec.
func (s DataPointSpec) Clone() DataPointSpec {
	if s == nil {
		return nil
	}
	return DataPointSpec(cloneMap(s))
}

// DeviceDescriptor is a device's live snapshot.
type DeviceDescriptor struct {
	ID          string                   `json:"id"`
	Name        string                   `json:"name"`
	Model       string                   `json:"model"`
	ProductName string                   `json:"product_name"`
	Category    string                   `json:"category"`
	Function    map[string]DataPointSpec `json:"function"`
	StatusRange map[string]DataPointSpec `json:"status_range"`
	Status      map[string]any           `json:"status"`
}

// DeepCopy returns a copy sharing no maps with d.
func (d *DeviceDescriptor) DeepCopy() *DeviceDescriptor {
	if d == nil {
		return nil
	}
	cp := *d
	cp.Function = cloneSpecs(d.Function)
	cp.StatusRange = cloneSpecs(d.StatusRange)
	if d.Status != nil {
		cp.Status = cloneMap(d.Status)
	}
	return &cp
}

// IsEmpty reports whether the device exposes no data points at all.
// Such devices belong to categories the integration cannot drive.
func (d *DeviceDescriptor) IsEmpty() bool {
	return len(d.Function) == 0 && len(d.StatusRange) == 0 && len(d.Status) == 0
}

// HasStatus reports whether code is present in the status map.
func (d *DeviceDescriptor) HasStatus(code string) bool {
	_, ok := d.Status[code]
	return ok
}

// HasFunction reports whether code is writable.
func (d *DeviceDescriptor) HasFunction(code string) bool {
	_, ok := d.Function[code]
	return ok
}

// HasStatusRange reports whether code has a read specification.
func (d *DeviceDescriptor) HasStatusRange(code string) bool {
	_, ok := d.StatusRange[code]
	return ok
}

// Spec returns the status_range spec for code, falling back to the function spec.
func (d *DeviceDescriptor) Spec(code string) (DataPointSpec, bool) {
	if s, ok := d.StatusRange[code]; ok && len(s) > 0 {
		return s, true
	}
	s, ok := d.Function[code]
	return s, ok
}

// Info is the identifying subset of a descriptor.
type Info struct {
	Name        string `json:"name"`
	Model       string `json:"model"`
	ProductName string `json:"product_name"`
}

// Info returns the name, model and product name of the device.
func (d *DeviceDescriptor) Info() Info {
	return Info{Name: d.Name, Model: d.Model, ProductName: d.ProductName}
}

// CapitalizeType normalises a declared type the way the capability table
// stores it: first letter upper, rest lower ("bOOLEAN" becomes "Boolean").
func CapitalizeType(t string) string {
	if t == "" {
		return t
	}
	lower := strings.ToLower(t)
	first, size := utf8.DecodeRuneInString(lower)
	return string(unicode.ToUpper(first)) + lower[size:]
}

func cloneSpecs(in map[string]DataPointSpec) map[string]DataPointSpec {
	if in == nil {
		return nil
	}
	out := make(map[string]DataPointSpec, len(in))
	for k, v := range in {
		out[k] = v.Clone()
	}
	return out
}

func cloneMap(in map[string]any) map[string]any {
	out := make(map[string]any, len(in))
	for k, v := range in {
		out[k] = CloneValue(v)
	}
	return out
}

// CloneValue deep-copies a decoded JSON value.
func CloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return cloneMap(t)
	case DataPointSpec:
		return t.Clone()
	case []any:
		out := make([]any, len(t))
		for i, item := range t {
			out[i] = CloneValue(item)
		}
		return out
	case []string:
		return append([]string(nil), t...)
	default:
		return v
	}
}

// SortedKeys returns the keys of m in lexical order.
func SortedKeys[V any](m map[string]V) []string {
	return slices.Sorted(maps.Keys(m))
}
