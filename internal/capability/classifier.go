package capability

import (
	"fmt"
	"strings"

	"github.com/nerrad567/tuya-ce-core/internal/tuya"
)

// DomainUnknown is the target domain for type keys with no mapping.
const DomainUnknown = "unknown"

// Logger defines the logging interface used by the Classifier.
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

// Rules drive classification.
type Rules struct {
	// TypeMapping maps "ro_<type>" / "rw_<type>" to a target domain.
	TypeMapping map[string]string

	// SpecialMapping renames function codes to status codes per category, for
	// devices that report no status at all.
	SpecialMapping map[string]map[string]string
}

// DefaultRules returns the built-in mapping tables.
func DefaultRules() Rules {
	return Rules{
		TypeMapping: map[string]string{
			"ro_boolean": "binary_sensor",
			"rw_boolean": "switch",
			"ro_integer": "sensor",
			"rw_integer": "number",
			"ro_string":  "sensor",
			"rw_string":  "select",
			"ro_enum":    "sensor",
			"rw_enum":    "select",
			"ro_json":    "sensor",
			"rw_json":    "select",
		},
		SpecialMapping: map[string]map[string]string{
			tuya.CategoryInfraredAC: {
				"F": "wind",
				"M": "mode",
				"T": "temp",
			},
		},
	}
}

// DataPointClassification is the result of classifying a single data point.
type DataPointClassification struct {
	Code         string `json:"code"`
	IsReadOnly   bool   `json:"is_read_only"`
	DeclaredType string `json:"declared_type"`
	TargetDomain string `json:"target_domain"`
}

// DomainCapabilities maps a data point code to its normalised spec.
type DomainCapabilities map[string]tuya.DataPointSpec

// Classification maps a target domain to the data points classified into it.
type Classification map[string]DomainCapabilities

// Classified maps a category to the merged classification of its devices.
type Classified map[string]Classification

// DeviceFailure records a device that could not be classified.
type DeviceFailure struct {
	DeviceID string `json:"device_id"`
	Category string `json:"category"`
	Error    string `json:"error"`
}

// Batch is the outcome of classifying a set of devices. A malformed device
// ends up in Failures and does not affect the others.
type Batch struct {
	Classified  Classified             `json:"classified"`
	Unsupported map[string][]tuya.Info `json:"unsupported_devices"`
	Failures    []DeviceFailure        `json:"failures"`
}

// Classifier maps device data points onto Home Assistant domains.
// It holds no mutable state and is safe for concurrent use.
type Classifier struct {
	rules  Rules
	logger Logger
}

// NewClassifier creates a classifier. A nil logger discards output.
func NewClassifier(rules Rules, logger Logger) *Classifier {
	if logger == nil {
		logger = noopLogger{}
	}
	return &Classifier{rules: rules, logger: logger}
}

// TypeKey builds the lookup key for a data point, e.g. "rw_boolean".
func TypeKey(readOnly bool, declaredType string) string {
	prefix := "rw"
	if readOnly {
		prefix = "ro"
	}
	return prefix + "_" + strings.ToLower(declaredType)
}

// ClassifyDataPoint classifies one status code of device. It reports false
// when the code has no status_range entry.
func (c *Classifier) ClassifyDataPoint(device *tuya.DeviceDescriptor, code string) (DataPointClassification, bool) {
	if !device.HasStatusRange(code) {
		return DataPointClassification{}, false
	}

	readOnly := !device.HasFunction(code)
	spec, _ := device.Spec(code)
	declared, _ := spec.Type()

	domain, ok := c.rules.TypeMapping[TypeKey(readOnly, declared)]
	if !ok {
		domain = DomainUnknown
	}

	return DataPointClassification{
		Code:         code,
		IsReadOnly:   readOnly,
		DeclaredType: declared,
		TargetDomain: domain,
	}, true
}

// ClassifyDevice classifies every status code of a device. The descriptor is
// not modified.
func (c *Classifier) ClassifyDevice(device *tuya.DeviceDescriptor) (Classification, error) {
	if device == nil {
		return nil, fmt.Errorf("%w: nil descriptor", ErrMalformedDevice)
	}
	if device.Category == "" {
		return nil, fmt.Errorf("%w: %s: missing category", ErrMalformedDevice, device.ID)
	}

	d := device.DeepCopy()
	if d.Function == nil {
		d.Function = map[string]tuya.DataPointSpec{}
	}
	if d.StatusRange == nil {
		d.StatusRange = map[string]tuya.DataPointSpec{}
	}
	if d.Status == nil {
		d.Status = map[string]any{}
	}

	if len(d.Status) == 0 {
		c.applySpecialMapping(d)
	}

	result := Classification{}
	for _, code := range tuya.SortedKeys(d.Status) {
		dp, ok := c.ClassifyDataPoint(d, code)
		if !ok {
			c.logger.Info("data point not supported", "category", d.Category, "code", code)
			continue
		}

		spec, _ := d.Spec(code)
		if len(spec) == 0 {
			return nil, fmt.Errorf("%w: %s.%s: no usable spec", ErrMalformedDevice, d.Category, code)
		}
		declared, ok := spec.Type()
		if !ok {
			return nil, fmt.Errorf("%w: %s.%s: spec has no string type", ErrMalformedDevice, d.Category, code)
		}

		data := spec.Clone()
		data["type"] = tuya.CapitalizeType(declared)
		if dropValue(data["value"]) {
			delete(data, "value")
		}

		caps, ok := result[dp.TargetDomain]
		if !ok {
			caps = DomainCapabilities{}
			result[dp.TargetDomain] = caps
		}
		caps[code] = data
	}

	return result, nil
}

func (c *Classifier) applySpecialMapping(d *tuya.DeviceDescriptor) {
	mapping, ok := c.rules.SpecialMapping[d.Category]
	if !ok {
		return
	}

	for _, fn := range tuya.SortedKeys(d.Function) {
		key := fn
		if mapped, ok := mapping[fn]; ok {
			key = mapped
		}
		if len(d.StatusRange[key]) == 0 {
			d.StatusRange[key] = d.Function[fn].Clone()
		}
		d.Status[key] = ""
	}
}

// dropValue reports whether a spec's "value" carries nothing worth keeping.
func dropValue(v any) bool {
	switch t := v.(type) {
	case string:
		return true
	case map[string]any:
		return len(t) == 0
	default:
		return false
	}
}

// Classify classifies a batch of devices and merges the result per category.
// Within a category a later device overwrites an earlier one's spec for the
// same code.
func (c *Classifier) Classify(devices []*tuya.DeviceDescriptor) *Batch {
	batch := &Batch{
		Classified:  Classified{},
		Unsupported: map[string][]tuya.Info{},
		Failures:    []DeviceFailure{},
	}

	for i, device := range devices {
		if device == nil {
			batch.Failures = append(batch.Failures, DeviceFailure{
				DeviceID: fmt.Sprintf("#%d", i),
				Error:    fmt.Sprintf("%v: nil descriptor", ErrMalformedDevice),
			})
			continue
		}

		if device.IsEmpty() {
			c.logger.Debug("category not supported", "category", device.Category, "device_id", device.ID)
			batch.Unsupported[device.Category] = append(batch.Unsupported[device.Category], device.Info())
			continue
		}

		cls, err := c.ClassifyDevice(device)
		if err != nil {
			c.logger.Warn("device classification failed", "device_id", device.ID, "error", err)
			batch.Failures = append(batch.Failures, DeviceFailure{
				DeviceID: device.ID,
				Category: device.Category,
				Error:    err.Error(),
			})
			continue
		}
		if len(cls) == 0 {
			continue
		}

		merged, ok := batch.Classified[device.Category]
		if !ok {
			merged = Classification{}
			batch.Classified[device.Category] = merged
		}
		for domain, caps := range cls {
			dst, ok := merged[domain]
			if !ok {
				dst = DomainCapabilities{}
				merged[domain] = dst
			}
			for code, spec := range caps {
				dst[code] = spec
			}
		}
	}

	return batch
}
