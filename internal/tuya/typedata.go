package tuya

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"slices"
)

// ErrInvalidSpec is returned when a data point spec cannot be read as the requested type.
var ErrInvalidSpec = errors.New("tuya: invalid data point spec")

// Values returns the decoded value-range object of a spec. Tuya's "values"
// JSON string wins over an already decoded "value" object.
func (s DataPointSpec) Values() (map[string]any, error) {
	if raw, ok := s["values"].(string); ok && raw != "" {
		var out map[string]any
		if err := json.Unmarshal([]byte(raw), &out); err != nil {
			return nil, fmt.Errorf("%w: values: %w", ErrInvalidSpec, err)
		}
		return out, nil
	}
	if m, ok := s["value"].(map[string]any); ok {
		return m, nil
	}
	return map[string]any{}, nil
}

// IntegerTypeData is the numeric range of an Integer data point.
type IntegerTypeData struct {
	DPCode string
	Min    float64
	Max    float64
	Scale  float64
	Step   float64
	Unit   string
}

// ParseIntegerTypeData reads min/max/scale/step/unit from an Integer spec.
func ParseIntegerTypeData(code string, spec DataPointSpec) (IntegerTypeData, error) {
	values, err := spec.Values()
	if err != nil {
		return IntegerTypeData{}, err
	}

	d := IntegerTypeData{DPCode: code}
	var ok bool
	if d.Min, ok = number(values["min"]); !ok {
		return IntegerTypeData{}, fmt.Errorf("%w: %s: missing min", ErrInvalidSpec, code)
	}
	if d.Max, ok = number(values["max"]); !ok {
		return IntegerTypeData{}, fmt.Errorf("%w: %s: missing max", ErrInvalidSpec, code)
	}
	d.Scale, _ = number(values["scale"])
	d.Step, _ = number(values["step"])
	d.Unit, _ = values["unit"].(string)

	return d, nil
}

// ScaleValue converts a raw device integer into its real value.
func (d IntegerTypeData) ScaleValue(v float64) float64 {
	return v / math.Pow(10, d.Scale)
}

// ScaleValueBack converts a real value into the raw integer the device expects.
func (d IntegerTypeData) ScaleValueBack(v float64) int {
	return int(v * math.Pow(10, d.Scale))
}

// MinScaled is the scaled lower bound.
func (d IntegerTypeData) MinScaled() float64 { return d.ScaleValue(d.Min) }

// MaxScaled is the scaled upper bound.
func (d IntegerTypeData) MaxScaled() float64 { return d.ScaleValue(d.Max) }

// StepScaled is the scaled step.
func (d IntegerTypeData) StepScaled() float64 { return d.ScaleValue(d.Step) }

// RemapValueTo maps a device value in [Min, Max] onto [toMin, toMax].
func (d IntegerTypeData) RemapValueTo(v, toMin, toMax float64, reverse bool) float64 {
	return RemapValue(v, d.Min, d.Max, toMin, toMax, reverse)
}

// RemapValueFrom maps a value in [fromMin, fromMax] onto the device's [Min, Max].
func (d IntegerTypeData) RemapValueFrom(v, fromMin, fromMax float64, reverse bool) float64 {
	return RemapValue(v, fromMin, fromMax, d.Min, d.Max, reverse)
}

// RemapValue linearly maps value from one range to another. With reverse set
// the source range is flipped first.
func RemapValue(value, fromMin, fromMax, toMin, toMax float64, reverse bool) float64 {
	if reverse {
		value = fromMax - value + fromMin
	}
	if fromMax == fromMin {
		return toMin
	}
	return (value-fromMin)/(fromMax-fromMin)*(toMax-toMin) + toMin
}

// EnumTypeData is the option list of an Enum data point.
type EnumTypeData struct {
	DPCode string
	Range  []string
}

// ParseEnumTypeData reads the range list from an Enum spec.
func ParseEnumTypeData(code string, spec DataPointSpec) (EnumTypeData, error) {
	values, err := spec.Values()
	if err != nil {
		return EnumTypeData{}, err
	}
	raw, ok := values["range"].([]any)
	if !ok {
		return EnumTypeData{}, fmt.Errorf("%w: %s: missing range", ErrInvalidSpec, code)
	}

	d := EnumTypeData{DPCode: code, Range: make([]string, 0, len(raw))}
	for _, item := range raw {
		s, ok := item.(string)
		if !ok {
			return EnumTypeData{}, fmt.Errorf("%w: %s: non-string range entry", ErrInvalidSpec, code)
		}
		d.Range = append(d.Range, s)
	}
	return d, nil
}

// Contains reports whether option is one of the enum values.
func (d EnumTypeData) Contains(option string) bool {
	return slices.Contains(d.Range, option)
}

// number reads a decoded JSON number, tolerating numeric strings.
func number(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	case string:
		var f float64
		if _, err := fmt.Sscan(n, &f); err != nil {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}

// Number is the exported form of number for status values.
func Number(v any) (float64, bool) {
	if _, isBool := v.(bool); isBool {
		return 0, false
	}
	return number(v)
}
