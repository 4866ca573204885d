package units

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/nerrad567/tuya-ce-core/internal/tuya"
)

var (
	// ErrUnknownConversion is returned when a unit declares a conversion
	// target that has no known conversion function.
	ErrUnknownConversion = errors.New("units: unknown conversion")

	// ErrInvalidDocument is returned when the units document cannot be decoded.
	ErrInvalidDocument = errors.New("units: invalid document")
)

// ConversionFunc converts a reading from a unit to its conversion unit.
type ConversionFunc func(float64) float64

// UnitOfMeasurement is one canonical unit with its aliases.
type UnitOfMeasurement struct {
	Unit           string
	Aliases        []string
	DeviceClasses  []string
	ConversionUnit string
	Convert        ConversionFunc
}

func divideBy1000(v float64) float64   { return v / 1000 }
func multiplyBy1000(v float64) float64 { return v * 1000 }

// conversions maps "unit_conversionunit" to its conversion function.
var conversions = map[string]ConversionFunc{
	"ppb_ppm":     divideBy1000,
	"mA_A":        divideBy1000,
	"mg/m³_µg/m³": multiplyBy1000,
	"mV_V":        divideBy1000,
	"g_kg":        divideBy1000,
}

// ConversionFor returns the conversion from unit to conversionUnit. An empty
// conversionUnit means no conversion and returns nil.
func ConversionFor(unit, conversionUnit string) (ConversionFunc, error) {
	if conversionUnit == "" {
		return nil, nil
	}
	fn, ok := conversions[unit+"_"+conversionUnit]
	if !ok {
		return nil, fmt.Errorf("%w: %s to %s", ErrUnknownConversion, unit, conversionUnit)
	}
	return fn, nil
}

// Registry indexes units per device class. Lookups never mutate it.
type Registry struct {
	units []UnitOfMeasurement
	index map[string]map[string]int
}

// New builds a registry. Later units win when two claim the same alias for a
// device class.
func New(units []UnitOfMeasurement) *Registry {
	r := &Registry{
		units: make([]UnitOfMeasurement, len(units)),
		index: make(map[string]map[string]int),
	}

	for i, u := range units {
		u.Aliases = slices.Clone(u.Aliases)
		u.DeviceClasses = slices.Clone(u.DeviceClasses)
		r.units[i] = u

		for _, dc := range u.DeviceClasses {
			byUnit, ok := r.index[dc]
			if !ok {
				byUnit = make(map[string]int)
				r.index[dc] = byUnit
			}
			byUnit[u.Unit] = i
			for _, alias := range u.Aliases {
				byUnit[alias] = i
			}
		}
	}

	return r
}

// Lookup finds the unit for a device class, trying the exact spelling first
// and the lowercase form second.
func (r *Registry) Lookup(deviceClass, unit string) (UnitOfMeasurement, bool) {
	byUnit, ok := r.index[deviceClass]
	if !ok {
		return UnitOfMeasurement{}, false
	}
	if i, ok := byUnit[unit]; ok {
		return r.units[i], true
	}
	if i, ok := byUnit[strings.ToLower(unit)]; ok {
		return r.units[i], true
	}
	return UnitOfMeasurement{}, false
}

// Resolution is the normalised form of a reading's metadata.
type Resolution struct {
	DeviceClass string
	Unit        string
	Convert     ConversionFunc
}

// Value applies the conversion to a reading.
func (r Resolution) Value(v float64) float64 {
	if r.Convert == nil {
		return v
	}
	return r.Convert(v)
}

// integrationClassPrefix marks device classes owned by the integration
// itself; those are never normalised.
const integrationClassPrefix = "tuya."

// Resolve normalises a device class and native unit. On a miss the device
// class is cleared and the native unit kept. On a hit the unit becomes the
// conversion unit when the unit converts to one, otherwise the canonical unit.
func (r *Registry) Resolve(deviceClass, nativeUnit string) Resolution {
	if deviceClass == "" || strings.HasPrefix(deviceClass, integrationClassPrefix) {
		return Resolution{DeviceClass: deviceClass, Unit: nativeUnit}
	}

	u, ok := r.Lookup(deviceClass, nativeUnit)
	if !ok {
		return Resolution{Unit: nativeUnit}
	}

	res := Resolution{DeviceClass: deviceClass, Unit: u.Unit}
	if u.ConversionUnit != "" && u.Convert != nil {
		res.Unit = u.ConversionUnit
		res.Convert = u.Convert
	}
	return res
}

// Unconverted returns the units that declare a conversion unit with no known
// conversion function.
func (r *Registry) Unconverted() []UnitOfMeasurement {
	var out []UnitOfMeasurement
	for _, u := range r.units {
		if u.ConversionUnit != "" && u.Convert == nil {
			out = append(out, u)
		}
	}
	return out
}

// DeviceClasses returns the indexed device classes in lexical order.
func (r *Registry) DeviceClasses() []string {
	return tuya.SortedKeys(r.index)
}

// Units returns a copy of the registered units.
func (r *Registry) Units() []UnitOfMeasurement {
	out := make([]UnitOfMeasurement, len(r.units))
	for i, u := range r.units {
		u.Aliases = slices.Clone(u.Aliases)
		u.DeviceClasses = slices.Clone(u.DeviceClasses)
		out[i] = u
	}
	return out
}
