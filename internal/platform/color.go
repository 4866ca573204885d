package platform

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"

	"github.com/nerrad567/tuya-ce-core/internal/tuya"
)

// ErrInvalidColorData is returned when a colour data point cannot be decoded.
var ErrInvalidColorData = errors.New("platform: invalid colour data")

// ColorType names the HSV encoding a light uses.
type ColorType string

// Known colour encodings.
const (
	ColorTypeV1 ColorType = "v1"
	ColorTypeV2 ColorType = "v2"
)

// ColorTypeData holds the ranges of the H, S and V components.
type ColorTypeData struct {
	H tuya.IntegerTypeData
	S tuya.IntegerTypeData
	V tuya.IntegerTypeData
}

func hsvComponent(maxValue float64) tuya.IntegerTypeData {
	return tuya.IntegerTypeData{DPCode: tuya.DPCodeColourDataHSV, Min: 1, Max: maxValue, Step: 1}
}

var colorTypes = map[ColorType]ColorTypeData{
	ColorTypeV1: {H: hsvComponent(360), S: hsvComponent(255), V: hsvComponent(255)},
	ColorTypeV2: {H: hsvComponent(360), S: hsvComponent(1000), V: hsvComponent(1000)},
}

// ColorTypes returns the component ranges of a colour encoding.
func ColorTypes(t ColorType) (ColorTypeData, bool) {
	d, ok := colorTypes[t]
	return d, ok
}

// ColorData is a decoded colour data point value.
type ColorData struct {
	TypeData ColorTypeData
	H        float64
	S        float64
	V        float64
}

// ParseColorData decodes a colour status value. Tuya sends it as a JSON
// string {"h":..,"s":..,"v":..}; already decoded objects are accepted too.
func ParseColorData(value any, typeData ColorTypeData) (ColorData, error) {
	var raw map[string]any

	switch v := value.(type) {
	case string:
		if v == "" {
			return ColorData{}, fmt.Errorf("%w: empty value", ErrInvalidColorData)
		}
		if err := json.Unmarshal([]byte(v), &raw); err != nil {
			return ColorData{}, fmt.Errorf("%w: %w", ErrInvalidColorData, err)
		}
	case map[string]any:
		raw = v
	default:
		return ColorData{}, fmt.Errorf("%w: unexpected %T", ErrInvalidColorData, value)
	}

	c := ColorData{TypeData: typeData}
	var ok bool
	if c.H, ok = tuya.Number(raw["h"]); !ok {
		return ColorData{}, fmt.Errorf("%w: missing h", ErrInvalidColorData)
	}
	if c.S, ok = tuya.Number(raw["s"]); !ok {
		return ColorData{}, fmt.Errorf("%w: missing s", ErrInvalidColorData)
	}
	if c.V, ok = tuya.Number(raw["v"]); !ok {
		return ColorData{}, fmt.Errorf("%w: missing v", ErrInvalidColorData)
	}
	return c, nil
}

// HS returns the hue (0-360) and saturation (0-100).
func (c ColorData) HS() (hue, saturation float64) {
	return c.TypeData.H.RemapValueTo(c.H, 0, 360, false),
		c.TypeData.S.RemapValueTo(c.S, 0, 100, false)
}

// Brightness returns the value component scaled to 0-255.
func (c ColorData) Brightness() int {
	return int(math.Round(c.TypeData.V.RemapValueTo(c.V, 0, 255, false)))
}
