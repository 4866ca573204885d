package bridge

import (
	"time"

	"github.com/nerrad567/tuya-ce-core/internal/device"
	"github.com/nerrad567/tuya-ce-core/internal/platform"
	"github.com/nerrad567/tuya-ce-core/internal/tuya"
	"github.com/nerrad567/tuya-ce-core/internal/units"
)

// Home Assistant binary payloads.
const (
	PayloadOn  = "ON"
	PayloadOff = "OFF"
)

// State is the normalised value of one data point, as published on the state topic.
type State struct {
	DeviceID    string    `json:"device_id"`
	Code        string    `json:"code"`
	Value       any       `json:"value"`
	Raw         any       `json:"raw"`
	Unit        string    `json:"unit,omitempty"`
	DeviceClass string    `json:"device_class,omitempty"`
	Time        time.Time `json:"time"`

	numeric   float64
	isNumeric bool
}

// Numeric returns the value as a float when it is a number reading.
func (s State) Numeric() (float64, bool) {
	return s.numeric, s.isNumeric
}

// Hints is what entity mapping learnt about a device that affects how its
// values are presented.
type Hints struct {
	Platforms  map[platform.Platform]bool
	Sensors    map[string]*platform.SensorDescription
	ColorTypes map[string]platform.ColorType
}

// HintsFor collects hints from a device's entities.
func HintsFor(entities []platform.Entity) Hints {
	h := Hints{
		Platforms:  make(map[platform.Platform]bool),
		Sensors:    make(map[string]*platform.SensorDescription),
		ColorTypes: make(map[string]platform.ColorType),
	}

	for _, e := range entities {
		h.Platforms[e.Platform] = true

		switch d := e.Description.(type) {
		case *platform.SensorDescription:
			h.Sensors[d.Key] = d
		case *platform.LightDescription:
			for _, code := range d.ColorData {
				h.ColorTypes[code] = d.DefaultColorType
			}
		}
	}
	return h
}

func (h Hints) colorType(code string) (platform.ColorType, bool) {
	if t, ok := h.ColorTypes[code]; ok {
		return t, true
	}
	switch code {
	case tuya.DPCodeColourDataV2:
		return platform.ColorTypeV2, true
	case tuya.DPCodeColourData, tuya.DPCodeColourDataHSV:
		return platform.ColorTypeV1, true
	}
	return "", false
}

// Normalize converts a raw status value into its Home Assistant form.
// Values that cannot be interpreted are passed through unchanged.
func Normalize(reg *units.Registry, dev *tuya.DeviceDescriptor, u device.StatusUpdate, hints Hints) State {
	s := State{
		DeviceID: dev.ID,
		Code:     u.Code,
		Value:    u.Value,
		Raw:      u.Value,
		Time:     u.Time(),
	}

	spec, _ := dev.Spec(u.Code)
	declared, _ := spec.Type()

	switch tuya.CapitalizeType(declared) {
	case tuya.TypeInteger:
		normalizeInteger(&s, reg, spec, hints)
	case tuya.TypeBoolean:
		if b, ok := u.Value.(bool); ok {
			s.Value = onOff(b)
		}
	case tuya.TypeEnum, tuya.TypeString:
		normalizeEnum(&s, hints)
	case tuya.TypeJSON:
		normalizeColor(&s, hints)
	default:
		if n, ok := tuya.Number(u.Value); ok {
			s.numeric, s.isNumeric = n, true
		}
	}

	return s
}

func normalizeInteger(s *State, reg *units.Registry, spec tuya.DataPointSpec, hints Hints) {
	n, ok := tuya.Number(s.Raw)
	if !ok {
		return
	}

	typeData, err := tuya.ParseIntegerTypeData(s.Code, spec)
	if err != nil {
		s.numeric, s.isNumeric = n, true
		return
	}

	value := typeData.ScaleValue(n)
	res := SensorUnit(reg, typeData.Unit, hints.Sensors[s.Code])
	value = res.Value(value)

	s.Value = value
	s.Unit = res.Unit
	s.DeviceClass = res.DeviceClass
	s.numeric, s.isNumeric = value, true
}

// SensorUnit resolves the unit a sensor reports in. The description's native
// unit wins over the data point's declared unit.
func SensorUnit(reg *units.Registry, declaredUnit string, desc *platform.SensorDescription) units.Resolution {
	unit := declaredUnit
	deviceClass := ""
	if desc != nil {
		deviceClass = desc.DeviceClass
		if desc.NativeUnitOfMeasurement != "" {
			unit = desc.NativeUnitOfMeasurement
		}
	}
	if reg == nil {
		return units.Resolution{DeviceClass: deviceClass, Unit: unit}
	}
	return reg.Resolve(deviceClass, unit)
}

func normalizeEnum(s *State, hints Hints) {
	v, ok := s.Raw.(string)
	if !ok {
		return
	}

	switch {
	case s.Code == tuya.DPCodeStatus && hints.Platforms[platform.Vacuum]:
		if activity, ok := tuya.VacuumActivity(v); ok {
			s.Value = activity
		}
	case s.Code == tuya.DPCodeMode && hints.Platforms[platform.Climate]:
		if mode, ok := tuya.HVACMode(v); ok {
			s.Value = mode
		}
	}
}

func normalizeColor(s *State, hints Hints) {
	if !hints.Platforms[platform.Light] {
		return
	}
	colorType, ok := hints.colorType(s.Code)
	if !ok {
		return
	}
	typeData, _ := platform.ColorTypes(colorType)

	c, err := platform.ParseColorData(s.Raw, typeData)
	if err != nil {
		return
	}
	hue, saturation := c.HS()
	s.Value = map[string]any{
		"h":          hue,
		"s":          saturation,
		"brightness": c.Brightness(),
	}
}

func onOff(b bool) string {
	if b {
		return PayloadOn
	}
	return PayloadOff
}
