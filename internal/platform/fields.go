package platform

import (
	"slices"

	"github.com/nerrad567/tuya-ce-core/internal/capability"
	"github.com/nerrad567/tuya-ce-core/internal/tuya"
)

// platformFields is the whitelist of capability fields copied into each
// platform's description, besides key.
var platformFields = map[Platform][]string{
	AlarmControlPanel: {"name"},
	BinarySensor:      {"dpcode", "name", "icon", "on_value", "device_class", "entity_category"},
	Button:            {"name", "icon", "entity_category"},
	Climate:           {"switch_only_hvac_mode"},
	Cover: {
		"name", "current_state", "current_position", "set_position", "device_class",
		"open_instruction_value", "close_instruction_value", "stop_instruction_value",
	},
	Humidifier: {"dpcode", "humidity", "device_class"},
	Light: {
		"name", "brightness", "brightness_max", "brightness_min", "device_class",
		"color_mode", "color_temp", "entity_category", "default_color_type", "color_data",
	},
	Number: {"name", "device_class", "entity_category", "icon", "native_unit_of_measurement"},
	Select: {"name", "entity_category", "icon", "translation_key"},
	Sensor: {
		"name", "device_class", "state_class", "entity_category", "icon",
		"native_unit_of_measurement", "entity_registry_enabled_default", "subkey", "translation_key",
	},
	Siren:  {"name"},
	Switch: {"name", "icon", "entity_category", "device_class"},
}

// Fields returns the whitelisted fields of a platform. Simple platforms have none.
func Fields(p Platform) []string {
	return slices.Clone(platformFields[p])
}

// fieldReader reads whitelisted fields out of a capability. Absent and null
// fields read as not present.
type fieldReader struct {
	c capability.Capability
}

func (r fieldReader) present(name string) bool {
	v, ok := r.c[name]
	return ok && v != nil
}

func (r fieldReader) str(name string) string {
	s, _ := r.c[name].(string)
	return s
}

func (r fieldReader) strOr(name, def string) string {
	if s, ok := r.c[name].(string); ok {
		return s
	}
	return def
}

// codes reads a field that holds one data point code or a list of them.
func (r fieldReader) codes(name string) []string {
	switch v := r.c[name].(type) {
	case string:
		return []string{v}
	case []string:
		return slices.Clone(v)
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}

func (r fieldReader) boolPtr(name string) *bool {
	b, ok := r.c[name].(bool)
	if !ok {
		return nil
	}
	return &b
}

func (r fieldReader) value(name string, def any) any {
	if !r.present(name) {
		return def
	}
	return tuya.CloneValue(r.c[name])
}
