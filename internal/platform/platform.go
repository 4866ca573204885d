package platform

import "slices"

// Platform is a Home Assistant entity platform.
type Platform string

// Supported platforms.
const (
	AlarmControlPanel Platform = "alarm_control_panel"
	BinarySensor      Platform = "binary_sensor"
	Button            Platform = "button"
	Camera            Platform = "camera"
	Climate           Platform = "climate"
	Cover             Platform = "cover"
	Fan               Platform = "fan"
	Humidifier        Platform = "humidifier"
	Light             Platform = "light"
	Number            Platform = "number"
	Scene             Platform = "scene"
	Select            Platform = "select"
	Sensor            Platform = "sensor"
	Siren             Platform = "siren"
	Switch            Platform = "switch"
	Vacuum            Platform = "vacuum"
)

var all = []Platform{
	AlarmControlPanel,
	BinarySensor,
	Button,
	Camera,
	Climate,
	Cover,
	Fan,
	Humidifier,
	Light,
	Number,
	Scene,
	Select,
	Sensor,
	Siren,
	Switch,
	Vacuum,
}

// All returns every supported platform in setup order.
func All() []Platform {
	return slices.Clone(all)
}

// Parse returns the platform named s.
func Parse(s string) (Platform, bool) {
	p := Platform(s)
	if slices.Contains(all, p) {
		return p, true
	}
	return "", false
}

// Valid reports whether p is a supported platform.
func (p Platform) Valid() bool {
	return slices.Contains(all, p)
}

// Simple reports whether p is enabled per category with no entity
// description. Simple platforms are stored as a boolean in the capability table.
func (p Platform) Simple() bool {
	switch p {
	case Camera, Fan, Scene, Vacuum:
		return true
	default:
		return false
	}
}

func (p Platform) String() string {
	return string(p)
}
