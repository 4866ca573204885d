package platform

// Description is the typed entity description of a non-simple platform.
// The set of implementations is closed.
type Description interface {
	Platform() Platform
	EntityKey() string
	isDescription()
}

// Platform defaults, applied when a capability omits the field.
const (
	DefaultOpenInstruction    = "open"
	DefaultCloseInstruction   = "close"
	DefaultStopInstruction    = "stop"
	DefaultSwitchOnlyHVACMode = "off"
)

// DefaultOnValue is the binary sensor value that reads as "on".
const DefaultOnValue = true

type AlarmControlPanelDescription struct {
	Key  string `json:"key"`
	Name string `json:"name,omitempty"`
}

type BinarySensorDescription struct {
	Key            string `json:"key"`
	DPCode         string `json:"dpcode,omitempty"`
	Name           string `json:"name,omitempty"`
	Icon           string `json:"icon,omitempty"`
	OnValue        any    `json:"on_value"`
	DeviceClass    string `json:"device_class,omitempty"`
	EntityCategory string `json:"entity_category,omitempty"`
}

// StateCode returns the status code holding the sensor state.
func (d *BinarySensorDescription) StateCode() string {
	if d.DPCode != "" {
		return d.DPCode
	}
	return d.Key
}

type ButtonDescription struct {
	Key            string `json:"key"`
	Name           string `json:"name,omitempty"`
	Icon           string `json:"icon,omitempty"`
	EntityCategory string `json:"entity_category,omitempty"`
}

type ClimateDescription struct {
	Key                string `json:"key"`
	SwitchOnlyHVACMode string `json:"switch_only_hvac_mode"`
}

type CoverDescription struct {
	Key                   string   `json:"key"`
	Name                  string   `json:"name,omitempty"`
	CurrentState          string   `json:"current_state,omitempty"`
	CurrentPosition       []string `json:"current_position,omitempty"`
	SetPosition           string   `json:"set_position,omitempty"`
	DeviceClass           string   `json:"device_class,omitempty"`
	OpenInstructionValue  string   `json:"open_instruction_value"`
	CloseInstructionValue string   `json:"close_instruction_value"`
	StopInstructionValue  string   `json:"stop_instruction_value"`
}

type HumidifierDescription struct {
	Key         string   `json:"key"`
	DPCode      []string `json:"dpcode,omitempty"`
	Humidity    string   `json:"humidity,omitempty"`
	DeviceClass string   `json:"device_class,omitempty"`
}

type LightDescription struct {
	Key              string    `json:"key"`
	Name             string    `json:"name,omitempty"`
	Brightness       []string  `json:"brightness,omitempty"`
	BrightnessMax    string    `json:"brightness_max,omitempty"`
	BrightnessMin    string    `json:"brightness_min,omitempty"`
	DeviceClass      string    `json:"device_class,omitempty"`
	ColorMode        string    `json:"color_mode,omitempty"`
	ColorTemp        []string  `json:"color_temp,omitempty"`
	EntityCategory   string    `json:"entity_category,omitempty"`
	DefaultColorType ColorType `json:"default_color_type"`
	ColorData        []string  `json:"color_data,omitempty"`
}

type NumberDescription struct {
	Key                     string `json:"key"`
	Name                    string `json:"name,omitempty"`
	DeviceClass             string `json:"device_class,omitempty"`
	EntityCategory          string `json:"entity_category,omitempty"`
	Icon                    string `json:"icon,omitempty"`
	NativeUnitOfMeasurement string `json:"native_unit_of_measurement,omitempty"`
}

type SelectDescription struct {
	Key            string `json:"key"`
	Name           string `json:"name,omitempty"`
	EntityCategory string `json:"entity_category,omitempty"`
	Icon           string `json:"icon,omitempty"`
	TranslationKey string `json:"translation_key,omitempty"`
}

type SensorDescription struct {
	Key                          string `json:"key"`
	Name                         string `json:"name,omitempty"`
	DeviceClass                  string `json:"device_class,omitempty"`
	StateClass                   string `json:"state_class,omitempty"`
	EntityCategory               string `json:"entity_category,omitempty"`
	Icon                         string `json:"icon,omitempty"`
	NativeUnitOfMeasurement      string `json:"native_unit_of_measurement,omitempty"`
	EntityRegistryEnabledDefault *bool  `json:"entity_registry_enabled_default,omitempty"`
	Subkey                       string `json:"subkey,omitempty"`
	TranslationKey               string `json:"translation_key,omitempty"`
}

type SirenDescription struct {
	Key  string `json:"key"`
	Name string `json:"name,omitempty"`
}

type SwitchDescription struct {
	Key            string `json:"key"`
	Name           string `json:"name,omitempty"`
	Icon           string `json:"icon,omitempty"`
	EntityCategory string `json:"entity_category,omitempty"`
	DeviceClass    string `json:"device_class,omitempty"`
}

func (*AlarmControlPanelDescription) Platform() Platform { return AlarmControlPanel }
func (*BinarySensorDescription) Platform() Platform      { return BinarySensor }
func (*ButtonDescription) Platform() Platform            { return Button }
func (*ClimateDescription) Platform() Platform           { return Climate }
func (*CoverDescription) Platform() Platform             { return Cover }
func (*HumidifierDescription) Platform() Platform        { return Humidifier }
func (*LightDescription) Platform() Platform             { return Light }
func (*NumberDescription) Platform() Platform            { return Number }
func (*SelectDescription) Platform() Platform            { return Select }
func (*SensorDescription) Platform() Platform            { return Sensor }
func (*SirenDescription) Platform() Platform             { return Siren }
func (*SwitchDescription) Platform() Platform            { return Switch }

func (d *AlarmControlPanelDescription) EntityKey() string { return d.Key }
func (d *BinarySensorDescription) EntityKey() string      { return d.Key }
func (d *ButtonDescription) EntityKey() string            { return d.Key }
func (d *ClimateDescription) EntityKey() string           { return d.Key }
func (d *CoverDescription) EntityKey() string             { return d.Key }
func (d *HumidifierDescription) EntityKey() string        { return d.Key }
func (d *LightDescription) EntityKey() string             { return d.Key }
func (d *NumberDescription) EntityKey() string            { return d.Key }
func (d *SelectDescription) EntityKey() string            { return d.Key }
func (d *SensorDescription) EntityKey() string            { return d.Key }
func (d *SirenDescription) EntityKey() string             { return d.Key }
func (d *SwitchDescription) EntityKey() string            { return d.Key }

func (*AlarmControlPanelDescription) isDescription() {}
func (*BinarySensorDescription) isDescription()      {}
func (*ButtonDescription) isDescription()            {}
func (*ClimateDescription) isDescription()           {}
func (*CoverDescription) isDescription()             {}
func (*HumidifierDescription) isDescription()        {}
func (*LightDescription) isDescription()             {}
func (*NumberDescription) isDescription()            {}
func (*SelectDescription) isDescription()            {}
func (*SensorDescription) isDescription()            {}
func (*SirenDescription) isDescription()             {}
func (*SwitchDescription) isDescription()            {}
