package bridge

import (
	"encoding/json"
	"fmt"

	"github.com/nerrad567/tuya-ce-core/internal/infrastructure/mqtt"
	"github.com/nerrad567/tuya-ce-core/internal/platform"
	"github.com/nerrad567/tuya-ce-core/internal/tuya"
	"github.com/nerrad567/tuya-ce-core/internal/units"
)

// Manufacturer is reported on every discovered device.
const Manufacturer = "Tuya"

const valueTemplate = "{{ value_json.value }}"

// DiscoveryDevice groups entities under one device in Home Assistant.
type DiscoveryDevice struct {
	Identifiers  []string `json:"identifiers"`
	Name         string   `json:"name,omitempty"`
	Model        string   `json:"model,omitempty"`
	Manufacturer string   `json:"manufacturer"`
}

// DiscoveryConfig is a Home Assistant MQTT discovery payload.
type DiscoveryConfig struct {
	Name              string          `json:"name,omitempty"`
	UniqueID          string          `json:"unique_id"`
	ObjectID          string          `json:"object_id"`
	StateTopic        string          `json:"state_topic"`
	ValueTemplate     string          `json:"value_template,omitempty"`
	AvailabilityTopic string          `json:"availability_topic"`
	DeviceClass       string          `json:"device_class,omitempty"`
	StateClass        string          `json:"state_class,omitempty"`
	UnitOfMeasurement string          `json:"unit_of_measurement,omitempty"`
	EntityCategory    string          `json:"entity_category,omitempty"`
	Icon              string          `json:"icon,omitempty"`
	PayloadOn         any             `json:"payload_on,omitempty"`
	PayloadOff        any             `json:"payload_off,omitempty"`
	EnabledByDefault  *bool           `json:"enabled_by_default,omitempty"`
	Options           []string        `json:"options,omitempty"`
	Min               *float64        `json:"min,omitempty"`
	Max               *float64        `json:"max,omitempty"`
	Step              *float64        `json:"step,omitempty"`
	Device            DiscoveryDevice `json:"device"`
}

// StateCode returns the data point whose state topic an entity follows.
// Simple platforms follow the device-wide state topic.
func StateCode(e platform.Entity) string {
	if d, ok := e.Description.(*platform.BinarySensorDescription); ok {
		return d.StateCode()
	}
	return e.Key
}

// BuildDiscovery returns the discovery config for an entity of dev.
func BuildDiscovery(topics mqtt.Topics, reg *units.Registry, dev *tuya.DeviceDescriptor, e platform.Entity) DiscoveryConfig {
	objectID := e.Key
	if objectID == "" {
		objectID = string(e.Platform)
	}

	cfg := DiscoveryConfig{
		UniqueID:          e.UniqueID,
		ObjectID:          topics.Prefix + "_" + dev.ID + "_" + objectID,
		StateTopic:        topics.EntityState(dev.ID, StateCode(e)),
		AvailabilityTopic: topics.SystemStatus(),
		Device: DiscoveryDevice{
			Identifiers:  []string{topics.Prefix + "_" + dev.ID},
			Name:         dev.Name,
			Model:        dev.Model,
			Manufacturer: Manufacturer,
		},
	}
	if e.Key != "" {
		cfg.ValueTemplate = valueTemplate
	}

	switch d := e.Description.(type) {
	case *platform.SensorDescription:
		cfg.Name = d.Name
		cfg.DeviceClass = d.DeviceClass
		cfg.StateClass = d.StateClass
		cfg.EntityCategory = d.EntityCategory
		cfg.Icon = d.Icon
		cfg.EnabledByDefault = d.EntityRegistryEnabledDefault

		declared := ""
		if spec, ok := dev.Spec(d.Key); ok {
			if typeData, err := tuya.ParseIntegerTypeData(d.Key, spec); err == nil {
				declared = typeData.Unit
			}
		}
		res := SensorUnit(reg, declared, d)
		cfg.DeviceClass = res.DeviceClass
		cfg.UnitOfMeasurement = res.Unit

	case *platform.BinarySensorDescription:
		cfg.Name = d.Name
		cfg.DeviceClass = d.DeviceClass
		cfg.EntityCategory = d.EntityCategory
		cfg.Icon = d.Icon
		binarySensorPayloads(&cfg, d.OnValue)

	case *platform.SwitchDescription:
		cfg.Name = d.Name
		cfg.DeviceClass = d.DeviceClass
		cfg.EntityCategory = d.EntityCategory
		cfg.Icon = d.Icon
		cfg.PayloadOn, cfg.PayloadOff = PayloadOn, PayloadOff

	case *platform.NumberDescription:
		cfg.Name = d.Name
		cfg.DeviceClass = d.DeviceClass
		cfg.EntityCategory = d.EntityCategory
		cfg.Icon = d.Icon
		cfg.UnitOfMeasurement = d.NativeUnitOfMeasurement
		if spec, ok := dev.Spec(d.Key); ok {
			if typeData, err := tuya.ParseIntegerTypeData(d.Key, spec); err == nil {
				lo, hi, step := typeData.MinScaled(), typeData.MaxScaled(), typeData.StepScaled()
				cfg.Min, cfg.Max = &lo, &hi
				if step > 0 {
					cfg.Step = &step
				}
				if cfg.UnitOfMeasurement == "" {
					cfg.UnitOfMeasurement = typeData.Unit
				}
			}
		}

	case *platform.SelectDescription:
		cfg.Name = d.Name
		cfg.EntityCategory = d.EntityCategory
		cfg.Icon = d.Icon
		if spec, ok := dev.Spec(d.Key); ok {
			if typeData, err := tuya.ParseEnumTypeData(d.Key, spec); err == nil {
				cfg.Options = typeData.Range
			}
		}

	case *platform.ButtonDescription:
		cfg.Name = d.Name
		cfg.EntityCategory = d.EntityCategory
		cfg.Icon = d.Icon

	case *platform.LightDescription:
		cfg.Name = d.Name
		cfg.EntityCategory = d.EntityCategory
		cfg.PayloadOn, cfg.PayloadOff = PayloadOn, PayloadOff

	case *platform.CoverDescription:
		cfg.Name = d.Name
		cfg.DeviceClass = d.DeviceClass

	case *platform.HumidifierDescription:
		cfg.DeviceClass = d.DeviceClass

	case *platform.AlarmControlPanelDescription:
		cfg.Name = d.Name

	case *platform.SirenDescription:
		cfg.Name = d.Name
	}

	return cfg
}

// binarySensorPayloads sets how a binary sensor reads its state. Boolean data
// points are published as ON/OFF; any other on value is compared in the template.
func binarySensorPayloads(cfg *DiscoveryConfig, onValue any) {
	if b, ok := onValue.(bool); ok {
		cfg.PayloadOn, cfg.PayloadOff = onOff(b), onOff(!b)
		return
	}

	literal, err := json.Marshal(onValue)
	if err != nil {
		literal = []byte("null")
	}
	cfg.ValueTemplate = fmt.Sprintf("{{ '%s' if value_json.value == %s else '%s' }}", PayloadOn, literal, PayloadOff)
	cfg.PayloadOn, cfg.PayloadOff = PayloadOn, PayloadOff
}
