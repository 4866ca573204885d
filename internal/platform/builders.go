package platform

import "github.com/nerrad567/tuya-ce-core/internal/capability"

type builder func(r fieldReader) Description

var builders = map[Platform]builder{
	AlarmControlPanel: buildAlarmControlPanel,
	BinarySensor:      buildBinarySensor,
	Button:            buildButton,
	Climate:           buildClimate,
	Cover:             buildCover,
	Humidifier:        buildHumidifier,
	Light:             buildLight,
	Number:            buildNumber,
	Select:            buildSelect,
	Sensor:            buildSensor,
	Siren:             buildSiren,
	Switch:            buildSwitch,
}

// Describe builds the description of capability c for platform p. Simple
// and unknown platforms have no description and return nil.
func Describe(p Platform, c capability.Capability) Description {
	build, ok := builders[p]
	if !ok {
		return nil
	}
	return build(fieldReader{c: c})
}

func buildAlarmControlPanel(r fieldReader) Description {
	return &AlarmControlPanelDescription{
		Key:  r.c.Key(),
		Name: r.str("name"),
	}
}

func buildBinarySensor(r fieldReader) Description {
	return &BinarySensorDescription{
		Key:            r.c.Key(),
		DPCode:         r.str("dpcode"),
		Name:           r.str("name"),
		Icon:           r.str("icon"),
		OnValue:        r.value("on_value", DefaultOnValue),
		DeviceClass:    r.str("device_class"),
		EntityCategory: r.str("entity_category"),
	}
}

func buildButton(r fieldReader) Description {
	return &ButtonDescription{
		Key:            r.c.Key(),
		Name:           r.str("name"),
		Icon:           r.str("icon"),
		EntityCategory: r.str("entity_category"),
	}
}

func buildClimate(r fieldReader) Description {
	return &ClimateDescription{
		Key:                r.c.Key(),
		SwitchOnlyHVACMode: r.strOr("switch_only_hvac_mode", DefaultSwitchOnlyHVACMode),
	}
}

func buildCover(r fieldReader) Description {
	return &CoverDescription{
		Key:                   r.c.Key(),
		Name:                  r.str("name"),
		CurrentState:          r.str("current_state"),
		CurrentPosition:       r.codes("current_position"),
		SetPosition:           r.str("set_position"),
		DeviceClass:           r.str("device_class"),
		OpenInstructionValue:  r.strOr("open_instruction_value", DefaultOpenInstruction),
		CloseInstructionValue: r.strOr("close_instruction_value", DefaultCloseInstruction),
		StopInstructionValue:  r.strOr("stop_instruction_value", DefaultStopInstruction),
	}
}

func buildHumidifier(r fieldReader) Description {
	return &HumidifierDescription{
		Key:         r.c.Key(),
		DPCode:      r.codes("dpcode"),
		Humidity:    r.str("humidity"),
		DeviceClass: r.str("device_class"),
	}
}

func buildLight(r fieldReader) Description {
	colorType := ColorType(r.strOr("default_color_type", string(ColorTypeV1)))
	if _, ok := ColorTypes(colorType); !ok {
		colorType = ColorTypeV1
	}

	return &LightDescription{
		Key:              r.c.Key(),
		Name:             r.str("name"),
		Brightness:       r.codes("brightness"),
		BrightnessMax:    r.str("brightness_max"),
		BrightnessMin:    r.str("brightness_min"),
		DeviceClass:      r.str("device_class"),
		ColorMode:        r.str("color_mode"),
		ColorTemp:        r.codes("color_temp"),
		EntityCategory:   r.str("entity_category"),
		DefaultColorType: colorType,
		ColorData:        r.codes("color_data"),
	}
}

func buildNumber(r fieldReader) Description {
	return &NumberDescription{
		Key:                     r.c.Key(),
		Name:                    r.str("name"),
		DeviceClass:             r.str("device_class"),
		EntityCategory:          r.str("entity_category"),
		Icon:                    r.str("icon"),
		NativeUnitOfMeasurement: r.str("native_unit_of_measurement"),
	}
}

func buildSelect(r fieldReader) Description {
	return &SelectDescription{
		Key:            r.c.Key(),
		Name:           r.str("name"),
		EntityCategory: r.str("entity_category"),
		Icon:           r.str("icon"),
		TranslationKey: r.str("translation_key"),
	}
}

func buildSensor(r fieldReader) Description {
	return &SensorDescription{
		Key:                          r.c.Key(),
		Name:                         r.str("name"),
		DeviceClass:                  r.str("device_class"),
		StateClass:                   r.str("state_class"),
		EntityCategory:               r.str("entity_category"),
		Icon:                         r.str("icon"),
		NativeUnitOfMeasurement:      r.str("native_unit_of_measurement"),
		EntityRegistryEnabledDefault: r.boolPtr("entity_registry_enabled_default"),
		Subkey:                       r.str("subkey"),
		TranslationKey:               r.str("translation_key"),
	}
}

func buildSiren(r fieldReader) Description {
	return &SirenDescription{
		Key:  r.c.Key(),
		Name: r.str("name"),
	}
}

func buildSwitch(r fieldReader) Description {
	return &SwitchDescription{
		Key:            r.c.Key(),
		Name:           r.str("name"),
		Icon:           r.str("icon"),
		EntityCategory: r.str("entity_category"),
		DeviceClass:    r.str("device_class"),
	}
}
