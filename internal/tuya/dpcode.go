package tuya

// Data point codes the core handles specially.
const (
	DPCodeSwitch        = "switch"
	DPCodeSwitchLED     = "switch_led"
	DPCodeStatus        = "status"
	DPCodeMode          = "mode"
	DPCodeColourData    = "colour_data"
	DPCodeColourDataHSV = "colour_data_hsv"
	DPCodeColourDataV2  = "colour_data_v2"
)

// Data point types as Tuya declares them.
const (
	TypeBoolean = "Boolean"
	TypeInteger = "Integer"
	TypeString  = "String"
	TypeEnum    = "Enum"
	TypeJSON    = "Json"
	TypeRaw     = "Raw"
)

// CategoryInfraredAC is the IR air conditioner category whose function codes
// (F, M, T) do not match its status keys.
const CategoryInfraredAC = "infrared_ac"
