package units

// Home Assistant sensor device classes the built-in units cover.
const (
	ClassAQI                      = "aqi"
	ClassBattery                  = "battery"
	ClassCO                       = "carbon_monoxide"
	ClassCO2                      = "carbon_dioxide"
	ClassCurrent                  = "current"
	ClassDate                     = "date"
	ClassEnergy                   = "energy"
	ClassGas                      = "gas"
	ClassHumidity                 = "humidity"
	ClassIlluminance              = "illuminance"
	ClassMonetary                 = "monetary"
	ClassNitrogenDioxide          = "nitrogen_dioxide"
	ClassNitrogenMonoxide         = "nitrogen_monoxide"
	ClassNitrousOxide             = "nitrous_oxide"
	ClassOzone                    = "ozone"
	ClassPM1                      = "pm1"
	ClassPM10                     = "pm10"
	ClassPM25                     = "pm25"
	ClassPower                    = "power"
	ClassPowerFactor              = "power_factor"
	ClassPressure                 = "pressure"
	ClassSignalStrength           = "signal_strength"
	ClassSulphurDioxide           = "sulphur_dioxide"
	ClassTemperature              = "temperature"
	ClassTimestamp                = "timestamp"
	ClassVolatileOrganicCompounds = "volatile_organic_compounds"
	ClassVoltage                  = "voltage"
	ClassWeight                   = "weight"
)

var airQuality = []string{
	ClassNitrogenDioxide,
	ClassNitrogenMonoxide,
	ClassNitrousOxide,
	ClassOzone,
	ClassPM1,
	ClassPM25,
	ClassPM10,
	ClassSulphurDioxide,
	ClassVolatileOrganicCompounds,
}

// defaultDocuments is the built-in units table.
var defaultDocuments = []Document{
	{Unit: "", Aliases: []string{" "}, DeviceClasses: []string{ClassAQI, ClassDate, ClassMonetary, ClassTimestamp}},
	{Unit: "%", Aliases: []string{"pct", "percent", "% RH"}, DeviceClasses: []string{ClassBattery, ClassHumidity, ClassPowerFactor}},
	{Unit: "ppm", DeviceClasses: []string{ClassCO, ClassCO2}},
	{Unit: "ppb", DeviceClasses: []string{ClassCO, ClassCO2}, ConversionUnit: "ppm"},
	{Unit: "A", Aliases: []string{"a", "ampere"}, DeviceClasses: []string{ClassCurrent}},
	{Unit: "mA", Aliases: []string{"ma", "milliampere"}, DeviceClasses: []string{ClassCurrent}, ConversionUnit: "A"},
	{Unit: "Wh", Aliases: []string{"wh", "watthour"}, DeviceClasses: []string{ClassEnergy}},
	{Unit: "kWh", Aliases: []string{"kwh", "kilowatt-hour", "kW·h"}, DeviceClasses: []string{ClassEnergy}},
	{Unit: "ft³", Aliases: []string{"ft3"}, DeviceClasses: []string{ClassGas}},
	{Unit: "m³", Aliases: []string{"m3"}, DeviceClasses: []string{ClassGas}},
	{Unit: "lx", Aliases: []string{"lux"}, DeviceClasses: []string{ClassIlluminance}},
	{Unit: "lm", Aliases: []string{"lum", "lumen"}, DeviceClasses: []string{ClassIlluminance}},
	{Unit: "µg/m³", Aliases: []string{"ug/m3", "µg/m3", "ug/m³"}, DeviceClasses: airQuality},
	{Unit: "mg/m³", Aliases: []string{"mg/m3"}, DeviceClasses: airQuality, ConversionUnit: "µg/m³"},
	{Unit: "W", Aliases: []string{"watt"}, DeviceClasses: []string{ClassPower}},
	{Unit: "kW", Aliases: []string{"kilowatt"}, DeviceClasses: []string{ClassPower}},
	{Unit: "bar", DeviceClasses: []string{ClassPressure}},
	{Unit: "mbar", Aliases: []string{"millibar"}, DeviceClasses: []string{ClassPressure}},
	{Unit: "hPa", Aliases: []string{"hpa", "hectopascal"}, DeviceClasses: []string{ClassPressure}},
	{Unit: "inHg", Aliases: []string{"inhg"}, DeviceClasses: []string{ClassPressure}},
	{Unit: "psi", DeviceClasses: []string{ClassPressure}},
	{Unit: "Pa", DeviceClasses: []string{ClassPressure}},
	{Unit: "dB", Aliases: []string{"db"}, DeviceClasses: []string{ClassSignalStrength}},
	{Unit: "dBm", Aliases: []string{"dbm"}, DeviceClasses: []string{ClassSignalStrength}},
	{Unit: "°C", Aliases: []string{"°c", "c", "celsius", "℃"}, DeviceClasses: []string{ClassTemperature}},
	{Unit: "°F", Aliases: []string{"°f", "f", "fahrenheit"}, DeviceClasses: []string{ClassTemperature}},
	{Unit: "V", Aliases: []string{"volt"}, DeviceClasses: []string{ClassVoltage}},
	{Unit: "mV", Aliases: []string{"mv", "millivolt"}, DeviceClasses: []string{ClassVoltage}, ConversionUnit: "V"},
	{Unit: "g", Aliases: []string{"g"}, DeviceClasses: []string{ClassWeight}, ConversionUnit: "kg"},
}

// DefaultDocuments returns a copy of the built-in units table.
func DefaultDocuments() []Document {
	out := make([]Document, len(defaultDocuments))
	for i, d := range defaultDocuments {
		out[i] = d.clone()
	}
	return out
}

// Default returns a registry of the built-in units.
func Default() *Registry {
	return FromDocuments(defaultDocuments)
}
