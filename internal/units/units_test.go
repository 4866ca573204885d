package units

import (
	"errors"
	"math"
	"testing"
)

func TestDefault_Lookup(t *testing.T) {
	r := Default()

	tests := []struct {
		name        string
		deviceClass string
		unit        string
		wantUnit    string
		wantOK      bool
	}{
		{"exact", ClassTemperature, "°C", "°C", true},
		{"alias", ClassTemperature, "℃", "°C", true},
		{"lowercase fallback", ClassTemperature, "CELSIUS", "°C", true},
		{"exact beats lowercase", ClassCurrent, "A", "A", true},
		{"milli alias via lowercase", ClassVoltage, "MV", "mV", true},
		{"empty unit", ClassAQI, "", "", true},
		{"space alias", ClassTimestamp, " ", "", true},
		{"humidity percent", ClassHumidity, "% RH", "%", true},
		{"wrong class", ClassPower, "°C", "", false},
		{"unknown class", "radiation", "Sv", "", false},
		{"unknown unit", ClassVoltage, "kV", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := r.Lookup(tt.deviceClass, tt.unit)
			if ok != tt.wantOK {
				t.Fatalf("Lookup() ok = %v, want %v", ok, tt.wantOK)
			}
			if ok && got.Unit != tt.wantUnit {
				t.Errorf("Lookup() unit = %q, want %q", got.Unit, tt.wantUnit)
			}
		})
	}
}

func TestDefault_Resolve(t *testing.T) {
	r := Default()

	tests := []struct {
		name        string
		deviceClass string
		native      string
		raw         float64
		wantClass   string
		wantUnit    string
		wantValue   float64
	}{
		{"millivolts", ClassVoltage, "MV", 230500, ClassVoltage, "V", 230.5},
		{"milliamps", ClassCurrent, "mA", 1500, ClassCurrent, "A", 1.5},
		{"ppb", ClassCO2, "ppb", 400000, ClassCO2, "ppm", 400},
		{"mg per m3", ClassPM25, "mg/m3", 0.012, ClassPM25, "µg/m³", 12},
		{"grams", ClassWeight, "g", 2500, ClassWeight, "kg", 2.5},
		{"no conversion", ClassPower, "watt", 125, ClassPower, "W", 125},
		{"miss clears class", ClassPower, "horsepower", 3, "", "horsepower", 3},
		{"no class", "", "lux", 10, "", "lux", 10},
		{"integration class untouched", "tuya.status", "x", 1, "tuya.status", "x", 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := r.Resolve(tt.deviceClass, tt.native)
			if res.DeviceClass != tt.wantClass {
				t.Errorf("DeviceClass = %q, want %q", res.DeviceClass, tt.wantClass)
			}
			if res.Unit != tt.wantUnit {
				t.Errorf("Unit = %q, want %q", res.Unit, tt.wantUnit)
			}
			if got := res.Value(tt.raw); math.Abs(got-tt.wantValue) > 1e-9 {
				t.Errorf("Value(%v) = %v, want %v", tt.raw, got, tt.wantValue)
			}
		})
	}
}

func TestFromDocuments_UnknownConversion(t *testing.T) {
	r := FromDocuments([]Document{
		{Unit: "V", Aliases: []string{"volt"}, DeviceClasses: []string{ClassVoltage}},
		{Unit: "kPa", DeviceClasses: []string{ClassPressure}, ConversionUnit: "bar"},
	})

	res := r.Resolve(ClassPressure, "kPa")
	if res.DeviceClass != ClassPressure || res.Unit != "kPa" {
		t.Errorf("Resolve(pressure, kPa) = %+v, want native unit", res)
	}
	if got := res.Value(101.3); got != 101.3 {
		t.Errorf("Value(101.3) = %v, want unchanged", got)
	}

	unconverted := r.Unconverted()
	if len(unconverted) != 1 || unconverted[0].Unit != "kPa" || unconverted[0].ConversionUnit != "bar" {
		t.Errorf("Unconverted() = %+v", unconverted)
	}
	if len(Default().Unconverted()) != 0 {
		t.Error("built-in units should all convert")
	}

	if _, err := ConversionFor("kPa", "bar"); !errors.Is(err, ErrUnknownConversion) {
		t.Errorf("ConversionFor() error = %v, want ErrUnknownConversion", err)
	}
}

func TestLookup_ExactCaseWins(t *testing.T) {
	r := New([]UnitOfMeasurement{
		{Unit: "MW", DeviceClasses: []string{ClassPower}},
		{Unit: "mw", DeviceClasses: []string{ClassPower}},
	})

	tests := []struct {
		unit     string
		wantUnit string
	}{
		{"MW", "MW"},
		{"mw", "mw"},
		{"Mw", "mw"},
	}

	for _, tt := range tests {
		t.Run(tt.unit, func(t *testing.T) {
			got, ok := r.Lookup(ClassPower, tt.unit)
			if !ok {
				t.Fatalf("Lookup(%q) not found", tt.unit)
			}
			if got.Unit != tt.wantUnit {
				t.Errorf("Lookup(%q) = %q, want %q", tt.unit, got.Unit, tt.wantUnit)
			}
		})
	}
}

func TestParseDocuments_IndexForm(t *testing.T) {
	data := []byte(`{
		"voltage": {
			"V": {"unit": "V", "aliases": ["volt"], "device_classes": ["voltage"]},
			"volt": {"unit": "V", "aliases": ["volt"], "device_classes": ["voltage"]},
			"mV": {"unit": "mV", "aliases": ["mv"], "device_classes": ["voltage"], "conversion_unit": "V"},
			"mv": {"unit": "mV", "aliases": ["mv"], "device_classes": ["voltage"], "conversion_unit": "V"}
		},
		"weight": {
			"g": {"unit": "g", "aliases": ["g"], "device_classes": ["weight"], "conversion_unit": "kg"}
		}
	}`)

	docs, err := ParseDocuments(data)
	if err != nil {
		t.Fatalf("ParseDocuments() error = %v", err)
	}
	if len(docs) != 3 {
		t.Fatalf("got %d documents, want 3: %+v", len(docs), docs)
	}

	r := FromDocuments(docs)
	res := r.Resolve(ClassVoltage, "MV")
	if res.Unit != "V" || res.Value(1000) != 1 {
		t.Errorf("Resolve(voltage, MV) = %+v", res)
	}
	if got := r.DeviceClasses(); len(got) != 2 || got[0] != ClassVoltage || got[1] != ClassWeight {
		t.Errorf("DeviceClasses() = %v", got)
	}
}

func TestParseDocuments_ListForm(t *testing.T) {
	docs, err := ParseDocuments([]byte(`[{"unit":"W","aliases":["watt"],"device_classes":["power"]}]`))
	if err != nil {
		t.Fatalf("ParseDocuments() error = %v", err)
	}
	if len(docs) != 1 || docs[0].Unit != "W" {
		t.Errorf("docs = %+v", docs)
	}

	for _, bad := range []string{"", "42", `{"power": []}`} {
		if _, err := ParseDocuments([]byte(bad)); !errors.Is(err, ErrInvalidDocument) {
			t.Errorf("ParseDocuments(%q) error = %v, want ErrInvalidDocument", bad, err)
		}
	}
}

func TestRegistry_Immutable(t *testing.T) {
	docs := DefaultDocuments()
	r := FromDocuments(docs)

	docs[0].Aliases[0] = "mutated"
	units := r.Units()
	units[0].Aliases[0] = "mutated again"

	if _, ok := r.Lookup(ClassAQI, " "); !ok {
		t.Error("registry changed after caller mutated its inputs or outputs")
	}
	if len(r.Documents()) != len(defaultDocuments) {
		t.Errorf("Documents() = %d, want %d", len(r.Documents()), len(defaultDocuments))
	}
}
