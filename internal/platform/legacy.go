package platform

import "github.com/nerrad567/tuya-ce-core/internal/tuya"

// UniqueID returns the entity unique id for a device data point.
func UniqueID(deviceID, key string) string {
	return "tuya." + deviceID + key
}

// Rename is a unique id change for an existing entity.
type Rename struct {
	From string `json:"from"`
	To   string `json:"to"`
}

type legacySuffix struct {
	suffix string
	dpcode string
}

// Older integrations created lights as tuya.{id} and switches as tuya.{id},
// tuya.{id}_1 and so on.
var legacyMapping = map[Platform][]legacySuffix{
	Light: {
		{"", tuya.DPCodeSwitchLED},
	},
	Switch: {
		{"", tuya.DPCodeSwitch},
		{"_1", "switch_1"},
		{"_2", "switch_2"},
		{"_3", "switch_3"},
		{"_4", "switch_4"},
		{"_5", "switch_5"},
		{"_6", "switch_6"},
		{"_usb1", "switch_usb1"},
		{"_usb2", "switch_usb2"},
		{"_usb3", "switch_usb3"},
		{"_usb4", "switch_usb4"},
		{"_usb5", "switch_usb5"},
		{"_usb6", "switch_usb6"},
	},
}

var legacyCategories = map[string]Platform{
	"dc":    Light,
	"dd":    Light,
	"dj":    Light,
	"fs":    Light,
	"fwl":   Light,
	"jsq":   Light,
	"xdd":   Light,
	"bh":    Switch,
	"cwysj": Switch,
	"cz":    Switch,
	"dlq":   Switch,
	"kg":    Switch,
	"kj":    Switch,
	"pc":    Switch,
	"xxj":   Switch,
}

// LegacyMigrations returns the unique id renames for a device. A rename is
// produced only when the old id exists and the new id does not.
func LegacyMigrations(deviceID, category string, existing map[string]bool) []Rename {
	p, ok := legacyCategories[category]
	if !ok {
		return nil
	}

	var renames []Rename
	for _, m := range legacyMapping[p] {
		from := UniqueID(deviceID, m.suffix)
		to := UniqueID(deviceID, m.dpcode)
		if existing[from] && !existing[to] {
			renames = append(renames, Rename{From: from, To: to})
		}
	}
	return renames
}
