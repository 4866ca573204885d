package tuya

// Home Assistant vacuum activities.
const (
	VacuumCleaning  = "cleaning"
	VacuumDocked    = "docked"
	VacuumReturning = "returning"
	VacuumPaused    = "paused"
	VacuumIdle      = "idle"
)

var vacuumStatusToActivity = map[string]string{
	"charge_done":     VacuumDocked,
	"chargecompleted": VacuumDocked,
	"chargego":        VacuumDocked,
	"charging":        VacuumDocked,
	"cleaning":        VacuumCleaning,
	"docking":         VacuumReturning,
	"goto_charge":     VacuumReturning,
	"goto_pos":        VacuumCleaning,
	"mop_clean":       VacuumCleaning,
	"part_clean":      VacuumCleaning,
	"paused":          VacuumPaused,
	"pick_zone_clean": VacuumCleaning,
	"pos_arrived":     VacuumCleaning,
	"pos_unarrive":    VacuumCleaning,
	"random":          VacuumCleaning,
	"sleep":           VacuumIdle,
	"smart_clean":     VacuumCleaning,
	"smart":           VacuumCleaning,
	"spot_clean":      VacuumCleaning,
	"standby":         VacuumIdle,
	"wall_clean":      VacuumCleaning,
	"wall_follow":     VacuumCleaning,
}

// VacuumActivity maps a robot vacuum "status" value to a Home Assistant activity.
func VacuumActivity(status string) (string, bool) {
	a, ok := vacuumStatusToActivity[status]
	return a, ok
}

var tuyaHVACToHA = map[string]string{
	"auto":   "heat_cool",
	"cold":   "cool",
	"freeze": "cool",
	"heat":   "heat",
	"hot":    "heat",
	"manual": "heat_cool",
	"wet":    "dry",
	"wind":   "fan_only",
}

// HVACMode maps a climate "mode" value to a Home Assistant HVAC mode.
func HVACMode(mode string) (string, bool) {
	m, ok := tuyaHVACToHA[mode]
	return m, ok
}
