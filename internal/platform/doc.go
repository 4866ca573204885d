// Package platform decides which Home Assistant platforms a Tuya device
// supports and builds the entity description for each enabled capability.
//
// A category's entry in the capability table lists capabilities per
// platform. For every platform the Mapper checks enablement against the live
// device:
//
//	camera, fan, scene, vacuum   the category's boolean entry
//	alarm_control_panel          the capability record exists
//	binary_sensor                key or dpcode is in status
//	cover                        key is in function or status_range
//	everything else              key is in status
//
// Descriptions are built by explicit per-platform builders that copy only
// the whitelisted fields of a capability. Fields absent from the capability
// keep their zero value or the platform default (on_value, instruction
// values, default_color_type, switch_only_hvac_mode).
//
// Entities carry unique ids of the form tuya.{device_id}{key}. Ids written by
// older integrations are renamed by LegacyMigrations.
package platform
