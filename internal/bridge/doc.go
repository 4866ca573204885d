// Package bridge connects the Tuya device listener to Home Assistant over MQTT.
//
// The bridge consumes four topic families published by the device listener:
//
//	{prefix}/device/{id}/descriptor   full device inventory record
//	{prefix}/device/{id}/status       Tuya message-queue status reports
//	{prefix}/device/{id}/removed      device left the account
//	{prefix}/service/{name}           admin service calls
//
// For every descriptor it migrates legacy entity unique ids, maps the device
// onto entities using the capability table from the catalog, and publishes
// retained Home Assistant discovery configs. For every status report it
// normalises the values (integer scaling, unit conversion, ON/OFF, vacuum and
// HVAC states, colour) and publishes them to {prefix}/state/{id}/{code},
// writes numeric readings to InfluxDB and broadcasts them to WebSocket clients.
//
// When the catalog is reloaded every known device is discovered again.
package bridge
