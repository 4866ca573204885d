// Package tuya models the device data the Tuya cloud reports: device
// descriptors with their function, status_range and status maps, the typed
// views over data point specs, and parsing of diagnostic dumps.
//
// Descriptors are treated as read-only snapshots. Anything that needs to
// alter one works on DeepCopy.
package tuya
