// Package capability classifies Tuya data points into Home Assistant domains
// and models the capability table that the catalog publishes.
//
// A data point is read-write when the device lists it under "function" and
// read-only otherwise. Together with its declared type this selects the
// target domain:
//
//	ro_boolean  -> binary_sensor     rw_boolean  -> switch
//	ro_integer  -> sensor            rw_integer  -> number
//	ro_string   -> sensor            rw_string   -> select
//	ro_enum     -> sensor            rw_enum     -> select
//	ro_json     -> sensor            rw_json     -> select
//
// Anything else lands in "unknown". A read-only data point therefore never
// produces switch, number or select.
//
// Usage:
//
//	c := capability.NewClassifier(capability.DefaultRules(), logger)
//	batch := c.Classify(devices)
//	for category, domains := range batch.Classified {
//	    ...
//	}
//
// The capability table (category -> domain -> capabilities) is decoded with
// ParseTable. Simple platforms (camera, fan, scene, vacuum) are stored as a
// boolean instead of a list; DomainEntry keeps that distinction when the
// table is encoded again.
package capability
