// Package gapanalysis compares what live devices expose with what the
// capability table already covers.
//
// Devices are classified with the capability package, merged per category,
// and diffed against the table:
//
//   - a category missing from the table is a gap in full
//   - a domain that no stored domain satisfies is a gap in full
//   - otherwise each code missing from every satisfying stored domain is a gap
//
// A stored domain satisfies a live domain through the alias table. Stored
// sensor capabilities cover live binary_sensor codes and stored select
// capabilities cover live binary_sensor and sensor codes; the reverse does
// not hold.
//
// Reports get a UUID and can be persisted through Repository.
package gapanalysis
