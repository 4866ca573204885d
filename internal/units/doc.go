// Package units normalises the units of measurement Tuya devices report.
//
// Tuya firmware is inconsistent about unit spelling ("℃", "C", "celsius")
// and sometimes reports a finer unit than Home Assistant expects (mV, mA,
// ppb). A Registry indexes every known unit and its aliases per device class,
// and Resolve turns a (device class, native unit) pair into the canonical
// unit plus the conversion to apply to readings.
//
// Registries are immutable once built. The catalog builds a new one from the
// units document on every load.
package units
