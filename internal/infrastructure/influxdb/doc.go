// Package influxdb stores normalised Tuya readings in InfluxDB v2.
//
// Every numeric status value the bridge receives, after integer scaling and
// unit conversion, is written as one point in the tuya_readings measurement,
// tagged by device, category, data point code, device class and unit.
//
// # Usage
//
//	client, err := influxdb.Connect(ctx, cfg.InfluxDB)
//	if errors.Is(err, influxdb.ErrDisabled) {
//	    // telemetry off
//	}
//	defer client.Close()
//
//	client.WriteReading(influxdb.Reading{DeviceID: "bf01", Code: "cur_power", Unit: "W", Value: 12.5})
package influxdb
