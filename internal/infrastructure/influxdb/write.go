package influxdb

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// MeasurementReadings is the measurement every normalised data point reading lands in.
const MeasurementReadings = "tuya_readings"

// Reading is one numeric data point value after scaling and unit conversion.
type Reading struct {
	DeviceID    string
	Category    string
	Code        string
	DeviceClass string
	Unit        string
	Value       float64
	Time        time.Time
}

// WriteReading queues a reading for the next batch. It is a no-op while disconnected.
//
// Example:
//
//	client.WriteReading(influxdb.Reading{DeviceID: "bf01", Code: "va_temperature", Unit: "°C", Value: 21.5})
func (c *Client) WriteReading(r Reading) {
	if !c.IsConnected() {
		return
	}
	c.writeAPI.WritePoint(readingPoint(r))
}

// readingPoint tags by device, category, code and unit so Flux queries can
// group per entity without touching field values.
func readingPoint(r Reading) *write.Point {
	tags := map[string]string{
		"device_id": r.DeviceID,
		"code":      r.Code,
	}
	if r.Category != "" {
		tags["category"] = r.Category
	}
	if r.DeviceClass != "" {
		tags["device_class"] = r.DeviceClass
	}
	if r.Unit != "" {
		tags["unit"] = r.Unit
	}

	ts := r.Time
	if ts.IsZero() {
		ts = time.Now()
	}

	return write.NewPoint(MeasurementReadings, tags, map[string]any{"value": r.Value}, ts)
}
