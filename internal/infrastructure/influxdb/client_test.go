package influxdb

import (
	"context"
	"errors"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"

	"github.com/nerrad567/tuya-ce-core/internal/infrastructure/config"
)

func testConfig() config.InfluxDBConfig {
	return config.InfluxDBConfig{
		Enabled:       true,
		URL:           "http://127.0.0.1:8086",
		Token:         "tuyace-dev-token",
		Org:           "tuyace",
		Bucket:        "tuya",
		BatchSize:     100,
		FlushInterval: 1,
	}
}

// skipIfNoInfluxDB skips the test unless a local InfluxDB answers.
func skipIfNoInfluxDB(t *testing.T) {
	t.Helper()
	if os.Getenv("RUN_INTEGRATION") != "" {
		return
	}
	client, err := Connect(context.Background(), testConfig())
	if err != nil {
		t.Skip("InfluxDB not available, skipping integration test")
	}
	client.Close() //nolint:errcheck // Probe only
}

func TestConnect_Disabled(t *testing.T) {
	cfg := testConfig()
	cfg.Enabled = false

	_, err := Connect(context.Background(), cfg)
	if !errors.Is(err, ErrDisabled) {
		t.Errorf("Connect() error = %v, want ErrDisabled", err)
	}
}

func TestConnect_Unreachable(t *testing.T) {
	cfg := testConfig()
	cfg.URL = "http://127.0.0.1:1"

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	_, err := Connect(ctx, cfg)
	if !errors.Is(err, ErrConnectionFailed) {
		t.Errorf("Connect() error = %v, want ErrConnectionFailed", err)
	}
}

func TestClose_Nil(t *testing.T) {
	c := &Client{}
	if err := c.Close(); err != nil {
		t.Errorf("Close() = %v", err)
	}
	c.Flush()
	c.WriteReading(Reading{DeviceID: "x", Code: "y", Value: 1})
	if err := c.HealthCheck(context.Background()); !errors.Is(err, ErrNotConnected) {
		t.Errorf("HealthCheck() = %v, want ErrNotConnected", err)
	}
}

func TestReadingPoint(t *testing.T) {
	ts := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	p := readingPoint(Reading{
		DeviceID:    "bf01",
		Category:    "wsdcg",
		Code:        "va_temperature",
		DeviceClass: "temperature",
		Unit:        "°C",
		Value:       21.5,
		Time:        ts,
	})

	line := write.PointToLineProtocol(p, time.Second)
	for _, want := range []string{
		MeasurementReadings,
		"code=va_temperature",
		"device_class=temperature",
		"device_id=bf01",
		"category=wsdcg",
		"value=21.5",
	} {
		if !strings.Contains(line, want) {
			t.Errorf("line protocol %q missing %q", line, want)
		}
	}
}

func TestReadingPoint_OptionalTagsOmitted(t *testing.T) {
	p := readingPoint(Reading{DeviceID: "bf01", Code: "battery", Value: 80})

	for _, tag := range p.TagList() {
		switch tag.Key {
		case "category", "device_class", "unit":
			t.Errorf("unexpected empty tag %q", tag.Key)
		}
	}
	if p.Time().IsZero() {
		t.Error("point time should default to now")
	}
}

func TestWriteReading_Integration(t *testing.T) {
	skipIfNoInfluxDB(t)

	client, err := Connect(context.Background(), testConfig())
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	defer client.Close() //nolint:errcheck // Test cleanup

	var writeErr error
	client.SetOnError(func(err error) { writeErr = err })

	client.WriteReading(Reading{DeviceID: "test-device", Code: "cur_power", Unit: "W", Value: 12.5})
	client.Flush()

	if writeErr != nil {
		t.Errorf("write error: %v", writeErr)
	}
	if err := client.HealthCheck(context.Background()); err != nil {
		t.Errorf("HealthCheck() error = %v", err)
	}
}
