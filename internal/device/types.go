package device

import (
	"time"

	"github.com/nerrad567/tuya-ce-core/internal/tuya"
)

// Device is a known Tuya device.
type Device struct {
	tuya.DeviceDescriptor

	Online    bool      `json:"online"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// DeepCopy returns a copy sharing no maps with d.
func (d *Device) DeepCopy() *Device {
	if d == nil {
		return nil
	}
	cp := *d
	cp.DeviceDescriptor = *d.DeviceDescriptor.DeepCopy()
	return &cp
}

// Descriptor returns a copy of the device's descriptor.
func (d *Device) Descriptor() *tuya.DeviceDescriptor {
	return d.DeviceDescriptor.DeepCopy()
}

// StatusUpdate is one data point report from the Tuya message queue.
type StatusUpdate struct {
	Code  string `json:"code"`
	Value any    `json:"value"`
	// T is the report time in milliseconds since the epoch. Zero means now.
	T int64 `json:"t,omitempty"`
}

// Time returns the report time.
func (u StatusUpdate) Time() time.Time {
	if u.T == 0 {
		return time.Now().UTC()
	}
	return time.UnixMilli(u.T).UTC()
}

// Entity is a published entity unique id.
type Entity struct {
	UniqueID  string    `json:"unique_id"`
	DeviceID  string    `json:"device_id"`
	Platform  string    `json:"platform"`
	Key       string    `json:"key"`
	CreatedAt time.Time `json:"created_at"`
}

// Stats summarises the registry.
type Stats struct {
	TotalDevices int            `json:"total_devices"`
	Online       int            `json:"online"`
	ByCategory   map[string]int `json:"by_category"`
}
