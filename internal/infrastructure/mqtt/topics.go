package mqtt

import (
	"fmt"
	"strings"

	"github.com/nerrad567/tuya-ce-core/internal/infrastructure/config"
)

// Default topic namespaces.
const (
	DefaultPrefix          = "tuyace"
	DefaultDiscoveryPrefix = "homeassistant"
)

// Service names accepted on the service topic.
const (
	ServiceUpdateRemoteConfiguration = "update_remote_configuration"
)

// Topics builds the topic strings used between the device listener, this
// service and Home Assistant.
//
//	topics := mqtt.NewTopics(cfg.MQTT.Topics)
//	topics.DeviceStatus("bf1234")          // tuyace/device/bf1234/status
//	topics.Discovery("switch", "bf1234", "switch_1")
//	// homeassistant/switch/tuyace_bf1234/switch_1/config
type Topics struct {
	Prefix          string
	DiscoveryPrefix string
}

// NewTopics returns a builder for the configured namespaces, filling in defaults.
func NewTopics(cfg config.MQTTTopicsConfig) Topics {
	t := Topics{Prefix: cfg.Prefix, DiscoveryPrefix: cfg.DiscoveryPrefix}
	if t.Prefix == "" {
		t.Prefix = DefaultPrefix
	}
	if t.DiscoveryPrefix == "" {
		t.DiscoveryPrefix = DefaultDiscoveryPrefix
	}
	return t
}

// DeviceDescriptor carries the full device inventory record (function, status_range, status).
//
// Example: tuyace/device/bf1234/descriptor
func (t Topics) DeviceDescriptor(deviceID string) string {
	return fmt.Sprintf("%s/device/%s/descriptor", t.Prefix, deviceID)
}

// DeviceStatus carries Tuya message-queue status reports.
//
// Example: tuyace/device/bf1234/status
func (t Topics) DeviceStatus(deviceID string) string {
	return fmt.Sprintf("%s/device/%s/status", t.Prefix, deviceID)
}

// DeviceRemoved signals that a device left the account.
//
// Example: tuyace/device/bf1234/removed
func (t Topics) DeviceRemoved(deviceID string) string {
	return fmt.Sprintf("%s/device/%s/removed", t.Prefix, deviceID)
}

// Service is the topic for admin service calls.
//
// Example: tuyace/service/update_remote_configuration
func (t Topics) Service(name string) string {
	return fmt.Sprintf("%s/service/%s", t.Prefix, name)
}

// EntityState is where normalised entity state is published.
//
// Example: tuyace/state/bf1234/va_temperature
func (t Topics) EntityState(deviceID, key string) string {
	if key == "" {
		return fmt.Sprintf("%s/state/%s", t.Prefix, deviceID)
	}
	return fmt.Sprintf("%s/state/%s/%s", t.Prefix, deviceID, key)
}

// Discovery is the Home Assistant MQTT discovery config topic for one entity.
//
// Example: homeassistant/sensor/tuyace_bf1234/va_temperature/config
func (t Topics) Discovery(platform, deviceID, objectID string) string {
	if objectID == "" {
		objectID = platform
	}
	return fmt.Sprintf("%s/%s/%s_%s/%s/config", t.DiscoveryPrefix, platform, t.Prefix, deviceID, objectID)
}

// SystemStatus is the availability topic for the whole service.
//
// Example: tuyace/system/status
func (t Topics) SystemStatus() string {
	return fmt.Sprintf("%s/system/status", t.Prefix)
}

// AllDeviceDescriptors matches descriptor messages for every device.
func (t Topics) AllDeviceDescriptors() string {
	return fmt.Sprintf("%s/device/+/descriptor", t.Prefix)
}

// AllDeviceStatus matches status messages for every device.
func (t Topics) AllDeviceStatus() string {
	return fmt.Sprintf("%s/device/+/status", t.Prefix)
}

// AllDeviceRemovals matches removal messages for every device.
func (t Topics) AllDeviceRemovals() string {
	return fmt.Sprintf("%s/device/+/removed", t.Prefix)
}

// AllServices matches every service call.
func (t Topics) AllServices() string {
	return fmt.Sprintf("%s/service/+", t.Prefix)
}

// DeviceIDFromTopic extracts the device id from a {prefix}/device/{id}/... topic.
func (t Topics) DeviceIDFromTopic(topic string) (string, bool) {
	rest, ok := strings.CutPrefix(topic, t.Prefix+"/device/")
	if !ok {
		return "", false
	}
	id, _, found := strings.Cut(rest, "/")
	if !found || id == "" {
		return "", false
	}
	return id, true
}

// ServiceFromTopic extracts the service name from a {prefix}/service/{name} topic.
func (t Topics) ServiceFromTopic(topic string) (string, bool) {
	name, ok := strings.CutPrefix(topic, t.Prefix+"/service/")
	if !ok || name == "" || strings.Contains(name, "/") {
		return "", false
	}
	return name, true
}
