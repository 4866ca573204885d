package platform

import (
	"github.com/nerrad567/tuya-ce-core/internal/capability"
	"github.com/nerrad567/tuya-ce-core/internal/tuya"
)

// Logger defines the logging interface used by the Mapper.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Details is the setup decision for one platform capability.
type Details struct {
	Enabled     bool        `json:"enabled"`
	Simple      bool        `json:"simple"`
	Description Description `json:"description,omitempty"`
}

// Entity is an enabled entity of a device.
type Entity struct {
	UniqueID    string      `json:"unique_id"`
	DeviceID    string      `json:"device_id"`
	Platform    Platform    `json:"platform"`
	Key         string      `json:"key,omitempty"`
	Description Description `json:"description,omitempty"`
}

// Mapper turns capability table entries into entities for live devices.
// It holds no state besides its logger and is safe for concurrent use.
type Mapper struct {
	logger Logger
}

// NewMapper creates a mapper. A nil logger discards output.
func NewMapper(logger Logger) *Mapper {
	if logger == nil {
		logger = noopLogger{}
	}
	return &Mapper{logger: logger}
}

// IsEnabled reports whether the platform capability applies to device.
// entry is the category's table entry for p; item is the capability being
// checked and is ignored for simple platforms.
func (m *Mapper) IsEnabled(p Platform, entry capability.DomainEntry, item capability.Capability, device *tuya.DeviceDescriptor) bool {
	if !p.Valid() {
		m.logger.Warn("platform not supported", "platform", string(p))
		return false
	}

	switch {
	case p.Simple():
		return entry.Simple && entry.Enabled
	case p == AlarmControlPanel:
		return item != nil
	case p == BinarySensor:
		if device.HasStatus(item.Key()) {
			return true
		}
		dpcode, ok := item.String("dpcode")
		return ok && device.HasStatus(dpcode)
	case p == Cover:
		return device.HasFunction(item.Key()) || device.HasStatusRange(item.Key())
	default:
		return device.HasStatus(item.Key())
	}
}

// Details returns the enablement and description for one capability.
// Simple platforms never carry a description.
func (m *Mapper) Details(p Platform, entry capability.DomainEntry, item capability.Capability, device *tuya.DeviceDescriptor) Details {
	enabled := m.IsEnabled(p, entry, item, device)
	d := Details{
		Enabled: enabled,
		Simple:  enabled && p.Simple(),
	}
	if !p.Simple() && item != nil {
		d.Description = Describe(p, item)
	}
	return d
}

// Entities returns the enabled entities of device under its category entry,
// walking platforms in setup order.
func (m *Mapper) Entities(device *tuya.DeviceDescriptor, category capability.CategoryEntry) []Entity {
	var entities []Entity

	for _, p := range all {
		entry, ok := category[string(p)]
		if !ok {
			continue
		}

		if p.Simple() {
			if m.IsEnabled(p, entry, nil, device) {
				entities = append(entities, Entity{
					UniqueID: UniqueID(device.ID, ""),
					DeviceID: device.ID,
					Platform: p,
				})
			}
			continue
		}

		for _, item := range entry.Capabilities {
			key := item.Key()
			if key == "" {
				m.logger.Warn("capability without key", "platform", string(p), "category", device.Category)
				continue
			}

			details := m.Details(p, entry, item, device)
			if !details.Enabled {
				continue
			}
			m.logger.Debug("entity enabled", "device_id", device.ID, "platform", string(p), "key", key)

			entities = append(entities, Entity{
				UniqueID:    UniqueID(device.ID, key),
				DeviceID:    device.ID,
				Platform:    p,
				Key:         key,
				Description: details.Description,
			})
		}
	}

	return entities
}
