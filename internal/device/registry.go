package device

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/nerrad567/tuya-ce-core/internal/tuya"
)

// Logger defines the logging interface used by the Registry.
// This allows different logging implementations to be used.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Registry provides device management with caching and thread safety.
// It wraps a Repository and adds an in-memory cache for fast lookups.
//
// The cache is populated on startup via RefreshCache() and kept in sync
// by every write operation.
//
// All public methods are thread-safe.
type Registry struct {
	repo    Repository
	cache   map[string]*Device // Cached devices by ID
	cacheMu sync.RWMutex       // Protects cache
	writeMu sync.Mutex         // Serialises read-modify-write of a device
	logger  Logger
	now     func() time.Time
}

// NewRegistry creates a new device registry.
// The repository is used for persistence; the registry adds caching.
func NewRegistry(repo Repository) *Registry {
	return &Registry{
		repo:   repo,
		cache:  make(map[string]*Device),
		logger: noopLogger{},
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// SetLogger sets the logger for the registry.
func (r *Registry) SetLogger(logger Logger) {
	r.logger = logger
}

// RefreshCache reloads all devices from the repository into the cache.
// This should be called on application startup.
func (r *Registry) RefreshCache(ctx context.Context) error {
	devices, err := r.repo.List(ctx)
	if err != nil {
		return fmt.Errorf("loading devices: %w", err)
	}

	r.cacheMu.Lock()
	defer r.cacheMu.Unlock()

	r.cache = make(map[string]*Device, len(devices))
	for i := range devices {
		d := devices[i]
		r.cache[d.ID] = d.DeepCopy()
	}

	r.logger.Info("device cache refreshed", "count", len(devices))
	return nil
}

// GetDevice retrieves a device by ID.
// Returns ErrDeviceNotFound if the device does not exist.
// The returned device is a deep copy; callers can safely modify it.
func (r *Registry) GetDevice(ctx context.Context, id string) (*Device, error) {
	r.cacheMu.RLock()
	cached, ok := r.cache[id]
	r.cacheMu.RUnlock()

	if ok {
		return cached.DeepCopy(), nil
	}

	device, err := r.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	r.cacheMu.Lock()
	r.cache[id] = device.DeepCopy()
	r.cacheMu.Unlock()

	return device, nil
}

// ListDevices returns all cached devices ordered by name, then id.
// The returned devices are deep copies; callers can safely modify them.
func (r *Registry) ListDevices() []Device {
	r.cacheMu.RLock()
	devices := make([]Device, 0, len(r.cache))
	for _, d := range r.cache {
		devices = append(devices, *d.DeepCopy())
	}
	r.cacheMu.RUnlock()

	sort.Slice(devices, func(i, j int) bool {
		if devices[i].Name != devices[j].Name {
			return devices[i].Name < devices[j].Name
		}
		return devices[i].ID < devices[j].ID
	})
	return devices
}

// Descriptors returns the descriptors of all cached devices, ordered as ListDevices.
func (r *Registry) Descriptors() []*tuya.DeviceDescriptor {
	devices := r.ListDevices()
	out := make([]*tuya.DeviceDescriptor, len(devices))
	for i := range devices {
		out[i] = &devices[i].DeviceDescriptor
	}
	return out
}

// RegisterDevice stores a device descriptor, replacing the previous one.
// It reports whether the device was previously unknown.
func (r *Registry) RegisterDevice(ctx context.Context, desc *tuya.DeviceDescriptor, online bool) (*Device, bool, error) {
	r.writeMu.Lock()
	defer r.writeMu.Unlock()

	if desc == nil {
		return nil, false, fmt.Errorf("%w: nil descriptor", ErrInvalidDevice)
	}

	device := &Device{
		DeviceDescriptor: *desc.DeepCopy(),
		Online:           online,
		UpdatedAt:        r.now(),
	}
	if err := ValidateDevice(device); err != nil {
		return nil, false, err
	}

	r.cacheMu.RLock()
	existing, known := r.cache[device.ID]
	r.cacheMu.RUnlock()
	if known {
		device.CreatedAt = existing.CreatedAt
	}

	if err := r.repo.Upsert(ctx, device); err != nil {
		return nil, false, err
	}

	r.cacheMu.Lock()
	r.cache[device.ID] = device.DeepCopy()
	r.cacheMu.Unlock()

	if known {
		r.logger.Debug("device updated", "id", device.ID, "category", device.Category)
	} else {
		r.logger.Info("device registered", "id", device.ID, "name", device.Name, "category", device.Category)
	}
	return device.DeepCopy(), !known, nil
}

// RemoveDevice forgets a device and its entity records.
func (r *Registry) RemoveDevice(ctx context.Context, id string) error {
	r.writeMu.Lock()
	defer r.writeMu.Unlock()

	if err := r.repo.Delete(ctx, id); err != nil {
		return err
	}

	r.cacheMu.Lock()
	delete(r.cache, id)
	r.cacheMu.Unlock()

	r.logger.Info("device removed", "id", id)
	return nil
}

// ApplyStatus merges status updates into the device's status map.
// Codes not yet known are added. The updated device is returned.
func (r *Registry) ApplyStatus(ctx context.Context, id string, updates []StatusUpdate) (*Device, error) {
	r.writeMu.Lock()
	defer r.writeMu.Unlock()

	if err := ValidateStatus(updates); err != nil {
		return nil, err
	}

	current, err := r.GetDevice(ctx, id)
	if err != nil {
		return nil, err
	}

	if current.Status == nil {
		current.Status = make(map[string]any, len(updates))
	}
	for _, u := range updates {
		current.Status[u.Code] = tuya.CloneValue(u.Value)
	}
	current.Online = true
	current.UpdatedAt = r.now()

	if err := r.repo.Upsert(ctx, current); err != nil {
		return nil, err
	}

	r.cacheMu.Lock()
	r.cache[id] = current.DeepCopy()
	r.cacheMu.Unlock()

	r.logger.Debug("device status updated", "id", id, "codes", len(updates))
	return current, nil
}

// SetOnline updates a device's online flag.
func (r *Registry) SetOnline(ctx context.Context, id string, online bool) error {
	r.writeMu.Lock()
	defer r.writeMu.Unlock()

	now := r.now()
	if err := r.repo.SetOnline(ctx, id, online, now); err != nil {
		return err
	}

	r.cacheMu.Lock()
	if cached, ok := r.cache[id]; ok {
		updated := cached.DeepCopy()
		updated.Online = online
		updated.UpdatedAt = now
		r.cache[id] = updated
	}
	r.cacheMu.Unlock()

	r.logger.Debug("device online flag updated", "id", id, "online", online)
	return nil
}

// Entities returns the entity records published for a device.
func (r *Registry) Entities(ctx context.Context, id string) ([]Entity, error) {
	if _, err := r.GetDevice(ctx, id); err != nil {
		return nil, err
	}
	return r.repo.Entities(ctx, id)
}

// UniqueIDs returns the set of entity unique ids published for a device.
func (r *Registry) UniqueIDs(ctx context.Context, id string) (map[string]bool, error) {
	entities, err := r.repo.Entities(ctx, id)
	if err != nil {
		return nil, err
	}
	ids := make(map[string]bool, len(entities))
	for _, e := range entities {
		ids[e.UniqueID] = true
	}
	return ids, nil
}

// RenameEntity moves an entity record to a new unique id.
func (r *Registry) RenameEntity(ctx context.Context, from, to string) error {
	if err := r.repo.RenameEntity(ctx, from, to); err != nil {
		return err
	}
	r.logger.Info("entity unique id migrated", "from", from, "to", to)
	return nil
}

// SaveEntities records the entities currently published for a device.
func (r *Registry) SaveEntities(ctx context.Context, id string, entities []Entity) error {
	return r.repo.SaveEntities(ctx, id, entities)
}

// GetDeviceCount returns the number of cached devices.
func (r *Registry) GetDeviceCount() int {
	r.cacheMu.RLock()
	defer r.cacheMu.RUnlock()
	return len(r.cache)
}

// GetStats returns current registry statistics.
func (r *Registry) GetStats() Stats {
	r.cacheMu.RLock()
	defer r.cacheMu.RUnlock()

	stats := Stats{
		TotalDevices: len(r.cache),
		ByCategory:   make(map[string]int),
	}
	for _, d := range r.cache {
		stats.ByCategory[d.Category]++
		if d.Online {
			stats.Online++
		}
	}
	return stats
}
