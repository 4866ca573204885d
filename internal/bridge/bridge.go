package bridge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/nerrad567/tuya-ce-core/internal/activity"
	"github.com/nerrad567/tuya-ce-core/internal/catalog"
	"github.com/nerrad567/tuya-ce-core/internal/device"
	"github.com/nerrad567/tuya-ce-core/internal/infrastructure/influxdb"
	"github.com/nerrad567/tuya-ce-core/internal/infrastructure/mqtt"
	"github.com/nerrad567/tuya-ce-core/internal/platform"
	"github.com/nerrad567/tuya-ce-core/internal/tuya"
)

const (
	// handlerTimeout bounds the database work done for one message.
	handlerTimeout = 10 * time.Second

	// rediscoverTimeout bounds a full rediscovery after a catalog reload.
	rediscoverTimeout = 2 * time.Minute
)

// WebSocket channels the bridge broadcasts on.
const (
	ChannelState     = "state"
	ChannelDiscovery = "discovery"
	ChannelService   = "service"
)

// MQTTClient is the interface for MQTT operations.
// This allows mocking in tests and is satisfied by *mqtt.Client.
type MQTTClient interface {
	Publish(topic string, payload []byte, qos byte, retained bool) error
	Subscribe(topic string, qos byte, handler mqtt.MessageHandler) error
	Unsubscribe(topic string) error
}

// Catalog provides the capability table and units, and can be refreshed.
// It is satisfied by *catalog.Store.
type Catalog interface {
	Snapshot() *catalog.Snapshot
	Load(ctx context.Context, force bool) error
}

// loadNotifier is implemented by catalogs that announce reloads.
type loadNotifier interface {
	OnLoad(fn func(*catalog.Snapshot))
}

// ReadingWriter stores numeric readings. It is satisfied by *influxdb.Client.
type ReadingWriter interface {
	WriteReading(r influxdb.Reading)
}

// Broadcaster pushes events to live clients. It is satisfied by the API's WebSocket hub.
type Broadcaster interface {
	Broadcast(channel string, payload any)
}

// Logger defines the logging interface used by the Bridge.
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

// Options holds the dependencies of a bridge.
type Options struct {
	// MQTT is the broker connection. Required.
	MQTT MQTTClient

	// Topics names the topic namespaces. Zero value uses the defaults.
	Topics mqtt.Topics

	// QoS is used for every publish and subscription.
	QoS byte

	// Registry is the device inventory. Required.
	Registry *device.Registry

	// Catalog supplies the capability table and units. Required.
	Catalog Catalog

	// Readings receives numeric readings. Optional.
	Readings ReadingWriter

	// Broadcaster receives state and discovery events. Optional.
	Broadcaster Broadcaster

	// Activity records new devices, removals and service refreshes. Optional.
	Activity *activity.Recorder

	// Logger is optional structured logger.
	Logger Logger
}

// Bridge translates between the device listener and Home Assistant.
//
// Thread Safety: All methods are safe for concurrent use.
type Bridge struct {
	mqtt        MQTTClient
	topics      mqtt.Topics
	qos         byte
	registry    *device.Registry
	catalog     Catalog
	mapper      *platform.Mapper
	readings    ReadingWriter
	broadcaster Broadcaster
	activity    *activity.Recorder
	logger      Logger

	// Per-device presentation hints from the last discovery
	hints   map[string]Hints
	hintsMu sync.RWMutex

	messages   atomic.Uint64
	statuses   atomic.Uint64
	discovered atomic.Uint64
	failures   atomic.Uint64

	ctx       context.Context
	ctxCancel context.CancelFunc
	wg        sync.WaitGroup
	startOnce sync.Once
	stopOnce  sync.Once

	// Guards wg.Add against Stop; no background work starts once stopped is set
	bgMu    sync.Mutex
	stopped bool
}

// New creates a bridge. Call Start to subscribe.
func New(opts Options) (*Bridge, error) {
	if opts.MQTT == nil {
		return nil, fmt.Errorf("MQTT client is required")
	}
	if opts.Registry == nil {
		return nil, fmt.Errorf("device registry is required")
	}
	if opts.Catalog == nil {
		return nil, fmt.Errorf("catalog is required")
	}

	topics := opts.Topics
	if topics.Prefix == "" {
		topics.Prefix = mqtt.DefaultPrefix
	}
	if topics.DiscoveryPrefix == "" {
		topics.DiscoveryPrefix = mqtt.DefaultDiscoveryPrefix
	}

	logger := opts.Logger
	if logger == nil {
		logger = noopLogger{}
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Bridge{
		mqtt:        opts.MQTT,
		topics:      topics,
		qos:         opts.QoS,
		registry:    opts.Registry,
		catalog:     opts.Catalog,
		mapper:      platform.NewMapper(logger),
		readings:    opts.Readings,
		broadcaster: opts.Broadcaster,
		activity:    opts.Activity,
		logger:      logger,
		hints:       make(map[string]Hints),
		ctx:         ctx,
		ctxCancel:   cancel,
	}, nil
}

func (b *Bridge) subscriptions() map[string]mqtt.MessageHandler {
	return map[string]mqtt.MessageHandler{
		b.topics.AllDeviceDescriptors(): b.handleDescriptor,
		b.topics.AllDeviceStatus():      b.handleStatus,
		b.topics.AllDeviceRemovals():    b.handleRemoved,
		b.topics.AllServices():          b.handleService,
	}
}

// Start discovers every known device, then subscribes to the listener topics.
func (b *Bridge) Start(ctx context.Context) error {
	var err error
	b.startOnce.Do(func() {
		if n, ok := b.catalog.(loadNotifier); ok {
			n.OnLoad(b.onCatalogLoad)
		}

		if rerr := b.Rediscover(ctx); rerr != nil {
			b.logger.Warn("initial discovery incomplete", "error", rerr)
		}

		for topic, handler := range b.subscriptions() {
			if serr := b.mqtt.Subscribe(topic, b.qos, handler); serr != nil {
				err = fmt.Errorf("subscribe to %s: %w", topic, serr)
				return
			}
			b.logger.Info("subscribed", "topic", topic)
		}

		b.logger.Info("bridge started", "devices", b.registry.GetDeviceCount())
	})
	return err
}

// Stop unsubscribes and waits for background work to finish.
func (b *Bridge) Stop() {
	b.stopOnce.Do(func() {
		b.bgMu.Lock()
		b.stopped = true
		b.bgMu.Unlock()
		b.ctxCancel()

		for topic := range b.subscriptions() {
			if err := b.mqtt.Unsubscribe(topic); err != nil {
				b.logger.Warn("unsubscribe failed", "topic", topic, "error", err)
			}
		}

		b.wg.Wait()
		b.logger.Info("bridge stopped")
	})
}

// Rediscover republishes discovery for every known device.
func (b *Bridge) Rediscover(ctx context.Context) error {
	var errs []error
	devices := b.registry.ListDevices()
	for i := range devices {
		if _, err := b.discover(ctx, &devices[i]); err != nil {
			errs = append(errs, fmt.Errorf("device %s: %w", devices[i].ID, err))
		}
	}
	b.logger.Info("discovery complete", "devices", len(devices), "failed", len(errs))
	return errors.Join(errs...)
}

// goBackground runs fn on a tracked goroutine. It reports false once the
// bridge is stopped.
func (b *Bridge) goBackground(fn func()) bool {
	b.bgMu.Lock()
	defer b.bgMu.Unlock()
	if b.stopped {
		return false
	}
	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		fn()
	}()
	return true
}

func (b *Bridge) onCatalogLoad(_ *catalog.Snapshot) {
	started := b.goBackground(func() {
		ctx, cancel := context.WithTimeout(b.ctx, rediscoverTimeout)
		defer cancel()
		if err := b.Rediscover(ctx); err != nil {
			b.logger.Warn("rediscovery after catalog load incomplete", "error", err)
		}
	})
	if !started {
		b.logger.Debug("catalog loaded after stop, rediscovery skipped")
	}
}

// Entities maps a device onto its entities with the current capability table.
func (b *Bridge) Entities(dev *tuya.DeviceDescriptor) []platform.Entity {
	category, ok := b.catalog.Snapshot().Devices.Category(dev.Category)
	if !ok {
		return nil
	}
	return b.mapper.Entities(dev, category)
}

// discover migrates legacy ids, publishes discovery configs for the device's
// current entities and clears the configs of entities it no longer has.
func (b *Bridge) discover(ctx context.Context, dev *device.Device) ([]platform.Entity, error) {
	previous, err := b.registry.Entities(ctx, dev.ID)
	if err != nil {
		return nil, fmt.Errorf("loading entities: %w", err)
	}

	existing := make(map[string]bool, len(previous))
	for _, e := range previous {
		existing[e.UniqueID] = true
	}
	for _, r := range platform.LegacyMigrations(dev.ID, dev.Category, existing) {
		if err := b.registry.RenameEntity(ctx, r.From, r.To); err != nil {
			b.logger.Warn("legacy unique id migration failed", "from", r.From, "to", r.To, "error", err)
		}
	}

	snap := b.catalog.Snapshot()
	entities := b.Entities(&dev.DeviceDescriptor)
	if len(entities) == 0 {
		b.logger.Debug("no entities for device", "device_id", dev.ID, "category", dev.Category)
	}

	current := make(map[string]bool, len(entities))
	records := make([]device.Entity, 0, len(entities))
	var errs []error

	for _, e := range entities {
		current[e.UniqueID] = true
		records = append(records, device.Entity{
			UniqueID: e.UniqueID,
			Platform: string(e.Platform),
			Key:      e.Key,
		})

		cfg := BuildDiscovery(b.topics, snap.Units, &dev.DeviceDescriptor, e)
		if err := b.publishJSON(b.topics.Discovery(string(e.Platform), dev.ID, e.Key), cfg, true); err != nil {
			errs = append(errs, err)
			continue
		}
		b.discovered.Add(1)
	}

	for _, e := range previous {
		if current[e.UniqueID] {
			continue
		}
		if err := b.mqtt.Publish(b.topics.Discovery(e.Platform, dev.ID, e.Key), nil, b.qos, true); err != nil {
			errs = append(errs, err)
		}
	}

	if err := b.registry.SaveEntities(ctx, dev.ID, records); err != nil {
		errs = append(errs, fmt.Errorf("saving entities: %w", err))
	}

	b.hintsMu.Lock()
	b.hints[dev.ID] = HintsFor(entities)
	b.hintsMu.Unlock()

	b.broadcast(ChannelDiscovery, map[string]any{
		"device_id": dev.ID,
		"entities":  entities,
	})

	return entities, errors.Join(errs...)
}

func (b *Bridge) hintsFor(id string) Hints {
	b.hintsMu.RLock()
	defer b.hintsMu.RUnlock()
	return b.hints[id]
}

func (b *Bridge) deviceID(topic string) (string, error) {
	id, ok := b.topics.DeviceIDFromTopic(topic)
	if !ok {
		return "", fmt.Errorf("%w: topic %s", ErrInvalidMessage, topic)
	}
	return id, nil
}

func (b *Bridge) handleDescriptor(topic string, payload []byte) error {
	b.messages.Add(1)
	id, err := b.deviceID(topic)
	if err != nil {
		return b.fail(err)
	}
	if len(payload) == 0 {
		return nil
	}

	msg, err := decodeDescriptor(id, payload)
	if err != nil {
		return b.fail(err)
	}

	ctx, cancel := context.WithTimeout(b.ctx, handlerTimeout)
	defer cancel()

	online := true
	if msg.Online != nil {
		online = *msg.Online
	}
	dev, created, err := b.registry.RegisterDevice(ctx, &msg.DeviceDescriptor, online)
	if err != nil {
		return b.fail(fmt.Errorf("registering device %s: %w", id, err))
	}
	if created {
		b.activity.Record(ctx, activity.Entry{
			Action:    activity.ActionDeviceRegistered,
			Subject:   activity.SubjectDevice,
			SubjectID: id,
			Source:    activity.SourceBridge,
			Details:   map[string]any{"category": dev.Category, "name": dev.Name},
		})
	}

	if _, err := b.discover(ctx, dev); err != nil {
		return b.fail(fmt.Errorf("discovering device %s: %w", id, err))
	}
	return nil
}

func (b *Bridge) handleStatus(topic string, payload []byte) error {
	b.messages.Add(1)
	id, err := b.deviceID(topic)
	if err != nil {
		return b.fail(err)
	}

	msg, err := decodeStatus(id, payload)
	if err != nil {
		return b.fail(err)
	}
	if len(msg.Status) == 0 {
		return nil
	}

	ctx, cancel := context.WithTimeout(b.ctx, handlerTimeout)
	defer cancel()

	dev, err := b.registry.ApplyStatus(ctx, id, msg.Status)
	if err != nil {
		if errors.Is(err, device.ErrDeviceNotFound) {
			b.logger.Debug("status for unknown device ignored", "device_id", id)
			return nil
		}
		return b.fail(fmt.Errorf("applying status for %s: %w", id, err))
	}

	reg := b.catalog.Snapshot().Units
	hints := b.hintsFor(id)
	var errs []error

	for _, u := range msg.Status {
		state := Normalize(reg, &dev.DeviceDescriptor, u, hints)
		if err := b.publishJSON(b.topics.EntityState(id, u.Code), state, true); err != nil {
			errs = append(errs, err)
		}

		if v, ok := state.Numeric(); ok && b.readings != nil {
			b.readings.WriteReading(influxdb.Reading{
				DeviceID:    id,
				Category:    dev.Category,
				Code:        u.Code,
				DeviceClass: state.DeviceClass,
				Unit:        state.Unit,
				Value:       v,
				Time:        state.Time,
			})
		}

		b.broadcast(ChannelState, state)
		b.statuses.Add(1)
	}

	if err := b.publishJSON(b.topics.EntityState(id, ""), b.deviceState(dev, hints), true); err != nil {
		errs = append(errs, err)
	}

	if err := errors.Join(errs...); err != nil {
		return b.fail(err)
	}
	return nil
}

// deviceState is the device-wide state followed by simple-platform entities.
func (b *Bridge) deviceState(dev *device.Device, hints Hints) map[string]any {
	reg := b.catalog.Snapshot().Units
	out := make(map[string]any, len(dev.Status)+1)
	for _, code := range tuya.SortedKeys(dev.Status) {
		s := Normalize(reg, &dev.DeviceDescriptor, device.StatusUpdate{Code: code, Value: dev.Status[code]}, hints)
		out[code] = s.Value
	}
	out["online"] = dev.Online
	return out
}

func (b *Bridge) handleRemoved(topic string, _ []byte) error {
	b.messages.Add(1)
	id, err := b.deviceID(topic)
	if err != nil {
		return b.fail(err)
	}

	ctx, cancel := context.WithTimeout(b.ctx, handlerTimeout)
	defer cancel()

	entities, err := b.registry.Entities(ctx, id)
	if err != nil {
		if errors.Is(err, device.ErrDeviceNotFound) {
			return nil
		}
		return b.fail(err)
	}

	var errs []error
	for _, e := range entities {
		if err := b.mqtt.Publish(b.topics.Discovery(e.Platform, id, e.Key), nil, b.qos, true); err != nil {
			errs = append(errs, err)
		}
	}

	switch err := b.registry.RemoveDevice(ctx, id); {
	case err == nil:
		b.activity.Record(ctx, activity.Entry{
			Action:    activity.ActionDeviceRemoved,
			Subject:   activity.SubjectDevice,
			SubjectID: id,
			Source:    activity.SourceBridge,
			Details:   map[string]any{"entities": len(entities)},
		})
	case !errors.Is(err, device.ErrDeviceNotFound):
		errs = append(errs, err)
	}

	b.hintsMu.Lock()
	delete(b.hints, id)
	b.hintsMu.Unlock()

	if err := errors.Join(errs...); err != nil {
		return b.fail(err)
	}
	return nil
}

func (b *Bridge) handleService(topic string, _ []byte) error {
	b.messages.Add(1)
	name, ok := b.topics.ServiceFromTopic(topic)
	if !ok {
		return b.fail(fmt.Errorf("%w: topic %s", ErrInvalidMessage, topic))
	}

	switch name {
	case mqtt.ServiceUpdateRemoteConfiguration:
		started := b.goBackground(func() {
			err := b.RefreshCatalog(b.ctx)
			snap := b.catalog.Snapshot()
			b.activity.Record(b.ctx, activity.CatalogRefresh(activity.SourceMQTT, "", len(snap.Devices), len(snap.Countries), err))
		})
		if !started {
			return ErrStopped
		}
		return nil
	default:
		return b.fail(fmt.Errorf("%w: %s", ErrUnknownService, name))
	}
}

// RefreshCatalog forces a remote catalog reload and reports the outcome.
// Rediscovery follows through the catalog's load notification.
func (b *Bridge) RefreshCatalog(ctx context.Context) error {
	err := b.catalog.Load(ctx, true)

	result := ServiceResult{Service: mqtt.ServiceUpdateRemoteConfiguration, Success: err == nil}
	if err != nil {
		result.Error = err.Error()
		b.logger.Error("remote configuration update failed", "error", err)
	} else {
		b.logger.Info("remote configuration updated")
	}
	b.broadcast(ChannelService, result)
	return err
}

func (b *Bridge) publishJSON(topic string, v any, retained bool) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshalling %s: %w", topic, err)
	}
	if err := b.mqtt.Publish(topic, payload, b.qos, retained); err != nil {
		return fmt.Errorf("publishing %s: %w", topic, err)
	}
	return nil
}

func (b *Bridge) broadcast(channel string, payload any) {
	if b.broadcaster != nil {
		b.broadcaster.Broadcast(channel, payload)
	}
}

func (b *Bridge) fail(err error) error {
	b.failures.Add(1)
	return err
}

// Metrics contains bridge counters for the health endpoint.
type Metrics struct {
	MessagesReceived  uint64 `json:"messages_received"`
	StatusUpdates     uint64 `json:"status_updates"`
	DiscoveryConfigs  uint64 `json:"discovery_configs"`
	Failures          uint64 `json:"failures"`
	DevicesDiscovered int    `json:"devices_discovered"`
}

// GetMetrics returns current bridge counters.
func (b *Bridge) GetMetrics() Metrics {
	b.hintsMu.RLock()
	devices := len(b.hints)
	b.hintsMu.RUnlock()

	return Metrics{
		MessagesReceived:  b.messages.Load(),
		StatusUpdates:     b.statuses.Load(),
		DiscoveryConfigs:  b.discovered.Load(),
		Failures:          b.failures.Load(),
		DevicesDiscovered: devices,
	}
}
