package bridge

import (
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/nerrad567/tuya-ce-core/internal/activity"
	"github.com/nerrad567/tuya-ce-core/internal/capability"
	"github.com/nerrad567/tuya-ce-core/internal/catalog"
	"github.com/nerrad567/tuya-ce-core/internal/device"
	"github.com/nerrad567/tuya-ce-core/internal/infrastructure/database"
	"github.com/nerrad567/tuya-ce-core/internal/infrastructure/influxdb"
	"github.com/nerrad567/tuya-ce-core/internal/infrastructure/mqtt"
	"github.com/nerrad567/tuya-ce-core/internal/units"
	_ "github.com/nerrad567/tuya-ce-core/migrations"
)

// MockMQTTClient implements MQTTClient for testing.
type MockMQTTClient struct {
	mu        sync.Mutex
	published []mockPublish
	handlers  map[string]mqtt.MessageHandler
	unsubbed  []string
}

type mockPublish struct {
	Topic    string
	Payload  []byte
	QoS      byte
	Retained bool
}

func NewMockMQTTClient() *MockMQTTClient {
	return &MockMQTTClient{handlers: make(map[string]mqtt.MessageHandler)}
}

func (m *MockMQTTClient) Publish(topic string, payload []byte, qos byte, retained bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.published = append(m.published, mockPublish{Topic: topic, Payload: payload, QoS: qos, Retained: retained})
	return nil
}

func (m *MockMQTTClient) Subscribe(topic string, _ byte, handler mqtt.MessageHandler) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers[topic] = handler
	return nil
}

func (m *MockMQTTClient) Unsubscribe(topic string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.unsubbed = append(m.unsubbed, topic)
	delete(m.handlers, topic)
	return nil
}

// Last returns the most recent publish to topic.
func (m *MockMQTTClient) Last(topic string) (mockPublish, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := len(m.published) - 1; i >= 0; i-- {
		if m.published[i].Topic == topic {
			return m.published[i], true
		}
	}
	return mockPublish{}, false
}

func (m *MockMQTTClient) ClearPublished() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.published = nil
}

// SimulateMessage delivers a message to the handler whose filter matches topic.
func (m *MockMQTTClient) SimulateMessage(topic string, payload []byte) error {
	m.mu.Lock()
	var handler mqtt.MessageHandler
	for filter, h := range m.handlers {
		if topicMatches(filter, topic) {
			handler = h
			break
		}
	}
	m.mu.Unlock()

	if handler == nil {
		return errors.New("no subscription for " + topic)
	}
	return handler(topic, payload)
}

func topicMatches(filter, topic string) bool {
	f := strings.Split(filter, "/")
	t := strings.Split(topic, "/")
	if len(f) != len(t) {
		return false
	}
	for i := range f {
		if f[i] != "+" && f[i] != t[i] {
			return false
		}
	}
	return true
}

type fakeCatalog struct {
	mu        sync.Mutex
	snap      *catalog.Snapshot
	loadErr   error
	forced    int
	listeners []func(*catalog.Snapshot)
}

func (c *fakeCatalog) Snapshot() *catalog.Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snap
}

func (c *fakeCatalog) Load(_ context.Context, force bool) error {
	c.mu.Lock()
	if force {
		c.forced++
	}
	err := c.loadErr
	snap := c.snap
	listeners := append([]func(*catalog.Snapshot){}, c.listeners...)
	c.mu.Unlock()

	if err != nil {
		return err
	}
	for _, fn := range listeners {
		fn(snap)
	}
	return nil
}

func (c *fakeCatalog) forcedLoads() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.forced
}

func (c *fakeCatalog) OnLoad(fn func(*catalog.Snapshot)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.listeners = append(c.listeners, fn)
}

type fakeReadings struct {
	mu       sync.Mutex
	readings []influxdb.Reading
}

func (f *fakeReadings) WriteReading(r influxdb.Reading) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.readings = append(f.readings, r)
}

type fakeBroadcaster struct {
	mu     sync.Mutex
	events map[string][]any
}

func (f *fakeBroadcaster) Broadcast(channel string, payload any) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.events == nil {
		f.events = make(map[string][]any)
	}
	f.events[channel] = append(f.events[channel], payload)
}

func (f *fakeBroadcaster) count(channel string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.events[channel])
}

const testTable = `{
	"kg": {
		"switch": [{"key": "switch_1", "name": "Outlet"}],
		"sensor": [
			{"key": "cur_power", "device_class": "power", "state_class": "measurement"},
			{"key": "cur_current", "device_class": "current"}
		],
		"binary_sensor": [{"key": "doorcontact_state", "device_class": "door"}]
	}
}`

const testDescriptorPayload = `{
	"id": "bf01",
	"name": "Desk Plug",
	"model": "SP10",
	"category": "kg",
	"function": {"switch_1": {"type": "Boolean", "values": "{}"}},
	"status_range": {
		"switch_1": {"type": "Boolean", "values": "{}"},
		"cur_power": {"type": "Integer", "values": "{\"unit\":\"W\",\"min\":0,\"max\":50000,\"scale\":1,\"step\":1}"},
		"cur_current": {"type": "Integer", "values": "{\"unit\":\"mA\",\"min\":0,\"max\":30000,\"scale\":0,\"step\":1}"}
	},
	"status": {"switch_1": false, "cur_power": 0, "cur_current": 0}
}`

type testEnv struct {
	bridge      *Bridge
	mqtt        *MockMQTTClient
	registry    *device.Registry
	catalog     *fakeCatalog
	readings    *fakeReadings
	broadcaster *fakeBroadcaster
	activity    *activity.SQLiteRepository
}

func setupBridge(t *testing.T) *testEnv {
	t.Helper()
	ctx := context.Background()

	db, err := database.Open(ctx, database.Config{
		Path:        filepath.Join(t.TempDir(), "test.db"),
		BusyTimeout: 5,
	})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	t.Cleanup(func() { db.Close() }) //nolint:errcheck // Test cleanup
	if err := db.Migrate(ctx); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}

	table, err := capability.ParseTable([]byte(testTable))
	if err != nil {
		t.Fatalf("ParseTable() error = %v", err)
	}

	env := &testEnv{
		mqtt:        NewMockMQTTClient(),
		registry:    device.NewRegistry(device.NewSQLiteRepository(db.DB)),
		catalog:     &fakeCatalog{snap: &catalog.Snapshot{Devices: table, Units: units.Default()}},
		readings:    &fakeReadings{},
		broadcaster: &fakeBroadcaster{},
		activity:    activity.NewSQLiteRepository(db.DB),
	}

	env.bridge, err = New(Options{
		MQTT:        env.mqtt,
		QoS:         1,
		Registry:    env.registry,
		Catalog:     env.catalog,
		Readings:    env.readings,
		Broadcaster: env.broadcaster,
		Activity:    activity.NewRecorder(env.activity, nil),
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if err := env.bridge.Start(ctx); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	t.Cleanup(env.bridge.Stop)

	return env
}

// waitFor polls cond until it holds or two seconds pass.
func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func decodePayload[T any](t *testing.T, p mockPublish) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(p.Payload, &v); err != nil {
		t.Fatalf("decoding %s: %v", p.Topic, err)
	}
	return v
}

func TestNew_RequiresDependencies(t *testing.T) {
	reg := device.NewRegistry(nil)
	cat := &fakeCatalog{}

	tests := []struct {
		name string
		opts Options
	}{
		{"no mqtt", Options{Registry: reg, Catalog: cat}},
		{"no registry", Options{MQTT: NewMockMQTTClient(), Catalog: cat}},
		{"no catalog", Options{MQTT: NewMockMQTTClient(), Registry: reg}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := New(tt.opts); err == nil {
				t.Error("New() expected error")
			}
		})
	}
}

func TestBridge_Start_Subscribes(t *testing.T) {
	env := setupBridge(t)

	for _, topic := range []string{
		"tuyace/device/+/descriptor",
		"tuyace/device/+/status",
		"tuyace/device/+/removed",
		"tuyace/service/+",
	} {
		if _, ok := env.mqtt.handlers[topic]; !ok {
			t.Errorf("not subscribed to %s", topic)
		}
	}
}

func TestBridge_Descriptor_PublishesDiscovery(t *testing.T) {
	env := setupBridge(t)

	if err := env.mqtt.SimulateMessage("tuyace/device/bf01/descriptor", []byte(testDescriptorPayload)); err != nil {
		t.Fatalf("descriptor handler error = %v", err)
	}

	dev, err := env.registry.GetDevice(context.Background(), "bf01")
	if err != nil {
		t.Fatalf("device not registered: %v", err)
	}
	if !dev.Online || dev.Model != "SP10" {
		t.Errorf("device = %+v", dev)
	}

	sw, ok := env.mqtt.Last("homeassistant/switch/tuyace_bf01/switch_1/config")
	if !ok {
		t.Fatal("switch discovery not published")
	}
	if !sw.Retained {
		t.Error("discovery must be retained")
	}
	swCfg := decodePayload[DiscoveryConfig](t, sw)
	if swCfg.UniqueID != "tuya.bf01switch_1" || swCfg.Name != "Outlet" {
		t.Errorf("switch config = %+v", swCfg)
	}
	if swCfg.StateTopic != "tuyace/state/bf01/switch_1" || swCfg.AvailabilityTopic != "tuyace/system/status" {
		t.Errorf("switch topics = %q, %q", swCfg.StateTopic, swCfg.AvailabilityTopic)
	}
	if swCfg.Device.Manufacturer != Manufacturer || swCfg.Device.Identifiers[0] != "tuyace_bf01" {
		t.Errorf("switch device = %+v", swCfg.Device)
	}

	cur, ok := env.mqtt.Last("homeassistant/sensor/tuyace_bf01/cur_current/config")
	if !ok {
		t.Fatal("current sensor discovery not published")
	}
	curCfg := decodePayload[DiscoveryConfig](t, cur)
	if curCfg.UnitOfMeasurement != "A" || curCfg.DeviceClass != "current" {
		t.Errorf("current sensor unit = %q class = %q, want A/current", curCfg.UnitOfMeasurement, curCfg.DeviceClass)
	}

	if _, ok := env.mqtt.Last("homeassistant/binary_sensor/tuyace_bf01/doorcontact_state/config"); ok {
		t.Error("binary sensor without status should not be discovered")
	}

	entities, err := env.registry.Entities(context.Background(), "bf01")
	if err != nil {
		t.Fatalf("Entities() error = %v", err)
	}
	if len(entities) != 3 {
		t.Errorf("recorded %d entities, want 3: %+v", len(entities), entities)
	}
	if env.broadcaster.count(ChannelDiscovery) != 1 {
		t.Errorf("discovery broadcasts = %d, want 1", env.broadcaster.count(ChannelDiscovery))
	}
	if m := env.bridge.GetMetrics(); m.DiscoveryConfigs != 3 || m.DevicesDiscovered != 1 {
		t.Errorf("metrics = %+v", m)
	}
}

func TestBridge_Descriptor_Errors(t *testing.T) {
	env := setupBridge(t)

	tests := []struct {
		name    string
		topic   string
		payload string
		wantErr error
	}{
		{"invalid json", "tuyace/device/bf01/descriptor", `{`, ErrInvalidMessage},
		{"id mismatch", "tuyace/device/bf01/descriptor", `{"id": "bf02"}`, ErrTopicMismatch},
		{"invalid id", "tuyace/device/bf+01/descriptor", `{}`, device.ErrInvalidDevice},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := env.bridge.handleDescriptor(tt.topic, []byte(tt.payload))
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("error = %v, want %v", err, tt.wantErr)
			}
		})
	}

	if err := env.bridge.handleDescriptor("tuyace/device/bf01/descriptor", nil); err != nil {
		t.Errorf("empty retained payload should be ignored, got %v", err)
	}
	if env.bridge.GetMetrics().Failures != uint64(len(tests)) {
		t.Errorf("failures = %d, want %d", env.bridge.GetMetrics().Failures, len(tests))
	}
}

func TestBridge_Descriptor_TakesIDFromTopic(t *testing.T) {
	env := setupBridge(t)

	if err := env.mqtt.SimulateMessage("tuyace/device/bf09/descriptor", []byte(`{"category": "kg", "online": false}`)); err != nil {
		t.Fatalf("descriptor handler error = %v", err)
	}
	dev, err := env.registry.GetDevice(context.Background(), "bf09")
	if err != nil {
		t.Fatalf("GetDevice() error = %v", err)
	}
	if dev.Online {
		t.Error("explicit online=false ignored")
	}
}

func TestBridge_Status_PublishesNormalisedState(t *testing.T) {
	env := setupBridge(t)

	if err := env.mqtt.SimulateMessage("tuyace/device/bf01/descriptor", []byte(testDescriptorPayload)); err != nil {
		t.Fatalf("descriptor handler error = %v", err)
	}

	status := `{"devId": "bf01", "status": [
		{"code": "switch_1", "value": true, "t": 1700000000000},
		{"code": "cur_power", "value": 1234, "t": 1700000000000},
		{"code": "cur_current", "value": 2500, "t": 1700000000000}
	]}`
	if err := env.mqtt.SimulateMessage("tuyace/device/bf01/status", []byte(status)); err != nil {
		t.Fatalf("status handler error = %v", err)
	}

	sw, ok := env.mqtt.Last("tuyace/state/bf01/switch_1")
	if !ok {
		t.Fatal("switch state not published")
	}
	if got := decodePayload[map[string]any](t, sw); got["value"] != PayloadOn || got["raw"] != true {
		t.Errorf("switch state = %v", got)
	}

	power, ok := env.mqtt.Last("tuyace/state/bf01/cur_power")
	if !ok {
		t.Fatal("power state not published")
	}
	if got := decodePayload[map[string]any](t, power); got["value"] != 123.4 || got["unit"] != "W" {
		t.Errorf("power state = %v, want 123.4 W", got)
	}

	current, ok := env.mqtt.Last("tuyace/state/bf01/cur_current")
	if !ok {
		t.Fatal("current state not published")
	}
	if got := decodePayload[map[string]any](t, current); got["value"] != 2.5 || got["unit"] != "A" {
		t.Errorf("current state = %v, want 2.5 A", got)
	}

	whole, ok := env.mqtt.Last("tuyace/state/bf01")
	if !ok {
		t.Fatal("device state not published")
	}
	if got := decodePayload[map[string]any](t, whole); got["switch_1"] != PayloadOn || got["online"] != true {
		t.Errorf("device state = %v", got)
	}

	env.readings.mu.Lock()
	readings := append([]influxdb.Reading(nil), env.readings.readings...)
	env.readings.mu.Unlock()
	if len(readings) != 2 {
		t.Fatalf("readings = %+v, want power and current", readings)
	}
	if readings[0].Code != "cur_power" || readings[0].Value != 123.4 || readings[0].Category != "kg" {
		t.Errorf("reading = %+v", readings[0])
	}

	if env.broadcaster.count(ChannelState) != 3 {
		t.Errorf("state broadcasts = %d, want 3", env.broadcaster.count(ChannelState))
	}

	dev, err := env.registry.GetDevice(context.Background(), "bf01")
	if err != nil {
		t.Fatalf("GetDevice() error = %v", err)
	}
	if dev.Status["switch_1"] != true {
		t.Error("raw status not stored in registry")
	}
}

func TestBridge_Status_UnknownDevice(t *testing.T) {
	env := setupBridge(t)

	err := env.mqtt.SimulateMessage("tuyace/device/ghost/status", []byte(`{"status": [{"code": "switch_1", "value": true}]}`))
	if err != nil {
		t.Fatalf("status for unknown device should be ignored, got %v", err)
	}
	if _, ok := env.mqtt.Last("tuyace/state/ghost/switch_1"); ok {
		t.Error("state published for unknown device")
	}
}

func TestBridge_Status_Mismatch(t *testing.T) {
	env := setupBridge(t)

	err := env.mqtt.SimulateMessage("tuyace/device/bf01/status", []byte(`{"devId": "bf02", "status": []}`))
	if !errors.Is(err, ErrTopicMismatch) {
		t.Errorf("error = %v, want ErrTopicMismatch", err)
	}
}

func TestBridge_LegacyMigration(t *testing.T) {
	env := setupBridge(t)
	ctx := context.Background()

	if err := env.mqtt.SimulateMessage("tuyace/device/bf01/descriptor", []byte(testDescriptorPayload)); err != nil {
		t.Fatalf("descriptor handler error = %v", err)
	}
	// An older release published the first outlet as tuya.{id}_1.
	err := env.registry.SaveEntities(ctx, "bf01", []device.Entity{{UniqueID: "tuya.bf01_1", Platform: "switch"}})
	if err != nil {
		t.Fatalf("SaveEntities() error = %v", err)
	}
	env.mqtt.ClearPublished()

	if err := env.bridge.Rediscover(ctx); err != nil {
		t.Fatalf("Rediscover() error = %v", err)
	}

	ids, err := env.registry.UniqueIDs(ctx, "bf01")
	if err != nil {
		t.Fatalf("UniqueIDs() error = %v", err)
	}
	if ids["tuya.bf01_1"] || !ids["tuya.bf01switch_1"] {
		t.Errorf("UniqueIDs() = %v, want legacy id migrated", ids)
	}

	cleared, ok := env.mqtt.Last("homeassistant/switch/tuyace_bf01/switch/config")
	if !ok || len(cleared.Payload) != 0 || !cleared.Retained {
		t.Errorf("legacy discovery topic not cleared: %+v, %v", cleared, ok)
	}
}

func TestBridge_Removed(t *testing.T) {
	env := setupBridge(t)
	ctx := context.Background()

	if err := env.mqtt.SimulateMessage("tuyace/device/bf01/descriptor", []byte(testDescriptorPayload)); err != nil {
		t.Fatalf("descriptor handler error = %v", err)
	}
	env.mqtt.ClearPublished()

	if err := env.mqtt.SimulateMessage("tuyace/device/bf01/removed", nil); err != nil {
		t.Fatalf("removed handler error = %v", err)
	}

	if _, err := env.registry.GetDevice(ctx, "bf01"); !errors.Is(err, device.ErrDeviceNotFound) {
		t.Errorf("device still registered: %v", err)
	}
	for _, topic := range []string{
		"homeassistant/switch/tuyace_bf01/switch_1/config",
		"homeassistant/sensor/tuyace_bf01/cur_power/config",
	} {
		p, ok := env.mqtt.Last(topic)
		if !ok || len(p.Payload) != 0 {
			t.Errorf("%s not cleared", topic)
		}
	}

	if err := env.mqtt.SimulateMessage("tuyace/device/bf01/removed", nil); err != nil {
		t.Errorf("second removal should be a no-op, got %v", err)
	}
}

func TestBridge_RecordsActivity(t *testing.T) {
	env := setupBridge(t)
	ctx := context.Background()

	for range 2 {
		if err := env.mqtt.SimulateMessage("tuyace/device/bf01/descriptor", []byte(testDescriptorPayload)); err != nil {
			t.Fatalf("descriptor handler error = %v", err)
		}
	}
	if err := env.mqtt.SimulateMessage("tuyace/device/bf01/removed", nil); err != nil {
		t.Fatalf("removed handler error = %v", err)
	}
	if err := env.mqtt.SimulateMessage("tuyace/device/bf01/removed", nil); err != nil {
		t.Fatalf("second removal error = %v", err)
	}

	page, err := env.activity.List(ctx, activity.Filter{Subject: activity.SubjectDevice, SubjectID: "bf01"})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	// A re-announced descriptor and a repeated removal are not new events.
	if page.Total != 2 {
		t.Fatalf("entries = %+v, want one registration and one removal", page.Entries)
	}
	actions := map[string]activity.Entry{}
	for _, e := range page.Entries {
		actions[e.Action] = e
	}
	if reg := actions[activity.ActionDeviceRegistered]; reg.Source != activity.SourceBridge || reg.Details["category"] != "kg" {
		t.Errorf("registration = %+v", reg)
	}
	if rem := actions[activity.ActionDeviceRemoved]; rem.Details["entities"] != float64(3) {
		t.Errorf("removal = %+v", rem)
	}

	if err := env.mqtt.SimulateMessage("tuyace/service/update_remote_configuration", []byte(`{}`)); err != nil {
		t.Fatalf("service handler error = %v", err)
	}
	waitFor(t, "refresh recorded", func() bool {
		p, err := env.activity.List(ctx, activity.Filter{Action: activity.ActionCatalogRefresh})
		return err == nil && p.Total == 1 && p.Entries[0].Source == activity.SourceMQTT
	})
}

func TestBridge_ServiceRefreshesCatalog(t *testing.T) {
	env := setupBridge(t)

	if err := env.mqtt.SimulateMessage("tuyace/device/bf01/descriptor", []byte(testDescriptorPayload)); err != nil {
		t.Fatalf("descriptor handler error = %v", err)
	}
	env.mqtt.ClearPublished()

	if err := env.mqtt.SimulateMessage("tuyace/service/update_remote_configuration", []byte(`{}`)); err != nil {
		t.Fatalf("service handler error = %v", err)
	}

	waitFor(t, "catalog refresh", func() bool {
		return env.catalog.forcedLoads() == 1 && env.broadcaster.count(ChannelService) == 1
	})
	waitFor(t, "rediscovery after catalog load", func() bool {
		_, ok := env.mqtt.Last("homeassistant/switch/tuyace_bf01/switch_1/config")
		return ok
	})
}

func TestBridge_RefreshCatalog_Failure(t *testing.T) {
	env := setupBridge(t)
	env.catalog.loadErr = catalog.ErrFetchFailed

	if err := env.bridge.RefreshCatalog(context.Background()); !errors.Is(err, catalog.ErrFetchFailed) {
		t.Errorf("RefreshCatalog() error = %v", err)
	}

	env.broadcaster.mu.Lock()
	defer env.broadcaster.mu.Unlock()
	result, ok := env.broadcaster.events[ChannelService][0].(ServiceResult)
	if !ok || result.Success || result.Error == "" {
		t.Errorf("service result = %+v", result)
	}
}

func TestBridge_UnknownService(t *testing.T) {
	env := setupBridge(t)

	err := env.mqtt.SimulateMessage("tuyace/service/reboot", nil)
	if !errors.Is(err, ErrUnknownService) {
		t.Errorf("error = %v, want ErrUnknownService", err)
	}
}

func TestBridge_Stop_Unsubscribes(t *testing.T) {
	env := setupBridge(t)

	env.bridge.Stop()
	env.bridge.Stop()

	if len(env.mqtt.unsubbed) != 4 {
		t.Errorf("unsubscribed from %d topics, want 4", len(env.mqtt.unsubbed))
	}
}

func TestBridge_Stop_HaltsBackgroundWork(t *testing.T) {
	env := setupBridge(t)

	if err := env.mqtt.SimulateMessage("tuyace/device/bf01/descriptor", []byte(testDescriptorPayload)); err != nil {
		t.Fatalf("descriptor handler error = %v", err)
	}
	env.bridge.Stop()
	env.mqtt.ClearPublished()

	// Loads after Stop still notify the listener registered by Start.
	if err := env.catalog.Load(context.Background(), false); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	err := env.bridge.handleService("tuyace/service/update_remote_configuration", nil)
	if !errors.Is(err, ErrStopped) {
		t.Errorf("handleService() error = %v, want ErrStopped", err)
	}

	env.bridge.wg.Wait()
	if _, ok := env.mqtt.Last("homeassistant/switch/tuyace_bf01/switch_1/config"); ok {
		t.Error("discovery republished after Stop")
	}
	if env.catalog.forcedLoads() != 0 {
		t.Errorf("forced loads = %d, want 0", env.catalog.forcedLoads())
	}
}
