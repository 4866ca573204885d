// Package device provides the device registry for the Tuya CE core.
//
// The registry is the inventory of known Tuya devices: each device's live
// descriptor (function, status_range, status), its online flag, and the
// entity unique ids published for it. It is fed by the bridge from the MQTT
// descriptor and status topics, and read by the REST API.
//
// # Architecture
//
//	┌───────────────────────────────────────────────────────────────┐
//	│                        Device Registry                        │
//	│                                                               │
//	│  ┌──────────────────┐   ┌──────────────────┐   ┌───────────┐  │
//	│  │     Registry     │   │    Repository    │   │ Validation│  │
//	│  │   (registry.go)  │──▶│  (repository.go) │   │           │  │
//	│  │                  │   │                  │   │ • ids     │  │
//	│  │ • In-memory cache│   │ • devices        │   │ • names   │  │
//	│  │ • Status merge   │   │ • device_entities│   └───────────┘  │
//	│  └──────────────────┘   └──────────────────┘                  │
//	└───────────────────────────────────────────────────────────────┘
//
// # Usage
//
//	registry := device.NewRegistry(device.NewSQLiteRepository(db.DB))
//	registry.SetLogger(log)
//
//	if err := registry.RefreshCache(ctx); err != nil {
//	    return err
//	}
//
//	dev, created, err := registry.RegisterDevice(ctx, descriptor, true)
//	dev, err = registry.ApplyStatus(ctx, id, []device.StatusUpdate{{Code: "switch_1", Value: true}})
//
// # Thread Safety
//
// The Registry is safe for concurrent use. Reads are served from the cache
// and always return deep copies.
package device
