// Package device provides the device inventory for HomeHub.
//
// The inventory is the central catalogue of household devices: their names,
// types, manufacturers and network identity (MAC, address, Matter node id).
// It backs the control dispatcher, the Telegram onboarding flow and the
// REST API.
//
// # Architecture
//
//	┌─────────────────────────────────────────────────────────────────────────┐
//	│                          Device Inventory                                │
//	│                                                                          │
//	│  ┌──────────────────┐    ┌──────────────────┐    ┌──────────────────┐   │
//	│  │     Registry     │    │    Repository    │    │    Validation    │   │
//	│  │   (registry.go)  │───▶│  (repository.go) │    │ (validation.go)  │   │
//	│  │                  │    │                  │    │                  │   │
//	│  │ • CRUD ops       │    │ • SQLite queries │    │ • Name checks    │   │
//	│  │ • In-memory cache│    │ • Uniqueness     │    │ • MAC normalise  │   │
//	│  │ • Thread safety  │    │ • Free-text find │    │ • Type/vendor    │   │
//	│  └──────────────────┘    └──────────────────┘    └──────────────────┘   │
//	│           │                       │                                      │
//	└───────────│───────────────────────│──────────────────────────────────────┘
//	            │                       │
//	            ▼                       ▼
//	┌──────────────────────┐   ┌──────────────────────┐
//	│  Dispatcher / Bot /  │   │   SQLite Database    │
//	│  REST API            │   │   (devices table)    │
//	└──────────────────────┘   └──────────────────────┘
//
// # Key Types
//
//   - Device: a catalogued household device
//   - DeviceType: lightbulb, tv, socket, other, unknown
//   - Manufacturer: yeelight, other, unknown
//   - PowerState: on, off, unknown
//
// # Usage
//
//	repo := device.NewSQLiteRepository(db)
//	registry := device.NewRegistry(repo)
//	registry.SetLogger(log)
//
//	if err := registry.RefreshCache(ctx); err != nil {
//	    return err
//	}
//
//	mac := "A4:C1:38:0D:11:22"
//	dev := &device.Device{
//	    Name:         "Bedroom lamp",
//	    Type:         device.DeviceTypeLightbulb,
//	    Manufacturer: device.ManufacturerYeelight,
//	    MAC:          &mac,
//	}
//	if err := registry.CreateDevice(ctx, dev); err != nil {
//	    return err
//	}
//
//	// Free-text lookup ("lamp" matches the lightbulb vocabulary)
//	found, _ := registry.FindDevice(ctx, "lamp")
//
// # Thread Safety
//
// The Registry is safe for concurrent use. All operations are protected by
// a read-write mutex. The Repository implementation must also be thread-safe.
package device
