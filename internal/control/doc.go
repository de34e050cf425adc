// Package control routes device commands to the right backend and
// aggregates live device state.
//
// # Architecture
//
//	┌──────────────────────────────────────────────────────────────────┐
//	│                           control                                │
//	│                                                                  │
//	│  ┌───────────────┐   ┌────────────────┐   ┌──────────────────┐  │
//	│  │   Dispatcher  │   │   Aggregator   │   │     Classify     │  │
//	│  │ (dispatcher.go)│  │ (aggregator.go)│   │   (binding.go)   │  │
//	│  │               │   │                │   │                  │  │
//	│  │ • turn on/off │   │ • online check │   │ • pure routing   │  │
//	│  │ • commission  │   │ • power query  │   │ • tagged union   │  │
//	│  │ • delete      │   │ • degradation  │   │                  │  │
//	│  └───────┬───────┘   └───────┬────────┘   └──────────────────┘  │
//	└──────────│───────────────────│───────────────────────────────────┘
//	           │                   │
//	           ▼                   ▼
//	   Matter bridge (MQTT)   router presence
//	   Yeelight LAN client    device registry
//	   WoL sender             state history (Influx)
//
// Routing is decided by Classify, a pure function from a device and its
// reconciled network identity to a Binding:
//
//   - a commissioned device always goes to the mesh, both directions
//   - a Yeelight lightbulb with a resolvable address goes to the LAN
//     client; lightbulbs from any other vendor are unsupported and never
//     fall through to wake
//   - turning on any other device broadcasts a magic packet, but only
//     when both address and MAC resolve; turning it off is unsupported
//
// Command-path backend failures propagate to the caller. State queries
// never fail: an unreachable router means offline, an unreachable
// backend means power "unknown".
package control
