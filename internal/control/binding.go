package control

import (
	"github.com/akarpov/homehub/internal/device"
	"github.com/akarpov/homehub/internal/presence"
)

// Op is the direction of a power command.
type Op string

// Op constants.
const (
	OpTurnOn  Op = "turn_on"
	OpTurnOff Op = "turn_off"
)

// Binding names the backend that will serve a command for a device.
// Exactly one concrete type is produced per classification.
type Binding interface {
	isBinding()
}

// MeshBinding routes through the Matter controller bridge.
type MeshBinding struct {
	NodeID string
}

// LightingBinding routes through the Yeelight LAN client.
type LightingBinding struct {
	Address string
}

// WakeBinding routes through the Wake-on-LAN sender.
type WakeBinding struct {
	Address string
	MAC     string
}

// UnsupportedBinding means no backend can serve the command.
type UnsupportedBinding struct {
	Reason string
}

func (MeshBinding) isBinding()        {}
func (LightingBinding) isBinding()    {}
func (WakeBinding) isBinding()        {}
func (UnsupportedBinding) isBinding() {}

// Classify decides which backend serves a power command. Pure function:
// same device, resolution and op always produce the same binding.
//
// Priority order: mesh node, then vendor lighting, then wake. A lightbulb
// never falls through to wake; only turn-on can wake, and only when both
// the address and the MAC resolved.
func Classify(d *device.Device, res presence.Resolution, op Op) Binding {
	if d.MatterNodeID != nil {
		return MeshBinding{NodeID: *d.MatterNodeID}
	}

	if d.Type == device.DeviceTypeLightbulb {
		if d.Manufacturer != device.ManufacturerYeelight {
			return UnsupportedBinding{Reason: "no controller for this lightbulb vendor"}
		}
		if res.Address == nil {
			return UnsupportedBinding{Reason: "lightbulb address did not resolve"}
		}
		return LightingBinding{Address: *res.Address}
	}

	if op == OpTurnOn && res.Address != nil && res.MAC != nil {
		return WakeBinding{Address: *res.Address, MAC: *res.MAC}
	}

	if op == OpTurnOn {
		return UnsupportedBinding{Reason: "wake needs both address and mac"}
	}
	return UnsupportedBinding{Reason: "device cannot be switched off remotely"}
}
