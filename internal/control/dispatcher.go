package control

import (
	"context"
	"fmt"

	"github.com/akarpov/homehub/internal/device"
	"github.com/akarpov/homehub/internal/presence"
)

// DeviceRegistry is the slice of the device registry the dispatcher needs.
type DeviceRegistry interface {
	GetDevice(ctx context.Context, id int64) (*device.Device, error)
	DeleteDevice(ctx context.Context, id int64) error
	SetMatterNodeID(ctx context.Context, id int64, nodeID *string) error
}

// MeshController talks to the Matter controller bridge.
type MeshController interface {
	Commission(ctx context.Context, pairingCode string) (string, error)
	Decommission(ctx context.Context, nodeID string) error
	PowerState(ctx context.Context, nodeID string) (bool, error)
	SetPower(ctx context.Context, nodeID string, on bool) error
}

// LightingController talks to Yeelight bulbs on the LAN.
type LightingController interface {
	Power(ctx context.Context, address string) (bool, error)
	SetPower(ctx context.Context, address string, on bool) error
}

// Waker broadcasts Wake-on-LAN magic packets.
type Waker interface {
	Wake(mac string) error
}

// Logger is the logging interface used by the control package.
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

// DispatcherOptions wires a Dispatcher's dependencies.
type DispatcherOptions struct {
	Registry DeviceRegistry
	Presence presence.Source
	Mesh     MeshController
	Lighting LightingController
	Waker    Waker
	Logger   Logger
}

// Dispatcher routes power commands and lifecycle operations to backends.
type Dispatcher struct {
	registry DeviceRegistry
	presence presence.Source
	mesh     MeshController
	lighting LightingController
	waker    Waker
	logger   Logger
}

// NewDispatcher creates a command dispatcher.
func NewDispatcher(opts DispatcherOptions) (*Dispatcher, error) {
	if opts.Registry == nil {
		return nil, fmt.Errorf("control: registry is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = noopLogger{}
	}

	return &Dispatcher{
		registry: opts.Registry,
		presence: opts.Presence,
		mesh:     opts.Mesh,
		lighting: opts.Lighting,
		waker:    opts.Waker,
		logger:   logger,
	}, nil
}

// TurnOn switches a device on via whichever backend serves it.
// Returns ErrUnsupported when no backend can; backend failures propagate.
func (d *Dispatcher) TurnOn(ctx context.Context, deviceID int64) error {
	return d.dispatch(ctx, deviceID, OpTurnOn)
}

// TurnOff switches a device off.
// Returns ErrUnsupported when no backend can; backend failures propagate.
func (d *Dispatcher) TurnOff(ctx context.Context, deviceID int64) error {
	return d.dispatch(ctx, deviceID, OpTurnOff)
}

func (d *Dispatcher) dispatch(ctx context.Context, deviceID int64, op Op) error {
	dev, err := d.registry.GetDevice(ctx, deviceID)
	if err != nil {
		return err
	}

	res := presence.Resolve(d.snapshotOrEmpty(ctx), dev.MAC, dev.Address)

	switch binding := Classify(dev, res, op).(type) {
	case MeshBinding:
		if err := d.mesh.SetPower(ctx, binding.NodeID, op == OpTurnOn); err != nil {
			return fmt.Errorf("mesh power command: %w", err)
		}
		d.logger.Info("device switched via mesh", "device_id", deviceID, "node_id", binding.NodeID, "op", op)
		return nil

	case LightingBinding:
		if err := d.lighting.SetPower(ctx, binding.Address, op == OpTurnOn); err != nil {
			return fmt.Errorf("lighting power command: %w", err)
		}
		d.logger.Info("device switched via lighting", "device_id", deviceID, "address", binding.Address, "op", op)
		return nil

	case WakeBinding:
		if err := d.waker.Wake(binding.MAC); err != nil {
			return fmt.Errorf("wake command: %w", err)
		}
		d.logger.Info("device woken", "device_id", deviceID, "mac", binding.MAC)
		return nil

	case UnsupportedBinding:
		d.logger.Debug("no backend for command", "device_id", deviceID, "op", op, "reason", binding.Reason)
		return fmt.Errorf("%w: %s", ErrUnsupported, binding.Reason)

	default:
		return ErrUnsupported
	}
}

// Commission pairs a device onto the mesh and stores the assigned node id.
func (d *Dispatcher) Commission(ctx context.Context, deviceID int64, pairingCode string) error {
	if _, err := d.registry.GetDevice(ctx, deviceID); err != nil {
		return err
	}

	nodeID, err := d.mesh.Commission(ctx, pairingCode)
	if err != nil {
		return fmt.Errorf("commissioning device: %w", err)
	}

	if err := d.registry.SetMatterNodeID(ctx, deviceID, &nodeID); err != nil {
		// The node is on the fabric but we failed to record it; the
		// operator has to decommission by node id.
		d.logger.Error("commissioned node could not be recorded", "device_id", deviceID, "node_id", nodeID, "error", err)
		return fmt.Errorf("recording node id: %w", err)
	}

	d.logger.Info("device commissioned", "device_id", deviceID, "node_id", nodeID)
	return nil
}

// Decommission removes a device from the mesh and clears its node id.
// Returns ErrNotCommissioned when the device has no node id.
func (d *Dispatcher) Decommission(ctx context.Context, deviceID int64) error {
	dev, err := d.registry.GetDevice(ctx, deviceID)
	if err != nil {
		return err
	}
	if dev.MatterNodeID == nil {
		return ErrNotCommissioned
	}

	if err := d.mesh.Decommission(ctx, *dev.MatterNodeID); err != nil {
		return fmt.Errorf("decommissioning node %s: %w", *dev.MatterNodeID, err)
	}

	if err := d.registry.SetMatterNodeID(ctx, deviceID, nil); err != nil {
		return fmt.Errorf("clearing node id: %w", err)
	}

	d.logger.Info("device decommissioned", "device_id", deviceID)
	return nil
}

// DeleteDevice removes a device from the inventory. A commissioned device
// is decommissioned first; if that fails, the delete is aborted so the
// mesh never holds a node for a device that no longer exists.
func (d *Dispatcher) DeleteDevice(ctx context.Context, deviceID int64) error {
	dev, err := d.registry.GetDevice(ctx, deviceID)
	if err != nil {
		return err
	}

	if dev.MatterNodeID != nil {
		if err := d.mesh.Decommission(ctx, *dev.MatterNodeID); err != nil {
			return fmt.Errorf("%w: node %s: %v", ErrDecommissionFailed, *dev.MatterNodeID, err)
		}
	}

	if err := d.registry.DeleteDevice(ctx, deviceID); err != nil {
		return err
	}

	d.logger.Info("device deleted", "device_id", deviceID, "was_commissioned", dev.MatterNodeID != nil)
	return nil
}

// snapshotOrEmpty fetches the router snapshot, degrading to an empty list
// when the router is unavailable.
func (d *Dispatcher) snapshotOrEmpty(ctx context.Context) []presence.Entry {
	if d.presence == nil {
		return nil
	}
	entries, err := d.presence.Snapshot(ctx)
	if err != nil {
		d.logger.Warn("router snapshot unavailable", "error", err)
		return nil
	}
	return entries
}
