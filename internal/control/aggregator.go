package control

import (
	"context"
	"fmt"
	"time"

	"github.com/akarpov/homehub/internal/device"
	"github.com/akarpov/homehub/internal/presence"
)

const defaultPowerTimeout = 5 * time.Second

// DeviceInfo is the live view of a device: its stored record plus what
// the router and power backends report right now.
type DeviceInfo struct {
	Device *device.Device    `json:"device"`
	Online bool              `json:"online"`
	Power  device.PowerState `json:"power"`
}

// UnknownEntry is a host seen on the network that matches no stored device.
type UnknownEntry struct {
	Address  string `json:"address"`
	MAC      string `json:"mac"`
	Hostname string `json:"hostname,omitempty"`
}

// DeviceLister is the slice of the registry the aggregator reads from.
type DeviceLister interface {
	GetDevice(ctx context.Context, id int64) (*device.Device, error)
	ListDevices(ctx context.Context) ([]device.Device, error)
}

// Historian records power observations; writes are best effort.
type Historian interface {
	RecordPower(dev *device.Device, power device.PowerState, online bool)
}

// AggregatorOptions wires an Aggregator's dependencies. Mesh, Lighting
// and Historian are optional; missing backends degrade to PowerUnknown.
type AggregatorOptions struct {
	Registry     DeviceLister
	Presence     presence.Source
	Mesh         MeshController
	Lighting     LightingController
	Historian    Historian
	PowerTimeout time.Duration
	Logger       Logger
}

// Aggregator builds live device views. Every backend failure degrades
// the view instead of failing it: offline presence, unknown power.
type Aggregator struct {
	registry     DeviceLister
	presence     presence.Source
	mesh         MeshController
	lighting     LightingController
	historian    Historian
	powerTimeout time.Duration
	logger       Logger
}

// NewAggregator creates a device state aggregator.
func NewAggregator(opts AggregatorOptions) (*Aggregator, error) {
	if opts.Registry == nil {
		return nil, fmt.Errorf("control: registry is required")
	}
	timeout := opts.PowerTimeout
	if timeout <= 0 {
		timeout = defaultPowerTimeout
	}
	logger := opts.Logger
	if logger == nil {
		logger = noopLogger{}
	}

	return &Aggregator{
		registry:     opts.Registry,
		presence:     opts.Presence,
		mesh:         opts.Mesh,
		lighting:     opts.Lighting,
		historian:    opts.Historian,
		powerTimeout: timeout,
		logger:       logger,
	}, nil
}

// GetDeviceInfo returns the live view of one device. The router snapshot
// and the device record are fetched concurrently; only a missing device
// record is an error.
func (a *Aggregator) GetDeviceInfo(ctx context.Context, deviceID int64) (*DeviceInfo, error) {
	snapCh := make(chan []presence.Entry, 1)
	go func() {
		snapCh <- a.snapshotOrEmpty(ctx)
	}()

	dev, err := a.registry.GetDevice(ctx, deviceID)
	if err != nil {
		return nil, err
	}
	entries := <-snapCh

	return a.buildInfo(ctx, dev, entries), nil
}

// ListDeviceInfo returns the live view of every stored device against a
// single router snapshot.
func (a *Aggregator) ListDeviceInfo(ctx context.Context) ([]*DeviceInfo, error) {
	snapCh := make(chan []presence.Entry, 1)
	go func() {
		snapCh <- a.snapshotOrEmpty(ctx)
	}()

	devices, err := a.registry.ListDevices(ctx)
	if err != nil {
		return nil, err
	}
	entries := <-snapCh

	infos := make([]*DeviceInfo, 0, len(devices))
	for i := range devices {
		infos = append(infos, a.buildInfo(ctx, &devices[i], entries))
	}
	return infos, nil
}

// UnknownDevices returns hosts the router sees that match no stored
// device by MAC or address.
func (a *Aggregator) UnknownDevices(ctx context.Context) ([]UnknownEntry, error) {
	if a.presence == nil {
		return nil, nil
	}
	entries, err := a.presence.Snapshot(ctx)
	if err != nil {
		return nil, err
	}

	devices, err := a.registry.ListDevices(ctx)
	if err != nil {
		return nil, err
	}

	var unknown []UnknownEntry
	for _, entry := range entries {
		matched := false
		for i := range devices {
			dev := &devices[i]
			if presence.Resolve([]presence.Entry{entry}, dev.MAC, dev.Address).Matched {
				matched = true
				break
			}
		}
		if !matched {
			unknown = append(unknown, UnknownEntry{
				Address:  entry.Address,
				MAC:      entry.MAC,
				Hostname: entry.Hostname,
			})
		}
	}
	return unknown, nil
}

func (a *Aggregator) buildInfo(ctx context.Context, dev *device.Device, entries []presence.Entry) *DeviceInfo {
	res := presence.Resolve(entries, dev.MAC, dev.Address)

	info := &DeviceInfo{
		Device: dev,
		Online: res.Online,
		Power:  a.queryPower(ctx, dev, res),
	}

	if a.historian != nil {
		a.historian.RecordPower(dev, info.Power, info.Online)
	}
	return info
}

// queryPower asks whichever backend serves the device for its power
// state. Anything that goes wrong degrades to PowerUnknown.
func (a *Aggregator) queryPower(ctx context.Context, dev *device.Device, res presence.Resolution) device.PowerState {
	ctx, cancel := context.WithTimeout(ctx, a.powerTimeout)
	defer cancel()

	switch {
	case dev.MatterNodeID != nil && a.mesh != nil:
		on, err := a.mesh.PowerState(ctx, *dev.MatterNodeID)
		if err != nil {
			a.logger.Debug("mesh power query failed", "device_id", dev.ID, "error", err)
			return device.PowerUnknown
		}
		return powerState(on)

	case dev.Type == device.DeviceTypeLightbulb && dev.Manufacturer == device.ManufacturerYeelight &&
		res.Address != nil && a.lighting != nil:
		on, err := a.lighting.Power(ctx, *res.Address)
		if err != nil {
			a.logger.Debug("lighting power query failed", "device_id", dev.ID, "error", err)
			return device.PowerUnknown
		}
		return powerState(on)

	default:
		return device.PowerUnknown
	}
}

func (a *Aggregator) snapshotOrEmpty(ctx context.Context) []presence.Entry {
	if a.presence == nil {
		return nil
	}
	entries, err := a.presence.Snapshot(ctx)
	if err != nil {
		a.logger.Warn("router snapshot unavailable", "error", err)
		return nil
	}
	return entries
}

func powerState(on bool) device.PowerState {
	if on {
		return device.PowerOn
	}
	return device.PowerOff
}
