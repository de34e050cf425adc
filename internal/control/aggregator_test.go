package control

import (
	"context"
	"errors"
	"testing"

	"github.com/akarpov/homehub/internal/device"
	"github.com/akarpov/homehub/internal/presence"
)

type mockHistorian struct {
	records []historianRecord
}

type historianRecord struct {
	deviceID int64
	power    device.PowerState
	online   bool
}

func (m *mockHistorian) RecordPower(dev *device.Device, power device.PowerState, online bool) {
	m.records = append(m.records, historianRecord{deviceID: dev.ID, power: power, online: online})
}

func testAggregator(t *testing.T, opts AggregatorOptions) *Aggregator {
	t.Helper()
	a, err := NewAggregator(opts)
	if err != nil {
		t.Fatalf("NewAggregator() error = %v", err)
	}
	return a
}

func TestAggregator_GetDeviceInfo_MeshDevice(t *testing.T) {
	registry := newMockRegistry(&device.Device{
		ID:           1,
		Name:         "hall socket",
		Type:         device.DeviceTypeSocket,
		MAC:          strPtr("AA:BB:CC:DD:EE:FF"),
		MatterNodeID: strPtr("17"),
	})
	source := &mockSource{entries: []presence.Entry{
		{Address: "192.168.1.10", MAC: "aa:bb:cc:dd:ee:ff", Online: true},
	}}

	a := testAggregator(t, AggregatorOptions{
		Registry: registry,
		Presence: source,
		Mesh:     &mockMesh{powerOn: true},
	})

	info, err := a.GetDeviceInfo(context.Background(), 1)
	if err != nil {
		t.Fatalf("GetDeviceInfo() error = %v", err)
	}
	if !info.Online {
		t.Error("Online = false, want true")
	}
	if info.Power != device.PowerOn {
		t.Errorf("Power = %v, want on", info.Power)
	}
}

func TestAggregator_GetDeviceInfo_LightbulbUsesResolvedAddress(t *testing.T) {
	registry := newMockRegistry(&device.Device{
		ID:           2,
		Name:         "desk lamp",
		Type:         device.DeviceTypeLightbulb,
		Manufacturer: device.ManufacturerYeelight,
		MAC:          strPtr("AA:BB:CC:DD:EE:FF"),
		Address:      strPtr("192.168.1.20"),
	})
	source := &mockSource{entries: []presence.Entry{
		{Address: "192.168.1.99", MAC: "AA:BB:CC:DD:EE:FF", Online: true},
	}}

	a := testAggregator(t, AggregatorOptions{
		Registry: registry,
		Presence: source,
		Lighting: &mockLighting{powerOn: false},
	})

	info, err := a.GetDeviceInfo(context.Background(), 2)
	if err != nil {
		t.Fatalf("GetDeviceInfo() error = %v", err)
	}
	if !info.Online {
		t.Error("Online = false, want true")
	}
	if info.Power != device.PowerOff {
		t.Errorf("Power = %v, want off", info.Power)
	}
}

func TestAggregator_GetDeviceInfo_RouterDownDegrades(t *testing.T) {
	registry := newMockRegistry(&device.Device{
		ID:   3,
		Name: "living room tv",
		Type: device.DeviceTypeTv,
		MAC:  strPtr("11:22:33:44:55:66"),
	})
	source := &mockSource{err: presence.ErrRouterUnavailable}

	a := testAggregator(t, AggregatorOptions{
		Registry: registry,
		Presence: source,
	})

	info, err := a.GetDeviceInfo(context.Background(), 3)
	if err != nil {
		t.Fatalf("GetDeviceInfo() error = %v", err)
	}
	if info.Online {
		t.Error("Online = true, want false when router is down")
	}
	if info.Power != device.PowerUnknown {
		t.Errorf("Power = %v, want unknown", info.Power)
	}
}

func TestAggregator_GetDeviceInfo_BackendFailureDegrades(t *testing.T) {
	registry := newMockRegistry(&device.Device{
		ID:           1,
		Name:         "hall socket",
		Type:         device.DeviceTypeSocket,
		MatterNodeID: strPtr("17"),
	})

	a := testAggregator(t, AggregatorOptions{
		Registry: registry,
		Presence: &mockSource{},
		Mesh:     &mockMesh{powerErr: errors.New("bridge silent")},
	})

	info, err := a.GetDeviceInfo(context.Background(), 1)
	if err != nil {
		t.Fatalf("GetDeviceInfo() error = %v", err)
	}
	if info.Power != device.PowerUnknown {
		t.Errorf("Power = %v, want unknown when bridge fails", info.Power)
	}
}

func TestAggregator_GetDeviceInfo_DeviceNotFound(t *testing.T) {
	a := testAggregator(t, AggregatorOptions{
		Registry: newMockRegistry(),
		Presence: &mockSource{},
	})

	_, err := a.GetDeviceInfo(context.Background(), 99)
	if !errors.Is(err, device.ErrDeviceNotFound) {
		t.Errorf("GetDeviceInfo() error = %v, want ErrDeviceNotFound", err)
	}
}

func TestAggregator_GetDeviceInfo_RecordsHistory(t *testing.T) {
	registry := newMockRegistry(&device.Device{
		ID:           1,
		Name:         "hall socket",
		Type:         device.DeviceTypeSocket,
		MAC:          strPtr("AA:BB:CC:DD:EE:FF"),
		MatterNodeID: strPtr("17"),
	})
	source := &mockSource{entries: []presence.Entry{
		{MAC: "AA:BB:CC:DD:EE:FF", Online: true},
	}}
	historian := &mockHistorian{}

	a := testAggregator(t, AggregatorOptions{
		Registry:  registry,
		Presence:  source,
		Mesh:      &mockMesh{powerOn: true},
		Historian: historian,
	})

	if _, err := a.GetDeviceInfo(context.Background(), 1); err != nil {
		t.Fatalf("GetDeviceInfo() error = %v", err)
	}
	if len(historian.records) != 1 {
		t.Fatalf("historian records = %d, want 1", len(historian.records))
	}
	rec := historian.records[0]
	if rec.deviceID != 1 || rec.power != device.PowerOn || !rec.online {
		t.Errorf("record = %+v, want device 1 on online", rec)
	}
}

func TestAggregator_ListDeviceInfo(t *testing.T) {
	registry := newMockRegistry(
		&device.Device{
			ID:   1,
			Name: "living room tv",
			Type: device.DeviceTypeTv,
			MAC:  strPtr("11:22:33:44:55:66"),
		},
		&device.Device{
			ID:   2,
			Name: "spare socket",
			Type: device.DeviceTypeSocket,
		},
	)
	source := &mockSource{entries: []presence.Entry{
		{Address: "192.168.1.60", MAC: "11:22:33:44:55:66", Online: true},
	}}

	a := testAggregator(t, AggregatorOptions{
		Registry: registry,
		Presence: source,
	})

	infos, err := a.ListDeviceInfo(context.Background())
	if err != nil {
		t.Fatalf("ListDeviceInfo() error = %v", err)
	}
	if len(infos) != 2 {
		t.Fatalf("len(infos) = %d, want 2", len(infos))
	}

	online := make(map[int64]bool)
	for _, info := range infos {
		online[info.Device.ID] = info.Online
	}
	if !online[1] {
		t.Error("device 1 should be online")
	}
	if online[2] {
		t.Error("device 2 should be offline")
	}
}

func TestAggregator_UnknownDevices(t *testing.T) {
	registry := newMockRegistry(&device.Device{
		ID:   1,
		Name: "living room tv",
		Type: device.DeviceTypeTv,
		MAC:  strPtr("11:22:33:44:55:66"),
	})
	source := &mockSource{entries: []presence.Entry{
		{Address: "192.168.1.60", MAC: "11:22:33:44:55:66", Hostname: "tv", Online: true},
		{Address: "192.168.1.77", MAC: "DE:AD:BE:EF:00:01", Hostname: "mystery-phone", Online: true},
	}}

	a := testAggregator(t, AggregatorOptions{
		Registry: registry,
		Presence: source,
	})

	unknown, err := a.UnknownDevices(context.Background())
	if err != nil {
		t.Fatalf("UnknownDevices() error = %v", err)
	}
	if len(unknown) != 1 {
		t.Fatalf("len(unknown) = %d, want 1", len(unknown))
	}
	if unknown[0].Hostname != "mystery-phone" {
		t.Errorf("unknown host = %+v, want mystery-phone", unknown[0])
	}
}

func TestAggregator_UnknownDevices_RouterDown(t *testing.T) {
	a := testAggregator(t, AggregatorOptions{
		Registry: newMockRegistry(),
		Presence: &mockSource{err: presence.ErrRouterUnavailable},
	})

	_, err := a.UnknownDevices(context.Background())
	if !errors.Is(err, presence.ErrRouterUnavailable) {
		t.Errorf("UnknownDevices() error = %v, want ErrRouterUnavailable", err)
	}
}
