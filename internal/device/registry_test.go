package device

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
)

// MockRepository is a test implementation of Repository.
type MockRepository struct {
	mu      sync.Mutex
	devices map[int64]*Device
	nextID  int64
	// For testing error paths
	createErr error
	updateErr error
	deleteErr error
	listErr   error
	takenErr  error
}

func NewMockRepository() *MockRepository {
	return &MockRepository{
		devices: make(map[int64]*Device),
		nextID:  1,
	}
}

func (m *MockRepository) GetByID(_ context.Context, id int64) (*Device, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if d, ok := m.devices[id]; ok {
		cpy := *d
		return &cpy, nil
	}
	return nil, ErrDeviceNotFound
}

func (m *MockRepository) List(_ context.Context) ([]Device, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	devices := make([]Device, 0, len(m.devices))
	for _, d := range m.devices {
		devices = append(devices, *d)
	}
	return devices, nil
}

func (m *MockRepository) Create(_ context.Context, device *Device) error {
	if m.createErr != nil {
		return m.createErr
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	device.ID = m.nextID
	m.nextID++

	cpy := *device
	m.devices[device.ID] = &cpy
	return nil
}

func (m *MockRepository) Update(_ context.Context, device *Device) error {
	if m.updateErr != nil {
		return m.updateErr
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.devices[device.ID]; !exists {
		return ErrDeviceNotFound
	}

	cpy := *device
	m.devices[device.ID] = &cpy
	return nil
}

func (m *MockRepository) Delete(_ context.Context, id int64) error {
	if m.deleteErr != nil {
		return m.deleteErr
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.devices[id]; !exists {
		return ErrDeviceNotFound
	}

	delete(m.devices, id)
	return nil
}

func (m *MockRepository) NameTaken(_ context.Context, name string, excludeID int64) (bool, error) {
	if m.takenErr != nil {
		return false, m.takenErr
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	for _, d := range m.devices {
		if d.ID != excludeID && d.Name == name {
			return true, nil
		}
	}
	return false, nil
}

func (m *MockRepository) MACTaken(_ context.Context, mac string, excludeID int64) (bool, error) {
	if m.takenErr != nil {
		return false, m.takenErr
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	for _, d := range m.devices {
		if d.ID != excludeID && d.MAC != nil && strings.EqualFold(*d.MAC, mac) {
			return true, nil
		}
	}
	return false, nil
}

func (m *MockRepository) AddressTaken(_ context.Context, address string, excludeID int64) (bool, error) {
	if m.takenErr != nil {
		return false, m.takenErr
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	for _, d := range m.devices {
		if d.ID != excludeID && d.Address != nil && *d.Address == address {
			return true, nil
		}
	}
	return false, nil
}

func (m *MockRepository) FindFirstMatch(_ context.Context, query string) (*Device, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	types := TypesForWord(query)
	var best *Device
	for _, d := range m.devices {
		matched := strings.Contains(strings.ToLower(d.Name), strings.ToLower(query))
		for _, t := range types {
			if d.Type == t {
				matched = true
			}
		}
		if matched && (best == nil || d.ID < best.ID) {
			best = d
		}
	}
	if best == nil {
		return nil, ErrDeviceNotFound
	}
	cpy := *best
	return &cpy, nil
}

func TestRegistry_CreateDevice(t *testing.T) {
	ctx := context.Background()

	t.Run("creates valid device", func(t *testing.T) {
		registry := NewRegistry(NewMockRepository())

		dev := testDevice("Bedroom lamp")
		if err := registry.CreateDevice(ctx, dev); err != nil {
			t.Fatalf("CreateDevice() error = %v", err)
		}
		if dev.ID == 0 {
			t.Error("CreateDevice() did not assign an id")
		}

		got, err := registry.GetDevice(ctx, dev.ID)
		if err != nil {
			t.Fatalf("GetDevice() error = %v", err)
		}
		if got.Name != "Bedroom lamp" {
			t.Errorf("Name = %q, want %q", got.Name, "Bedroom lamp")
		}
	})

	t.Run("normalises mac to uppercase", func(t *testing.T) {
		registry := NewRegistry(NewMockRepository())

		dev := testDevice("Lowercase mac")
		dev.MAC = strPtr("a4:c1:38:0d:11:22")
		if err := registry.CreateDevice(ctx, dev); err != nil {
			t.Fatalf("CreateDevice() error = %v", err)
		}
		if *dev.MAC != "A4:C1:38:0D:11:22" {
			t.Errorf("MAC = %q, want uppercase", *dev.MAC)
		}
	})

	t.Run("rejects invalid mac", func(t *testing.T) {
		registry := NewRegistry(NewMockRepository())

		dev := testDevice("Bad mac")
		dev.MAC = strPtr("not-a-mac")
		err := registry.CreateDevice(ctx, dev)
		if !errors.Is(err, ErrInvalidMAC) {
			t.Errorf("CreateDevice() error = %v, want ErrInvalidMAC", err)
		}
	})

	t.Run("rejects duplicate name", func(t *testing.T) {
		registry := NewRegistry(NewMockRepository())

		if err := registry.CreateDevice(ctx, testDevice("Twice")); err != nil {
			t.Fatalf("first CreateDevice() error = %v", err)
		}
		err := registry.CreateDevice(ctx, testDevice("Twice"))
		if !errors.Is(err, ErrNameTaken) {
			t.Errorf("CreateDevice() error = %v, want ErrNameTaken", err)
		}
	})

	t.Run("rejects duplicate mac ignoring case", func(t *testing.T) {
		registry := NewRegistry(NewMockRepository())

		first := testDevice("First")
		first.MAC = strPtr("AA:BB:CC:DD:EE:30")
		if err := registry.CreateDevice(ctx, first); err != nil {
			t.Fatalf("first CreateDevice() error = %v", err)
		}

		second := testDevice("Second")
		second.MAC = strPtr("aa:bb:cc:dd:ee:30")
		err := registry.CreateDevice(ctx, second)
		if !errors.Is(err, ErrMACTaken) {
			t.Errorf("CreateDevice() error = %v, want ErrMACTaken", err)
		}
	})

	t.Run("propagates repository errors", func(t *testing.T) {
		repo := NewMockRepository()
		repo.createErr = errors.New("disk full")
		registry := NewRegistry(repo)

		err := registry.CreateDevice(ctx, testDevice("Doomed"))
		if err == nil || !strings.Contains(err.Error(), "disk full") {
			t.Errorf("CreateDevice() error = %v, want repository error", err)
		}
	})
}

func TestRegistry_UpdateDevice(t *testing.T) {
	ctx := context.Background()

	t.Run("own values stay valid on update", func(t *testing.T) {
		registry := NewRegistry(NewMockRepository())

		dev := testDevice("Keep name")
		dev.MAC = strPtr("AA:BB:CC:DD:EE:40")
		if err := registry.CreateDevice(ctx, dev); err != nil {
			t.Fatalf("CreateDevice() error = %v", err)
		}

		// Unchanged name and MAC must not trip uniqueness against itself
		if err := registry.UpdateDevice(ctx, dev); err != nil {
			t.Fatalf("UpdateDevice() error = %v", err)
		}
	})

	t.Run("rejects collision with another device", func(t *testing.T) {
		registry := NewRegistry(NewMockRepository())

		first := testDevice("Original")
		if err := registry.CreateDevice(ctx, first); err != nil {
			t.Fatalf("CreateDevice() error = %v", err)
		}
		second := testDevice("Renamed")
		if err := registry.CreateDevice(ctx, second); err != nil {
			t.Fatalf("CreateDevice() error = %v", err)
		}

		second.Name = "Original"
		err := registry.UpdateDevice(ctx, second)
		if !errors.Is(err, ErrNameTaken) {
			t.Errorf("UpdateDevice() error = %v, want ErrNameTaken", err)
		}
	})
}

func TestRegistry_DeleteDevice(t *testing.T) {
	ctx := context.Background()
	registry := NewRegistry(NewMockRepository())

	dev := testDevice("Short lived")
	if err := registry.CreateDevice(ctx, dev); err != nil {
		t.Fatalf("CreateDevice() error = %v", err)
	}

	if err := registry.DeleteDevice(ctx, dev.ID); err != nil {
		t.Fatalf("DeleteDevice() error = %v", err)
	}

	_, err := registry.GetDevice(ctx, dev.ID)
	if !errors.Is(err, ErrDeviceNotFound) {
		t.Errorf("GetDevice() after delete error = %v, want ErrDeviceNotFound", err)
	}
}

func TestRegistry_SetMatterNodeID(t *testing.T) {
	ctx := context.Background()
	registry := NewRegistry(NewMockRepository())

	dev := testDevice("Mesh light")
	if err := registry.CreateDevice(ctx, dev); err != nil {
		t.Fatalf("CreateDevice() error = %v", err)
	}

	nodeID := "113"
	if err := registry.SetMatterNodeID(ctx, dev.ID, &nodeID); err != nil {
		t.Fatalf("SetMatterNodeID() error = %v", err)
	}

	got, err := registry.GetDevice(ctx, dev.ID)
	if err != nil {
		t.Fatalf("GetDevice() error = %v", err)
	}
	if got.MatterNodeID == nil || *got.MatterNodeID != "113" {
		t.Errorf("MatterNodeID = %v, want 113", got.MatterNodeID)
	}

	if err := registry.SetMatterNodeID(ctx, dev.ID, nil); err != nil {
		t.Fatalf("SetMatterNodeID(nil) error = %v", err)
	}
	got, err = registry.GetDevice(ctx, dev.ID)
	if err != nil {
		t.Fatalf("GetDevice() error = %v", err)
	}
	if got.MatterNodeID != nil {
		t.Errorf("MatterNodeID = %v, want nil after clearing", got.MatterNodeID)
	}
}

func TestRegistry_RefreshCache(t *testing.T) {
	ctx := context.Background()
	repo := NewMockRepository()
	registry := NewRegistry(repo)

	for _, name := range []string{"One", "Two", "Three"} {
		if err := registry.CreateDevice(ctx, testDevice(name)); err != nil {
			t.Fatalf("CreateDevice() error = %v", err)
		}
	}

	if err := registry.RefreshCache(ctx); err != nil {
		t.Fatalf("RefreshCache() error = %v", err)
	}
	if got := registry.GetDeviceCount(); got != 3 {
		t.Errorf("GetDeviceCount() = %d, want 3", got)
	}

	t.Run("propagates list errors", func(t *testing.T) {
		repo.listErr = errors.New("db closed")
		if err := registry.RefreshCache(ctx); err == nil {
			t.Error("RefreshCache() error = nil, want error")
		}
		repo.listErr = nil
	})
}

func TestRegistry_GetStats(t *testing.T) {
	ctx := context.Background()
	registry := NewRegistry(NewMockRepository())

	bulb := testDevice("Ceiling")
	if err := registry.CreateDevice(ctx, bulb); err != nil {
		t.Fatalf("CreateDevice() error = %v", err)
	}

	tv := testDevice("Panel")
	tv.Type = DeviceTypeTv
	tv.Manufacturer = ManufacturerOther
	tv.MatterNodeID = strPtr("9")
	if err := registry.CreateDevice(ctx, tv); err != nil {
		t.Fatalf("CreateDevice() error = %v", err)
	}

	stats := registry.GetStats()
	if stats.TotalDevices != 2 {
		t.Errorf("TotalDevices = %d, want 2", stats.TotalDevices)
	}
	if stats.ByType[DeviceTypeLightbulb] != 1 {
		t.Errorf("ByType[lightbulb] = %d, want 1", stats.ByType[DeviceTypeLightbulb])
	}
	if stats.Commissioned != 1 {
		t.Errorf("Commissioned = %d, want 1", stats.Commissioned)
	}
}
