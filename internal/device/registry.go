package device

import (
	"context"
	"fmt"
	"sync"
)

// Logger defines the logging interface used by the Registry.
// This allows different logging implementations to be used.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Registry provides device management with caching and thread safety.
// It wraps a Repository and adds an in-memory cache for fast lookups.
//
// The cache is populated on startup via RefreshCache() and kept in sync
// by cache-invalidating CRUD operations.
//
// All public methods are thread-safe.
type Registry struct {
	repo    Repository
	cache   map[int64]*Device // Cached devices by ID
	cacheMu sync.RWMutex      // Protects cache
	logger  Logger
}

// NewRegistry creates a new device registry.
// The repository is used for persistence; the registry adds caching.
func NewRegistry(repo Repository) *Registry {
	return &Registry{
		repo:   repo,
		cache:  make(map[int64]*Device),
		logger: noopLogger{},
	}
}

// SetLogger sets the logger for the registry.
func (r *Registry) SetLogger(logger Logger) {
	r.logger = logger
}

// RefreshCache reloads all devices from the repository into the cache.
// This should be called on application startup.
func (r *Registry) RefreshCache(ctx context.Context) error {
	devices, err := r.repo.List(ctx)
	if err != nil {
		return fmt.Errorf("loading devices: %w", err)
	}

	r.cacheMu.Lock()
	defer r.cacheMu.Unlock()

	// Clear and rebuild cache with deep copies
	r.cache = make(map[int64]*Device, len(devices))
	for i := range devices {
		d := devices[i]
		r.cache[d.ID] = d.DeepCopy()
	}

	r.logger.Info("device cache refreshed", "count", len(devices))
	return nil
}

// GetDevice retrieves a device by ID.
// Returns ErrDeviceNotFound if the device does not exist.
// The returned device is a deep copy; callers can safely modify it.
func (r *Registry) GetDevice(ctx context.Context, id int64) (*Device, error) {
	// Try cache first
	r.cacheMu.RLock()
	cached, ok := r.cache[id]
	r.cacheMu.RUnlock()

	if ok {
		// Return a deep copy to prevent external mutation of cache
		return cached.DeepCopy(), nil
	}

	// Fall back to repository (might be a new device not yet cached)
	device, err := r.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	// Cache for future lookups (store a deep copy)
	r.cacheMu.Lock()
	r.cache[id] = device.DeepCopy()
	r.cacheMu.Unlock()

	return device, nil
}

// ListDevices retrieves all devices.
// The returned devices are deep copies; callers can safely modify them.
func (r *Registry) ListDevices(ctx context.Context) ([]Device, error) {
	return r.repo.List(ctx)
}

// FindDevice retrieves the first device matching a free-text query, by
// name substring or type vocabulary word.
// Returns ErrDeviceNotFound when nothing matches.
func (r *Registry) FindDevice(ctx context.Context, query string) (*Device, error) {
	return r.repo.FindFirstMatch(ctx, query)
}

// CreateDevice creates a new device.
// It validates the device, checks name/MAC/address uniqueness, and persists it.
func (r *Registry) CreateDevice(ctx context.Context, device *Device) error {
	// Validate (normalises the MAC in place)
	if err := ValidateDevice(device); err != nil {
		return err
	}

	if err := r.checkUniqueness(ctx, device, 0); err != nil {
		return err
	}

	// Persist
	if err := r.repo.Create(ctx, device); err != nil {
		return err
	}

	// Update cache (store a deep copy to prevent external modification)
	r.cacheMu.Lock()
	r.cache[device.ID] = device.DeepCopy()
	r.cacheMu.Unlock()

	r.logger.Info("device created", "id", device.ID, "name", device.Name)
	return nil
}

// UpdateDevice updates an existing device.
// It validates the device and persists the changes. Uniqueness checks
// skip the device's own row so unchanged fields stay valid.
func (r *Registry) UpdateDevice(ctx context.Context, device *Device) error {
	// Validate (normalises the MAC in place)
	if err := ValidateDevice(device); err != nil {
		return err
	}

	if err := r.checkUniqueness(ctx, device, device.ID); err != nil {
		return err
	}

	// Persist
	if err := r.repo.Update(ctx, device); err != nil {
		return err
	}

	// Update cache (store a deep copy to prevent external modification)
	r.cacheMu.Lock()
	r.cache[device.ID] = device.DeepCopy()
	r.cacheMu.Unlock()

	r.logger.Info("device updated", "id", device.ID, "name", device.Name)
	return nil
}

// DeleteDevice removes a device.
func (r *Registry) DeleteDevice(ctx context.Context, id int64) error {
	if err := r.repo.Delete(ctx, id); err != nil {
		return err
	}

	// Update cache
	r.cacheMu.Lock()
	delete(r.cache, id)
	r.cacheMu.Unlock()

	r.logger.Info("device deleted", "id", id)
	return nil
}

// SetMatterNodeID records (or clears, with nil) the Matter node id assigned
// to a device during commissioning.
func (r *Registry) SetMatterNodeID(ctx context.Context, id int64, nodeID *string) error {
	device, err := r.GetDevice(ctx, id)
	if err != nil {
		return err
	}

	device.MatterNodeID = nodeID
	if err := r.repo.Update(ctx, device); err != nil {
		return err
	}

	r.cacheMu.Lock()
	r.cache[id] = device.DeepCopy()
	r.cacheMu.Unlock()

	r.logger.Info("device matter node updated", "id", id, "assigned", nodeID != nil)
	return nil
}

// checkUniqueness verifies that name, MAC and address are not used by any
// device other than excludeID.
func (r *Registry) checkUniqueness(ctx context.Context, device *Device, excludeID int64) error {
	taken, err := r.repo.NameTaken(ctx, device.Name, excludeID)
	if err != nil {
		return fmt.Errorf("checking name uniqueness: %w", err)
	}
	if taken {
		return ErrNameTaken
	}

	if device.MAC != nil {
		taken, err = r.repo.MACTaken(ctx, *device.MAC, excludeID)
		if err != nil {
			return fmt.Errorf("checking mac uniqueness: %w", err)
		}
		if taken {
			return ErrMACTaken
		}
	}

	if device.Address != nil {
		taken, err = r.repo.AddressTaken(ctx, *device.Address, excludeID)
		if err != nil {
			return fmt.Errorf("checking address uniqueness: %w", err)
		}
		if taken {
			return ErrAddressTaken
		}
	}

	return nil
}

// NameTaken reports whether a device other than excludeID uses the name.
func (r *Registry) NameTaken(ctx context.Context, name string, excludeID int64) (bool, error) {
	return r.repo.NameTaken(ctx, name, excludeID)
}

// MACTaken reports whether a device other than excludeID uses the MAC.
func (r *Registry) MACTaken(ctx context.Context, mac string, excludeID int64) (bool, error) {
	return r.repo.MACTaken(ctx, mac, excludeID)
}

// AddressTaken reports whether a device other than excludeID uses the address.
func (r *Registry) AddressTaken(ctx context.Context, address string, excludeID int64) (bool, error) {
	return r.repo.AddressTaken(ctx, address, excludeID)
}

// GetDeviceCount returns the number of cached devices.
func (r *Registry) GetDeviceCount() int {
	r.cacheMu.RLock()
	defer r.cacheMu.RUnlock()
	return len(r.cache)
}

// Stats returns registry statistics for monitoring.
type Stats struct {
	TotalDevices   int
	ByType         map[DeviceType]int
	ByManufacturer map[Manufacturer]int
	Commissioned   int
}

// GetStats returns current registry statistics.
func (r *Registry) GetStats() Stats {
	r.cacheMu.RLock()
	defer r.cacheMu.RUnlock()

	stats := Stats{
		TotalDevices:   len(r.cache),
		ByType:         make(map[DeviceType]int),
		ByManufacturer: make(map[Manufacturer]int),
	}

	for _, d := range r.cache {
		stats.ByType[d.Type]++
		stats.ByManufacturer[d.Manufacturer]++
		if d.MatterNodeID != nil {
			stats.Commissioned++
		}
	}

	return stats
}
