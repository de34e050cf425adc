package device

import "time"

// Device represents an entry in the household device inventory.
// This matches the database schema in migrations/20260815_120000_initial_schema.up.sql.
type Device struct {
	// Identity
	ID   int64  `json:"id"`
	Name string `json:"name"`

	// Classification
	Type         DeviceType   `json:"type"`
	Manufacturer Manufacturer `json:"manufacturer"`

	// Network identity. MAC is stored uppercase; either field may be
	// absent for devices identified only by the other.
	MAC     *string `json:"mac,omitempty"`
	Address *string `json:"address,omitempty"`

	// MatterNodeID is set once the device has been commissioned onto the
	// Matter mesh. Stored as a decimal string to survive JSON round-trips
	// for node ids above 2^53.
	MatterNodeID *string `json:"matter_node_id,omitempty"`

	// Timestamps
	CreatedAt time.Time `json:"created_at"`
}

// DeepCopy creates a complete independent copy of the Device.
// Pointer fields are cloned so modifications to the copy do not
// affect the original.
func (d *Device) DeepCopy() *Device {
	if d == nil {
		return nil
	}

	cpy := *d // Shallow copy of value fields

	cpy.MAC = copyStringPtr(d.MAC)
	cpy.Address = copyStringPtr(d.Address)
	cpy.MatterNodeID = copyStringPtr(d.MatterNodeID)

	return &cpy
}

func copyStringPtr(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}

// DeviceType represents the kind of device being managed.
type DeviceType string //nolint:revive // device.DeviceType is clearer than device.Type in calling code

// DeviceType constants.
const (
	DeviceTypeLightbulb DeviceType = "lightbulb"
	DeviceTypeTv        DeviceType = "tv"
	DeviceTypeSocket    DeviceType = "socket"
	DeviceTypeOther     DeviceType = "other"
	DeviceTypeUnknown   DeviceType = "unknown"
)

// AllDeviceTypes returns all valid device type values.
func AllDeviceTypes() []DeviceType {
	return []DeviceType{
		DeviceTypeLightbulb, DeviceTypeTv, DeviceTypeSocket,
		DeviceTypeOther, DeviceTypeUnknown,
	}
}

// SelectableDeviceTypes returns the types offered during onboarding.
// Unknown is reserved for devices discovered from the router rather
// than added by a person.
func SelectableDeviceTypes() []DeviceType {
	return []DeviceType{
		DeviceTypeLightbulb, DeviceTypeTv, DeviceTypeSocket, DeviceTypeOther,
	}
}

// Manufacturer represents the device vendor, used to pick a control backend.
type Manufacturer string

// Manufacturer constants.
const (
	ManufacturerYeelight Manufacturer = "yeelight"
	ManufacturerOther    Manufacturer = "other"
	ManufacturerUnknown  Manufacturer = "unknown"
)

// AllManufacturers returns all valid manufacturer values.
func AllManufacturers() []Manufacturer {
	return []Manufacturer{
		ManufacturerYeelight, ManufacturerOther, ManufacturerUnknown,
	}
}

// PowerState represents the last observed power state of a device.
type PowerState string

// PowerState constants.
const (
	PowerOn      PowerState = "on"
	PowerOff     PowerState = "off"
	PowerUnknown PowerState = "unknown"
)
