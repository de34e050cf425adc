package device

import (
	"fmt"
	"regexp"
	"strings"
)

// Validation constants.
const (
	maxNameLength = 100
	macPattern    = `^(?:[0-9a-fA-F]{2}:){5}[0-9a-fA-F]{2}$`
)

var macRegex = regexp.MustCompile(macPattern)

// Pre-computed validation sets for O(1) lookups instead of O(n) linear search.
var (
	validDeviceTypes   map[DeviceType]struct{}
	validManufacturers map[Manufacturer]struct{}
)

func init() {
	// Build validation sets once at startup
	validDeviceTypes = make(map[DeviceType]struct{}, len(AllDeviceTypes()))
	for _, t := range AllDeviceTypes() {
		validDeviceTypes[t] = struct{}{}
	}

	validManufacturers = make(map[Manufacturer]struct{}, len(AllManufacturers()))
	for _, m := range AllManufacturers() {
		validManufacturers[m] = struct{}{}
	}
}

// ValidateDevice performs comprehensive validation on a device.
// Returns an error describing the first validation failure found.
func ValidateDevice(d *Device) error {
	if d == nil {
		return ErrInvalidDevice
	}

	if err := ValidateName(d.Name); err != nil {
		return err
	}

	if err := ValidateDeviceType(d.Type); err != nil {
		return err
	}

	if err := ValidateManufacturer(d.Manufacturer); err != nil {
		return err
	}

	if d.MAC != nil {
		normalized, err := NormalizeMAC(*d.MAC)
		if err != nil {
			return err
		}
		d.MAC = &normalized
	}

	if d.Address != nil {
		if err := ValidateAddress(*d.Address); err != nil {
			return err
		}
	}

	return nil
}

// ValidateName checks if a device name is valid.
func ValidateName(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("%w: name cannot be empty", ErrInvalidName)
	}
	if len(name) > maxNameLength {
		return fmt.Errorf("%w: name exceeds %d characters", ErrInvalidName, maxNameLength)
	}
	return nil
}

// ValidateDeviceType checks if a device type is valid.
// Uses O(1) map lookup for efficiency.
func ValidateDeviceType(deviceType DeviceType) error {
	if _, ok := validDeviceTypes[deviceType]; ok {
		return nil
	}
	return fmt.Errorf("%w: %q", ErrInvalidDeviceType, deviceType)
}

// ValidateManufacturer checks if a manufacturer is valid.
// Uses O(1) map lookup for efficiency.
func ValidateManufacturer(manufacturer Manufacturer) error {
	if _, ok := validManufacturers[manufacturer]; ok {
		return nil
	}
	return fmt.Errorf("%w: %q", ErrInvalidManufacturer, manufacturer)
}

// ValidateAddress checks if a network address is valid.
func ValidateAddress(address string) error {
	if strings.TrimSpace(address) == "" {
		return fmt.Errorf("%w: address cannot be empty", ErrInvalidAddress)
	}
	return nil
}

// NormalizeMAC validates a MAC address and returns its canonical uppercase
// form. Input is accepted in either case; storage and comparison always use
// the uppercase form.
func NormalizeMAC(mac string) (string, error) {
	mac = strings.TrimSpace(mac)
	if !macRegex.MatchString(mac) {
		return "", fmt.Errorf("%w: %q", ErrInvalidMAC, mac)
	}
	return strings.ToUpper(mac), nil
}
