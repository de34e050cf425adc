package device

import "errors"

// Domain errors for the device package.
//
// These errors can be checked using errors.Is() for error handling:
//
//	if errors.Is(err, device.ErrDeviceNotFound) {
//	    // handle not found case
//	}
var (
	// ErrDeviceNotFound is returned when a device ID does not exist.
	ErrDeviceNotFound = errors.New("device: not found")

	// ErrDeviceExists is returned when creating a device that collides with an existing row.
	ErrDeviceExists = errors.New("device: already exists")

	// ErrInvalidDevice is returned when device validation fails.
	ErrInvalidDevice = errors.New("device: invalid")

	// ErrInvalidName is returned when a device name is empty or too long.
	ErrInvalidName = errors.New("device: invalid name")

	// ErrInvalidMAC is returned when a MAC address is not six colon-separated hex pairs.
	ErrInvalidMAC = errors.New("device: invalid mac")

	// ErrInvalidAddress is returned when a network address is empty.
	ErrInvalidAddress = errors.New("device: invalid address")

	// ErrInvalidDeviceType is returned when a device type is not recognised.
	ErrInvalidDeviceType = errors.New("device: invalid type")

	// ErrInvalidManufacturer is returned when a manufacturer value is not recognised.
	ErrInvalidManufacturer = errors.New("device: invalid manufacturer")

	// ErrNameTaken is returned when another device already uses the name.
	ErrNameTaken = errors.New("device: name taken")

	// ErrMACTaken is returned when another device already uses the MAC address.
	ErrMACTaken = errors.New("device: mac taken")

	// ErrAddressTaken is returned when another device already uses the network address.
	ErrAddressTaken = errors.New("device: address taken")
)
