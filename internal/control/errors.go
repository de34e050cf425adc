package control

import "errors"

// Domain errors for the control package.
var (
	// ErrUnsupported is returned when no backend can serve the requested
	// operation for the device.
	ErrUnsupported = errors.New("control: unsupported operation")

	// ErrNotCommissioned is returned for mesh operations on a device
	// without a Matter node id.
	ErrNotCommissioned = errors.New("control: device not commissioned")

	// ErrDecommissionFailed is returned when a delete is aborted because
	// the device could not be removed from the mesh first.
	ErrDecommissionFailed = errors.New("control: decommission failed")
)
