package yeelight

import "errors"

// Domain errors for the yeelight package.
var (
	// ErrUnreachable is returned when the bulb cannot be dialled or the
	// connection times out.
	ErrUnreachable = errors.New("yeelight: unreachable")

	// ErrBadReply is returned when the bulb's reply cannot be decoded.
	ErrBadReply = errors.New("yeelight: bad reply")

	// ErrCommandRejected is returned when the bulb answers with an error
	// object.
	ErrCommandRejected = errors.New("yeelight: command rejected")
)
