package presence

import "errors"

// Domain errors for the presence package.
var (
	// ErrRouterUnavailable is returned when the router cannot be reached
	// or responds with an unexpected status.
	ErrRouterUnavailable = errors.New("presence: router unavailable")

	// ErrBadSnapshot is returned when the router response cannot be decoded.
	ErrBadSnapshot = errors.New("presence: bad snapshot")
)
