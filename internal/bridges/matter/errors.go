package matter

import "errors"

// Domain errors for the matter package.
var (
	// ErrTimeout is returned when the controller bridge does not answer
	// within the request timeout.
	ErrTimeout = errors.New("matter: request timeout")

	// ErrCommandFailed is returned when the controller bridge reports a
	// failed request.
	ErrCommandFailed = errors.New("matter: command failed")

	// ErrBadResponse is returned when a response cannot be decoded or is
	// missing expected data.
	ErrBadResponse = errors.New("matter: bad response")
)
