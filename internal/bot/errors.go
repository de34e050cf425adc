package bot

import "errors"

var (
	// ErrUnknownState indicates a conversation state the machine does
	// not handle. Sessions carrying one are reset to idle.
	ErrUnknownState = errors.New("bot: unknown state")
)
