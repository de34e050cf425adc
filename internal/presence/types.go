package presence

import "context"

// Entry is a single host as reported by the router.
type Entry struct {
	// Address is the host's current IP address.
	Address string `json:"address"`

	// MAC is the hardware address as reported by the router. Case is not
	// guaranteed; comparisons must be case-insensitive.
	MAC string `json:"mac"`

	// Hostname is the name the host announced, if any.
	Hostname string `json:"hostname,omitempty"`

	// Online reports whether the router currently sees the host.
	Online bool `json:"online"`

	// Uptime is the seconds the host has been connected, when reported.
	Uptime int64 `json:"uptime,omitempty"`
}

// Source produces router presence snapshots.
type Source interface {
	// Snapshot returns the router's current host list.
	Snapshot(ctx context.Context) ([]Entry, error)
}
