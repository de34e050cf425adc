// Package presence reads the router's view of hosts on the home network and
// reconciles stored device identity against it.
//
// A Source produces a snapshot of router entries (address, MAC, hostname).
// The resolver matches devices to entries by MAC (case-insensitive) or by
// address and substitutes the live values, so a device whose DHCP lease
// changed is still reachable. Resolution is pure and never fails: an
// unreachable router degrades to an empty snapshot and stored values pass
// through unchanged.
package presence
