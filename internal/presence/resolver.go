package presence

import "strings"

// Resolution is the reconciled network identity of a device: the stored
// address and MAC with live router values substituted where a matching
// host was found.
type Resolution struct {
	Address *string
	MAC     *string

	// Matched reports whether any router entry matched the stored identity.
	Matched bool

	// Online is the matched entry's own online flag; always false when
	// nothing matched. The router keeps recently departed hosts in its
	// table, so Matched does not imply Online.
	Online bool
}

// Resolve reconciles a stored (MAC, address) pair against a router
// snapshot. An entry matches when its MAC equals the stored MAC ignoring
// case, or its address equals the stored address. On a match the entry's
// live address and uppercase MAC are returned; otherwise the stored values
// pass through unchanged. Resolve is pure and never fails.
func Resolve(entries []Entry, storedMAC, storedAddress *string) Resolution {
	for i := range entries {
		e := &entries[i]
		if !matches(e, storedMAC, storedAddress) {
			continue
		}

		res := Resolution{Address: storedAddress, MAC: storedMAC, Matched: true, Online: e.Online}
		if e.Address != "" {
			addr := e.Address
			res.Address = &addr
		}
		if e.MAC != "" {
			mac := strings.ToUpper(e.MAC)
			res.MAC = &mac
		}
		return res
	}

	return Resolution{Address: storedAddress, MAC: storedMAC}
}

// Online reports whether the stored identity matches a snapshot entry
// the router currently sees as connected.
func Online(entries []Entry, storedMAC, storedAddress *string) bool {
	return Resolve(entries, storedMAC, storedAddress).Online
}

func matches(e *Entry, storedMAC, storedAddress *string) bool {
	if storedMAC != nil && e.MAC != "" && strings.EqualFold(e.MAC, *storedMAC) {
		return true
	}
	if storedAddress != nil && e.Address != "" && e.Address == *storedAddress {
		return true
	}
	return false
}
