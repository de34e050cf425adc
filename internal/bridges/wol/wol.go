package wol

import (
	"bytes"
	"errors"
	"fmt"
	"net"
	"strconv"
)

const (
	// DefaultPort is the conventional WoL discard port.
	DefaultPort = 9

	headerLen  = 6
	macRepeats = 16
	packetLen  = headerLen + macRepeats*6
)

// ErrInvalidMAC is returned when the MAC address cannot be parsed.
var ErrInvalidMAC = errors.New("wol: invalid mac")

// SenderOptions configures a Sender.
type SenderOptions struct {
	// BroadcastAddress is the target for magic packets.
	// Defaults to the limited broadcast address 255.255.255.255.
	BroadcastAddress string

	// Port defaults to 9.
	Port int
}

// Sender broadcasts magic packets on the local network.
type Sender struct {
	target string
}

// NewSender creates a magic packet sender.
func NewSender(opts SenderOptions) *Sender {
	addr := opts.BroadcastAddress
	if addr == "" {
		addr = "255.255.255.255"
	}
	port := opts.Port
	if port <= 0 {
		port = DefaultPort
	}
	return &Sender{target: net.JoinHostPort(addr, strconv.Itoa(port))}
}

// Wake broadcasts a magic packet for the given MAC address.
func (s *Sender) Wake(mac string) error {
	packet, err := MagicPacket(mac)
	if err != nil {
		return err
	}

	conn, err := net.Dial("udp", s.target)
	if err != nil {
		return fmt.Errorf("dialling %s: %w", s.target, err)
	}
	defer conn.Close()

	if _, err := conn.Write(packet); err != nil {
		return fmt.Errorf("sending magic packet: %w", err)
	}
	return nil
}

// MagicPacket builds the wire format for a MAC address: six 0xFF bytes
// followed by the MAC repeated sixteen times.
func MagicPacket(mac string) ([]byte, error) {
	hw, err := net.ParseMAC(mac)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrInvalidMAC, mac)
	}
	if len(hw) != 6 {
		return nil, fmt.Errorf("%w: %q is not EUI-48", ErrInvalidMAC, mac)
	}

	packet := make([]byte, 0, packetLen)
	packet = append(packet, bytes.Repeat([]byte{0xFF}, headerLen)...)
	for i := 0; i < macRepeats; i++ {
		packet = append(packet, hw...)
	}
	return packet, nil
}
