package domain

import (
	"errors"
	"fmt"
	"strings"
)

var ErrUnknownProbe = errors.New("unknown probe")

// ProbeIdentity carries the identity fields reported by the device.
// Firmware version and hardware revision stay nil until the device reports them.
type ProbeIdentity struct {
	SerialNumber     uint32  `json:"serial_number"`
	FirmwareVersion  *string `json:"firmware_version,omitempty"`
	HardwareRevision *string `json:"hardware_revision,omitempty"`
}

// SerialHex renders the serial number as 4-digit uppercase hex.
func (p ProbeIdentity) SerialHex() string {
	return fmt.Sprintf("%04X", p.SerialNumber)
}

// ConnectionState is the current link state of a probe as reported by the device collaborator.
type ConnectionState uint8

const (
	StateDisconnected ConnectionState = iota
	StateConnecting
	StateConnected
	StateFailed
)

func (c ConnectionState) String() string {
	switch c {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("state(%d)", uint8(c))
	}
}

// ParseConnectionState is the inverse of String.
func ParseConnectionState(s string) (ConnectionState, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "disconnected", "":
		return StateDisconnected, nil
	case "connecting":
		return StateConnecting, nil
	case "connected":
		return StateConnected, nil
	case "failed":
		return StateFailed, nil
	default:
		return StateDisconnected, fmt.Errorf("unknown connection state %q", s)
	}
}

func (c ConnectionState) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

func (c *ConnectionState) UnmarshalText(b []byte) error {
	v, err := ParseConnectionState(string(b))
	if err != nil {
		return err
	}
	*c = v
	return nil
}

// Streaming reports whether samples may still be arriving.
func (c ConnectionState) Streaming() bool {
	return c == StateConnected
}
