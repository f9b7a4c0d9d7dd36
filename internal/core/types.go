// Package core defines core types with zero external dependencies.
package core

import (
	"fmt"
	"net"
)

// HardwareAddr is a 6-byte link-layer address stored by value.
type HardwareAddr [6]byte

// String renders the address as colon-separated lowercase hex.
func (a HardwareAddr) String() string {
	return fmt.Sprintf("%02x:%02x:%02x:%02x:%02x:%02x", a[0], a[1], a[2], a[3], a[4], a[5])
}

// MarshalText implements encoding.TextMarshaler so JSON and YAML render the colon form.
func (a HardwareAddr) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

// UnmarshalText parses the colon form produced by MarshalText.
func (a *HardwareAddr) UnmarshalText(text []byte) error {
	hw, err := net.ParseMAC(string(text))
	if err != nil {
		return err
	}
	if len(hw) != len(a) {
		return fmt.Errorf("hardware address %q is not 6 bytes", text)
	}
	copy(a[:], hw)
	return nil
}

// IsZero reports whether the address is all zeros.
func (a HardwareAddr) IsZero() bool {
	return a == HardwareAddr{}
}

// Addressing is the mutable addressing context of one decode invocation.
// Sub-decoders publish the link-layer (DL*) and network (Src/Dst) level
// endpoints they discover; correlation consumers read them afterwards.
type Addressing struct {
	DLSrc HardwareAddr
	DLDst HardwareAddr
	Src   HardwareAddr
	Dst   HardwareAddr
}

// SetSource sets both the link-layer and the network source.
func (a *Addressing) SetSource(addr HardwareAddr) {
	a.DLSrc = addr
	a.Src = addr
}

// SetDestination sets both the link-layer and the network destination.
func (a *Addressing) SetDestination(addr HardwareAddr) {
	a.DLDst = addr
	a.Dst = addr
}
