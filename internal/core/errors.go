// Package core defines sentinel errors.
package core

import "errors"

// Sentinel errors, always wrapped with context via %w.
var (
	// Buffer access errors
	ErrPacketTooShort = errors.New("batadv: packet too short")

	// Fragment reassembly errors
	ErrReassemblyTimeout     = errors.New("batadv: fragment reassembly timeout")
	ErrReassemblyLimit       = errors.New("batadv: fragment reassembly limit exceeded")
	ErrReassemblyRateLimited = errors.New("batadv: fragment rate limit exceeded")

	// Capture errors
	ErrUnsupportedLinkType = errors.New("batadv: unsupported link type")

	// Configuration errors
	ErrConfigInvalid = errors.New("batadv: invalid configuration")
)
