// Package core defines core data structures with zero external dependencies.
package core

import "time"

// RawFrame is one captured link-layer frame.
type RawFrame struct {
	Index      uint64    // 1-based position in the capture
	Data       []byte    // Full frame bytes starting at the Ethernet header
	Timestamp  time.Time // Capture timestamp
	CaptureLen uint32    // Captured length
	OrigLen    uint32    // Original length on the wire
}

// DecodedFrame is the output handed to record sinks after decoding.
type DecodedFrame struct {
	Index      uint64
	Timestamp  time.Time
	Worker     int        // Partition that decoded the frame
	Addressing Addressing // Context after decoding
	Tree       *Tree
}
