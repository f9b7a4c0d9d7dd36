// Package capture reads captured frames and feeds them to batadv decoders.
package capture

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"

	"firestige.xyz/batadv/internal/core"
	"firestige.xyz/batadv/internal/metrics"
)

// pcapngMagic is the block type of a pcapng section header.
var pcapngMagic = []byte{0x0a, 0x0d, 0x0d, 0x0a}

// packetReader is implemented by both pcapgo readers.
type packetReader interface {
	ReadPacketData() ([]byte, gopacket.CaptureInfo, error)
	LinkType() layers.LinkType
}

// FrameSource yields captured frames until io.EOF.
type FrameSource interface {
	Next() (core.RawFrame, error)
}

// Source reads Ethernet frames from a pcap or pcapng stream.
type Source struct {
	name   string
	format string
	closer io.Closer
	reader packetReader
	index  uint64
}

// Open opens a capture file. The format is detected from its magic.
func Open(path string) (*Source, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open capture file %s: %w", path, err)
	}
	s, err := NewSource(path, f)
	if err != nil {
		f.Close()
		return nil, err
	}
	s.closer = f
	return s, nil
}

// NewSource wraps an already open capture stream.
func NewSource(name string, r io.Reader) (*Source, error) {
	br := bufio.NewReader(r)
	magic, err := br.Peek(4)
	if err != nil {
		return nil, fmt.Errorf("failed to read capture header of %s: %w", name, err)
	}

	s := &Source{name: name}
	if bytes.Equal(magic, pcapngMagic) {
		ng, err := pcapgo.NewNgReader(br, pcapgo.DefaultNgReaderOptions)
		if err != nil {
			return nil, fmt.Errorf("failed to read pcapng %s: %w", name, err)
		}
		s.reader, s.format = ng, "pcapng"
	} else {
		pr, err := pcapgo.NewReader(br)
		if err != nil {
			return nil, fmt.Errorf("failed to read pcap %s: %w", name, err)
		}
		s.reader, s.format = pr, "pcap"
	}

	if lt := s.reader.LinkType(); lt != layers.LinkTypeEthernet {
		return nil, fmt.Errorf("%w: %s has link type %s", core.ErrUnsupportedLinkType, name, lt)
	}
	return s, nil
}

// Format reports "pcap" or "pcapng".
func (s *Source) Format() string { return s.format }

// Next returns the next frame, or io.EOF at the end of the capture.
func (s *Source) Next() (core.RawFrame, error) {
	data, ci, err := s.reader.ReadPacketData()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return core.RawFrame{}, io.EOF
		}
		return core.RawFrame{}, fmt.Errorf("failed to read frame %d of %s: %w", s.index+1, s.name, err)
	}
	s.index++
	metrics.CaptureFramesTotal.WithLabelValues(s.format).Inc()

	return core.RawFrame{
		Index:      s.index,
		Data:       data,
		Timestamp:  ci.Timestamp,
		CaptureLen: uint32(ci.CaptureLength),
		OrigLen:    uint32(ci.Length),
	}, nil
}

// Close releases the underlying file, if any.
func (s *Source) Close() error {
	if s.closer == nil {
		return nil
	}
	err := s.closer.Close()
	s.closer = nil
	return err
}
