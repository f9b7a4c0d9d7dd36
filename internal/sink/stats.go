package sink

import (
	"sort"
	"strconv"
	"sync"

	"firestige.xyz/batadv/internal/core"
	"firestige.xyz/batadv/internal/core/decoder"
	"firestige.xyz/batadv/internal/metrics"
)

// HeaderCount is the number of headers tapped for one protocol version.
type HeaderCount struct {
	Protocol string `json:"protocol" yaml:"protocol"`
	Version  uint8  `json:"version" yaml:"version"`
	Count    uint64 `json:"count" yaml:"count"`
}

type headerKey struct {
	protocol string
	version  uint8
}

// Stats counts tapped headers per protocol and version, both in memory
// and in the batadv_tap_headers_total counter.
type Stats struct {
	mu     sync.Mutex
	counts map[headerKey]uint64
}

var _ decoder.Tap = (*Stats)(nil)

func NewStats() *Stats {
	return &Stats{counts: make(map[headerKey]uint64)}
}

func (s *Stats) Tap(hdr decoder.Header, _ core.Addressing) {
	key := headerKey{protocol: hdr.Protocol(), version: hdr.PacketVersion()}
	metrics.TapHeadersTotal.WithLabelValues(key.protocol, strconv.Itoa(int(key.version))).Inc()

	s.mu.Lock()
	s.counts[key]++
	s.mu.Unlock()
}

// Summary returns the counts ordered by protocol, then version.
func (s *Stats) Summary() []HeaderCount {
	s.mu.Lock()
	out := make([]HeaderCount, 0, len(s.counts))
	for k, n := range s.counts {
		out = append(out, HeaderCount{Protocol: k.protocol, Version: k.version, Count: n})
	}
	s.mu.Unlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].Protocol != out[j].Protocol {
			return out[i].Protocol < out[j].Protocol
		}
		return out[i].Version < out[j].Version
	})
	return out
}

// Total returns the number of headers tapped.
func (s *Stats) Total() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n uint64
	for _, c := range s.counts {
		n += c
	}
	return n
}
