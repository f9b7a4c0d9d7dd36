package sink

import (
	"sort"
	"sync"
	"time"

	"github.com/patrickmn/go-cache"

	"firestige.xyz/batadv/internal/core"
	"firestige.xyz/batadv/internal/core/decoder"
	"firestige.xyz/batadv/internal/metrics"
)

const (
	defaultOriginatorTTL = 5 * time.Minute
	minCleanupInterval   = time.Second
)

// Originator is the latest routing announcement seen from one node.
type Originator struct {
	Addr       core.HardwareAddr `json:"addr" yaml:"addr"`
	Protocol   string            `json:"protocol" yaml:"protocol"`
	Version    uint8             `json:"version" yaml:"version"`
	Seqno      uint32            `json:"seqno" yaml:"seqno"`
	PrevSender core.HardwareAddr `json:"prev_sender" yaml:"prev_sender"`
	TQ         uint8             `json:"tq,omitempty" yaml:"tq,omitempty"`
	Throughput uint32            `json:"throughput,omitempty" yaml:"throughput,omitempty"` // 100 kbit/s units
	Downlink   uint32            `json:"downlink_kbit,omitempty" yaml:"downlink_kbit,omitempty"`
	Uplink     uint32            `json:"uplink_kbit,omitempty" yaml:"uplink_kbit,omitempty"`
	Interval   uint32            `json:"interval_ms,omitempty" yaml:"interval_ms,omitempty"`
	Messages   uint64            `json:"messages" yaml:"messages"`
	FirstSeen  time.Time         `json:"first_seen" yaml:"first_seen"`
	LastSeen   time.Time         `json:"last_seen" yaml:"last_seen"`
}

// Originators keeps one entry per announcing node, refreshed by every
// BATMAN, IV OGM, OGM2 and ELP header and expired after the TTL.
type Originators struct {
	mu    sync.Mutex
	cache *cache.Cache
	ttl   time.Duration
	now   func() time.Time
}

var _ decoder.Tap = (*Originators)(nil)

// NewOriginators creates a table. A ttl of zero selects five minutes.
func NewOriginators(ttl time.Duration) *Originators {
	if ttl <= 0 {
		ttl = defaultOriginatorTTL
	}
	cleanup := ttl / 2
	if cleanup < minCleanupInterval {
		cleanup = minCleanupInterval
	}
	o := &Originators{
		cache: cache.New(ttl, cleanup),
		ttl:   ttl,
		now:   time.Now,
	}
	o.cache.OnEvicted(func(string, interface{}) {
		metrics.OriginatorTableSize.Set(float64(o.cache.ItemCount()))
	})
	return o
}

// Tap records the header if it announces an originator.
func (o *Originators) Tap(hdr decoder.Header, _ core.Addressing) {
	var next Originator
	switch h := hdr.(type) {
	case decoder.BatmanHeader:
		next = Originator{Addr: h.Orig, Seqno: h.Seqno, PrevSender: h.PrevSender, TQ: h.TQ,
			Downlink: h.Downlink, Uplink: h.Uplink}
	case decoder.IVOGMHeader:
		next = Originator{Addr: h.Orig, Seqno: h.Seqno, PrevSender: h.PrevSender, TQ: h.TQ}
	case decoder.OGM2Header:
		next = Originator{Addr: h.Orig, Seqno: h.Seqno, Throughput: h.Throughput}
	case decoder.ELPHeader:
		next = Originator{Addr: h.Orig, Seqno: h.Seqno, Interval: h.Interval}
	default:
		return
	}
	next.Protocol = hdr.Protocol()
	next.Version = hdr.PacketVersion()

	now := o.now()
	key := next.Addr.String()

	o.mu.Lock()
	defer o.mu.Unlock()

	next.FirstSeen = now
	if v, ok := o.cache.Get(key); ok {
		prev := v.(Originator)
		next.FirstSeen = prev.FirstSeen
		next.Messages = prev.Messages
		// ELP probes carry no gateway or link quality; keep what OGMs said.
		if next.Protocol == core.ProtoELP {
			next.TQ, next.Throughput = prev.TQ, prev.Throughput
			next.Downlink, next.Uplink = prev.Downlink, prev.Uplink
		} else if next.Interval == 0 {
			next.Interval = prev.Interval
		}
	}
	next.Messages++
	next.LastSeen = now
	o.cache.Set(key, next, cache.DefaultExpiration)
	metrics.OriginatorTableSize.Set(float64(o.cache.ItemCount()))
}

// Get returns the entry for addr.
func (o *Originators) Get(addr core.HardwareAddr) (Originator, bool) {
	v, ok := o.cache.Get(addr.String())
	if !ok {
		return Originator{}, false
	}
	return v.(Originator), true
}

// List returns the live entries ordered by address.
func (o *Originators) List() []Originator {
	items := o.cache.Items()
	out := make([]Originator, 0, len(items))
	for _, it := range items {
		out = append(out, it.Object.(Originator))
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Addr.String() < out[j].Addr.String()
	})
	return out
}

// Len returns the number of entries, expired ones included until the
// next cleanup.
func (o *Originators) Len() int { return o.cache.ItemCount() }

// Expire drops entries past their TTL.
func (o *Originators) Expire() {
	o.cache.DeleteExpired()
	metrics.OriginatorTableSize.Set(float64(o.cache.ItemCount()))
}
