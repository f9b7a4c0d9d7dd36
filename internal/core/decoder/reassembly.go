package decoder

import (
	"fmt"
	"sync"
	"time"

	"firestige.xyz/batadv/internal/core"
	"firestige.xyz/batadv/internal/metrics"
)

// Reassembly defaults.
const (
	defaultMaxAssemblies     = 1024
	defaultMaxParts          = 16
	defaultMaxReassembleSize = 65535
	defaultReassemblyTimeout = 30 * time.Second
	defaultCleanupInterval   = 10 * time.Second
)

// ReassemblyConfig contains configuration for fragment reassembly.
type ReassemblyConfig struct {
	MaxAssemblies     int           // Maximum concurrent assemblies; the oldest is evicted beyond it (default 1024)
	MaxParts          int           // Maximum part index per assembly plus one (default 16)
	MaxReassembleSize int           // Maximum reassembled payload size (default 65535)
	Timeout           time.Duration // Idle time before an assembly is dropped (default 30s)
	MaxFragsPerSource int           // Per-source fragment rate limit per window (0 = disabled)
	RateLimitWindow   time.Duration // Rate limit window (default 10s)
	CleanupInterval   time.Duration // Janitor period (default 10s)
}

// FragmentKey identifies the fragments of one original packet.
type FragmentKey struct {
	Src core.HardwareAddr
	Dst core.HardwareAddr
	ID  uint32
}

// Fragment is one part handed to the reassembler.
type Fragment struct {
	Key     FragmentKey
	Index   int    // Position of the part, 0 first
	Last    bool   // Closes a set whose size is implied by its parts
	Sized   bool   // Completion is driven by Total
	Total   int    // Declared payload size of the whole set
	Payload []byte // Copied by the reassembler
}

// assembly accumulates the parts of one key. It is retired once complete.
type assembly struct {
	parts    map[int][]byte
	size     int
	last     int // index of the closing part, -1 until seen
	sized    bool
	total    int
	lastSeen time.Time
}

// Reassembler collects fragment parts per key and releases the contiguous
// payload once a set is complete.
type Reassembler struct {
	mu          sync.Mutex
	assemblies  map[FragmentKey]*assembly
	config      ReassemblyConfig
	rateLimiter *FragmentRateLimiter // nil if rate limiting disabled
	clock       time.Time            // latest fragment timestamp seen

	done      chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once
}

// NewReassembler creates a reassembler and starts its janitor. Callers must
// Close it.
func NewReassembler(cfg ReassemblyConfig) *Reassembler {
	if cfg.MaxAssemblies <= 0 {
		cfg.MaxAssemblies = defaultMaxAssemblies
	}
	if cfg.MaxParts <= 0 {
		cfg.MaxParts = defaultMaxParts
	}
	if cfg.MaxReassembleSize <= 0 {
		cfg.MaxReassembleSize = defaultMaxReassembleSize
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultReassemblyTimeout
	}
	if cfg.CleanupInterval <= 0 {
		cfg.CleanupInterval = defaultCleanupInterval
	}

	r := &Reassembler{
		assemblies: make(map[FragmentKey]*assembly),
		config:     cfg,
		rateLimiter: NewFragmentRateLimiter(FragmentRateLimiterConfig{
			MaxFragsPerSource: cfg.MaxFragsPerSource,
			RateLimitWindow:   cfg.RateLimitWindow,
		}),
		done: make(chan struct{}),
	}

	r.wg.Add(1)
	go r.cleanup()

	return r
}

// Process adds one part. Insert, completeness check, retrieval and removal
// happen under a single lock.
// Returns:
//   - Set not yet complete: (nil, false, nil)
//   - Set complete: (payload, true, nil); the assembly is retired
//   - Rejected: (nil, false, err) wrapping ErrReassemblyLimit or ErrReassemblyRateLimited
func (r *Reassembler) Process(f Fragment, ts time.Time) ([]byte, bool, error) {
	if f.Index < 0 || f.Index >= r.config.MaxParts {
		metrics.FragmentRejects.WithLabelValues("index").Inc()
		return nil, false, fmt.Errorf("%w: part index %d outside 0..%d",
			core.ErrReassemblyLimit, f.Index, r.config.MaxParts-1)
	}
	if r.rateLimiter != nil && !r.rateLimiter.Allow(f.Key.Src, ts) {
		metrics.FragmentRejects.WithLabelValues("rate_limit").Inc()
		return nil, false, fmt.Errorf("%w: source %s", core.ErrReassemblyRateLimited, f.Key.Src)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if ts.After(r.clock) {
		r.clock = ts
	}

	a, exists := r.assemblies[f.Key]
	if exists && ts.Sub(a.lastSeen) > r.config.Timeout {
		r.evict(f.Key, "timeout")
		exists = false
	}
	if !exists {
		if len(r.assemblies) >= r.config.MaxAssemblies {
			r.evictOldest()
		}
		a = &assembly{parts: make(map[int][]byte), last: -1}
		r.assemblies[f.Key] = a
		metrics.ReassemblyActiveAssemblies.Inc()
	}
	a.lastSeen = ts

	// A repeated part keeps the data that arrived first.
	if _, dup := a.parts[f.Index]; !dup {
		if a.size+len(f.Payload) > r.config.MaxReassembleSize {
			r.evict(f.Key, "size")
			metrics.FragmentRejects.WithLabelValues("size").Inc()
			return nil, false, fmt.Errorf("%w: reassembled size would exceed %d",
				core.ErrReassemblyLimit, r.config.MaxReassembleSize)
		}
		a.parts[f.Index] = append([]byte(nil), f.Payload...)
		a.size += len(f.Payload)
	}
	if f.Last {
		a.last = f.Index
	}
	if f.Sized {
		a.sized = true
		a.total = f.Total
	}

	result, complete := a.assemble()
	if !complete {
		return nil, false, nil
	}
	delete(r.assemblies, f.Key)
	metrics.ReassemblyActiveAssemblies.Dec()
	metrics.ReassembledTotal.Inc()
	return result, true, nil
}

// assemble concatenates the parts if the set is complete.
func (a *assembly) assemble() ([]byte, bool) {
	n, got := 0, 0
	for {
		p, ok := a.parts[n]
		if !ok {
			break
		}
		got += len(p)
		n++
	}

	if a.sized {
		if n == 0 || got < a.total {
			return nil, false
		}
	} else {
		if a.last < 0 || n <= a.last {
			return nil, false
		}
		n = a.last + 1
	}

	out := make([]byte, 0, got)
	for i := 0; i < n; i++ {
		out = append(out, a.parts[i]...)
	}
	return out, true
}

// Active returns the number of assemblies still collecting.
func (r *Reassembler) Active() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.assemblies)
}

// Pending reports whether an assembly exists for key.
func (r *Reassembler) Pending(key FragmentKey) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.assemblies[key]
	return ok
}

// RateLimited returns the number of fragments refused by the rate limiter.
func (r *Reassembler) RateLimited() int64 {
	if r.rateLimiter == nil {
		return 0
	}
	return r.rateLimiter.Rejected()
}

// Expire drops assemblies idle for longer than the timeout at now and
// returns how many were dropped.
func (r *Reassembler) Expire(now time.Time) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	expired := 0
	for key, a := range r.assemblies {
		if now.Sub(a.lastSeen) > r.config.Timeout {
			r.evict(key, "timeout")
			expired++
		}
	}
	return expired
}

// Close stops the janitor and drops every pending assembly.
func (r *Reassembler) Close() error {
	r.closeOnce.Do(func() {
		close(r.done)
		r.wg.Wait()

		r.mu.Lock()
		for key := range r.assemblies {
			r.evict(key, "shutdown")
		}
		r.mu.Unlock()
	})
	return nil
}

// evict removes one assembly. Must be called with r.mu held.
func (r *Reassembler) evict(key FragmentKey, reason string) {
	if _, exists := r.assemblies[key]; exists {
		delete(r.assemblies, key)
		metrics.ReassemblyActiveAssemblies.Dec()
		metrics.ReassemblyEvictions.WithLabelValues(reason).Inc()
	}
}

// evictOldest removes the least recently updated assembly. Must be called
// with r.mu held.
func (r *Reassembler) evictOldest() {
	var (
		oldest FragmentKey
		seen   time.Time
		found  bool
	)
	for key, a := range r.assemblies {
		if !found || a.lastSeen.Before(seen) {
			oldest, seen, found = key, a.lastSeen, true
		}
	}
	if found {
		r.evict(oldest, "capacity")
	}
}

// cleanup periodically expires idle assemblies. Age is measured on the
// fragment clock so that replayed captures expire like live traffic.
func (r *Reassembler) cleanup() {
	defer r.wg.Done()

	ticker := time.NewTicker(r.config.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-r.done:
			return
		case <-ticker.C:
			r.mu.Lock()
			now := r.clock
			r.mu.Unlock()
			if !now.IsZero() {
				r.Expire(now)
			}
		}
	}
}
