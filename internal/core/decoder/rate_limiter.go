package decoder

import (
	"sync"
	"sync/atomic"
	"time"

	"firestige.xyz/batadv/internal/core"
)

// sourceWindow is the fragment budget used by one originator.
type sourceWindow struct {
	start time.Time
	count int64
}

// FragmentRateLimiter caps how many fragments one originator may submit per
// window of capture time. Every originator runs its own window, opened by
// its first fragment; a fragment stamped before the window opened (capture
// clock stepped back) opens a fresh one.
type FragmentRateLimiter struct {
	mu        sync.Mutex
	sources   map[core.HardwareAddr]*sourceWindow
	window    time.Duration
	budget    int64
	lastSweep time.Time

	rejected atomic.Int64
}

// FragmentRateLimiterConfig configures per-originator fragment limits.
type FragmentRateLimiterConfig struct {
	MaxFragsPerSource int           // Fragments per originator per window (0 = disabled)
	RateLimitWindow   time.Duration // Default 10s
}

// NewFragmentRateLimiter returns nil when MaxFragsPerSource is not positive.
func NewFragmentRateLimiter(cfg FragmentRateLimiterConfig) *FragmentRateLimiter {
	if cfg.MaxFragsPerSource <= 0 {
		return nil
	}
	if cfg.RateLimitWindow <= 0 {
		cfg.RateLimitWindow = 10 * time.Second
	}
	return &FragmentRateLimiter{
		sources: make(map[core.HardwareAddr]*sourceWindow),
		window:  cfg.RateLimitWindow,
		budget:  int64(cfg.MaxFragsPerSource),
	}
}

// Allow charges one fragment captured at ts to src and reports whether it
// is still within budget.
func (l *FragmentRateLimiter) Allow(src core.HardwareAddr, ts time.Time) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.sweep(ts)

	w, ok := l.sources[src]
	if !ok || ts.Before(w.start) || ts.Sub(w.start) >= l.window {
		w = &sourceWindow{start: ts}
		l.sources[src] = w
	}
	w.count++
	if w.count > l.budget {
		l.rejected.Add(1)
		return false
	}
	return true
}

// sweep drops windows that ended, at most once per window length.
func (l *FragmentRateLimiter) sweep(ts time.Time) {
	if !l.lastSweep.IsZero() && ts.Sub(l.lastSweep) < l.window && !ts.Before(l.lastSweep) {
		return
	}
	l.lastSweep = ts
	for src, w := range l.sources {
		if ts.Sub(w.start) >= l.window {
			delete(l.sources, src)
		}
	}
}

// Rejected returns the number of fragments refused so far.
func (l *FragmentRateLimiter) Rejected() int64 {
	return l.rejected.Load()
}

// ActiveSources returns the number of originators with an open window.
func (l *FragmentRateLimiter) ActiveSources() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.sources)
}
