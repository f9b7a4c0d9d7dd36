package decoder

import (
	"errors"
	"testing"
	"time"

	"firestige.xyz/batadv/internal/core"
)

func TestFragmentRateLimiter_NilWhenDisabled(t *testing.T) {
	l := NewFragmentRateLimiter(FragmentRateLimiterConfig{MaxFragsPerSource: 0})
	if l != nil {
		t.Error("expected nil when MaxFragsPerSource = 0")
	}
}

func TestFragmentRateLimiter_AllowsWithinLimit(t *testing.T) {
	l := NewFragmentRateLimiter(FragmentRateLimiterConfig{
		MaxFragsPerSource: 5,
		RateLimitWindow:   10 * time.Second,
	})

	src := core.HardwareAddr{0x02, 0, 0, 0, 0, 0x01}
	now := time.Now()

	for i := 0; i < 5; i++ {
		if !l.Allow(src, now) {
			t.Fatalf("fragment %d should be allowed (within limit)", i)
		}
	}
}

func TestFragmentRateLimiter_RejectsOverLimit(t *testing.T) {
	l := NewFragmentRateLimiter(FragmentRateLimiterConfig{
		MaxFragsPerSource: 3,
		RateLimitWindow:   10 * time.Second,
	})

	src := core.HardwareAddr{0x02, 0, 0, 0, 0, 0x01}
	now := time.Now()

	for i := 0; i < 3; i++ {
		l.Allow(src, now)
	}
	if l.Allow(src, now) {
		t.Error("4th fragment should be rejected")
	}
	if l.Rejected() != 1 {
		t.Errorf("expected 1 rejected, got %d", l.Rejected())
	}
}

func TestFragmentRateLimiter_DifferentSourcesIndependent(t *testing.T) {
	l := NewFragmentRateLimiter(FragmentRateLimiterConfig{
		MaxFragsPerSource: 2,
		RateLimitWindow:   10 * time.Second,
	})

	a := core.HardwareAddr{0x02, 0, 0, 0, 0, 0x01}
	b := core.HardwareAddr{0x02, 0, 0, 0, 0, 0x02}
	now := time.Now()

	l.Allow(a, now)
	l.Allow(a, now)
	if l.Allow(a, now) {
		t.Error("a's 3rd fragment should be rejected")
	}

	// b should still be allowed (independent counter)
	if !l.Allow(b, now) {
		t.Error("b's 1st fragment should be allowed")
	}
}

func TestFragmentRateLimiter_WindowRotation(t *testing.T) {
	l := NewFragmentRateLimiter(FragmentRateLimiterConfig{
		MaxFragsPerSource: 2,
		RateLimitWindow:   1 * time.Second,
	})

	src := core.HardwareAddr{0x02, 0, 0, 0, 0, 0x01}
	now := time.Now()

	// Exhaust the limit
	l.Allow(src, now)
	l.Allow(src, now)
	if l.Allow(src, now) {
		t.Error("should be rejected before window rotation")
	}

	// Advance past the window
	later := now.Add(2 * time.Second)
	if !l.Allow(src, later) {
		t.Error("should be allowed after window rotation")
	}
}

func TestFragmentRateLimiter_ClockBackwardsRotates(t *testing.T) {
	l := NewFragmentRateLimiter(FragmentRateLimiterConfig{
		MaxFragsPerSource: 1,
		RateLimitWindow:   10 * time.Second,
	})

	src := core.HardwareAddr{0x02, 0, 0, 0, 0, 0x01}
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

	l.Allow(src, now)
	if !l.Allow(src, now.Add(-time.Minute)) {
		t.Error("a capture clock that jumps backwards should start a new window")
	}
}

func TestFragmentRateLimiter_ActiveSources(t *testing.T) {
	l := NewFragmentRateLimiter(FragmentRateLimiterConfig{
		MaxFragsPerSource: 100,
		RateLimitWindow:   10 * time.Second,
	})

	now := time.Now()
	l.Allow(core.HardwareAddr{1}, now)
	l.Allow(core.HardwareAddr{2}, now)
	l.Allow(core.HardwareAddr{3}, now)

	if got := l.ActiveSources(); got != 3 {
		t.Errorf("expected 3 active sources, got %d", got)
	}
}

func TestFragmentRateLimiter_WindowsArePerSource(t *testing.T) {
	l := NewFragmentRateLimiter(FragmentRateLimiterConfig{
		MaxFragsPerSource: 1,
		RateLimitWindow:   time.Second,
	})

	a := core.HardwareAddr{0x02, 0, 0, 0, 0, 0x01}
	b := core.HardwareAddr{0x02, 0, 0, 0, 0, 0x02}
	t0 := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

	l.Allow(a, t0)
	l.Allow(b, t0.Add(900*time.Millisecond))

	at := t0.Add(1100 * time.Millisecond)
	if !l.Allow(a, at) {
		t.Error("a's window ended and should reopen")
	}
	if l.Allow(b, at) {
		t.Error("b's window is still open and exhausted")
	}
}

func TestFragmentRateLimiter_SweepsEndedWindows(t *testing.T) {
	l := NewFragmentRateLimiter(FragmentRateLimiterConfig{
		MaxFragsPerSource: 10,
		RateLimitWindow:   time.Second,
	})

	t0 := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	l.Allow(core.HardwareAddr{1}, t0)
	l.Allow(core.HardwareAddr{2}, t0)
	l.Allow(core.HardwareAddr{3}, t0.Add(5*time.Second))

	if got := l.ActiveSources(); got != 1 {
		t.Errorf("expected 1 active source after the sweep, got %d", got)
	}
}

func TestReassembler_RateLimitRejectsFragments(t *testing.T) {
	r := NewReassembler(ReassemblyConfig{
		MaxFragsPerSource: 2,
		RateLimitWindow:   time.Minute,
	})
	defer r.Close()

	now := time.Now()
	for i := 0; i < 3; i++ {
		f := Fragment{
			Key:     FragmentKey{Src: core.HardwareAddr{0x02, 0, 0, 0, 0, 0x01}, ID: uint32(100 + i)},
			Index:   0,
			Payload: make([]byte, 50),
		}
		_, _, err := r.Process(f, now)
		if i < 2 && err != nil {
			t.Fatalf("fragment %d should be allowed, got error: %v", i, err)
		}
		if i == 2 {
			if err == nil {
				t.Fatal("fragment 2 should be rejected by rate limiter")
			}
			if !errors.Is(err, core.ErrReassemblyRateLimited) {
				t.Fatalf("expected ErrReassemblyRateLimited, got %v", err)
			}
		}
	}
	if got := r.RateLimited(); got != 1 {
		t.Errorf("expected 1 rate limited fragment, got %d", got)
	}
}

func TestReassembler_RateLimitDisabledByDefault(t *testing.T) {
	r := NewReassembler(ReassemblyConfig{MaxAssemblies: 100})
	defer r.Close()

	// All fragments should be allowed
	now := time.Now()
	for i := 0; i < 50; i++ {
		f := Fragment{
			Key:     FragmentKey{Src: core.HardwareAddr{0x02, 0, 0, 0, 0, 0x01}, ID: uint32(2000 + i)},
			Index:   0,
			Payload: make([]byte, 20),
		}
		if _, _, err := r.Process(f, now); err != nil {
			t.Fatalf("fragment %d should be allowed (rate limiting disabled), got: %v", i, err)
		}
	}
}
