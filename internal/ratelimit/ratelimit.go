// Package ratelimit implements a fixed-window request limiter keyed by an
// arbitrary identifier (user ID, IP). Exceeding the limit is a normal
// outcome, never an error: Check returns Allowed=false with a retry hint.
//
// Check is side-effect free; callers must Record after allowing a request.
// Windows roll over lazily on the next Record after expiry, so no timer is
// needed for correctness. A background sweep reclaims memory by dropping
// entries idle for twice the window length.
package ratelimit

import (
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// Decision is the outcome of a limit check.
type Decision struct {
	Allowed   bool      `json:"allowed"`
	Remaining int       `json:"remaining"`
	ResetAt   time.Time `json:"reset_at"`
	Reason    string    `json:"reason,omitempty"`
}

type entry struct {
	count       int
	windowStart time.Time
	lastSeen    time.Time
}

// Limiter is a fixed-window counter store. Internally synchronized;
// safe for concurrent use across in-flight requests.
type Limiter struct {
	mu      sync.Mutex
	entries map[string]*entry

	window time.Duration
	max    int

	doneCh    chan struct{}
	closeOnce sync.Once

	// now is swappable for tests.
	now func() time.Time
}

// New creates a limiter allowing max requests per window and starts the
// background sweep that reclaims idle entries.
func New(window time.Duration, max int) *Limiter {
	l := &Limiter{
		entries: make(map[string]*entry),
		window:  window,
		max:     max,
		doneCh:  make(chan struct{}),
		now:     time.Now,
	}
	go l.sweepLoop()
	return l
}

// Check reports whether a request for id would be allowed right now.
// It never mutates state.
func (l *Limiter) Check(id string) Decision {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	e, ok := l.entries[id]
	if !ok || now.Sub(e.windowStart) >= l.window {
		// Fresh identifier or expired window: full budget.
		return Decision{Allowed: true, Remaining: l.max, ResetAt: now.Add(l.window)}
	}

	resetAt := e.windowStart.Add(l.window)
	if e.count >= l.max {
		retry := resetAt.Sub(now).Round(time.Second)
		if retry < time.Second {
			retry = time.Second
		}
		return Decision{
			Allowed:   false,
			Remaining: 0,
			ResetAt:   resetAt,
			Reason:    fmt.Sprintf("rate limit exceeded, retry in %s", retry),
		}
	}

	return Decision{Allowed: true, Remaining: l.max - e.count, ResetAt: resetAt}
}

// Record counts one request for id, rolling the window over if expired.
func (l *Limiter) Record(id string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	e, ok := l.entries[id]
	if !ok || now.Sub(e.windowStart) >= l.window {
		l.entries[id] = &entry{count: 1, windowStart: now, lastSeen: now}
		return
	}
	e.count++
	e.lastSeen = now
}

// Close stops the background sweep. Safe to call multiple times.
func (l *Limiter) Close() {
	l.closeOnce.Do(func() { close(l.doneCh) })
}

// sweepLoop periodically removes entries idle for 2x the window.
func (l *Limiter) sweepLoop() {
	ticker := time.NewTicker(l.window)
	defer ticker.Stop()

	for {
		select {
		case <-l.doneCh:
			return
		case <-ticker.C:
			l.sweep()
		}
	}
}

func (l *Limiter) sweep() {
	l.mu.Lock()
	cutoff := l.now().Add(-2 * l.window)
	var evicted int
	for id, e := range l.entries {
		if e.lastSeen.Before(cutoff) {
			delete(l.entries, id)
			evicted++
		}
	}
	l.mu.Unlock()

	if evicted > 0 {
		log.Debug().Int("evicted", evicted).Msg("Rate limiter swept idle entries")
	}
}

// SetClock overrides the limiter's time source. Test hook.
func (l *Limiter) SetClock(now func() time.Time) {
	l.mu.Lock()
	l.now = now
	l.mu.Unlock()
}
