// Package ratelimit provides sliding-window admission control in front of
// the inference call. Advisory local throttling only — the provider still
// enforces its own limits.
package ratelimit

import (
	"sync"
	"time"
)

// Limiter admits at most Cap requests within any rolling Window.
type Limiter struct {
	mu     sync.Mutex
	window time.Duration
	cap    int
	stamps []time.Time
	now    func() time.Time
}

// New creates a limiter admitting at most cap requests per window.
func New(cap int, window time.Duration) *Limiter {
	return &Limiter{window: window, cap: cap, now: time.Now}
}

// SetClock overrides the clock for tests.
func (l *Limiter) SetClock(now func() time.Time) {
	l.mu.Lock()
	l.now = now
	l.mu.Unlock()
}

// expire drops timestamps older than the window. Caller holds the lock.
func (l *Limiter) expire(now time.Time) {
	cutoff := now.Add(-l.window)
	i := 0
	for i < len(l.stamps) && !l.stamps[i].After(cutoff) {
		i++
	}
	l.stamps = l.stamps[i:]
}

// Allow admits the request iff quota remains, recording the admission.
func (l *Limiter) Allow() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := l.now()
	l.expire(now)
	if len(l.stamps) >= l.cap {
		return false
	}
	l.stamps = append(l.stamps, now)
	return true
}

// Remaining reports how many admissions are left in the current window.
func (l *Limiter) Remaining() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.expire(l.now())
	return l.cap - len(l.stamps)
}

// NextSlot reports how long until the next admission would succeed. Zero
// when quota remains.
func (l *Limiter) NextSlot() time.Duration {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := l.now()
	l.expire(now)
	if len(l.stamps) == 0 {
		return 0
	}
	if len(l.stamps) < l.cap {
		return 0
	}
	return l.stamps[0].Add(l.window).Sub(now)
}
