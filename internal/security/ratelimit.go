// Package security implements the request-rate limiter and the
// suspicious-pattern detector. Both sit beside the authentication path and
// fail open: an internal fault here degrades to "allow", never to a denial.
package security

import (
	"sync"
	"time"
)

// window tracks request volume for one source IP. Reset is lazy: checked on
// the next access rather than by a timer.
type window struct {
	start time.Time
	count int
}

// RateLimiter is a per-IP sliding-window request limiter.
type RateLimiter struct {
	mu        sync.Mutex
	windows   map[string]*window
	threshold int
	span      time.Duration

	now func() time.Time // overridable in tests
}

// NewRateLimiter allows up to threshold requests per span for each IP.
func NewRateLimiter(threshold int, span time.Duration) *RateLimiter {
	return &RateLimiter{
		windows:   make(map[string]*window),
		threshold: threshold,
		span:      span,
		now:       time.Now,
	}
}

// Allow counts one request for ip and reports whether it stays within the
// limit. The count increments on every call regardless of outcome.
func (rl *RateLimiter) Allow(ip string) bool {
	now := rl.now()
	rl.mu.Lock()
	defer rl.mu.Unlock()

	w, ok := rl.windows[ip]
	if !ok || now.Sub(w.start) >= rl.span {
		w = &window{start: now}
		rl.windows[ip] = w
	}
	w.count++
	return w.count <= rl.threshold
}

// Sweep drops windows that have fully elapsed. Callers may invoke it
// opportunistically to bound memory on long-running processes.
func (rl *RateLimiter) Sweep() {
	now := rl.now()
	rl.mu.Lock()
	defer rl.mu.Unlock()
	for ip, w := range rl.windows {
		if now.Sub(w.start) >= rl.span {
			delete(rl.windows, ip)
		}
	}
}
