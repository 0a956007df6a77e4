package security

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/org/authgate/pkg/models"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
}

func (f *fakeClock) now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.t
}

func (f *fakeClock) advance(d time.Duration) {
	f.mu.Lock()
	f.t = f.t.Add(d)
	f.mu.Unlock()
}

type captureSink struct {
	mu     sync.Mutex
	events []models.SecurityEvent
}

func (c *captureSink) Emit(_ context.Context, ev models.SecurityEvent) {
	c.mu.Lock()
	c.events = append(c.events, ev)
	c.mu.Unlock()
}

func (c *captureSink) kinds() []models.EventKind {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]models.EventKind, len(c.events))
	for i, ev := range c.events {
		out[i] = ev.Kind
	}
	return out
}

func TestRateLimiterDeniesOverThreshold(t *testing.T) {
	clk := newFakeClock()
	rl := NewRateLimiter(60, time.Minute)
	rl.now = clk.now

	// 61 requests inside one minute: the 61st is denied.
	for i := 0; i < 60; i++ {
		if !rl.Allow("1.2.3.4") {
			t.Fatalf("request %d should be allowed", i+1)
		}
		clk.advance(900 * time.Millisecond)
	}
	if rl.Allow("1.2.3.4") {
		t.Fatal("61st request within the window should be denied")
	}
}

func TestRateLimiterWindowElapses(t *testing.T) {
	clk := newFakeClock()
	rl := NewRateLimiter(60, time.Minute)
	rl.now = clk.now

	// 61 requests spread across 61 seconds: the window restarts before the
	// count can exceed the threshold.
	for i := 0; i < 61; i++ {
		if !rl.Allow("1.2.3.4") {
			t.Fatalf("request %d should be allowed", i+1)
		}
		clk.advance(time.Second + 17*time.Millisecond)
	}
}

func TestRateLimiterIsolatesIPs(t *testing.T) {
	rl := NewRateLimiter(2, time.Minute)
	rl.Allow("a")
	rl.Allow("a")
	if rl.Allow("a") {
		t.Fatal("ip a should be limited")
	}
	if !rl.Allow("b") {
		t.Fatal("ip b must not share ip a's window")
	}
}

func TestRateLimiterSweep(t *testing.T) {
	clk := newFakeClock()
	rl := NewRateLimiter(60, time.Minute)
	rl.now = clk.now

	rl.Allow("a")
	rl.Allow("b")
	clk.advance(2 * time.Minute)
	rl.Sweep()

	rl.mu.Lock()
	n := len(rl.windows)
	rl.mu.Unlock()
	if n != 0 {
		t.Errorf("expected swept windows, got %d", n)
	}
}

func TestDetectorCrossMethodFailures(t *testing.T) {
	d := NewDetector(5*time.Minute, 5, 3)

	for i := 0; i < 4; i++ {
		if _, trip := d.RecordOutcome("9.9.9.9", models.MethodJWT, false); trip {
			t.Fatalf("tripped too early at failure %d", i+1)
		}
	}
	// Fifth failure, but all on one method: still quiet.
	if _, trip := d.RecordOutcome("9.9.9.9", models.MethodJWT, false); trip {
		t.Fatal("single-method failures should not trip the cross-method pattern")
	}
	// A failure on a second method crosses the line.
	ev, trip := d.RecordOutcome("9.9.9.9", models.MethodSession, false)
	if !trip {
		t.Fatal("expected suspicious pattern")
	}
	if ev.Kind != models.EventSuspiciousPattern || ev.SourceIP != "9.9.9.9" {
		t.Fatalf("unexpected event %+v", ev)
	}
	if !d.Flagged("9.9.9.9") {
		t.Error("ip should be flagged after tripping")
	}
}

func TestDetectorSuccessesDoNotCount(t *testing.T) {
	d := NewDetector(5*time.Minute, 2, 3)
	for i := 0; i < 10; i++ {
		if _, trip := d.RecordOutcome("ip", models.MethodJWT, true); trip {
			t.Fatal("successes must never trip the detector")
		}
	}
}

func TestDetectorVerdictFlapping(t *testing.T) {
	d := NewDetector(5*time.Minute, 5, 3)

	types := []models.ClientType{
		models.ClientAPI, models.ClientBrowser, models.ClientAPI, models.ClientBrowser,
	}
	var tripped bool
	for _, ct := range types {
		if _, trip := d.RecordVerdict("ip", "fp", ct); trip {
			tripped = true
		}
	}
	if !tripped {
		t.Fatal("expected flapping pattern to trip")
	}
	// A stable fingerprint never trips.
	d2 := NewDetector(5*time.Minute, 5, 3)
	for i := 0; i < 10; i++ {
		if _, trip := d2.RecordVerdict("ip", "fp", models.ClientAPI); trip {
			t.Fatal("stable verdicts should not trip")
		}
	}
}

func TestMonitorEmitsRateLimited(t *testing.T) {
	sink := &captureSink{}
	m, err := NewMonitor(Config{RateLimit: 1}, sink)
	if err != nil {
		t.Fatalf("NewMonitor: %v", err)
	}
	ctx := context.Background()

	if !m.Check(ctx, "ip") {
		t.Fatal("first request should pass")
	}
	if m.Check(ctx, "ip") {
		t.Fatal("second request should be limited")
	}
	kinds := sink.kinds()
	if len(kinds) != 1 || kinds[0] != models.EventRateLimited {
		t.Fatalf("expected one rate_limited event, got %v", kinds)
	}
}

func TestMonitorBlockingMode(t *testing.T) {
	sink := &captureSink{}
	m, err := NewMonitor(Config{FailThreshold: 2, BlockSuspicious: true}, sink)
	if err != nil {
		t.Fatalf("NewMonitor: %v", err)
	}
	ctx := context.Background()

	m.RecordOutcome(ctx, "ip", models.Outcome{Method: models.MethodJWT, Succeeded: false})
	m.RecordOutcome(ctx, "ip", models.Outcome{Method: models.MethodSession, Succeeded: false})

	if m.Check(ctx, "ip") {
		t.Fatal("flagged ip should be denied in blocking mode")
	}
}

func TestMonitorAdvisoryByDefault(t *testing.T) {
	sink := &captureSink{}
	m, err := NewMonitor(Config{FailThreshold: 2}, sink)
	if err != nil {
		t.Fatalf("NewMonitor: %v", err)
	}
	ctx := context.Background()

	m.RecordOutcome(ctx, "ip", models.Outcome{Method: models.MethodJWT, Succeeded: false})
	m.RecordOutcome(ctx, "ip", models.Outcome{Method: models.MethodSession, Succeeded: false})

	if !m.Check(ctx, "ip") {
		t.Fatal("advisory mode must not block flagged ips")
	}
	var sawPattern bool
	for _, k := range sink.kinds() {
		if k == models.EventSuspiciousPattern {
			sawPattern = true
		}
	}
	if !sawPattern {
		t.Error("expected a suspicious_pattern event")
	}
}

func TestMonitorInvalidConfig(t *testing.T) {
	if _, err := NewMonitor(Config{RateLimit: -1}, nil); err == nil {
		t.Error("expected error for negative rate limit")
	}
}
