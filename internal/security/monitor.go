package security

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/org/authgate/pkg/models"
)

// EventSink receives security events for audit and aggregation.
// Implementations must not block the caller on failure.
type EventSink interface {
	Emit(ctx context.Context, event models.SecurityEvent)
}

// Config tunes the monitor. Zero values take the defaults below.
type Config struct {
	RateLimit       int           `yaml:"rate_limit"`
	RateWindow      time.Duration `yaml:"rate_window"`
	DetectorWindow  time.Duration `yaml:"detector_window"`
	FailThreshold   int           `yaml:"fail_threshold"`
	FlapThreshold   int           `yaml:"flap_threshold"`
	BlockSuspicious bool          `yaml:"block_suspicious"`
}

func (c Config) withDefaults() Config {
	if c.RateLimit == 0 {
		c.RateLimit = 60
	}
	if c.RateWindow == 0 {
		c.RateWindow = time.Minute
	}
	if c.DetectorWindow == 0 {
		c.DetectorWindow = 5 * time.Minute
	}
	if c.FailThreshold == 0 {
		c.FailThreshold = 5
	}
	if c.FlapThreshold == 0 {
		c.FlapThreshold = 3
	}
	return c
}

// Validate rejects configurations the monitor cannot run with.
func (c Config) Validate() error {
	if c.RateLimit < 0 {
		return &models.ConfigError{Field: "security.rate_limit", Reason: "must not be negative"}
	}
	if c.RateWindow < 0 || c.DetectorWindow < 0 {
		return &models.ConfigError{Field: "security.window", Reason: "must not be negative"}
	}
	return nil
}

// Monitor combines the rate limiter and pattern detector and emits security
// events. Every entry point fails open: a panic or sink fault degrades to
// "allow" with a logged warning, so a policy bug can never become a denial
// of service.
type Monitor struct {
	limiter  *RateLimiter
	detector *Detector
	sink     EventSink
	blocking bool
}

// NewMonitor creates a Monitor wired to the given sink.
func NewMonitor(cfg Config, sink EventSink) (*Monitor, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfg = cfg.withDefaults()
	return &Monitor{
		limiter:  NewRateLimiter(cfg.RateLimit, cfg.RateWindow),
		detector: NewDetector(cfg.DetectorWindow, cfg.FailThreshold, cfg.FlapThreshold),
		sink:     sink,
		blocking: cfg.BlockSuspicious,
	}, nil
}

// Check counts the request and reports whether it may proceed. Denials emit
// a rate_limited event. In blocking mode a flagged IP is also denied.
func (m *Monitor) Check(ctx context.Context, ip string) (allowed bool) {
	defer func() {
		if r := recover(); r != nil {
			log.Warn().Interface("panic", r).Str("ip", ip).Msg("security monitor fault, failing open")
			allowed = true
		}
	}()

	if !m.limiter.Allow(ip) {
		m.emit(ctx, models.SecurityEvent{
			Kind:      models.EventRateLimited,
			SourceIP:  ip,
			Detail:    "request rate over threshold",
			Timestamp: time.Now().UTC(),
		})
		return false
	}
	if m.blocking && m.detector.Flagged(ip) {
		m.emit(ctx, models.SecurityEvent{
			Kind:      models.EventSuspiciousPattern,
			SourceIP:  ip,
			Detail:    "blocked: previously flagged source",
			Timestamp: time.Now().UTC(),
		})
		return false
	}
	return true
}

// RecordOutcome feeds one completed authentication attempt to the detector.
func (m *Monitor) RecordOutcome(ctx context.Context, ip string, outcome models.Outcome) {
	defer m.failOpen(ip, "outcome")
	if ev, trip := m.detector.RecordOutcome(ip, outcome.Method, outcome.Succeeded); trip {
		log.Warn().Str("ip", ip).Str("detail", ev.Detail).Msg("suspicious pattern detected")
		m.emit(ctx, ev)
	}
}

// RecordVerdict feeds one classification to the detector.
func (m *Monitor) RecordVerdict(ctx context.Context, ip, fingerprint string, clientType models.ClientType) {
	defer m.failOpen(ip, "verdict")
	if ev, trip := m.detector.RecordVerdict(ip, fingerprint, clientType); trip {
		log.Warn().Str("ip", ip).Str("detail", ev.Detail).Msg("suspicious pattern detected")
		m.emit(ctx, ev)
	}
}

// ReportFallback emits a fallback_triggered event.
func (m *Monitor) ReportFallback(ctx context.Context, ip string, method models.Method) {
	defer m.failOpen(ip, "fallback")
	m.emit(ctx, models.SecurityEvent{
		Kind:      models.EventFallbackTriggered,
		SourceIP:  ip,
		Detail:    fmt.Sprintf("fell back to %s", method),
		Timestamp: time.Now().UTC(),
	})
}

func (m *Monitor) emit(ctx context.Context, ev models.SecurityEvent) {
	if m.sink == nil {
		return
	}
	m.sink.Emit(ctx, ev)
}

// failOpen is deferred by the record paths: a detector fault is logged and
// swallowed so it can never propagate into the request.
func (m *Monitor) failOpen(ip, op string) {
	if r := recover(); r != nil {
		log.Warn().Interface("panic", r).Str("ip", ip).Str("op", op).
			Msg("security monitor fault, failing open")
	}
}
