package security

import (
	"fmt"
	"sync"
	"time"

	"github.com/org/authgate/pkg/models"
)

// failure is one failed authentication attempt seen for an IP.
type failure struct {
	at     time.Time
	method models.Method
}

// verdictHistory tracks client-type changes for one fingerprint.
type verdictHistory struct {
	last  models.ClientType
	flips []time.Time
}

// Detector flags heuristic abuse patterns: repeated authentication failures
// across different methods from one IP, and rapid client-type flapping for
// one fingerprint. Detection is advisory; callers decide whether a flagged
// source is blocked.
type Detector struct {
	mu        sync.Mutex
	failures  map[string][]failure
	verdicts  map[string]*verdictHistory
	flagged   map[string]time.Time

	span          time.Duration
	failThreshold int
	flapThreshold int

	now func() time.Time
}

// NewDetector creates a Detector. span bounds how far back failures and
// flips count; failThreshold and flapThreshold trip the respective patterns.
func NewDetector(span time.Duration, failThreshold, flapThreshold int) *Detector {
	return &Detector{
		failures:      make(map[string][]failure),
		verdicts:      make(map[string]*verdictHistory),
		flagged:       make(map[string]time.Time),
		span:          span,
		failThreshold: failThreshold,
		flapThreshold: flapThreshold,
		now:           time.Now,
	}
}

// RecordOutcome folds one completed attempt in. If the IP has now failed at
// least failThreshold times across more than one method inside the span, a
// populated event is returned and the IP is flagged.
func (d *Detector) RecordOutcome(ip string, method models.Method, succeeded bool) (models.SecurityEvent, bool) {
	if succeeded {
		return models.SecurityEvent{}, false
	}
	now := d.now()

	d.mu.Lock()
	defer d.mu.Unlock()

	recent := pruneFailures(d.failures[ip], now.Add(-d.span))
	recent = append(recent, failure{at: now, method: method})
	d.failures[ip] = recent

	if len(recent) < d.failThreshold {
		return models.SecurityEvent{}, false
	}
	methods := map[models.Method]bool{}
	for _, f := range recent {
		methods[f.method] = true
	}
	if len(methods) < 2 {
		return models.SecurityEvent{}, false
	}

	d.flagged[ip] = now
	return models.SecurityEvent{
		Kind:      models.EventSuspiciousPattern,
		SourceIP:  ip,
		Detail:    fmt.Sprintf("%d failed attempts across %d methods", len(recent), len(methods)),
		Timestamp: now.UTC(),
	}, true
}

// RecordVerdict folds one classification in. A fingerprint whose client type
// changes flapThreshold times inside the span trips the flapping pattern.
func (d *Detector) RecordVerdict(ip, fingerprint string, clientType models.ClientType) (models.SecurityEvent, bool) {
	now := d.now()

	d.mu.Lock()
	defer d.mu.Unlock()

	h, ok := d.verdicts[fingerprint]
	if !ok {
		d.verdicts[fingerprint] = &verdictHistory{last: clientType}
		return models.SecurityEvent{}, false
	}
	if h.last == clientType {
		return models.SecurityEvent{}, false
	}
	h.last = clientType

	cutoff := now.Add(-d.span)
	flips := h.flips[:0]
	for _, t := range h.flips {
		if t.After(cutoff) {
			flips = append(flips, t)
		}
	}
	h.flips = append(flips, now)

	if len(h.flips) < d.flapThreshold {
		return models.SecurityEvent{}, false
	}

	d.flagged[ip] = now
	return models.SecurityEvent{
		Kind:      models.EventSuspiciousPattern,
		SourceIP:  ip,
		Detail:    fmt.Sprintf("client type flapped %d times for fingerprint %s", len(h.flips), fingerprint),
		Timestamp: now.UTC(),
	}, true
}

// Flagged reports whether the IP tripped a pattern inside the span.
func (d *Detector) Flagged(ip string) bool {
	now := d.now()
	d.mu.Lock()
	defer d.mu.Unlock()
	at, ok := d.flagged[ip]
	if !ok {
		return false
	}
	if now.Sub(at) >= d.span {
		delete(d.flagged, ip)
		return false
	}
	return true
}

func pruneFailures(fs []failure, cutoff time.Time) []failure {
	out := fs[:0]
	for _, f := range fs {
		if f.at.After(cutoff) {
			out = append(out, f)
		}
	}
	return out
}
