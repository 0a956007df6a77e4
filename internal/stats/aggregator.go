// Package stats accumulates coordination-engine counters into a queryable
// snapshot for the dashboard collaborator. Purely additive; reset only by
// process restart.
package stats

import (
	"sync"
	"time"

	"github.com/org/authgate/pkg/models"
)

// Cache names used as counter keys.
const (
	CacheCapability = "capability"
	CacheDecision   = "decision"
)

// MethodStats summarizes attempts for one authentication method.
type MethodStats struct {
	Attempts    int64   `json:"attempts"`
	Successes   int64   `json:"successes"`
	SuccessRate float64 `json:"success_rate"`
}

// CacheStats summarizes hit/miss counters for one cache.
type CacheStats struct {
	Hits    int64   `json:"hits"`
	Misses  int64   `json:"misses"`
	HitRate float64 `json:"hit_rate"`
}

// Snapshot is a point-in-time copy of every counter. Safe to serialize and
// hand to the dashboard; mutating it never affects the aggregator.
type Snapshot struct {
	Methods              map[string]MethodStats `json:"methods"`
	ClientTypes          map[string]int64       `json:"client_types"`
	Caches               map[string]CacheStats  `json:"caches"`
	Fallbacks            int64                  `json:"fallbacks"`
	Events               map[string]int64       `json:"security_events"`
	Decisions            int64                  `json:"decisions"`
	AvgDecisionLatencyMs float64                `json:"avg_decision_latency_ms"`
	GeneratedAt          time.Time              `json:"generated_at"`
}

// Aggregator owns the running counters. All methods are safe for concurrent
// use; contention is a single short-held mutex.
type Aggregator struct {
	mu            sync.Mutex
	attempts      map[models.Method]int64
	successes     map[models.Method]int64
	clientTypes   map[models.ClientType]int64
	cacheHits     map[string]int64
	cacheMisses   map[string]int64
	events        map[models.EventKind]int64
	fallbacks     int64
	decisions     int64
	decisionTotal time.Duration
}

// New creates an empty Aggregator.
func New() *Aggregator {
	return &Aggregator{
		attempts:    make(map[models.Method]int64),
		successes:   make(map[models.Method]int64),
		clientTypes: make(map[models.ClientType]int64),
		cacheHits:   make(map[string]int64),
		cacheMisses: make(map[string]int64),
		events:      make(map[models.EventKind]int64),
	}
}

// RecordOutcome folds in one completed authentication attempt.
func (a *Aggregator) RecordOutcome(o models.Outcome) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.attempts[o.Method]++
	if o.Succeeded {
		a.successes[o.Method]++
	}
	if o.FellBack {
		a.fallbacks++
	}
}

// RecordClientType counts one classified request.
func (a *Aggregator) RecordClientType(t models.ClientType) {
	a.mu.Lock()
	a.clientTypes[t]++
	a.mu.Unlock()
}

// RecordCacheHit counts a hit for the named cache.
func (a *Aggregator) RecordCacheHit(cache string) {
	a.mu.Lock()
	a.cacheHits[cache]++
	a.mu.Unlock()
}

// RecordCacheMiss counts a miss for the named cache.
func (a *Aggregator) RecordCacheMiss(cache string) {
	a.mu.Lock()
	a.cacheMisses[cache]++
	a.mu.Unlock()
}

// RecordDecision counts one selector pass and its latency.
func (a *Aggregator) RecordDecision(latency time.Duration) {
	a.mu.Lock()
	a.decisions++
	a.decisionTotal += latency
	a.mu.Unlock()
}

// RecordEvent counts one security event by kind.
func (a *Aggregator) RecordEvent(kind models.EventKind) {
	a.mu.Lock()
	a.events[kind]++
	a.mu.Unlock()
}

// Snapshot returns a copy of every counter.
func (a *Aggregator) Snapshot() Snapshot {
	a.mu.Lock()
	defer a.mu.Unlock()

	snap := Snapshot{
		Methods:     make(map[string]MethodStats, len(a.attempts)),
		ClientTypes: make(map[string]int64, len(a.clientTypes)),
		Caches:      make(map[string]CacheStats, 2),
		Events:      make(map[string]int64, len(a.events)),
		Fallbacks:   a.fallbacks,
		Decisions:   a.decisions,
		GeneratedAt: time.Now().UTC(),
	}
	for m, n := range a.attempts {
		ms := MethodStats{Attempts: n, Successes: a.successes[m]}
		if n > 0 {
			ms.SuccessRate = float64(ms.Successes) / float64(n)
		}
		snap.Methods[string(m)] = ms
	}
	for t, n := range a.clientTypes {
		snap.ClientTypes[string(t)] = n
	}
	for _, name := range []string{CacheCapability, CacheDecision} {
		hits, misses := a.cacheHits[name], a.cacheMisses[name]
		cs := CacheStats{Hits: hits, Misses: misses}
		if total := hits + misses; total > 0 {
			cs.HitRate = float64(hits) / float64(total)
		}
		snap.Caches[name] = cs
	}
	for k, n := range a.events {
		snap.Events[string(k)] = n
	}
	if a.decisions > 0 {
		snap.AvgDecisionLatencyMs = float64(a.decisionTotal.Microseconds()) / float64(a.decisions) / 1000.0
	}
	return snap
}
