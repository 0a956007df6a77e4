package models

import "time"

// SignalSet is an immutable per-request snapshot of auth-relevant signals.
// Built once by the signal extractor; never mutated afterwards.
type SignalSet struct {
	HasBearerToken      bool           `json:"has_bearer_token"`
	HasSessionCookie    bool           `json:"has_session_cookie"`
	ContentType         string         `json:"content_type"`
	UserAgentClass      UserAgentClass `json:"user_agent_class"`
	AcceptsJSON         bool           `json:"accepts_json"`
	OriginHeaderPresent bool           `json:"origin_header_present"`
}

// Verdict is a client-type classification with its confidence.
type Verdict struct {
	Type       ClientType `json:"type"`
	Confidence float64    `json:"confidence"`
	ComputedAt time.Time  `json:"computed_at"`
}

// Decision is a selected primary authentication method plus the ordered
// list of methods to fall back to. FallbackOrder never contains Primary
// and never repeats an entry.
type Decision struct {
	Primary       Method             `json:"primary"`
	FallbackOrder []Method           `json:"fallback_order"`
	Breakdown     map[string]float64 `json:"weight_breakdown,omitempty"`
	DecidedAt     time.Time          `json:"decided_at"`
}

// Methods returns the full attempt order: primary first, then fallbacks.
func (d *Decision) Methods() []Method {
	out := make([]Method, 0, 1+len(d.FallbackOrder))
	out = append(out, d.Primary)
	out = append(out, d.FallbackOrder...)
	return out
}

// Outcome records a single completed authentication attempt.
// Transient: folded into success stats and the aggregator, never persisted
// individually.
type Outcome struct {
	Method    Method        `json:"method"`
	Succeeded bool          `json:"succeeded"`
	Latency   time.Duration `json:"latency_ms"`
	FellBack  bool          `json:"fell_back"`
}

// Result is what the engine returns for one coordinated request.
type Result struct {
	Method     Method     `json:"method"`
	Succeeded  bool       `json:"succeeded"`
	FellBack   bool       `json:"fell_back"`
	ClientType ClientType `json:"client_type"`
	Outcomes   []Outcome  `json:"outcomes,omitempty"`
}
