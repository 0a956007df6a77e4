package models

import "time"

// EventKind categorizes a security event.
type EventKind string

const (
	EventRateLimited       EventKind = "rate_limited"
	EventSuspiciousPattern EventKind = "suspicious_pattern"
	EventFallbackTriggered EventKind = "fallback_triggered"
)

// SecurityEvent is an append-only audit record emitted by the security
// monitor and the fallback executor. Consumed by the stats aggregator and
// the external audit sink; never read back on the request path.
type SecurityEvent struct {
	ID        int64     `json:"id,omitempty"`
	Kind      EventKind `json:"kind"`
	SourceIP  string    `json:"source_ip"`
	Detail    string    `json:"detail"`
	Timestamp time.Time `json:"timestamp"`
}

// Session is a server-side session record backing the session validator.
type Session struct {
	ID        string
	UserID    string
	CreatedAt time.Time
	ExpiresAt time.Time
	RevokedAt *time.Time
}

// IsExpired returns true if the session has passed its expiry time.
func (s *Session) IsExpired() bool {
	return !s.ExpiresAt.IsZero() && time.Now().After(s.ExpiresAt)
}

// IsRevoked returns true if the session has been revoked.
func (s *Session) IsRevoked() bool {
	return s.RevokedAt != nil
}
