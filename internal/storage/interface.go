package storage

import (
	"context"
	"errors"
	"time"

	"github.com/org/authgate/pkg/models"
)

// ErrNotFound is returned when a requested resource does not exist.
var ErrNotFound = errors.New("not found")

// Backend defines the persistence interface for AuthGate: the session table
// behind the session validator and the append-only security-event log.
// Callers bound every call with a context deadline; a timeout degrades to
// fail-open behavior upstream, never to a hard failure.
type Backend interface {
	// Sessions
	CreateSession(ctx context.Context, s *models.Session) error
	GetSession(ctx context.Context, id string) (*models.Session, error)
	TouchSession(ctx context.Context, id string, expiresAt time.Time) error
	RevokeSession(ctx context.Context, id string) error
	DeleteExpiredSessions(ctx context.Context) (int64, error)

	// Security events
	WriteSecurityEvent(ctx context.Context, ev *models.SecurityEvent) error
	QuerySecurityEvents(ctx context.Context, filter EventFilter) ([]*models.SecurityEvent, error)

	// Lifecycle
	Ping(ctx context.Context) error
	Close()
}

// EventFilter specifies query parameters for security-event retrieval.
type EventFilter struct {
	Kind     string
	SourceIP string
	Since    *time.Time
	Limit    int
	Offset   int
}
