package storage

import (
	"context"
	"sync"
	"time"

	"github.com/org/authgate/pkg/models"
)

// MemoryBackend is an in-process Backend used in dev mode and tests, where
// running a database is not worth the trouble. Not durable.
type MemoryBackend struct {
	mu       sync.Mutex
	sessions map[string]*models.Session
	events   []*models.SecurityEvent
	nextID   int64
}

// NewMemoryBackend creates an empty MemoryBackend.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{sessions: make(map[string]*models.Session)}
}

func (m *MemoryBackend) CreateSession(_ context.Context, s *models.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *s
	m.sessions[s.ID] = &cp
	return nil
}

func (m *MemoryBackend) GetSession(_ context.Context, id string) (*models.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *s
	return &cp, nil
}

func (m *MemoryBackend) TouchSession(_ context.Context, id string, expiresAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok || s.RevokedAt != nil {
		return ErrNotFound
	}
	s.ExpiresAt = expiresAt
	return nil
}

func (m *MemoryBackend) RevokeSession(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok || s.RevokedAt != nil {
		return ErrNotFound
	}
	now := time.Now().UTC()
	s.RevokedAt = &now
	return nil
}

func (m *MemoryBackend) DeleteExpiredSessions(_ context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now()
	var n int64
	for id, s := range m.sessions {
		if now.After(s.ExpiresAt) {
			delete(m.sessions, id)
			n++
		}
	}
	return n, nil
}

func (m *MemoryBackend) WriteSecurityEvent(_ context.Context, ev *models.SecurityEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	ev.ID = m.nextID
	cp := *ev
	m.events = append(m.events, &cp)
	return nil
}

func (m *MemoryBackend) QuerySecurityEvents(_ context.Context, filter EventFilter) ([]*models.SecurityEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var matched []*models.SecurityEvent
	// Newest first, matching the SQL backend's ordering.
	for i := len(m.events) - 1; i >= 0; i-- {
		ev := m.events[i]
		if filter.Kind != "" && string(ev.Kind) != filter.Kind {
			continue
		}
		if filter.SourceIP != "" && ev.SourceIP != filter.SourceIP {
			continue
		}
		if filter.Since != nil && ev.Timestamp.Before(*filter.Since) {
			continue
		}
		cp := *ev
		matched = append(matched, &cp)
	}
	if filter.Offset > 0 {
		if filter.Offset >= len(matched) {
			return nil, nil
		}
		matched = matched[filter.Offset:]
	}
	if filter.Limit > 0 && len(matched) > filter.Limit {
		matched = matched[:filter.Limit]
	}
	return matched, nil
}

func (m *MemoryBackend) Ping(_ context.Context) error { return nil }

func (m *MemoryBackend) Close() {}
