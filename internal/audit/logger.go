// Package audit persists security events for the external audit sink.
package audit

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/org/authgate/internal/storage"
	"github.com/org/authgate/pkg/models"
)

// Logger writes security events to storage. Implements security.EventSink.
type Logger struct {
	store storage.Backend
}

// NewLogger creates an audit Logger.
func NewLogger(store storage.Backend) *Logger {
	return &Logger{store: store}
}

// Emit records one security event. Fire and forget: an audit write failure
// is logged but never breaks the request flow.
func (l *Logger) Emit(ctx context.Context, ev models.SecurityEvent) {
	if err := l.store.WriteSecurityEvent(ctx, &ev); err != nil {
		log.Warn().Err(err).Str("kind", string(ev.Kind)).Msg("failed to persist security event")
	}
}

// Query retrieves filtered security events for the dashboard and CLI.
func (l *Logger) Query(ctx context.Context, filter storage.EventFilter) ([]*models.SecurityEvent, error) {
	return l.store.QuerySecurityEvents(ctx, filter)
}
