package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/org/authgate/internal/engine"
	"github.com/org/authgate/internal/storage"
	"github.com/org/authgate/pkg/models"
)

// AuthCheckHandler handles GET|POST /v1/auth/check. It runs the full
// coordination pipeline for the calling request and answers with the
// forward-auth verdict. Failure responses are deliberately uniform: callers
// never learn which method was tried or why it failed.
func (s *Server) AuthCheckHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	result, err := s.engine.Authenticate(ctx, engine.Request{
		Header:     r.Header,
		SourceIP:   clientIP(r),
		RouteClass: s.routeClass(r),
	})
	if err == nil {
		w.Header().Set("X-Auth-Method", string(result.Method))
		writeJSON(w, http.StatusOK, result)
		return
	}

	switch {
	case errors.Is(err, models.ErrRateLimited):
		writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
	case errors.Is(err, models.ErrFallbackExhausted):
		writeError(w, http.StatusUnauthorized, "authentication failed")
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		writeError(w, http.StatusServiceUnavailable, "request aborted")
	default:
		var authErr *models.AuthError
		if errors.As(err, &authErr) {
			if authErr.IsAuthentication() {
				writeError(w, http.StatusUnauthorized, "authentication failed")
			} else {
				writeError(w, http.StatusForbidden, "forbidden")
			}
			return
		}
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

// HealthHandler handles GET /v1/sys/health.
func (s *Server) HealthHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	status := "ok"
	code := http.StatusOK
	if err := s.store.Ping(ctx); err != nil {
		status = "degraded"
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, map[string]string{"status": status})
}

// StatsHandler handles GET /v1/stats.
func (s *Server) StatsHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.engine.Stats().Snapshot())
}

// EventsHandler handles GET /v1/security/events.
func (s *Server) EventsHandler(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := storage.EventFilter{
		Kind:     q.Get("kind"),
		SourceIP: q.Get("source_ip"),
		Limit:    100,
	}
	if raw := q.Get("since"); raw != "" {
		ts, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid since timestamp, want RFC3339")
			return
		}
		filter.Since = &ts
	}
	if raw := q.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		filter.Limit = n
	}
	if raw := q.Get("offset"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "invalid offset")
			return
		}
		filter.Offset = n
	}

	events, err := s.auditor.Query(r.Context(), filter)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to query events")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"events": events,
		"count":  len(events),
	})
}

// SessionCreateHandler handles POST /v1/sessions.
func (s *Server) SessionCreateHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		UserID string `json:"user_id"`
	}
	if err := decodeJSON(r, &req); err != nil || req.UserID == "" {
		writeError(w, http.StatusBadRequest, "user_id is required")
		return
	}

	sess, err := s.sessions.CreateSession(r.Context(), req.UserID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to create session")
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     s.sessionCookieName(),
		Value:    sess.ID,
		Path:     "/",
		Expires:  sess.ExpiresAt,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	writeJSON(w, http.StatusCreated, map[string]any{
		"id":         sess.ID,
		"user_id":    sess.UserID,
		"expires_at": sess.ExpiresAt,
	})
}

// SessionRevokeHandler handles DELETE /v1/sessions/{id}.
func (s *Server) SessionRevokeHandler(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.sessions.RevokeSession(r.Context(), id); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeError(w, http.StatusNotFound, "session not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to revoke session")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"revoked": id})
}

func (s *Server) sessionCookieName() string {
	if s.cfg.Engine.SessionCookie != "" {
		return s.cfg.Engine.SessionCookie
	}
	return "authgate_session"
}
