package auth

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/org/authgate/internal/storage"
	"github.com/org/authgate/pkg/models"
)

// storeTimeout bounds every session-store call. A slow store must not hold
// the authentication path hostage.
const storeTimeout = 2 * time.Second

// SessionService validates and manages server-side sessions.
type SessionService struct {
	store storage.Backend
	ttl   time.Duration
}

// NewSessionService creates a SessionService whose sessions live for ttl
// after their last use.
func NewSessionService(store storage.Backend, ttl time.Duration) *SessionService {
	return &SessionService{store: store, ttl: ttl}
}

// CreateSession issues a new session for the user and persists it.
func (s *SessionService) CreateSession(ctx context.Context, userID string) (*models.Session, error) {
	now := time.Now().UTC()
	sess := &models.Session{
		ID:        uuid.NewString(),
		UserID:    userID,
		CreatedAt: now,
		ExpiresAt: now.Add(s.ttl),
	}
	if err := s.store.CreateSession(ctx, sess); err != nil {
		return nil, err
	}
	return sess, nil
}

// ValidateSession checks a session cookie against the store. Expiry slides
// forward on successful validation. Store timeouts are wrapped as a
// DependencyTimeout inside the AuthError so callers can see the cause while
// the executor still treats it as a failed credential.
func (s *SessionService) ValidateSession(ctx context.Context, cookie string) error {
	cctx, cancel := context.WithTimeout(ctx, storeTimeout)
	defer cancel()

	sess, err := s.store.GetSession(cctx, cookie)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return models.NewAuthError(models.MethodSession, models.AuthInvalidCredential, err)
		}
		if errors.Is(err, context.DeadlineExceeded) {
			log.Warn().Err(err).Msg("session store timed out, treating as failed credential")
			return models.NewAuthError(models.MethodSession, models.AuthInvalidCredential,
				&models.DependencyTimeout{Op: "session lookup", Err: err})
		}
		return models.NewAuthError(models.MethodSession, models.AuthInvalidCredential, err)
	}
	if sess.IsRevoked() {
		return models.NewAuthError(models.MethodSession, models.AuthInvalidCredential, errors.New("session revoked"))
	}
	if sess.IsExpired() {
		return models.NewAuthError(models.MethodSession, models.AuthExpiredCredential, errors.New("session expired"))
	}

	// Sliding expiry; best effort, a failed touch never fails the request.
	if err := s.store.TouchSession(cctx, sess.ID, time.Now().UTC().Add(s.ttl)); err != nil {
		log.Debug().Err(err).Msg("session touch failed")
	}
	return nil
}

// RevokeSession invalidates a session immediately.
func (s *SessionService) RevokeSession(ctx context.Context, id string) error {
	return s.store.RevokeSession(ctx, id)
}

// ValidatorSet bundles both validators behind the executor's interface.
type ValidatorSet struct {
	JWT      *JWTValidator
	Sessions *SessionService
}

func (v *ValidatorSet) ValidateJWT(ctx context.Context, token string) error {
	return v.JWT.ValidateJWT(ctx, token)
}

func (v *ValidatorSet) ValidateSession(ctx context.Context, cookie string) error {
	return v.Sessions.ValidateSession(ctx, cookie)
}
