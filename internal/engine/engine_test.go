package engine

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/org/authgate/internal/security"
	"github.com/org/authgate/internal/selector"
	"github.com/org/authgate/internal/stats"
	"github.com/org/authgate/pkg/models"
)

// scriptedValidators lets each scenario dictate validation results.
type scriptedValidators struct {
	jwtErr       error
	sessionErr   error
	jwtCalls     int
	sessionCalls int
}

func (s *scriptedValidators) ValidateJWT(ctx context.Context, token string) error {
	s.jwtCalls++
	return s.jwtErr
}

func (s *scriptedValidators) ValidateSession(ctx context.Context, cookie string) error {
	s.sessionCalls++
	return s.sessionErr
}

func newEngine(t *testing.T, cfg Config, v *scriptedValidators) *Engine {
	t.Helper()
	e, err := New(cfg, v, nil)
	require.NoError(t, err)
	return e
}

func apiRequest() Request {
	h := http.Header{}
	h.Set("Authorization", "Bearer some.jwt.token")
	h.Set("User-Agent", "python-requests/2.31")
	h.Set("Accept", "application/json")
	return Request{Header: h, SourceIP: "10.1.1.1", RouteClass: "api"}
}

func browserRequest() Request {
	h := http.Header{}
	h.Set("Cookie", "authgate_session=sess-1")
	h.Set("User-Agent", "Mozilla/5.0 (Windows NT 10.0) Firefox/121.0")
	h.Set("Accept", "text/html,application/xhtml+xml")
	return Request{Header: h, SourceIP: "10.2.2.2", RouteClass: "web"}
}

func TestScenarioAPIClientJWTSuccess(t *testing.T) {
	v := &scriptedValidators{}
	e := newEngine(t, Config{}, v)

	res, err := e.Authenticate(context.Background(), apiRequest())
	require.NoError(t, err)
	require.True(t, res.Succeeded)
	require.Equal(t, models.MethodJWT, res.Method)
	require.False(t, res.FellBack)
	require.Equal(t, models.ClientAPI, res.ClientType)
	require.Len(t, res.Outcomes, 1)
	require.Equal(t, 0, v.sessionCalls)
}

func TestScenarioBrowserSessionExpiredExhausts(t *testing.T) {
	v := &scriptedValidators{
		sessionErr: models.NewAuthError(models.MethodSession, models.AuthExpiredCredential, nil),
	}
	e := newEngine(t, Config{}, v)

	res, err := e.Authenticate(context.Background(), browserRequest())
	require.ErrorIs(t, err, models.ErrFallbackExhausted)
	require.False(t, res.Succeeded)
	require.Equal(t, models.ClientBrowser, res.ClientType)
	// Session was attempted first, then the JWT fallback failed on the
	// missing bearer token without ever reaching the validator.
	require.Len(t, res.Outcomes, 2)
	require.Equal(t, models.MethodSession, res.Outcomes[0].Method)
	require.Equal(t, models.MethodJWT, res.Outcomes[1].Method)
	require.Equal(t, 0, v.jwtCalls)
	require.Equal(t, 1, v.sessionCalls)
}

func TestScenarioRepeatTrafficHitsDecisionCache(t *testing.T) {
	v := &scriptedValidators{}
	e := newEngine(t, Config{}, v)
	ctx := context.Background()

	_, err := e.Authenticate(ctx, apiRequest())
	require.NoError(t, err)
	_, err = e.Authenticate(ctx, apiRequest())
	require.NoError(t, err)

	snap := e.Stats().Snapshot()
	dec := snap.Caches[stats.CacheDecision]
	require.Equal(t, int64(1), dec.Misses)
	require.Equal(t, int64(1), dec.Hits)
	// The selector itself ran exactly once.
	require.Equal(t, int64(1), snap.Decisions)

	capCache := snap.Caches[stats.CacheCapability]
	require.Equal(t, int64(1), capCache.Misses)
	require.Equal(t, int64(1), capCache.Hits)
}

func TestFallbackSuccessFeedsStats(t *testing.T) {
	v := &scriptedValidators{
		jwtErr: models.NewAuthError(models.MethodJWT, models.AuthExpiredCredential, nil),
	}
	e := newEngine(t, Config{}, v)

	req := apiRequest()
	req.Header.Set("Cookie", "authgate_session=sess-1")
	res, err := e.Authenticate(context.Background(), req)
	require.NoError(t, err)
	require.True(t, res.Succeeded)
	require.True(t, res.FellBack)
	require.Equal(t, models.MethodSession, res.Method)

	snap := e.Stats().Snapshot()
	require.Equal(t, int64(1), snap.Fallbacks)
	require.Equal(t, int64(1), snap.Methods["jwt"].Attempts)
	require.Equal(t, int64(0), snap.Methods["jwt"].Successes)
	require.Equal(t, int64(1), snap.Methods["session"].Successes)
	require.Equal(t, int64(1), snap.Events[string(models.EventFallbackTriggered)])
}

func TestRateLimitedRequestIsRejected(t *testing.T) {
	v := &scriptedValidators{}
	cfg := Config{Security: security.Config{RateLimit: 2}}
	e := newEngine(t, cfg, v)
	ctx := context.Background()

	_, err := e.Authenticate(ctx, apiRequest())
	require.NoError(t, err)
	_, err = e.Authenticate(ctx, apiRequest())
	require.NoError(t, err)
	_, err = e.Authenticate(ctx, apiRequest())
	require.ErrorIs(t, err, models.ErrRateLimited)

	snap := e.Stats().Snapshot()
	require.Equal(t, int64(1), snap.Events[string(models.EventRateLimited)])
	// The limited request never reached a validator.
	require.Equal(t, 2, v.jwtCalls)
}

func TestCancelledRequestRecordsNothing(t *testing.T) {
	v := &scriptedValidators{}
	e := newEngine(t, Config{}, v)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := e.Authenticate(ctx, apiRequest())
	require.True(t, errors.Is(err, context.Canceled))

	snap := e.Stats().Snapshot()
	require.Empty(t, snap.Methods)
}

func TestConfigValidation(t *testing.T) {
	v := &scriptedValidators{}

	_, err := New(Config{Weights: selector.Weights{Signal: -1}}, v, nil)
	var cfgErr *models.ConfigError
	require.ErrorAs(t, err, &cfgErr)

	_, err = New(Config{DefaultMethod: "ldap"}, v, nil)
	require.ErrorAs(t, err, &cfgErr)

	_, err = New(Config{SuccessAlpha: 1.5}, v, nil)
	require.ErrorAs(t, err, &cfgErr)
}

func TestDeterministicDecisionForSameInputs(t *testing.T) {
	v := &scriptedValidators{}
	e1 := newEngine(t, Config{}, v)
	e2 := newEngine(t, Config{}, v)

	res1, err1 := e1.Authenticate(context.Background(), apiRequest())
	res2, err2 := e2.Authenticate(context.Background(), apiRequest())
	require.NoError(t, err1)
	require.NoError(t, err2)
	require.Equal(t, res1.Method, res2.Method)
	require.Equal(t, res1.ClientType, res2.ClientType)
}
