// Package fallback executes a method decision against the credential
// validators, advancing down the fallback order on authentication failures.
package fallback

import (
	"context"
	"errors"
	"time"

	"github.com/org/authgate/pkg/models"
)

// Validators supplies the external credential validation calls. Both are
// opaque, fallible, and expected to honor the request context.
type Validators interface {
	ValidateJWT(ctx context.Context, token string) error
	ValidateSession(ctx context.Context, cookie string) error
}

// Credentials carries the raw credential material for one request.
type Credentials struct {
	BearerToken   string
	SessionCookie string
}

// Executor attempts the decision's methods in order until one succeeds.
type Executor struct {
	validators Validators
}

// New creates an Executor backed by the given validators.
func New(v Validators) *Executor {
	return &Executor{validators: v}
}

// Authenticate tries decision.Primary, then each entry of the fallback
// order. It advances only past authentication failures: an authorization
// failure is terminal. Every completed attempt yields an Outcome; an attempt
// abandoned to context cancellation yields none. On exhaustion the error is
// models.ErrFallbackExhausted, which does not name the methods tried.
func (e *Executor) Authenticate(ctx context.Context, decision models.Decision, creds Credentials) (models.Result, error) {
	result := models.Result{}

	for i, method := range decision.Methods() {
		// Attempts are not preemptible mid-call; between attempts we honor
		// cancellation and abandon the rest of the chain.
		if err := ctx.Err(); err != nil {
			return result, err
		}

		start := time.Now()
		err := e.validate(ctx, method, creds)
		outcome := models.Outcome{
			Method:    method,
			Succeeded: err == nil,
			Latency:   time.Since(start),
			FellBack:  i > 0,
		}
		result.Outcomes = append(result.Outcomes, outcome)

		if err == nil {
			result.Method = method
			result.Succeeded = true
			result.FellBack = i > 0
			return result, nil
		}

		var authErr *models.AuthError
		if errors.As(err, &authErr) && authErr.IsAuthentication() {
			continue
		}
		// Authorization failure or an unclassified fault: do not try other
		// credentials on behalf of a caller the validator rejected outright.
		result.Method = method
		result.FellBack = i > 0
		return result, err
	}

	result.FellBack = len(decision.FallbackOrder) > 0
	return result, models.ErrFallbackExhausted
}

func (e *Executor) validate(ctx context.Context, method models.Method, creds Credentials) error {
	switch method {
	case models.MethodJWT:
		if creds.BearerToken == "" {
			return models.NewAuthError(method, models.AuthMissingCredential, nil)
		}
		return e.validators.ValidateJWT(ctx, creds.BearerToken)
	case models.MethodSession:
		if creds.SessionCookie == "" {
			return models.NewAuthError(method, models.AuthMissingCredential, nil)
		}
		return e.validators.ValidateSession(ctx, creds.SessionCookie)
	default:
		return models.NewAuthError(method, models.AuthInvalidCredential, nil)
	}
}
