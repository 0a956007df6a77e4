// Package auth supplies the credential validators the fallback executor
// calls into: a JWT bearer-token verifier and a server-side session store.
// The coordination engine treats both as opaque, fallible collaborators.
package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"

	"github.com/org/authgate/pkg/models"
)

// JWTValidator verifies HMAC-signed bearer tokens.
type JWTValidator struct {
	secret []byte
	issuer string
}

// NewJWTValidator creates a validator for tokens signed with secret.
// If issuer is non-empty, the iss claim must match.
func NewJWTValidator(secret []byte, issuer string) *JWTValidator {
	return &JWTValidator{secret: secret, issuer: issuer}
}

// ValidateJWT parses and verifies a bearer token. Rejections come back as
// AuthErrors so the executor can tell recoverable credential problems from
// terminal ones.
func (v *JWTValidator) ValidateJWT(ctx context.Context, token string) error {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{"HS256", "HS384", "HS512"}),
		jwt.WithExpirationRequired(),
	}
	if v.issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.issuer))
	}

	parsed, err := jwt.Parse(token, func(t *jwt.Token) (any, error) {
		return v.secret, nil
	}, opts...)
	if err != nil {
		kind := models.AuthInvalidCredential
		if errors.Is(err, jwt.ErrTokenExpired) {
			kind = models.AuthExpiredCredential
		}
		return models.NewAuthError(models.MethodJWT, kind, err)
	}
	if !parsed.Valid {
		return models.NewAuthError(models.MethodJWT, models.AuthInvalidCredential, fmt.Errorf("token not valid"))
	}
	return nil
}

// Subject extracts the sub claim without re-verifying. Callers must have
// validated the token first.
func (v *JWTValidator) Subject(token string) (string, error) {
	parsed, _, err := jwt.NewParser().ParseUnverified(token, jwt.MapClaims{})
	if err != nil {
		return "", err
	}
	return parsed.Claims.GetSubject()
}
