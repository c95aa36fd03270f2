package batch

import (
	"crypto/subtle"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// SecretHeader carries the plain shared secret
const SecretHeader = "X-Batch-Secret"

const tokenSubject = "batch-trigger"

// ErrUnauthorized is returned when a trigger carries no valid credential
var ErrUnauthorized = errors.New("unauthorized batch trigger")

// Authenticator checks batch trigger credentials against the shared secret
type Authenticator struct {
	secret []byte
	now    func() time.Time
}

// NewAuthenticator creates an authenticator. An empty secret rejects everything.
func NewAuthenticator(secret string) *Authenticator {
	return &Authenticator{
		secret: []byte(secret),
		now:    time.Now,
	}
}

// MintToken signs an HS256 bearer token valid for ttl
func (a *Authenticator) MintToken(ttl time.Duration) (string, error) {
	if len(a.secret) == 0 {
		return "", fmt.Errorf("batch secret is not configured")
	}
	now := a.now()
	claims := jwt.RegisteredClaims{
		Subject:   tokenSubject,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign batch token: %w", err)
	}
	return token, nil
}

// Authorize accepts either an "Authorization: Bearer <jwt>" value or the
// plain shared secret header value.
func (a *Authenticator) Authorize(authorization, sharedSecret string) error {
	if len(a.secret) == 0 {
		return ErrUnauthorized
	}

	if sharedSecret != "" {
		if subtle.ConstantTimeCompare([]byte(sharedSecret), a.secret) == 1 {
			return nil
		}
		return ErrUnauthorized
	}

	raw, ok := strings.CutPrefix(authorization, "Bearer ")
	if !ok || raw == "" {
		return ErrUnauthorized
	}

	_, err := jwt.Parse(raw, func(*jwt.Token) (interface{}, error) {
		return a.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithSubject(tokenSubject),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(a.now),
	)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnauthorized, err)
	}
	return nil
}
