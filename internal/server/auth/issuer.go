// Package auth issues and verifies the signed tokens used by the server.
//
// Each token purpose has its own HMAC secret derived from one base secret,
// so an access token can never be accepted where a refresh or two-factor
// token is expected.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/teamboard/internal/common"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Purpose selects the secret a token is signed with.
type Purpose string

const (
	PurposeAccess    Purpose = "access"
	PurposeRefresh   Purpose = "refresh"
	PurposeTwoFactor Purpose = "2fa"
)

// Claims is the payload of every token: standard registered claims
// (sub, iat, exp, jti) plus the account email.
type Claims struct {
	jwt.RegisteredClaims
	Email string `json:"email"`
}

// IssuerOption customizes an Issuer.
type IssuerOption func(*Issuer)

// WithClock replaces time.Now for signing and expiry checks.
func WithClock(now func() time.Time) IssuerOption {
	return func(i *Issuer) {
		i.now = now
	}
}

// Issuer signs and verifies HS256 tokens for every Purpose.
// It is immutable after construction and safe for concurrent use.
type Issuer struct {
	secrets map[Purpose][]byte
	now     func() time.Time
}

// NewIssuer derives the per-purpose secrets as baseSecret + "-" + purpose.
func NewIssuer(baseSecret string, opts ...IssuerOption) (*Issuer, error) {
	if baseSecret == "" {
		return nil, fmt.Errorf("%w: base secret is empty", common.ErrorValidation)
	}

	i := &Issuer{
		secrets: make(map[Purpose][]byte, 3),
		now:     time.Now,
	}
	for _, p := range []Purpose{PurposeAccess, PurposeRefresh, PurposeTwoFactor} {
		i.secrets[p] = []byte(baseSecret + "-" + string(p))
	}
	for _, opt := range opts {
		opt(i)
	}
	return i, nil
}

func (i *Issuer) secret(purpose Purpose) ([]byte, error) {
	s, ok := i.secrets[purpose]
	if !ok {
		return nil, fmt.Errorf("unknown token purpose %q", purpose)
	}
	return s, nil
}

// Sign returns a token for subject valid for ttl.
func (i *Issuer) Sign(subject, email string, purpose Purpose, ttl time.Duration) (string, error) {
	secret, err := i.secret(purpose)
	if err != nil {
		return "", err
	}

	now := i.now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			ID:        uuid.NewString(),
		},
		Email: email,
	})

	return token.SignedString(secret)
}

// Verify checks signature, algorithm and expiry and returns the claims.
// An expired token yields common.ErrTokenExpired, any other problem
// common.ErrInvalidToken.
func (i *Issuer) Verify(tokenString string, purpose Purpose) (*Claims, error) {
	secret, err := i.secret(purpose)
	if err != nil {
		return nil, err
	}

	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims,
		func(t *jwt.Token) (interface{}, error) {
			return secret, nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(i.now),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, common.ErrTokenExpired
		}
		return nil, common.ErrInvalidToken
	}

	if !token.Valid || claims.Subject == "" {
		return nil, common.ErrInvalidToken
	}

	return claims, nil
}
