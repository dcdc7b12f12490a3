// Package auth issues and checks admin API tokens.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrNoSecret     = errors.New("jwt secret is empty")
)

const Issuer = "tempvoice"

// Uses SigningMethodHS256 with a shared secret.
type Signer struct {
	secret    []byte
	ttl       time.Duration
	clockSkew time.Duration
}

func NewSigner(secret string, ttl time.Duration) (*Signer, error) {
	if secret == "" {
		return nil, ErrNoSecret
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Signer{secret: []byte(secret), ttl: ttl, clockSkew: 30 * time.Second}, nil
}

type Claims struct {
	jwt.StandardClaims
}

// Sign issues a token for subject valid from now for the signer's ttl.
func (s *Signer) Sign(subject string, now time.Time) (string, error) {
	claims := Claims{
		StandardClaims: jwt.StandardClaims{
			Subject:   subject,
			Issuer:    Issuer,
			IssuedAt:  now.Unix(),
			NotBefore: now.Add(-s.clockSkew).Unix(),
			ExpiresAt: now.Add(s.ttl).Unix(),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Verify checks signature, issuer and expiry and returns the subject.
func (s *Signer) Verify(token string) (string, error) {
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		if t.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, ErrInvalidToken
		}
		return s.secret, nil
	})
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !parsed.Valid || !claims.VerifyIssuer(Issuer, true) {
		return "", ErrInvalidToken
	}
	return claims.Subject, nil
}
