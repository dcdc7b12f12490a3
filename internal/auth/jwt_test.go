package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignVerify(t *testing.T) {
	s, err := NewSigner("secret", time.Hour)
	require.NoError(t, err)

	tok, err := s.Sign("admin", time.Now())
	require.NoError(t, err)

	sub, err := s.Verify(tok)
	require.NoError(t, err)
	assert.Equal(t, "admin", sub)
}

func TestVerifyRejects(t *testing.T) {
	s, err := NewSigner("secret", time.Hour)
	require.NoError(t, err)
	other, err := NewSigner("other", time.Hour)
	require.NoError(t, err)

	foreign, err := other.Sign("admin", time.Now())
	require.NoError(t, err)
	_, err = s.Verify(foreign)
	assert.ErrorIs(t, err, ErrInvalidToken)

	expired, err := s.Sign("admin", time.Now().Add(-2*time.Hour))
	require.NoError(t, err)
	_, err = s.Verify(expired)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = s.Verify("not-a-token")
	assert.ErrorIs(t, err, ErrInvalidToken)

	wrongIssuer, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.StandardClaims{
		Subject: "admin", Issuer: "someone-else", ExpiresAt: time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte("secret"))
	require.NoError(t, err)
	_, err = s.Verify(wrongIssuer)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestNewSignerNeedsSecret(t *testing.T) {
	_, err := NewSigner("", time.Hour)
	assert.ErrorIs(t, err, ErrNoSecret)
}
