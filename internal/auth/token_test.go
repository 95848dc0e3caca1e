package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"

	"github.com/tutorlink/live/internal/domain"
)

const testIssuer = "tutorlink-backend"

func signToken(t *testing.T, secret string, claims jwt.MapClaims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	s, err := token.SignedString([]byte(secret))
	require.NoError(t, err)
	return s
}

func TestVerifier_ValidToken(t *testing.T) {
	req := require.New(t)
	v := NewVerifier("secret", testIssuer)

	raw := signToken(t, "secret", jwt.MapClaims{
		"sub":  "u1",
		"name": "Alice",
		"iss":  testIssuer,
		"iat":  time.Now().Unix(),
		"exp":  time.Now().Add(time.Hour).Unix(),
	})

	user, err := v.Verify(raw)
	req.NoError(err)
	req.Equal(domain.UserID("u1"), user.ID)
	req.Equal("Alice", user.DisplayName)
}

func TestVerifier_NameFallsBackToSubject(t *testing.T) {
	req := require.New(t)
	v := NewVerifier("secret", testIssuer)

	raw := signToken(t, "secret", jwt.MapClaims{
		"sub": "u1",
		"iss": testIssuer,
		"exp": time.Now().Add(time.Hour).Unix(),
	})

	user, err := v.Verify(raw)
	req.NoError(err)
	req.Equal("u1", user.DisplayName)
}

func TestVerifier_WrongSecret(t *testing.T) {
	req := require.New(t)
	v := NewVerifier("secret", testIssuer)

	raw := signToken(t, "other-secret", jwt.MapClaims{
		"sub": "u1",
		"iss": testIssuer,
		"exp": time.Now().Add(time.Hour).Unix(),
	})

	_, err := v.Verify(raw)
	req.ErrorIs(err, ErrInvalidToken)
}

func TestVerifier_WrongIssuer(t *testing.T) {
	req := require.New(t)
	v := NewVerifier("secret", testIssuer)

	raw := signToken(t, "secret", jwt.MapClaims{
		"sub": "u1",
		"iss": "someone-else",
		"exp": time.Now().Add(time.Hour).Unix(),
	})

	_, err := v.Verify(raw)
	req.ErrorIs(err, ErrInvalidToken)
}

func TestVerifier_ExpiredToken(t *testing.T) {
	req := require.New(t)
	v := NewVerifier("secret", testIssuer)

	raw := signToken(t, "secret", jwt.MapClaims{
		"sub": "u1",
		"iss": testIssuer,
		"exp": time.Now().Add(-time.Hour).Unix(),
	})

	_, err := v.Verify(raw)
	req.ErrorIs(err, ErrInvalidToken)
}

func TestVerifier_MissingSubject(t *testing.T) {
	req := require.New(t)
	v := NewVerifier("secret", testIssuer)

	raw := signToken(t, "secret", jwt.MapClaims{
		"iss": testIssuer,
		"exp": time.Now().Add(time.Hour).Unix(),
	})

	_, err := v.Verify(raw)
	req.ErrorIs(err, ErrInvalidToken)
}
