package token

import (
	"encoding/base64"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sign(t *testing.T, claims Claims) string {
	t.Helper()
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	require.NoError(t, err)
	return s
}

func TestDecode(t *testing.T) {
	issued := time.Now().Add(-time.Minute).Truncate(time.Second)
	expires := time.Now().Add(time.Hour).Truncate(time.Second)

	tok := sign(t, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "user-42",
			IssuedAt:  jwt.NewNumericDate(issued),
			ExpiresAt: jwt.NewNumericDate(expires),
		},
		Email: "chef@example.com",
		Role:  "cook",
	})

	p, err := Decode(tok)
	require.NoError(t, err)
	assert.Equal(t, "user-42", p.Subject)
	assert.Equal(t, "chef@example.com", p.Email)
	assert.Equal(t, "cook", p.Role)
	assert.True(t, p.IssuedAt.Equal(issued))
	assert.True(t, p.ExpiresAt.Equal(expires))
}

func TestDecode_Malformed(t *testing.T) {
	garbage := base64.RawURLEncoding.EncodeToString([]byte("not json"))

	tests := []struct {
		name  string
		token string
	}{
		{"empty", ""},
		{"single segment", "abc"},
		{"two segments", "abc.def"},
		{"four segments", "a.b.c.d"},
		{"payload not base64", "eyJhbGciOiJIUzI1NiJ9.%%%.sig"},
		{"payload not json", "eyJhbGciOiJIUzI1NiJ9." + garbage + ".sig"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := Decode(tt.token)
			assert.Nil(t, p)
			assert.ErrorIs(t, err, ErrMalformedToken)
			assert.False(t, IsValid(tt.token))
		})
	}
}

func TestIsValidAt(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	future := sign(t, Claims{RegisteredClaims: jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(now.Add(10 * time.Minute)),
	}})
	past := sign(t, Claims{RegisteredClaims: jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(now.Add(-10 * time.Minute)),
	}})
	exact := sign(t, Claims{RegisteredClaims: jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(now),
	}})
	noExpiry := sign(t, Claims{RegisteredClaims: jwt.RegisteredClaims{Subject: "x"}})

	assert.True(t, IsValidAt(future, now))
	assert.False(t, IsValidAt(past, now))
	assert.False(t, IsValidAt(exact, now), "expiry equal to now is expired")
	assert.False(t, IsValidAt(noExpiry, now))
	assert.False(t, IsValidAt("definitely.not.a-token", now))
}

func TestExpiresIn(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	tok := sign(t, Claims{RegisteredClaims: jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(now.Add(90 * time.Second)),
	}})

	assert.Equal(t, 90*time.Second, ExpiresIn(tok, now))
	assert.Equal(t, time.Duration(0), ExpiresIn(tok, now.Add(time.Hour)))
	assert.Equal(t, time.Duration(0), ExpiresIn("bad", now))
}
