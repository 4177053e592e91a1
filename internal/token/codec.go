// Package token decodes access tokens on the client side.
//
// Nothing here verifies a signature. The decoded payload is only good for an
// optimistic expiry check; the server remains the authority on validity.
package token

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/pkg/errors"
)

// ErrMalformedToken is returned when a token is not a three-segment JWT with a JSON payload
var ErrMalformedToken = errors.New("malformed token")

// Payload is the decoded, unverified token body
type Payload struct {
	Subject   string    `json:"sub"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	IssuedAt  time.Time `json:"iat"`
	ExpiresAt time.Time `json:"exp"`
}

// Claims is the wire shape of the token payload
type Claims struct {
	jwt.RegisteredClaims
	Email string `json:"email,omitempty"`
	Role  string `json:"role,omitempty"`
}

var parser = jwt.NewParser()

// Decode reads the payload of a token without verifying it
func Decode(tokenString string) (*Payload, error) {
	if tokenString == "" {
		return nil, errors.Wrap(ErrMalformedToken, "empty token")
	}

	var claims Claims
	if _, _, err := parser.ParseUnverified(tokenString, &claims); err != nil {
		return nil, errors.Wrap(ErrMalformedToken, err.Error())
	}

	p := &Payload{
		Subject: claims.Subject,
		Email:   claims.Email,
		Role:    claims.Role,
	}
	if claims.IssuedAt != nil {
		p.IssuedAt = claims.IssuedAt.Time
	}
	if claims.ExpiresAt != nil {
		p.ExpiresAt = claims.ExpiresAt.Time
	}
	return p, nil
}

// IsValid reports whether the token decodes and has not yet expired
func IsValid(tokenString string) bool {
	return IsValidAt(tokenString, time.Now())
}

// IsValidAt reports whether the token decodes and expires after now.
// A token without an expiry is treated as invalid.
func IsValidAt(tokenString string, now time.Time) bool {
	p, err := Decode(tokenString)
	if err != nil {
		return false
	}
	if p.ExpiresAt.IsZero() {
		return false
	}
	return p.ExpiresAt.After(now)
}

// ExpiresIn returns the time left before expiry, zero if expired or undecodable
func ExpiresIn(tokenString string, now time.Time) time.Duration {
	p, err := Decode(tokenString)
	if err != nil || p.ExpiresAt.IsZero() {
		return 0
	}
	if left := p.ExpiresAt.Sub(now); left > 0 {
		return left
	}
	return 0
}
