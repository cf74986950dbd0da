package jwtx

import (
	"crypto/rand"
	"encoding/base64"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// DefaultAccessTokenTTL is the session token lifetime when the caller does
// not ask for one.
const DefaultAccessTokenTTL = 15 * time.Minute

// ClaimPrecision is the resolution of every time claim we issue. NumericDate
// values are written with fractional seconds so exp is never rounded down.
const ClaimPrecision = time.Millisecond

func init() {
	// One step finer than ClaimPrecision: decoding goes through float64, which
	// can land a few hundred nanoseconds short. expiry() rounds that back.
	jwt.TimePrecision = time.Microsecond
}

// Claims are the session-token claims. Subject carries the account email.
type Claims struct {
	jwt.RegisteredClaims

	// UserID is the string form of the account's opaque identifier.
	UserID string `json:"user_id"`

	// Role is the canonical role name at issuance time. It is a hint only,
	// authorization decisions re-read the role from the store.
	Role string `json:"role"`
}

// NewSessionClaims builds claims for a session token valid for ttl from now.
// now is truncated to ClaimPrecision.
func NewSessionClaims(subject, userID, role, issuer string, ttl time.Duration, now time.Time) Claims {
	now = now.Truncate(ClaimPrecision)
	return Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			ID:        NewJTI(),
		},
		UserID: userID,
		Role:   role,
	}
}

// NewJTI returns a URL-safe random identifier for the "jti" claim.
func NewJTI() string {
	var b [16]byte
	_, _ = rand.Read(b[:])
	return base64.RawURLEncoding.EncodeToString(b[:])
}

// ExpiresAtTime returns the expiry instant, or the zero time when unset.
func (c Claims) ExpiresAtTime() time.Time {
	if c.ExpiresAt == nil {
		return time.Time{}
	}
	return c.expiry()
}

// GetExpirationTime is what the parser checks exp against.
func (c Claims) GetExpirationTime() (*jwt.NumericDate, error) {
	if c.ExpiresAt == nil {
		return nil, nil
	}
	return &jwt.NumericDate{Time: c.expiry()}, nil
}

func (c Claims) expiry() time.Time {
	return c.ExpiresAt.Round(ClaimPrecision).UTC()
}
