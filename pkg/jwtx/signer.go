package jwtx

import (
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

// MinSecretLength is the shortest HMAC secret we accept (256 bits).
const MinSecretLength = 32

var (
	ErrUnsupportedAlg = errors.New("jwtx: unsupported signing algorithm")
	ErrWeakSecret     = errors.New("jwtx: signing secret too short")
)

// Signer produces compact signed tokens.
type Signer interface {
	Alg() string
	Sign(Claims) (string, error)
}

// HMACKey signs and verifies tokens with one shared secret. It is built once
// at startup and never mutated.
type HMACKey struct {
	method *jwt.SigningMethodHMAC
	secret []byte
}

// NewHMACKey validates alg (HS256, HS384 or HS512) and copies secret.
func NewHMACKey(alg string, secret []byte) (*HMACKey, error) {
	var method *jwt.SigningMethodHMAC
	switch alg {
	case jwt.SigningMethodHS256.Alg():
		method = jwt.SigningMethodHS256
	case jwt.SigningMethodHS384.Alg():
		method = jwt.SigningMethodHS384
	case jwt.SigningMethodHS512.Alg():
		method = jwt.SigningMethodHS512
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedAlg, alg)
	}

	if len(secret) < MinSecretLength {
		return nil, fmt.Errorf("%w: need at least %d bytes", ErrWeakSecret, MinSecretLength)
	}

	return &HMACKey{
		method: method,
		secret: append([]byte(nil), secret...),
	}, nil
}

func (k *HMACKey) Alg() string { return k.method.Alg() }

// Sign serializes claims into a header.payload.signature string.
func (k *HMACKey) Sign(claims Claims) (string, error) {
	t := jwt.NewWithClaims(k.method, claims)
	s, err := t.SignedString(k.secret)
	if err != nil {
		return "", fmt.Errorf("jwtx: sign: %w", err)
	}
	return s, nil
}
