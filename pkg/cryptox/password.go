package cryptox

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"sync"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/bcrypt"
)

// DefaultPasswordCost is the bcrypt work factor used for new hashes. At cost
// 12 a hash takes a few hundred milliseconds on commodity hardware.
const DefaultPasswordCost = 12

// bcrypt only looks at the first 72 bytes of its input.
const bcryptMaxInput = 72

const argon2Prefix = "$argon2id$"

// ErrInvalidHash reports a stored hash that is not in a format we understand.
var ErrInvalidHash = errors.New("cryptox: invalid password hash")

// PasswordHasher hashes and verifies account passwords with bcrypt. Legacy
// argon2id PHC strings are still accepted by Verify so old accounts can log in
// and be upgraded on their next successful login.
type PasswordHasher struct {
	cost int

	dummyOnce sync.Once
	dummy     []byte
}

// NewPasswordHasher returns a hasher using cost, clamped to bcrypt's limits.
// A zero cost selects DefaultPasswordCost.
func NewPasswordHasher(cost int) *PasswordHasher {
	switch {
	case cost == 0:
		cost = DefaultPasswordCost
	case cost < bcrypt.MinCost:
		cost = bcrypt.MinCost
	case cost > bcrypt.MaxCost:
		cost = bcrypt.MaxCost
	}
	return &PasswordHasher{cost: cost}
}

// Cost returns the configured bcrypt work factor.
func (h *PasswordHasher) Cost() int { return h.cost }

// Hash derives a salted bcrypt hash of password.
func (h *PasswordHasher) Hash(password []byte) (string, error) {
	hash, err := bcrypt.GenerateFromPassword(bcryptInput(password), h.cost)
	if err != nil {
		return "", fmt.Errorf("cryptox: hash password: %w", err)
	}
	return string(hash), nil
}

// Verify compares password against an encoded hash in constant time. A
// malformed hash is a mismatch, not an error.
func (h *PasswordHasher) Verify(password []byte, encodedHash string) bool {
	if strings.HasPrefix(encodedHash, argon2Prefix) {
		ok, err := verifyArgon2id(password, encodedHash)
		return err == nil && ok
	}
	return bcrypt.CompareHashAndPassword([]byte(encodedHash), bcryptInput(password)) == nil
}

// NeedsRehash reports whether encodedHash was produced by another algorithm or
// with a different cost than the hasher is configured for.
func (h *PasswordHasher) NeedsRehash(encodedHash string) bool {
	if strings.HasPrefix(encodedHash, argon2Prefix) {
		return true
	}
	cost, err := bcrypt.Cost([]byte(encodedHash))
	if err != nil {
		return true
	}
	return cost != h.cost
}

// SimulateVerify burns the same CPU time as a real Verify. Used when the
// account does not exist so a login miss is indistinguishable by timing.
func (h *PasswordHasher) SimulateVerify(password []byte) {
	h.dummyOnce.Do(func() {
		seed := make([]byte, 32)
		_, _ = rand.Read(seed)
		h.dummy, _ = bcrypt.GenerateFromPassword(seed, h.cost)
	})
	_ = bcrypt.CompareHashAndPassword(h.dummy, bcryptInput(password))
}

// bcryptInput keeps long passwords significant past bcrypt's 72 byte cut-off
// by pre-hashing them.
func bcryptInput(password []byte) []byte {
	if len(password) <= bcryptMaxInput {
		return password
	}
	sum := sha256.Sum256(password)
	out := make([]byte, base64.StdEncoding.EncodedLen(len(sum)))
	base64.StdEncoding.Encode(out, sum[:])
	return out
}

// verifyArgon2id checks a PHC-format hash: $argon2id$v=19$m=X,t=Y,p=Z$salt$hash
func verifyArgon2id(password []byte, encodedHash string) (bool, error) {
	parts := strings.Split(encodedHash, "$")
	if len(parts) != 6 {
		return false, fmt.Errorf("%w: expected 6 parts", ErrInvalidHash)
	}
	if parts[1] != "argon2id" {
		return false, fmt.Errorf("%w: not argon2id", ErrInvalidHash)
	}
	if parts[2] != fmt.Sprintf("v=%d", argon2.Version) {
		return false, fmt.Errorf("%w: wrong version", ErrInvalidHash)
	}

	var mem, iters uint32
	var par uint8
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &mem, &iters, &par); err != nil {
		return false, fmt.Errorf("%w: parameters: %v", ErrInvalidHash, err)
	}
	if iters == 0 || par == 0 {
		return false, fmt.Errorf("%w: zero parameters", ErrInvalidHash)
	}

	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return false, fmt.Errorf("%w: salt: %v", ErrInvalidHash, err)
	}
	expected, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil || len(expected) == 0 {
		return false, fmt.Errorf("%w: digest", ErrInvalidHash)
	}

	computed := argon2.IDKey(password, salt, iters, mem, par, uint32(len(expected))) // #nosec G115
	return subtle.ConstantTimeCompare(computed, expected) == 1, nil
}

// GeneratePassword returns a random 16 character alphanumeric password.
func GeneratePassword() (string, error) {
	const charset = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	const length = 16
	password := make([]byte, length)
	for i := range password {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(charset))))
		if err != nil {
			return "", fmt.Errorf("cryptox: generate password: %w", err)
		}
		password[i] = charset[n.Int64()]
	}
	return string(password), nil
}
