package service

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// Bcrypt work factor bounds accepted by NewVault.
const (
	MinBcryptCost     = 4
	MaxBcryptCost     = 14
	DefaultBcryptCost = 10
)

// Vault hashes and verifies local passwords.
type Vault struct {
	cost  int
	dummy []byte
}

// NewVault creates a Vault using the given bcrypt cost. A throwaway digest is
// computed up front so lookups for unknown accounts can burn the same time as
// a real comparison.
func NewVault(cost int) (*Vault, error) {
	if cost < MinBcryptCost || cost > MaxBcryptCost {
		return nil, fmt.Errorf("bcrypt cost %d outside [%d, %d]", cost, MinBcryptCost, MaxBcryptCost)
	}
	dummy, err := bcrypt.GenerateFromPassword([]byte("not-a-real-password"), cost)
	if err != nil {
		return nil, fmt.Errorf("generate dummy digest: %w", err)
	}
	return &Vault{cost: cost, dummy: dummy}, nil
}

// Hash returns a salted bcrypt digest of plaintext.
func (v *Vault) Hash(plaintext string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(plaintext), v.cost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

// Verify reports whether plaintext matches digest. An empty digest (an
// account without a local password) never matches.
func (v *Vault) Verify(plaintext, digest string) bool {
	if digest == "" {
		v.burn(plaintext)
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(digest), []byte(plaintext)) == nil
}

// burn runs a comparison whose result is discarded.
func (v *Vault) burn(plaintext string) {
	_ = bcrypt.CompareHashAndPassword(v.dummy, []byte(plaintext))
}

// HashIfChanged hashes plaintext only when it differs from the password
// already stored in currentDigest. When it matches, currentDigest is
// returned unchanged and changed is false.
func (v *Vault) HashIfChanged(plaintext, currentDigest string) (digest string, changed bool, err error) {
	if currentDigest != "" {
		err := bcrypt.CompareHashAndPassword([]byte(currentDigest), []byte(plaintext))
		if err == nil {
			return currentDigest, false, nil
		}
		if !errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return "", false, fmt.Errorf("compare password: %w", err)
		}
	}
	digest, err = v.Hash(plaintext)
	if err != nil {
		return "", false, err
	}
	return digest, true, nil
}
