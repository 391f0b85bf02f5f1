package application

import (
	"crypto/subtle"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/ericfisherdev/teampanel/internal/domain/port/driven"
)

// Compile-time interface satisfaction checks.
var (
	_ driven.PasswordHasher = (*BcryptHasher)(nil)
	_ driven.PasswordHasher = PlaintextHasher{}
)

// BcryptHasher stores bcrypt hashes. Stored values that are not bcrypt hashes
// are treated as legacy plaintext passwords: they still verify, and Verify
// asks the caller to rehash them.
type BcryptHasher struct {
	cost int
}

// NewBcryptHasher returns a BcryptHasher using cost. Costs outside
// [bcrypt.MinCost, bcrypt.MaxCost] are rejected.
func NewBcryptHasher(cost int) (*BcryptHasher, error) {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		return nil, fmt.Errorf("bcrypt cost %d out of range [%d, %d]", cost, bcrypt.MinCost, bcrypt.MaxCost)
	}
	return &BcryptHasher{cost: cost}, nil
}

// Hash returns the bcrypt hash of plain.
func (h *BcryptHasher) Hash(plain string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(plain), h.cost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hashed), nil
}

// Verify checks plain against stored.
func (h *BcryptHasher) Verify(stored, plain string) (bool, bool, error) {
	if !isBcryptHash(stored) {
		return constantTimeEqual(stored, plain), true, nil
	}

	err := bcrypt.CompareHashAndPassword([]byte(stored), []byte(plain))
	if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		return false, false, nil
	}
	if err != nil {
		return false, false, fmt.Errorf("compare password hash: %w", err)
	}

	cost, err := bcrypt.Cost([]byte(stored))
	if err != nil {
		return true, false, nil
	}
	return true, cost != h.cost, nil
}

// PlaintextHasher keeps passwords as-is. It exists for deployments that share
// the document with clients expecting plaintext in the password field.
type PlaintextHasher struct{}

// Hash returns plain unchanged.
func (PlaintextHasher) Hash(plain string) (string, error) {
	return plain, nil
}

// Verify compares in constant time.
func (PlaintextHasher) Verify(stored, plain string) (bool, bool, error) {
	return constantTimeEqual(stored, plain), false, nil
}

func isBcryptHash(s string) bool {
	return strings.HasPrefix(s, "$2a$") || strings.HasPrefix(s, "$2b$") || strings.HasPrefix(s, "$2y$")
}

func constantTimeEqual(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
