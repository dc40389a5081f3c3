package hasher

import (
	"fmt"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/Gladiston-Porto/Trading-APP-sub001/core"
	"github.com/Gladiston-Porto/Trading-APP-sub001/ports"
)

// DefaultCost keeps interactive logins around ten hashes per second per core
const DefaultCost = 10

// BcryptHasher implements ports.PasswordHasher
type BcryptHasher struct {
	cost  int
	dummy string
}

var _ ports.PasswordHasher = (*BcryptHasher)(nil)

// NewBcryptHasher returns a hasher using cost, or DefaultCost when cost is 0
func NewBcryptHasher(cost int) (*BcryptHasher, error) {
	if cost == 0 {
		cost = DefaultCost
	}
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		return nil, fmt.Errorf("bcrypt cost %d out of range [%d, %d]", cost, bcrypt.MinCost, bcrypt.MaxCost)
	}

	h := &BcryptHasher{cost: cost}

	dummy, err := h.Hash(uuid.NewString())
	if err != nil {
		return nil, fmt.Errorf("failed to prepare dummy digest: %w", err)
	}
	h.dummy = dummy

	return h, nil
}

// Hash will generate a password hash
func (h *BcryptHasher) Hash(password string) (string, error) {
	if password == "" {
		return "", core.ErrEmptyPassword
	}

	digest, err := bcrypt.GenerateFromPassword([]byte(password), h.cost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(digest), nil
}

// Verify reports whether password matches digest. A malformed digest is a mismatch.
func (h *BcryptHasher) Verify(password, digest string) bool {
	return bcrypt.CompareHashAndPassword([]byte(digest), []byte(password)) == nil
}

// DummyDigest is a digest of a random secret with the same cost as real ones
func (h *BcryptHasher) DummyDigest() string {
	return h.dummy
}

// Cost returns the configured work factor
func (h *BcryptHasher) Cost() int {
	return h.cost
}
