package hasher

import (
	"golang.org/x/crypto/bcrypt"
)

// Hasher is the one-way hash used for passwords and refresh tokens. Refresh
// tokens are treated as secrets equivalent to passwords, so both go through
// the same implementation.
type Hasher interface {
	Hash(secret string) (string, error)
	Verify(candidate, hashed string) bool
}

// BcryptHasher implements Hasher with a configurable work factor.
type BcryptHasher struct {
	cost int
}

// NewBcryptHasher creates a BcryptHasher. A cost outside bcrypt's supported
// range falls back to DefaultCost.
func NewBcryptHasher(cost int) *BcryptHasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	return &BcryptHasher{cost: cost}
}

func (h *BcryptHasher) Hash(secret string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(secret), h.cost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

// Verify never returns an error: a malformed stored hash simply does not
// match.
func (h *BcryptHasher) Verify(candidate, hashed string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hashed), []byte(candidate)) == nil
}
