package entity

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// VerificationCode is a one-time 6-digit code proving control of the
// registered email address. Rows expire via ExpiresAt comparison only;
// nothing sweeps them.
type VerificationCode struct {
	ID        primitive.ObjectID
	UserID    primitive.ObjectID
	Code      string
	ExpiresAt time.Time
	CreatedAt time.Time
}

// Expired reports whether the code is past its validity window.
func (c *VerificationCode) Expired(now time.Time) bool {
	return c.ExpiresAt.Before(now)
}
