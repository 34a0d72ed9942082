package entity

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// User is the identity record. PasswordHash and RefreshTokenHash always hold
// bcrypt output, never plaintext. RefreshTokenHash is empty until the first
// successful login and is cleared again on password change.
type User struct {
	ID               primitive.ObjectID
	Name             string
	Email            string
	PasswordHash     string
	IsVerified       bool
	Role             string
	RefreshTokenHash string
	CreatedAt        time.Time
	UpdatedAt        time.Time
}
