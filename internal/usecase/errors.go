package usecase

import "errors"

var (
	// ErrEmailTaken signals a duplicate registration attempt.
	ErrEmailTaken = errors.New("email already exists")
	// ErrUserNotFound signals an absent user record.
	ErrUserNotFound = errors.New("user not found")
	// ErrInvalidCredentials covers unknown email and wrong password alike so
	// responses do not leak which one failed.
	ErrInvalidCredentials = errors.New("invalid email or password")
	// ErrUserNotVerified rejects logins before email verification.
	ErrUserNotVerified = errors.New("account is not verified")
	// ErrInvalidCode signals a verification code with no matching row.
	ErrInvalidCode = errors.New("verification code is incorrect")
	// ErrCodeExpired signals a matching but stale verification code.
	ErrCodeExpired = errors.New("verification code has expired")
	// ErrRefreshForbidden rejects refresh tokens that do not match the stored
	// hash, or users with no stored hash at all.
	ErrRefreshForbidden = errors.New("refresh token not recognized")
	// ErrInvalidRefreshToken is the normalized failure for anything wrong
	// with a presented refresh token's signature, expiry, or payload.
	ErrInvalidRefreshToken = errors.New("invalid or expired token")
	// ErrMailDelivery signals that the verification email could not be sent.
	ErrMailDelivery = errors.New("could not send notification")
)
