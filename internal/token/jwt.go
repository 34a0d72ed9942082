package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	ErrTokenInvalid = errors.New("invalid token")
	ErrTokenExpired = errors.New("token expired")
)

const (
	// AccessTTL is the access token validity window.
	AccessTTL = 15 * time.Minute
	// RefreshTTL is the refresh token validity window.
	RefreshTTL = 7 * 24 * time.Hour
)

// Claims is the signed claim set shared by access and refresh tokens. The
// subject registered claim carries the user ID.
type Claims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// Pair is one access/refresh issuance. The refresh token is never stored
// verbatim; the account usecase persists a hash derived from it.
type Pair struct {
	AccessToken  string
	RefreshToken string
}

// Issuer mints and verifies HS256 token pairs under a single shared secret.
// The secret comes from process configuration; rotation and multi-key
// verification are out of scope.
type Issuer struct {
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time
}

func NewIssuer(secret string) *Issuer {
	return &Issuer{
		secret:     []byte(secret),
		accessTTL:  AccessTTL,
		refreshTTL: RefreshTTL,
		now:        time.Now,
	}
}

// Generate signs a fresh access/refresh pair for the user.
func (i *Issuer) Generate(userID, email string) (Pair, error) {
	accessToken, err := i.sign(userID, email, i.accessTTL)
	if err != nil {
		return Pair{}, fmt.Errorf("failed to sign access token: %w", err)
	}
	refreshToken, err := i.sign(userID, email, i.refreshTTL)
	if err != nil {
		return Pair{}, fmt.Errorf("failed to sign refresh token: %w", err)
	}
	return Pair{AccessToken: accessToken, RefreshToken: refreshToken}, nil
}

func (i *Issuer) sign(userID, email string, ttl time.Duration) (string, error) {
	now := i.now()
	claims := Claims{
		Email: email,
		RegisteredClaims: jwt.RegisteredClaims{
			// A unique ID keeps back-to-back issuances distinct even when the
			// timestamps land on the same second.
			ID:        uuid.NewString(),
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
}

// Verify checks signature and expiry, returning the claim set. Expired
// tokens yield ErrTokenExpired; anything else wrong with the token yields
// ErrTokenInvalid.
func (i *Issuer) Verify(tokenString string) (*Claims, error) {
	parsed, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return i.secret, nil
	}, jwt.WithTimeFunc(func() time.Time { return i.now() }))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrTokenInvalid
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, ErrTokenInvalid
	}
	return claims, nil
}
