package usecase

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/andresgmz/account-service/internal/entity"
	"github.com/andresgmz/account-service/internal/hasher"
	"github.com/andresgmz/account-service/internal/mailer"
	"github.com/andresgmz/account-service/internal/metrics"
	"github.com/andresgmz/account-service/internal/repository"
	"github.com/andresgmz/account-service/internal/token"
	"github.com/andresgmz/account-service/internal/verification"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// UserRepository is the durable storage collaborator. Find methods signal
// absence with a nil entity, not an error.
type UserRepository interface {
	Insert(ctx context.Context, user *entity.User) (primitive.ObjectID, error)
	FindByEmail(ctx context.Context, email string) (*entity.User, error)
	FindByID(ctx context.Context, userID primitive.ObjectID) (*entity.User, error)
	UpdateFields(ctx context.Context, userID primitive.ObjectID, fields bson.M) error
	Delete(ctx context.Context, userID primitive.ObjectID) error
	List(ctx context.Context) ([]*entity.User, error)
}

// CodeStore issues and consumes one-time verification codes.
type CodeStore interface {
	Issue(ctx context.Context, userID primitive.ObjectID) (string, error)
	Consume(ctx context.Context, userID primitive.ObjectID, submittedCode string) error
}

// TokenIssuer mints and verifies signed access/refresh token pairs.
type TokenIssuer interface {
	Generate(userID, email string) (token.Pair, error)
	Verify(tokenString string) (*token.Claims, error)
}

// EventPublisher broadcasts lifecycle events. May be nil when messaging is
// not configured.
type EventPublisher interface {
	PublishUserRegistered(ctx context.Context, userID, email string) error
	PublishUserVerified(ctx context.Context, userID, email string) error
	PublishUserDeleted(ctx context.Context, userID, email string) error
}

// LoginResult is a successful login: the freshly minted pair plus the
// authenticated user.
type LoginResult struct {
	Tokens token.Pair
	User   *entity.User
}

// AccountUsecase orchestrates registration, verification, login, refresh and
// password change. It is stateless between calls; everything durable lives
// behind the repository.
type AccountUsecase struct {
	repo      UserRepository
	codes     CodeStore
	hasher    hasher.Hasher
	tokens    TokenIssuer
	mailer    mailer.Mailer
	publisher EventPublisher
	metrics   *metrics.Manager
	logger    *zap.Logger
}

func NewAccountUsecase(
	repo UserRepository,
	codes CodeStore,
	h hasher.Hasher,
	tokens TokenIssuer,
	m mailer.Mailer,
	publisher EventPublisher,
	mm *metrics.Manager,
	logger *zap.Logger,
) *AccountUsecase {
	return &AccountUsecase{
		repo:      repo,
		codes:     codes,
		hasher:    h,
		tokens:    tokens,
		mailer:    m,
		publisher: publisher,
		metrics:   mm,
		logger:    logger.Named("AccountUsecase"),
	}
}

// Register creates an unverified user and triggers verification-code
// delivery. A delivery failure is returned to the caller but does not roll
// back the created user.
func (u *AccountUsecase) Register(ctx context.Context, name, email, password string) (*entity.User, error) {
	existing, err := u.repo.FindByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("failed to check existing user: %w", err)
	}
	if existing != nil {
		return nil, ErrEmailTaken
	}

	passwordHash, err := u.hasher.Hash(password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &entity.User{
		Name:         name,
		Email:        email,
		PasswordHash: passwordHash,
		IsVerified:   false,
	}
	userID, err := u.repo.Insert(ctx, user)
	if err != nil {
		if errors.Is(err, repository.ErrDuplicateEmail) {
			return nil, ErrEmailTaken
		}
		return nil, err
	}
	user.ID = userID

	u.logger.Info("User registered", zap.String("userID", userID.Hex()), zap.String("email", email))
	if u.metrics != nil {
		u.metrics.RegistrationsTotal.Inc()
	}
	u.publish(ctx, func(p EventPublisher) error { return p.PublishUserRegistered(ctx, userID.Hex(), email) })

	if err := u.sendVerificationCode(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// Verify consumes a submitted code and marks the account verified. Verifying
// an already-verified account is a no-op success.
func (u *AccountUsecase) Verify(ctx context.Context, email, submittedCode string) (string, error) {
	user, err := u.repo.FindByEmail(ctx, email)
	if err != nil {
		return "", fmt.Errorf("failed to look up user: %w", err)
	}
	if user == nil {
		return "", ErrUserNotFound
	}
	if user.IsVerified {
		return "account is already verified", nil
	}

	if err := u.codes.Consume(ctx, user.ID, submittedCode); err != nil {
		switch {
		case errors.Is(err, verification.ErrCodeNotFound):
			return "", ErrInvalidCode
		case errors.Is(err, verification.ErrCodeExpired):
			return "", ErrCodeExpired
		default:
			return "", err
		}
	}

	if err := u.repo.UpdateFields(ctx, user.ID, bson.M{"is_verified": true}); err != nil {
		return "", fmt.Errorf("failed to mark user verified: %w", err)
	}

	u.logger.Info("User verified", zap.String("userID", user.ID.Hex()))
	if u.metrics != nil {
		u.metrics.VerificationsTotal.Inc()
	}
	u.publish(ctx, func(p EventPublisher) error { return p.PublishUserVerified(ctx, user.ID.Hex(), user.Email) })

	return "account verified successfully", nil
}

// ValidateCredentials checks existence, then password, then verification
// status, in that order. Unknown email and wrong password surface the same
// error so responses do not reveal which check failed.
func (u *AccountUsecase) ValidateCredentials(ctx context.Context, email, password string) (*entity.User, error) {
	user, err := u.repo.FindByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}
	if user == nil {
		if u.metrics != nil {
			u.metrics.AuthenticationFailsTotal.Inc()
		}
		return nil, ErrInvalidCredentials
	}
	if !u.hasher.Verify(password, user.PasswordHash) {
		if u.metrics != nil {
			u.metrics.AuthenticationFailsTotal.Inc()
		}
		return nil, ErrInvalidCredentials
	}
	if !user.IsVerified {
		return nil, ErrUserNotVerified
	}
	return user, nil
}

// Login validates credentials and issues a token pair, rotating the stored
// refresh-token hash.
func (u *AccountUsecase) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	user, err := u.ValidateCredentials(ctx, email, password)
	if err != nil {
		return nil, err
	}

	pair, err := u.issueTokens(ctx, user)
	if err != nil {
		return nil, err
	}

	u.logger.Info("User logged in", zap.String("userID", user.ID.Hex()))
	if u.metrics != nil {
		u.metrics.LoginsTotal.Inc()
	}
	return &LoginResult{Tokens: pair, User: user}, nil
}

// RefreshSession exchanges a valid refresh token for a fresh pair, rotating
// the stored hash so the presented token cannot be replayed. Signature,
// expiry, and payload failures are all normalized to ErrInvalidRefreshToken;
// the precise cause is only logged.
func (u *AccountUsecase) RefreshSession(ctx context.Context, refreshToken string) (token.Pair, error) {
	claims, err := u.tokens.Verify(refreshToken)
	if err != nil {
		u.logger.Warn("Refresh token verification failed", zap.Error(err))
		return token.Pair{}, ErrInvalidRefreshToken
	}

	userID, err := primitive.ObjectIDFromHex(claims.Subject)
	if err != nil {
		u.logger.Warn("Refresh token carries malformed subject", zap.String("subject", claims.Subject))
		return token.Pair{}, ErrInvalidRefreshToken
	}

	user, err := u.repo.FindByID(ctx, userID)
	if err != nil {
		u.logger.Error("Storage failure during session refresh", zap.String("userID", userID.Hex()), zap.Error(err))
		return token.Pair{}, ErrInvalidRefreshToken
	}
	if user == nil || user.RefreshTokenHash == "" {
		return token.Pair{}, ErrRefreshForbidden
	}
	if !u.hasher.Verify(refreshDigest(refreshToken), user.RefreshTokenHash) {
		return token.Pair{}, ErrRefreshForbidden
	}

	pair, err := u.issueTokens(ctx, user)
	if err != nil {
		return token.Pair{}, err
	}

	u.logger.Info("Session refreshed", zap.String("userID", user.ID.Hex()))
	if u.metrics != nil {
		u.metrics.TokenRefreshesTotal.Inc()
	}
	return pair, nil
}

// ChangePassword replaces the password hash and clears the refresh-token
// hash, forcing re-login on every session.
func (u *AccountUsecase) ChangePassword(ctx context.Context, id, currentPassword, newPassword string) error {
	userID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return ErrUserNotFound
	}

	user, err := u.repo.FindByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to look up user: %w", err)
	}
	if user == nil {
		return ErrUserNotFound
	}
	if !u.hasher.Verify(currentPassword, user.PasswordHash) {
		return ErrInvalidCredentials
	}

	newHash, err := u.hasher.Hash(newPassword)
	if err != nil {
		return fmt.Errorf("failed to hash new password: %w", err)
	}
	if err := u.repo.UpdateFields(ctx, userID, bson.M{"password": newHash, "refresh_token": ""}); err != nil {
		return fmt.Errorf("failed to store new password: %w", err)
	}

	u.logger.Info("Password changed", zap.String("userID", userID.Hex()))
	if u.metrics != nil {
		u.metrics.PasswordChangesTotal.Inc()
	}
	return nil
}

// RegenerateCode re-issues and re-sends a verification code on demand.
func (u *AccountUsecase) RegenerateCode(ctx context.Context, email string) (string, error) {
	user, err := u.repo.FindByEmail(ctx, email)
	if err != nil {
		return "", fmt.Errorf("failed to look up user: %w", err)
	}
	if user == nil {
		return "", ErrUserNotFound
	}
	if err := u.sendVerificationCode(ctx, user); err != nil {
		return "", err
	}
	return "verification code sent", nil
}

// GetByID fetches a user by its opaque id.
func (u *AccountUsecase) GetByID(ctx context.Context, id string) (*entity.User, error) {
	userID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, ErrUserNotFound
	}
	user, err := u.repo.FindByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	return user, nil
}

// GetByEmail fetches a user by email.
func (u *AccountUsecase) GetByEmail(ctx context.Context, email string) (*entity.User, error) {
	user, err := u.repo.FindByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	return user, nil
}

// List returns all users.
func (u *AccountUsecase) List(ctx context.Context) ([]*entity.User, error) {
	return u.repo.List(ctx)
}

// Update applies a partial profile update. Blank fields are left untouched; a
// non-blank password is re-hashed before storage.
func (u *AccountUsecase) Update(ctx context.Context, id, name, email, password string) (*entity.User, error) {
	userID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, ErrUserNotFound
	}

	fields := bson.M{}
	if name != "" {
		fields["name"] = name
	}
	if email != "" {
		fields["email"] = email
	}
	if strings.TrimSpace(password) != "" {
		passwordHash, err := u.hasher.Hash(password)
		if err != nil {
			return nil, fmt.Errorf("failed to hash password: %w", err)
		}
		fields["password"] = passwordHash
	}

	if len(fields) > 0 {
		if err := u.repo.UpdateFields(ctx, userID, fields); err != nil {
			switch {
			case errors.Is(err, repository.ErrUserNotFound):
				return nil, ErrUserNotFound
			case errors.Is(err, repository.ErrDuplicateEmail):
				return nil, ErrEmailTaken
			default:
				return nil, err
			}
		}
	}

	return u.GetByID(ctx, id)
}

// Delete removes a user record.
func (u *AccountUsecase) Delete(ctx context.Context, id string) error {
	userID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return ErrUserNotFound
	}

	user, err := u.repo.FindByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to look up user: %w", err)
	}
	if user == nil {
		return ErrUserNotFound
	}

	if err := u.repo.Delete(ctx, userID); err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return ErrUserNotFound
		}
		return err
	}

	u.logger.Info("User deleted", zap.String("userID", userID.Hex()))
	u.publish(ctx, func(p EventPublisher) error { return p.PublishUserDeleted(ctx, userID.Hex(), user.Email) })
	return nil
}

// issueTokens mints a pair and persists the bcrypt hash of the refresh
// token's digest, overwriting any previous value. Each issuance invalidates the prior
// refresh token; rotation is last-write-wins under concurrent calls, which
// only ever narrows the set of valid sessions.
func (u *AccountUsecase) issueTokens(ctx context.Context, user *entity.User) (token.Pair, error) {
	pair, err := u.tokens.Generate(user.ID.Hex(), user.Email)
	if err != nil {
		return token.Pair{}, fmt.Errorf("failed to generate tokens: %w", err)
	}

	refreshHash, err := u.hasher.Hash(refreshDigest(pair.RefreshToken))
	if err != nil {
		return token.Pair{}, fmt.Errorf("failed to hash refresh token: %w", err)
	}
	if err := u.repo.UpdateFields(ctx, user.ID, bson.M{"refresh_token": refreshHash}); err != nil {
		return token.Pair{}, fmt.Errorf("failed to persist refresh token hash: %w", err)
	}
	return pair, nil
}

// refreshDigest condenses a signed refresh token to a fixed-size hex string
// before bcrypt, whose input is capped at 72 bytes. Tokens are far longer
// than that.
func refreshDigest(refreshToken string) string {
	sum := sha256.Sum256([]byte(refreshToken))
	return hex.EncodeToString(sum[:])
}

// sendVerificationCode issues a fresh code and mails it to the user.
func (u *AccountUsecase) sendVerificationCode(ctx context.Context, user *entity.User) error {
	code, err := u.codes.Issue(ctx, user.ID)
	if err != nil {
		return err
	}

	subject := "Account Verification"
	textBody := fmt.Sprintf("Your verification code is: %s", code)
	htmlBody := fmt.Sprintf("<h1>Account Verification</h1><p>Your verification code is: <b>%s</b></p>", code)

	if err := u.mailer.Send(ctx, user.Email, subject, textBody, htmlBody); err != nil {
		u.logger.Error("Failed to send verification email", zap.String("userID", user.ID.Hex()), zap.Error(err))
		return fmt.Errorf("%w: %v", ErrMailDelivery, err)
	}
	return nil
}

func (u *AccountUsecase) publish(ctx context.Context, fn func(EventPublisher) error) {
	if u.publisher == nil {
		return
	}
	if err := fn(u.publisher); err != nil {
		u.logger.Warn("Failed to publish lifecycle event", zap.Error(err))
	}
}
