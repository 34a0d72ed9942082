package verification

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/andresgmz/account-service/internal/entity"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

var (
	ErrCodeNotFound = errors.New("verification code not found")
	ErrCodeExpired  = errors.New("verification code expired")
)

const (
	// CodeTTL is the validity window of an issued code.
	CodeTTL = 10 * time.Minute

	lockTTL       = 5 * time.Second
	lockRetryWait = 50 * time.Millisecond
	lockKeyPrefix = "verification:issue:"
)

// CodeRepository is the durable storage behind the store.
type CodeRepository interface {
	Insert(ctx context.Context, code *entity.VerificationCode) error
	DeleteAllForUser(ctx context.Context, userID primitive.ObjectID) error
	FindByUserAndCode(ctx context.Context, userID primitive.ObjectID, code string) (*entity.VerificationCode, error)
}

// Store issues and consumes one-time verification codes. At most one usable
// code exists per user: every issuance deletes all prior rows before
// inserting the fresh one. The delete-then-insert pair is not atomic in the
// database, so Issue serializes per user through a short-lived Redis lock.
type Store struct {
	repo   CodeRepository
	redis  *redis.Client
	logger *zap.Logger
	now    func() time.Time
}

func NewStore(repo CodeRepository, rds *redis.Client, logger *zap.Logger) *Store {
	return &Store{
		repo:   repo,
		redis:  rds,
		logger: logger.Named("VerificationStore"),
		now:    time.Now,
	}
}

// Issue generates a fresh 6-digit code for the user, invalidating all prior
// codes, and returns the plaintext code for delivery.
func (s *Store) Issue(ctx context.Context, userID primitive.ObjectID) (string, error) {
	release := s.acquireLock(ctx, userID)
	defer release()

	code, err := generateCode()
	if err != nil {
		return "", fmt.Errorf("failed to generate verification code: %w", err)
	}

	if err := s.repo.DeleteAllForUser(ctx, userID); err != nil {
		return "", fmt.Errorf("failed to invalidate previous codes: %w", err)
	}

	record := &entity.VerificationCode{
		UserID:    userID,
		Code:      code,
		ExpiresAt: s.now().Add(CodeTTL),
	}
	if err := s.repo.Insert(ctx, record); err != nil {
		return "", fmt.Errorf("failed to store verification code: %w", err)
	}

	s.logger.Info("Verification code issued", zap.String("userID", userID.Hex()))
	return code, nil
}

// Consume validates the submitted code and, on success, deletes every code
// row for the user. An absent row is ErrCodeNotFound; a matching but stale
// row is ErrCodeExpired so callers can message the two cases differently.
func (s *Store) Consume(ctx context.Context, userID primitive.ObjectID, submittedCode string) error {
	record, err := s.repo.FindByUserAndCode(ctx, userID, submittedCode)
	if err != nil {
		return fmt.Errorf("failed to look up verification code: %w", err)
	}
	if record == nil {
		return ErrCodeNotFound
	}
	if record.Expired(s.now()) {
		return ErrCodeExpired
	}

	if err := s.repo.DeleteAllForUser(ctx, userID); err != nil {
		return fmt.Errorf("failed to delete consumed codes: %w", err)
	}
	s.logger.Info("Verification code consumed", zap.String("userID", userID.Hex()))
	return nil
}

// acquireLock takes the per-user issuance lock, waiting briefly if another
// issuance holds it. The lock is advisory: if Redis is unreachable the
// issuance proceeds unserialized rather than failing the request.
func (s *Store) acquireLock(ctx context.Context, userID primitive.ObjectID) func() {
	if s.redis == nil {
		return func() {}
	}

	key := lockKeyPrefix + userID.Hex()
	deadline := s.now().Add(lockTTL)
	for {
		ok, err := s.redis.SetNX(ctx, key, 1, lockTTL).Result()
		if err != nil {
			s.logger.Warn("Issuance lock unavailable, proceeding without it", zap.String("userID", userID.Hex()), zap.Error(err))
			return func() {}
		}
		if ok {
			return func() {
				if err := s.redis.Del(context.WithoutCancel(ctx), key).Err(); err != nil {
					s.logger.Warn("Failed to release issuance lock", zap.String("userID", userID.Hex()), zap.Error(err))
				}
			}
		}
		if s.now().After(deadline) {
			s.logger.Warn("Issuance lock held past deadline, proceeding", zap.String("userID", userID.Hex()))
			return func() {}
		}
		select {
		case <-ctx.Done():
			return func() {}
		case <-time.After(lockRetryWait):
		}
	}
}

// generateCode returns a uniformly random 6-digit numeric string, leading
// zeros allowed.
func generateCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1000000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}
