package repository

import (
	"context"
	"errors"
	"time"

	"github.com/andresgmz/account-service/internal/entity"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

type mongoVerificationCode struct {
	ID        primitive.ObjectID `bson:"_id,omitempty"`
	UserID    primitive.ObjectID `bson:"user_id"`
	Code      string             `bson:"code"`
	ExpiresAt time.Time          `bson:"expires_at"`
	CreatedAt time.Time          `bson:"created_at"`
}

func (m *mongoVerificationCode) toEntity() *entity.VerificationCode {
	return &entity.VerificationCode{
		ID:        m.ID,
		UserID:    m.UserID,
		Code:      m.Code,
		ExpiresAt: m.ExpiresAt,
		CreatedAt: m.CreatedAt,
	}
}

type VerificationCodeRepository struct {
	db     *mongo.Database
	logger *zap.Logger
}

func NewVerificationCodeRepository(db *mongo.Database, logger *zap.Logger) *VerificationCodeRepository {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	collection := db.Collection("verification_codes")
	indexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "code", Value: 1}}},
	}
	_, err := collection.Indexes().CreateMany(ctx, indexes)
	if err != nil {
		logger.Warn("Failed to create indexes for verification_codes collection (may already exist)", zap.Error(err))
	}

	return &VerificationCodeRepository{
		db:     db,
		logger: logger.Named("VerificationCodeRepository"),
	}
}

func (r *VerificationCodeRepository) Insert(ctx context.Context, code *entity.VerificationCode) error {
	dbCode := &mongoVerificationCode{
		ID:        primitive.NewObjectID(),
		UserID:    code.UserID,
		Code:      code.Code,
		ExpiresAt: code.ExpiresAt,
		CreatedAt: time.Now(),
	}
	_, err := r.db.Collection("verification_codes").InsertOne(ctx, dbCode)
	if err != nil {
		r.logger.Error("Database error inserting verification code", zap.String("userID", code.UserID.Hex()), zap.Error(err))
		return err
	}
	r.logger.Debug("Verification code stored", zap.String("userID", code.UserID.Hex()))
	return nil
}

// DeleteAllForUser removes every code row belonging to the user. Deleting
// nothing is not an error.
func (r *VerificationCodeRepository) DeleteAllForUser(ctx context.Context, userID primitive.ObjectID) error {
	_, err := r.db.Collection("verification_codes").DeleteMany(ctx, bson.M{"user_id": userID})
	if err != nil {
		r.logger.Error("Database error deleting verification codes", zap.String("userID", userID.Hex()), zap.Error(err))
		return err
	}
	return nil
}

// FindByUserAndCode returns (nil, nil) when no matching row exists. Expiry is
// not checked here; the store distinguishes expired from absent.
func (r *VerificationCodeRepository) FindByUserAndCode(ctx context.Context, userID primitive.ObjectID, code string) (*entity.VerificationCode, error) {
	var dbCode mongoVerificationCode
	opts := options.FindOne().SetSort(bson.M{"created_at": -1})
	err := r.db.Collection("verification_codes").FindOne(ctx, bson.M{"user_id": userID, "code": code}, opts).Decode(&dbCode)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		r.logger.Error("Database error fetching verification code", zap.String("userID", userID.Hex()), zap.Error(err))
		return nil, err
	}
	return dbCode.toEntity(), nil
}
