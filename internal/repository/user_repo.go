package repository

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/andresgmz/account-service/internal/entity"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

var (
	ErrDuplicateEmail = errors.New("email already exists")
	ErrUserNotFound   = errors.New("user not found")
)

type mongoUser struct {
	ID               primitive.ObjectID `bson:"_id,omitempty"`
	Name             string             `bson:"name"`
	Email            string             `bson:"email"`
	Password         string             `bson:"password"`
	IsVerified       bool               `bson:"is_verified"`
	Role             string             `bson:"role,omitempty"`
	RefreshTokenHash string             `bson:"refresh_token,omitempty"`
	CreatedAt        time.Time          `bson:"created_at"`
	UpdatedAt        time.Time          `bson:"updated_at"`
}

func (m *mongoUser) toEntity() *entity.User {
	return &entity.User{
		ID:               m.ID,
		Name:             m.Name,
		Email:            m.Email,
		PasswordHash:     m.Password,
		IsVerified:       m.IsVerified,
		Role:             m.Role,
		RefreshTokenHash: m.RefreshTokenHash,
		CreatedAt:        m.CreatedAt,
		UpdatedAt:        m.UpdatedAt,
	}
}

func fromEntity(e *entity.User) *mongoUser {
	return &mongoUser{
		ID:               e.ID,
		Name:             e.Name,
		Email:            e.Email,
		Password:         e.PasswordHash,
		IsVerified:       e.IsVerified,
		Role:             e.Role,
		RefreshTokenHash: e.RefreshTokenHash,
		CreatedAt:        e.CreatedAt,
		UpdatedAt:        e.UpdatedAt,
	}
}

type UserRepository struct {
	db     *mongo.Database
	logger *zap.Logger
}

func NewUserRepository(db *mongo.Database, logger *zap.Logger) *UserRepository {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Ensure indexes (idempotent operation)
	userCollection := db.Collection("users")
	indexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
	}
	_, err := userCollection.Indexes().CreateMany(ctx, indexes)
	if err != nil {
		logger.Warn("Failed to create indexes for users collection (may already exist)", zap.Error(err))
	} else {
		logger.Info("Successfully ensured indexes for users collection")
	}

	return &UserRepository{
		db:     db,
		logger: logger.Named("UserRepository"),
	}
}

// Insert stores a new user. The caller provides the already-hashed password.
func (r *UserRepository) Insert(ctx context.Context, user *entity.User) (primitive.ObjectID, error) {
	r.logger.Info("Attempting to create user in repository", zap.String("email", user.Email))

	dbUser := fromEntity(user)
	if dbUser.ID.IsZero() {
		dbUser.ID = primitive.NewObjectID()
	}
	now := time.Now()
	dbUser.CreatedAt = now
	dbUser.UpdatedAt = now

	_, err := r.db.Collection("users").InsertOne(ctx, dbUser)
	if err != nil {
		var writeException mongo.WriteException
		if errors.As(err, &writeException) {
			for _, writeError := range writeException.WriteErrors {
				if writeError.Code == 11000 && strings.Contains(writeError.Message, "email_1") {
					r.logger.Warn("Duplicate email during user creation", zap.String("email", user.Email), zap.Error(writeError))
					return primitive.NilObjectID, ErrDuplicateEmail
				}
			}
		}
		r.logger.Error("Database error during user creation", zap.String("email", user.Email), zap.Error(err))
		return primitive.NilObjectID, err
	}
	r.logger.Info("User created successfully in repository", zap.String("userID", dbUser.ID.Hex()))
	return dbUser.ID, nil
}

// FindByEmail returns (nil, nil) when no user has the given email. Absence is
// a normal result here; the usecase decides which domain error applies.
func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*entity.User, error) {
	r.logger.Debug("Attempting to get user by email from repository", zap.String("email", email))
	var dbUser mongoUser
	err := r.db.Collection("users").FindOne(ctx, bson.M{"email": email}).Decode(&dbUser)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		r.logger.Error("Database error fetching user by email", zap.String("email", email), zap.Error(err))
		return nil, err
	}
	return dbUser.toEntity(), nil
}

// FindByID returns (nil, nil) when the user does not exist.
func (r *UserRepository) FindByID(ctx context.Context, userID primitive.ObjectID) (*entity.User, error) {
	r.logger.Debug("Attempting to get user by ID from repository", zap.String("userID", userID.Hex()))
	var dbUser mongoUser
	err := r.db.Collection("users").FindOne(ctx, bson.M{"_id": userID}).Decode(&dbUser)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		r.logger.Error("Database error fetching user by ID", zap.String("userID", userID.Hex()), zap.Error(err))
		return nil, err
	}
	return dbUser.toEntity(), nil
}

// UpdateFields applies a partial $set on the user document and always bumps
// updated_at. Field names are bson keys of the users collection.
func (r *UserRepository) UpdateFields(ctx context.Context, userID primitive.ObjectID, fields bson.M) error {
	r.logger.Info("Updating user fields", zap.String("userID", userID.Hex()))

	set := bson.M{"updated_at": time.Now()}
	for k, v := range fields {
		set[k] = v
	}

	result, err := r.db.Collection("users").UpdateOne(ctx, bson.M{"_id": userID}, bson.M{"$set": set})
	if err != nil {
		var writeException mongo.WriteException
		if errors.As(err, &writeException) {
			for _, writeError := range writeException.WriteErrors {
				if writeError.Code == 11000 && strings.Contains(writeError.Message, "email_1") {
					r.logger.Warn("Duplicate email during user update", zap.String("userID", userID.Hex()), zap.Error(writeError))
					return ErrDuplicateEmail
				}
			}
		}
		r.logger.Error("Database error during user update", zap.String("userID", userID.Hex()), zap.Error(err))
		return err
	}
	if result.MatchedCount == 0 {
		r.logger.Warn("User not found during update attempt", zap.String("userID", userID.Hex()))
		return ErrUserNotFound
	}
	return nil
}

func (r *UserRepository) Delete(ctx context.Context, userID primitive.ObjectID) error {
	r.logger.Info("Deleting user", zap.String("userID", userID.Hex()))
	result, err := r.db.Collection("users").DeleteOne(ctx, bson.M{"_id": userID})
	if err != nil {
		r.logger.Error("DB error deleting user", zap.String("userID", userID.Hex()), zap.Error(err))
		return err
	}
	if result.DeletedCount == 0 {
		r.logger.Warn("User not found for delete", zap.String("userID", userID.Hex()))
		return ErrUserNotFound
	}
	return nil
}

func (r *UserRepository) List(ctx context.Context) ([]*entity.User, error) {
	r.logger.Debug("Listing users")
	findOptions := options.Find()
	findOptions.SetSort(bson.M{"created_at": -1})

	cursor, err := r.db.Collection("users").Find(ctx, bson.M{}, findOptions)
	if err != nil {
		r.logger.Error("DB error listing users", zap.Error(err))
		return nil, err
	}
	defer cursor.Close(ctx)

	var dbUsers []*mongoUser
	if err = cursor.All(ctx, &dbUsers); err != nil {
		r.logger.Error("Error decoding listed users", zap.Error(err))
		return nil, err
	}

	var users []*entity.User
	for _, dbUser := range dbUsers {
		users = append(users, dbUser.toEntity())
	}
	return users, nil
}
