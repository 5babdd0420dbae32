package mongo

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Corey-Yule/caravan-site/internal/entity"
	"github.com/Corey-Yule/caravan-site/internal/port/repository"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

const profilesCollectionName = "profiles"

type ProfileMongoRepository struct {
	db     *mongo.Database
	logger *zap.Logger
}

func NewProfileMongoRepository(client *mongo.Client, dbName string, logger *zap.Logger) *ProfileMongoRepository {
	r := &ProfileMongoRepository{
		db:     client.Database(dbName),
		logger: logger.Named("ProfileMongoRepository"),
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	indexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
	}
	if _, err := r.db.Collection(profilesCollectionName).Indexes().CreateMany(ctx, indexes); err != nil {
		logger.Warn("Failed to create indexes for profiles collection (may already exist)", zap.Error(err))
	}

	return r
}

// Profile ids come from the auth identity, not from Mongo, so _id is a plain
// string rather than an ObjectID.
type profileDocument struct {
	ID        string    `bson:"_id"`
	Name      string    `bson:"name"`
	Email     string    `bson:"email"`
	Password  string    `bson:"password"`
	Role      string    `bson:"role"`
	CreatedAt time.Time `bson:"created_at"`
	UpdatedAt time.Time `bson:"updated_at"`
}

func toProfileEntity(doc *profileDocument) *entity.Profile {
	return &entity.Profile{
		ID:        doc.ID,
		Name:      doc.Name,
		Email:     doc.Email,
		Password:  doc.Password,
		Role:      entity.Role(doc.Role),
		CreatedAt: doc.CreatedAt,
		UpdatedAt: doc.UpdatedAt,
	}
}

// Create inserts a new profile, hashing the plaintext password.
func (r *ProfileMongoRepository) Create(ctx context.Context, profile *entity.Profile) error {
	hashed, err := bcrypt.GenerateFromPassword([]byte(profile.Password), bcrypt.DefaultCost)
	if err != nil {
		r.logger.Error("Failed to hash password during profile creation", zap.String("email", profile.Email), zap.Error(err))
		return err
	}

	now := time.Now()
	doc := &profileDocument{
		ID:        profile.ID,
		Name:      profile.Name,
		Email:     profile.Email,
		Password:  string(hashed),
		Role:      string(profile.Role),
		CreatedAt: now,
		UpdatedAt: now,
	}

	if _, err := r.db.Collection(profilesCollectionName).InsertOne(ctx, doc); err != nil {
		var writeException mongo.WriteException
		if errors.As(err, &writeException) {
			for _, writeErr := range writeException.WriteErrors {
				if writeErr.Code == 11000 && strings.Contains(writeErr.Message, "email_1") {
					r.logger.Warn("Duplicate email during profile creation", zap.String("email", profile.Email))
					return repository.ErrDuplicateEmail
				}
			}
		}
		return fmt.Errorf("failed to create profile in mongo: %w", err)
	}
	return nil
}

func (r *ProfileMongoRepository) GetByID(ctx context.Context, id string) (*entity.Profile, error) {
	var doc profileDocument
	err := r.db.Collection(profilesCollectionName).FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get profile by id from mongo: %w", err)
	}
	return toProfileEntity(&doc), nil
}

func (r *ProfileMongoRepository) GetByEmail(ctx context.Context, email string) (*entity.Profile, error) {
	var doc profileDocument
	err := r.db.Collection(profilesCollectionName).FindOne(ctx, bson.M{"email": email}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get profile by email from mongo: %w", err)
	}
	return toProfileEntity(&doc), nil
}

// Upsert creates the profile row if it is missing; an existing row is left
// untouched so a lazy resolve never clobbers a name or role set elsewhere.
func (r *ProfileMongoRepository) Upsert(ctx context.Context, profile *entity.Profile) error {
	now := time.Now()
	update := bson.M{
		"$setOnInsert": bson.M{
			"name":       profile.Name,
			"email":      profile.Email,
			"role":       string(profile.Role),
			"created_at": now,
			"updated_at": now,
		},
	}

	opts := options.Update().SetUpsert(true)
	if _, err := r.db.Collection(profilesCollectionName).UpdateOne(ctx, bson.M{"_id": profile.ID}, update, opts); err != nil {
		return fmt.Errorf("failed to upsert profile in mongo: %w", err)
	}
	return nil
}
