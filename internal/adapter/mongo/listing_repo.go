package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Corey-Yule/caravan-site/internal/entity"
	"github.com/Corey-Yule/caravan-site/internal/port/repository"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

const listingsCollectionName = "listings"

type ListingMongoRepository struct {
	db     *mongo.Database
	logger *zap.Logger
}

func NewListingMongoRepository(client *mongo.Client, dbName string, logger *zap.Logger) *ListingMongoRepository {
	r := &ListingMongoRepository{
		db:     client.Database(dbName),
		logger: logger.Named("ListingMongoRepository"),
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	indexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "created_at", Value: -1}}},
		{Keys: bson.D{{Key: "is_featured", Value: 1}}},
	}
	if _, err := r.db.Collection(listingsCollectionName).Indexes().CreateMany(ctx, indexes); err != nil {
		logger.Warn("Failed to create indexes for listings collection (may already exist)", zap.Error(err))
	}

	return r
}

type listingDocument struct {
	ID           primitive.ObjectID `bson:"_id,omitempty"`
	Title        string             `bson:"title"`
	Standard     string             `bson:"standard"`
	Location     string             `bson:"location"`
	ContactName  string             `bson:"contact_name"`
	ContactEmail string             `bson:"contact_email"`
	ContactPhone string             `bson:"contact_phone,omitempty"`
	Images       []string           `bson:"images"`
	CreatedAt    primitive.DateTime `bson:"created_at"`
	OwnerEmail   string             `bson:"owner_email"`
	OwnerID      string             `bson:"owner_id,omitempty"`
	IsFeatured   bool               `bson:"is_featured"`
}

func toListingDocument(l *entity.Listing) (*listingDocument, error) {
	doc := &listingDocument{
		Title:        l.Title,
		Standard:     string(l.Standard),
		Location:     l.Location,
		ContactName:  l.ContactName,
		ContactEmail: l.ContactEmail,
		ContactPhone: l.ContactPhone,
		Images:       l.Images,
		CreatedAt:    primitive.NewDateTimeFromTime(l.CreatedAt),
		OwnerEmail:   l.OwnerEmail,
		OwnerID:      l.OwnerID,
		IsFeatured:   l.IsFeatured,
	}
	if l.ID != "" {
		objID, err := primitive.ObjectIDFromHex(l.ID)
		if err != nil {
			return nil, fmt.Errorf("invalid listing ID format: %w", err)
		}
		doc.ID = objID
	}
	return doc, nil
}

func toListingEntity(doc *listingDocument) *entity.Listing {
	images := doc.Images
	if images == nil {
		images = []string{}
	}
	return &entity.Listing{
		ID:           doc.ID.Hex(),
		Title:        doc.Title,
		Standard:     entity.Standard(doc.Standard),
		Location:     doc.Location,
		ContactName:  doc.ContactName,
		ContactEmail: doc.ContactEmail,
		ContactPhone: doc.ContactPhone,
		Images:       images,
		CreatedAt:    doc.CreatedAt.Time(),
		OwnerEmail:   doc.OwnerEmail,
		OwnerID:      doc.OwnerID,
		IsFeatured:   doc.IsFeatured,
	}
}

func (r *ListingMongoRepository) Create(ctx context.Context, listing *entity.Listing) (string, error) {
	doc, err := toListingDocument(listing)
	if err != nil {
		return "", err
	}

	res, err := r.db.Collection(listingsCollectionName).InsertOne(ctx, doc)
	if err != nil {
		return "", fmt.Errorf("failed to create listing in mongo: %w", err)
	}

	insertedID, ok := res.InsertedID.(primitive.ObjectID)
	if !ok {
		return "", fmt.Errorf("failed to convert inserted_id to ObjectID")
	}
	return insertedID.Hex(), nil
}

func (r *ListingMongoRepository) Delete(ctx context.Context, id string) error {
	objID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return repository.ErrNotFound
	}

	res, err := r.db.Collection(listingsCollectionName).DeleteOne(ctx, bson.M{"_id": objID})
	if err != nil {
		return fmt.Errorf("failed to delete listing from mongo: %w", err)
	}
	if res.DeletedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *ListingMongoRepository) FindByID(ctx context.Context, id string) (*entity.Listing, error) {
	objID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, repository.ErrNotFound
	}

	var doc listingDocument
	err = r.db.Collection(listingsCollectionName).FindOne(ctx, bson.M{"_id": objID}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get listing by id from mongo: %w", err)
	}
	return toListingEntity(&doc), nil
}

func (r *ListingMongoRepository) FindAll(ctx context.Context) ([]*entity.Listing, error) {
	findOptions := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})

	cursor, err := r.db.Collection(listingsCollectionName).Find(ctx, bson.M{}, findOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to list listings from mongo: %w", err)
	}
	defer cursor.Close(ctx)

	var docs []listingDocument
	if err = cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode listings from mongo: %w", err)
	}

	listings := make([]*entity.Listing, len(docs))
	for i := range docs {
		listings[i] = toListingEntity(&docs[i])
	}
	return listings, nil
}

func (r *ListingMongoRepository) FindFeaturedID(ctx context.Context) (string, error) {
	findOptions := options.FindOne().SetProjection(bson.M{"_id": 1})

	var doc struct {
		ID primitive.ObjectID `bson:"_id"`
	}
	err := r.db.Collection(listingsCollectionName).FindOne(ctx, bson.M{"is_featured": true}, findOptions).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return "", repository.ErrNotFound
		}
		return "", fmt.Errorf("failed to get featured listing id from mongo: %w", err)
	}
	return doc.ID.Hex(), nil
}

// SetFeatured flips the featured flag to the target listing in one UpdateMany
// with a computed $set, so no observer ever sees two featured rows from a
// half-applied swap.
func (r *ListingMongoRepository) SetFeatured(ctx context.Context, id string) error {
	objID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return repository.ErrNotFound
	}

	count, err := r.db.Collection(listingsCollectionName).CountDocuments(ctx, bson.M{"_id": objID})
	if err != nil {
		return fmt.Errorf("failed to check listing existence in mongo: %w", err)
	}
	if count == 0 {
		return repository.ErrNotFound
	}

	update := []bson.M{
		{"$set": bson.M{"is_featured": bson.M{"$eq": []interface{}{"$_id", objID}}}},
	}
	_, err = r.db.Collection(listingsCollectionName).UpdateMany(ctx, bson.M{}, update)
	if err != nil {
		return fmt.Errorf("failed to set featured listing in mongo: %w", err)
	}

	r.logger.Debug("Featured listing updated", zap.String("listing_id", id))
	return nil
}
