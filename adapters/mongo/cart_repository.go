package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/sufrahq/sufra-voice/domain/entities"
	"github.com/sufrahq/sufra-voice/domain/repositories"
)

type CartRepository struct {
	collection *mongo.Collection
}

// NewCartRepository creates a new MongoDB cart repository
func NewCartRepository(db *mongo.Database) repositories.CartRepository {
	return &CartRepository{
		collection: db.Collection("carts"),
	}
}

// GetActive implements repositories.CartRepository
func (r *CartRepository) GetActive(ctx context.Context, userID string) (*entities.Cart, error) {
	if userID == "" {
		return nil, errors.New("user ID cannot be empty")
	}

	filter := bson.M{"user_id": userID, "status": entities.CartStatusActive}
	var cart entities.Cart
	err := r.collection.FindOne(ctx, filter).Decode(&cart)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil // No active cart, not an error
		}
		return nil, fmt.Errorf("failed to get active cart for user %s: %w", userID, err)
	}
	return &cart, nil
}

// Create implements repositories.CartRepository
func (r *CartRepository) Create(ctx context.Context, cart *entities.Cart) error {
	if cart == nil {
		return errors.New("cart cannot be nil")
	}

	now := time.Now()
	if cart.CreatedAt.IsZero() {
		cart.CreatedAt = now
	}
	cart.UpdatedAt = now

	doc := bson.M{
		"user_id":       cart.UserID,
		"restaurant_id": cart.RestaurantID,
		"status":        cart.Status,
		"items":         cart.Items,
		"created_at":    cart.CreatedAt,
		"updated_at":    cart.UpdatedAt,
	}

	result, err := r.collection.InsertOne(ctx, doc)
	if err != nil {
		return fmt.Errorf("failed to create cart: %w", err)
	}

	if oid, ok := result.InsertedID.(primitive.ObjectID); ok {
		cart.ID = oid.Hex()
	}
	return nil
}

// Update implements repositories.CartRepository
func (r *CartRepository) Update(ctx context.Context, cart *entities.Cart) error {
	if cart == nil {
		return errors.New("cart cannot be nil")
	}
	if cart.ID == "" {
		return errors.New("cart ID cannot be empty")
	}

	objectID, err := primitive.ObjectIDFromHex(cart.ID)
	if err != nil {
		return fmt.Errorf("invalid cart ID format: %w", err)
	}

	cart.UpdatedAt = time.Now()
	update := bson.M{
		"$set": bson.M{
			"status":     cart.Status,
			"items":      cart.Items,
			"updated_at": cart.UpdatedAt,
		},
	}

	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": objectID}, update)
	if err != nil {
		return fmt.Errorf("failed to update cart: %w", err)
	}
	if result.MatchedCount == 0 {
		return fmt.Errorf("cart with ID %s not found", cart.ID)
	}
	return nil
}
