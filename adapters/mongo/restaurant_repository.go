package mongo

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/sufrahq/sufra-voice/domain/entities"
	"github.com/sufrahq/sufra-voice/domain/repositories"
)

type RestaurantRepository struct {
	collection *mongo.Collection
}

// NewRestaurantRepository creates a new MongoDB restaurant repository
func NewRestaurantRepository(db *mongo.Database) repositories.RestaurantRepository {
	return &RestaurantRepository{
		collection: db.Collection("restaurants"),
	}
}

// List implements repositories.RestaurantRepository
func (r *RestaurantRepository) List(ctx context.Context) ([]*entities.Restaurant, error) {
	cursor, err := r.collection.Find(ctx, bson.M{})
	if err != nil {
		return nil, fmt.Errorf("failed to list restaurants: %w", err)
	}
	defer cursor.Close(ctx)

	var restaurants []*entities.Restaurant
	if err := cursor.All(ctx, &restaurants); err != nil {
		return nil, fmt.Errorf("failed to decode restaurants: %w", err)
	}
	return restaurants, nil
}

// GetByID implements repositories.RestaurantRepository
func (r *RestaurantRepository) GetByID(ctx context.Context, id string) (*entities.Restaurant, error) {
	if id == "" {
		return nil, errors.New("restaurant ID cannot be empty")
	}

	var restaurant entities.Restaurant
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&restaurant)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get restaurant %s: %w", id, err)
	}
	return &restaurant, nil
}
