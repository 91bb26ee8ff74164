package mongo

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/sufrahq/sufra-voice/domain/entities"
	"github.com/sufrahq/sufra-voice/domain/repositories"
)

type OrderRepository struct {
	orders *mongo.Collection
	carts  *mongo.Collection
}

// NewOrderRepository creates a new MongoDB order repository
func NewOrderRepository(db *mongo.Database) repositories.OrderRepository {
	return &OrderRepository{
		orders: db.Collection("orders"),
		carts:  db.Collection("carts"),
	}
}

// Place implements repositories.OrderRepository. The order snapshot and the
// cart checkout happen in one transaction so a crash between them cannot
// leave a placed order with a still-active cart.
func (r *OrderRepository) Place(ctx context.Context, order *entities.Order, cart *entities.Cart) error {
	if order == nil {
		return errors.New("order cannot be nil")
	}
	if cart == nil || cart.ID == "" {
		return errors.New("order must reference a stored cart")
	}

	cartOID, err := primitive.ObjectIDFromHex(cart.ID)
	if err != nil {
		return fmt.Errorf("invalid cart ID format: %w", err)
	}

	session, err := r.orders.Database().Client().StartSession()
	if err != nil {
		return fmt.Errorf("failed to start session: %w", err)
	}
	defer session.EndSession(ctx)

	_, err = session.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		if _, err := r.orders.InsertOne(sc, order); err != nil {
			return nil, fmt.Errorf("failed to insert order: %w", err)
		}

		result, err := r.carts.UpdateOne(sc,
			bson.M{"_id": cartOID, "status": entities.CartStatusActive},
			bson.M{"$set": bson.M{"status": entities.CartStatusCheckedOut, "updated_at": order.PlacedAt}},
		)
		if err != nil {
			return nil, fmt.Errorf("failed to check out cart: %w", err)
		}
		if result.MatchedCount == 0 {
			return nil, fmt.Errorf("cart %s is no longer active", cart.ID)
		}
		return nil, nil
	})
	if err != nil {
		return err
	}

	cart.Checkout()
	return nil
}

// GetByID implements repositories.OrderRepository
func (r *OrderRepository) GetByID(ctx context.Context, id string) (*entities.Order, error) {
	if id == "" {
		return nil, errors.New("order ID cannot be empty")
	}

	var order entities.Order
	err := r.orders.FindOne(ctx, bson.M{"_id": id}).Decode(&order)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get order %s: %w", id, err)
	}
	return &order, nil
}
