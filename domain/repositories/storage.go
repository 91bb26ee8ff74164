package repositories

import (
	"context"

	"github.com/sufrahq/sufra-voice/domain/entities"
)

// RestaurantRepository defines data access methods for restaurants and
// their menus
type RestaurantRepository interface {
	List(ctx context.Context) ([]*entities.Restaurant, error)
	GetByID(ctx context.Context, id string) (*entities.Restaurant, error)
}

// CartRepository defines data access methods for carts
type CartRepository interface {
	// GetActive returns the user's active cart, or nil when none exists.
	GetActive(ctx context.Context, userID string) (*entities.Cart, error)
	Create(ctx context.Context, cart *entities.Cart) error
	Update(ctx context.Context, cart *entities.Cart) error
}

// OrderRepository defines data access methods for orders
type OrderRepository interface {
	// Place persists the order and marks its source cart checked out in the
	// same operation.
	Place(ctx context.Context, order *entities.Order, cart *entities.Cart) error
	GetByID(ctx context.Context, id string) (*entities.Order, error)
}
