package usecase

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/sufrahq/sufra-voice/domain/entities"
	"github.com/sufrahq/sufra-voice/domain/repositories"
)

// ErrNoActiveCart is returned by cart-dependent operations when the user has
// no active cart.
var ErrNoActiveCart = errors.New("no active cart")

// ErrDifferentRestaurant is returned when an add targets a restaurant other
// than the one the active cart is bound to.
var ErrDifferentRestaurant = errors.New("active cart belongs to another restaurant")

// OrderingService handles cart mutation and order placement. It backs both
// the HTTP API and the voice assistant's confirm_order tool.
type OrderingService struct {
	restaurants repositories.RestaurantRepository
	carts       repositories.CartRepository
	orders      repositories.OrderRepository
	logger      *zap.Logger
}

// NewOrderingService creates a new ordering service
func NewOrderingService(
	restaurants repositories.RestaurantRepository,
	carts repositories.CartRepository,
	orders repositories.OrderRepository,
	logger *zap.Logger,
) *OrderingService {
	return &OrderingService{
		restaurants: restaurants,
		carts:       carts,
		orders:      orders,
		logger:      logger,
	}
}

// AddToCart puts quantity of a menu item into the user's active cart,
// creating the cart on first add. A cart is bound to one restaurant; adding
// from a second restaurant is rejected rather than silently mixing menus.
func (s *OrderingService) AddToCart(ctx context.Context, userID, restaurantID, itemID string, quantity int) (*entities.Cart, error) {
	restaurant, err := s.restaurants.GetByID(ctx, restaurantID)
	if err != nil {
		return nil, fmt.Errorf("failed to load restaurant: %w", err)
	}
	if restaurant == nil {
		return nil, errors.New("restaurant not found")
	}

	item, ok := restaurant.FindItem(itemID)
	if !ok {
		return nil, errors.New("menu item not found")
	}
	if !item.Available {
		return nil, errors.New("menu item is not available")
	}

	cart, err := s.carts.GetActive(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load cart: %w", err)
	}

	if cart == nil {
		cart = entities.NewCart(userID, restaurantID)
		if err := cart.AddItem(item, quantity); err != nil {
			return nil, err
		}
		if err := s.carts.Create(ctx, cart); err != nil {
			return nil, fmt.Errorf("failed to create cart: %w", err)
		}
		s.logger.Info("Cart created",
			zap.String("userID", userID),
			zap.String("restaurantID", restaurantID))
		return cart, nil
	}

	if cart.RestaurantID != restaurantID {
		return nil, ErrDifferentRestaurant
	}
	if err := cart.AddItem(item, quantity); err != nil {
		return nil, err
	}
	if err := s.carts.Update(ctx, cart); err != nil {
		return nil, fmt.Errorf("failed to update cart: %w", err)
	}
	return cart, nil
}

// GetCart returns the user's active cart, or ErrNoActiveCart.
func (s *OrderingService) GetCart(ctx context.Context, userID string) (*entities.Cart, error) {
	cart, err := s.carts.GetActive(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load cart: %w", err)
	}
	if cart == nil {
		return nil, ErrNoActiveCart
	}
	return cart, nil
}

// PlaceOrder snapshots the user's active cart into an order and checks the
// cart out. Placement and checkout happen in one storage operation so a
// concurrent add cannot land in a cart that already produced an order.
func (s *OrderingService) PlaceOrder(ctx context.Context, userID string) (*entities.Order, error) {
	cart, err := s.carts.GetActive(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load cart: %w", err)
	}
	if cart == nil {
		return nil, ErrNoActiveCart
	}

	order, err := entities.NewOrderFromCart(uuid.New().String(), cart)
	if err != nil {
		return nil, err
	}
	if err := s.orders.Place(ctx, order, cart); err != nil {
		return nil, fmt.Errorf("failed to place order: %w", err)
	}

	s.logger.Info("Order placed",
		zap.String("orderID", order.ID),
		zap.String("userID", userID),
		zap.Float64("total", order.Total))
	return order, nil
}

// ConfirmVoiceOrder is the confirm_order tool's backend. When the user has
// an active cart it is placed as a real order; otherwise the conversation
// itself is the cart (the assistant tracked the lines verbally) and only an
// order reference is minted.
func (s *OrderingService) ConfirmVoiceOrder(ctx context.Context, userID, summary string, total float64) (string, error) {
	cart, err := s.carts.GetActive(ctx, userID)
	if err != nil {
		return "", fmt.Errorf("failed to load cart: %w", err)
	}

	if cart != nil && len(cart.Items) > 0 {
		order, err := entities.NewOrderFromCart(uuid.New().String(), cart)
		if err != nil {
			return "", err
		}
		if err := s.orders.Place(ctx, order, cart); err != nil {
			return "", fmt.Errorf("failed to place order: %w", err)
		}
		s.logger.Info("Voice order placed from cart",
			zap.String("orderID", order.ID),
			zap.String("userID", userID),
			zap.Float64("total", order.Total))
		return order.ID, nil
	}

	orderID := uuid.New().String()
	s.logger.Info("Voice order confirmed",
		zap.String("orderID", orderID),
		zap.String("userID", userID),
		zap.String("summary", summary),
		zap.Float64("total", total))
	return orderID, nil
}
