package entities

import (
	"errors"
	"time"
)

// OrderStatus represents the status of a placed order
type OrderStatus string

const (
	OrderStatusPlaced    OrderStatus = "placed"
	OrderStatusConfirmed OrderStatus = "confirmed"
)

// DeliveryEstimate is the fixed estimate quoted to the user at confirmation.
const DeliveryEstimate = "20-30 دقيقة"

// OrderLine is a snapshot of one cart line at order time. Order lines never
// change after placement even if the menu does.
type OrderLine struct {
	MenuItemID string  `json:"menu_item_id" bson:"menu_item_id"`
	NameAr     string  `json:"name_ar" bson:"name_ar"`
	NameEn     string  `json:"name_en" bson:"name_en"`
	Quantity   int     `json:"quantity" bson:"quantity"`
	UnitPrice  float64 `json:"unit_price" bson:"unit_price"`
	Subtotal   float64 `json:"subtotal" bson:"subtotal"`
}

// Order is a placed order, snapshotted from a cart.
type Order struct {
	ID                string      `json:"id" bson:"_id"`
	UserID            string      `json:"user_id" bson:"user_id"`
	RestaurantID      string      `json:"restaurant_id" bson:"restaurant_id"`
	CartID            string      `json:"cart_id" bson:"cart_id"`
	Lines             []OrderLine `json:"lines" bson:"lines"`
	Subtotal          float64     `json:"subtotal_amount" bson:"subtotal_amount"`
	VAT               float64     `json:"vat_amount" bson:"vat_amount"`
	Total             float64     `json:"total_amount" bson:"total_amount"`
	Status            OrderStatus `json:"status" bson:"status"`
	EstimatedDelivery string      `json:"estimated_delivery" bson:"estimated_delivery"`
	PlacedAt          time.Time   `json:"placed_at" bson:"placed_at"`
}

// NewOrderFromCart snapshots an active, non-empty cart into an order. The
// cart itself is not mutated; checkout is the storage layer's job so the
// snapshot and status change can happen together.
func NewOrderFromCart(id string, cart *Cart) (*Order, error) {
	if cart == nil || cart.Status != CartStatusActive {
		return nil, errors.New("no active cart to place an order from")
	}
	if len(cart.Items) == 0 {
		return nil, errors.New("cart is empty")
	}

	lines := make([]OrderLine, 0, len(cart.Items))
	for _, item := range cart.Items {
		lines = append(lines, OrderLine{
			MenuItemID: item.MenuItemID,
			NameAr:     item.NameAr,
			NameEn:     item.NameEn,
			Quantity:   item.Quantity,
			UnitPrice:  item.UnitPrice,
			Subtotal:   item.Subtotal(),
		})
	}

	return &Order{
		ID:                id,
		UserID:            cart.UserID,
		RestaurantID:      cart.RestaurantID,
		CartID:            cart.ID,
		Lines:             lines,
		Subtotal:          cart.Subtotal(),
		VAT:               cart.VAT(),
		Total:             cart.Total(),
		Status:            OrderStatusConfirmed,
		EstimatedDelivery: DeliveryEstimate,
		PlacedAt:          time.Now(),
	}, nil
}
