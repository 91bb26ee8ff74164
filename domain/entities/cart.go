package entities

import (
	"errors"
	"math"
	"time"
)

// VATRate is the Saudi value-added tax applied on top of the cart subtotal.
const VATRate = 0.15

// CartStatus represents the lifecycle status of a cart
type CartStatus string

const (
	CartStatusActive     CartStatus = "active"
	CartStatusCheckedOut CartStatus = "checked_out"
)

// CartItem is one line in a cart. UnitPrice is snapshotted at add time so a
// later menu price change does not silently reprice the cart.
type CartItem struct {
	MenuItemID string  `json:"menu_item_id" bson:"menu_item_id"`
	NameAr     string  `json:"name_ar" bson:"name_ar"`
	NameEn     string  `json:"name_en" bson:"name_en"`
	Quantity   int     `json:"quantity" bson:"quantity"`
	UnitPrice  float64 `json:"unit_price" bson:"unit_price"`
}

// Subtotal returns quantity × unit price for this line.
func (i CartItem) Subtotal() float64 {
	return round2(float64(i.Quantity) * i.UnitPrice)
}

// Cart is a user's active order-in-progress. One active cart per user; it is
// bound to a single restaurant.
type Cart struct {
	ID           string     `json:"id" bson:"_id,omitempty"`
	UserID       string     `json:"user_id" bson:"user_id"`
	RestaurantID string     `json:"restaurant_id" bson:"restaurant_id"`
	Status       CartStatus `json:"status" bson:"status"`
	Items        []CartItem `json:"items" bson:"items"`
	CreatedAt    time.Time  `json:"created_at" bson:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at" bson:"updated_at"`
}

// NewCart creates an empty active cart for a user at a restaurant.
func NewCart(userID, restaurantID string) *Cart {
	now := time.Now()
	return &Cart{
		UserID:       userID,
		RestaurantID: restaurantID,
		Status:       CartStatusActive,
		Items:        []CartItem{},
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// AddItem appends a line to the cart, merging with an existing line for the
// same menu item. Quantity defaults to 1 when zero or negative.
func (c *Cart) AddItem(item MenuItem, quantity int) error {
	if c.Status != CartStatusActive {
		return errors.New("cart is not active")
	}
	if quantity <= 0 {
		quantity = 1
	}
	for idx := range c.Items {
		if c.Items[idx].MenuItemID == item.ID {
			c.Items[idx].Quantity += quantity
			c.UpdatedAt = time.Now()
			return nil
		}
	}
	c.Items = append(c.Items, CartItem{
		MenuItemID: item.ID,
		NameAr:     item.NameAr,
		NameEn:     item.NameEn,
		Quantity:   quantity,
		UnitPrice:  item.Price,
	})
	c.UpdatedAt = time.Now()
	return nil
}

// Subtotal is the sum of line subtotals, before VAT.
func (c *Cart) Subtotal() float64 {
	var sum float64
	for _, item := range c.Items {
		sum += float64(item.Quantity) * item.UnitPrice
	}
	return round2(sum)
}

// VAT is the tax amount on the subtotal.
func (c *Cart) VAT() float64 {
	return round2(c.Subtotal() * VATRate)
}

// Total is subtotal plus VAT.
func (c *Cart) Total() float64 {
	return round2(c.Subtotal() * (1 + VATRate))
}

// Checkout marks the cart as checked out. Idempotent.
func (c *Cart) Checkout() {
	c.Status = CartStatusCheckedOut
	c.UpdatedAt = time.Now()
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
