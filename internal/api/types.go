package api

import (
	"time"

	"github.com/sufrahq/sufra-voice/domain/entities"
	"github.com/sufrahq/sufra-voice/domain/repositories"
)

// GuestTokenResponse represents the response payload for guest authentication
type GuestTokenResponse struct {
	Token     string    `json:"token"`
	UserID    string    `json:"user_id"`
	ExpiresAt time.Time `json:"expires_at"`
}

// RealtimeTokenResponse carries an ephemeral realtime credential
type RealtimeTokenResponse struct {
	Secret    string    `json:"secret"`
	ExpiresAt time.Time `json:"expires_at"`
}

// MenuSearchRequest represents the menu search payload
type MenuSearchRequest struct {
	Query        string `json:"query"`
	RestaurantID string `json:"restaurant_id,omitempty"`
}

// MenuSearchResponse wraps semantic search matches
type MenuSearchResponse struct {
	Matches []repositories.MenuMatch `json:"matches"`
}

// AddCartItemRequest represents the add-to-cart payload
type AddCartItemRequest struct {
	RestaurantID string `json:"restaurant_id"`
	ItemID       string `json:"item_id"`
	Quantity     int    `json:"quantity"`
}

// CartResponse is a cart with its computed totals
type CartResponse struct {
	Cart     *entities.Cart `json:"cart"`
	Subtotal float64        `json:"subtotal"`
	VAT      float64        `json:"vat"`
	Total    float64        `json:"total"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}
