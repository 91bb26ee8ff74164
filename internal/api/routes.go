package api

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/sufrahq/sufra-voice/domain/entities"
	"github.com/sufrahq/sufra-voice/domain/repositories"
	"github.com/sufrahq/sufra-voice/internal/auth"
	"github.com/sufrahq/sufra-voice/internal/websocket"
	"github.com/sufrahq/sufra-voice/usecase"
)

// InitRoutes initializes all API routes
func InitRoutes(
	e *echo.Echo,
	hub *websocket.Hub,
	menus *usecase.MenuService,
	ordering *usecase.OrderingService,
	issuer repositories.CredentialIssuer,
	logger *zap.Logger,
) {
	// Health check
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]interface{}{
			"status":   "ok",
			"service":  "sufra-voice",
			"sessions": hub.SessionCount(),
		})
	})

	// API v1 routes
	v1 := e.Group("/api/v1")

	// Auth APIs. Guests get a working identity without registering.
	v1.POST("/auth/guest", guestToken(logger))
	v1.POST("/realtime/token", realtimeToken(issuer, logger))

	// Catalog and search APIs
	v1.GET("/restaurants", listRestaurants(menus, logger))
	v1.GET("/restaurants/:id", getRestaurant(menus))
	v1.POST("/menu/search", searchMenu(menus, logger))

	// Cart and order APIs
	v1.POST("/cart/items", addCartItem(ordering, logger))
	v1.GET("/cart", getCart(ordering))
	v1.POST("/orders", placeOrder(ordering, logger))

	// Voice session endpoint. Invalid or missing tokens degrade to a guest
	// identity; the socket is never refused over auth.
	e.GET("/ws", func(c echo.Context) error {
		userID := auth.IdentityFromHeader(c.Request().Header.Get("Authorization"))
		return websocket.HandleSession(hub, c, userID, logger)
	})
}

func guestToken(logger *zap.Logger) echo.HandlerFunc {
	return func(c echo.Context) error {
		token, userID, err := auth.GenerateGuestToken()
		if err != nil {
			logger.Error("Failed to generate guest token", zap.Error(err))
			return c.JSON(http.StatusInternalServerError, ErrorResponse{
				Error:   "token_generation_failed",
				Message: "Failed to generate guest token",
			})
		}
		return c.JSON(http.StatusOK, GuestTokenResponse{
			Token:     token,
			UserID:    userID,
			ExpiresAt: time.Now().Add(24 * time.Hour),
		})
	}
}

func realtimeToken(issuer repositories.CredentialIssuer, logger *zap.Logger) echo.HandlerFunc {
	return func(c echo.Context) error {
		bearer := strings.TrimPrefix(c.Request().Header.Get("Authorization"), "Bearer ")
		cred, err := issuer.Issue(c.Request().Context(), bearer)
		if err != nil {
			logger.Error("Failed to issue realtime credential", zap.Error(err))
			return c.JSON(http.StatusBadGateway, ErrorResponse{
				Error:   "issuer_unavailable",
				Message: "Failed to obtain realtime credential",
			})
		}
		return c.JSON(http.StatusOK, RealtimeTokenResponse{
			Secret:    cred.Secret,
			ExpiresAt: cred.ExpiresAt,
		})
	}
}

func listRestaurants(menus *usecase.MenuService, logger *zap.Logger) echo.HandlerFunc {
	return func(c echo.Context) error {
		restaurants, err := menus.ListRestaurants(c.Request().Context())
		if err != nil {
			logger.Error("Failed to list restaurants", zap.Error(err))
			return c.JSON(http.StatusInternalServerError, ErrorResponse{
				Error:   "internal_error",
				Message: "Failed to load restaurants",
			})
		}
		return c.JSON(http.StatusOK, restaurants)
	}
}

func getRestaurant(menus *usecase.MenuService) echo.HandlerFunc {
	return func(c echo.Context) error {
		restaurant, err := menus.GetRestaurant(c.Request().Context(), c.Param("id"))
		if err != nil {
			return c.JSON(http.StatusNotFound, ErrorResponse{
				Error:   "not_found",
				Message: "Restaurant not found",
			})
		}
		return c.JSON(http.StatusOK, restaurant)
	}
}

func searchMenu(menus *usecase.MenuService, logger *zap.Logger) echo.HandlerFunc {
	return func(c echo.Context) error {
		var req MenuSearchRequest
		if err := c.Bind(&req); err != nil {
			return c.JSON(http.StatusBadRequest, ErrorResponse{
				Error:   "invalid_request",
				Message: "Invalid request format",
			})
		}

		matches, err := menus.SearchMenu(c.Request().Context(), req.Query, req.RestaurantID)
		if err != nil {
			logger.Warn("Menu search failed", zap.String("query", req.Query), zap.Error(err))
			return c.JSON(http.StatusBadRequest, ErrorResponse{
				Error:   "search_failed",
				Message: err.Error(),
			})
		}
		return c.JSON(http.StatusOK, MenuSearchResponse{Matches: matches})
	}
}

func addCartItem(ordering *usecase.OrderingService, logger *zap.Logger) echo.HandlerFunc {
	return func(c echo.Context) error {
		var req AddCartItemRequest
		if err := c.Bind(&req); err != nil {
			return c.JSON(http.StatusBadRequest, ErrorResponse{
				Error:   "invalid_request",
				Message: "Invalid request format",
			})
		}
		if req.RestaurantID == "" || req.ItemID == "" {
			return c.JSON(http.StatusBadRequest, ErrorResponse{
				Error:   "missing_fields",
				Message: "restaurant_id and item_id are required",
			})
		}

		userID := auth.IdentityFromHeader(c.Request().Header.Get("Authorization"))
		cart, err := ordering.AddToCart(c.Request().Context(), userID, req.RestaurantID, req.ItemID, req.Quantity)
		if err != nil {
			if errors.Is(err, usecase.ErrDifferentRestaurant) {
				return c.JSON(http.StatusConflict, ErrorResponse{
					Error:   "different_restaurant",
					Message: "Active cart belongs to another restaurant",
				})
			}
			logger.Warn("Add to cart failed", zap.String("userID", userID), zap.Error(err))
			return c.JSON(http.StatusBadRequest, ErrorResponse{
				Error:   "add_failed",
				Message: err.Error(),
			})
		}
		return c.JSON(http.StatusOK, cartResponse(cart))
	}
}

func getCart(ordering *usecase.OrderingService) echo.HandlerFunc {
	return func(c echo.Context) error {
		userID := auth.IdentityFromHeader(c.Request().Header.Get("Authorization"))
		cart, err := ordering.GetCart(c.Request().Context(), userID)
		if err != nil {
			if errors.Is(err, usecase.ErrNoActiveCart) {
				return c.JSON(http.StatusNotFound, ErrorResponse{
					Error:   "no_active_cart",
					Message: "No active cart",
				})
			}
			return c.JSON(http.StatusInternalServerError, ErrorResponse{
				Error:   "internal_error",
				Message: "Failed to load cart",
			})
		}
		return c.JSON(http.StatusOK, cartResponse(cart))
	}
}

func placeOrder(ordering *usecase.OrderingService, logger *zap.Logger) echo.HandlerFunc {
	return func(c echo.Context) error {
		userID := auth.IdentityFromHeader(c.Request().Header.Get("Authorization"))
		order, err := ordering.PlaceOrder(c.Request().Context(), userID)
		if err != nil {
			if errors.Is(err, usecase.ErrNoActiveCart) {
				return c.JSON(http.StatusNotFound, ErrorResponse{
					Error:   "no_active_cart",
					Message: "No active cart to order from",
				})
			}
			logger.Error("Order placement failed", zap.String("userID", userID), zap.Error(err))
			return c.JSON(http.StatusInternalServerError, ErrorResponse{
				Error:   "order_failed",
				Message: err.Error(),
			})
		}
		return c.JSON(http.StatusCreated, order)
	}
}

func cartResponse(cart *entities.Cart) CartResponse {
	return CartResponse{
		Cart:     cart,
		Subtotal: cart.Subtotal(),
		VAT:      cart.VAT(),
		Total:    cart.Total(),
	}
}
