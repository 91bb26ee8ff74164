package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/sufrahq/sufra-voice/domain/entities"
	"github.com/sufrahq/sufra-voice/domain/repositories"
)

// MenuService serves the restaurant catalog and menu similarity search.
type MenuService struct {
	restaurants repositories.RestaurantRepository
	searcher    repositories.MenuSearcher
	logger      *zap.Logger
}

// NewMenuService creates a new menu service
func NewMenuService(
	restaurants repositories.RestaurantRepository,
	searcher repositories.MenuSearcher,
	logger *zap.Logger,
) *MenuService {
	return &MenuService{
		restaurants: restaurants,
		searcher:    searcher,
		logger:      logger,
	}
}

// ListRestaurants returns all restaurants with their menus.
func (s *MenuService) ListRestaurants(ctx context.Context) ([]*entities.Restaurant, error) {
	restaurants, err := s.restaurants.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list restaurants: %w", err)
	}
	return restaurants, nil
}

// GetRestaurant returns one restaurant by id, or an error when unknown.
func (s *MenuService) GetRestaurant(ctx context.Context, id string) (*entities.Restaurant, error) {
	restaurant, err := s.restaurants.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load restaurant: %w", err)
	}
	if restaurant == nil {
		return nil, errors.New("restaurant not found")
	}
	return restaurant, nil
}

// SearchMenu finds available menu items semantically similar to the query,
// optionally scoped to one restaurant. An empty query is rejected before it
// costs an embedding call.
func (s *MenuService) SearchMenu(ctx context.Context, query, restaurantID string) ([]repositories.MenuMatch, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, errors.New("search query is empty")
	}

	matches, err := s.searcher.Search(ctx, query, restaurantID)
	if err != nil {
		return nil, fmt.Errorf("menu search failed: %w", err)
	}

	s.logger.Debug("Menu search completed",
		zap.String("query", query),
		zap.String("restaurantID", restaurantID),
		zap.Int("matches", len(matches)))
	return matches, nil
}
