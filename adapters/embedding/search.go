package embedding

import (
	"context"
	"fmt"
	"math"
	"sort"

	"go.uber.org/zap"

	"github.com/sufrahq/sufra-voice/domain/entities"
	"github.com/sufrahq/sufra-voice/domain/repositories"
)

const (
	// matchThreshold is the minimum cosine similarity for a hit.
	matchThreshold = 0.5
	// matchCount caps the number of returned items.
	matchCount = 5
)

// MenuSearch implements MenuSearcher by embedding the query and ranking
// stored menu-item vectors by cosine similarity.
type MenuSearch struct {
	embedder    repositories.Embedder
	restaurants repositories.RestaurantRepository
	logger      *zap.Logger
}

var _ repositories.MenuSearcher = (*MenuSearch)(nil)

// NewMenuSearch creates a similarity search over restaurant menus.
func NewMenuSearch(
	embedder repositories.Embedder,
	restaurants repositories.RestaurantRepository,
	logger *zap.Logger,
) *MenuSearch {
	return &MenuSearch{
		embedder:    embedder,
		restaurants: restaurants,
		logger:      logger,
	}
}

// Search implements repositories.MenuSearcher. restaurantID may be empty to
// search across all restaurants.
func (s *MenuSearch) Search(ctx context.Context, query string, restaurantID string) ([]repositories.MenuMatch, error) {
	queryVec, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}

	items, err := s.candidateItems(ctx, restaurantID)
	if err != nil {
		return nil, err
	}

	matches := make([]repositories.MenuMatch, 0, matchCount)
	for _, item := range items {
		if len(item.Embedding) == 0 {
			continue
		}
		sim := CosineSimilarity(queryVec, item.Embedding)
		if sim < matchThreshold {
			continue
		}
		matches = append(matches, repositories.MenuMatch{
			NameAr:     item.NameAr,
			NameEn:     item.NameEn,
			Price:      item.Price,
			Similarity: sim,
		})
	}

	sort.Slice(matches, func(i, j int) bool {
		return matches[i].Similarity > matches[j].Similarity
	})
	if len(matches) > matchCount {
		matches = matches[:matchCount]
	}

	s.logger.Debug("Menu search completed",
		zap.String("query", query),
		zap.String("restaurantID", restaurantID),
		zap.Int("matches", len(matches)))
	return matches, nil
}

func (s *MenuSearch) candidateItems(ctx context.Context, restaurantID string) ([]entities.MenuItem, error) {
	if restaurantID != "" {
		restaurant, err := s.restaurants.GetByID(ctx, restaurantID)
		if err != nil {
			return nil, err
		}
		if restaurant == nil {
			return nil, fmt.Errorf("restaurant %s not found", restaurantID)
		}
		return restaurant.AvailableItems(), nil
	}

	restaurants, err := s.restaurants.List(ctx)
	if err != nil {
		return nil, err
	}
	var items []entities.MenuItem
	for _, r := range restaurants {
		items = append(items, r.AvailableItems()...)
	}
	return items, nil
}

// CosineSimilarity returns the cosine of the angle between two vectors, or
// 0 when either is degenerate or the dimensions disagree.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
