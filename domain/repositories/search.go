package repositories

import "context"

// MenuMatch is one ranked similarity-search hit. Only names and price are
// surfaced to the model; internal identifiers stay out of the conversation.
type MenuMatch struct {
	NameAr     string  `json:"name_ar"`
	NameEn     string  `json:"name_en"`
	Price      float64 `json:"price"`
	Similarity float64 `json:"similarity"`
}

// Embedder converts free text into an embedding vector
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// MenuSearcher finds menu items semantically close to a free-text query,
// optionally scoped to one restaurant. Results are ranked, capped at the
// implementation's match count, and filtered by its similarity threshold.
type MenuSearcher interface {
	Search(ctx context.Context, query string, restaurantID string) ([]MenuMatch, error)
}
