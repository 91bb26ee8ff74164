package embedding

import (
	"context"
	"fmt"
	"os"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/sufrahq/sufra-voice/domain/repositories"
)

const defaultEmbeddingModel = "gemini-embedding-001"

// GeminiEmbedder implements the Embedder interface using Google's
// embedding API
type GeminiEmbedder struct {
	client *genai.Client
	logger *zap.Logger
	model  string
}

var _ repositories.Embedder = (*GeminiEmbedder)(nil)

// NewGeminiEmbedder creates a new Gemini embedder instance
func NewGeminiEmbedder(logger *zap.Logger) (*GeminiEmbedder, error) {
	apiKey := os.Getenv("GEMINI_API_KEY")
	if apiKey == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY environment variable is required")
	}

	ctx := context.Background()
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	return &GeminiEmbedder{
		client: client,
		logger: logger,
		model:  defaultEmbeddingModel,
	}, nil
}

// Embed converts free text into an embedding vector
func (g *GeminiEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if text == "" {
		return nil, fmt.Errorf("cannot embed empty text")
	}

	resp, err := g.client.Models.EmbedContent(ctx, g.model, genai.Text(text), nil)
	if err != nil {
		return nil, fmt.Errorf("embedding request failed: %w", err)
	}
	if len(resp.Embeddings) == 0 || len(resp.Embeddings[0].Values) == 0 {
		return nil, fmt.Errorf("embedding response was empty")
	}
	return resp.Embeddings[0].Values, nil
}
