package services

import (
	"context"
	"fmt"
	"math"

	"github.com/confabhq/confab-backend/internal/platform/logger"
	"github.com/confabhq/confab-backend/internal/platform/openai"
)

// Embedder produces a fixed-dimension unit vector for a piece of text. All
// vectors stored in the catalog come from this interface, so L2 distance over
// them is order-equivalent to cosine similarity.
type Embedder interface {
	EmbedText(ctx context.Context, text string) ([]float32, error)
	Dim() int
}

type embeddingService struct {
	client openai.Client
	log    *logger.Logger
	dim    int
}

func NewEmbeddingService(client openai.Client, baseLog *logger.Logger, dim int) (Embedder, error) {
	if client == nil {
		return nil, fmt.Errorf("embedding service requires an embeddings client")
	}
	if dim <= 0 {
		return nil, fmt.Errorf("embedding dimension must be positive, got %d", dim)
	}
	return &embeddingService{
		client: client,
		log:    baseLog.With("service", "EmbeddingService"),
		dim:    dim,
	}, nil
}

func (es *embeddingService) Dim() int { return es.dim }

func (es *embeddingService) EmbedText(ctx context.Context, text string) ([]float32, error) {
	vectors, err := es.client.Embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(vectors) != 1 {
		return nil, fmt.Errorf("embeddings client returned %d vectors for one input", len(vectors))
	}
	vec := vectors[0]
	if len(vec) != es.dim {
		return nil, fmt.Errorf("embedding dimension mismatch: want=%d got=%d", es.dim, len(vec))
	}
	return normalizeVector(vec), nil
}

// normalizeVector scales v to unit L2 length. Providers generally return
// normalized vectors already; re-normalizing makes the invariant local
// instead of assumed. Zero vectors are returned unchanged.
func normalizeVector(v []float32) []float32 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	if sum == 0 {
		return v
	}
	norm := math.Sqrt(sum)
	out := make([]float32, len(v))
	for i, x := range v {
		out[i] = float32(float64(x) / norm)
	}
	return out
}
