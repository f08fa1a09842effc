package services

import (
	"context"
	"math"
	"testing"

	"github.com/confabhq/confab-backend/internal/platform/logger"
)

type stubEmbedClient struct {
	vectors [][]float32
	err     error
}

func (s *stubEmbedClient) Embed(ctx context.Context, inputs []string) ([][]float32, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.vectors, nil
}

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New("test")
	if err != nil {
		t.Fatalf("logger.New: %v", err)
	}
	return log
}

func TestNormalizeVectorUnitLength(t *testing.T) {
	out := normalizeVector([]float32{3, 4})
	var sum float64
	for _, x := range out {
		sum += float64(x) * float64(x)
	}
	if math.Abs(sum-1.0) > 1e-6 {
		t.Fatalf("norm squared: want=1 got=%v", sum)
	}
	if math.Abs(float64(out[0])-0.6) > 1e-6 || math.Abs(float64(out[1])-0.8) > 1e-6 {
		t.Fatalf("normalized components: want=[0.6 0.8] got=%v", out)
	}
}

func TestNormalizeVectorZeroVectorUnchanged(t *testing.T) {
	in := []float32{0, 0, 0}
	out := normalizeVector(in)
	for i, x := range out {
		if x != 0 {
			t.Fatalf("component %d: want=0 got=%v", i, x)
		}
	}
}

func TestEmbedTextRejectsDimensionMismatch(t *testing.T) {
	es, err := NewEmbeddingService(&stubEmbedClient{vectors: [][]float32{{1, 2, 3}}}, testLogger(t), 384)
	if err != nil {
		t.Fatalf("NewEmbeddingService: %v", err)
	}
	if _, err := es.EmbedText(context.Background(), "golang"); err == nil {
		t.Fatalf("expected dimension mismatch error")
	}
}

func TestEmbedTextNormalizesOutput(t *testing.T) {
	es, err := NewEmbeddingService(&stubEmbedClient{vectors: [][]float32{{2, 0}}}, testLogger(t), 2)
	if err != nil {
		t.Fatalf("NewEmbeddingService: %v", err)
	}
	vec, err := es.EmbedText(context.Background(), "golang")
	if err != nil {
		t.Fatalf("EmbedText: %v", err)
	}
	if vec[0] != 1 || vec[1] != 0 {
		t.Fatalf("want=[1 0] got=%v", vec)
	}
}
