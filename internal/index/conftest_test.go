package index

import (
	"context"
	"math"
	"testing"

	"go.uber.org/zap"

	"github.com/cardseer/cardseer/internal/ann/hnsw"
	"github.com/cardseer/cardseer/internal/domain"
)

// stubEmbedder returns canned vectors per text, with optional per-text
// failure injection.
type stubEmbedder struct {
	vectors map[string][]float32
	errOn   map[string]error
	calls   int
}

func (s *stubEmbedder) Embed(_ context.Context, text string) (domain.EmbeddingResult, error) {
	s.calls++
	if err, ok := s.errOn[text]; ok {
		return domain.EmbeddingResult{}, err
	}
	vec, ok := s.vectors[text]
	if !ok {
		// Unknown text maps to a fixed far-away direction so tests fail
		// loudly on typos rather than on missing stub entries.
		vec = unitVec(math.Pi / 2)
	}
	return domain.EmbeddingResult{Embedding: vec, TotalTokens: 1}, nil
}

// unitVec returns the 2D unit vector at the given angle. Cosine distance
// between two such vectors is 1 - cos(delta).
func unitVec(theta float64) []float32 {
	return []float32{float32(math.Cos(theta)), float32(math.Sin(theta))}
}

// angleFor returns the angle whose unit vector sits at the given cosine
// distance from angle 0.
func angleFor(distance float64) float64 {
	return math.Acos(1 - distance)
}

func newTestIndex(t *testing.T, emb *stubEmbedder) *SimilarityIndex {
	t.Helper()
	return New(emb, Config{
		Name:   "cards",
		HNSW:   hnsw.Config{M: 8, EfConstruction: 100, EfSearch: 50},
		Logger: zap.NewNop(),
	})
}

func mustBuild(t *testing.T, idx *SimilarityIndex, entries []domain.IndexEntry) {
	t.Helper()
	report, err := idx.Build(context.Background(), entries)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if report.Err != nil {
		t.Fatalf("build stopped early: %v", report.Err)
	}
}
