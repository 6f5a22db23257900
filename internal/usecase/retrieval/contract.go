package retrieval

import (
	"context"

	"github.com/cardseer/cardseer/internal/domain"
)

// Index is the consumer interface for a similarity index (ISP).
type Index interface {
	Query(ctx context.Context, text string, k int, threshold, lassoThreshold float64) ([]domain.ScoredLabel, error)
}

// CardCatalog resolves card labels.
type CardCatalog interface {
	Card(name string) (domain.Card, bool)
	Cards(names []string) []domain.Card
}

// RulesCatalog resolves rules document labels.
type RulesCatalog interface {
	Documents(names []string) []domain.Document
}

// Sampler draws a weighted subset of retrieval results.
type Sampler interface {
	Sample(results []domain.ScoredLabel, k int) []string
}
