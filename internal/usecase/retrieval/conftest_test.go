package retrieval

import (
	"context"
	"testing"

	"go.uber.org/zap"

	"github.com/cardseer/cardseer/internal/domain"
	"github.com/cardseer/cardseer/internal/match"
)

// mockIndex records the last query and returns canned results.
type mockIndex struct {
	results  []domain.ScoredLabel
	err      error
	lastText string
	lastK    int
	lastThr  float64
	lastLas  float64
	calls    int
	queries  []string
}

func (m *mockIndex) Query(_ context.Context, text string, k int, threshold, lasso float64) ([]domain.ScoredLabel, error) {
	m.calls++
	m.lastText = text
	m.lastK = k
	m.lastThr = threshold
	m.lastLas = lasso
	m.queries = append(m.queries, text)
	return m.results, m.err
}

type mockCardCatalog struct {
	cards map[string]domain.Card
}

func (m *mockCardCatalog) Card(name string) (domain.Card, bool) {
	c, ok := m.cards[name]
	return c, ok
}

func (m *mockCardCatalog) Cards(names []string) []domain.Card {
	var out []domain.Card
	for _, n := range names {
		if c, ok := m.cards[n]; ok {
			out = append(out, c)
		}
	}
	return out
}

type mockRulesCatalog struct {
	docs map[string]domain.Document
}

func (m *mockRulesCatalog) Documents(names []string) []domain.Document {
	var out []domain.Document
	for _, n := range names {
		if d, ok := m.docs[n]; ok {
			out = append(out, d)
		}
	}
	return out
}

// fixedSampler returns a canned label list and records its input.
type fixedSampler struct {
	labels []string
	lastK  int
}

func (f *fixedSampler) Sample(results []domain.ScoredLabel, k int) []string {
	f.lastK = k
	if f.labels != nil {
		return f.labels
	}
	out := make([]string, 0, k)
	for i := 0; i < k && i < len(results); i++ {
		out = append(out, results[i].Label)
	}
	return out
}

type testService struct {
	svc        *Service
	cardIndex  *mockIndex
	rulesIndex *mockIndex
	sampler    *fixedSampler
}

func newTestService(t *testing.T) *testService {
	t.Helper()

	cards := &mockCardCatalog{cards: map[string]domain.Card{
		"Lightning Bolt": {
			ID: "1", Name: "Lightning Bolt", ImageURL: "https://img.example/bolt",
			Keywords: []string{},
		},
		"Chatterfang, Squirrel General": {
			ID: "2", Name: "Chatterfang, Squirrel General",
			ImageURL: "https://img.example/chatterfang",
			Keywords: []string{"Forestwalk"},
		},
	}}
	rules := &mockRulesCatalog{docs: map[string]domain.Document{
		"Deathtouch": {Name: "Deathtouch", Text: "702.2", URL: "r1"},
		"Forestwalk": {Name: "Forestwalk", Text: "702.14", URL: "r2"},
	}}

	cardIndex := &mockIndex{}
	rulesIndex := &mockIndex{}
	sampler := &fixedSampler{}

	svc := NewService(
		cards, cardIndex, rules, rulesIndex, sampler,
		match.New(0, nil), Config{}, zap.NewNop(),
	)
	return &testService{svc: svc, cardIndex: cardIndex, rulesIndex: rulesIndex, sampler: sampler}
}
