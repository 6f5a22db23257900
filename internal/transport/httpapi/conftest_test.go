package httpapi

import (
	"context"
	"net/http"
	"testing"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/cardseer/cardseer/internal/domain"
	healthuc "github.com/cardseer/cardseer/internal/usecase/health"
	retrievaluc "github.com/cardseer/cardseer/internal/usecase/retrieval"
)

// mockRetrieval records the last request and returns canned results.
type mockRetrieval struct {
	cards       []retrievaluc.ScoredCard
	cardsErr    error
	lastCards   retrievaluc.CardsQuery
	rules       []retrievaluc.ScoredDocument
	rulesErr    error
	lastRules   retrievaluc.RulesQuery
	annotate    retrievaluc.AnnotateResult
	annotateErr error
	lastAnn     retrievaluc.AnnotateRequest
}

func (m *mockRetrieval) GetCards(_ context.Context, q retrievaluc.CardsQuery) ([]retrievaluc.ScoredCard, error) {
	m.lastCards = q
	return m.cards, m.cardsErr
}

func (m *mockRetrieval) GetRules(_ context.Context, q retrievaluc.RulesQuery) ([]retrievaluc.ScoredDocument, error) {
	m.lastRules = q
	return m.rules, m.rulesErr
}

func (m *mockRetrieval) Annotate(_ context.Context, req retrievaluc.AnnotateRequest) (retrievaluc.AnnotateResult, error) {
	m.lastAnn = req
	return m.annotate, m.annotateErr
}

type mockCardFinder struct {
	cards map[string]domain.Card
}

func (m *mockCardFinder) Card(name string) (domain.Card, bool) {
	c, ok := m.cards[name]
	return c, ok
}

type mockHealth struct {
	report healthuc.Report
}

func (m *mockHealth) Check(_ context.Context) healthuc.Report { return m.report }

type testServer struct {
	handler   http.Handler
	retrieval *mockRetrieval
	finder    *mockCardFinder
	health    *mockHealth
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	retrieval := &mockRetrieval{}
	finder := &mockCardFinder{cards: map[string]domain.Card{
		"Lightning Bolt": {
			ID: "1", Name: "Lightning Bolt", ImageURL: "https://img.example/bolt",
		},
	}}
	health := &mockHealth{report: healthuc.Report{
		Status: healthuc.Healthy,
		Checks: map[string]healthuc.CheckResult{"database": healthuc.CheckOK},
	}}

	srv := NewServer(retrieval, finder, health, zap.NewNop())
	r := chi.NewRouter()
	srv.Register(r)

	return &testServer{handler: r, retrieval: retrieval, finder: finder, health: health}
}
