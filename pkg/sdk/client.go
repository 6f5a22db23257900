package cardseer

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/cardseer/cardseer/internal/ann/hnsw"
	"github.com/cardseer/cardseer/internal/catalog"
	"github.com/cardseer/cardseer/internal/db"
	dbRedis "github.com/cardseer/cardseer/internal/db/redis"
	"github.com/cardseer/cardseer/internal/domain"
	"github.com/cardseer/cardseer/internal/index"
	"github.com/cardseer/cardseer/internal/match"
	"github.com/cardseer/cardseer/internal/metrics"
	"github.com/cardseer/cardseer/internal/repository/embcache"
	retrievaluc "github.com/cardseer/cardseer/internal/usecase/retrieval"
)

const defaultReadinessTimeout = 10 * time.Second

// Client is the embedded cardseer entry point.
type Client struct {
	store db.Store

	cards      *catalog.Store
	rules      *catalog.RulesStore
	cardIndex  *index.SimilarityIndex
	rulesIndex *index.SimilarityIndex

	sampler *index.Sampler
	matcher *match.Matcher
	logger  *zap.Logger
}

// New creates a Client. WithEmbedder is required; a database is optional and
// only enables the shared embedding cache.
func New(opts ...Option) (*Client, error) {
	cfg := &clientConfig{
		samplerSeed: time.Now().UnixNano(),
	}
	for _, o := range opts {
		o.apply(cfg)
	}

	if cfg.embedder == nil {
		return nil, fmt.Errorf("embedder is required (use WithEmbedder)")
	}

	logger := cfg.logger
	if logger == nil {
		logger = zap.NewNop()
	}

	var store db.Store
	if cfg.driver != "" {
		s, err := dbRedis.NewStore(dbRedis.Config{
			Addrs:    cfg.addrs,
			Password: cfg.password,
		})
		if err != nil {
			return nil, fmt.Errorf("create %s store: %w", cfg.driver, err)
		}
		if err := s.WaitForReady(context.Background(), defaultReadinessTimeout); err != nil {
			s.Close()
			return nil, fmt.Errorf("database not ready: %w", err)
		}
		store = s
	}

	docEmb := wrapEmbedder(cfg.embedder, store, logger)
	queryEmb := docEmb
	if cfg.queryEmbedder != nil {
		queryEmb = wrapEmbedder(cfg.queryEmbedder, store, logger)
	}

	hnswCfg := hnsw.Config{M: cfg.hnswM, EfConstruction: cfg.hnswEFConstruct}
	cardIndex := index.New(docEmb, index.Config{
		Name: "cards", HNSW: hnswCfg, Logger: logger,
	}).WithQueryEmbedder(queryEmb)
	rulesIndex := index.New(docEmb, index.Config{
		Name: "rules", HNSW: hnswCfg, Logger: logger,
	}).WithQueryEmbedder(queryEmb)

	return &Client{
		store:      store,
		cards:      catalog.NewStore(nil, cardIndex),
		rules:      catalog.NewRulesStore(nil, rulesIndex),
		cardIndex:  cardIndex,
		rulesIndex: rulesIndex,
		sampler:    index.NewSampler(cfg.samplerSeed),
		matcher:    match.New(cfg.minRatio, cfg.extraDenylist),
		logger:     logger,
	}, nil
}

func wrapEmbedder(e Embedder, store db.Store, logger *zap.Logger) domain.Embedder {
	var embedder domain.Embedder = embedderAdapter{inner: e}
	if store != nil {
		embedder = embcache.New(embedder, store, "cardseer:", metrics.EmbeddingCacheTotal, logger)
	}
	return embedder
}

// Close releases the database connection, if any.
func (c *Client) Close() {
	if c.store != nil {
		c.store.Close()
	}
}

// LoadCards reads a Scryfall dump and builds the card index. Call once,
// before querying.
func (c *Client) LoadCards(ctx context.Context, path string) error {
	cards, err := catalog.LoadCards(path)
	if err != nil {
		return fmt.Errorf("load cards: %w", err)
	}
	c.cards = catalog.NewStore(cards, c.cardIndex)

	report, err := c.cardIndex.Build(ctx, c.cards.Entries())
	if err != nil {
		return fmt.Errorf("build card index: %w", err)
	}
	if report.Err != nil {
		c.logger.Warn("Card index built partially",
			zap.Int("embedded", report.Embedded),
			zap.String("failed_label", report.FailedLabel),
			zap.Error(report.Err),
		)
	}
	return nil
}

// LoadRules reads a rules document file and builds the rules index. Call
// once, before querying. Optional; without it GetRules returns
// ErrIndexNotInitialized.
func (c *Client) LoadRules(ctx context.Context, path string) error {
	docs, err := catalog.LoadDocuments(path)
	if err != nil {
		return fmt.Errorf("load rules: %w", err)
	}
	c.rules = catalog.NewRulesStore(docs, c.rulesIndex)

	report, err := c.rulesIndex.Build(ctx, c.rules.Entries())
	if err != nil {
		return fmt.Errorf("build rules index: %w", err)
	}
	if report.Err != nil {
		c.logger.Warn("Rules index built partially",
			zap.Int("embedded", report.Embedded),
			zap.String("failed_label", report.FailedLabel),
			zap.Error(report.Err),
		)
	}
	return nil
}

// Card returns the card with the given exact name from the loaded catalog.
func (c *Client) Card(name string) (Card, bool) {
	card, ok := c.cards.Card(name)
	if !ok {
		return Card{}, false
	}
	return cardFromDomain(card), true
}

// QueryOption tunes a single retrieval call.
type QueryOption func(*queryConfig)

type queryConfig struct {
	k              int
	threshold      float64
	lassoThreshold float64
	sample         bool
}

// WithK caps the number of results. Default: 5.
func WithK(k int) QueryOption {
	return func(q *queryConfig) { q.k = k }
}

// WithThreshold sets the absolute cosine distance cutoff.
// Defaults: 0.4 for cards, 0.2 for rules.
func WithThreshold(t float64) QueryOption {
	return func(q *queryConfig) { q.threshold = t }
}

// WithLassoThreshold sets the allowed distance gap to each sentence's
// closest hit. Defaults: 0.1 for cards, 0.05 for rules.
func WithLassoThreshold(t float64) QueryOption {
	return func(q *queryConfig) { q.lassoThreshold = t }
}

// WithSampling switches the ranked result list to a weighted random
// subsample, used by the "suggest related cards" flow.
func WithSampling() QueryOption {
	return func(q *queryConfig) { q.sample = true }
}

// GetCards returns cards similar to the query text, ordered by ascending
// cosine distance.
func (c *Client) GetCards(ctx context.Context, text string, opts ...QueryOption) ([]ScoredCard, error) {
	var q queryConfig
	for _, o := range opts {
		o(&q)
	}

	scored, err := c.service().GetCards(ctx, retrievaluc.CardsQuery{
		Text:           text,
		K:              q.k,
		Threshold:      q.threshold,
		LassoThreshold: q.lassoThreshold,
		SampleResults:  q.sample,
	})
	if err != nil {
		return nil, err
	}

	out := make([]ScoredCard, 0, len(scored))
	for _, sc := range scored {
		out = append(out, ScoredCard{Card: cardFromDomain(sc.Card), Distance: sc.Distance})
	}
	return out, nil
}

// GetRules returns rules passages relevant to the query text, ordered by
// ascending cosine distance.
func (c *Client) GetRules(ctx context.Context, text string, opts ...QueryOption) ([]ScoredDocument, error) {
	var q queryConfig
	for _, o := range opts {
		o(&q)
	}

	scored, err := c.service().GetRules(ctx, retrievaluc.RulesQuery{
		Text:           text,
		K:              q.k,
		Threshold:      q.threshold,
		LassoThreshold: q.lassoThreshold,
	})
	if err != nil {
		return nil, err
	}

	out := make([]ScoredDocument, 0, len(scored))
	for _, sd := range scored {
		out = append(out, ScoredDocument{Document: documentFromDomain(sd.Document), Distance: sd.Distance})
	}
	return out, nil
}

// AnnotateOption tunes an Annotate call.
type AnnotateOption func(*annotateConfig)

type annotateConfig struct {
	includeRules bool
}

// WithRules also gathers rules passages for the text and for the matched
// cards' keywords.
func WithRules() AnnotateOption {
	return func(a *annotateConfig) { a.includeRules = true }
}

// Annotate links card mentions in text as markdown and returns only the
// cards actually mentioned.
func (c *Client) Annotate(ctx context.Context, text string, role Role, opts ...AnnotateOption) (Annotation, error) {
	var a annotateConfig
	for _, o := range opts {
		o(&a)
	}

	result, err := c.service().Annotate(ctx, retrievaluc.AnnotateRequest{
		Text:         text,
		Role:         domain.Role(role),
		IncludeRules: a.includeRules,
	})
	if err != nil {
		return Annotation{}, err
	}

	out := Annotation{Text: result.Text}
	for _, card := range result.Cards {
		out.Cards = append(out.Cards, cardFromDomain(card))
	}
	for _, doc := range result.Rules {
		out.Rules = append(out.Rules, documentFromDomain(doc))
	}
	return out, nil
}

// service assembles the retrieval usecase over the current stores. Cheap,
// rebuilt per call so Load* can swap the catalogs underneath.
func (c *Client) service() *retrievaluc.Service {
	return retrievaluc.NewService(
		c.cards, c.cardIndex, c.rules, c.rulesIndex,
		c.sampler, c.matcher, retrievaluc.Config{}, c.logger,
	)
}
