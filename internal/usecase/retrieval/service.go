// Package retrieval implements the card and rules lookup operations behind
// the HTTP API: distance-ranked search, weighted subsampling, and mention
// annotation.
package retrieval

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/cardseer/cardseer/internal/domain"
	"github.com/cardseer/cardseer/internal/match"
)

// Config holds the retrieval defaults applied when a request leaves a knob
// unset.
type Config struct {
	CardsK          int
	CardsThreshold  float64
	CardsLasso      float64
	RulesK          int
	RulesThreshold  float64
	RulesLasso      float64
	// AnnotateAssistantK and AnnotateUserK size the candidate fetch before
	// matching: assistant text casts a wider net.
	AnnotateAssistantK int
	AnnotateUserK      int
}

// ApplyDefaults fills unset fields with the service defaults.
func (c *Config) ApplyDefaults() {
	if c.CardsK <= 0 {
		c.CardsK = 5
	}
	if c.CardsThreshold <= 0 {
		c.CardsThreshold = 0.4
	}
	if c.CardsLasso <= 0 {
		c.CardsLasso = 0.1
	}
	if c.RulesK <= 0 {
		c.RulesK = 5
	}
	if c.RulesThreshold <= 0 {
		c.RulesThreshold = 0.2
	}
	if c.RulesLasso <= 0 {
		c.RulesLasso = 0.05
	}
	if c.AnnotateAssistantK <= 0 {
		c.AnnotateAssistantK = 15
	}
	if c.AnnotateUserK <= 0 {
		c.AnnotateUserK = 5
	}
}

// Service answers retrieval queries against the card and rules corpora.
type Service struct {
	cards      CardCatalog
	cardIndex  Index
	rules      RulesCatalog
	rulesIndex Index
	sampler    Sampler
	matcher    *match.Matcher
	cfg        Config
	logger     *zap.Logger
}

// NewService wires the retrieval service.
func NewService(
	cards CardCatalog, cardIndex Index,
	rules RulesCatalog, rulesIndex Index,
	sampler Sampler, matcher *match.Matcher,
	cfg Config, logger *zap.Logger,
) *Service {
	cfg.ApplyDefaults()
	return &Service{
		cards:      cards,
		cardIndex:  cardIndex,
		rules:      rules,
		rulesIndex: rulesIndex,
		sampler:    sampler,
		matcher:    matcher,
		cfg:        cfg,
		logger:     logger,
	}
}

// CardsQuery is a card search request. Zero-valued knobs fall back to the
// configured defaults.
type CardsQuery struct {
	Text           string
	K              int
	Threshold      float64
	LassoThreshold float64
	// SampleResults switches the ranked result list to a weighted random
	// subsample, used by the "suggest related cards" flow.
	SampleResults bool
}

// ScoredCard is a retrieval hit with its cosine distance.
type ScoredCard struct {
	Card     domain.Card
	Distance float64
}

// GetCards returns cards similar to the query text, ordered by ascending
// distance, or a weighted random subsample when requested.
func (s *Service) GetCards(ctx context.Context, q CardsQuery) ([]ScoredCard, error) {
	k := q.K
	if k <= 0 {
		k = s.cfg.CardsK
	}
	threshold := q.Threshold
	if threshold <= 0 {
		threshold = s.cfg.CardsThreshold
	}
	lasso := q.LassoThreshold
	if lasso <= 0 {
		lasso = s.cfg.CardsLasso
	}

	results, err := s.cardIndex.Query(ctx, q.Text, k, threshold, lasso)
	if err != nil {
		return nil, fmt.Errorf("query cards: %w", err)
	}

	if q.SampleResults {
		results = pickLabels(results, s.sampler.Sample(results, k))
	}

	out := make([]ScoredCard, 0, len(results))
	for _, r := range results {
		card, ok := s.cards.Card(r.Label)
		if !ok {
			s.logger.Warn("Indexed label missing from catalog", zap.String("label", r.Label))
			continue
		}
		out = append(out, ScoredCard{Card: card, Distance: r.Distance})
	}
	return out, nil
}

// pickLabels maps sampled labels back to their scored results, first
// occurrence per label.
func pickLabels(results []domain.ScoredLabel, labels []string) []domain.ScoredLabel {
	out := make([]domain.ScoredLabel, 0, len(labels))
	for _, label := range labels {
		for _, r := range results {
			if r.Label == label {
				out = append(out, r)
				break
			}
		}
	}
	return out
}

// RulesQuery is a rules search request. Zero-valued knobs fall back to the
// configured defaults.
type RulesQuery struct {
	Text           string
	K              int
	Threshold      float64
	LassoThreshold float64
}

// ScoredDocument is a rules retrieval hit with its cosine distance.
type ScoredDocument struct {
	Document domain.Document
	Distance float64
}

// GetRules returns rules passages relevant to the query text, ordered by
// ascending distance.
func (s *Service) GetRules(ctx context.Context, q RulesQuery) ([]ScoredDocument, error) {
	k := q.K
	if k <= 0 {
		k = s.cfg.RulesK
	}
	threshold := q.Threshold
	if threshold <= 0 {
		threshold = s.cfg.RulesThreshold
	}
	lasso := q.LassoThreshold
	if lasso <= 0 {
		lasso = s.cfg.RulesLasso
	}

	results, err := s.rulesIndex.Query(ctx, q.Text, k, threshold, lasso)
	if err != nil {
		return nil, fmt.Errorf("query rules: %w", err)
	}

	out := make([]ScoredDocument, 0, len(results))
	for _, r := range results {
		docs := s.rules.Documents([]string{r.Label})
		if len(docs) == 0 {
			s.logger.Warn("Indexed label missing from rules catalog", zap.String("label", r.Label))
			continue
		}
		out = append(out, ScoredDocument{Document: docs[0], Distance: r.Distance})
	}
	return out, nil
}

// AnnotateRequest asks for card mentions in text to be linked.
type AnnotateRequest struct {
	Text string
	Role domain.Role
	// IncludeRules also gathers rules passages for the text and for the
	// matched cards' keywords.
	IncludeRules bool
}

// AnnotateResult carries the rewritten text plus the cards (and optionally
// rules) it references.
type AnnotateResult struct {
	Text  string
	Cards []domain.Card
	Rules []domain.Document
}

// Annotate retrieves candidate cards for the text, links their mentions as
// markdown, and returns only the cards actually mentioned. Assistant text
// fetches more candidates than user text before matching.
func (s *Service) Annotate(ctx context.Context, req AnnotateRequest) (AnnotateResult, error) {
	if !req.Role.Valid() {
		return AnnotateResult{}, fmt.Errorf("role %q: %w", req.Role, domain.ErrInvalidRole)
	}

	k := s.cfg.AnnotateUserK
	if req.Role == domain.RoleAssistant {
		k = s.cfg.AnnotateAssistantK
	}

	scored, err := s.GetCards(ctx, CardsQuery{Text: req.Text, K: k})
	if err != nil {
		return AnnotateResult{}, err
	}

	candidates := make([]match.Candidate, 0, len(scored))
	for _, sc := range scored {
		candidates = append(candidates, match.Candidate{
			Label: sc.Card.Name,
			URL:   sc.Card.ImageURL,
		})
	}

	rewritten, matches := s.matcher.Annotate(req.Text, candidates, req.Role)

	labels := make([]string, 0, len(matches))
	for _, m := range matches {
		labels = append(labels, m.Label)
	}
	matchedCards := s.cards.Cards(labels)

	result := AnnotateResult{Text: rewritten, Cards: matchedCards}

	if req.IncludeRules {
		rules, err := s.rulesForMessage(ctx, req.Text, matchedCards)
		if err != nil {
			return AnnotateResult{}, err
		}
		result.Rules = rules
	}

	s.logger.Debug("Message annotated",
		zap.String("role", string(req.Role)),
		zap.Int("candidates", len(candidates)),
		zap.Int("matched", len(matchedCards)),
		zap.Int("rules", len(result.Rules)),
	)
	return result, nil
}

// rulesForMessage gathers rules for the text itself, then expands the
// matched cards' keywords into a second query (keywords joined with ".").
func (s *Service) rulesForMessage(ctx context.Context, text string, cards []domain.Card) ([]domain.Document, error) {
	scored, err := s.GetRules(ctx, RulesQuery{Text: text})
	if err != nil {
		return nil, err
	}
	rules := make([]domain.Document, 0, len(scored))
	for _, sd := range scored {
		rules = append(rules, sd.Document)
	}

	var keywords []string
	for _, card := range cards {
		keywords = append(keywords, card.Keywords...)
	}
	if len(keywords) == 0 {
		return rules, nil
	}

	expanded, err := s.GetRules(ctx, RulesQuery{Text: strings.Join(keywords, ".")})
	if err != nil {
		return nil, err
	}
	for _, sd := range expanded {
		rules = append(rules, sd.Document)
	}
	return rules, nil
}
