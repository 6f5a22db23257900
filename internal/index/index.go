// Package index provides the similarity index: a labeled HNSW graph fed by an
// embedding provider, queried per sentence with absolute and relative distance
// cutoffs.
package index

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/cardseer/cardseer/internal/ann/hnsw"
	"github.com/cardseer/cardseer/internal/domain"
	"github.com/cardseer/cardseer/internal/metrics"
)

// defaultSentencePattern splits query text into sentences.
var defaultSentencePattern = regexp.MustCompile(`[.?]`)

// Config holds the index construction settings.
type Config struct {
	// Name identifies the corpus ("cards", "rules") in logs and metrics.
	Name string
	// SentencePattern overrides the default `[.?]` sentence splitter.
	SentencePattern *regexp.Regexp
	HNSW            hnsw.Config
	Logger          *zap.Logger
}

// SimilarityIndex maps catalog labels to vectors and answers distance-ranked
// lookups. Ids grow contiguously from 0 in insertion order and are never
// reused. Safe for concurrent use.
type SimilarityIndex struct {
	mu            sync.RWMutex
	graph         *hnsw.Graph
	labels        []string
	embedder      domain.Embedder
	queryEmbedder domain.Embedder

	name     string
	hnswCfg  hnsw.Config
	splitter *regexp.Regexp
	logger   *zap.Logger
}

// New creates an empty index backed by the given embedder.
func New(embedder domain.Embedder, cfg Config) *SimilarityIndex {
	splitter := cfg.SentencePattern
	if splitter == nil {
		splitter = defaultSentencePattern
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SimilarityIndex{
		graph:         hnsw.New(cfg.HNSW),
		embedder:      embedder,
		queryEmbedder: embedder,
		name:          cfg.Name,
		hnswCfg:       cfg.HNSW,
		splitter:      splitter,
		logger:        logger,
	}
}

// WithQueryEmbedder sets a separate embedder for query text. Build and Add
// keep using the constructor's embedder. Instruction-tuned models prefix
// documents and queries differently.
func (s *SimilarityIndex) WithQueryEmbedder(e domain.Embedder) *SimilarityIndex {
	s.queryEmbedder = e
	return s
}

// Len returns the number of indexed entries.
func (s *SimilarityIndex) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.labels)
}

// BuildReport describes the outcome of a Build call. Embedded is the number
// of entries that made it into the index. Err carries the embedding failure
// that stopped the build, if any; FailedLabel names the entry it occurred on.
type BuildReport struct {
	Embedded    int
	FailedLabel string
	Err         error
}

// Build embeds entries in order and indexes them. An embedding failure stops
// the loop; entries embedded before the failure stay in the index, and the
// report carries the error. Build returns a non-nil error only when nothing
// could be indexed at all.
func (s *SimilarityIndex) Build(ctx context.Context, entries []domain.IndexEntry) (BuildReport, error) {
	var report BuildReport
	for _, entry := range entries {
		if err := s.addOne(ctx, entry); err != nil {
			report.FailedLabel = entry.Label
			report.Err = err
			break
		}
		report.Embedded++
	}

	if report.Err != nil {
		s.logger.Warn("Index build stopped early",
			zap.String("index", s.name),
			zap.Int("embedded", report.Embedded),
			zap.Int("requested", len(entries)),
			zap.String("failed_label", report.FailedLabel),
			zap.Error(report.Err),
		)
		if report.Embedded == 0 && len(entries) > 0 {
			return report, fmt.Errorf("build index %q: %w", s.name, report.Err)
		}
		return report, nil
	}

	s.logger.Info("Index built",
		zap.String("index", s.name),
		zap.Int("entries", report.Embedded),
	)
	return report, nil
}

// Add embeds and indexes entries, returning their assigned ids. The first
// failure aborts the call; entries added before it keep their ids.
func (s *SimilarityIndex) Add(ctx context.Context, entries []domain.IndexEntry) ([]int, error) {
	ids := make([]int, 0, len(entries))
	for _, entry := range entries {
		if err := s.addOne(ctx, entry); err != nil {
			return ids, err
		}
		ids = append(ids, s.Len()-1)
	}
	return ids, nil
}

func (s *SimilarityIndex) addOne(ctx context.Context, entry domain.IndexEntry) error {
	if err := entry.Validate(); err != nil {
		return fmt.Errorf("entry %q: %w", entry.Label, err)
	}

	result, err := s.embedder.Embed(ctx, entry.Text)
	if err != nil {
		return fmt.Errorf("embed %q: %w", entry.Label, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	id, err := s.graph.Add(result.Embedding)
	if err != nil {
		return fmt.Errorf("index %q: %w", entry.Label, err)
	}
	if id != len(s.labels) {
		return fmt.Errorf("id %d out of step with label table (%d entries)", id, len(s.labels))
	}
	s.labels = append(s.labels, entry.Label)
	return nil
}

// Query splits text into sentences, embeds each, and pools the per-sentence
// nearest neighbors that pass both cutoffs: absolute
// (distance < threshold) and relative to the sentence's closest hit
// (distance − baseline < lassoThreshold). The pool is sorted by ascending
// distance and truncated to k. The same label can appear once per sentence
// that surfaced it.
func (s *SimilarityIndex) Query(
	ctx context.Context, text string, k int,
	threshold, lassoThreshold float64,
) ([]domain.ScoredLabel, error) {
	if s.Len() == 0 {
		return nil, fmt.Errorf("index %q: %w", s.name, domain.ErrIndexNotInitialized)
	}
	if k <= 0 {
		return nil, nil
	}

	start := time.Now()

	var pool []domain.ScoredLabel
	for _, sentence := range s.sentences(text) {
		hits, err := s.querySentence(ctx, sentence, k, threshold, lassoThreshold)
		if err != nil {
			return nil, err
		}
		pool = append(pool, hits...)
	}

	sort.SliceStable(pool, func(i, j int) bool {
		return pool[i].Distance < pool[j].Distance
	})
	if len(pool) > k {
		pool = pool[:k]
	}

	metrics.RetrievalQueryDuration.WithLabelValues(s.name).Observe(time.Since(start).Seconds())
	metrics.RetrievalResultsReturned.WithLabelValues(s.name).Observe(float64(len(pool)))

	return pool, nil
}

func (s *SimilarityIndex) querySentence(
	ctx context.Context, sentence string, k int,
	threshold, lassoThreshold float64,
) ([]domain.ScoredLabel, error) {
	result, err := s.queryEmbedder.Embed(ctx, sentence)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	candidates, err := s.graph.Search(result.Embedding, k)
	if err != nil {
		return nil, fmt.Errorf("search index %q: %w", s.name, err)
	}
	if len(candidates) == 0 {
		return nil, nil
	}

	// Candidates arrive sorted ascending, so the first violation ends the
	// sentence's accept run.
	baseline := candidates[0].Distance
	var hits []domain.ScoredLabel
	for _, c := range candidates {
		if c.Distance >= threshold || c.Distance-baseline >= lassoThreshold {
			break
		}
		hits = append(hits, domain.ScoredLabel{
			Label:    s.labels[c.ID],
			Distance: c.Distance,
		})
	}
	return hits, nil
}

// sentences splits text on the configured pattern and drops empty fragments.
func (s *SimilarityIndex) sentences(text string) []string {
	var out []string
	for _, part := range s.splitter.Split(text, -1) {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
