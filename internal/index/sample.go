package index

import (
	"math/rand"
	"sync"

	"github.com/cardseer/cardseer/internal/domain"
)

// Sampler draws weighted random subsets of retrieval results, used by the
// "suggest related cards" flow to vary suggestions across calls.
type Sampler struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewSampler creates a sampler with its own random source.
func NewSampler(seed int64) *Sampler {
	return &Sampler{rng: rand.New(rand.NewSource(seed))}
}

// Sample draws min(k, len(results)) labels without replacement, weighted by
// rawDistanceWeights. Empty input returns nil.
func (s *Sampler) Sample(results []domain.ScoredLabel, k int) []string {
	if len(results) == 0 || k <= 0 {
		return nil
	}
	if k > len(results) {
		k = len(results)
	}

	weights := rawDistanceWeights(results)

	remaining := make([]domain.ScoredLabel, len(results))
	copy(remaining, results)

	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]string, 0, k)
	total := 1.0
	for len(out) < k {
		idx := s.draw(weights, total)
		out = append(out, remaining[idx].Label)

		total -= weights[idx]
		remaining = append(remaining[:idx], remaining[idx+1:]...)
		weights = append(weights[:idx], weights[idx+1:]...)
	}
	return out
}

func (s *Sampler) draw(weights []float64, total float64) int {
	r := s.rng.Float64() * total
	var cum float64
	for i, w := range weights {
		cum += w
		if r < cum {
			return i
		}
	}
	return len(weights) - 1
}

// rawDistanceWeights is the selection policy: each result's weight is
// proportional to its raw distance, so farther (less similar) results are
// drawn MORE often. This mirrors the long-standing production behavior and
// is pinned by tests; change it here and nowhere else.
//
// Weights are normalized to sum to exactly 1, with the last weight absorbing
// float drift. All-zero distances degrade to a uniform draw.
func rawDistanceWeights(results []domain.ScoredLabel) []float64 {
	weights := make([]float64, len(results))

	var total float64
	for _, r := range results {
		total += r.Distance
	}
	if total == 0 {
		uniform := 1 / float64(len(results))
		for i := range weights {
			weights[i] = uniform
		}
		weights[len(weights)-1] = 1 - uniform*float64(len(weights)-1)
		return weights
	}

	var sum float64
	for i, r := range results {
		weights[i] = r.Distance / total
		sum += weights[i]
	}
	weights[len(weights)-1] += 1 - sum
	return weights
}
