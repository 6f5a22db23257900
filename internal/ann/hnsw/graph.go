// Package hnsw implements a Hierarchical Navigable Small World graph for
// approximate nearest neighbor search over dense float32 vectors. Nodes are
// identified by contiguous integer ids assigned in insertion order, and the
// graph only grows; there is no delete.
package hnsw

import (
	"container/heap"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"sync"
)

var (
	// ErrEmptyGraph is returned when searching a graph with no vectors.
	ErrEmptyGraph = errors.New("hnsw: graph is empty")
	// ErrDimensionMismatch is returned when a vector's dimensionality does
	// not match the graph's.
	ErrDimensionMismatch = errors.New("hnsw: vector dimension mismatch")
	// ErrEmptyVector is returned for zero-length vectors.
	ErrEmptyVector = errors.New("hnsw: empty vector")
)

// Config controls graph construction and search behavior.
type Config struct {
	// M is the maximum number of bidirectional connections per node on
	// layers above 0. Layer 0 allows 2*M.
	M int
	// EfConstruction is the size of the dynamic candidate list during
	// insertion.
	EfConstruction int
	// EfSearch is the size of the dynamic candidate list during search.
	// Search uses max(EfSearch, k).
	EfSearch int
}

// DefaultConfig returns the construction parameters used when none are
// supplied.
func DefaultConfig() Config {
	return Config{
		M:              16,
		EfConstruction: 10000,
		EfSearch:       100,
	}
}

// Candidate is a search result: a node id and its cosine distance from the
// query.
type Candidate struct {
	ID       int
	Distance float64
}

// Graph is an HNSW index. It is safe for concurrent use; inserts take a
// write lock, searches a read lock.
type Graph struct {
	mu sync.RWMutex

	cfg       Config
	levelMult float64
	rng       *rand.Rand

	dim        int
	vectors    [][]float32
	magnitudes []float64

	// layers[l] maps node id to its neighbor ids on level l.
	layers     []map[int][]int
	entryPoint int
	maxLevel   int
}

// New creates an empty graph. Zero or negative config fields fall back to
// DefaultConfig values.
func New(cfg Config) *Graph {
	def := DefaultConfig()
	if cfg.M <= 0 {
		cfg.M = def.M
	}
	if cfg.EfConstruction <= 0 {
		cfg.EfConstruction = def.EfConstruction
	}
	if cfg.EfSearch <= 0 {
		cfg.EfSearch = def.EfSearch
	}
	return &Graph{
		cfg:        cfg,
		levelMult:  1 / math.Log(float64(cfg.M)),
		rng:        rand.New(rand.NewSource(rand.Int63())),
		entryPoint: -1,
		maxLevel:   -1,
	}
}

// Len returns the number of vectors in the graph.
func (g *Graph) Len() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.vectors)
}

// Dim returns the vector dimensionality, or 0 for an empty graph.
func (g *Graph) Dim() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.dim
}

// Add inserts a vector and returns its assigned id. Ids are contiguous,
// starting at 0, in insertion order. The first vector fixes the graph's
// dimensionality.
func (g *Graph) Add(vector []float32) (int, error) {
	if len(vector) == 0 {
		return 0, ErrEmptyVector
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	if g.dim == 0 {
		g.dim = len(vector)
	} else if len(vector) != g.dim {
		return 0, fmt.Errorf("%w: got %d, want %d", ErrDimensionMismatch, len(vector), g.dim)
	}

	id := len(g.vectors)
	g.vectors = append(g.vectors, vector)
	g.magnitudes = append(g.magnitudes, Magnitude(vector))

	level := g.randomLevel()
	for len(g.layers) <= level {
		g.layers = append(g.layers, make(map[int][]int))
	}

	if g.entryPoint < 0 {
		for l := 0; l <= level; l++ {
			g.layers[l][id] = nil
		}
		g.entryPoint = id
		g.maxLevel = level
		return id, nil
	}

	ep := g.entryPoint
	// Greedy descent through layers above the node's level.
	for l := g.maxLevel; l > level; l-- {
		ep = g.greedyClosest(vector, ep, l)
	}

	// Insert with full candidate search on each remaining layer.
	top := level
	if g.maxLevel < top {
		top = g.maxLevel
	}
	for l := top; l >= 0; l-- {
		candidates := g.searchLayer(vector, ep, g.cfg.EfConstruction, l)
		maxConn := g.maxConnections(l)

		neighbors := candidates
		if len(neighbors) > maxConn {
			neighbors = neighbors[:maxConn]
		}

		g.layers[l][id] = nil
		for _, n := range neighbors {
			g.layers[l][id] = append(g.layers[l][id], n.ID)
			g.layers[l][n.ID] = append(g.layers[l][n.ID], id)
			if len(g.layers[l][n.ID]) > maxConn {
				g.pruneNeighbors(n.ID, l, maxConn)
			}
		}
		if len(candidates) > 0 {
			ep = candidates[0].ID
		}
	}
	for l := g.maxLevel + 1; l <= level; l++ {
		g.layers[l][id] = nil
	}

	if level > g.maxLevel {
		g.maxLevel = level
		g.entryPoint = id
	}
	return id, nil
}

// Search returns up to k nearest neighbors of query, ordered by ascending
// cosine distance.
func (g *Graph) Search(query []float32, k int) ([]Candidate, error) {
	if len(query) == 0 {
		return nil, ErrEmptyVector
	}
	if k <= 0 {
		return nil, nil
	}

	g.mu.RLock()
	defer g.mu.RUnlock()

	if len(g.vectors) == 0 {
		return nil, ErrEmptyGraph
	}
	if len(query) != g.dim {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrDimensionMismatch, len(query), g.dim)
	}

	ep := g.entryPoint
	for l := g.maxLevel; l > 0; l-- {
		ep = g.greedyClosest(query, ep, l)
	}

	ef := g.cfg.EfSearch
	if ef < k {
		ef = k
	}
	candidates := g.searchLayer(query, ep, ef, 0)
	if len(candidates) > k {
		candidates = candidates[:k]
	}
	return candidates, nil
}

func (g *Graph) maxConnections(level int) int {
	if level == 0 {
		return 2 * g.cfg.M
	}
	return g.cfg.M
}

func (g *Graph) randomLevel() int {
	return int(math.Floor(-math.Log(g.rng.Float64()) * g.levelMult))
}

func (g *Graph) distanceTo(query []float32, magQ float64, id int) float64 {
	return CosineDistance(query, g.vectors[id], magQ, g.magnitudes[id])
}

// greedyClosest walks the given layer toward query, returning the local
// minimum.
func (g *Graph) greedyClosest(query []float32, ep, level int) int {
	magQ := Magnitude(query)
	best := ep
	bestDist := g.distanceTo(query, magQ, best)
	for {
		improved := false
		for _, n := range g.layers[level][best] {
			if d := g.distanceTo(query, magQ, n); d < bestDist {
				best, bestDist = n, d
				improved = true
			}
		}
		if !improved {
			return best
		}
	}
}

// searchLayer performs a best-first search on one layer with a dynamic
// candidate list of size ef. Results are sorted by ascending distance.
func (g *Graph) searchLayer(query []float32, ep, ef, level int) []Candidate {
	magQ := Magnitude(query)

	visited := map[int]bool{ep: true}
	epDist := g.distanceTo(query, magQ, ep)

	candidates := &minHeap{{ID: ep, Distance: epDist}}
	results := &maxHeap{{ID: ep, Distance: epDist}}

	for candidates.Len() > 0 {
		current := heap.Pop(candidates).(Candidate)
		if current.Distance > (*results)[0].Distance && results.Len() >= ef {
			break
		}
		for _, n := range g.layers[level][current.ID] {
			if visited[n] {
				continue
			}
			visited[n] = true
			d := g.distanceTo(query, magQ, n)
			if results.Len() < ef || d < (*results)[0].Distance {
				heap.Push(candidates, Candidate{ID: n, Distance: d})
				heap.Push(results, Candidate{ID: n, Distance: d})
				if results.Len() > ef {
					heap.Pop(results)
				}
			}
		}
	}

	out := make([]Candidate, results.Len())
	for i := len(out) - 1; i >= 0; i-- {
		out[i] = heap.Pop(results).(Candidate)
	}
	return out
}

// pruneNeighbors trims a node's neighbor list on one layer to the maxConn
// closest by distance.
func (g *Graph) pruneNeighbors(id, level, maxConn int) {
	neighbors := g.layers[level][id]
	vec := g.vectors[id]
	mag := g.magnitudes[id]

	scored := make([]Candidate, len(neighbors))
	for i, n := range neighbors {
		scored[i] = Candidate{ID: n, Distance: g.distanceTo(vec, mag, n)}
	}
	sortCandidates(scored)

	kept := make([]int, maxConn)
	for i := range kept {
		kept[i] = scored[i].ID
	}
	g.layers[level][id] = kept
}

func sortCandidates(c []Candidate) {
	// Insertion sort; neighbor lists are small (<= 2M+1).
	for i := 1; i < len(c); i++ {
		for j := i; j > 0 && less(c[j], c[j-1]); j-- {
			c[j], c[j-1] = c[j-1], c[j]
		}
	}
}

func less(a, b Candidate) bool {
	if a.Distance != b.Distance {
		return a.Distance < b.Distance
	}
	return a.ID < b.ID
}

type minHeap []Candidate

func (h minHeap) Len() int            { return len(h) }
func (h minHeap) Less(i, j int) bool  { return less(h[i], h[j]) }
func (h minHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *minHeap) Push(x any) { *h = append(*h, x.(Candidate)) }
func (h *minHeap) Pop() any {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[:n-1]
	return x
}

type maxHeap []Candidate

func (h maxHeap) Len() int            { return len(h) }
func (h maxHeap) Less(i, j int) bool  { return less(h[j], h[i]) }
func (h maxHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *maxHeap) Push(x any) { *h = append(*h, x.(Candidate)) }
func (h *maxHeap) Pop() any {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[:n-1]
	return x
}
