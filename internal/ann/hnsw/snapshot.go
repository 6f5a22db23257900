package hnsw

import (
	"bytes"
	"encoding/gob"
	"fmt"
	"math"
	"math/rand"
)

// snapshot is the serialized form of a Graph. Magnitudes are recomputed on
// load rather than stored.
type snapshot struct {
	Config     Config
	Dim        int
	Vectors    [][]float32
	Layers     []map[int][]int
	EntryPoint int
	MaxLevel   int
}

// Snapshot serializes the graph.
func (g *Graph) Snapshot() ([]byte, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	snap := snapshot{
		Config:     g.cfg,
		Dim:        g.dim,
		Vectors:    g.vectors,
		Layers:     g.layers,
		EntryPoint: g.entryPoint,
		MaxLevel:   g.maxLevel,
	}

	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(snap); err != nil {
		return nil, fmt.Errorf("failed to encode graph: %w", err)
	}
	return buf.Bytes(), nil
}

// FromSnapshot reconstructs a graph from data produced by Snapshot. The
// restored graph answers queries identically to the original.
func FromSnapshot(data []byte) (*Graph, error) {
	var snap snapshot
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&snap); err != nil {
		return nil, fmt.Errorf("failed to decode graph: %w", err)
	}
	if snap.Config.M <= 0 {
		return nil, fmt.Errorf("invalid snapshot: M=%d", snap.Config.M)
	}

	g := &Graph{
		cfg:        snap.Config,
		levelMult:  1 / math.Log(float64(snap.Config.M)),
		rng:        rand.New(rand.NewSource(rand.Int63())),
		dim:        snap.Dim,
		vectors:    snap.Vectors,
		layers:     snap.Layers,
		entryPoint: snap.EntryPoint,
		maxLevel:   snap.MaxLevel,
	}
	g.magnitudes = make([]float64, len(g.vectors))
	for i, v := range g.vectors {
		g.magnitudes[i] = Magnitude(v)
	}
	return g, nil
}
