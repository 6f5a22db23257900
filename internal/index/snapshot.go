package index

import (
	"bytes"
	"encoding/gob"
	"fmt"

	"github.com/cardseer/cardseer/internal/ann/hnsw"
	"github.com/cardseer/cardseer/internal/domain"
)

// snapshotBlob is the serialized form of a SimilarityIndex: the graph blob
// plus the id→label table.
type snapshotBlob struct {
	Graph  []byte
	Labels []string
}

// Snapshot serializes the index. A restored index answers queries
// identically.
func (s *SimilarityIndex) Snapshot() ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	graphData, err := s.graph.Snapshot()
	if err != nil {
		return nil, fmt.Errorf("snapshot index %q: %w", s.name, err)
	}

	blob := snapshotBlob{
		Graph:  graphData,
		Labels: s.labels,
	}
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(blob); err != nil {
		return nil, fmt.Errorf("encode snapshot %q: %w", s.name, err)
	}
	return buf.Bytes(), nil
}

// Restore replaces the index contents with a snapshot produced by Snapshot.
// Undecodable or inconsistent data maps to domain.ErrSnapshotCorrupt.
func (s *SimilarityIndex) Restore(data []byte) error {
	var blob snapshotBlob
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&blob); err != nil {
		return fmt.Errorf("decode snapshot %q: %v: %w", s.name, err, domain.ErrSnapshotCorrupt)
	}

	graph, err := hnsw.FromSnapshot(blob.Graph)
	if err != nil {
		return fmt.Errorf("restore graph %q: %v: %w", s.name, err, domain.ErrSnapshotCorrupt)
	}
	if graph.Len() != len(blob.Labels) {
		return fmt.Errorf("snapshot %q: %d vectors vs %d labels: %w",
			s.name, graph.Len(), len(blob.Labels), domain.ErrSnapshotCorrupt)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.graph = graph
	s.labels = blob.Labels
	return nil
}
