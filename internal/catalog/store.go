package catalog

import (
	"github.com/cardseer/cardseer/internal/domain"
	"github.com/cardseer/cardseer/internal/index"
)

// Store owns the card lookup table and the similarity index built over it.
// Construct one per corpus; there is no package-level state.
type Store struct {
	byName map[string]domain.Card
	names  []string
	index  *index.SimilarityIndex
}

// NewStore builds a card store. Later duplicates of a name override earlier
// ones, matching dump order.
func NewStore(cards []domain.Card, idx *index.SimilarityIndex) *Store {
	byName := make(map[string]domain.Card, len(cards))
	names := make([]string, 0, len(cards))
	for _, c := range cards {
		if _, exists := byName[c.Name]; !exists {
			names = append(names, c.Name)
		}
		byName[c.Name] = c
	}
	return &Store{byName: byName, names: names, index: idx}
}

// Card returns the card with the given name.
func (s *Store) Card(name string) (domain.Card, bool) {
	c, ok := s.byName[name]
	return c, ok
}

// Cards resolves labels to cards, skipping unknown names.
func (s *Store) Cards(names []string) []domain.Card {
	out := make([]domain.Card, 0, len(names))
	for _, name := range names {
		if c, ok := s.byName[name]; ok {
			out = append(out, c)
		}
	}
	return out
}

// Len returns the number of distinct cards.
func (s *Store) Len() int { return len(s.byName) }

// Index returns the similarity index over this corpus.
func (s *Store) Index() *index.SimilarityIndex { return s.index }

// Entries returns the (label, text) pairs for index construction, in load
// order.
func (s *Store) Entries() []domain.IndexEntry {
	entries := make([]domain.IndexEntry, 0, len(s.names))
	for _, name := range s.names {
		entries = append(entries, domain.IndexEntry{
			Label: name,
			Text:  s.byName[name].ToText(false),
		})
	}
	return entries
}

// RulesStore owns the rules document table and its similarity index.
type RulesStore struct {
	byName map[string]domain.Document
	names  []string
	index  *index.SimilarityIndex
}

// NewRulesStore builds a rules store.
func NewRulesStore(docs []domain.Document, idx *index.SimilarityIndex) *RulesStore {
	byName := make(map[string]domain.Document, len(docs))
	names := make([]string, 0, len(docs))
	for _, d := range docs {
		if _, exists := byName[d.Name]; !exists {
			names = append(names, d.Name)
		}
		byName[d.Name] = d
	}
	return &RulesStore{byName: byName, names: names, index: idx}
}

// Document returns the document with the given name.
func (s *RulesStore) Document(name string) (domain.Document, bool) {
	d, ok := s.byName[name]
	return d, ok
}

// Documents resolves labels to documents, skipping unknown names.
func (s *RulesStore) Documents(names []string) []domain.Document {
	out := make([]domain.Document, 0, len(names))
	for _, name := range names {
		if d, ok := s.byName[name]; ok {
			out = append(out, d)
		}
	}
	return out
}

// Len returns the number of distinct documents.
func (s *RulesStore) Len() int { return len(s.byName) }

// Index returns the similarity index over this corpus.
func (s *RulesStore) Index() *index.SimilarityIndex { return s.index }

// Entries returns the (label, text) pairs for index construction.
func (s *RulesStore) Entries() []domain.IndexEntry {
	entries := make([]domain.IndexEntry, 0, len(s.names))
	for _, name := range s.names {
		entries = append(entries, domain.IndexEntry{
			Label: name,
			Text:  s.byName[name].Text,
		})
	}
	return entries
}
