package catalog

import (
	"strings"
	"testing"

	"github.com/cardseer/cardseer/internal/domain"
)

func testCards() []domain.Card {
	return []domain.Card{
		{ID: "1", Name: "Lightning Bolt", TypeLine: "Instant", OracleText: "3 damage.", ImageURL: "u1"},
		{ID: "2", Name: "Brainstorm", TypeLine: "Instant", OracleText: "Draw three.", ImageURL: "u2"},
	}
}

func TestStore_Lookup(t *testing.T) {
	s := NewStore(testCards(), nil)

	if s.Len() != 2 {
		t.Fatalf("len: got %d, want 2", s.Len())
	}
	c, ok := s.Card("Brainstorm")
	if !ok || c.ID != "2" {
		t.Errorf("lookup: got %v, %v", c, ok)
	}
	if _, ok := s.Card("Nonexistent"); ok {
		t.Error("expected miss for unknown name")
	}
}

func TestStore_CardsSkipsUnknown(t *testing.T) {
	s := NewStore(testCards(), nil)

	got := s.Cards([]string{"Brainstorm", "Nonexistent", "Lightning Bolt"})
	if len(got) != 2 {
		t.Fatalf("cards: got %d, want 2", len(got))
	}
	if got[0].Name != "Brainstorm" || got[1].Name != "Lightning Bolt" {
		t.Errorf("order: got %v", got)
	}
}

func TestStore_EntriesInLoadOrder(t *testing.T) {
	s := NewStore(testCards(), nil)

	entries := s.Entries()
	if len(entries) != 2 {
		t.Fatalf("entries: got %d, want 2", len(entries))
	}
	if entries[0].Label != "Lightning Bolt" || entries[1].Label != "Brainstorm" {
		t.Errorf("order: got %v", entries)
	}
	if !strings.Contains(entries[0].Text, "3 damage.") {
		t.Errorf("entry text missing oracle text: %q", entries[0].Text)
	}
}

func TestStore_DuplicateNameLastWins(t *testing.T) {
	cards := append(testCards(), domain.Card{ID: "3", Name: "Brainstorm", ImageURL: "u3"})
	s := NewStore(cards, nil)

	if s.Len() != 2 {
		t.Fatalf("len: got %d, want 2", s.Len())
	}
	c, _ := s.Card("Brainstorm")
	if c.ID != "3" {
		t.Errorf("expected later duplicate to win, got %v", c)
	}
}

func TestRulesStore_Lookup(t *testing.T) {
	docs := []domain.Document{
		{Name: "Deathtouch", Text: "702.2 text", URL: "u1", Keywords: []string{"deathtouch"}},
		{Name: "Flying", Text: "702.9 text", URL: "u2"},
	}
	s := NewRulesStore(docs, nil)

	if s.Len() != 2 {
		t.Fatalf("len: got %d, want 2", s.Len())
	}
	d, ok := s.Document("Flying")
	if !ok || d.URL != "u2" {
		t.Errorf("lookup: got %v, %v", d, ok)
	}

	entries := s.Entries()
	if entries[0].Label != "Deathtouch" || entries[0].Text != "702.2 text" {
		t.Errorf("entries: got %v", entries)
	}

	got := s.Documents([]string{"Flying", "Unknown"})
	if len(got) != 1 || got[0].Name != "Flying" {
		t.Errorf("documents: got %v", got)
	}
}
