package domain

import (
	"context"
	"errors"
	"strings"
	"testing"
)

type stubEmbedder struct {
	result EmbeddingResult
	err    error
	got    string
}

func (s *stubEmbedder) Embed(_ context.Context, text string) (EmbeddingResult, error) {
	s.got = text
	return s.result, s.err
}

func TestInstructionEmbedder_PrependsInstruction(t *testing.T) {
	inner := &stubEmbedder{result: EmbeddingResult{Embedding: []float32{0.1, 0.2, 0.3}}}
	emb := NewInstructionEmbedder(inner, "search_document: ")

	result, err := emb.Embed(context.Background(), "lightning bolt")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if inner.got != "search_document: lightning bolt" {
		t.Errorf("expected prepended text, got %q", inner.got)
	}
	if len(result.Embedding) != 3 {
		t.Errorf("expected 3-element vector, got %d", len(result.Embedding))
	}
}

func TestInstructionEmbedder_ErrorPropagation(t *testing.T) {
	innerErr := errors.New("provider down")
	emb := NewInstructionEmbedder(&stubEmbedder{err: innerErr}, "q: ")

	_, err := emb.Embed(context.Background(), "hello")
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, innerErr) {
		t.Errorf("expected wrapped inner error, got %v", err)
	}
}

func TestIndexEntry_Validate(t *testing.T) {
	cases := []struct {
		name    string
		entry   IndexEntry
		wantErr bool
	}{
		{"ok", IndexEntry{Label: "Doubling Season", Text: "some oracle text"}, false},
		{"missing label", IndexEntry{Text: "text"}, true},
		{"missing text", IndexEntry{Label: "label"}, true},
		{"empty", IndexEntry{}, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.entry.Validate()
			if tc.wantErr && !errors.Is(err, ErrMalformedEntry) {
				t.Errorf("expected ErrMalformedEntry, got %v", err)
			}
			if !tc.wantErr && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestCard_ToText(t *testing.T) {
	card := Card{
		Name:      "Chatterfang, Squirrel General",
		ManaCost:  "{2}{G}",
		TypeLine:  "Legendary Creature - Squirrel Warrior",
		Power:     "3",
		Toughness: "3",
		Keywords:  []string{"Forestwalk"},
		OracleText: "Forestwalk\nIf one or more tokens would be created, " +
			"those tokens plus that many 1/1 green Squirrel creature tokens are created instead.",
	}
	text := card.ToText(false)
	for _, want := range []string{"Chatterfang", "type: Legendary", "power/toughness: 3/3", "keywords: Forestwalk"} {
		if !strings.Contains(text, want) {
			t.Errorf("card text missing %q:\n%s", want, text)
		}
	}
}
