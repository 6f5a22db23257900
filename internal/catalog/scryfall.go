// Package catalog loads the card and rules corpora and owns the lookup
// tables the retrieval service answers from.
package catalog

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/cardseer/cardseer/internal/domain"
)

// blockedTypeLines are dump entries that are not playable cards.
var blockedTypeLines = map[string]bool{
	"Card":     true,
	"Stickers": true,
	"Hero":     true,
}

// ParseError reports a card dump entry that does not match the expected
// shape. Index is the entry's position in the dump; -1 when the whole file
// failed to decode.
type ParseError struct {
	Index int
	Field string
	Err   error
}

func (e *ParseError) Error() string {
	if e.Index < 0 {
		return fmt.Sprintf("card dump: %v", e.Err)
	}
	return fmt.Sprintf("card dump entry %d: field %q: %v", e.Index, e.Field, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// scryfallCard mirrors the subset of the Scryfall bulk dump schema the
// service consumes. Power and toughness stay strings: the dump holds values
// like "*" and "1+*".
type scryfallCard struct {
	ID            string   `json:"id"`
	Name          string   `json:"name"`
	Layout        string   `json:"layout"`
	ManaCost      string   `json:"mana_cost"`
	TypeLine      string   `json:"type_line"`
	OracleText    string   `json:"oracle_text"`
	Power         string   `json:"power"`
	Toughness     string   `json:"toughness"`
	ColorIdentity []string `json:"color_identity"`
	Keywords      []string `json:"keywords"`
	ImageURIs     struct {
		Large string `json:"large"`
	} `json:"image_uris"`
	Rulings []string `json:"rulings"`
	Prices  struct {
		EUR string `json:"eur"`
	} `json:"prices"`
}

// LoadCards reads a Scryfall-shaped JSON dump and returns the playable
// cards: entries with layout "normal" and a type line outside the blocked
// set. Shape mismatches surface as *ParseError.
func LoadCards(path string) ([]domain.Card, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read card dump: %w", err)
	}

	var raw []scryfallCard
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, &ParseError{Index: -1, Err: err}
	}

	var cards []domain.Card
	for i, sc := range raw {
		if sc.Layout != "normal" || blockedTypeLines[sc.TypeLine] {
			continue
		}
		card, err := sc.toCard(i)
		if err != nil {
			return nil, err
		}
		cards = append(cards, card)
	}
	return cards, nil
}

func (sc scryfallCard) toCard(idx int) (domain.Card, error) {
	if sc.ID == "" {
		return domain.Card{}, &ParseError{Index: idx, Field: "id", Err: errMissing}
	}
	if sc.Name == "" {
		return domain.Card{}, &ParseError{Index: idx, Field: "name", Err: errMissing}
	}
	if sc.ImageURIs.Large == "" {
		return domain.Card{}, &ParseError{Index: idx, Field: "image_uris.large", Err: errMissing}
	}

	return domain.Card{
		ID:            sc.ID,
		Name:          sc.Name,
		ManaCost:      sc.ManaCost,
		TypeLine:      sc.TypeLine,
		OracleText:    sc.OracleText,
		ImageURL:      sc.ImageURIs.Large,
		Power:         sc.Power,
		Toughness:     sc.Toughness,
		ColorIdentity: sc.ColorIdentity,
		Keywords:      sc.Keywords,
		Rulings:       sc.Rulings,
		Price:         parsePrice(sc.Prices.EUR),
	}, nil
}

var errMissing = fmt.Errorf("missing")

func parsePrice(s string) float64 {
	if s == "" {
		return 0
	}
	var price float64
	if _, err := fmt.Sscanf(s, "%f", &price); err != nil {
		return 0
	}
	return price
}

// LoadDocuments reads a JSON list of rules documents (name, text, url,
// metadata, keywords).
func LoadDocuments(path string) ([]domain.Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read rules dump: %w", err)
	}

	var docs []domain.Document
	if err := json.Unmarshal(data, &docs); err != nil {
		return nil, &ParseError{Index: -1, Err: err}
	}
	for i, d := range docs {
		if d.Name == "" || d.Text == "" {
			return nil, &ParseError{Index: i, Field: "name/text", Err: errMissing}
		}
	}
	return docs, nil
}
