package domain

import "strings"

// Card is a single catalog entry in the card corpus.
// Immutable once loaded; the catalog only grows.
type Card struct {
	ID            string   `json:"id"`
	Name          string   `json:"name"`
	ManaCost      string   `json:"mana_cost"`
	TypeLine      string   `json:"type_line"`
	OracleText    string   `json:"oracle_text"`
	ImageURL      string   `json:"image_url"`
	Power         string   `json:"power,omitempty"`
	Toughness     string   `json:"toughness,omitempty"`
	ColorIdentity []string `json:"color_identity,omitempty"`
	Keywords      []string `json:"keywords,omitempty"`
	Rulings       []string `json:"rulings,omitempty"`
	Price         float64  `json:"price,omitempty"`
}

// ToText renders the card as the flat text form used for embedding and prompts.
func (c Card) ToText(includePrice bool) string {
	lines := []string{c.Name}
	lines = append(lines, "type: "+c.TypeLine)
	lines = append(lines, "cost: "+c.ManaCost)
	if c.Power != "" && c.Power != "0" && c.Toughness != "" && c.Toughness != "0" {
		lines = append(lines, "power/toughness: "+c.Power+"/"+c.Toughness)
	}
	if len(c.Keywords) > 0 {
		lines = append(lines, "keywords: "+strings.Join(c.Keywords, " "))
	}
	if len(c.ColorIdentity) > 0 {
		lines = append(lines, "color identity: "+strings.Join(c.ColorIdentity, " "))
	}
	lines = append(lines, c.OracleText)
	if len(c.Rulings) > 0 {
		lines = append(lines, "Rulings for this card: ")
		lines = append(lines, strings.Join(c.Rulings, "\n"))
	}
	return strings.Join(lines, "\n")
}
