package cardseer

import "github.com/cardseer/cardseer/internal/domain"

// Role identifies the author of a chat message. It controls how matched card
// mentions are rewritten: assistant text keeps the author's exact wording,
// user text is normalized to the canonical card name.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// Card is a single card from the loaded catalog.
type Card struct {
	ID            string
	Name          string
	ManaCost      string
	TypeLine      string
	OracleText    string
	ImageURL      string
	Power         string
	Toughness     string
	ColorIdentity []string
	Keywords      []string
	Rulings       []string
	Price         float64
}

// Document is a rules passage from the loaded rules file.
type Document struct {
	Name     string
	Text     string
	URL      string
	Metadata map[string]string
	Keywords []string
}

// ScoredCard is a retrieval hit with its cosine distance.
type ScoredCard struct {
	Card     Card
	Distance float64
}

// ScoredDocument is a rules retrieval hit with its cosine distance.
type ScoredDocument struct {
	Document Document
	Distance float64
}

// Annotation carries text with card mentions rewritten as markdown links,
// plus the cards (and optionally rules) it references.
type Annotation struct {
	Text  string
	Cards []Card
	Rules []Document
}

func cardFromDomain(c domain.Card) Card {
	return Card{
		ID:            c.ID,
		Name:          c.Name,
		ManaCost:      c.ManaCost,
		TypeLine:      c.TypeLine,
		OracleText:    c.OracleText,
		ImageURL:      c.ImageURL,
		Power:         c.Power,
		Toughness:     c.Toughness,
		ColorIdentity: c.ColorIdentity,
		Keywords:      c.Keywords,
		Rulings:       c.Rulings,
		Price:         c.Price,
	}
}

func documentFromDomain(d domain.Document) Document {
	return Document{
		Name:     d.Name,
		Text:     d.Text,
		URL:      d.URL,
		Metadata: d.Metadata,
		Keywords: d.Keywords,
	}
}
