package domain

// Document is a rules passage or other reference text in the searchable corpus.
type Document struct {
	Name     string            `json:"name"` // display name
	Text     string            `json:"text"` // text used for vectorizing
	URL      string            `json:"url"`
	Metadata map[string]string `json:"metadata,omitempty"`
	Keywords []string          `json:"keywords,omitempty"`
}
