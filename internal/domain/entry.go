package domain

// IndexEntry is one (label, text) pair submitted for embedding and indexing.
// Label must be unique within a catalog; Text is what gets embedded.
type IndexEntry struct {
	Label string
	Text  string
}

// Validate checks the required fields. A missing label or text is a caller
// programming error surfaced as ErrMalformedEntry.
func (e IndexEntry) Validate() error {
	if e.Label == "" || e.Text == "" {
		return ErrMalformedEntry
	}
	return nil
}

// ScoredLabel is a ranked retrieval hit: a catalog label with its cosine
// distance to the query (smaller is closer, range [0, 2]).
type ScoredLabel struct {
	Label    string
	Distance float64
}
