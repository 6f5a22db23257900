// Package match locates catalog entity mentions in free text with fuzzy
// token-window matching and rewrites them as markdown links.
package match

import (
	"fmt"
	"sort"
	"strings"
	"unicode"

	"github.com/cardseer/cardseer/internal/domain"
	"github.com/cardseer/cardseer/internal/metrics"
)

// DefaultMinRatio is the accept threshold for the fuzzy ratio.
const DefaultMinRatio = 85

// defaultDenylist holds generic game terms that collide with card names.
// Spans whose matched text lowercases to one of these are suppressed.
var defaultDenylist = []string{
	"commander", "flying", "strategy", "consider", "will", "vigilance",
	"lifelink", "remove", "disrupt", "deal damage", "sacrifice",
	"sacrificed", "persist", "battlefield", "sorry", "flash", "x", "game",
}

// Candidate is a catalog entity the matcher may link: the canonical label
// and the URL the mention should point at.
type Candidate struct {
	Label string
	URL   string
}

// Match is one linked entity: the canonical label, the text that matched,
// and the target URL.
type Match struct {
	Label string
	Text  string
	URL   string
}

// Matcher finds candidate mentions in text. It holds only configuration;
// each Annotate call builds its patterns from the candidates it is given.
type Matcher struct {
	minRatio int
	denylist map[string]bool
}

// New creates a matcher. minRatio <= 0 falls back to DefaultMinRatio;
// extraDenylist terms extend the built-in list.
func New(minRatio int, extraDenylist []string) *Matcher {
	if minRatio <= 0 {
		minRatio = DefaultMinRatio
	}
	deny := make(map[string]bool, len(defaultDenylist)+len(extraDenylist))
	for _, term := range defaultDenylist {
		deny[term] = true
	}
	for _, term := range extraDenylist {
		deny[strings.ToLower(term)] = true
	}
	return &Matcher{minRatio: minRatio, denylist: deny}
}

// Annotate rewrites candidate mentions in text as [display](url) links and
// returns the rewritten text plus the matched candidates, deduplicated by
// label in first-occurrence order. Display is the matched text verbatim for
// RoleAssistant and the canonical label otherwise. Text outside matched
// spans is preserved byte-exact; an empty candidate list returns the input
// untouched.
func (m *Matcher) Annotate(text string, candidates []Candidate, role domain.Role) (string, []Match) {
	if len(candidates) == 0 {
		return text, nil
	}

	patterns := buildPatterns(candidates)
	tokens := tokenize(text)

	var spans []span
	for _, p := range patterns {
		spans = append(spans, m.findPattern(text, tokens, p)...)
	}
	spans = m.applyDenylist(spans)
	spans = filterSpans(spans)

	metrics.MatcherSpansAccepted.WithLabelValues(string(role)).Add(float64(len(spans)))

	return rewrite(text, spans, role), collectMatches(spans)
}

// pattern is one searchable alias of a candidate.
type pattern struct {
	text      string
	lower     string
	numTokens int
	cand      Candidate
}

// buildPatterns derives the alias patterns for each candidate: the label
// itself, the pre-comma short form ("Chatterfang, Squirrel General" →
// "Chatterfang"), and each side of a split card name ("Fire // Ice" →
// "Fire", "Ice"). The first candidate to claim an alias keeps it.
func buildPatterns(candidates []Candidate) []pattern {
	var out []pattern
	seen := map[string]bool{}

	add := func(text string, cand Candidate) {
		text = strings.TrimSpace(text)
		if text == "" {
			return
		}
		lower := strings.ToLower(text)
		if seen[lower] {
			return
		}
		seen[lower] = true
		out = append(out, pattern{
			text:      text,
			lower:     lower,
			numTokens: len(strings.Fields(text)),
			cand:      cand,
		})
	}

	for _, cand := range candidates {
		add(cand.Label, cand)
		if before, _, found := strings.Cut(cand.Label, ","); found {
			add(before, cand)
		}
		if strings.Contains(cand.Label, "//") {
			for _, side := range strings.Split(cand.Label, "//") {
				add(side, cand)
			}
		}
	}
	return out
}

// token is a whitespace-delimited run of text, as byte offsets.
type token struct {
	start, end int
}

func tokenize(text string) []token {
	var tokens []token
	start := -1
	for i, r := range text {
		if unicode.IsSpace(r) {
			if start >= 0 {
				tokens = append(tokens, token{start, i})
				start = -1
			}
		} else if start < 0 {
			start = i
		}
	}
	if start >= 0 {
		tokens = append(tokens, token{start, len(text)})
	}
	return tokens
}

// span is an accepted mention: byte offsets into the source text, the
// matched text, and the candidate it resolves to.
type span struct {
	start, end int
	text       string
	cand       Candidate
}

// findPattern slides a window of the pattern's token count across the text
// and accepts windows whose fuzzy ratio clears the threshold. Edge
// punctuation is trimmed from the window before scoring so "Chatterfang,"
// still matches "Chatterfang".
func (m *Matcher) findPattern(text string, tokens []token, p pattern) []span {
	if p.numTokens == 0 {
		return nil
	}

	var spans []span
	for i := 0; i+p.numTokens <= len(tokens); i++ {
		start := tokens[i].start
		end := tokens[i+p.numTokens-1].end
		start, end = trimEdgePunct(text, start, end)
		if start >= end {
			continue
		}

		window := text[start:end]
		if ratio(strings.ToLower(window), p.lower) >= m.minRatio {
			spans = append(spans, span{start: start, end: end, text: window, cand: p.cand})
		}
	}
	return spans
}

// trimEdgePunct narrows [start, end) past leading and trailing punctuation.
func trimEdgePunct(text string, start, end int) (int, int) {
	window := text[start:end]
	trimmed := strings.TrimLeftFunc(window, unicode.IsPunct)
	start += len(window) - len(trimmed)
	trimmed = strings.TrimRightFunc(trimmed, unicode.IsPunct)
	return start, start + len(trimmed)
}

func (m *Matcher) applyDenylist(spans []span) []span {
	out := spans[:0]
	for _, s := range spans {
		if m.denylist[strings.ToLower(s.text)] {
			continue
		}
		out = append(out, s)
	}
	return out
}

// filterSpans resolves overlaps: longest span wins, ties go to the earliest
// start. Returns the survivors ordered by start.
func filterSpans(spans []span) []span {
	sorted := make([]span, len(spans))
	copy(sorted, spans)
	sort.SliceStable(sorted, func(i, j int) bool {
		li, lj := sorted[i].end-sorted[i].start, sorted[j].end-sorted[j].start
		if li != lj {
			return li > lj
		}
		return sorted[i].start < sorted[j].start
	})

	var kept []span
	for _, s := range sorted {
		overlaps := false
		for _, k := range kept {
			if s.start < k.end && k.start < s.end {
				overlaps = true
				break
			}
		}
		if !overlaps {
			kept = append(kept, s)
		}
	}

	sort.Slice(kept, func(i, j int) bool { return kept[i].start < kept[j].start })
	return kept
}

// rewrite replaces each span with a markdown link. spans must be
// non-overlapping and ordered by start.
func rewrite(text string, spans []span, role domain.Role) string {
	if len(spans) == 0 {
		return text
	}

	var b strings.Builder
	prev := 0
	for _, s := range spans {
		b.WriteString(text[prev:s.start])

		display := s.cand.Label
		if role == domain.RoleAssistant {
			display = s.text
		}
		fmt.Fprintf(&b, "[%s](%s)", display, s.cand.URL)

		prev = s.end
	}
	b.WriteString(text[prev:])
	return b.String()
}

// collectMatches deduplicates spans by label, keeping first-occurrence
// order.
func collectMatches(spans []span) []Match {
	var out []Match
	seen := map[string]bool{}
	for _, s := range spans {
		if seen[s.cand.Label] {
			continue
		}
		seen[s.cand.Label] = true
		out = append(out, Match{Label: s.cand.Label, Text: s.text, URL: s.cand.URL})
	}
	return out
}
