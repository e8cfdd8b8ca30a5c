package transcript

import (
	"strings"

	"github.com/antzucaro/matchr"
)

// DefaultMaxCorrectionDistance is the default Damerau-Levenshtein bound for a
// vocabulary substitution.
const DefaultMaxCorrectionDistance = 2

// CorrectorOption is a functional option for configuring a [Corrector].
type CorrectorOption func(*Corrector)

// WithMaxDistance overrides the maximum edit distance for a substitution.
// Values below 1 keep the default.
func WithMaxDistance(n int) CorrectorOption {
	return func(c *Corrector) {
		if n >= 1 {
			c.maxDistance = n
		}
	}
}

// vocabEntry is a configured vocabulary word with its precomputed Double
// Metaphone codes.
type vocabEntry struct {
	word      string
	lower     string
	primary   string
	secondary string
}

// Corrector substitutes words the backend commonly mishears with entries
// from a configured vocabulary. A token is replaced when a vocabulary entry
// shares a Double Metaphone code with it and the Damerau-Levenshtein distance
// between the two is within the configured bound. With an empty vocabulary
// every call is a no-op.
//
// Corrector is read-only after construction and safe for concurrent use.
type Corrector struct {
	entries     []vocabEntry
	maxDistance int
}

// NewCorrector builds a [Corrector] from the vocabulary word list. Blank
// entries are ignored.
func NewCorrector(vocabulary []string, opts ...CorrectorOption) *Corrector {
	c := &Corrector{maxDistance: DefaultMaxCorrectionDistance}
	for _, o := range opts {
		o(c)
	}
	for _, word := range vocabulary {
		word = strings.TrimSpace(word)
		if word == "" {
			continue
		}
		lower := strings.ToLower(word)
		primary, secondary := matchr.DoubleMetaphone(lower)
		c.entries = append(c.entries, vocabEntry{
			word:      word,
			lower:     lower,
			primary:   primary,
			secondary: secondary,
		})
	}
	return c
}

// Apply returns text with misheard tokens replaced by their closest
// vocabulary entries. Surrounding punctuation on a token is preserved.
func (c *Corrector) Apply(text string) string {
	if len(c.entries) == 0 {
		return text
	}
	tokens := strings.Fields(text)
	if len(tokens) == 0 {
		return text
	}

	changed := false
	for i, token := range tokens {
		core, prefix, suffix := splitPunct(token)
		if core == "" {
			continue
		}
		if replacement, ok := c.match(core); ok {
			tokens[i] = prefix + replacement + suffix
			changed = true
		}
	}
	if !changed {
		return text
	}
	return strings.Join(tokens, " ")
}

// match finds the vocabulary entry closest to word, or reports no match.
// Exact vocabulary words (case-insensitive) are left alone so that already
// correct text is never rewritten.
func (c *Corrector) match(word string) (string, bool) {
	lower := strings.ToLower(word)
	for _, e := range c.entries {
		if e.lower == lower {
			return "", false
		}
	}

	primary, secondary := matchr.DoubleMetaphone(lower)

	best := ""
	bestDist := c.maxDistance + 1
	for _, e := range c.entries {
		if !codesOverlap(primary, secondary, e.primary, e.secondary) {
			continue
		}
		d := matchr.DamerauLevenshtein(lower, e.lower)
		if d < bestDist {
			bestDist = d
			best = e.word
		}
	}
	if best == "" {
		return "", false
	}
	return best, true
}

// codesOverlap reports whether any non-empty phonetic code is shared.
func codesOverlap(p1, s1, p2, s2 string) bool {
	for _, a := range []string{p1, s1} {
		if a == "" {
			continue
		}
		if a == p2 || a == s2 {
			return true
		}
	}
	return false
}

// splitPunct separates leading and trailing punctuation from a token.
func splitPunct(token string) (core, prefix, suffix string) {
	start := 0
	for start < len(token) && isPunct(token[start]) {
		start++
	}
	end := len(token)
	for end > start && isPunct(token[end-1]) {
		end--
	}
	return token[start:end], token[:start], token[end:]
}

func isPunct(b byte) bool {
	switch b {
	case '.', ',', '!', '?', ';', ':', '"', '\'', '(', ')', '[', ']':
		return true
	}
	return false
}
