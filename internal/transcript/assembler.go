// Package transcript accumulates transcription results into a single growing
// transcript.
//
// Adjacent speech segments share padding audio, so the backend frequently
// repeats a few words across segment boundaries. [Assembler] removes that
// repetition with a greedy longest-suffix/prefix word match before appending.
// [Corrector] optionally substitutes misheard words against a configured
// vocabulary first.
package transcript

import (
	"strings"
	"sync"
)

// DefaultOverlapWindow is the number of trailing words retained for overlap
// comparison with the next incoming result.
const DefaultOverlapWindow = 10

// AssemblerOption is a functional option for configuring an [Assembler].
type AssemblerOption func(*Assembler)

// WithOverlapWindow overrides the trailing-word comparison window.
// Values below 1 keep the default.
func WithOverlapWindow(n int) AssemblerOption {
	return func(a *Assembler) {
		if n >= 1 {
			a.window = n
		}
	}
}

// WithCorrector applies c to every incoming text before the overlap merge.
func WithCorrector(c *Corrector) AssemblerOption {
	return func(a *Assembler) { a.corrector = c }
}

// Assembler merges arriving transcription results into one transcript.
// Committed text is never rewritten; dedup trimming applies only to incoming
// text. Safe for concurrent use, although results normally arrive from a
// single goroutine.
type Assembler struct {
	window    int
	corrector *Corrector

	mu   sync.Mutex
	text string
	// tail holds the last window words of text, lower-cased, for overlap
	// comparison.
	tail []string
}

// NewAssembler returns an empty [Assembler] with the supplied options.
func NewAssembler(opts ...AssemblerOption) *Assembler {
	a := &Assembler{window: DefaultOverlapWindow}
	for _, o := range opts {
		o(a)
	}
	return a
}

// Apply merges incoming into the transcript and returns the full text plus
// whether it changed. Empty or whitespace-only input and full duplicates
// leave the transcript untouched.
//
// The merge compares the trailing window of committed words against prefixes
// of the incoming words, case-insensitively, and drops the longest matching
// prefix before appending.
func (a *Assembler) Apply(incoming string) (string, bool) {
	if a.corrector != nil {
		incoming = a.corrector.Apply(incoming)
	}
	words := strings.Fields(incoming)
	if len(words) == 0 {
		a.mu.Lock()
		defer a.mu.Unlock()
		return a.text, false
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if a.text == "" {
		a.text = strings.Join(words, " ")
		a.updateTail(words)
		return a.text, true
	}

	k := a.overlap(words)
	if k == len(words) {
		// The whole result repeats what is already committed.
		return a.text, false
	}
	remainder := words[k:]
	a.text = a.text + " " + strings.Join(remainder, " ")
	a.updateTail(remainder)
	return a.text, true
}

// overlap returns the maximum k for which the last k committed words equal
// the first k incoming words, case-insensitively.
func (a *Assembler) overlap(words []string) int {
	max := len(a.tail)
	if len(words) < max {
		max = len(words)
	}
	for k := max; k >= 1; k-- {
		if equalFold(a.tail[len(a.tail)-k:], words[:k]) {
			return k
		}
	}
	return 0
}

// updateTail appends words to the tail window and trims it to the window size.
func (a *Assembler) updateTail(words []string) {
	for _, w := range words {
		a.tail = append(a.tail, strings.ToLower(w))
	}
	if excess := len(a.tail) - a.window; excess > 0 {
		a.tail = append(a.tail[:0], a.tail[excess:]...)
	}
}

// equalFold reports whether two equal-length word slices match
// case-insensitively.
func equalFold(a, b []string) bool {
	for i := range a {
		if a[i] != strings.ToLower(b[i]) {
			return false
		}
	}
	return true
}

// Text returns the committed transcript.
func (a *Assembler) Text() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.text
}

// Reset discards the transcript and the overlap window.
func (a *Assembler) Reset() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.text = ""
	a.tail = nil
}
