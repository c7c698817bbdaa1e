package chunker

import "strings"

// Chunker splits document text into overlapping windows. Window boundaries
// snap forward to the nearest sentence-terminating period within Lookahead
// characters of the nominal cut, so chunks avoid splitting mid-sentence
// when a period is nearby.
type Chunker struct {
	size      int
	overlap   int
	lookahead int
}

// New returns a Chunker. Invalid arguments fall back to the shipped
// defaults (size 1000, overlap 30, lookahead 100).
func New(size, overlap, lookahead int) *Chunker {
	if size <= 0 {
		size = 1000
	}
	if overlap < 0 || overlap >= size {
		overlap = 30
	}
	if lookahead < 0 {
		lookahead = 100
	}
	return &Chunker{size: size, overlap: overlap, lookahead: lookahead}
}

// Split produces the chunk sequence for text. Empty input yields nil.
// Consecutive chunks share the trailing overlap characters of the previous
// chunk; the final chunk may be shorter than the window size.
func (c *Chunker) Split(text string) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	if len(text) <= c.size {
		return []string{text}
	}
	var chunks []string
	for start := 0; start < len(text); {
		end := start + c.size
		if end >= len(text) {
			chunks = append(chunks, text[start:])
			break
		}
		cut := c.snap(text, end)
		chunks = append(chunks, text[start:cut])
		if cut >= len(text) {
			break
		}
		next := cut - c.overlap
		if next <= start {
			// overlap would stall progress on a tiny remainder
			next = cut
		}
		start = next
	}
	return chunks
}

// snap moves the cut forward to just past the first period within the
// lookahead window. Without one the nominal boundary stands, even if it
// lands mid-word.
func (c *Chunker) snap(text string, end int) int {
	limit := end + c.lookahead
	if limit > len(text) {
		limit = len(text)
	}
	if i := strings.IndexByte(text[end:limit], '.'); i >= 0 {
		return end + i + 1
	}
	return end
}
