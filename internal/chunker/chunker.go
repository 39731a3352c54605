// Package chunker splits document text into overlapping fixed-size windows.
package chunker

import "strings"

// Chunker splits text into overlapping rune-based windows. Lengths are in
// runes so that non-ASCII corpora (the common case for us) chunk the same
// way regardless of encoding width.
type Chunker struct {
	minLen  int
	maxLen  int
	overlap int
}

// New creates a chunker. minLen and maxLen bound the window size; overlap is
// the number of runes shared by consecutive windows.
func New(minLen, maxLen, overlap int) *Chunker {
	return &Chunker{minLen: minLen, maxLen: maxLen, overlap: overlap}
}

// Normalize collapses all whitespace runs to a single space and trims.
func Normalize(text string) string {
	return strings.Join(strings.Fields(text), " ")
}

// Split normalizes text and cuts it into windows of up to maxLen runes.
// A window that would fall short of minLen mid-document is extended to
// minLen instead, so only the final chunk may be shorter. The start offset
// advances by (window length - overlap), clamped at zero. Pure function:
// identical input always yields identical chunks.
func (c *Chunker) Split(text string) []string {
	runes := []rune(Normalize(text))
	if len(runes) == 0 {
		return nil
	}
	var chunks []string
	i := 0
	for i < len(runes) {
		end := i + c.maxLen
		if end > len(runes) {
			end = len(runes)
		}
		if end-i < c.minLen && end < len(runes) {
			end = i + c.minLen
			if end > len(runes) {
				end = len(runes)
			}
		}
		chunks = append(chunks, string(runes[i:end]))
		if end == len(runes) {
			break
		}
		i = end - c.overlap
		if i < 0 {
			i = 0
		}
	}
	return chunks
}
