// Package embed implements the chunker and the pure-function vectoriser
// wrapper described by the embedding component: text in, fixed-dimension
// vectors out. The vectoriser itself is an external collaborator (the
// model is a pure function); only its Go-side caller lives here.
package embed

import "unicode"

// DefaultMaxChars is the chunk window size in characters, approximating
// max-tokens=512 at roughly 4 characters per token.
const DefaultMaxChars = 2048

// DefaultOverlapChars is how much consecutive chunks overlap.
const DefaultOverlapChars = 200

// ChunkSpan is one character-window slice of a file's content.
type ChunkSpan struct {
	Text  string
	Start int
	End   int
}

// ChunkContent slides a maxChars window over content with overlapChars of
// overlap, snapping the right edge back to the nearest whitespace when not
// at the end of the content. The union of returned spans covers the full
// [0, len(content)) range.
func ChunkContent(content string, maxChars, overlapChars int) []ChunkSpan {
	if maxChars <= 0 {
		maxChars = DefaultMaxChars
	}
	if overlapChars < 0 || overlapChars >= maxChars {
		overlapChars = DefaultOverlapChars
	}

	runes := []rune(content)
	n := len(runes)
	if n == 0 {
		return nil
	}

	var spans []ChunkSpan
	start := 0
	for start < n {
		end := start + maxChars
		if end >= n {
			end = n
		} else {
			end = snapToWhitespace(runes, end)
		}
		if end <= start {
			end = start + maxChars
			if end > n {
				end = n
			}
		}

		spans = append(spans, ChunkSpan{
			Text:  string(runes[start:end]),
			Start: start,
			End:   end,
		})

		if end >= n {
			break
		}
		next := end - overlapChars
		if next <= start {
			next = end
		}
		start = next
	}

	return spans
}

// snapToWhitespace walks backward from idx looking for the nearest
// whitespace boundary, within a bounded lookback window so a single long
// unbroken token cannot collapse the chunk to nothing.
func snapToWhitespace(runes []rune, idx int) int {
	const lookback = 256
	limit := idx - lookback
	if limit < 0 {
		limit = 0
	}
	for i := idx; i > limit; i-- {
		if unicode.IsSpace(runes[i-1]) {
			return i
		}
	}
	return idx
}
