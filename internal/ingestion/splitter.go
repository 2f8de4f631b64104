package ingestion

import (
	"strings"
	"unicode/utf8"
)

// separators lists break points in preference order: paragraph breaks first,
// then line breaks, sentence ends, and finally plain spaces.
var separators = []string{"\n\n", "\n", ". ", "! ", "? ", " "}

// Split cuts text into chunks of at most size bytes with the given overlap
// between consecutive chunks. Cuts prefer natural boundaries (paragraphs,
// lines, sentence ends, spaces) within the back half of the window; only
// text with no usable boundary is cut mid-word. Chunks are trimmed of
// surrounding whitespace and empty chunks are dropped.
func Split(text string, size, overlap int) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	if size <= 0 {
		size = 1000
	}
	if overlap < 0 {
		overlap = 0
	}
	if overlap >= size {
		overlap = size / 5
	}
	if len(text) <= size {
		return []string{text}
	}

	var chunks []string
	start := 0
	for start < len(text) {
		end := start + size
		if end >= len(text) {
			if chunk := strings.TrimSpace(text[start:]); chunk != "" {
				chunks = append(chunks, chunk)
			}
			break
		}

		cut := findBreak(text, start, end)
		if chunk := strings.TrimSpace(text[start:cut]); chunk != "" {
			chunks = append(chunks, chunk)
		}

		next := cut - overlap
		if next <= start {
			next = cut // overlap would stall — skip it for this chunk
		}
		for next < len(text) && !utf8.RuneStart(text[next]) {
			next++
		}
		start = next
	}

	return chunks
}

// findBreak returns the best cut position in (start, end]. It searches the
// back half of the window for each separator in preference order and falls
// back to a hard cut at a rune boundary when none is found.
func findBreak(text string, start, end int) int {
	floor := start + (end-start)/2
	for _, sep := range separators {
		if idx := strings.LastIndex(text[floor:end], sep); idx >= 0 {
			return floor + idx + len(sep)
		}
	}
	// Hard cut — back up so a multi-byte rune is never split.
	for end > start && !utf8.RuneStart(text[end]) {
		end--
	}
	if end == start {
		return start + 1
	}
	return end
}
