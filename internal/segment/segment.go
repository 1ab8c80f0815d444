// Package segment splits long replies into transport-safe chunks at
// paragraph or line boundaries.
package segment

import (
	"strings"
	"unicode/utf8"
)

// DefaultLimit keeps chunks safely under the 4096 character cap most chat
// transports enforce.
const DefaultLimit = 3500

// Split cuts text into chunks of at most limit runes. See SplitWithSeparators.
func Split(text string, limit int) []string {
	chunks, _ := SplitWithSeparators(text, limit)
	return chunks
}

// SplitWithSeparators cuts text into chunks of at most limit runes and also
// returns the newline runs removed at each cut, so that Join(chunks, seps)
// reproduces text exactly.
//
// Each cut prefers the last blank line inside the window, then the last line
// break, then a hard cut at the limit. Boundaries closer to the start than a
// quarter of the limit are ignored to avoid tiny fragments.
func SplitWithSeparators(text string, limit int) (chunks, seps []string) {
	if limit <= 0 {
		limit = DefaultLimit
	}
	if utf8.RuneCountInString(text) <= limit {
		return []string{text}, nil
	}

	rest := text
	for utf8.RuneCountInString(rest) > limit {
		window := runeOffset(rest, limit)
		minCut := runeOffset(rest, limit/4)
		head := rest[:window]

		cut := -1
		if i := strings.LastIndex(head, "\n\n"); i > 0 && i >= minCut {
			cut = i
		} else if i := strings.LastIndex(head, "\n"); i > 0 && i >= minCut {
			cut = i
		}

		if cut < 0 {
			chunks = append(chunks, head)
			seps = append(seps, "")
			rest = rest[window:]
			continue
		}

		end := cut
		for end < len(rest) && rest[end] == '\n' {
			end++
		}
		chunks = append(chunks, rest[:cut])
		seps = append(seps, rest[cut:end])
		rest = rest[end:]
	}
	if rest != "" {
		chunks = append(chunks, rest)
	}
	return chunks, seps
}

// Join reverses SplitWithSeparators. seps may be one shorter than chunks or,
// when the text ended on a boundary, the same length.
func Join(chunks, seps []string) string {
	var b strings.Builder
	for i, c := range chunks {
		b.WriteString(c)
		if i < len(seps) {
			b.WriteString(seps[i])
		}
	}
	return b.String()
}

// runeOffset returns the byte offset of the n-th rune of s, or len(s).
func runeOffset(s string, n int) int {
	if n <= 0 {
		return 0
	}
	count := 0
	for i := range s {
		if count == n {
			return i
		}
		count++
	}
	return len(s)
}
