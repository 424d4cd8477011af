package pipeline

import (
	"strings"
	"unicode/utf8"
)

// Piece is one chunk produced by the splitter before persistence.
type Piece struct {
	Seq           int
	Text          string
	TokenEstimate int
}

// SplitText packs paragraphs into chunks of roughly targetChars characters
// with overlapChars of trailing context carried into the next chunk.
// Paragraph boundaries are preserved where possible; a single paragraph
// longer than the target is split hard.
func SplitText(text string, targetChars, overlapChars int) []Piece {
	if targetChars <= 0 {
		targetChars = 800
	}
	if overlapChars < 0 || overlapChars >= targetChars {
		overlapChars = 0
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	var blocks []string
	for _, paragraph := range strings.Split(text, "\n\n") {
		paragraph = strings.TrimSpace(paragraph)
		if paragraph == "" {
			continue
		}
		for len(paragraph) > targetChars {
			cut := splitPoint(paragraph, targetChars)
			blocks = append(blocks, strings.TrimSpace(paragraph[:cut]))
			paragraph = strings.TrimSpace(paragraph[cut:])
		}
		if paragraph != "" {
			blocks = append(blocks, paragraph)
		}
	}

	var (
		pieces  []Piece
		current strings.Builder
		carry   string
	)
	flush := func() {
		chunk := strings.TrimSpace(current.String())
		if chunk == "" {
			return
		}
		pieces = append(pieces, Piece{
			Seq:           len(pieces),
			Text:          chunk,
			TokenEstimate: estimateTokens(chunk),
		})
		carry = tail(chunk, overlapChars)
		current.Reset()
	}

	for _, block := range blocks {
		pending := current.Len()
		if pending > 0 && pending+2+len(block) > targetChars {
			flush()
		}
		if current.Len() == 0 && carry != "" {
			current.WriteString(carry)
			current.WriteString("\n\n")
		}
		if current.Len() > 0 && !strings.HasSuffix(current.String(), "\n\n") {
			current.WriteString("\n\n")
		}
		current.WriteString(block)
	}
	flush()
	return pieces
}

// splitPoint finds a whitespace near the limit to break an oversized
// paragraph at, falling back to a hard cut on a rune boundary.
func splitPoint(text string, limit int) int {
	if limit >= len(text) {
		return len(text)
	}
	for i := limit; i > limit/2; i-- {
		if text[i] == ' ' || text[i] == '\n' {
			return i
		}
	}
	return runeStart(text, limit)
}

// tail returns roughly the last n bytes of text, aligned to a word boundary
// where one exists and never splitting a multi-byte rune.
func tail(text string, n int) string {
	if n <= 0 || len(text) <= n {
		if n <= 0 {
			return ""
		}
		return text
	}
	cut := text[runeStart(text, len(text)-n):]
	if idx := strings.IndexAny(cut, " \n"); idx >= 0 && idx+1 < len(cut) {
		cut = cut[idx+1:]
	}
	return strings.TrimSpace(cut)
}

// runeStart walks i back to the start of the rune it points into.
func runeStart(text string, i int) int {
	for i > 0 && i < len(text) && !utf8.RuneStart(text[i]) {
		i--
	}
	return i
}

// estimateTokens approximates the token count as whitespace-separated words.
func estimateTokens(text string) int {
	return len(strings.Fields(text))
}
