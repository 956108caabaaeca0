package telegram

import (
	"strings"
	"unicode/utf8"
)

// Telegram limits, in characters.
const (
	maxMessage = 4096
	maxCaption = 1024
)

// splitMessage cuts text into chunks of at most limit characters,
// preferring paragraph, line, sentence and word boundaries in that order.
func splitMessage(text string, limit int) []string {
	var chunks []string
	for utf8.RuneCountInString(text) > limit {
		cut := splitPoint(text, limit)
		if chunk := strings.TrimSpace(text[:cut]); chunk != "" {
			chunks = append(chunks, chunk)
		}
		text = strings.TrimSpace(text[cut:])
	}
	if text != "" || len(chunks) == 0 {
		chunks = append(chunks, text)
	}
	return chunks
}

// splitPoint returns a byte offset at or before the limit-th character.
func splitPoint(text string, limit int) int {
	end := byteOffset(text, limit)
	window := text[:end]
	for _, sep := range []string{"\n\n", "\n", ". ", "! ", "? ", " "} {
		if i := strings.LastIndex(window, sep); i > end/2 {
			return i + len(sep)
		}
	}
	return end
}

func byteOffset(s string, runes int) int {
	for i := range s {
		if runes == 0 {
			return i
		}
		runes--
	}
	return len(s)
}
