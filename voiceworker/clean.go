package main

import (
	"strings"
	"unicode"
)

// Punctuation the TTS engine handles well; everything else outside letters,
// digits, and spaces is dropped (this also removes emoji).
const keptPunctuation = `.,!?;:-'"()`

// CleanText prepares a chat message for synthesis: strip emoji and symbol
// runes, collapse ellipses and whitespace runs, and cap the length at
// maxLen runes so a pasted wall of text cannot stall the engine.
func CleanText(text string, maxLen int) string {
	var b strings.Builder
	b.Grow(len(text))

	dots := 0
	for _, r := range text {
		if r == '.' || r == '…' {
			dots++
			// Runs of three or more dots read as long silence; keep at
			// most two.
			if dots > 2 || r == '…' {
				continue
			}
		} else {
			dots = 0
		}

		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
		case unicode.IsSpace(r):
			b.WriteRune(' ')
		case strings.ContainsRune(keptPunctuation, r):
			b.WriteRune(r)
		}
	}

	cleaned := strings.Join(strings.Fields(b.String()), " ")

	if maxLen > 0 {
		runes := []rune(cleaned)
		if len(runes) > maxLen {
			cleaned = strings.TrimSpace(string(runes[:maxLen]))
		}
	}
	return cleaned
}
