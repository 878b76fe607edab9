package llm

import (
	"strings"
	"unicode"
)

// EstimateTokens gives a deterministic token count for rate limiting. Each
// CJK character counts as one token; remaining text uses ~1.33 tokens per
// whitespace-separated word.
func EstimateTokens(text string) int {
	if text == "" {
		return 0
	}
	cjk := 0
	rest := strings.Map(func(r rune) rune {
		if isCJK(r) {
			cjk++
			return ' '
		}
		return r
	}, text)

	words := len(strings.Fields(rest))
	tokens := cjk + int(float64(words)*1.33)
	if tokens < 1 && strings.TrimSpace(text) != "" {
		tokens = 1
	}
	return tokens
}

func isCJK(r rune) bool {
	return unicode.In(r, unicode.Han, unicode.Hiragana, unicode.Katakana, unicode.Hangul) ||
		(r >= 0x3000 && r <= 0x303f) || // CJK punctuation
		(r >= 0xff00 && r <= 0xffef) // fullwidth forms
}
