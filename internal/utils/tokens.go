package utils

import "unicode/utf8"

// CountTokens estimates the number of tokens in text.
// ASCII runs count at roughly 4 characters per token; every other rune
// (kana, kanji, full-width punctuation) counts as one token, which is close
// to what Gemini reports for Japanese prompts.
func CountTokens(text string) int {
	if len(text) == 0 {
		return 0
	}
	ascii, wide := 0, 0
	for _, r := range text {
		if r < utf8.RuneSelf {
			ascii++
		} else {
			wide++
		}
	}
	tokens := ascii/4 + wide
	if tokens == 0 {
		return 1
	}
	return tokens
}

// TokenBreakdown returns a simple breakdown map of labeled sections to token counts.
func TokenBreakdown(sections map[string]string) map[string]int {
	out := make(map[string]int, len(sections))
	for k, v := range sections {
		out[k] = CountTokens(v)
	}
	return out
}
