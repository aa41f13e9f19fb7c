package ocr

import (
	"strings"
	"unicode/utf8"
)

// snippet returns a shortened version of text for logging.
func snippet(s string, max int) string {
	if len(s) <= max {
		return s
	}
	cut := max
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "…"
}

// normalizeText collapses newlines, tabs and runs of spaces into single spaces.
func normalizeText(t string) string {
	return strings.Join(strings.Fields(t), " ")
}

// legibleWords keeps tokens of at least two characters that are mostly letters or digits.
func legibleWords(t string) []string {
	var out []string
	for _, w := range strings.Fields(t) {
		if len([]rune(w)) < 2 {
			continue
		}
		alnum := 0
		total := 0
		for _, r := range w {
			total++
			if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
				alnum++
			}
		}
		if alnum*3 >= total*2 {
			out = append(out, w)
		}
	}
	return out
}
