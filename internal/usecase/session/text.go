package session

import "strings"

// normalizeSpeech flattens newlines and collapses repeated spaces so the
// speech output stays stable.
func normalizeSpeech(text string) string {
	t := strings.TrimSpace(text)
	t = strings.ReplaceAll(t, "\r", " ")
	t = strings.ReplaceAll(t, "\n", " ")
	for strings.Contains(t, "  ") {
		t = strings.ReplaceAll(t, "  ", " ")
	}
	return strings.TrimSpace(t)
}

// limitRunes hard-truncates to maxRunes without an ellipsis: speech output
// must not read an ellipsis aloud.
func limitRunes(text string, maxRunes int) string {
	t := normalizeSpeech(text)
	runes := []rune(t)
	if len(runes) <= maxRunes {
		return t
	}
	return strings.TrimSpace(string(runes[:maxRunes]))
}
