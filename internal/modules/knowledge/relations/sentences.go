package relations

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

var sentenceSplitRe = regexp.MustCompile(`[。！？.!?\n]+`)

const MinSentenceRunes = 10

// Sentences splits on CJK and Latin terminators and line breaks, dropping
// fragments shorter than MinSentenceRunes.
func Sentences(text string) []string {
	var out []string
	for _, s := range splitSentences(text) {
		if utf8.RuneCountInString(s) >= MinSentenceRunes {
			out = append(out, s)
		}
	}
	return out
}

func splitSentences(text string) []string {
	parts := sentenceSplitRe.Split(text, -1)
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
