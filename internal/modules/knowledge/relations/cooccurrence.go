package relations

import (
	"regexp"
	"sort"
	"strings"

	"github.com/hedaiyu-site/Graduation-project/internal/domain/knowledge"
)

// Keywords is the relation vocabulary, matched in this order.
var Keywords = []string{
	"是", "属于", "包含", "包括", "有", "需要", "使用", "基于", "的", "和", "与", "或", "及", "等",
	"is", "has", "contains", "includes", "uses", "based on", "of", "and", "or", "with", "in",
}

type keywordMatcher struct {
	keyword string
	re      *regexp.Regexp
}

var keywordMatchers = buildKeywordMatchers(Keywords)

func buildKeywordMatchers(words []string) []keywordMatcher {
	out := make([]keywordMatcher, 0, len(words))
	for _, w := range words {
		m := keywordMatcher{keyword: w}
		if isASCII(w) {
			pattern := strings.ReplaceAll(regexp.QuoteMeta(w), " ", `\s+`)
			m.re = regexp.MustCompile(`(?i)\b` + pattern + `\b`)
		}
		out = append(out, m)
	}
	return out
}

func isASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] >= 0x80 {
			return false
		}
	}
	return true
}

// firstKeyword returns the first vocabulary entry found in between.
func firstKeyword(between string) (string, bool) {
	if strings.TrimSpace(between) == "" {
		return "", false
	}
	for _, m := range keywordMatchers {
		if m.re != nil {
			if m.re.MatchString(between) {
				return m.keyword, true
			}
			continue
		}
		if strings.Contains(between, m.keyword) {
			return m.keyword, true
		}
	}
	return "", false
}

type located struct {
	entity     knowledge.Entity
	start, end int
}

// locate orders entities by their first verbatim occurrence in sentence.
func locate(sentence string, ents []knowledge.Entity) []located {
	out := make([]located, 0, len(ents))
	for _, e := range ents {
		if e.Name == "" {
			continue
		}
		idx := strings.Index(sentence, e.Name)
		if idx < 0 {
			continue
		}
		out = append(out, located{entity: e, start: idx, end: idx + len(e.Name)})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].start != out[j].start {
			return out[i].start < out[j].start
		}
		return out[i].end > out[j].end
	})
	return out
}

// SentencePairs relates every ordered pair of entities in one sentence whose
// gap contains a vocabulary keyword. Only the first keyword counts.
func SentencePairs(docID, sentence string, ents []knowledge.Entity) []knowledge.Triple {
	locs := locate(sentence, ents)
	var out []knowledge.Triple
	for i := 0; i < len(locs); i++ {
		for j := i + 1; j < len(locs); j++ {
			a, b := locs[i], locs[j]
			if b.start < a.end {
				continue
			}
			kw, ok := firstKeyword(sentence[a.end:b.start])
			if !ok {
				continue
			}
			if t, ok := knowledge.NewTriple(a.entity, kw, b.entity, docID, knowledge.StrategyCooccurrence); ok {
				out = append(out, t)
			}
		}
	}
	return out
}

func Cooccurrence(docID, text string, ents []knowledge.Entity) []knowledge.Triple {
	if len(ents) < 2 {
		return nil
	}
	var out []knowledge.Triple
	for _, s := range Sentences(text) {
		out = append(out, SentencePairs(docID, s, ents)...)
	}
	return out
}
