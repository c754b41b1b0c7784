package entities

import (
	"context"
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/hedaiyu-site/Graduation-project/internal/domain/knowledge"
)

const RuleStrategyName = "rule"

var (
	capitalizedRe = regexp.MustCompile(`\b[A-Z][A-Za-z0-9]+\b`)
	quotedRe      = regexp.MustCompile(`"([^"\n]+)"|'([^'\n]+)'|“([^”\n]+)”|‘([^’\n]+)’|「([^」\n]+)」|『([^』\n]+)』`)
	labelRe       = regexp.MustCompile(`(?m)^([^:：\n]+?)[:：]`)

	ruleStopwords = map[string]struct{}{
		"the": {}, "this": {}, "that": {}, "these": {}, "those": {},
		"it": {}, "its": {}, "an": {}, "and": {}, "or": {}, "but": {},
		"if": {}, "in": {}, "on": {}, "of": {}, "for": {}, "to": {}, "we": {},
	}
)

const maxRuleEntityRunes = 64

// RuleStrategy finds capitalized tokens, quoted phrases and line labels. It
// never fails and is always available.
type RuleStrategy struct{}

func NewRuleStrategy() *RuleStrategy { return &RuleStrategy{} }

func (*RuleStrategy) Name() string                   { return RuleStrategyName }
func (*RuleStrategy) Available(context.Context) bool { return true }

type ruleCandidate struct {
	pos  int
	text string
}

func (*RuleStrategy) Extract(_ context.Context, text string) ([]knowledge.Entity, error) {
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}
	var cands []ruleCandidate

	for _, loc := range capitalizedRe.FindAllStringIndex(text, -1) {
		cands = append(cands, ruleCandidate{pos: loc[0], text: text[loc[0]:loc[1]]})
	}
	for _, m := range quotedRe.FindAllStringSubmatchIndex(text, -1) {
		for g := 2; g+1 < len(m); g += 2 {
			if m[g] >= 0 {
				cands = append(cands, ruleCandidate{pos: m[g], text: text[m[g]:m[g+1]]})
				break
			}
		}
	}
	for _, m := range labelRe.FindAllStringSubmatchIndex(text, -1) {
		cands = append(cands, ruleCandidate{pos: m[2], text: text[m[2]:m[3]]})
	}

	sort.SliceStable(cands, func(i, j int) bool { return cands[i].pos < cands[j].pos })

	out := make([]knowledge.Entity, 0, len(cands))
	for _, c := range cands {
		surface := strings.TrimSpace(c.text)
		n := utf8.RuneCountInString(surface)
		if n <= 1 || n > maxRuleEntityRunes {
			continue
		}
		if _, stop := ruleStopwords[strings.ToLower(surface)]; stop {
			continue
		}
		if e, ok := knowledge.NewEntity(surface, knowledge.EntityTypeConcept); ok {
			out = append(out, e)
		}
	}
	return knowledge.DedupeEntities(out), nil
}
