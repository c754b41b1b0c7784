package relations

import (
	"regexp"

	"github.com/hedaiyu-site/Graduation-project/internal/domain/knowledge"
)

type hierarchyPattern struct {
	re    *regexp.Regexp
	label string
}

const word = `([\p{L}\p{N}_]+)`

var hierarchyPatterns = []hierarchyPattern{
	{regexp.MustCompile(word + `包括` + word), knowledge.RelationIncludes},
	{regexp.MustCompile(word + `属于` + word), knowledge.RelationBelongsTo},
	{regexp.MustCompile(word + `分为` + word), knowledge.RelationDividedInto},
	{regexp.MustCompile(`(?i)` + word + `\s+includes\s+` + word), knowledge.RelationIncludes},
	{regexp.MustCompile(`(?i)` + word + `\s+belongs\s+to\s+` + word), knowledge.RelationBelongsTo},
	{regexp.MustCompile(`(?i)` + word + `\s+is\s+divided\s+into\s+` + word), knowledge.RelationDividedInto},
}

// Hierarchical finds "X includes Y" style statements. Captured spans become
// endpoints whether or not the entity extractor saw them.
func Hierarchical(docID, text string) []knowledge.Triple {
	var out []knowledge.Triple
	for _, p := range hierarchyPatterns {
		for _, m := range p.re.FindAllStringSubmatch(text, -1) {
			src, ok := knowledge.NewEntity(m[1], knowledge.EntityTypeConcept)
			if !ok {
				continue
			}
			dst, ok := knowledge.NewEntity(m[2], knowledge.EntityTypeConcept)
			if !ok {
				continue
			}
			if t, ok := knowledge.NewTriple(src, p.label, dst, docID, knowledge.StrategyHierarchical); ok {
				out = append(out, t)
			}
		}
	}
	return out
}
