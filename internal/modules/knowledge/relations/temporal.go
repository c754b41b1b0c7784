package relations

import (
	"context"
	"regexp"
	"strings"

	"github.com/hedaiyu-site/Graduation-project/internal/domain/knowledge"
)

var dateRe = regexp.MustCompile(`\d{4}年\d{1,2}月\d{1,2}日|\d{4}-\d{2}-\d{2}`)

// SentenceExtractor re-runs entity extraction on a single sentence.
type SentenceExtractor interface {
	Extract(ctx context.Context, text string) ([]knowledge.Entity, error)
}

// Temporal links entities to the dates mentioned in the same sentence.
func (x *Extractor) Temporal(ctx context.Context, docID, text string) []knowledge.Triple {
	if x.sentences == nil || !dateRe.MatchString(text) {
		return nil
	}
	var out []knowledge.Triple
	for _, s := range splitSentences(text) {
		dates := dateRe.FindAllString(s, -1)
		if len(dates) == 0 {
			continue
		}
		if ctx.Err() != nil {
			return out
		}
		ents, err := x.sentences.Extract(ctx, s)
		if err != nil {
			x.log.Warn("temporal extraction skipped sentence", "document_id", docID, "error", err)
			continue
		}
		for _, d := range dates {
			date, ok := knowledge.NewEntity(d, knowledge.EntityTypeDate)
			if !ok {
				continue
			}
			for _, e := range ents {
				if e.Key == date.Key || strings.Contains(d, e.Name) {
					continue
				}
				if t, ok := knowledge.NewTriple(e, knowledge.RelationOccurAt, date, docID, knowledge.StrategyTemporal); ok {
					out = append(out, t)
				}
			}
		}
	}
	return out
}
