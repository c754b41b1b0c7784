package relations

import (
	"context"

	"github.com/hedaiyu-site/Graduation-project/internal/domain/knowledge"
	"github.com/hedaiyu-site/Graduation-project/internal/platform/logger"
)

// Extractor unions the co-occurrence, hierarchical and temporal passes. It is
// built per ingest run around that run's entity extractor.
type Extractor struct {
	sentences SentenceExtractor
	log       *logger.Logger
}

func NewExtractor(sentences SentenceExtractor, log *logger.Logger) *Extractor {
	if log == nil {
		log = logger.Nop()
	}
	return &Extractor{sentences: sentences, log: log.With("service", "RelationExtractor")}
}

// Extract returns triples deduplicated on (source, label, target).
func (x *Extractor) Extract(ctx context.Context, docID, text string, ents []knowledge.Entity) []knowledge.Triple {
	var out []knowledge.Triple
	out = append(out, Cooccurrence(docID, text, ents)...)
	out = append(out, Hierarchical(docID, text)...)
	out = append(out, x.Temporal(ctx, docID, text)...)
	return knowledge.DedupeTriples(out)
}
