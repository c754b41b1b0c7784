package entities

import (
	"context"
	"errors"
	"fmt"

	"github.com/hedaiyu-site/Graduation-project/internal/domain/knowledge"
	"github.com/hedaiyu-site/Graduation-project/internal/platform/logger"
)

// Strategy is one way of finding entities in text.
type Strategy interface {
	Name() string
	Available(ctx context.Context) bool
	Extract(ctx context.Context, text string) ([]knowledge.Entity, error)
}

// Chain holds strategies in priority order.
type Chain struct {
	strategies []Strategy
	log        *logger.Logger
}

func NewChain(log *logger.Logger, strategies ...Strategy) *Chain {
	if log == nil {
		log = logger.Nop()
	}
	out := make([]Strategy, 0, len(strategies))
	for _, s := range strategies {
		if s != nil {
			out = append(out, s)
		}
	}
	return &Chain{strategies: out, log: log.With("service", "EntityChain")}
}

// Select picks the first available strategy. It is called once per ingest
// run; the result is used for every document of that run.
func (c *Chain) Select(ctx context.Context) (*Selection, error) {
	for i, s := range c.strategies {
		if !s.Available(ctx) {
			continue
		}
		sel := &Selection{
			primary:   s,
			fallbacks: c.strategies[i+1:],
			degraded:  i > 0,
			log:       c.log,
		}
		if sel.degraded {
			c.log.Warn("entity extraction degraded",
				"kind", knowledge.KindExtractionDegraded,
				"selected", s.Name(),
				"preferred", c.strategies[0].Name(),
			)
		}
		return sel, nil
	}
	return nil, fmt.Errorf("no entity extraction strategy available")
}

// Selection is the extractor resolved for one run.
type Selection struct {
	primary   Strategy
	fallbacks []Strategy
	degraded  bool
	log       *logger.Logger
}

type Result struct {
	Entities []knowledge.Entity
	Strategy string
	Degraded bool
}

func (s *Selection) Name() string   { return s.primary.Name() }
func (s *Selection) Degraded() bool { return s.degraded }

// ExtractDocument runs the selected strategy over a whole document. When it
// fails the entire document is re-extracted with the next available strategy.
func (s *Selection) ExtractDocument(ctx context.Context, docID, text string) (Result, error) {
	ents, err := s.primary.Extract(ctx, text)
	if err == nil {
		return Result{Entities: knowledge.DedupeEntities(ents), Strategy: s.primary.Name(), Degraded: s.degraded}, nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return Result{}, ctxErr
	}
	cause := err
	for _, fb := range s.fallbacks {
		if !fb.Available(ctx) {
			continue
		}
		s.log.Warn("entity extraction degraded for document",
			"kind", knowledge.KindExtractionDegraded,
			"document_id", docID,
			"failed", s.primary.Name(),
			"fallback", fb.Name(),
			"error", cause,
		)
		ents, err = fb.Extract(ctx, text)
		if err == nil {
			return Result{Entities: knowledge.DedupeEntities(ents), Strategy: fb.Name(), Degraded: true}, nil
		}
		cause = errors.Join(cause, err)
	}
	return Result{}, knowledge.ExtractionDegraded("extract_entities", "all strategies failed for "+docID, cause)
}

// Extract satisfies the sentence level extractor used by relation passes.
func (s *Selection) Extract(ctx context.Context, text string) ([]knowledge.Entity, error) {
	res, err := s.ExtractDocument(ctx, "", text)
	if err != nil {
		return nil, err
	}
	return res.Entities, nil
}
