package pipeline

import (
	"context"

	"github.com/hedaiyu-site/Graduation-project/internal/domain"
	"github.com/hedaiyu-site/Graduation-project/internal/domain/knowledge"
	"github.com/hedaiyu-site/Graduation-project/internal/platform/dbctx"
)

// GraphWriter is the graph store side of a flush.
type GraphWriter interface {
	EnsureSchema(ctx context.Context) error
	UpsertBatch(ctx context.Context, b *knowledge.Batch) (knowledge.WriteSummary, error)
}

// Ledger remembers the content hash of every document that reached the graph.
type Ledger interface {
	HashesByDocumentIDs(dbc dbctx.Context, ids []string) (map[string]string, error)
	Upsert(dbc dbctx.Context, rows []*domain.IngestRecord) error
}

// Invalidator drops cached query results made stale by a flushed batch.
type Invalidator interface {
	InvalidateBatch(ctx context.Context, b *knowledge.Batch)
}
