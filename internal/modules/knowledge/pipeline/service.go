package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"

	"github.com/hedaiyu-site/Graduation-project/internal/domain"
	"github.com/hedaiyu-site/Graduation-project/internal/domain/knowledge"
	"github.com/hedaiyu-site/Graduation-project/internal/modules/knowledge/entities"
	"github.com/hedaiyu-site/Graduation-project/internal/modules/knowledge/normalize"
	"github.com/hedaiyu-site/Graduation-project/internal/modules/knowledge/relations"
	"github.com/hedaiyu-site/Graduation-project/internal/observability"
	"github.com/hedaiyu-site/Graduation-project/internal/platform/dbctx"
	"github.com/hedaiyu-site/Graduation-project/internal/platform/logger"
)

type Options struct {
	// Concurrency bounds documents normalized and extracted at once.
	Concurrency int
	// FlushSize is the number of documents per upsert batch.
	FlushSize int
}

type IngestOptions struct {
	// Force re-ingests documents whose content hash is already in the ledger.
	Force bool
}

type Deps struct {
	Graph    GraphWriter
	Entities *entities.Chain
	Ledger   Ledger
	Cache    Invalidator
	Log      *logger.Logger
}

// Service is the single writer of the knowledge graph.
type Service struct {
	deps Deps
	opts Options
	log  *logger.Logger
}

func New(deps Deps, opts Options) *Service {
	log := deps.Log
	if log == nil {
		log = logger.Nop()
	}
	if opts.Concurrency < 1 {
		opts.Concurrency = 4
	}
	if opts.FlushSize < 1 {
		opts.FlushSize = 50
	}
	return &Service{deps: deps, opts: opts, log: log.With("service", "IngestPipeline")}
}

// outcome is the per-document result of the parallel stage.
type outcome struct {
	result    knowledge.DocumentResult
	processed *knowledge.ProcessedDocument
}

// Ingest normalizes, extracts and merges docs into the graph, flushing every
// FlushSize documents. Per-document failures land in the summary; a graph
// failure or cancellation stops the run, and documents not yet flushed are
// reported failed. Flushed documents stay valid either way.
func (s *Service) Ingest(ctx context.Context, docs []knowledge.DocumentInput, opts ...IngestOptions) (summary *knowledge.BatchSummary, err error) {
	var io IngestOptions
	if len(opts) > 0 {
		io = opts[0]
	}
	summary = &knowledge.BatchSummary{
		RunID:     uuid.NewString(),
		StartedAt: time.Now().UTC(),
		Documents: make([]knowledge.DocumentResult, 0, len(docs)),
	}
	defer func() { summary.FinishedAt = time.Now().UTC() }()

	ctx, span := observability.StartSpan(ctx, "pipeline.Ingest",
		attribute.String("kg.run_id", summary.RunID),
		attribute.Int("kg.documents", len(docs)),
	)
	defer func() { observability.EndSpan(span, err) }()
	log := s.log.With("run_id", summary.RunID)

	if s.deps.Graph == nil || s.deps.Entities == nil {
		return summary, fmt.Errorf("ingest: graph writer and entity chain required")
	}
	sel, err := s.deps.Entities.Select(ctx)
	if err != nil {
		return summary, err
	}
	summary.Strategy = sel.Name()
	observability.Current().IncExtraction(sel.Name())
	rel := relations.NewExtractor(sel, s.log)

	known := s.knownHashes(ctx, docs, io.Force)
	log.Info("ingest started",
		"documents", len(docs),
		"strategy", sel.Name(),
		"degraded", sel.Degraded(),
		"force", io.Force,
	)

	schemaReady := false
	for start := 0; start < len(docs); start += s.opts.FlushSize {
		if cerr := ctx.Err(); cerr != nil {
			s.failRemaining(summary, docs[start:], "canceled: "+cerr.Error())
			return summary, cerr
		}
		end := min(start+s.opts.FlushSize, len(docs))
		window := docs[start:end]

		outcomes := s.extractWindow(ctx, sel, rel, window, known)

		batch := knowledge.NewBatch()
		for _, o := range outcomes {
			if o.processed != nil {
				batch.Add(*o.processed)
			}
		}
		if !batch.Empty() {
			if !schemaReady {
				if serr := s.deps.Graph.EnsureSchema(ctx); serr != nil {
					s.abort(log, summary, outcomes, docs[end:], serr)
					return summary, serr
				}
				schemaReady = true
			}
			if ferr := s.flush(ctx, log, summary, batch); ferr != nil {
				s.abort(log, summary, outcomes, docs[end:], ferr)
				return summary, ferr
			}
			s.recordLedger(ctx, log, summary, outcomes)
		}
		for _, o := range outcomes {
			s.record(summary, o.result)
		}
	}

	log.Info("ingest finished",
		"processed", summary.Processed,
		"unchanged", summary.Unchanged,
		"skipped", summary.Skipped,
		"failed", summary.Failed,
		"flushes", summary.Flushes,
	)
	return summary, nil
}

// extractWindow runs normalize and extraction in parallel. Results keep the
// input order so batch merges are deterministic.
func (s *Service) extractWindow(ctx context.Context, sel *entities.Selection, rel *relations.Extractor, window []knowledge.DocumentInput, known map[string]string) []outcome {
	out := make([]outcome, len(window))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.opts.Concurrency)
	for i := range window {
		g.Go(func() error {
			out[i] = s.processOne(gctx, sel, rel, window[i], known)
			return nil
		})
	}
	_ = g.Wait()
	return out
}

func (s *Service) processOne(ctx context.Context, sel *entities.Selection, rel *relations.Extractor, in knowledge.DocumentInput, known map[string]string) outcome {
	res := knowledge.DocumentResult{ID: strings.TrimSpace(in.ID)}
	if err := ctx.Err(); err != nil {
		res.Status = knowledge.DocumentFailed
		res.Reason = "canceled: " + err.Error()
		return outcome{result: res}
	}

	doc, err := normalize.Normalize(in)
	if err != nil {
		s.log.Warn("document skipped", "document_id", res.ID, "error", err)
		res.Status = knowledge.DocumentSkipped
		res.Reason = err.Error()
		return outcome{result: res}
	}
	if h, ok := known[doc.ID]; ok && h == doc.ContentHash {
		res.Status = knowledge.DocumentUnchanged
		return outcome{result: res}
	}

	ext, err := sel.ExtractDocument(ctx, doc.ID, doc.Text)
	if err != nil {
		s.log.Warn("document extraction failed", "document_id", doc.ID, "error", err)
		res.Status = knowledge.DocumentFailed
		res.Reason = err.Error()
		return outcome{result: res}
	}
	triples := rel.Extract(ctx, doc.ID, doc.Text, ext.Entities)

	res.Status = knowledge.DocumentProcessed
	res.Strategy = ext.Strategy
	res.Degraded = ext.Degraded
	res.Entities = len(ext.Entities)
	res.Relations = len(triples)
	return outcome{
		result: res,
		processed: &knowledge.ProcessedDocument{
			Document: doc,
			Entities: ext.Entities,
			Triples:  triples,
			Strategy: ext.Strategy,
			Degraded: ext.Degraded,
		},
	}
}

func (s *Service) flush(ctx context.Context, log *logger.Logger, summary *knowledge.BatchSummary, batch *knowledge.Batch) error {
	start := time.Now()
	written, err := s.deps.Graph.UpsertBatch(ctx, batch)
	summary.Written.Add(written)
	observability.Current().ObserveFlush(time.Since(start))
	// Steps committed before a failure stay in the graph, so cached results
	// are dropped either way, even when the run was cancelled mid-write.
	if s.deps.Cache != nil {
		s.deps.Cache.InvalidateBatch(context.WithoutCancel(ctx), batch)
	}
	if err != nil {
		return err
	}
	summary.Flushes++
	log.Debug("batch flushed",
		"documents", batch.Len(),
		"entities", len(batch.Entities()),
		"relations", len(batch.Relations()),
		"took_ms", time.Since(start).Milliseconds(),
	)
	return nil
}

// abort marks the documents of the failed window and every later document as
// failed.
func (s *Service) abort(log *logger.Logger, summary *knowledge.BatchSummary, outcomes []outcome, rest []knowledge.DocumentInput, cause error) {
	reason := cause.Error()
	if knowledge.IsRetryable(cause) {
		reason += " (retryable)"
	}
	for _, o := range outcomes {
		r := o.result
		if r.Status == knowledge.DocumentProcessed {
			r.Status = knowledge.DocumentFailed
			r.Reason = reason
		}
		s.record(summary, r)
	}
	s.failRemaining(summary, rest, "aborted: "+reason)
	log.Error("ingest aborted", "error", cause, "failed", summary.Failed)
}

func (s *Service) failRemaining(summary *knowledge.BatchSummary, rest []knowledge.DocumentInput, reason string) {
	for _, in := range rest {
		s.record(summary, knowledge.DocumentResult{
			ID:     strings.TrimSpace(in.ID),
			Status: knowledge.DocumentFailed,
			Reason: reason,
		})
	}
}

func (s *Service) record(summary *knowledge.BatchSummary, r knowledge.DocumentResult) {
	summary.Record(r)
	observability.Current().IncIngestDocument(string(r.Status))
}

func (s *Service) knownHashes(ctx context.Context, docs []knowledge.DocumentInput, force bool) map[string]string {
	if force || s.deps.Ledger == nil || len(docs) == 0 {
		return nil
	}
	ids := make([]string, 0, len(docs))
	for _, d := range docs {
		if id := strings.TrimSpace(d.ID); id != "" {
			ids = append(ids, id)
		}
	}
	known, err := s.deps.Ledger.HashesByDocumentIDs(dbctx.Context{Ctx: ctx}, ids)
	if err != nil {
		s.log.Warn("ledger lookup failed, ingesting everything", "error", err)
		return nil
	}
	return known
}

func (s *Service) recordLedger(ctx context.Context, log *logger.Logger, summary *knowledge.BatchSummary, outcomes []outcome) {
	if s.deps.Ledger == nil {
		return
	}
	now := time.Now().UTC()
	rows := make([]*domain.IngestRecord, 0, len(outcomes))
	seen := map[string]int{}
	for _, o := range outcomes {
		if o.processed == nil {
			continue
		}
		row := &domain.IngestRecord{
			DocumentID:  o.processed.Document.ID,
			ContentHash: o.processed.Document.ContentHash,
			RunID:       summary.RunID,
			Strategy:    o.result.Strategy,
			Entities:    o.result.Entities,
			Relations:   o.result.Relations,
			IngestedAt:  now,
		}
		// One row per document; the last occurrence wins like in the batch.
		if idx, ok := seen[row.DocumentID]; ok {
			rows[idx] = row
			continue
		}
		seen[row.DocumentID] = len(rows)
		rows = append(rows, row)
	}
	if err := s.deps.Ledger.Upsert(dbctx.Context{Ctx: ctx}, rows); err != nil {
		log.Warn("ledger update failed", "documents", len(rows), "error", err)
	}
}

// IsAbort reports whether err stopped an ingest run rather than a document.
func IsAbort(err error) bool {
	return err != nil && (knowledge.IsKind(err, knowledge.KindGraphWrite) ||
		errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded))
}
