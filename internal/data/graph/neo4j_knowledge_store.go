package graph

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"go.opentelemetry.io/otel/attribute"

	"github.com/hedaiyu-site/Graduation-project/internal/domain/knowledge"
	"github.com/hedaiyu-site/Graduation-project/internal/observability"
	"github.com/hedaiyu-site/Graduation-project/internal/platform/logger"
	"github.com/hedaiyu-site/Graduation-project/internal/platform/neo4jdb"
)

const (
	StepSchema      = "schema"
	StepDocuments   = "documents"
	StepEntities    = "entities"
	StepMemberships = "memberships"
	StepRelations   = "relations"
)

type StoreOptions struct {
	// ChunkSize bounds the rows sent per UNWIND.
	ChunkSize int
	// PreviewRunes bounds the stored document content.
	PreviewRunes int
	// Timeout bounds each transaction.
	Timeout time.Duration
}

// Store is the Neo4j side of the knowledge graph.
type Store struct {
	client *neo4jdb.Client
	log    *logger.Logger
	opts   StoreOptions

	schemaMu    sync.Mutex
	schemaReady bool
}

func NewStore(client *neo4jdb.Client, log *logger.Logger, opts StoreOptions) *Store {
	if log == nil {
		log = logger.Nop()
	}
	if opts.ChunkSize <= 0 {
		opts.ChunkSize = 500
	}
	if opts.PreviewRunes <= 0 {
		opts.PreviewRunes = 500
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
		if client != nil && client.Timeout > 0 {
			opts.Timeout = client.Timeout
		}
	}
	return &Store{client: client, log: log.With("repo", "Neo4jKnowledgeStore"), opts: opts}
}

var schemaStatements = []string{
	`CREATE CONSTRAINT kg_document_id_unique IF NOT EXISTS FOR (d:Document) REQUIRE d.id IS UNIQUE`,
	`CREATE CONSTRAINT kg_entity_key_unique IF NOT EXISTS FOR (e:Entity) REQUIRE e.key IS UNIQUE`,
	`CREATE INDEX kg_entity_type IF NOT EXISTS FOR (e:Entity) ON (e.type)`,
	`CREATE INDEX kg_entity_name IF NOT EXISTS FOR (e:Entity) ON (e.name)`,
	`CREATE INDEX kg_document_title IF NOT EXISTS FOR (d:Document) ON (d.title)`,
}

// EnsureSchema creates constraints and indexes once per store. A failed
// attempt is retried on the next call.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if s.client == nil || s.client.Driver == nil {
		return knowledge.GraphWriteError(StepSchema, false, fmt.Errorf("neo4j client not configured"))
	}
	s.schemaMu.Lock()
	defer s.schemaMu.Unlock()
	if s.schemaReady {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, s.opts.Timeout)
	defer cancel()
	session := s.client.WriteSession(ctx)
	defer session.Close(ctx)

	for _, q := range schemaStatements {
		res, err := session.Run(ctx, q, nil, neo4j.WithTxTimeout(s.opts.Timeout))
		if err == nil {
			_, err = res.Consume(ctx)
		}
		if err != nil {
			return knowledge.GraphWriteError(StepSchema, isRetryable(err), err)
		}
	}
	s.schemaReady = true
	s.log.Info("neo4j schema ready", "statements", len(schemaStatements))
	return nil
}

// UpsertBatch merges the batch in four steps: documents, entities,
// memberships, relations. Each chunk is its own transaction; a failure stops
// the remaining steps and earlier writes stay. Re-running is safe.
func (s *Store) UpsertBatch(ctx context.Context, b *knowledge.Batch) (summary knowledge.WriteSummary, err error) {
	if b.Empty() {
		return summary, nil
	}
	if s.client == nil || s.client.Driver == nil {
		return summary, knowledge.GraphWriteError(StepDocuments, false, fmt.Errorf("neo4j client not configured"))
	}
	ctx, span := observability.StartSpan(ctx, "graph.UpsertBatch",
		attribute.Int("kg.documents", b.Len()),
		attribute.Int("kg.entities", len(b.Entities())),
	)
	defer func() { observability.EndSpan(span, err) }()

	now := time.Now().UTC().Format(time.RFC3339Nano)

	steps := []struct {
		name  string
		query string
		rows  []map[string]any
		count *int
	}{
		{StepDocuments, upsertDocumentsCypher, s.documentRows(b, now), &summary.Documents},
		{StepEntities, upsertEntitiesCypher, entityRows(b, now), &summary.Entities},
		{StepMemberships, upsertMembershipsCypher, membershipRows(b, now), &summary.Memberships},
		{StepRelations, upsertRelationsCypher, relationRows(b, now), &summary.Relations},
	}
	for _, st := range steps {
		if err := ctx.Err(); err != nil {
			return summary, knowledge.GraphWriteError(st.name, true, err)
		}
		start := time.Now()
		n, err := s.writeChunks(ctx, st.query, st.rows)
		*st.count += n
		observability.Current().ObserveGraphWrite(st.name, n, time.Since(start))
		if err != nil {
			s.log.Error("neo4j upsert step failed", "step", st.name, "written", n, "rows", len(st.rows), "error", err)
			return summary, knowledge.GraphWriteError(st.name, isRetryable(err), err)
		}
	}
	s.log.Debug("neo4j batch merged",
		"documents", summary.Documents,
		"entities", summary.Entities,
		"memberships", summary.Memberships,
		"relations", summary.Relations,
	)
	return summary, nil
}

func (s *Store) writeChunks(ctx context.Context, query string, rows []map[string]any) (int, error) {
	written := 0
	for start := 0; start < len(rows); start += s.opts.ChunkSize {
		end := start + s.opts.ChunkSize
		if end > len(rows) {
			end = len(rows)
		}
		if err := s.writeChunk(ctx, query, rows[start:end]); err != nil {
			return written, err
		}
		written += end - start
	}
	return written, nil
}

func (s *Store) writeChunk(ctx context.Context, query string, rows []map[string]any) error {
	ctx, cancel := context.WithTimeout(ctx, s.opts.Timeout)
	defer cancel()

	session := s.client.WriteSession(ctx)
	defer session.Close(ctx)

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, query, map[string]any{"rows": rows})
		if err != nil {
			return nil, err
		}
		return res.Consume(ctx)
	}, neo4j.WithTxTimeout(s.opts.Timeout))
	return err
}

const upsertDocumentsCypher = `
UNWIND $rows AS r
MERGE (d:Document {id: r.id})
ON CREATE SET d.created_at = r.now
SET d.title = r.title,
    d.file_name = r.file_name,
    d.content = r.content,
    d.tags = r.tags,
    d.categories = r.categories,
    d.created_date = r.created_date,
    d.content_hash = r.content_hash,
    d.updated_at = r.now
`

const upsertEntitiesCypher = `
UNWIND $rows AS r
MERGE (e:Entity {key: r.key})
ON CREATE SET e.name = r.name, e.type = r.type, e.created_at = r.now
ON MATCH SET e.type = CASE
  WHEN e.type IS NULL OR (e.type = 'Concept' AND r.type <> 'Concept') THEN r.type
  ELSE e.type
END
`

const upsertMembershipsCypher = `
UNWIND $rows AS r
MATCH (d:Document {id: r.document_id})
MATCH (e:Entity {key: r.entity_key})
MERGE (d)-[c:CONTAINS_ENTITY]->(e)
ON CREATE SET c.created_at = r.now
`

const upsertRelationsCypher = `
UNWIND $rows AS r
MATCH (s:Entity {key: r.source})
MATCH (t:Entity {key: r.target})
MERGE (s)-[rel:RELATES_TO {type: r.type}]->(t)
ON CREATE SET rel.created_at = r.now
WITH rel, r, coalesce(rel.strategies, []) AS strategies, coalesce(rel.documents, []) AS documents
SET rel.strategies = strategies + [x IN r.strategies WHERE NOT x IN strategies],
    rel.documents = documents + [x IN r.documents WHERE NOT x IN documents],
    rel.updated_at = r.now
`

func (s *Store) documentRows(b *knowledge.Batch, now string) []map[string]any {
	docs := b.Documents()
	rows := make([]map[string]any, 0, len(docs))
	for _, d := range docs {
		rows = append(rows, map[string]any{
			"id":           d.ID,
			"title":        d.Title,
			"file_name":    d.FileName,
			"content":      truncateRunes(d.Text, s.opts.PreviewRunes),
			"tags":         nonNil(d.Tags),
			"categories":   nonNil(d.Categories),
			"created_date": d.Created,
			"content_hash": d.ContentHash,
			"now":          now,
		})
	}
	return rows
}

func entityRows(b *knowledge.Batch, now string) []map[string]any {
	ents := b.Entities()
	rows := make([]map[string]any, 0, len(ents))
	for _, e := range ents {
		rows = append(rows, map[string]any{
			"key":  e.Key,
			"name": e.Name,
			"type": e.Type,
			"now":  now,
		})
	}
	return rows
}

func membershipRows(b *knowledge.Batch, now string) []map[string]any {
	ms := b.Memberships()
	rows := make([]map[string]any, 0, len(ms))
	for _, m := range ms {
		rows = append(rows, map[string]any{
			"document_id": m.DocumentID,
			"entity_key":  m.EntityKey,
			"now":         now,
		})
	}
	return rows
}

func relationRows(b *knowledge.Batch, now string) []map[string]any {
	rels := b.Relations()
	rows := make([]map[string]any, 0, len(rels))
	for _, r := range rels {
		rows = append(rows, map[string]any{
			"source":     r.SourceKey,
			"type":       r.Label,
			"target":     r.TargetKey,
			"strategies": nonNil(r.Strategies),
			"documents":  nonNil(r.Documents),
			"now":        now,
		})
	}
	return rows
}

func isRetryable(err error) bool {
	if err == nil {
		return false
	}
	return neo4j.IsRetryable(err) ||
		neo4j.IsConnectivityError(err) ||
		errors.Is(err, context.DeadlineExceeded)
}

func truncateRunes(s string, max int) string {
	s = strings.TrimSpace(s)
	if max <= 0 {
		return ""
	}
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max])
}

func nonNil(v []string) []string {
	if v == nil {
		return []string{}
	}
	return v
}
