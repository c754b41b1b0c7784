package pipeline

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hedaiyu-site/Graduation-project/internal/domain"
	"github.com/hedaiyu-site/Graduation-project/internal/domain/knowledge"
	"github.com/hedaiyu-site/Graduation-project/internal/modules/knowledge/entities"
	"github.com/hedaiyu-site/Graduation-project/internal/platform/dbctx"
	"github.com/hedaiyu-site/Graduation-project/internal/platform/logger"
)

// memGraph applies batches with the same merge-by-key rules as the Neo4j store.
type memGraph struct {
	mu          sync.Mutex
	schemaCalls int
	upserts     int
	failOn      int // 1-based upsert call that fails; 0 never
	docs        map[string]knowledge.Document
	entities    map[string]knowledge.Entity
	memberships map[knowledge.Membership]struct{}
	relations   map[knowledge.TripleKey]knowledge.Relation
}

func newMemGraph() *memGraph {
	return &memGraph{
		docs:        map[string]knowledge.Document{},
		entities:    map[string]knowledge.Entity{},
		memberships: map[knowledge.Membership]struct{}{},
		relations:   map[knowledge.TripleKey]knowledge.Relation{},
	}
}

func (g *memGraph) EnsureSchema(context.Context) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.schemaCalls++
	return nil
}

func (g *memGraph) UpsertBatch(_ context.Context, b *knowledge.Batch) (knowledge.WriteSummary, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.upserts++
	if g.failOn > 0 && g.upserts == g.failOn {
		return knowledge.WriteSummary{}, knowledge.GraphWriteError("documents", true, errors.New("connection reset"))
	}
	var w knowledge.WriteSummary
	for _, d := range b.Documents() {
		g.docs[d.ID] = *d
		w.Documents++
	}
	for _, e := range b.Entities() {
		if cur, ok := g.entities[e.Key]; ok {
			cur.Type = knowledge.MergeType(cur.Type, e.Type)
			g.entities[e.Key] = cur
		} else {
			g.entities[e.Key] = e
		}
		w.Entities++
	}
	for _, m := range b.Memberships() {
		g.memberships[m] = struct{}{}
		w.Memberships++
	}
	for _, r := range b.Relations() {
		k := knowledge.TripleKey{Source: r.SourceKey, Label: r.Label, Target: r.TargetKey}
		cur, ok := g.relations[k]
		if !ok {
			cur = knowledge.Relation{SourceKey: r.SourceKey, Label: r.Label, TargetKey: r.TargetKey}
		}
		cur.Strategies = union(cur.Strategies, r.Strategies)
		cur.Documents = union(cur.Documents, r.Documents)
		g.relations[k] = cur
		w.Relations++
	}
	return w, nil
}

func union(a, b []string) []string {
	seen := map[string]bool{}
	for _, s := range a {
		seen[s] = true
	}
	for _, s := range b {
		if !seen[s] {
			a = append(a, s)
			seen[s] = true
		}
	}
	return a
}

func (g *memGraph) entityKeys() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]string, 0, len(g.entities))
	for k := range g.entities {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

type memLedger struct {
	mu   sync.Mutex
	rows map[string]*domain.IngestRecord
}

func newMemLedger() *memLedger { return &memLedger{rows: map[string]*domain.IngestRecord{}} }

func (l *memLedger) HashesByDocumentIDs(_ dbctx.Context, ids []string) (map[string]string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := map[string]string{}
	for _, id := range ids {
		if r, ok := l.rows[id]; ok {
			out[id] = r.ContentHash
		}
	}
	return out, nil
}

func (l *memLedger) Upsert(_ dbctx.Context, rows []*domain.IngestRecord) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, r := range rows {
		l.rows[r.DocumentID] = r
	}
	return nil
}

type countingInvalidator struct {
	mu      sync.Mutex
	batches int
	keys    []string
}

func (c *countingInvalidator) InvalidateBatch(_ context.Context, b *knowledge.Batch) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.batches++
	c.keys = append(c.keys, b.EntityKeys()...)
}

const graphNote = `---
title: Graph Notes
tags: [neo4j, redis, neo4j]
date: 2024-01-02
---
# Intro

Neo4j is a graph database and Redis is a cache.
`

func newService(g GraphWriter, l Ledger, inv Invalidator, opts Options) *Service {
	return New(Deps{
		Graph:    g,
		Entities: entities.NewChain(logger.Nop(), entities.NewRuleStrategy()),
		Ledger:   l,
		Cache:    inv,
		Log:      logger.Nop(),
	}, opts)
}

func TestIngestFrontMatterDocument(t *testing.T) {
	g := newMemGraph()
	inv := &countingInvalidator{}
	svc := newService(g, nil, inv, Options{})

	sum, err := svc.Ingest(context.Background(), []knowledge.DocumentInput{{ID: "notes/graph.md", Raw: graphNote}})
	require.NoError(t, err)

	assert.Equal(t, 1, sum.Processed)
	assert.Equal(t, 1, sum.Flushes)
	assert.Equal(t, "rule", sum.Strategy)
	assert.NotEmpty(t, sum.RunID)
	require.Len(t, sum.Documents, 1)
	assert.Equal(t, knowledge.DocumentProcessed, sum.Documents[0].Status)

	doc := g.docs["notes/graph.md"]
	assert.Equal(t, "Graph Notes", doc.Title)
	assert.Equal(t, "graph.md", doc.FileName)
	assert.Equal(t, []string{"neo4j", "redis"}, doc.Tags)
	assert.Equal(t, "2024-01-02", doc.Created)
	assert.NotContains(t, doc.Text, "---")

	assert.Equal(t, []string{"intro", "neo4j", "redis"}, g.entityKeys())
	assert.Len(t, g.memberships, 3)
	rel, ok := g.relations[knowledge.TripleKey{Source: "neo4j", Label: "is", Target: "redis"}]
	require.True(t, ok)
	assert.Equal(t, []string{knowledge.StrategyCooccurrence}, rel.Strategies)
	assert.Equal(t, []string{"notes/graph.md"}, rel.Documents)

	assert.Equal(t, 1, g.schemaCalls)
	assert.Equal(t, 1, inv.batches)
	assert.ElementsMatch(t, []string{"intro", "neo4j", "redis"}, inv.keys)
}

func TestIngestIsIdempotent(t *testing.T) {
	g := newMemGraph()
	svc := newService(g, nil, nil, Options{FlushSize: 1})
	docs := []knowledge.DocumentInput{
		{ID: "a.md", Raw: "Neo4j is a graph database and Redis is a cache."},
		{ID: "b.md", Raw: "NEO4J  is used with Redis in production setups."},
	}

	_, err := svc.Ingest(context.Background(), docs)
	require.NoError(t, err)
	entitiesAfterFirst := len(g.entities)
	relationsAfterFirst := len(g.relations)
	membershipsAfterFirst := len(g.memberships)

	_, err = svc.Ingest(context.Background(), docs, IngestOptions{Force: true})
	require.NoError(t, err)
	assert.Equal(t, entitiesAfterFirst, len(g.entities))
	assert.Equal(t, relationsAfterFirst, len(g.relations))
	assert.Equal(t, membershipsAfterFirst, len(g.memberships))

	// Casing variants collapse onto one entity whose name is the first sighting.
	assert.Equal(t, "Neo4j", g.entities["neo4j"].Name)
	for _, r := range g.relations {
		assert.Len(t, r.Strategies, len(union(nil, r.Strategies)))
	}
}

func TestIngestSkipsUnparsableDocuments(t *testing.T) {
	g := newMemGraph()
	svc := newService(g, nil, nil, Options{})

	sum, err := svc.Ingest(context.Background(), []knowledge.DocumentInput{
		{ID: "broken.md", Raw: "---\ntitle: never closed\nNeo4j body"},
		{ID: "", Raw: "Redis is fast."},
		{ID: "ok.md", Raw: "Neo4j is a graph database and Redis is a cache."},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, sum.Skipped)
	assert.Equal(t, 1, sum.Processed)
	assert.Equal(t, knowledge.DocumentSkipped, sum.Documents[0].Status)
	assert.Contains(t, sum.Documents[0].Reason, "document_parse")
	assert.Len(t, g.docs, 1)
}

func TestIngestLedgerSkipsUnchangedDocuments(t *testing.T) {
	g := newMemGraph()
	ledger := newMemLedger()
	svc := newService(g, ledger, nil, Options{})
	docs := []knowledge.DocumentInput{{ID: "a.md", Raw: "Neo4j is a graph database and Redis is a cache."}}

	sum, err := svc.Ingest(context.Background(), docs)
	require.NoError(t, err)
	assert.Equal(t, 1, sum.Processed)
	require.Contains(t, ledger.rows, "a.md")
	assert.Equal(t, sum.RunID, ledger.rows["a.md"].RunID)

	sum, err = svc.Ingest(context.Background(), docs)
	require.NoError(t, err)
	assert.Equal(t, 1, sum.Unchanged)
	assert.Equal(t, 0, sum.Flushes)
	assert.Equal(t, 1, g.upserts)

	sum, err = svc.Ingest(context.Background(), docs, IngestOptions{Force: true})
	require.NoError(t, err)
	assert.Equal(t, 1, sum.Processed)
	assert.Equal(t, 2, g.upserts)

	docs[0].Raw += "\nRedis also stores sessions."
	sum, err = svc.Ingest(context.Background(), docs)
	require.NoError(t, err)
	assert.Equal(t, 1, sum.Processed)
}

func TestIngestAbortsOnGraphFailure(t *testing.T) {
	g := newMemGraph()
	g.failOn = 2
	ledger := newMemLedger()
	svc := newService(g, ledger, nil, Options{FlushSize: 1, Concurrency: 1})

	sum, err := svc.Ingest(context.Background(), []knowledge.DocumentInput{
		{ID: "1.md", Raw: "Neo4j is a graph database and Redis is a cache."},
		{ID: "2.md", Raw: "Kafka is a log and Redis is a cache server."},
		{ID: "3.md", Raw: "Postgres is a database used with Neo4j often."},
	})
	require.Error(t, err)
	assert.True(t, knowledge.IsKind(err, knowledge.KindGraphWrite))
	assert.True(t, IsAbort(err))

	assert.Equal(t, 1, sum.Processed)
	assert.Equal(t, 2, sum.Failed)
	require.Len(t, sum.Documents, 3)
	assert.Equal(t, knowledge.DocumentFailed, sum.Documents[1].Status)
	assert.Contains(t, sum.Documents[1].Reason, "retryable")
	assert.Contains(t, sum.Documents[2].Reason, "aborted")

	assert.Contains(t, g.docs, "1.md")
	assert.NotContains(t, g.docs, "2.md")
	assert.Len(t, ledger.rows, 1)
}

// partialGraph commits documents, entities and memberships, then fails on
// relations.
type partialGraph struct{ *memGraph }

func (g partialGraph) UpsertBatch(_ context.Context, b *knowledge.Batch) (knowledge.WriteSummary, error) {
	return knowledge.WriteSummary{Documents: 1, Entities: 2, Memberships: 2},
		knowledge.GraphWriteError("relations", false, errors.New("constraint violated"))
}

func TestIngestInvalidatesCacheAfterPartialWrite(t *testing.T) {
	inv := &countingInvalidator{}
	svc := newService(partialGraph{newMemGraph()}, nil, inv, Options{})

	sum, err := svc.Ingest(context.Background(), []knowledge.DocumentInput{
		{ID: "a.md", Raw: "Neo4j is a graph database and Redis is a cache."},
	})
	require.Error(t, err)
	assert.True(t, knowledge.IsKind(err, knowledge.KindGraphWrite))
	assert.Equal(t, 1, sum.Written.Documents)
	assert.Equal(t, 0, sum.Flushes)
	assert.Equal(t, 1, inv.batches)
	assert.Contains(t, inv.keys, "neo4j")
}

// staticNER answers like a spaCy-style service: PYTHON only when the chunk
// spells it that way.
type staticNER struct{}

func (staticNER) GenerateJSON(_ context.Context, _, user string) (string, error) {
	if strings.Contains(user, "PYTHON") {
		return `{"entities":[{"text":"PYTHON","label":"PRODUCT"}]}`, nil
	}
	return `{"entities":[{"text":"Python","label":"PRODUCT"}],"noun_phrases":["编程语言"]}`, nil
}

const pythonNote = "---\ntitle: \"Python编程基础\"\ntags: [编程, Python]\n---\nPython是一种编程语言\n"

func TestIngestFrontMatterChineseScenario(t *testing.T) {
	g := newMemGraph()
	svc := New(Deps{
		Graph: g,
		Entities: entities.NewChain(logger.Nop(),
			entities.NewModelStrategy(staticNER{}, logger.Nop()),
			entities.NewRuleStrategy(),
		),
		Log: logger.Nop(),
	}, Options{Concurrency: 1})

	sum, err := svc.Ingest(context.Background(), []knowledge.DocumentInput{
		{ID: "notes/python.md", Raw: pythonNote},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, sum.Processed)
	assert.Equal(t, "model", sum.Strategy)

	doc := g.docs["notes/python.md"]
	assert.Equal(t, "Python编程基础", doc.Title)
	assert.Equal(t, []string{"编程", "Python"}, doc.Tags)
	assert.Equal(t, []string{"python", "编程语言"}, g.entityKeys())
	assert.Len(t, g.memberships, 2)
	require.Len(t, g.relations, 1)
	_, ok := g.relations[knowledge.TripleKey{Source: "python", Label: "是", Target: "编程语言"}]
	assert.True(t, ok)

	// A later document spelling it differently lands on the same entity.
	_, err = svc.Ingest(context.Background(), []knowledge.DocumentInput{
		{ID: "notes/shout.md", Raw: "PYTHON everywhere."},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"python", "编程语言"}, g.entityKeys())
	assert.Equal(t, "Python", g.entities["python"].Name)
	assert.Contains(t, g.memberships, knowledge.Membership{DocumentID: "notes/python.md", EntityKey: "python"})
	assert.Contains(t, g.memberships, knowledge.Membership{DocumentID: "notes/shout.md", EntityKey: "python"})
}

func TestIngestStopsWhenCanceled(t *testing.T) {
	g := newMemGraph()
	svc := newService(g, nil, nil, Options{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	sum, err := svc.Ingest(ctx, []knowledge.DocumentInput{
		{ID: "a.md", Raw: "Neo4j is a graph database and Redis is a cache."},
	})
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, sum.Failed)
	assert.Zero(t, g.upserts)
}

type failingStrategy struct{}

func (failingStrategy) Name() string                   { return "model" }
func (failingStrategy) Available(context.Context) bool { return true }
func (failingStrategy) Extract(context.Context, string) ([]knowledge.Entity, error) {
	return nil, errors.New("rate limited")
}

func TestIngestFallsBackPerDocument(t *testing.T) {
	g := newMemGraph()
	svc := New(Deps{
		Graph:    g,
		Entities: entities.NewChain(logger.Nop(), failingStrategy{}, entities.NewRuleStrategy()),
		Log:      logger.Nop(),
	}, Options{})

	sum, err := svc.Ingest(context.Background(), []knowledge.DocumentInput{
		{ID: "a.md", Raw: "Neo4j is a graph database and Redis is a cache."},
	})
	require.NoError(t, err)
	assert.Equal(t, "model", sum.Strategy)
	require.Len(t, sum.Documents, 1)
	assert.Equal(t, "rule", sum.Documents[0].Strategy)
	assert.True(t, sum.Documents[0].Degraded)
	assert.Contains(t, g.entities, "neo4j")
}
