package ingest

import (
	"context"
	"testing"
	"time"

	"github.com/hedaiyu-site/Graduation-project/internal/data/repos/testutil"
	"github.com/hedaiyu-site/Graduation-project/internal/domain"
	"github.com/hedaiyu-site/Graduation-project/internal/platform/dbctx"
)

func TestIngestRecordRepo(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)

	ctx := context.Background()
	repo := NewIngestRecordRepo(db, testutil.Logger(t))
	dbc := dbctx.Context{Ctx: ctx, Tx: tx}

	first := []*domain.IngestRecord{
		{DocumentID: "notes/a.md", ContentHash: "h1", RunID: "run-1", Strategy: "rule", Entities: 3, Relations: 1},
		{DocumentID: "notes/b.md", ContentHash: "h2", RunID: "run-1", Strategy: "rule", Entities: 5},
	}
	if err := repo.Upsert(dbc, first); err != nil {
		t.Fatalf("Upsert: %v", err)
	}

	hashes, err := repo.HashesByDocumentIDs(dbc, []string{"notes/a.md", "notes/b.md", "notes/missing.md"})
	if err != nil {
		t.Fatalf("HashesByDocumentIDs: %v", err)
	}
	if len(hashes) != 2 || hashes["notes/a.md"] != "h1" || hashes["notes/b.md"] != "h2" {
		t.Fatalf("HashesByDocumentIDs: want=2 rows got=%v", hashes)
	}

	// Re-ingest supersedes the row for the same document.
	if err := repo.Upsert(dbc, []*domain.IngestRecord{
		{DocumentID: "notes/a.md", ContentHash: "h1b", RunID: "run-2", Strategy: "model", Entities: 4, Relations: 2},
	}); err != nil {
		t.Fatalf("Upsert (second): %v", err)
	}
	rows, err := repo.GetByDocumentIDs(dbc, []string{"notes/a.md"})
	if err != nil {
		t.Fatalf("GetByDocumentIDs: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("GetByDocumentIDs: want=1 got=%d", len(rows))
	}
	if rows[0].ContentHash != "h1b" || rows[0].RunID != "run-2" || rows[0].Strategy != "model" {
		t.Fatalf("GetByDocumentIDs: want superseded row got=%+v", rows[0])
	}
	if rows[0].IngestedAt.IsZero() {
		t.Fatalf("IngestedAt: want set")
	}

	recent, err := repo.ListSince(dbc, time.Now().UTC().Add(-time.Hour), 10)
	if err != nil {
		t.Fatalf("ListSince: %v", err)
	}
	if len(recent) != 2 {
		t.Fatalf("ListSince: want=2 got=%d", len(recent))
	}

	if err := repo.DeleteByDocumentIDs(dbc, []string{"notes/b.md"}); err != nil {
		t.Fatalf("DeleteByDocumentIDs: %v", err)
	}
	hashes, err = repo.HashesByDocumentIDs(dbc, []string{"notes/b.md"})
	if err != nil {
		t.Fatalf("HashesByDocumentIDs (after delete): %v", err)
	}
	if len(hashes) != 0 {
		t.Fatalf("HashesByDocumentIDs (after delete): want=0 got=%v", hashes)
	}
}
