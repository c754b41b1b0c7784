package source

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hedaiyu-site/Graduation-project/internal/domain/knowledge"
	"github.com/hedaiyu-site/Graduation-project/internal/platform/logger"
)

func writeFile(t *testing.T, path, body string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
}

func TestDirLoad(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "b.md"), "# B")
	writeFile(t, filepath.Join(root, "a.MD"), "# A")
	writeFile(t, filepath.Join(root, "sub", "c.markdown"), "# C")
	writeFile(t, filepath.Join(root, "notes.txt"), "skip")
	writeFile(t, filepath.Join(root, ".git", "d.md"), "skip")
	writeFile(t, filepath.Join(root, "node_modules", "pkg", "e.md"), "skip")

	d, err := NewDir(root, DefaultOptions(), logger.Nop())
	require.NoError(t, err)

	docs, err := d.Load(context.Background())
	require.NoError(t, err)
	require.Len(t, docs, 3)

	abs, _ := filepath.Abs(root)
	base := filepath.ToSlash(abs)
	assert.Equal(t, base+"/a.MD", docs[0].ID)
	assert.Equal(t, base+"/b.md", docs[1].ID)
	assert.Equal(t, base+"/sub/c.markdown", docs[2].ID)
	assert.Equal(t, "# A", docs[0].Raw)
	assert.Nil(t, docs[0].Meta)
}

func TestDirSkipsOversizedFiles(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "small.md"), "ok")
	writeFile(t, filepath.Join(root, "large.md"), "this file is too large")

	opts := DefaultOptions()
	opts.MaxBytes = 4
	d, err := NewDir(root, opts, logger.Nop())
	require.NoError(t, err)

	docs, err := d.Load(context.Background())
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "ok", docs[0].Raw)
}

func TestNewDirRejectsFiles(t *testing.T) {
	root := t.TempDir()
	file := filepath.Join(root, "x.md")
	writeFile(t, file, "x")
	_, err := NewDir(file, DefaultOptions(), logger.Nop())
	assert.Error(t, err)
}

func TestDirWatchDeliversChangedDocuments(t *testing.T) {
	root := t.TempDir()
	d, err := NewDir(root, DefaultOptions(), logger.Nop())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	got := make(chan []knowledge.DocumentInput, 4)
	done := make(chan error, 1)
	go func() {
		done <- d.Watch(ctx, 50*time.Millisecond, func(_ context.Context, docs []knowledge.DocumentInput) {
			got <- docs
		})
	}()

	// Give the watcher time to register the root.
	time.Sleep(200 * time.Millisecond)
	writeFile(t, filepath.Join(root, "new.md"), "Neo4j is a graph database.")
	writeFile(t, filepath.Join(root, "ignored.txt"), "nope")

	select {
	case docs := <-got:
		require.Len(t, docs, 1)
		assert.Contains(t, docs[0].ID, "/new.md")
		assert.Equal(t, "Neo4j is a graph database.", docs[0].Raw)
	case <-time.After(5 * time.Second):
		t.Fatal("no change delivered")
	}

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("watch did not stop")
	}
}
