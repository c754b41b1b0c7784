package source

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/hedaiyu-site/Graduation-project/internal/domain/knowledge"
)

// ChangeHandler receives the documents changed within one debounce window.
type ChangeHandler func(ctx context.Context, docs []knowledge.DocumentInput)

// Watch re-reads matching files as they are created or written and hands them
// to handle in debounced batches. Removals are ignored: the graph never
// deletes what a document contributed. Watch blocks until ctx is done.
func (d *Dir) Watch(ctx context.Context, debounce time.Duration, handle ChangeHandler) error {
	if debounce <= 0 {
		debounce = 500 * time.Millisecond
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	if err := d.addRecursive(w, d.root); err != nil {
		return err
	}
	d.log.Info("watching directory", "root", d.root, "debounce_ms", debounce.Milliseconds())

	pending := map[string]struct{}{}
	var timer *time.Timer
	var timerC <-chan time.Time

	flush := func() {
		if timer != nil {
			timer.Stop()
			timer, timerC = nil, nil
		}
		if len(pending) == 0 {
			return
		}
		paths := make([]string, 0, len(pending))
		for p := range pending {
			paths = append(paths, p)
		}
		sort.Strings(paths)
		clear(pending)

		docs := make([]knowledge.DocumentInput, 0, len(paths))
		for _, p := range paths {
			in, err := d.Read(p)
			if err != nil {
				if !errors.Is(err, fs.ErrNotExist) {
					d.log.Warn("changed document unreadable", "path", p, "error", err)
				}
				continue
			}
			docs = append(docs, in)
		}
		if len(docs) > 0 {
			handle(ctx, docs)
		}
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if d.ignored(ev.Name) {
				continue
			}
			if ev.Has(fsnotify.Create) {
				if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
					if err := d.addRecursive(w, ev.Name); err != nil {
						d.log.Warn("watch add failed", "path", ev.Name, "error", err)
					}
					continue
				}
			}
			if !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Write) {
				continue
			}
			if !d.Matches(ev.Name) {
				continue
			}
			pending[ev.Name] = struct{}{}
			if timer == nil {
				timer = time.NewTimer(debounce)
				timerC = timer.C
			} else {
				timer.Reset(debounce)
			}
		case <-timerC:
			timer, timerC = nil, nil
			flush()
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			d.log.Warn("watcher error", "error", err)
		}
	}
}

func (d *Dir) addRecursive(w *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if !entry.IsDir() {
			return nil
		}
		if path != d.root && d.ignored(path) {
			return filepath.SkipDir
		}
		return w.Add(path)
	})
}
