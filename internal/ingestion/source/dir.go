package source

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/hedaiyu-site/Graduation-project/internal/domain/knowledge"
	"github.com/hedaiyu-site/Graduation-project/internal/platform/logger"
)

type Options struct {
	// Extensions lists the file suffixes picked up, lower case with the dot.
	Extensions []string
	// IgnorePatterns are matched against base names; matching dirs are pruned.
	IgnorePatterns []string
	// MaxBytes skips larger files. Zero means no limit.
	MaxBytes int64
}

func DefaultOptions() Options {
	return Options{
		Extensions:     []string{".md", ".markdown"},
		IgnorePatterns: []string{".git", "node_modules", ".obsidian", "*.swp", "*.tmp", "~*"},
		MaxBytes:       8 << 20,
	}
}

// Dir reads markdown documents from a directory tree. Document IDs are the
// absolute slash-separated file paths.
type Dir struct {
	root string
	opts Options
	log  *logger.Logger
}

func NewDir(root string, opts Options, log *logger.Logger) (*Dir, error) {
	if log == nil {
		log = logger.Nop()
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve %q: %w", root, err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s is not a directory", abs)
	}
	if len(opts.Extensions) == 0 {
		opts.Extensions = DefaultOptions().Extensions
	}
	return &Dir{root: abs, opts: opts, log: log.With("service", "DirectorySource")}, nil
}

func (d *Dir) Root() string { return d.root }

// Load walks the tree in lexical order and reads every matching file.
// Unreadable files are logged and left out.
func (d *Dir) Load(ctx context.Context) ([]knowledge.DocumentInput, error) {
	paths, err := d.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]knowledge.DocumentInput, 0, len(paths))
	for _, p := range paths {
		if err := ctx.Err(); err != nil {
			return out, err
		}
		in, err := d.Read(p)
		if err != nil {
			d.log.Warn("document unreadable", "path", p, "error", err)
			continue
		}
		out = append(out, in)
	}
	d.log.Info("directory loaded", "root", d.root, "documents", len(out))
	return out, nil
}

// List returns the matching file paths under the root.
func (d *Dir) List(ctx context.Context) ([]string, error) {
	var out []string
	err := filepath.WalkDir(d.root, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			d.log.Warn("walk error", "path", path, "error", err)
			if entry != nil && entry.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if cerr := ctx.Err(); cerr != nil {
			return cerr
		}
		if path != d.root && d.ignored(path) {
			if entry.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if entry.IsDir() || !d.Matches(path) {
			return nil
		}
		out = append(out, path)
		return nil
	})
	return out, err
}

// Read loads one file as a DocumentInput.
func (d *Dir) Read(path string) (knowledge.DocumentInput, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return knowledge.DocumentInput{}, err
	}
	if d.opts.MaxBytes > 0 {
		info, err := os.Stat(abs)
		if err != nil {
			return knowledge.DocumentInput{}, err
		}
		if info.Size() > d.opts.MaxBytes {
			return knowledge.DocumentInput{}, fmt.Errorf("%s is %d bytes, limit %d", abs, info.Size(), d.opts.MaxBytes)
		}
	}
	b, err := os.ReadFile(abs)
	if err != nil {
		return knowledge.DocumentInput{}, err
	}
	return knowledge.DocumentInput{ID: filepath.ToSlash(abs), Raw: string(b)}, nil
}

// Matches reports whether path has one of the configured extensions and is
// not ignored.
func (d *Dir) Matches(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, e := range d.opts.Extensions {
		if ext == e {
			return !d.ignored(path)
		}
	}
	return false
}

func (d *Dir) ignored(path string) bool {
	base := filepath.Base(path)
	for _, pattern := range d.opts.IgnorePatterns {
		if base == pattern {
			return true
		}
		if ok, _ := filepath.Match(pattern, base); ok {
			return true
		}
	}
	return false
}
