// Package webroot inspects the published file tree: how many pages are on
// disk, how much space they take, and how much room the filesystem has
// left. The status command reads the web root through it.
package webroot

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/charlievieth/fastwalk"

	"github.com/jamesainslie/staticgen/pkg/staticgen/cachepath"
)

// Stats summarizes the contents of a web root.
type Stats struct {
	// Files is the number of regular files.
	Files int64 `json:"files" yaml:"files"`

	// Dirs is the number of directories, the root included.
	Dirs int64 `json:"dirs" yaml:"dirs"`

	// Bytes is the total size of all files.
	Bytes int64 `json:"bytes" yaml:"bytes"`

	// IndexDocs counts directory-index documents (index.html? files).
	IndexDocs int64 `json:"index_docs" yaml:"index_docs"`

	// AjaxVariants counts files carrying the ,ajax suffix.
	AjaxVariants int64 `json:"ajax_variants" yaml:"ajax_variants"`

	// Elapsed is the walk duration.
	Elapsed time.Duration `json:"elapsed" yaml:"elapsed"`

	// Errors lists paths the walk could not read.
	Errors []string `json:"errors,omitempty" yaml:"errors,omitempty"`
}

// DiskUsage describes the filesystem holding the web root. Zero values
// mean the platform offers no answer.
type DiskUsage struct {
	Total uint64 `json:"total" yaml:"total"`
	Free  uint64 `json:"free" yaml:"free"`
	Used  uint64 `json:"used" yaml:"used"`
}

// collector carries the walk counters. fastwalk runs the callback from
// multiple goroutines, so everything is atomic or mutex-guarded.
type collector struct {
	files atomic.Int64
	dirs  atomic.Int64
	bytes atomic.Int64
	index atomic.Int64
	ajax  atomic.Int64

	errsMu sync.Mutex
	errs   []string
}

// Collect walks the web root and tallies what is published there.
func Collect(ctx context.Context, root string) (*Stats, error) {
	start := time.Now()

	root, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(root)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return nil, os.ErrInvalid
	}

	c := &collector{}
	conf := fastwalk.Config{Follow: false}
	if err := fastwalk.Walk(&conf, root, c.callback(ctx)); err != nil {
		return nil, err
	}

	return &Stats{
		Files:        c.files.Load(),
		Dirs:         c.dirs.Load(),
		Bytes:        c.bytes.Load(),
		IndexDocs:    c.index.Load(),
		AjaxVariants: c.ajax.Load(),
		Elapsed:      time.Since(start),
		Errors:       c.errs,
	}, nil
}

func (c *collector) callback(ctx context.Context) fs.WalkDirFunc {
	return func(path string, d fs.DirEntry, err error) error {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if err != nil {
			c.addError(path)
			return nil
		}

		if d.IsDir() {
			c.dirs.Add(1)
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			c.addError(path)
			return nil
		}

		c.files.Add(1)
		c.bytes.Add(info.Size())

		name := d.Name()
		if strings.HasPrefix(name, cachepath.IndexBasename) {
			c.index.Add(1)
		}
		if strings.HasSuffix(name, cachepath.AjaxSuffix) {
			c.ajax.Add(1)
		}
		return nil
	}
}

func (c *collector) addError(path string) {
	c.errsMu.Lock()
	c.errs = append(c.errs, path)
	c.errsMu.Unlock()
}
