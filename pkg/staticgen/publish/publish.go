// Package publish materializes rendered pages as static files under a web
// root and invalidates them when content goes stale.
//
// Publishing renders a page through a renderer.Renderer (unless content is
// supplied), maps its URL to a cache location, and writes the bytes with a
// temp-file-then-rename sequence so readers never observe a partial file.
// Deletion is idempotent and prunes emptied directories. Both flows share
// the cachepath mapping, and neither holds state between calls: the
// filesystem is the only shared resource, and the last rename wins.
package publish

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"syscall"
	"time"

	"github.com/jamesainslie/staticgen/pkg/staticgen/cachepath"
	"github.com/jamesainslie/staticgen/pkg/staticgen/logging"
	"github.com/jamesainslie/staticgen/pkg/staticgen/manifest"
	"github.com/jamesainslie/staticgen/pkg/staticgen/renderer"
)

// logger is the package-level logger for publish operations.
var logger = logging.Get("publish")

// Errors reported by publish and delete operations. All wrap the path or
// filename they concern.
var (
	// ErrWebRootMissing is returned by New when no web root is configured.
	ErrWebRootMissing = errors.New("web root not configured")

	// ErrRenderFailed reports a renderer transport or application failure.
	ErrRenderFailed = errors.New("render failed")

	// ErrStatusNotOK reports a render that completed with a status other
	// than 200. Such pages are never written.
	ErrStatusNotOK = errors.New("non-200 status")

	// ErrDirCreateFailed reports a containing directory that could not be
	// created.
	ErrDirCreateFailed = errors.New("directory create failed")

	// ErrFileWriteFailed reports a failure anywhere in the temp-write-
	// rename sequence.
	ErrFileWriteFailed = errors.New("file write failed")

	// ErrFileDeleteFailed reports a failure to remove an existing file or
	// to prune its directory for a reason other than the directory being
	// shared or already gone.
	ErrFileDeleteFailed = errors.New("file delete failed")
)

// Publisher writes and removes static files for one web root.
type Publisher struct {
	root     string
	renderer renderer.Renderer
	manifest *manifest.Store
}

// Option configures a Publisher.
type Option func(*Publisher)

// WithManifest records published pages in the given store. Manifest
// updates are best-effort: a store failure is logged, never propagated.
func WithManifest(store *manifest.Store) Option {
	return func(p *Publisher) { p.manifest = store }
}

// New creates a Publisher rooted at webRoot. The web root is validated
// here, before any page is processed. The renderer may be nil when every
// publish call supplies its content.
func New(webRoot string, r renderer.Renderer, opts ...Option) (*Publisher, error) {
	if webRoot == "" {
		return nil, ErrWebRootMissing
	}
	p := &Publisher{root: webRoot, renderer: r}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// pageConfig carries per-page options. querySet and contentSet distinguish
// an explicitly supplied empty value from an absent one.
type pageConfig struct {
	query      string
	querySet   bool
	content    []byte
	contentSet bool
	ajax       bool
	batchID    string
}

// PageOption configures a single publish or delete call.
type PageOption func(*pageConfig)

// WithQuery supplies a query string that was already split from the path,
// so the raw path is used as-is instead of being split again. Batch and
// middleware callers use this when they hold the components separately.
func WithQuery(query string) PageOption {
	return func(c *pageConfig) {
		c.query = query
		c.querySet = true
	}
}

// WithContent supplies pre-rendered content, skipping the renderer. An
// explicitly supplied empty body publishes an empty file.
func WithContent(body []byte) PageOption {
	return func(c *pageConfig) {
		c.content = body
		c.contentSet = true
	}
}

// WithAjax selects the AJAX variant of the page.
func WithAjax() PageOption {
	return func(c *pageConfig) { c.ajax = true }
}

// outcome reports what a single operation did, for batch accounting.
type outcome struct {
	applied bool
	bytes   int64
}

// Publish renders the page at rawPath and writes it to its cache location.
// Paths that map to no location are skipped silently. The context is
// passed to the renderer only; filesystem work runs to completion.
func (p *Publisher) Publish(ctx context.Context, rawPath string, opts ...PageOption) error {
	_, err := p.publish(ctx, rawPath, applyOptions(opts))
	return err
}

func (p *Publisher) publish(ctx context.Context, rawPath string, cfg pageConfig) (outcome, error) {
	path, query, err := p.splitPath(rawPath, cfg)
	if err != nil {
		return outcome{}, err
	}

	loc, ok := cachepath.Map(p.root, path, query, cfg.ajax)
	if !ok {
		logger.Debug("path not cacheable, skipping", "path", rawPath)
		return outcome{}, nil
	}

	body := cfg.content
	if !cfg.contentSet {
		body, err = p.render(ctx, path, query, cfg.ajax)
		if err != nil {
			return outcome{}, err
		}
	}

	if err := os.MkdirAll(loc.Dir, 0o755); err != nil {
		return outcome{}, fmt.Errorf("%w: %q: %v", ErrDirCreateFailed, loc.Dir, err)
	}
	if err := writeFileAtomic(loc.Filename, body); err != nil {
		return outcome{}, fmt.Errorf("%w: %q: %v", ErrFileWriteFailed, loc.Filename, err)
	}

	logger.Debug("published", "path", rawPath, "file", loc.Filename, "bytes", len(body))
	p.recordPublish(path, query, cfg, loc.Filename, body)
	return outcome{applied: true, bytes: int64(len(body))}, nil
}

// render obtains page content from the renderer. The renderer receives the
// path and query separately and recomposes the original request target.
func (p *Publisher) render(ctx context.Context, path, query string, ajax bool) ([]byte, error) {
	if p.renderer == nil {
		return nil, fmt.Errorf("%w: %q: no renderer configured", ErrRenderFailed, path)
	}

	res, err := p.renderer.Render(ctx, renderer.Request{Path: path, Query: query, Ajax: ajax})
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %v", ErrRenderFailed, path, err)
	}
	if res.Status != http.StatusOK {
		return nil, fmt.Errorf("%w: %q returned %d", ErrStatusNotOK, path, res.Status)
	}
	return res.Body, nil
}

// Delete removes the static file for rawPath. Deleting a page that was
// never published, or whose path maps to no location, is a no-op. After
// removing the file the containing directory is pruned if it is empty;
// a directory that still holds siblings, or is already gone, is left
// alone, while any other prune failure is reported rather than masked.
func (p *Publisher) Delete(rawPath string, opts ...PageOption) error {
	_, err := p.delete(rawPath, applyOptions(opts))
	return err
}

func (p *Publisher) delete(rawPath string, cfg pageConfig) (outcome, error) {
	path, query, err := p.splitPath(rawPath, cfg)
	if err != nil {
		return outcome{}, err
	}

	loc, ok := cachepath.Map(p.root, path, query, cfg.ajax)
	if !ok {
		return outcome{}, nil
	}

	if err := os.Remove(loc.Filename); err != nil {
		if !os.IsNotExist(err) {
			return outcome{}, fmt.Errorf("%w: %q: %v", ErrFileDeleteFailed, loc.Filename, err)
		}
	}

	if err := os.Remove(loc.Dir); err != nil && !dirSharedOrMissing(err) {
		return outcome{}, fmt.Errorf("%w: prune directory %q: %v", ErrFileDeleteFailed, loc.Dir, err)
	}

	logger.Debug("deleted", "path", rawPath, "file", loc.Filename)
	p.recordDelete(path, query, cfg.ajax)
	return outcome{applied: true}, nil
}

// Purge removes the entire directory subtree the path maps into, for bulk
// invalidation of a path prefix. The query string plays no part in the
// mapping, and removal errors are ignored: purging is best-effort cleanup,
// and a subtree that never existed is already purged.
func (p *Publisher) Purge(rawPath string) error {
	_, err := p.purge(rawPath)
	return err
}

func (p *Publisher) purge(rawPath string) (outcome, error) {
	loc, ok := cachepath.Map(p.root, rawPath, "", false)
	if !ok {
		return outcome{}, nil
	}

	if err := os.RemoveAll(loc.Dir); err != nil {
		logger.Warn("purge left residue", "dir", loc.Dir, "error", err)
	}

	logger.Debug("purged", "path", rawPath, "dir", loc.Dir)
	p.recordPurge(rawPath)
	return outcome{applied: true}, nil
}

// splitPath resolves the effective path and query for one call. A caller
// that already split the query supplies it via WithQuery; otherwise the
// raw path is split here.
func (p *Publisher) splitPath(rawPath string, cfg pageConfig) (string, string, error) {
	if cfg.querySet {
		return rawPath, cfg.query, nil
	}
	return cachepath.SplitQuery(rawPath)
}

// dirSharedOrMissing reports whether a directory removal failed only
// because the directory still has entries or does not exist. Those are
// the expected outcomes of best-effort pruning; anything else is a real
// failure.
func dirSharedOrMissing(err error) bool {
	return errors.Is(err, syscall.ENOTEMPTY) || errors.Is(err, syscall.EEXIST) || os.IsNotExist(err)
}

// writeFileAtomic writes body to filename through a uniquely named
// temporary file in the same directory, so the rename that publishes the
// content is atomic and a reader never sees a partial file. The temp file
// is unlinked on every exit path; after a successful rename the unlink
// quietly finds nothing to do.
func writeFileAtomic(filename string, body []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(filename), ".publish-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(body); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Chmod(0o644); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}

	return os.Rename(tmpName, filename)
}

func applyOptions(opts []PageOption) pageConfig {
	var cfg pageConfig
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}

// recordPublish notes a successful publish in the manifest, if one is
// configured. Failures are logged and swallowed: the write already
// happened, and the manifest must never turn a published page into an
// error.
func (p *Publisher) recordPublish(path, query string, cfg pageConfig, filename string, body []byte) {
	if p.manifest == nil {
		return
	}
	sum := sha256.Sum256(body)
	rec := &manifest.Record{
		Path:        path,
		Query:       query,
		Ajax:        cfg.ajax,
		Filename:    filename,
		Size:        int64(len(body)),
		SHA256:      hex.EncodeToString(sum[:]),
		PublishedAt: time.Now(),
		BatchID:     cfg.batchID,
	}
	if err := p.manifest.Put(rec); err != nil {
		logger.Warn("manifest update failed", "path", path, "error", err)
	}
}

func (p *Publisher) recordDelete(path, query string, ajax bool) {
	if p.manifest == nil {
		return
	}
	if err := p.manifest.Delete(path, query, ajax); err != nil {
		logger.Warn("manifest delete failed", "path", path, "error", err)
	}
}

func (p *Publisher) recordPurge(prefix string) {
	if p.manifest == nil {
		return
	}
	if _, err := p.manifest.DeleteTree(prefix); err != nil {
		logger.Warn("manifest purge failed", "prefix", prefix, "error", err)
	}
}
