package webroot_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jamesainslie/staticgen/pkg/staticgen/webroot"
)

func writeFile(t *testing.T, path string, size int) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, make([]byte, size), 0o644))
}

func TestCollect(t *testing.T) {
	root := t.TempDir()

	writeFile(t, filepath.Join(root, "blog", "index.html?"), 100)
	writeFile(t, filepath.Join(root, "blog", "index.html?,ajax"), 50)
	writeFile(t, filepath.Join(root, "blog", "index.html?page=2"), 80)
	writeFile(t, filepath.Join(root, "about"), 20)
	writeFile(t, filepath.Join(root, "deep", "nested", "page"), 10)

	stats, err := webroot.Collect(context.Background(), root)
	require.NoError(t, err)

	assert.Equal(t, int64(5), stats.Files)
	assert.Equal(t, int64(260), stats.Bytes)
	assert.Equal(t, int64(3), stats.IndexDocs, "all index.html? prefixed files count")
	assert.Equal(t, int64(1), stats.AjaxVariants)
	assert.Equal(t, int64(4), stats.Dirs, "root, blog, deep, deep/nested")
	assert.Empty(t, stats.Errors)
}

func TestCollectEmptyRoot(t *testing.T) {
	stats, err := webroot.Collect(context.Background(), t.TempDir())
	require.NoError(t, err)

	assert.Zero(t, stats.Files)
	assert.Equal(t, int64(1), stats.Dirs)
}

func TestCollectMissingRoot(t *testing.T) {
	_, err := webroot.Collect(context.Background(), filepath.Join(t.TempDir(), "nope"))
	require.Error(t, err)
}

func TestCollectRootMustBeDir(t *testing.T) {
	path := filepath.Join(t.TempDir(), "file")
	writeFile(t, path, 1)

	_, err := webroot.Collect(context.Background(), path)
	require.ErrorIs(t, err, os.ErrInvalid)
}

func TestCollectCancelled(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "a"), 1)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := webroot.Collect(ctx, root)
	require.ErrorIs(t, err, context.Canceled)
}

func TestDisk(t *testing.T) {
	usage, err := webroot.Disk(t.TempDir())
	require.NoError(t, err)

	// Zero means the platform has no answer; otherwise the numbers must
	// be coherent.
	if usage.Total > 0 {
		assert.LessOrEqual(t, usage.Free, usage.Total)
		assert.Equal(t, usage.Total-usage.Free, usage.Used)
	}
}
