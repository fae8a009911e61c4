package publish_test

import (
	"context"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jamesainslie/staticgen/pkg/staticgen/manifest"
	"github.com/jamesainslie/staticgen/pkg/staticgen/publish"
	"github.com/jamesainslie/staticgen/pkg/staticgen/renderer"
	"github.com/jamesainslie/staticgen/pkg/staticgen/resource"
)

// article resolves to a canonical URL, standing in for a domain object.
type article struct{ slug string }

func (a article) CanonicalURL() string { return "/articles/" + a.slug + "/" }

type brokenResource struct{}

func (brokenResource) CacheURLs() ([]string, error) {
	return nil, errors.New("resolver exploded")
}

func TestPublishAllReport(t *testing.T) {
	p, root, r := newPublisher(t)

	resources := []resource.Resource{
		resource.Path("/home/"),
		resource.Object(article{slug: "one"}),
		resource.Collection(article{slug: "two"}, article{slug: "three"}),
	}

	rep, err := p.PublishAll(context.Background(), resources)
	require.NoError(t, err)

	assert.Equal(t, publish.OpPublish, rep.Op)
	assert.NotEmpty(t, rep.BatchID)
	assert.Equal(t, 4, rep.Total)
	assert.Equal(t, 4, rep.Applied)
	assert.Zero(t, rep.Skipped)
	assert.Empty(t, rep.Failed)
	assert.Positive(t, rep.Bytes)

	// Paths render in resolved order.
	var got []string
	for _, req := range r.calls() {
		got = append(got, req.Path)
	}
	assert.Equal(t, []string{"/home/", "/articles/one/", "/articles/two/", "/articles/three/"}, got)

	for _, rel := range []string{
		filepath.Join("home", "index.html?"),
		filepath.Join("articles", "one", "index.html?"),
		filepath.Join("articles", "two", "index.html?"),
		filepath.Join("articles", "three", "index.html?"),
	} {
		_, err := os.Stat(filepath.Join(root, rel))
		assert.NoError(t, err, rel)
	}
}

func TestPublishAllSkipsUncacheable(t *testing.T) {
	p, _, r := newPublisher(t)

	long := "/" + strings.Repeat("x", 300) + "/"
	rep, err := p.PublishAll(context.Background(), resource.Paths("/a/", long, "/b/"))
	require.NoError(t, err)

	assert.Equal(t, 3, rep.Total)
	assert.Equal(t, 2, rep.Applied)
	assert.Equal(t, 1, rep.Skipped)
	assert.Len(t, r.calls(), 2, "skipped path must not reach the renderer")
}

func TestPublishAllAbortsOnFirstFailure(t *testing.T) {
	p, root, r := newPublisher(t)
	r.respond = func(req renderer.Request) (*renderer.Result, error) {
		if req.Path == "/bad/" {
			return &renderer.Result{Status: http.StatusInternalServerError}, nil
		}
		return &renderer.Result{Status: http.StatusOK, Body: []byte("ok")}, nil
	}

	rep, err := p.PublishAll(context.Background(), resource.Paths("/a/", "/bad/", "/c/"))
	require.ErrorIs(t, err, publish.ErrStatusNotOK)

	assert.Equal(t, "/bad/", rep.Failed)
	assert.Equal(t, 1, rep.Applied)
	assert.Len(t, r.calls(), 2, "paths after the failure must not render")

	_, statErr := os.Stat(filepath.Join(root, "a", "index.html?"))
	assert.NoError(t, statErr, "work before the failure stays published")
	_, statErr = os.Stat(filepath.Join(root, "c"))
	assert.True(t, os.IsNotExist(statErr))
}

func TestPublishAllResolveError(t *testing.T) {
	p, _, r := newPublisher(t)

	rep, err := p.PublishAll(context.Background(), []resource.Resource{
		resource.Path("/fine/"),
		brokenResource{},
	})
	require.Error(t, err)
	assert.Nil(t, rep)
	assert.Empty(t, r.calls(), "resolution failure must precede all publishing")
}

func TestPublishAllAjaxOption(t *testing.T) {
	p, root, _ := newPublisher(t)

	_, err := p.PublishAll(context.Background(), resource.Paths("/a/", "/b/"), publish.WithAjax())
	require.NoError(t, err)

	for _, rel := range []string{
		filepath.Join("a", "index.html?,ajax"),
		filepath.Join("b", "index.html?,ajax"),
	} {
		_, err := os.Stat(filepath.Join(root, rel))
		assert.NoError(t, err, rel)
	}
}

func TestDeleteAll(t *testing.T) {
	p, root, _ := newPublisher(t)
	ctx := context.Background()

	_, err := p.PublishAll(ctx, resource.Paths("/a/", "/b/"))
	require.NoError(t, err)

	rep, err := p.DeleteAll(resource.Paths("/a/", "/b/"))
	require.NoError(t, err)
	assert.Equal(t, publish.OpDelete, rep.Op)
	assert.Equal(t, 2, rep.Applied)

	for _, rel := range []string{"a", "b"} {
		_, err := os.Stat(filepath.Join(root, rel))
		assert.True(t, os.IsNotExist(err), rel)
	}
}

func TestPurgeAll(t *testing.T) {
	p, root, _ := newPublisher(t)
	ctx := context.Background()

	_, err := p.PublishAll(ctx, resource.Paths("/blog/1/", "/blog/2/", "/news/1/"))
	require.NoError(t, err)

	rep, err := p.PurgeAll(resource.Paths("/blog/", "/news/"))
	require.NoError(t, err)
	assert.Equal(t, publish.OpPurge, rep.Op)
	assert.Equal(t, 2, rep.Applied)

	entries, err := os.ReadDir(root)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestBatchStampsManifestRecords(t *testing.T) {
	store, err := manifest.Open(t.TempDir())
	require.NoError(t, err)
	defer store.Close()

	p, err := publish.New(t.TempDir(), &fakeRenderer{}, publish.WithManifest(store))
	require.NoError(t, err)

	rep, err := p.PublishAll(context.Background(), resource.Paths("/a/", "/b/"))
	require.NoError(t, err)

	records, err := store.List("", 0)
	require.NoError(t, err)
	require.Len(t, records, 2)
	for _, rec := range records {
		assert.Equal(t, rep.BatchID, rec.BatchID)
	}
}
