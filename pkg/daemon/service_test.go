package daemon_test

import (
	"context"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/jamesainslie/staticgen/pkg/daemon"
	"github.com/jamesainslie/staticgen/pkg/staticgen/publish"
	"github.com/jamesainslie/staticgen/pkg/staticgen/renderer"
)

// newTestService wires a service to a publisher whose renderer serves
// every path except those under /missing.
func newTestService(t *testing.T) (*daemon.Service, *daemon.Spool, string) {
	t.Helper()

	webRoot := t.TempDir()

	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if strings.HasPrefix(r.URL.Path, "/missing") {
			http.NotFound(w, r)
			return
		}
		w.Write([]byte("page:" + r.URL.RequestURI()))
	})

	pub, err := publish.New(webRoot, renderer.NewHandler(mux, "test"))
	if err != nil {
		t.Fatalf("publish.New failed: %v", err)
	}

	spool, err := daemon.OpenSpool(filepath.Join(t.TempDir(), "spool"))
	if err != nil {
		t.Fatalf("OpenSpool failed: %v", err)
	}

	return daemon.NewService(pub, spool), spool, webRoot
}

func TestServiceDrainPublish(t *testing.T) {
	svc, spool, webRoot := newTestService(t)

	job := &daemon.Job{Op: publish.OpPublish, Paths: []string{"/a/", "/b"}}
	if _, err := spool.Enqueue(job); err != nil {
		t.Fatalf("Enqueue failed: %v", err)
	}

	if err := svc.Drain(context.Background()); err != nil {
		t.Fatalf("Drain failed: %v", err)
	}

	for _, file := range []string{
		filepath.Join(webRoot, "a", "index.html"),
		filepath.Join(webRoot, "b"),
	} {
		if _, err := os.Stat(file); err != nil {
			t.Errorf("Expected %s to be published: %v", file, err)
		}
	}

	if depth := spool.Depth(); depth != 0 {
		t.Errorf("Expected drained spool, depth %d", depth)
	}

	stats := svc.Stats()
	if stats.Processed != 1 {
		t.Errorf("Expected 1 processed job, got %d", stats.Processed)
	}
	if stats.Failed != 0 {
		t.Errorf("Expected 0 failed jobs, got %d", stats.Failed)
	}
}

func TestServiceDrainDelete(t *testing.T) {
	svc, spool, webRoot := newTestService(t)

	target := filepath.Join(webRoot, "old", "index.html")
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(target, []byte("stale"), 0o644); err != nil {
		t.Fatal(err)
	}

	if _, err := spool.Enqueue(&daemon.Job{Op: publish.OpDelete, Paths: []string{"/old/"}}); err != nil {
		t.Fatalf("Enqueue failed: %v", err)
	}
	if err := svc.Drain(context.Background()); err != nil {
		t.Fatalf("Drain failed: %v", err)
	}

	if _, err := os.Stat(target); !os.IsNotExist(err) {
		t.Error("Expected the page to be deleted")
	}
}

func TestServiceDrainPurge(t *testing.T) {
	svc, spool, webRoot := newTestService(t)

	subtree := filepath.Join(webRoot, "blog")
	if err := os.MkdirAll(filepath.Join(subtree, "2026"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(subtree, "2026", "index.html"), []byte("post"), 0o644); err != nil {
		t.Fatal(err)
	}

	if _, err := spool.Enqueue(&daemon.Job{Op: publish.OpPurge, Paths: []string{"/blog/"}}); err != nil {
		t.Fatalf("Enqueue failed: %v", err)
	}
	if err := svc.Drain(context.Background()); err != nil {
		t.Fatalf("Drain failed: %v", err)
	}

	if _, err := os.Stat(subtree); !os.IsNotExist(err) {
		t.Error("Expected the subtree to be purged")
	}
}

func TestServiceDrainAjaxJob(t *testing.T) {
	svc, spool, webRoot := newTestService(t)

	job := &daemon.Job{Op: publish.OpPublish, Paths: []string{"/feed/"}, Ajax: true}
	if _, err := spool.Enqueue(job); err != nil {
		t.Fatalf("Enqueue failed: %v", err)
	}
	if err := svc.Drain(context.Background()); err != nil {
		t.Fatalf("Drain failed: %v", err)
	}

	if _, err := os.Stat(filepath.Join(webRoot, "feed", "index.html,ajax")); err != nil {
		t.Errorf("Expected the ajax variant to be published: %v", err)
	}
}

func TestServiceDrainSetsFailedJobAside(t *testing.T) {
	svc, spool, webRoot := newTestService(t)

	// The failing job is queued ahead of the good one.
	if _, err := spool.Enqueue(&daemon.Job{
		ID: "bad", Op: publish.OpPublish, Paths: []string{"/missing/"},
		QueuedAt: time.Unix(100, 0).UTC(),
	}); err != nil {
		t.Fatalf("Enqueue failed: %v", err)
	}
	if _, err := spool.Enqueue(&daemon.Job{
		ID: "good", Op: publish.OpPublish, Paths: []string{"/fine/"},
		QueuedAt: time.Unix(200, 0).UTC(),
	}); err != nil {
		t.Fatalf("Enqueue failed: %v", err)
	}

	if err := svc.Drain(context.Background()); err != nil {
		t.Fatalf("Drain failed: %v", err)
	}

	// The good job ran despite the earlier failure.
	if _, err := os.Stat(filepath.Join(webRoot, "fine", "index.html")); err != nil {
		t.Errorf("Expected the good job to be published: %v", err)
	}

	failed, err := spool.Failed()
	if err != nil {
		t.Fatalf("Failed listing failed: %v", err)
	}
	if len(failed) != 1 || failed[0].ID != "bad" {
		t.Fatalf("Expected the bad job to be set aside, got %v", failed)
	}

	stats := svc.Stats()
	if stats.Processed != 1 || stats.Failed != 1 {
		t.Errorf("Expected 1 processed and 1 failed, got %d and %d", stats.Processed, stats.Failed)
	}
}

func TestServiceDrainUnknownOp(t *testing.T) {
	svc, spool, _ := newTestService(t)

	if _, err := spool.Enqueue(&daemon.Job{Op: publish.Op("bogus"), Paths: []string{"/x/"}}); err != nil {
		t.Fatalf("Enqueue failed: %v", err)
	}
	if err := svc.Drain(context.Background()); err != nil {
		t.Fatalf("Drain failed: %v", err)
	}

	failed, err := spool.Failed()
	if err != nil {
		t.Fatalf("Failed listing failed: %v", err)
	}
	if len(failed) != 1 {
		t.Errorf("Expected the unknown-op job to be set aside, got %d failed", len(failed))
	}
}

