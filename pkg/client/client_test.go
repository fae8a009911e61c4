// Package client provides a client for connecting to the staticgend daemon.
package client

import (
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/jamesainslie/staticgen/pkg/daemon"
	"github.com/jamesainslie/staticgen/pkg/staticgen/manifest"
	"github.com/jamesainslie/staticgen/pkg/staticgen/publish"
)

// mockDaemonServer serves the control API over a Unix socket for testing.
type mockDaemonServer struct {
	status        *daemon.StatusResponse
	pages         []*manifest.Record
	drainRefused  bool
	shutdownCalls int
	lastPagesURL  string
}

func (m *mockDaemonServer) handleStatus(w http.ResponseWriter, _ *http.Request) {
	status := m.status
	if status == nil {
		status = &daemon.StatusResponse{Running: true, PID: os.Getpid()}
	}
	writeTestJSON(w, http.StatusOK, status)
}

func (m *mockDaemonServer) handleDrain(w http.ResponseWriter, _ *http.Request) {
	writeTestJSON(w, http.StatusAccepted, daemon.DrainResponse{Started: !m.drainRefused})
}

func (m *mockDaemonServer) handlePages(w http.ResponseWriter, r *http.Request) {
	m.lastPagesURL = r.URL.String()
	writeTestJSON(w, http.StatusOK, daemon.PagesResponse{Pages: m.pages, Total: len(m.pages)})
}

func (m *mockDaemonServer) handleShutdown(w http.ResponseWriter, _ *http.Request) {
	m.shutdownCalls++
	writeTestJSON(w, http.StatusOK, daemon.ShutdownResponse{Stopping: true})
}

func writeTestJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// setupTestServer creates a test control API server on a Unix socket.
func setupTestServer(t *testing.T, mock *mockDaemonServer) (string, func()) {
	t.Helper()

	// Create temp directory for socket
	tmpDir, err := os.MkdirTemp("", "staticgen-client-*")
	if err != nil {
		t.Fatalf("Failed to create temp dir: %v", err)
	}

	socketPath := filepath.Join(tmpDir, "test.sock")

	listener, err := net.Listen("unix", socketPath)
	if err != nil {
		_ = os.RemoveAll(tmpDir)
		t.Fatalf("Failed to create listener: %v", err)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /v1/status", mock.handleStatus)
	mux.HandleFunc("GET /v1/pages", mock.handlePages)
	mux.HandleFunc("POST /v1/drain", mock.handleDrain)
	mux.HandleFunc("POST /v1/shutdown", mock.handleShutdown)
	srv := &http.Server{Handler: mux}

	// Start serving in background
	go func() {
		_ = srv.Serve(listener)
	}()

	cleanup := func() {
		_ = srv.Close()
		_ = os.RemoveAll(tmpDir)
	}

	return socketPath, cleanup
}

func TestConnect(t *testing.T) {
	mock := &mockDaemonServer{}
	socketPath, cleanup := setupTestServer(t, mock)
	defer cleanup()

	client, err := Connect(socketPath)
	if err != nil {
		t.Fatalf("Connect() failed: %v", err)
	}
	defer client.Close()

	if client.httpc == nil {
		t.Error("Connect() returned client with nil http client")
	}
}

func TestConnectInvalidSocket(t *testing.T) {
	_, err := Connect("/nonexistent/path/to/socket.sock")
	if err == nil {
		t.Error("Connect() should fail for nonexistent socket")
	}
}

func TestStatus(t *testing.T) {
	mock := &mockDaemonServer{
		status: &daemon.StatusResponse{
			Running:       true,
			PID:           4242,
			UptimeSeconds: 3600,
			MemoryBytes:   1024 * 1024 * 100,
			WebRoot:       "/var/www/html",
			SpoolDepth:    2,
			JobsProcessed: 57,
			JobsFailed:    1,
		},
	}
	socketPath, cleanup := setupTestServer(t, mock)
	defer cleanup()

	client, err := Connect(socketPath)
	if err != nil {
		t.Fatalf("Connect() failed: %v", err)
	}
	defer client.Close()

	status, err := client.Status(context.Background())
	if err != nil {
		t.Fatalf("Status() failed: %v", err)
	}

	if !status.Running {
		t.Error("Status().Running = false, expected true")
	}
	if status.PID != 4242 {
		t.Errorf("Status().PID = %d, expected 4242", status.PID)
	}
	if status.WebRoot != "/var/www/html" {
		t.Errorf("Status().WebRoot = %q, expected /var/www/html", status.WebRoot)
	}
	if status.SpoolDepth != 2 {
		t.Errorf("Status().SpoolDepth = %d, expected 2", status.SpoolDepth)
	}
	if status.JobsProcessed != 57 {
		t.Errorf("Status().JobsProcessed = %d, expected 57", status.JobsProcessed)
	}
}

func TestDrain(t *testing.T) {
	mock := &mockDaemonServer{}
	socketPath, cleanup := setupTestServer(t, mock)
	defer cleanup()

	client, err := Connect(socketPath)
	if err != nil {
		t.Fatalf("Connect() failed: %v", err)
	}
	defer client.Close()

	if err := client.Drain(context.Background()); err != nil {
		t.Fatalf("Drain() failed: %v", err)
	}
}

func TestDrainRefused(t *testing.T) {
	mock := &mockDaemonServer{drainRefused: true}
	socketPath, cleanup := setupTestServer(t, mock)
	defer cleanup()

	client, err := Connect(socketPath)
	if err != nil {
		t.Fatalf("Connect() failed: %v", err)
	}
	defer client.Close()

	if err := client.Drain(context.Background()); err == nil {
		t.Error("Drain() should fail when the daemon refuses")
	}
}

func TestShutdown(t *testing.T) {
	mock := &mockDaemonServer{}
	socketPath, cleanup := setupTestServer(t, mock)
	defer cleanup()

	client, err := Connect(socketPath)
	if err != nil {
		t.Fatalf("Connect() failed: %v", err)
	}
	defer client.Close()

	if err := client.Shutdown(context.Background()); err != nil {
		t.Fatalf("Shutdown() failed: %v", err)
	}

	if mock.shutdownCalls != 1 {
		t.Errorf("Shutdown was called %d times, expected 1", mock.shutdownCalls)
	}
}

func TestPages(t *testing.T) {
	mock := &mockDaemonServer{
		pages: []*manifest.Record{
			{Path: "/blog/", Size: 100},
			{Path: "/blog/post-1/", Query: "page=2", Ajax: true, Size: 200},
		},
	}
	socketPath, cleanup := setupTestServer(t, mock)
	defer cleanup()

	client, err := Connect(socketPath)
	if err != nil {
		t.Fatalf("Connect() failed: %v", err)
	}
	defer client.Close()

	pages, err := client.Pages(context.Background(), "/blog/", 10)
	if err != nil {
		t.Fatalf("Pages() failed: %v", err)
	}

	if len(pages) != 2 {
		t.Fatalf("Pages() returned %d records, expected 2", len(pages))
	}
	if pages[1].Query != "page=2" || !pages[1].Ajax {
		t.Errorf("Record did not round-trip: %+v", pages[1])
	}
	if mock.lastPagesURL != "/v1/pages?limit=10&prefix=%2Fblog%2F" {
		t.Errorf("Request URL = %q, expected prefix and limit params", mock.lastPagesURL)
	}
}

func TestClientClose(t *testing.T) {
	mock := &mockDaemonServer{}
	socketPath, cleanup := setupTestServer(t, mock)
	defer cleanup()

	client, err := Connect(socketPath)
	if err != nil {
		t.Fatalf("Connect() failed: %v", err)
	}

	// Close should not error
	if err := client.Close(); err != nil {
		t.Errorf("Close() failed: %v", err)
	}

	// Double close should not panic (may error, but shouldn't panic)
	_ = client.Close()
}

func TestEnqueue(t *testing.T) {
	paths := DaemonPaths{
		Spool:  filepath.Join(t.TempDir(), "spool"),
		Socket: "/tmp/unused.sock",
		PID:    "/tmp/unused.pid",
	}

	id, err := Enqueue(paths, &daemon.Job{
		Op:    publish.OpPublish,
		Paths: []string{"/blog/", "/about/"},
	})
	if err != nil {
		t.Fatalf("Enqueue() failed: %v", err)
	}
	if id == "" {
		t.Fatal("Enqueue() returned empty job id")
	}

	pending, failed, err := Jobs(paths)
	if err != nil {
		t.Fatalf("Jobs() failed: %v", err)
	}
	if len(pending) != 1 {
		t.Fatalf("Expected 1 pending job, got %d", len(pending))
	}
	if pending[0].ID != id {
		t.Errorf("Pending job id = %q, expected %q", pending[0].ID, id)
	}
	if len(pending[0].Paths) != 2 {
		t.Errorf("Pending job has %d paths, expected 2", len(pending[0].Paths))
	}
	if len(failed) != 0 {
		t.Errorf("Expected no failed jobs, got %d", len(failed))
	}
}

func TestStartDaemonAlreadyRunning(t *testing.T) {
	pidPath := filepath.Join(t.TempDir(), "staticgend.pid")
	if err := os.WriteFile(pidPath, []byte(strconv.Itoa(os.Getpid())), 0600); err != nil {
		t.Fatalf("Failed to write PID file: %v", err)
	}

	paths := DaemonPaths{
		PID:    pidPath,
		Socket: "/tmp/unused.sock",
		Spool:  t.TempDir(),
	}

	// Current process PID means "running": no binary lookup, no spawn.
	if err := StartDaemon(paths); err != nil {
		t.Errorf("StartDaemon() should be a no-op when running, got %v", err)
	}
}

func TestStopDaemonNotRunning(t *testing.T) {
	paths := DaemonPaths{
		PID:    filepath.Join(t.TempDir(), "staticgend.pid"),
		Socket: "/tmp/unused.sock",
		Spool:  t.TempDir(),
	}

	if err := StopDaemon(paths); err != nil {
		t.Errorf("StopDaemon() should be a no-op when not running, got %v", err)
	}
}

func TestResolveBinaryConfigured(t *testing.T) {
	binary := filepath.Join(t.TempDir(), "staticgend")
	if err := os.WriteFile(binary, []byte("#!/bin/sh\n"), 0755); err != nil {
		t.Fatal(err)
	}

	resolved, err := resolveBinary(binary)
	if err != nil {
		t.Fatalf("resolveBinary() failed: %v", err)
	}
	if resolved != binary {
		t.Errorf("resolveBinary() = %q, expected %q", resolved, binary)
	}
}

func TestResolveBinaryConfiguredMissing(t *testing.T) {
	_, err := resolveBinary(filepath.Join(t.TempDir(), "missing"))
	if err == nil {
		t.Error("resolveBinary() should fail for missing configured binary")
	}
}

// Compile-time interface check.
var _ io.Closer = (*Client)(nil)
