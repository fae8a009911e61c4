package daemon

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"sync"
	"time"

	"github.com/jamesainslie/staticgen/pkg/staticgen/logging"
	"github.com/jamesainslie/staticgen/pkg/staticgen/manifest"
)

// Config holds daemon server configuration.
type Config struct {
	SocketPath string
	WebRoot    string
}

// Server exposes the daemon control API over a Unix socket. The API is
// plain HTTP with JSON bodies so it can be poked with curl when needed.
type Server struct {
	cfg      Config
	svc      *Service
	http     *http.Server
	listener net.Listener

	shutdownOnce sync.Once
	shutdownCh   chan struct{}
}

// StatusResponse is the payload of GET /v1/status. The page fields are
// zero when the daemon runs without a manifest.
type StatusResponse struct {
	Running       bool      `json:"running"`
	PID           int       `json:"pid"`
	UptimeSeconds int64     `json:"uptime_seconds"`
	MemoryBytes   int64     `json:"memory_bytes"`
	WebRoot       string    `json:"web_root"`
	SpoolDepth    int       `json:"spool_depth"`
	JobsProcessed int64     `json:"jobs_processed"`
	JobsFailed    int64     `json:"jobs_failed"`
	Pages         int       `json:"pages"`
	AjaxPages     int       `json:"ajax_pages"`
	PageBytes     int64     `json:"page_bytes"`
	LastPublish   time.Time `json:"last_publish"`
}

// DrainResponse is the payload of POST /v1/drain.
type DrainResponse struct {
	Started bool `json:"started"`
}

// PagesResponse is the payload of GET /v1/pages.
type PagesResponse struct {
	Pages []*manifest.Record `json:"pages"`
	Total int                `json:"total"`
}

// ShutdownResponse is the payload of POST /v1/shutdown.
type ShutdownResponse struct {
	Stopping bool `json:"stopping"`
}

// NewServer creates a daemon server listening on cfg.SocketPath.
func NewServer(cfg Config, svc *Service) (*Server, error) {
	// Remove stale socket if exists
	if err := os.RemoveAll(cfg.SocketPath); err != nil {
		return nil, err
	}

	// Ensure socket directory exists
	if err := os.MkdirAll(filepath.Dir(cfg.SocketPath), 0o755); err != nil {
		return nil, err
	}

	var lc net.ListenConfig
	listener, err := lc.Listen(context.Background(), "unix", cfg.SocketPath)
	if err != nil {
		return nil, err
	}

	srv := &Server{
		cfg:        cfg,
		svc:        svc,
		listener:   listener,
		shutdownCh: make(chan struct{}),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /v1/status", srv.handleStatus)
	mux.HandleFunc("GET /v1/pages", srv.handlePages)
	mux.HandleFunc("POST /v1/drain", srv.handleDrain)
	mux.HandleFunc("POST /v1/shutdown", srv.handleShutdown)
	srv.http = &http.Server{Handler: mux}

	return srv, nil
}

// Serve starts the control API. Blocks until the server is closed.
func (s *Server) Serve() error {
	err := s.http.Serve(s.listener)
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Close stops the server and removes the socket.
func (s *Server) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err := s.http.Shutdown(ctx)
	if rmErr := os.RemoveAll(s.cfg.SocketPath); rmErr != nil && err == nil {
		err = rmErr
	}
	return err
}

// ShutdownRequested is closed when a client posts /v1/shutdown.
func (s *Server) ShutdownRequested() <-chan struct{} {
	return s.shutdownCh
}

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	stats := s.svc.Stats()
	resp := StatusResponse{
		Running:       true,
		PID:           os.Getpid(),
		UptimeSeconds: int64(stats.Uptime.Seconds()),
		MemoryBytes:   int64(mem.Alloc),
		WebRoot:       s.cfg.WebRoot,
		SpoolDepth:    stats.SpoolDepth,
		JobsProcessed: stats.Processed,
		JobsFailed:    stats.Failed,
	}
	if pages := s.svc.ManifestStats(); pages != nil {
		resp.Pages = pages.Pages
		resp.AjaxPages = pages.AjaxPages
		resp.PageBytes = pages.Bytes
		resp.LastPublish = pages.LastPublish
	}
	writeJSON(w, http.StatusOK, resp)
}

// handlePages lists manifest records. The daemon holds the manifest
// lock while it runs, so this is how list and regen read the index
// without stopping the daemon first.
func (s *Server) handlePages(w http.ResponseWriter, r *http.Request) {
	if s.svc.manifest == nil {
		http.Error(w, "daemon is running without a manifest", http.StatusNotFound)
		return
	}

	q := r.URL.Query()
	limit := 0
	if raw := q.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			http.Error(w, "invalid limit", http.StatusBadRequest)
			return
		}
		limit = n
	}

	records, err := s.svc.manifest.List(q.Get("prefix"), limit)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if records == nil {
		records = []*manifest.Record{}
	}
	writeJSON(w, http.StatusOK, PagesResponse{Pages: records, Total: len(records)})
}

func (s *Server) handleDrain(w http.ResponseWriter, _ *http.Request) {
	// A fresh context: the drain must outlive the request that asked
	// for it.
	go func() {
		if err := s.svc.Drain(context.Background()); err != nil {
			logging.Get("daemon").Error("drain failed", "error", err)
		}
	}()

	writeJSON(w, http.StatusAccepted, DrainResponse{Started: true})
}

func (s *Server) handleShutdown(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, ShutdownResponse{Stopping: true})

	s.shutdownOnce.Do(func() {
		close(s.shutdownCh)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.Get("daemon").Warn("write response", "error", err)
	}
}
