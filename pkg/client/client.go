// Package client provides a client for connecting to the staticgend daemon.
// It wraps the control API with convenience methods and carries the daemon
// lifecycle helpers (start, stop, restart) used by the CLI.
package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"github.com/jamesainslie/staticgen/pkg/daemon"
	"github.com/jamesainslie/staticgen/pkg/staticgen/config"
	"github.com/jamesainslie/staticgen/pkg/staticgen/manifest"
)

// baseURL is the URL prefix for control API requests. The host is a
// placeholder; the transport dials the Unix socket regardless.
const baseURL = "http://staticgend"

// Client connects to the staticgend daemon over its Unix socket.
type Client struct {
	httpc      *http.Client
	socketPath string
}

// DaemonPaths configures paths for daemon operations.
// Empty fields use defaults.
type DaemonPaths struct {
	Binary string // Path to staticgend binary (auto-discovered if empty)
	Socket string // Unix socket path
	PID    string // PID file path
	Spool  string // Spool directory
}

// withDefaults returns a copy with empty fields filled with defaults.
func (p DaemonPaths) withDefaults() DaemonPaths {
	if p.Socket == "" {
		p.Socket = config.DefaultSocketPath()
	}
	if p.PID == "" {
		p.PID = config.DefaultPIDPath()
	}
	if p.Spool == "" {
		p.Spool = config.DefaultSpoolPath()
	}
	return p
}

// Connect establishes a connection to the staticgend daemon.
func Connect(socketPath string) (*Client, error) {
	if _, err := os.Stat(socketPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("daemon socket not found at %s", socketPath)
	}

	transport := &http.Transport{
		DialContext: func(ctx context.Context, _, _ string) (net.Conn, error) {
			var d net.Dialer
			return d.DialContext(ctx, "unix", socketPath)
		},
	}

	return &Client{
		httpc:      &http.Client{Transport: transport},
		socketPath: socketPath,
	}, nil
}

// Close releases the connection to the daemon.
func (c *Client) Close() error {
	c.httpc.CloseIdleConnections()
	return nil
}

// Status returns the daemon's current status.
func (c *Client) Status(ctx context.Context) (*daemon.StatusResponse, error) {
	var status daemon.StatusResponse
	if err := c.get(ctx, "/v1/status", &status); err != nil {
		return nil, err
	}
	return &status, nil
}

// Drain asks the daemon to work through the spool now instead of waiting
// for its watcher or timer.
func (c *Client) Drain(ctx context.Context) error {
	var resp daemon.DrainResponse
	if err := c.post(ctx, "/v1/drain", &resp); err != nil {
		return err
	}
	if !resp.Started {
		return errors.New("drain was not started")
	}
	return nil
}

// Shutdown requests the daemon to shut down gracefully.
func (c *Client) Shutdown(ctx context.Context) error {
	var resp daemon.ShutdownResponse
	if err := c.post(ctx, "/v1/shutdown", &resp); err != nil {
		return err
	}
	if !resp.Stopping {
		return errors.New("shutdown request was not acknowledged")
	}
	return nil
}

// Ping checks that the daemon answers on its socket.
func (c *Client) Ping(ctx context.Context) error {
	_, err := c.Status(ctx)
	return err
}

// Pages lists manifest records through the daemon. The daemon holds the
// manifest lock, so reading through it is the only way to list pages
// while it runs. Records come back in key order; limit 0 means all.
func (c *Client) Pages(ctx context.Context, prefix string, limit int) ([]*manifest.Record, error) {
	params := url.Values{}
	if prefix != "" {
		params.Set("prefix", prefix)
	}
	if limit > 0 {
		params.Set("limit", strconv.Itoa(limit))
	}
	path := "/v1/pages"
	if len(params) > 0 {
		path += "?" + params.Encode()
	}

	var resp daemon.PagesResponse
	if err := c.get(ctx, path, &resp); err != nil {
		return nil, err
	}
	return resp.Pages, nil
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL+path, nil)
	if err != nil {
		return err
	}
	return c.do(req, out)
}

func (c *Client) post(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, baseURL+path, nil)
	if err != nil {
		return err
	}
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.httpc.Do(req)
	if err != nil {
		return fmt.Errorf("daemon request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("daemon returned %s for %s", resp.Status, req.URL.Path)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode daemon response: %w", err)
	}
	return nil
}

// Enqueue drops a job into the daemon's spool and returns the job id.
// The daemon picks it up through its spool watch; no connection is needed,
// so jobs can be queued even while the daemon is down.
func Enqueue(paths DaemonPaths, job *daemon.Job) (string, error) {
	paths = paths.withDefaults()

	spool, err := daemon.OpenSpool(paths.Spool)
	if err != nil {
		return "", err
	}
	return spool.Enqueue(job)
}

// Jobs returns the pending and failed jobs sitting in the spool.
func Jobs(paths DaemonPaths) (pending, failed []*daemon.Job, err error) {
	paths = paths.withDefaults()

	spool, err := daemon.OpenSpool(paths.Spool)
	if err != nil {
		return nil, nil, err
	}
	pending, err = spool.Pending()
	if err != nil {
		return nil, nil, err
	}
	failed, err = spool.Failed()
	if err != nil {
		return nil, nil, err
	}
	return pending, failed, nil
}

// EnsureDaemon ensures the daemon is running, starting it if necessary.
// Idempotent: returns nil if daemon is already running.
func EnsureDaemon(paths DaemonPaths) error {
	return StartDaemon(paths)
}

// StartDaemon starts the staticgend daemon in the background.
// Idempotent: returns nil if daemon is already running.
func StartDaemon(paths DaemonPaths) error {
	paths = paths.withDefaults()

	if daemon.IsDaemonRunning(paths.PID) {
		return nil // Already running, nothing to do
	}

	binary, err := resolveBinary(paths.Binary)
	if err != nil {
		return fmt.Errorf("find staticgend: %w", err)
	}

	statusPath := daemon.StatusPath(paths.Socket)

	// Clean up stale status file before starting
	_ = os.Remove(statusPath)

	// Use exec.Command (not CommandContext) intentionally: daemon must outlive caller
	cmd := exec.Command(binary) //nolint:gosec // binary path is validated
	cmd.Stdout = nil
	cmd.Stderr = nil
	cmd.Stdin = nil

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start daemon: %w", err)
	}

	// Detach so daemon outlives caller
	if cmd.Process != nil {
		_ = cmd.Process.Release()
	}

	// Poll for socket OR status file
	for range 50 {
		time.Sleep(100 * time.Millisecond)

		// Check socket first (success fast path)
		if _, err := os.Stat(paths.Socket); err == nil {
			return nil
		}

		// Check status file for explicit ready or error
		if status, err := daemon.ReadStatus(statusPath); err == nil {
			switch status.Status {
			case "ready":
				return nil
			case "error":
				return fmt.Errorf("daemon failed to start: %s", status.Error)
			}
		}
	}

	return errors.New("daemon did not become ready within timeout")
}

// StopDaemon stops the daemon gracefully via the control API, falling
// back to SIGTERM when the control socket is unreachable.
// Idempotent: returns nil if daemon is not running.
func StopDaemon(paths DaemonPaths) error {
	paths = paths.withDefaults()

	if !daemon.IsDaemonRunning(paths.PID) {
		return nil // Not running, nothing to do
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := shutdownViaSocket(ctx, paths.Socket); err != nil {
		// The process is alive but not answering. SIGTERM reaches its
		// signal handler the same way the control API would.
		if termErr := signalDaemon(paths.PID, syscall.SIGTERM); termErr != nil {
			return fmt.Errorf("shutdown daemon: %w", err)
		}
	}

	// Wait for daemon to stop
	for range 20 {
		time.Sleep(250 * time.Millisecond)
		if !daemon.IsDaemonRunning(paths.PID) {
			return nil
		}
	}

	return errors.New("daemon did not stop within timeout")
}

func shutdownViaSocket(ctx context.Context, socketPath string) error {
	client, err := Connect(socketPath)
	if err != nil {
		return err
	}
	defer client.Close()
	return client.Shutdown(ctx)
}

func signalDaemon(pidPath string, sig os.Signal) error {
	pid, err := daemon.ReadPIDFile(pidPath)
	if err != nil {
		return err
	}
	process, err := os.FindProcess(pid)
	if err != nil {
		return err
	}
	return process.Signal(sig)
}

// RestartDaemon stops and starts the daemon.
func RestartDaemon(paths DaemonPaths) error {
	if err := StopDaemon(paths); err != nil {
		return fmt.Errorf("stop: %w", err)
	}
	if err := StartDaemon(paths); err != nil {
		return fmt.Errorf("start: %w", err)
	}
	return nil
}

// resolveBinary finds the staticgend binary path.
// Priority: configured path > STATICGEN_DAEMON_BIN > same directory as
// executable > GOBIN/GOPATH > PATH.
func resolveBinary(configured string) (string, error) {
	// Use configured path if provided
	if configured != "" {
		if _, err := os.Stat(configured); err != nil {
			return "", fmt.Errorf("configured binary not found: %s", configured)
		}
		return configured, nil
	}

	if envBin := os.Getenv("STATICGEN_DAEMON_BIN"); envBin != "" {
		if _, err := os.Stat(envBin); err != nil {
			return "", fmt.Errorf("STATICGEN_DAEMON_BIN not found: %s", envBin)
		}
		return envBin, nil
	}

	// Try same directory as current executable
	if execPath, err := os.Executable(); err == nil {
		candidate := filepath.Join(filepath.Dir(execPath), "staticgend")
		if _, err := os.Stat(candidate); err == nil {
			return candidate, nil
		}
	}

	// Try standard Go binary locations (GOBIN > GOPATH/bin > $HOME/go/bin)
	if goBinPath := config.DefaultBinaryPath(); goBinPath != "" {
		return goBinPath, nil
	}

	// Try PATH
	if path, err := exec.LookPath("staticgend"); err == nil {
		return path, nil
	}

	return "", errors.New("staticgend not found")
}
