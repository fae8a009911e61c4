// Package main implements staticgend, the background worker for
// staticgen. It drains the job spool, keeps the manifest open between
// runs, and serves a small control API over a Unix socket.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/dustin/go-humanize"
	"github.com/joho/godotenv"

	"github.com/jamesainslie/staticgen/pkg/daemon"
	"github.com/jamesainslie/staticgen/pkg/staticgen/config"
	"github.com/jamesainslie/staticgen/pkg/staticgen/logging"
	"github.com/jamesainslie/staticgen/pkg/staticgen/manifest"
	"github.com/jamesainslie/staticgen/pkg/staticgen/publish"
	"github.com/jamesainslie/staticgen/pkg/staticgen/renderer"
)

func main() {
	if err := run(); err != nil {
		if errors.Is(err, daemon.ErrDaemonAlreadyRunning) {
			fmt.Fprintln(os.Stderr, "staticgend is already running")
			os.Exit(1)
		}
		fmt.Fprintf(os.Stderr, "staticgend: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// A .env file in the working directory supplements the environment,
	// mirroring the CLI's bootstrap.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	socketPath := cfg.Daemon.SocketPath
	if socketPath == "" {
		socketPath = config.DefaultSocketPath()
	}
	pidPath := cfg.Daemon.PIDPath
	if pidPath == "" {
		pidPath = config.DefaultPIDPath()
	}
	spoolPath := cfg.Daemon.SpoolPath
	if spoolPath == "" {
		spoolPath = config.DefaultSpoolPath()
	}
	manifestPath := ""
	if cfg.Manifest.Enabled {
		manifestPath = cfg.Manifest.Path
		if manifestPath == "" {
			manifestPath = config.DefaultManifestPath()
		}
	}
	statusPath := daemon.StatusPath(socketPath)

	if err := logging.Init(logging.Config{
		Level:      cfg.Logging.Level,
		Path:       cfg.Logging.Path,
		Rotation:   rotationConfig(cfg.Logging.Rotation),
		Components: cfg.Logging.Components,
	}); err != nil {
		return fmt.Errorf("init logging: %w", err)
	}
	defer logging.Close()
	log := logging.Get("daemon")

	// Startup failures past this point land in the status file so that
	// 'staticgen daemon start' can report the cause instead of a bare
	// timeout.
	fail := func(err error) error {
		_ = daemon.WriteStatusError(statusPath, err)
		return err
	}

	if err := daemon.RecoverFromStaleDaemon(pidPath, socketPath, manifestPath); err != nil {
		return err
	}

	if err := cfg.Validate(); err != nil {
		return fail(fmt.Errorf("invalid config: %w", err))
	}

	var store *manifest.Store
	if cfg.Manifest.Enabled {
		store, err = manifest.Open(manifestPath)
		if err != nil {
			return fail(fmt.Errorf("open manifest: %w", err))
		}
		defer store.Close()
	}

	rend, err := renderer.NewUpstream(cfg.Upstream, cfg.EffectiveServerName(),
		renderer.WithTimeout(cfg.EffectiveRenderTimeout()))
	if err != nil {
		return fail(fmt.Errorf("build renderer: %w", err))
	}

	var pubOpts []publish.Option
	if store != nil {
		pubOpts = append(pubOpts, publish.WithManifest(store))
	}
	pub, err := publish.New(cfg.WebRoot, rend, pubOpts...)
	if err != nil {
		return fail(fmt.Errorf("build publisher: %w", err))
	}

	spool, err := daemon.OpenSpool(spoolPath)
	if err != nil {
		return fail(fmt.Errorf("open spool: %w", err))
	}

	var svcOpts []daemon.ServiceOption
	if store != nil {
		svcOpts = append(svcOpts, daemon.WithManifest(store))
	}
	svc := daemon.NewService(pub, spool, svcOpts...)

	srv, err := daemon.NewServer(daemon.Config{
		SocketPath: socketPath,
		WebRoot:    cfg.WebRoot,
	}, svc)
	if err != nil {
		return fail(fmt.Errorf("create server: %w", err))
	}

	if err := daemon.WritePIDFile(pidPath); err != nil {
		_ = srv.Close()
		return fail(fmt.Errorf("write PID file: %w", err))
	}
	defer func() {
		if err := daemon.RemovePIDFile(pidPath); err != nil {
			log.Warn("failed to remove PID file", "error", err)
		}
	}()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		if err := svc.Run(ctx); err != nil {
			log.Error("spool watch stopped", "error", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		select {
		case sig := <-sigChan:
			log.Info("shutting down", "signal", sig.String())
		case <-srv.ShutdownRequested():
			log.Info("shutting down", "reason", "control API")
		case <-ctx.Done():
			return
		}
		cancel()
		if err := srv.Close(); err != nil {
			log.Warn("error during shutdown", "error", err)
		}
	}()

	if err := daemon.WriteStatusReady(statusPath); err != nil {
		log.Warn("failed to write status file", "error", err)
	}
	defer func() {
		if err := daemon.RemoveStatus(statusPath); err != nil {
			log.Warn("failed to remove status file", "error", err)
		}
	}()

	log.Info("staticgend started",
		"socket", socketPath,
		"web_root", cfg.WebRoot,
		"spool", spoolPath,
		"manifest", manifestPath)

	if err := srv.Serve(); err != nil {
		return fmt.Errorf("server error: %w", err)
	}
	log.Info("staticgend stopped")
	return nil
}

// rotationConfig converts the configured human-readable size limit into
// bytes. Empty or unparseable sizes fall back to the default.
func rotationConfig(rc config.RotationConfig) logging.RotationConfig {
	maxSize := logging.DefaultRotationConfig().MaxSize
	if rc.MaxSize != "" {
		if parsed, err := humanize.ParseBytes(rc.MaxSize); err == nil {
			maxSize = int64(parsed)
		}
	}

	return logging.RotationConfig{
		MaxSize:    maxSize,
		MaxAge:     rc.MaxAge,
		MaxBackups: rc.MaxBackups,
		Daily:      rc.Daily,
	}
}
