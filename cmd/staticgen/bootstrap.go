package main

import (
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/jamesainslie/staticgen/pkg/client"
	"github.com/jamesainslie/staticgen/pkg/daemon"
	"github.com/jamesainslie/staticgen/pkg/staticgen/config"
	"github.com/jamesainslie/staticgen/pkg/staticgen/logging"
)

func init() {
	rootCmd.PersistentPreRunE = initializeLogging
}

// initializeLogging ensures the XDG directories exist and brings up the
// logging system before any command runs. A broken config file still
// gets default logging; the command itself reports the load error.
func initializeLogging(_ *cobra.Command, _ []string) error {
	if err := config.EnsureConfigDir(); err != nil {
		return err
	}
	if err := config.EnsureDataDir(); err != nil {
		return err
	}
	if err := config.EnsureStateDir(); err != nil {
		return err
	}

	logCfg := config.LoggingConfig{Level: "info"}

	var cfg *config.Config
	var err error
	if cfgFile != "" {
		cfg, err = config.LoadFile(cfgFile)
	} else {
		cfg, err = config.Load()
	}
	if err == nil {
		logCfg = cfg.Logging
	}

	// Console logging only when asked; the CLI prints its own results.
	consoleLevel := ""
	if getVerbose() && !getQuiet() {
		consoleLevel = "debug"
	}

	return logging.Init(logging.Config{
		Level:        logCfg.Level,
		Path:         logCfg.Path,
		Rotation:     parseRotationConfig(logCfg.Rotation),
		Components:   logCfg.Components,
		ConsoleLevel: consoleLevel,
	})
}

// parseRotationConfig converts the configuration's human-readable size
// into bytes. Empty or unparseable sizes fall back to the default.
func parseRotationConfig(rc config.RotationConfig) logging.RotationConfig {
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

// maybeStartDaemon starts staticgend when auto-start is enabled and the
// daemon is not already running. Callers queueing work treat a failure
// as a warning: the job stays spooled for whenever the daemon comes up.
func maybeStartDaemon(cfg *config.Config) error {
	if !cfg.Daemon.AutoStart {
		return nil
	}

	if daemon.IsDaemonRunning(daemonPIDPath(cfg)) {
		return nil
	}

	printVerbose("starting staticgend...")
	return client.StartDaemon(daemonPaths(cfg))
}
