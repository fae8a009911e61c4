package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/jamesainslie/staticgen/pkg/client"
	"github.com/jamesainslie/staticgen/pkg/daemon"
	"github.com/jamesainslie/staticgen/pkg/staticgen/config"
)

var daemonCmd = &cobra.Command{
	Use:   "daemon",
	Short: "Manage the staticgend daemon",
	Long: `Manage the staticgend daemon that runs queued publish jobs.

The daemon watches the spool directory and executes jobs handed over
with --queue, keeping the manifest open between runs. Commands that
queue work start it automatically unless auto-start is disabled.`,
}

var daemonStartCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the staticgend daemon",
	Long:  `Start the staticgend daemon in the background.`,
	RunE:  runDaemonStart,
}

var daemonStopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the staticgend daemon",
	Long:  `Stop the staticgend daemon gracefully.`,
	RunE:  runDaemonStop,
}

var daemonRestartCmd = &cobra.Command{
	Use:   "restart",
	Short: "Restart the staticgend daemon",
	Long:  `Stop and start the staticgend daemon.`,
	RunE:  runDaemonRestart,
}

var daemonStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show daemon status",
	Long:  `Show the current status of the staticgend daemon.`,
	RunE:  runDaemonStatus,
}

var daemonDrainCmd = &cobra.Command{
	Use:   "drain",
	Short: "Run all queued jobs now",
	Long:  `Tell the daemon to work through the spool immediately.`,
	RunE:  runDaemonDrain,
}

func init() {
	rootCmd.AddCommand(daemonCmd)
	daemonCmd.AddCommand(daemonStartCmd)
	daemonCmd.AddCommand(daemonStopCmd)
	daemonCmd.AddCommand(daemonRestartCmd)
	daemonCmd.AddCommand(daemonStatusCmd)
	daemonCmd.AddCommand(daemonDrainCmd)
}

// loadDaemonPaths resolves the daemon file locations leniently. Daemon
// control must keep working even when the config file is broken or has
// no web root yet.
func loadDaemonPaths() client.DaemonPaths {
	paths := client.DaemonPaths{}

	var cfg *config.Config
	var err error
	if cfgFile != "" {
		cfg, err = config.LoadFile(cfgFile)
	} else {
		cfg, err = config.Load()
	}
	if err == nil {
		paths = daemonPaths(cfg)
	}

	if paths.Socket == "" {
		paths.Socket = config.DefaultSocketPath()
	}
	if paths.PID == "" {
		paths.PID = config.DefaultPIDPath()
	}
	return paths
}

func runDaemonStart(_ *cobra.Command, _ []string) error {
	paths := loadDaemonPaths()

	if daemon.IsDaemonRunning(paths.PID) {
		printInfo("Daemon is already running")
		return nil
	}

	printVerbose("starting staticgend...")
	if err := client.StartDaemon(paths); err != nil {
		return err
	}
	printInfo("Daemon started")
	return nil
}

func runDaemonStop(_ *cobra.Command, _ []string) error {
	paths := loadDaemonPaths()

	if !daemon.IsDaemonRunning(paths.PID) {
		printInfo("Daemon is not running")
		return nil
	}

	if err := client.StopDaemon(paths); err != nil {
		return err
	}
	printInfo("Daemon stopped")
	return nil
}

func runDaemonRestart(_ *cobra.Command, _ []string) error {
	if err := client.RestartDaemon(loadDaemonPaths()); err != nil {
		return err
	}
	printInfo("Daemon restarted")
	return nil
}

func runDaemonStatus(_ *cobra.Command, _ []string) error {
	paths := loadDaemonPaths()

	if !daemon.IsDaemonRunning(paths.PID) {
		printInfo("Daemon status: not running")
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	c, err := client.Connect(paths.Socket)
	if err != nil {
		printInfo("Daemon status: running (but not responding)")
		return nil
	}
	defer c.Close()

	status, err := c.Status(ctx)
	if err != nil {
		return fmt.Errorf("failed to get daemon status: %w", err)
	}

	printInfo("Daemon status: running")
	printInfo("  PID: %d", status.PID)
	printInfo("  Uptime: %s", formatUptime(time.Duration(status.UptimeSeconds)*time.Second))
	printInfo("  Memory: %s", humanize.IBytes(uint64(status.MemoryBytes)))
	printInfo("  Web root: %s", status.WebRoot)
	printInfo("  Queue: %d pending jobs", status.SpoolDepth)
	printInfo("  Jobs processed: %d (%d failed)", status.JobsProcessed, status.JobsFailed)
	if status.Pages > 0 {
		printInfo("  Pages: %d (%d ajax), %s",
			status.Pages, status.AjaxPages, humanize.IBytes(uint64(status.PageBytes)))
	}

	return nil
}

func runDaemonDrain(_ *cobra.Command, _ []string) error {
	paths := loadDaemonPaths()

	if !daemon.IsDaemonRunning(paths.PID) {
		return errors.New("daemon is not running (start with: staticgen daemon start)")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	c, err := client.Connect(paths.Socket)
	if err != nil {
		return fmt.Errorf("failed to connect to daemon: %w", err)
	}
	defer c.Close()

	if err := c.Drain(ctx); err != nil {
		return fmt.Errorf("failed to drain queue: %w", err)
	}
	printInfo("Drain started")
	return nil
}

// formatUptime formats a duration in a human-readable way.
func formatUptime(d time.Duration) string {
	if d < time.Minute {
		return fmt.Sprintf("%ds", int(d.Seconds()))
	}
	if d < time.Hour {
		return fmt.Sprintf("%dm %ds", int(d.Minutes()), int(d.Seconds())%60)
	}
	if d < 24*time.Hour {
		return fmt.Sprintf("%dh %dm", int(d.Hours()), int(d.Minutes())%60)
	}
	days := int(d.Hours()) / 24
	hours := int(d.Hours()) % 24
	return fmt.Sprintf("%dd %dh", days, hours)
}
