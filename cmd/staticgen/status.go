package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jamesainslie/staticgen/pkg/client"
	"github.com/jamesainslie/staticgen/pkg/daemon"
	"github.com/jamesainslie/staticgen/pkg/staticgen/config"
	"github.com/jamesainslie/staticgen/pkg/staticgen/manifest"
	"github.com/jamesainslie/staticgen/pkg/staticgen/output"
	"github.com/jamesainslie/staticgen/pkg/staticgen/webroot"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show web root and daemon status",
	Long: `Show the publisher's standing state: how many pages are recorded in
the manifest, what is actually on disk under the web root, free disk
space, and whether staticgend is running with work queued.`,
	Args: cobra.NoArgs,
	RunE: runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(_ *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	info := &output.StatusInfo{Socket: daemonSocketPath(cfg)}
	var warnings []string

	if daemon.IsDaemonRunning(daemonPIDPath(cfg)) {
		info.DaemonUp = true
		if err := fillFromDaemon(ctx, cfg, info); err != nil {
			warnings = append(warnings, err.Error())
		}
	} else {
		fillFromDisk(cfg, info, &warnings)
	}

	stats, err := webroot.Collect(ctx, cfg.WebRoot)
	if err != nil {
		warnings = append(warnings, fmt.Sprintf("failed to walk web root: %v", err))
	} else {
		info.Files = stats.Files
		info.Dirs = stats.Dirs
		for _, path := range stats.Errors {
			warnings = append(warnings, fmt.Sprintf("unreadable: %s", path))
		}
	}

	if usage, err := webroot.Disk(cfg.WebRoot); err == nil {
		info.Disk = &output.DiskInfo{
			Total: usage.Total,
			Free:  usage.Free,
			Used:  usage.Used,
		}
	}

	return printResult(&output.Result{
		WebRoot:  cfg.WebRoot,
		Status:   info,
		Warnings: warnings,
	})
}

// fillFromDaemon asks the running daemon for spool depth and manifest
// stats over its control socket.
func fillFromDaemon(ctx context.Context, cfg *config.Config, info *output.StatusInfo) error {
	c, err := client.Connect(daemonSocketPath(cfg))
	if err != nil {
		return fmt.Errorf("daemon is running but unreachable: %w", err)
	}
	defer c.Close()

	st, err := c.Status(ctx)
	if err != nil {
		return fmt.Errorf("daemon status failed: %w", err)
	}

	info.PID = st.PID
	info.SpoolDepth = st.SpoolDepth
	info.Pages = st.Pages
	info.AjaxPages = st.AjaxPages
	info.Bytes = st.PageBytes
	info.LastPublish = st.LastPublish
	return nil
}

// fillFromDisk reads the spool and the manifest directly when no daemon
// holds them. A manifest that was never created reads as zero pages.
func fillFromDisk(cfg *config.Config, info *output.StatusInfo, warnings *[]string) {
	spoolPath := cfg.Daemon.SpoolPath
	if spoolPath == "" {
		spoolPath = config.DefaultSpoolPath()
	}
	if spool, err := daemon.OpenSpool(spoolPath); err == nil {
		info.SpoolDepth = spool.Depth()
	}

	if !cfg.Manifest.Enabled {
		return
	}
	path := cfg.Manifest.Path
	if path == "" {
		path = config.DefaultManifestPath()
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return
	}

	store, err := manifest.OpenReadOnly(path)
	if err != nil {
		*warnings = append(*warnings, fmt.Sprintf("failed to open manifest: %v", err))
		return
	}
	defer store.Close()

	stats, err := store.Stats()
	if err != nil {
		*warnings = append(*warnings, fmt.Sprintf("failed to read manifest stats: %v", err))
		return
	}
	info.Pages = stats.Pages
	info.AjaxPages = stats.AjaxPages
	info.Bytes = stats.Bytes
	info.LastPublish = stats.LastPublish
}
