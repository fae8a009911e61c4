package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sort"

	"github.com/spf13/cobra"

	"github.com/jamesainslie/staticgen/pkg/client"
	"github.com/jamesainslie/staticgen/pkg/daemon"
	"github.com/jamesainslie/staticgen/pkg/staticgen/config"
	"github.com/jamesainslie/staticgen/pkg/staticgen/manifest"
	"github.com/jamesainslie/staticgen/pkg/staticgen/output"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List published pages",
	Long: `List the pages recorded in the manifest: every published path with its
query and AJAX variants, file size, and age.

  staticgen list
  staticgen list --prefix /blog/
  staticgen list --sort size --limit 20`,
	Args: cobra.NoArgs,
	RunE: runList,
}

func init() {
	rootCmd.AddCommand(listCmd)

	listCmd.Flags().StringP("prefix", "p", "", "only list pages under this URL prefix")
	listCmd.Flags().String("sort", "path", "sort order: path, size, or time")
	listCmd.Flags().IntP("limit", "n", 50, "show at most this many pages (0 for all)")
}

func runList(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if !cfg.Manifest.Enabled {
		return errors.New("list needs the manifest; set manifest.enabled in the config")
	}

	prefix, _ := cmd.Flags().GetString("prefix")
	sortBy, _ := cmd.Flags().GetString("sort")
	limit, _ := cmd.Flags().GetInt("limit")

	ctx, cancel := signalContext()
	defer cancel()

	records, err := loadRecords(ctx, cfg, prefix)
	if err != nil {
		return err
	}
	if len(records) == 0 {
		printInfo("No published pages found.")
		printInfo("Run 'staticgen publish [paths...]' to publish some.")
		return nil
	}

	if err := sortRecords(records, sortBy); err != nil {
		return err
	}

	total := len(records)
	if limit > 0 && len(records) > limit {
		records = records[:limit]
	}

	return printResult(&output.Result{
		WebRoot:    cfg.WebRoot,
		Pages:      pageInfos(records),
		TotalPages: total,
	})
}

// sortRecords orders records in place. The manifest iterates in key
// order, which already is path order.
func sortRecords(records []*manifest.Record, by string) error {
	switch by {
	case "", "path":
	case "size":
		sort.Slice(records, func(i, j int) bool {
			return records[i].Size > records[j].Size
		})
	case "time":
		sort.Slice(records, func(i, j int) bool {
			return records[i].PublishedAt.After(records[j].PublishedAt)
		})
	default:
		return fmt.Errorf("unknown sort order %q: use path, size, or time", by)
	}
	return nil
}

// loadRecords fetches manifest records for a prefix. While the daemon
// runs it holds the store's lock, so the records come over its API;
// otherwise the store opens read-only. A manifest that was never
// created reads as empty.
func loadRecords(ctx context.Context, cfg *config.Config, prefix string) ([]*manifest.Record, error) {
	if daemon.IsDaemonRunning(daemonPIDPath(cfg)) {
		c, err := client.Connect(daemonSocketPath(cfg))
		if err != nil {
			return nil, fmt.Errorf("daemon is running but unreachable: %w", err)
		}
		defer c.Close()

		records, err := c.Pages(ctx, prefix, 0)
		if err != nil {
			return nil, fmt.Errorf("failed to list pages from daemon: %w", err)
		}
		return records, nil
	}

	path := cfg.Manifest.Path
	if path == "" {
		path = config.DefaultManifestPath()
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, nil
	}

	store, err := manifest.OpenReadOnly(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open manifest: %w", err)
	}
	defer store.Close()

	return store.List(prefix, 0)
}
