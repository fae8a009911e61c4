package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/jamesainslie/staticgen/pkg/client"
	"github.com/jamesainslie/staticgen/pkg/daemon"
	"github.com/jamesainslie/staticgen/pkg/staticgen/config"
	"github.com/jamesainslie/staticgen/pkg/staticgen/logging"
	"github.com/jamesainslie/staticgen/pkg/staticgen/manifest"
	"github.com/jamesainslie/staticgen/pkg/staticgen/output"
	"github.com/jamesainslie/staticgen/pkg/staticgen/publish"
	"github.com/jamesainslie/staticgen/pkg/staticgen/renderer"
	"github.com/jamesainslie/staticgen/pkg/staticgen/resource"
)

var regenCmd = &cobra.Command{
	Use:   "regen",
	Short: "Re-render and republish recorded pages",
	Long: `Re-render every page recorded in the manifest and publish the fresh
rendering in place of the old one. Use this after a template or content
change to refresh what is already published:

  staticgen regen                    # Everything in the manifest
  staticgen regen --prefix /blog/    # Just the blog
  staticgen regen --queue            # Hand the work to staticgend

Each page keeps its variant: query strings and AJAX renderings are
re-requested exactly as they were first published.`,
	Args: cobra.NoArgs,
	RunE: runRegen,
}

func init() {
	rootCmd.AddCommand(regenCmd)

	regenCmd.Flags().StringP("prefix", "p", "", "only regenerate pages under this URL prefix")
	regenCmd.Flags().Bool("queue", false, "hand the job to staticgend instead of running it now")
}

func runRegen(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if !cfg.Manifest.Enabled {
		return errors.New("regen needs the manifest; set manifest.enabled in the config")
	}

	prefix, _ := cmd.Flags().GetString("prefix")
	queue, _ := cmd.Flags().GetBool("queue")

	if queue {
		return queueRegen(cfg, prefix)
	}
	return regenDirect(cfg, prefix)
}

// regenDirect republishes inline. The manifest store opens read-write
// once and is shared with the publisher, so the refreshed records land
// in the same store the page list came from.
func regenDirect(cfg *config.Config, prefix string) error {
	store, err := openManifest(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	records, err := store.List(prefix, 0)
	if err != nil {
		return fmt.Errorf("failed to list manifest: %w", err)
	}
	if len(records) == 0 {
		printInfo("No recorded pages to regenerate.")
		return nil
	}

	rend, err := renderer.NewUpstream(cfg.Upstream, cfg.EffectiveServerName(),
		renderer.WithTimeout(cfg.EffectiveRenderTimeout()))
	if err != nil {
		return err
	}
	pub, err := publish.New(cfg.WebRoot, rend, publish.WithManifest(store))
	if err != nil {
		return err
	}

	plain, ajax := splitVariants(records)

	ctx, cancel := signalContext()
	defer cancel()

	// Plain pages and AJAX variants run as separate passes because the
	// AJAX flag applies to a whole batch.
	merged := &publish.Report{Op: "regen"}
	start := time.Now()
	runErr := func() error {
		if len(plain) > 0 {
			rep, err := pub.PublishAll(ctx, resource.Paths(plain...))
			mergeReport(merged, rep)
			if err != nil {
				return err
			}
		}
		if len(ajax) > 0 {
			rep, err := pub.PublishAll(ctx, resource.Paths(ajax...), publish.WithAjax())
			mergeReport(merged, rep)
			if err != nil {
				return err
			}
		}
		return nil
	}()
	merged.Duration = time.Since(start)

	if err := printResult(runResult(cfg, merged)); err != nil {
		return err
	}
	if runErr != nil && errors.Is(runErr, context.Canceled) {
		printInfo("Interrupted")
		return nil
	}
	return runErr
}

// queueRegen spools the republish for the daemon: one job for plain
// pages, one for AJAX variants when both exist.
func queueRegen(cfg *config.Config, prefix string) error {
	ctx, cancel := signalContext()
	defer cancel()

	records, err := loadRecords(ctx, cfg, prefix)
	if err != nil {
		return err
	}
	if len(records) == 0 {
		printInfo("No recorded pages to regenerate.")
		return nil
	}

	plain, ajax := splitVariants(records)

	var jobs []output.JobInfo
	enqueue := func(paths []string, isAjax bool) error {
		if len(paths) == 0 {
			return nil
		}
		job := &daemon.Job{
			Op:       publish.OpPublish,
			Paths:    paths,
			Ajax:     isAjax,
			QueuedAt: time.Now().UTC(),
		}
		id, err := client.Enqueue(daemonPaths(cfg), job)
		if err != nil {
			return fmt.Errorf("failed to queue job: %w", err)
		}
		job.ID = id
		jobs = append(jobs, jobInfo(job, false))
		return nil
	}
	if err := enqueue(plain, false); err != nil {
		return err
	}
	if err := enqueue(ajax, true); err != nil {
		return err
	}

	if err := maybeStartDaemon(cfg); err != nil {
		logging.Get("daemon").Warn("daemon auto-start failed", "error", err)
		printVerbose("daemon auto-start failed: %v", err)
	}

	result := queuedResult(cfg, "regen", len(records), "")
	if len(jobs) == 1 {
		result.Run.JobID = jobs[0].ID
	}
	result.Jobs = jobs
	return printResult(result)
}

// splitVariants rebuilds raw request paths from manifest records,
// separating plain pages from AJAX variants.
func splitVariants(records []*manifest.Record) (plain, ajax []string) {
	for _, rec := range records {
		raw := rec.Path
		if rec.Query != "" {
			raw += "?" + rec.Query
		}
		if rec.Ajax {
			ajax = append(ajax, raw)
		} else {
			plain = append(plain, raw)
		}
	}
	return plain, ajax
}

// mergeReport folds one pass's report into the combined regen report.
// The combined report carries no batch ID since the passes get their
// own.
func mergeReport(dst, src *publish.Report) {
	if src == nil {
		return
	}
	dst.Total += src.Total
	dst.Applied += src.Applied
	dst.Skipped += src.Skipped
	dst.Bytes += src.Bytes
	if src.Failed != "" {
		dst.Failed = src.Failed
	}
}
