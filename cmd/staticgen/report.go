package main

import (
	"bytes"
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/viper"

	"github.com/jamesainslie/staticgen/pkg/staticgen/config"
	"github.com/jamesainslie/staticgen/pkg/staticgen/manifest"
	"github.com/jamesainslie/staticgen/pkg/staticgen/output"
	"github.com/jamesainslie/staticgen/pkg/staticgen/publish"
)

// resolveFormatter returns the formatter named by --format. An unknown
// name warns and falls back to pretty rather than failing the run.
func resolveFormatter() output.Formatter {
	name := viper.GetString("format")
	if name == "" {
		name = "pretty"
	}

	formatter, err := output.Get(name)
	if err != nil {
		printError("unknown output format %q, using pretty (available: %v)", name, output.Available())
		formatter, _ = output.Get("pretty")
	}
	return formatter
}

// printResult formats and prints a result with the selected formatter.
func printResult(result *output.Result) error {
	formatter := resolveFormatter()

	var buf bytes.Buffer
	if err := formatter.Format(&buf, result); err != nil {
		return fmt.Errorf("failed to format output: %w", err)
	}
	fmt.Print(buf.String())
	return nil
}

// runResult converts a batch report into the output shape.
func runResult(cfg *config.Config, rep *publish.Report) *output.Result {
	return &output.Result{
		WebRoot: cfg.WebRoot,
		Run: &output.RunStats{
			Op:       string(rep.Op),
			BatchID:  rep.BatchID,
			Total:    rep.Total,
			Applied:  rep.Applied,
			Skipped:  rep.Skipped,
			Bytes:    rep.Bytes,
			Duration: rep.Duration,
			Failed:   rep.Failed,
		},
	}
}

// queuedResult is the output shape for a run handed to the daemon.
func queuedResult(cfg *config.Config, op publish.Op, total int, jobID string) *output.Result {
	return &output.Result{
		WebRoot: cfg.WebRoot,
		Run: &output.RunStats{
			Op:     string(op),
			Total:  total,
			Queued: true,
			JobID:  jobID,
		},
	}
}

// pageInfos converts manifest records for display.
func pageInfos(records []*manifest.Record) []output.PageInfo {
	now := time.Now()
	pages := make([]output.PageInfo, len(records))
	for i, rec := range records {
		pages[i] = output.PageInfo{
			Path:      rec.Path,
			Query:     rec.Query,
			Ajax:      rec.Ajax,
			File:      rec.Filename,
			Size:      rec.Size,
			SizeHuman: humanize.IBytes(uint64(rec.Size)),
			Published: rec.PublishedAt,
			Age:       now.Sub(rec.PublishedAt),
		}
	}
	return pages
}
