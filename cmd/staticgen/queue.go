package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/jamesainslie/staticgen/pkg/client"
	"github.com/jamesainslie/staticgen/pkg/daemon"
	"github.com/jamesainslie/staticgen/pkg/staticgen/config"
	"github.com/jamesainslie/staticgen/pkg/staticgen/logging"
	"github.com/jamesainslie/staticgen/pkg/staticgen/output"
	"github.com/jamesainslie/staticgen/pkg/staticgen/publish"
)

// queueCmd inspects the spool or hands work to the daemon.
var queueCmd = &cobra.Command{
	Use:   "queue [publish|delete|purge] [paths...]",
	Short: "Show or add to the daemon's work queue",
	Long: `Show the daemon's work queue, or enqueue a batch for it to run.

With no arguments, lists the jobs waiting in the spool. With an
operation and paths, writes a job to the spool and wakes the daemon:

  staticgen queue                        # show pending jobs
  staticgen queue publish /docs/ /about
  staticgen queue delete --from-file stale.txt
  staticgen queue purge /old-section/

Queued jobs survive daemon restarts; failed jobs are kept aside and
shown in red.`,
	Args: cobra.ArbitraryArgs,
	RunE: runQueue,
}

func init() {
	rootCmd.AddCommand(queueCmd)

	queueCmd.Flags().BoolP("ajax", "a", false, "Publish the Ajax variant of each path")
	queueCmd.Flags().StringP("from-file", "f", "", "Read paths from a file (- for stdin)")
}

func runQueue(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	if len(args) == 0 {
		return showQueue(cfg)
	}

	op := publish.Op(args[0])
	switch op {
	case publish.OpPublish, publish.OpDelete, publish.OpPurge:
	default:
		return fmt.Errorf("unknown operation %q: use publish, delete, or purge", args[0])
	}

	fromFile, _ := cmd.Flags().GetString("from-file")
	paths, err := gatherPaths(args[1:], fromFile, cmd.InOrStdin())
	if err != nil {
		return err
	}

	ajax, _ := cmd.Flags().GetBool("ajax")
	return enqueueBatch(cfg, op, paths, ajax)
}

// showQueue lists pending and failed jobs from the spool directory.
func showQueue(cfg *config.Config) error {
	pending, failed, err := client.Jobs(daemonPaths(cfg))
	if err != nil {
		return fmt.Errorf("failed to read queue: %w", err)
	}

	jobs := make([]output.JobInfo, 0, len(pending)+len(failed))
	for _, job := range pending {
		jobs = append(jobs, jobInfo(job, false))
	}
	for _, job := range failed {
		jobs = append(jobs, jobInfo(job, true))
	}

	if len(jobs) == 0 {
		printInfo("Queue is empty")
		return nil
	}

	return printResult(&output.Result{
		WebRoot: cfg.WebRoot,
		Jobs:    jobs,
	})
}

func jobInfo(job *daemon.Job, failed bool) output.JobInfo {
	return output.JobInfo{
		ID:       job.ID,
		Op:       string(job.Op),
		Paths:    len(job.Paths),
		QueuedAt: job.QueuedAt,
		Failed:   failed,
	}
}

// enqueueBatch spools a job for the daemon instead of running it inline.
// Also used by publish, delete, and purge when --queue is set.
func enqueueBatch(cfg *config.Config, op publish.Op, paths []string, ajax bool) error {
	job := &daemon.Job{
		Op:       op,
		Paths:    paths,
		Ajax:     ajax,
		QueuedAt: time.Now().UTC(),
	}

	id, err := client.Enqueue(daemonPaths(cfg), job)
	if err != nil {
		return fmt.Errorf("failed to queue job: %w", err)
	}
	printVerbose("queued job %s (%d paths)", id, len(paths))

	// The job is durable either way; a daemon that will not start just
	// means it sits in the spool until one does.
	if err := maybeStartDaemon(cfg); err != nil {
		logging.Get("daemon").Warn("daemon auto-start failed", "error", err)
		printVerbose("daemon auto-start failed: %v", err)
	}

	return printResult(queuedResult(cfg, op, len(paths), id))
}
