package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/jamesainslie/staticgen/pkg/daemon"
	"github.com/jamesainslie/staticgen/pkg/staticgen/config"
	"github.com/jamesainslie/staticgen/pkg/staticgen/manifest"
	"github.com/jamesainslie/staticgen/pkg/staticgen/publish"
	"github.com/jamesainslie/staticgen/pkg/staticgen/renderer"
	"github.com/jamesainslie/staticgen/pkg/staticgen/resource"
)

var publishCmd = &cobra.Command{
	Use:   "publish [paths...]",
	Short: "Render pages and publish them under the web root",
	Long: `Render each path through the application server and write the result as
a static file under the web root. Writes are atomic: a page is never
served half-written.

Paths ending in / publish the directory's index document. A query
string publishes that variant alongside it:

  staticgen publish /blog/ "/blog/?page=2"`,
	RunE: runPublish,
}

var deleteCmd = &cobra.Command{
	Use:   "delete [paths...]",
	Short: "Remove published pages",
	Long: `Remove the static file for each path, handing its traffic back to the
application server. Only the named variant is removed; other query or
AJAX variants of the same path stay published. Directories left empty
are pruned.`,
	RunE: runDelete,
}

var purgeCmd = &cobra.Command{
	Use:   "purge [paths...]",
	Short: "Remove whole published subtrees",
	Long: `Remove every published file under each path, including all query and
AJAX variants. Purging / would empty the whole web root, so it is
refused without --force.`,
	RunE: runPurge,
}

func init() {
	rootCmd.AddCommand(publishCmd)
	rootCmd.AddCommand(deleteCmd)
	rootCmd.AddCommand(purgeCmd)

	for _, cmd := range []*cobra.Command{publishCmd, deleteCmd, purgeCmd} {
		cmd.Flags().StringP("from-file", "f", "", "read paths from a file, one per line (- for stdin)")
		cmd.Flags().Bool("queue", false, "hand the job to staticgend instead of running it now")
	}
	publishCmd.Flags().BoolP("ajax", "a", false, "publish the AJAX variant")
	deleteCmd.Flags().BoolP("ajax", "a", false, "delete the AJAX variant")
	purgeCmd.Flags().Bool("force", false, "allow purging /")
}

func runPublish(cmd *cobra.Command, args []string) error {
	paths, err := commandPaths(cmd, args)
	if err != nil {
		return err
	}
	return runBatch(cmd, publish.OpPublish, paths)
}

func runDelete(cmd *cobra.Command, args []string) error {
	paths, err := commandPaths(cmd, args)
	if err != nil {
		return err
	}
	return runBatch(cmd, publish.OpDelete, paths)
}

func runPurge(cmd *cobra.Command, args []string) error {
	paths, err := commandPaths(cmd, args)
	if err != nil {
		return err
	}

	force, _ := cmd.Flags().GetBool("force")
	if !force {
		for _, p := range paths {
			if p == "/" {
				return errors.New("purging / removes every published page; pass --force to confirm")
			}
		}
	}
	return runBatch(cmd, publish.OpPurge, paths)
}

// commandPaths resolves a command's target paths from its arguments and
// the --from-file flag.
func commandPaths(cmd *cobra.Command, args []string) ([]string, error) {
	fromFile, _ := cmd.Flags().GetString("from-file")
	return gatherPaths(args, fromFile, cmd.InOrStdin())
}

// gatherPaths collects target paths from arguments and a path-list file.
// "-" reads the list from stdin.
func gatherPaths(args []string, fromFile string, stdin io.Reader) ([]string, error) {
	paths := append([]string(nil), args...)

	if fromFile != "" {
		r := stdin
		if fromFile != "-" {
			f, err := os.Open(fromFile)
			if err != nil {
				return nil, fmt.Errorf("failed to read path list: %w", err)
			}
			defer f.Close()
			r = f
		}

		listed, err := readPathList(r)
		if err != nil {
			return nil, fmt.Errorf("failed to read path list: %w", err)
		}
		paths = append(paths, listed...)
	}

	if len(paths) == 0 {
		return nil, errors.New("no paths given; pass them as arguments or with --from-file")
	}
	return paths, nil
}

// readPathList reads one path per line, skipping blanks and # comments.
func readPathList(r io.Reader) ([]string, error) {
	var paths []string
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		paths = append(paths, line)
	}
	return paths, scanner.Err()
}

// runBatch executes one publish, delete, or purge run over paths, either
// inline or through the daemon's spool.
func runBatch(cmd *cobra.Command, op publish.Op, paths []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ajax, _ := cmd.Flags().GetBool("ajax")
	queue, _ := cmd.Flags().GetBool("queue")

	if queue {
		return enqueueBatch(cfg, op, paths, ajax)
	}

	pub, cleanup, err := buildPublisher(cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	ctx, cancel := signalContext()
	defer cancel()

	var opts []publish.PageOption
	if ajax {
		opts = append(opts, publish.WithAjax())
	}

	resources := resource.Paths(paths...)

	var rep *publish.Report
	var runErr error
	switch op {
	case publish.OpPublish:
		rep, runErr = pub.PublishAll(ctx, resources, opts...)
	case publish.OpDelete:
		rep, runErr = pub.DeleteAll(resources, opts...)
	case publish.OpPurge:
		rep, runErr = pub.PurgeAll(resources)
	}

	if rep != nil {
		if err := printResult(runResult(cfg, rep)); err != nil {
			return err
		}
	}
	if runErr != nil && errors.Is(runErr, context.Canceled) {
		printInfo("Interrupted")
		return nil
	}
	return runErr
}

// signalContext returns a context cancelled by SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

// buildPublisher wires the upstream renderer and the manifest into a
// publisher. The returned cleanup closes the manifest store.
func buildPublisher(cfg *config.Config) (*publish.Publisher, func(), error) {
	rend, err := renderer.NewUpstream(cfg.Upstream, cfg.EffectiveServerName(),
		renderer.WithTimeout(cfg.EffectiveRenderTimeout()))
	if err != nil {
		return nil, nil, err
	}

	var opts []publish.Option
	cleanup := func() {}
	if cfg.Manifest.Enabled {
		store, err := openManifest(cfg)
		if err != nil {
			return nil, nil, err
		}
		opts = append(opts, publish.WithManifest(store))
		cleanup = func() { store.Close() }
	}

	pub, err := publish.New(cfg.WebRoot, rend, opts...)
	if err != nil {
		cleanup()
		return nil, nil, err
	}
	return pub, cleanup, nil
}

// openManifest opens the configured manifest store read-write. The
// daemon holds the store's lock while it runs, so that case gets a
// pointed error instead of badger's lock message.
func openManifest(cfg *config.Config) (*manifest.Store, error) {
	path := cfg.Manifest.Path
	if path == "" {
		path = config.DefaultManifestPath()
	}

	store, err := manifest.Open(path)
	if err != nil {
		if daemon.IsDaemonRunning(daemonPIDPath(cfg)) {
			return nil, errors.New("manifest is locked by the running daemon; use --queue or 'staticgen daemon stop'")
		}
		return nil, fmt.Errorf("failed to open manifest: %w", err)
	}
	return store, nil
}
