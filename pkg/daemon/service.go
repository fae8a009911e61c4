package daemon

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/jamesainslie/staticgen/pkg/staticgen/logging"
	"github.com/jamesainslie/staticgen/pkg/staticgen/manifest"
	"github.com/jamesainslie/staticgen/pkg/staticgen/publish"
	"github.com/jamesainslie/staticgen/pkg/staticgen/resource"
)

// drainInterval is the fallback sweep over the spool for jobs whose
// filesystem events were missed.
const drainInterval = 30 * time.Second

// Service drains spooled jobs through a publisher. One drain runs at a
// time; jobs are processed in queue order and a failed job is set aside
// without stopping the jobs behind it.
type Service struct {
	pub      *publish.Publisher
	spool    *Spool
	manifest *manifest.Store

	startTime time.Time

	drainMu sync.Mutex

	processed atomic.Int64
	failed    atomic.Int64
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithManifest lets the status endpoint report page counts from store.
func WithManifest(store *manifest.Store) ServiceOption {
	return func(s *Service) {
		s.manifest = store
	}
}

// NewService creates a service draining spool through pub.
func NewService(pub *publish.Publisher, spool *Spool, opts ...ServiceOption) *Service {
	s := &Service{
		pub:       pub,
		spool:     spool,
		startTime: time.Now(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Drain processes every pending job in queue order.
func (s *Service) Drain(ctx context.Context) error {
	s.drainMu.Lock()
	defer s.drainMu.Unlock()

	jobs, err := s.spool.Pending()
	if err != nil {
		return err
	}

	log := logging.Get("daemon")
	for _, job := range jobs {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if err := s.run(ctx, job); err != nil {
			log.Error("job failed", "id", job.ID, "op", job.Op, "error", err)
			if failErr := s.spool.Fail(job); failErr != nil {
				log.Warn("mark job failed", "id", job.ID, "error", failErr)
			}
			s.failed.Add(1)
			continue
		}

		if err := s.spool.Complete(job); err != nil {
			log.Warn("remove drained job", "id", job.ID, "error", err)
		}
		s.processed.Add(1)
		log.Info("job done", "id", job.ID, "op", job.Op, "paths", len(job.Paths))
	}
	return nil
}

// run executes one job against the publisher.
func (s *Service) run(ctx context.Context, job *Job) error {
	resources := resource.Paths(job.Paths...)

	var opts []publish.PageOption
	if job.Ajax {
		opts = append(opts, publish.WithAjax())
	}

	var err error
	switch job.Op {
	case publish.OpPublish:
		_, err = s.pub.PublishAll(ctx, resources, opts...)
	case publish.OpDelete:
		_, err = s.pub.DeleteAll(resources, opts...)
	case publish.OpPurge:
		_, err = s.pub.PurgeAll(resources)
	default:
		err = fmt.Errorf("unknown op %q", job.Op)
	}
	return err
}

// Run drains the spool, then watches it and drains again whenever a job
// lands. Blocks until the context is cancelled.
func (s *Service) Run(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("watch spool: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(s.spool.Dir()); err != nil {
		return fmt.Errorf("watch spool: %w", err)
	}

	log := logging.Get("daemon")

	// Jobs dropped before the watch started.
	s.drainLogged(ctx, log)

	ticker := time.NewTicker(drainInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			if !strings.HasSuffix(event.Name, jobSuffix) {
				continue
			}
			s.drainLogged(ctx, log)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.Error("spool watch error", "error", err)

		case <-ticker.C:
			s.drainLogged(ctx, log)
		}
	}
}

func (s *Service) drainLogged(ctx context.Context, log *logging.Logger) {
	if err := s.Drain(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.Error("drain failed", "error", err)
	}
}

// ServiceStats is a snapshot of the service counters.
type ServiceStats struct {
	Uptime     time.Duration
	Processed  int64
	Failed     int64
	SpoolDepth int
}

// Stats returns the current counters for the status endpoint.
func (s *Service) Stats() ServiceStats {
	return ServiceStats{
		Uptime:     time.Since(s.startTime),
		Processed:  s.processed.Load(),
		Failed:     s.failed.Load(),
		SpoolDepth: s.spool.Depth(),
	}
}

// ManifestStats returns page counts from the manifest, or nil when the
// service has no manifest or the read fails.
func (s *Service) ManifestStats() *manifest.Stats {
	if s.manifest == nil {
		return nil
	}
	stats, err := s.manifest.Stats()
	if err != nil {
		logging.Get("daemon").Warn("manifest stats", "error", err)
		return nil
	}
	return stats
}
