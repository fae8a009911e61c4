// Package daemon implements the staticgend background service. The daemon
// drains a spool directory of queued publish jobs through a publisher and
// exposes a small control API over a Unix socket.
package daemon

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jamesainslie/staticgen/pkg/staticgen/logging"
	"github.com/jamesainslie/staticgen/pkg/staticgen/publish"
)

const (
	jobSuffix    = ".json"
	failedSuffix = ".failed"
)

// Job is one spooled unit of work. Paths may carry embedded query strings;
// they are split when the job is published, exactly as with a direct run.
type Job struct {
	ID       string     `json:"id"`
	Op       publish.Op `json:"op"`
	Paths    []string   `json:"paths"`
	Ajax     bool       `json:"ajax,omitempty"`
	QueuedAt time.Time  `json:"queued_at"`

	file string
}

// Spool is a directory of job files. Producers drop jobs in with Enqueue
// and the daemon drains them in queue order. Job files are written with a
// temp-and-rename so a reader never sees a half-written job.
type Spool struct {
	dir string
}

// OpenSpool opens the spool directory, creating it if needed.
func OpenSpool(dir string) (*Spool, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create spool directory: %w", err)
	}
	return &Spool{dir: dir}, nil
}

// Dir returns the spool directory.
func (s *Spool) Dir() string {
	return s.dir
}

// Enqueue writes the job into the spool and returns its id. A missing id
// or queue time is filled in.
func (s *Spool) Enqueue(job *Job) (string, error) {
	if job.ID == "" {
		job.ID = uuid.NewString()
	}
	if job.QueuedAt.IsZero() {
		job.QueuedAt = time.Now().UTC()
	}

	data, err := json.Marshal(job)
	if err != nil {
		return "", fmt.Errorf("encode job: %w", err)
	}

	tmp, err := os.CreateTemp(s.dir, ".enqueue-*")
	if err != nil {
		return "", fmt.Errorf("spool job: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return "", fmt.Errorf("spool job: %w", err)
	}
	if err := tmp.Chmod(0o644); err != nil {
		tmp.Close()
		return "", fmt.Errorf("spool job: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("spool job: %w", err)
	}

	if err := os.Rename(tmpName, filepath.Join(s.dir, jobFileName(job))); err != nil {
		return "", fmt.Errorf("spool job: %w", err)
	}
	return job.ID, nil
}

// jobFileName builds a spool file name that sorts in queue order.
func jobFileName(job *Job) string {
	return fmt.Sprintf("%020d-%s%s", job.QueuedAt.UnixNano(), job.ID, jobSuffix)
}

// Pending returns the queued jobs in queue order. Job files that cannot be
// decoded are quarantined as failed so they do not wedge the queue.
func (s *Spool) Pending() ([]*Job, error) {
	return s.list(jobSuffix, true)
}

// Failed returns jobs that have been marked failed, in queue order.
func (s *Spool) Failed() ([]*Job, error) {
	return s.list(failedSuffix, false)
}

func (s *Spool) list(suffix string, quarantine bool) ([]*Job, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("read spool: %w", err)
	}

	var jobs []*Job
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || strings.HasPrefix(name, ".") || !strings.HasSuffix(name, suffix) {
			continue
		}
		path := filepath.Join(s.dir, name)
		job, err := readJob(path)
		if err != nil {
			logging.Get("daemon").Warn("unreadable job file", "file", name, "error", err)
			if quarantine {
				s.quarantine(path)
			}
			continue
		}
		jobs = append(jobs, job)
	}
	return jobs, nil
}

func (s *Spool) quarantine(path string) {
	failed := strings.TrimSuffix(path, jobSuffix) + failedSuffix
	if err := os.Rename(path, failed); err != nil {
		logging.Get("daemon").Warn("quarantine job file", "file", filepath.Base(path), "error", err)
	}
}

func readJob(path string) (*Job, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var job Job
	if err := json.Unmarshal(data, &job); err != nil {
		return nil, err
	}
	if job.ID == "" {
		return nil, fmt.Errorf("job file %s has no id", filepath.Base(path))
	}
	job.file = path
	return &job, nil
}

// Depth counts the queued jobs without decoding them.
func (s *Spool) Depth() int {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return 0
	}
	depth := 0
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || strings.HasPrefix(name, ".") || !strings.HasSuffix(name, jobSuffix) {
			continue
		}
		depth++
	}
	return depth
}

// Complete removes a drained job from the spool.
func (s *Spool) Complete(job *Job) error {
	if job.file == "" {
		return nil
	}
	if err := os.Remove(job.file); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// Fail marks a job as failed. The job file is kept under a failed name for
// inspection and retry instead of being retried forever.
func (s *Spool) Fail(job *Job) error {
	if job.file == "" {
		return nil
	}
	failed := strings.TrimSuffix(job.file, jobSuffix) + failedSuffix
	if err := os.Rename(job.file, failed); err != nil && !os.IsNotExist(err) {
		return err
	}
	job.file = failed
	return nil
}

// Retry moves a failed job back into the queue.
func (s *Spool) Retry(job *Job) error {
	if job.file == "" || !strings.HasSuffix(job.file, failedSuffix) {
		return fmt.Errorf("job %s is not failed", job.ID)
	}
	queued := strings.TrimSuffix(job.file, failedSuffix) + jobSuffix
	if err := os.Rename(job.file, queued); err != nil {
		return err
	}
	job.file = queued
	return nil
}
