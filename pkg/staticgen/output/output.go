// Package output provides formatters for displaying publish results,
// page listings, and daemon status in various output formats (pretty,
// plain, json, yaml, etc.).
//
// The package uses a registry pattern to allow registration of multiple
// formatter implementations that can be selected at runtime.
//
// Basic usage:
//
//	formatter, err := output.Get("pretty")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	var buf bytes.Buffer
//	if err := formatter.Format(&buf, result); err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Print(buf.String())
package output

import (
	"bytes"
	"fmt"
	"sort"
	"sync"
	"time"
)

// PageInfo describes one published page for display.
type PageInfo struct {
	// Path is the URL path the page was published for.
	Path string `json:"path" yaml:"path"`

	// Query is the raw query string of the variant, if any.
	Query string `json:"query,omitempty" yaml:"query,omitempty"`

	// Ajax marks the AJAX variant.
	Ajax bool `json:"ajax" yaml:"ajax"`

	// File is the path of the static file under the web root.
	File string `json:"file" yaml:"file"`

	// Size is the file size in bytes.
	Size int64 `json:"size" yaml:"size"`

	// SizeHuman is the human-readable size (e.g. "1.5 KiB").
	SizeHuman string `json:"size_human" yaml:"size_human"`

	// Published is when the page was last published.
	Published time.Time `json:"published" yaml:"published"`

	// Age is the time since the page was published.
	Age time.Duration `json:"age" yaml:"age"`
}

// Label renders the page identity as one display string.
func (p PageInfo) Label() string {
	s := p.Path
	if p.Query != "" {
		s += "?" + p.Query
	}
	if p.Ajax {
		s += " [ajax]"
	}
	return s
}

// RunStats summarizes one publish, delete, or purge run.
type RunStats struct {
	// Op is the operation that ran.
	Op string `json:"op" yaml:"op"`

	// BatchID groups the manifest records the run wrote.
	BatchID string `json:"batch_id,omitempty" yaml:"batch_id,omitempty"`

	// Total is the number of resolved paths.
	Total int `json:"total" yaml:"total"`

	// Applied counts paths the operation acted on.
	Applied int `json:"applied" yaml:"applied"`

	// Skipped counts paths with no cache location.
	Skipped int `json:"skipped" yaml:"skipped"`

	// Bytes is the content written, for publish runs.
	Bytes int64 `json:"bytes" yaml:"bytes"`

	// Duration is the elapsed wall time.
	Duration time.Duration `json:"duration" yaml:"duration"`

	// Failed names the path that aborted the run, if any.
	Failed string `json:"failed,omitempty" yaml:"failed,omitempty"`

	// Queued reports that the run was handed to the daemon instead of
	// executed inline; JobID identifies the spooled job.
	Queued bool   `json:"queued" yaml:"queued"`
	JobID  string `json:"job_id,omitempty" yaml:"job_id,omitempty"`
}

// DiskInfo describes the filesystem holding the web root.
type DiskInfo struct {
	Total uint64 `json:"total" yaml:"total"`
	Free  uint64 `json:"free" yaml:"free"`
	Used  uint64 `json:"used" yaml:"used"`
}

// StatusInfo describes the publisher's standing state.
type StatusInfo struct {
	// DaemonUp indicates the staticgend daemon is running.
	DaemonUp bool `json:"daemon_up" yaml:"daemon_up"`

	// PID is the daemon process id when it is up.
	PID int `json:"pid,omitempty" yaml:"pid,omitempty"`

	// Socket is the daemon control socket path.
	Socket string `json:"socket,omitempty" yaml:"socket,omitempty"`

	// SpoolDepth is the number of jobs waiting in the spool.
	SpoolDepth int `json:"spool_depth" yaml:"spool_depth"`

	// Pages, AjaxPages, Bytes, and LastPublish come from the manifest.
	Pages       int       `json:"pages" yaml:"pages"`
	AjaxPages   int       `json:"ajax_pages" yaml:"ajax_pages"`
	Bytes       int64     `json:"bytes" yaml:"bytes"`
	LastPublish time.Time `json:"last_publish,omitempty" yaml:"last_publish,omitempty"`

	// Files and Dirs come from walking the web root.
	Files int64 `json:"files" yaml:"files"`
	Dirs  int64 `json:"dirs" yaml:"dirs"`

	// Disk is the filesystem capacity, when known.
	Disk *DiskInfo `json:"disk,omitempty" yaml:"disk,omitempty"`
}

// JobInfo describes one spooled daemon job.
type JobInfo struct {
	ID       string    `json:"id" yaml:"id"`
	Op       string    `json:"op" yaml:"op"`
	Paths    int       `json:"paths" yaml:"paths"`
	QueuedAt time.Time `json:"queued_at" yaml:"queued_at"`
	Failed   bool      `json:"failed" yaml:"failed"`
}

// Result contains the complete output data for formatting. Sections not
// relevant to a command are left nil or empty and formatters skip them.
type Result struct {
	// WebRoot is the directory pages are published under.
	WebRoot string `json:"web_root" yaml:"web_root"`

	// Run summarizes a publish/delete/purge run, when one happened.
	Run *RunStats `json:"run,omitempty" yaml:"run,omitempty"`

	// Pages lists published pages, e.g. for the list command.
	Pages []PageInfo `json:"pages,omitempty" yaml:"pages,omitempty"`

	// TotalPages is the full page count when Pages was truncated.
	TotalPages int `json:"total_pages" yaml:"total_pages"`

	// Status is the standing state, for the status command.
	Status *StatusInfo `json:"status,omitempty" yaml:"status,omitempty"`

	// Jobs lists spooled daemon jobs, for the queue command.
	Jobs []JobInfo `json:"jobs,omitempty" yaml:"jobs,omitempty"`

	// Warnings contains any warning messages generated along the way.
	Warnings []string `json:"warnings,omitempty" yaml:"warnings,omitempty"`
}

// PageBytes returns the sum of all page sizes in the result.
func (r *Result) PageBytes() int64 {
	var total int64
	for _, p := range r.Pages {
		total += p.Size
	}
	return total
}

// Formatter is the interface that all output formatters must implement.
type Formatter interface {
	// Format writes the formatted output to the buffer.
	// It returns an error if formatting fails.
	Format(w *bytes.Buffer, r *Result) error
}

// FormatterFactory is a function that creates a new Formatter instance.
type FormatterFactory func() Formatter

// Registry manages formatter registration and lookup.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]FormatterFactory
}

// NewRegistry creates a new formatter registry.
func NewRegistry() *Registry {
	return &Registry{
		factories: make(map[string]FormatterFactory),
	}
}

// Register adds a formatter factory to the registry.
// It will replace any existing formatter with the same name.
func (r *Registry) Register(name string, factory FormatterFactory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[name] = factory
}

// Get returns a new formatter instance by name.
// It returns an error if the formatter is not found.
func (r *Registry) Get(name string) (Formatter, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	factory, ok := r.factories[name]
	if !ok {
		return nil, fmt.Errorf("unknown formatter: %s", name)
	}
	return factory(), nil
}

// Available returns a sorted list of all registered formatter names.
func (r *Registry) Available() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// DefaultRegistry is the global formatter registry.
var DefaultRegistry = NewRegistry()

// Register adds a formatter factory to the default registry.
func Register(name string, factory FormatterFactory) {
	DefaultRegistry.Register(name, factory)
}

// Get returns a new formatter instance from the default registry.
func Get(name string) (Formatter, error) {
	return DefaultRegistry.Get(name)
}

// Available returns all formatter names from the default registry.
func Available() []string {
	return DefaultRegistry.Available()
}
