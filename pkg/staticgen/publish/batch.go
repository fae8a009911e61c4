package publish

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/jamesainslie/staticgen/pkg/staticgen/resource"
)

// Op identifies a batch operation. The daemon spools jobs under the same
// names.
type Op string

const (
	OpPublish Op = "publish"
	OpDelete  Op = "delete"
	OpPurge   Op = "purge"
)

// Report summarizes one batch run.
type Report struct {
	// Op is the operation applied to every path.
	Op Op `json:"op" yaml:"op"`

	// BatchID groups the manifest records written by this run.
	BatchID string `json:"batch_id" yaml:"batch_id"`

	// Total is the number of URL paths the resources resolved to.
	Total int `json:"total" yaml:"total"`

	// Applied counts paths the operation acted on.
	Applied int `json:"applied" yaml:"applied"`

	// Skipped counts paths that mapped to no cache location.
	Skipped int `json:"skipped" yaml:"skipped"`

	// Bytes is the total content written (publish runs only).
	Bytes int64 `json:"bytes" yaml:"bytes"`

	// Duration is the elapsed wall time.
	Duration time.Duration `json:"duration" yaml:"duration"`

	// Failed names the path whose failure aborted the run, if any.
	Failed string `json:"failed,omitempty" yaml:"failed,omitempty"`
}

// PublishAll resolves the resources and publishes each path in order.
// The first hard failure aborts the remaining paths; the report covers
// what ran before the abort, and the error identifies the cause. Paths
// that map to no location are counted as skipped and do not abort the
// run.
func (p *Publisher) PublishAll(ctx context.Context, resources []resource.Resource, opts ...PageOption) (*Report, error) {
	return p.each(OpPublish, resources, opts, func(rawPath string, cfg pageConfig) (outcome, error) {
		return p.publish(ctx, rawPath, cfg)
	})
}

// DeleteAll resolves the resources and deletes each path in order,
// non-recursively. Same abort semantics as PublishAll.
func (p *Publisher) DeleteAll(resources []resource.Resource, opts ...PageOption) (*Report, error) {
	return p.each(OpDelete, resources, opts, p.delete)
}

// PurgeAll resolves the resources and purges each path's subtree in
// order. Purging itself never fails, so only resolution can abort the
// run.
func (p *Publisher) PurgeAll(resources []resource.Resource) (*Report, error) {
	return p.each(OpPurge, resources, nil, func(rawPath string, _ pageConfig) (outcome, error) {
		return p.purge(rawPath)
	})
}

// each is the batch driver: resolve up front, then apply op to every
// path in resolved order, stopping at the first error.
func (p *Publisher) each(op Op, resources []resource.Resource, opts []PageOption, apply func(string, pageConfig) (outcome, error)) (*Report, error) {
	paths, err := resource.Resolve(resources...)
	if err != nil {
		return nil, err
	}

	rep := &Report{Op: op, BatchID: uuid.NewString(), Total: len(paths)}
	cfg := applyOptions(opts)
	cfg.batchID = rep.BatchID

	start := time.Now()
	defer func() { rep.Duration = time.Since(start) }()

	for _, rawPath := range paths {
		out, err := apply(rawPath, cfg)
		if err != nil {
			rep.Failed = rawPath
			logger.Error("batch aborted", "op", op, "path", rawPath, "error", err)
			return rep, err
		}
		if out.applied {
			rep.Applied++
			rep.Bytes += out.bytes
		} else {
			rep.Skipped++
		}
	}

	logger.Info("batch complete", "op", op,
		"total", rep.Total, "applied", rep.Applied, "skipped", rep.Skipped)
	return rep, nil
}
