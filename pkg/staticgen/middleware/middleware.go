// Package middleware captures successful GET responses as they are served
// and publishes them through a publish.Publisher, so pages become static
// on first hit without a separate render pass.
//
// Capture never changes what the client receives: the response streams
// through untouched, and a publish failure is logged, not propagated. The
// request's path and raw query are handed to the publisher pre-split,
// with the already-rendered body as content, so nothing is rendered
// twice.
package middleware

import (
	"bytes"
	"net/http"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/jamesainslie/staticgen/pkg/staticgen/logging"
	"github.com/jamesainslie/staticgen/pkg/staticgen/publish"
	"github.com/jamesainslie/staticgen/pkg/staticgen/renderer"
)

// Capture is an http.Handler wrapping another handler with write-through
// publishing.
type Capture struct {
	next    http.Handler
	pub     *publish.Publisher
	include []string
	exclude []string
	accept  func(*http.Request) bool
}

// Option configures a Capture.
type Option func(*Capture)

// WithInclude sets the URL patterns (doublestar globs) eligible for
// capture. The default captures every path.
func WithInclude(patterns ...string) Option {
	return func(c *Capture) { c.include = patterns }
}

// WithExclude sets URL patterns that are never captured, even when an
// include pattern matches.
func WithExclude(patterns ...string) Option {
	return func(c *Capture) { c.exclude = patterns }
}

// WithRequestFilter restricts capture to requests the filter accepts.
// Typical use is skipping personalized responses, e.g. requests carrying
// a session cookie.
func WithRequestFilter(accept func(*http.Request) bool) Option {
	return func(c *Capture) { c.accept = accept }
}

// New wraps next with write-through publishing into pub.
func New(next http.Handler, pub *publish.Publisher, opts ...Option) *Capture {
	c := &Capture{
		next:    next,
		pub:     pub,
		include: []string{"/**"},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ServeHTTP serves the request and, for 200 GET responses on eligible
// paths, publishes the body that was just sent.
func (c *Capture) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if !c.eligible(r) {
		c.next.ServeHTTP(w, r)
		return
	}

	tee := &teeWriter{ResponseWriter: w, status: http.StatusOK}
	c.next.ServeHTTP(tee, r)

	if tee.status != http.StatusOK {
		return
	}

	opts := []publish.PageOption{
		publish.WithQuery(r.URL.RawQuery),
		publish.WithContent(tee.body.Bytes()),
	}
	if r.Header.Get(renderer.AjaxHeader) == renderer.AjaxValue {
		opts = append(opts, publish.WithAjax())
	}

	if err := c.pub.Publish(r.Context(), r.URL.Path, opts...); err != nil {
		logging.Get("middleware").Warn("capture failed",
			"path", r.URL.Path, "error", err)
	}
}

func (c *Capture) eligible(r *http.Request) bool {
	if r.Method != http.MethodGet {
		return false
	}
	if c.accept != nil && !c.accept(r) {
		return false
	}
	return c.matches(r.URL.Path)
}

// matches applies exclude-over-include pattern precedence. Patterns are
// validated at config load; a pattern that fails here simply doesn't
// match.
func (c *Capture) matches(path string) bool {
	for _, pattern := range c.exclude {
		if ok, _ := doublestar.Match(pattern, path); ok {
			return false
		}
	}
	for _, pattern := range c.include {
		if ok, _ := doublestar.Match(pattern, path); ok {
			return true
		}
	}
	return false
}

// teeWriter copies the response body while passing everything through to
// the client.
type teeWriter struct {
	http.ResponseWriter
	body   bytes.Buffer
	status int
}

func (t *teeWriter) WriteHeader(status int) {
	t.status = status
	t.ResponseWriter.WriteHeader(status)
}

func (t *teeWriter) Write(p []byte) (int, error) {
	t.body.Write(p)
	return t.ResponseWriter.Write(p)
}

// Flush lets streaming handlers flush through the tee.
func (t *teeWriter) Flush() {
	if f, ok := t.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// Unwrap exposes the underlying writer to http.ResponseController.
func (t *teeWriter) Unwrap() http.ResponseWriter {
	return t.ResponseWriter
}
