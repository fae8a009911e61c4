// Package renderer produces page content for the publisher. A renderer is
// handed the URL path and query of a page and returns the response status
// and body; whether that happens in-process against an http.Handler or
// over the network against a running application server is an
// implementation choice the publisher never sees.
package renderer

import (
	"context"
)

// Headers conveying the AJAX request marker, matching the convention
// browsers and JS frameworks use.
const (
	AjaxHeader = "X-Requested-With"
	AjaxValue  = "XMLHttpRequest"
)

// Request identifies one page rendering. Path carries the URL path
// component and Query the raw query string with no leading separator;
// Ajax requests the AJAX variant of the page.
type Request struct {
	Path  string
	Query string
	Ajax  bool
}

// URL reassembles the original request target from path and query.
func (r Request) URL() string {
	if r.Query == "" {
		return r.Path
	}
	return r.Path + "?" + r.Query
}

// Result is a completed rendering. Status is reported as-is: classifying
// non-200 responses is the caller's job, not the renderer's.
type Result struct {
	Status int
	Body   []byte
}

// Renderer renders a page. Errors are transport or application failures;
// a served error page is a Result with its status, not an error.
type Renderer interface {
	Render(ctx context.Context, req Request) (*Result, error)
}
