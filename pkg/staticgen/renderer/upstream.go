package renderer

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// defaultUpstreamTimeout bounds a single page render over the network.
const defaultUpstreamTimeout = 30 * time.Second

// Upstream renders pages by fetching them from a running application
// server. The CLI and daemon use it: they have no in-process application
// to drive, only the one listening at the configured base URL.
type Upstream struct {
	base       string
	serverName string
	client     *http.Client
}

// UpstreamOption adjusts an Upstream renderer.
type UpstreamOption func(*Upstream)

// WithTimeout overrides the per-render timeout.
func WithTimeout(d time.Duration) UpstreamOption {
	return func(u *Upstream) {
		u.client.Timeout = d
	}
}

// WithHTTPClient substitutes the HTTP client entirely, for callers that
// need custom transports.
func WithHTTPClient(c *http.Client) UpstreamOption {
	return func(u *Upstream) {
		u.client = c
	}
}

// NewUpstream returns a renderer fetching from baseURL, e.g.
// "http://127.0.0.1:8000". serverName, when set, overrides the Host header
// so name-based virtual hosts resolve the same way they do in production.
func NewUpstream(baseURL, serverName string, opts ...UpstreamOption) (*Upstream, error) {
	parsed, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse upstream URL %q: %w", baseURL, err)
	}
	if parsed.Scheme == "" || parsed.Host == "" {
		return nil, fmt.Errorf("upstream URL %q must include scheme and host", baseURL)
	}

	u := &Upstream{
		base:       strings.TrimRight(baseURL, "/"),
		serverName: serverName,
		client: &http.Client{
			Timeout: defaultUpstreamTimeout,
			// Redirects surface as their own status instead of being
			// followed, matching in-process rendering: a page that
			// redirects must not be published under the original path.
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
	}
	for _, opt := range opts {
		opt(u)
	}
	return u, nil
}

// Render fetches req from the upstream server.
func (u *Upstream) Render(ctx context.Context, req Request) (*Result, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, u.base+req.URL(), nil)
	if err != nil {
		return nil, fmt.Errorf("build request for %q: %w", req.URL(), err)
	}
	if u.serverName != "" {
		httpReq.Host = u.serverName
	}
	if req.Ajax {
		httpReq.Header.Set(AjaxHeader, AjaxValue)
	}

	resp, err := u.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("fetch %q: %w", req.URL(), err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response for %q: %w", req.URL(), err)
	}

	return &Result{Status: resp.StatusCode, Body: body}, nil
}
