package renderer

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
)

// Handler renders pages by driving an http.Handler in-process, without a
// listening socket. This is the renderer applications embed: the handler
// is the application's own mux, so published pages go through the same
// routing, middleware, and templates as live requests.
type Handler struct {
	handler    http.Handler
	serverName string
}

// NewHandler returns a renderer backed by h. serverName becomes the Host
// of every synthesized request; empty keeps httptest's default.
func NewHandler(h http.Handler, serverName string) *Handler {
	return &Handler{handler: h, serverName: serverName}
}

// Render synthesizes a GET request for req and records the handler's
// response.
func (h *Handler) Render(ctx context.Context, req Request) (*Result, error) {
	target := req.URL()
	if _, err := url.ParseRequestURI(target); err != nil {
		return nil, fmt.Errorf("render %q: %w", target, err)
	}

	httpReq := httptest.NewRequest(http.MethodGet, target, nil).WithContext(ctx)
	if h.serverName != "" {
		httpReq.Host = h.serverName
	}
	if req.Ajax {
		httpReq.Header.Set(AjaxHeader, AjaxValue)
	}

	rec := httptest.NewRecorder()
	h.handler.ServeHTTP(rec, httpReq)

	return &Result{Status: rec.Code, Body: rec.Body.Bytes()}, nil
}
