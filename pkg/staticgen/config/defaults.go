// Package config provides configuration management for the staticgen
// publisher: file and environment loading for the CLI and daemon, plus the
// XDG directory layout shared by both.
package config

// Default configuration values for staticgen.
const (
	// DefaultUpstream is the application server pages are rendered
	// against when no in-process handler is available.
	DefaultUpstream = "http://127.0.0.1:8000"

	// DefaultRenderTimeout bounds a single upstream render.
	DefaultRenderTimeout = "30s"

	// FallbackServerName is the last resort when neither configuration
	// nor the OS supplies a host name.
	FallbackServerName = "localhost"
)

// DefaultInclude publishes every path unless excluded.
var DefaultInclude = []string{"/**"}
