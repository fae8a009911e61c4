package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/adrg/xdg"
	"github.com/bmatcuk/doublestar/v4"
	"github.com/spf13/viper"

	"github.com/jamesainslie/staticgen/pkg/staticgen/logging"
)

// Validation errors.
var (
	// ErrWebRootRequired reports a missing web root. Nothing can be
	// published or invalidated without one, so loading fails before any
	// page is touched.
	ErrWebRootRequired = errors.New("web_root is required")

	// ErrInvalidConfig reports a config value that parsed but cannot be
	// used.
	ErrInvalidConfig = errors.New("invalid configuration")
)

// RotationConfig configures log file rotation.
type RotationConfig struct {
	MaxSize    string `mapstructure:"max_size"`
	MaxAge     int    `mapstructure:"max_age"`
	MaxBackups int    `mapstructure:"max_backups"`
	Daily      bool   `mapstructure:"daily"`
}

// LoggingConfig configures application logging.
type LoggingConfig struct {
	Level      string            `mapstructure:"level"`
	Path       string            `mapstructure:"path"`
	Rotation   RotationConfig    `mapstructure:"rotation"`
	Components map[string]string `mapstructure:"components"`
}

// DaemonConfig configures the background publisher daemon.
type DaemonConfig struct {
	AutoStart  bool   `mapstructure:"auto_start"`
	BinaryPath string `mapstructure:"binary_path"` // staticgend binary, auto-discovered if empty
	SocketPath string `mapstructure:"socket_path"`
	PIDPath    string `mapstructure:"pid_path"`
	SpoolPath  string `mapstructure:"spool_path"`
}

// ManifestConfig configures the published-page index.
type ManifestConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

// Config represents the application configuration.
type Config struct {
	// WebRoot is the directory static files are published under.
	WebRoot string `mapstructure:"web_root"`

	// ServerName is the Host sent to the renderer; empty falls back to
	// the machine hostname, then FallbackServerName.
	ServerName string `mapstructure:"server_name"`

	// Upstream is the application server base URL for out-of-process
	// rendering.
	Upstream string `mapstructure:"upstream"`

	// RenderTimeout bounds a single upstream render (Go duration string).
	RenderTimeout string `mapstructure:"render_timeout"`

	// Include and Exclude are doublestar URL patterns deciding which
	// paths the middleware captures. Paths given to the CLI explicitly
	// are published regardless.
	Include []string `mapstructure:"include"`
	Exclude []string `mapstructure:"exclude"`

	Manifest ManifestConfig `mapstructure:"manifest"`
	Logging  LoggingConfig  `mapstructure:"logging"`
	Daemon   DaemonConfig   `mapstructure:"daemon"`
}

// Load loads configuration from file and environment variables.
// Config file locations (in order of precedence):
//   - $XDG_CONFIG_HOME/staticgen/config.yaml
//   - $HOME/.config/staticgen/config.yaml
//
// Environment variables are prefixed with STATICGEN_
// (e.g. STATICGEN_WEB_ROOT).
func Load() (*Config, error) {
	return load("")
}

// LoadFile loads configuration from an explicit file instead of the
// search paths. Unlike Load, a missing file is an error.
func LoadFile(path string) (*Config, error) {
	return load(path)
}

func load(file string) (*Config, error) {
	v := viper.New()

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("failed to get user home directory: %w", err)
	}

	if file != "" {
		v.SetConfigFile(file)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")

		if xdgConfigHome := os.Getenv("XDG_CONFIG_HOME"); xdgConfigHome != "" {
			v.AddConfigPath(filepath.Join(xdgConfigHome, "staticgen"))
		}
		v.AddConfigPath(filepath.Join(homeDir, ".config", "staticgen"))
	}

	v.SetEnvPrefix("STATICGEN")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("web_root", "")
	v.SetDefault("server_name", "")
	v.SetDefault("upstream", DefaultUpstream)
	v.SetDefault("render_timeout", DefaultRenderTimeout)
	v.SetDefault("include", DefaultInclude)
	v.SetDefault("exclude", []string{})

	v.SetDefault("manifest.enabled", true)
	v.SetDefault("manifest.path", "") // Empty means DefaultManifestPath

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.path", "") // Empty means use DefaultLogPath
	v.SetDefault("logging.rotation.max_size", "10MB")
	v.SetDefault("logging.rotation.max_age", 30)
	v.SetDefault("logging.rotation.max_backups", 5)
	v.SetDefault("logging.rotation.daily", true)
	v.SetDefault("logging.components", map[string]string{
		"publish":    "info",
		"daemon":     "info",
		"watcher":    "warn",
		"manifest":   "info",
		"middleware": "warn",
	})

	v.SetDefault("daemon.auto_start", true)
	v.SetDefault("daemon.socket_path", "") // Empty means use default XDG path
	v.SetDefault("daemon.pid_path", "")
	v.SetDefault("daemon.spool_path", "")

	if err := v.ReadInConfig(); err != nil {
		if file != "" {
			// An explicitly named file must exist and parse.
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// No config file is fine; defaults plus environment apply.
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	for _, p := range []*string{&cfg.WebRoot, &cfg.Manifest.Path, &cfg.Logging.Path} {
		if strings.HasPrefix(*p, "~") {
			*p = filepath.Join(homeDir, (*p)[1:])
		}
	}

	return &cfg, nil
}

// Validate checks the configuration eagerly, before any page is processed.
func (c *Config) Validate() error {
	if c.WebRoot == "" {
		return ErrWebRootRequired
	}
	if !filepath.IsAbs(c.WebRoot) {
		return fmt.Errorf("%w: web_root %q must be an absolute path", ErrInvalidConfig, c.WebRoot)
	}

	if c.Upstream != "" {
		parsed, err := url.Parse(c.Upstream)
		if err != nil || parsed.Scheme == "" || parsed.Host == "" {
			return fmt.Errorf("%w: upstream %q must be an absolute URL", ErrInvalidConfig, c.Upstream)
		}
	}

	if c.RenderTimeout != "" {
		if _, err := time.ParseDuration(c.RenderTimeout); err != nil {
			return fmt.Errorf("%w: render_timeout %q: %v", ErrInvalidConfig, c.RenderTimeout, err)
		}
	}

	for _, pattern := range c.Include {
		if !doublestar.ValidatePattern(pattern) {
			return fmt.Errorf("%w: include pattern %q", ErrInvalidConfig, pattern)
		}
	}
	for _, pattern := range c.Exclude {
		if !doublestar.ValidatePattern(pattern) {
			return fmt.Errorf("%w: exclude pattern %q", ErrInvalidConfig, pattern)
		}
	}

	return nil
}

// EffectiveServerName resolves the server name fallback chain:
// configuration, then the machine hostname, then FallbackServerName.
// Only the final fallback warrants a warning.
func (c *Config) EffectiveServerName() string {
	if c.ServerName != "" {
		return c.ServerName
	}
	if host, err := os.Hostname(); err == nil && host != "" {
		return host
	}
	logging.Get("config").Warn("server name not configured and hostname unavailable",
		"fallback", FallbackServerName)
	return FallbackServerName
}

// EffectiveRenderTimeout parses RenderTimeout, falling back to the default
// when unset or unparseable. Validate reports the malformed value; here it
// must not take the publisher down.
func (c *Config) EffectiveRenderTimeout() time.Duration {
	if c.RenderTimeout != "" {
		if d, err := time.ParseDuration(c.RenderTimeout); err == nil {
			return d
		}
	}
	d, _ := time.ParseDuration(DefaultRenderTimeout)
	return d
}

// ConfigDir returns the configuration directory path.
func ConfigDir() (string, error) {
	if xdgConfigHome := os.Getenv("XDG_CONFIG_HOME"); xdgConfigHome != "" {
		return filepath.Join(xdgConfigHome, "staticgen"), nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}
	return filepath.Join(homeDir, ".config", "staticgen"), nil
}

// EnsureConfigDir creates the config directory if it doesn't exist.
func EnsureConfigDir() error {
	dir, err := ConfigDir()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	return nil
}

// WriteDefault writes a default config file if none exists.
// Returns nil if a config file already exists.
func WriteDefault() error {
	if err := EnsureConfigDir(); err != nil {
		return err
	}

	configDir, err := ConfigDir()
	if err != nil {
		return err
	}
	configPath := filepath.Join(configDir, "config.yaml")

	if _, err := os.Stat(configPath); err == nil {
		return nil
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("failed to check config file: %w", err)
	}

	defaultConfig := fmt.Sprintf(`# staticgen configuration

# Directory static files are published under (required).
web_root: ""

# Host name sent to the renderer. Empty falls back to the machine
# hostname, then "localhost".
server_name: ""

# Application server pages are rendered against when publishing from the
# CLI or daemon.
upstream: %s

# Timeout for a single upstream render.
render_timeout: %s

# URL patterns (doublestar globs) deciding what gets captured.
include:
  - "/**"
exclude: []

# Index of published pages, used by list/regen/status.
manifest:
  enabled: true
  # Empty means use default: $XDG_DATA_HOME/staticgen/manifest.db
  path: ""

# Logging configuration
logging:
  # Log level: debug, info, warn, error
  level: info
  # Log file path (empty means use default: $XDG_STATE_HOME/staticgen/staticgen.log)
  path: ""
  # Log rotation settings
  rotation:
    max_size: 10MB
    max_age: 30       # days
    max_backups: 5
    daily: true
  # Per-component log levels
  components:
    publish: info
    daemon: info
    watcher: warn
    manifest: info
    middleware: warn

# Daemon configuration
daemon:
  # Automatically start staticgend when queueing work
  auto_start: true
  # Unix socket path (empty means use default: $XDG_DATA_HOME/staticgen/staticgend.sock)
  socket_path: ""
  # PID file path (empty means use default: $XDG_DATA_HOME/staticgen/staticgend.pid)
  pid_path: ""
  # Spool directory (empty means use default: $XDG_DATA_HOME/staticgen/spool)
  spool_path: ""
`, DefaultUpstream, DefaultRenderTimeout)

	if err := os.WriteFile(configPath, []byte(defaultConfig), 0o644); err != nil {
		return fmt.Errorf("failed to write default config: %w", err)
	}
	return nil
}

// ExpandPath expands ~ in a path to the user's home directory.
func ExpandPath(path string) (string, error) {
	if !strings.HasPrefix(path, "~") {
		return path, nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}
	return filepath.Join(homeDir, path[1:]), nil
}

// DataDir returns $XDG_DATA_HOME/staticgen/ for the manifest database,
// daemon socket, PID file, and spool.
func DataDir() string {
	return filepath.Join(xdg.DataHome, "staticgen")
}

// StateDir returns $XDG_STATE_HOME/staticgen/ for log files.
func StateDir() string {
	return filepath.Join(xdg.StateHome, "staticgen")
}

// DefaultSocketPath returns the default Unix socket path.
func DefaultSocketPath() string {
	return filepath.Join(DataDir(), "staticgend.sock")
}

// DefaultPIDPath returns the default PID file path.
func DefaultPIDPath() string {
	return filepath.Join(DataDir(), "staticgend.pid")
}

// DefaultSpoolPath returns the default spool directory.
func DefaultSpoolPath() string {
	return filepath.Join(DataDir(), "spool")
}

// DefaultManifestPath returns the default manifest database path.
func DefaultManifestPath() string {
	return filepath.Join(DataDir(), "manifest.db")
}

// DefaultLogPath returns the default log file path.
func DefaultLogPath() string {
	return filepath.Join(StateDir(), "staticgen.log")
}

// DefaultBinaryPath returns the staticgend binary from the standard Go
// install locations (GOBIN, then GOPATH/bin, then $HOME/go/bin), or ""
// when none of them has it.
func DefaultBinaryPath() string {
	var dirs []string
	if gobin := os.Getenv("GOBIN"); gobin != "" {
		dirs = append(dirs, gobin)
	}
	if gopath := os.Getenv("GOPATH"); gopath != "" {
		dirs = append(dirs, filepath.Join(gopath, "bin"))
	}
	if home, err := os.UserHomeDir(); err == nil {
		dirs = append(dirs, filepath.Join(home, "go", "bin"))
	}

	for _, dir := range dirs {
		candidate := filepath.Join(dir, "staticgend")
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
	}
	return ""
}

// EnsureDataDir creates the data directory if it doesn't exist.
func EnsureDataDir() error {
	if err := os.MkdirAll(DataDir(), 0o755); err != nil {
		return fmt.Errorf("creating data directory: %w", err)
	}
	return nil
}

// EnsureStateDir creates the state directory if it doesn't exist.
func EnsureStateDir() error {
	if err := os.MkdirAll(StateDir(), 0o755); err != nil {
		return fmt.Errorf("creating state directory: %w", err)
	}
	return nil
}
