package main

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/jamesainslie/staticgen/pkg/staticgen/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
	Long: `Manage staticgen configuration settings.

Configuration is loaded from:
  1. The file named by --config (if set)
  2. $XDG_CONFIG_HOME/staticgen/config.yaml (if set)
  3. ~/.config/staticgen/config.yaml

Environment variables can override config file settings using the
STATICGEN_ prefix:
  STATICGEN_WEB_ROOT=/var/www/html
  STATICGEN_UPSTREAM=http://127.0.0.1:8000
  STATICGEN_MANIFEST_ENABLED=false`,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	Long:  `Display the current configuration settings from all sources.`,
	RunE:  runConfigShow,
}

var configEditCmd = &cobra.Command{
	Use:   "edit",
	Short: "Edit configuration file",
	Long: `Open the configuration file in your default editor.

The editor is determined by:
  1. $VISUAL environment variable
  2. $EDITOR environment variable
  3. Falls back to 'vi'

If the config file doesn't exist, a default one will be created first.`,
	RunE: runConfigEdit,
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Create default configuration file",
	Long:  `Create a default configuration file if one doesn't exist.`,
	RunE:  runConfigInit,
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Show configuration file path",
	Long:  `Display the path to the configuration file.`,
	RunE:  runConfigPath,
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configEditCmd)
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configPathCmd)
	rootCmd.AddCommand(configCmd)
}

// runConfigShow displays the current configuration.
func runConfigShow(cmd *cobra.Command, args []string) error {
	var cfg *config.Config
	var err error
	if cfgFile != "" {
		cfg, err = config.LoadFile(cfgFile)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		printError("Failed to load configuration: %v", err)
		// Show defaults anyway
		cfg = &config.Config{
			Upstream:      config.DefaultUpstream,
			RenderTimeout: config.DefaultRenderTimeout,
			Include:       config.DefaultInclude,
		}
		cfg.Manifest.Enabled = true
		cfg.Logging.Level = "info"
		cfg.Daemon.AutoStart = true
	}

	// Show config file being used
	if path := configFilePath(); path != "" {
		fmt.Printf("Config file: %s\n\n", path)
	} else {
		fmt.Println("Config file: (using defaults, no file found)")
		fmt.Println()
	}

	orDefault := func(value, def string) string {
		if value != "" {
			return value
		}
		return def
	}

	// Display configuration
	fmt.Println("Current Configuration:")
	fmt.Println("----------------------")
	fmt.Printf("web_root:            %s\n", cfg.WebRoot)
	fmt.Printf("upstream:            %s\n", cfg.Upstream)
	fmt.Printf("server_name:         %s\n", cfg.EffectiveServerName())
	fmt.Printf("render_timeout:      %s\n", cfg.EffectiveRenderTimeout())
	fmt.Printf("include:             %v\n", cfg.Include)
	fmt.Printf("exclude:             %v\n", cfg.Exclude)
	fmt.Printf("manifest.enabled:    %t\n", cfg.Manifest.Enabled)
	fmt.Printf("manifest.path:       %s\n", orDefault(cfg.Manifest.Path, config.DefaultManifestPath()))
	fmt.Printf("logging.level:       %s\n", cfg.Logging.Level)
	fmt.Printf("logging.path:        %s\n", orDefault(cfg.Logging.Path, config.DefaultLogPath()))
	fmt.Printf("daemon.auto_start:   %t\n", cfg.Daemon.AutoStart)
	fmt.Printf("daemon.socket_path:  %s\n", orDefault(cfg.Daemon.SocketPath, config.DefaultSocketPath()))
	fmt.Printf("daemon.spool_path:   %s\n", orDefault(cfg.Daemon.SpoolPath, config.DefaultSpoolPath()))

	// Show any environment overrides
	fmt.Println("\nEnvironment Overrides:")
	fmt.Println("----------------------")
	envVars := []string{
		"STATICGEN_WEB_ROOT",
		"STATICGEN_UPSTREAM",
		"STATICGEN_SERVER_NAME",
		"STATICGEN_RENDER_TIMEOUT",
		"STATICGEN_MANIFEST_ENABLED",
		"STATICGEN_MANIFEST_PATH",
		"STATICGEN_LOGGING_LEVEL",
		"STATICGEN_DAEMON_AUTO_START",
	}

	anyOverrides := false
	for _, name := range envVars {
		if val := os.Getenv(name); val != "" {
			fmt.Printf("%s=%s\n", name, val)
			anyOverrides = true
		}
	}
	if !anyOverrides {
		fmt.Println("(none)")
	}

	return nil
}

// configFilePath resolves the config file in effect: the --config flag,
// or the file in the config directory when it exists.
func configFilePath() string {
	if cfgFile != "" {
		return cfgFile
	}
	configDir, err := config.ConfigDir()
	if err != nil {
		return ""
	}
	path := filepath.Join(configDir, "config.yaml")
	if _, err := os.Stat(path); err != nil {
		return ""
	}
	return path
}

// runConfigEdit opens the config file in an editor.
func runConfigEdit(cmd *cobra.Command, args []string) error {
	// Ensure config file exists
	if err := config.WriteDefault(); err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}

	configDir, err := config.ConfigDir()
	if err != nil {
		return fmt.Errorf("failed to get config directory: %w", err)
	}
	configPath := filepath.Join(configDir, "config.yaml")

	// Determine editor
	editor := os.Getenv("VISUAL")
	if editor == "" {
		editor = os.Getenv("EDITOR")
	}
	if editor == "" {
		editor = "vi"
	}

	printVerbose("Opening %s with %s", configPath, editor)

	editorCmd := exec.Command(editor, configPath)
	editorCmd.Stdin = os.Stdin
	editorCmd.Stdout = os.Stdout
	editorCmd.Stderr = os.Stderr

	if err := editorCmd.Run(); err != nil {
		return fmt.Errorf("editor command failed: %w", err)
	}

	return nil
}

// runConfigInit creates a default config file.
func runConfigInit(cmd *cobra.Command, args []string) error {
	configDir, err := config.ConfigDir()
	if err != nil {
		return fmt.Errorf("failed to get config directory: %w", err)
	}
	configPath := filepath.Join(configDir, "config.yaml")

	// Check if config already exists
	if _, err := os.Stat(configPath); err == nil {
		printInfo("Config file already exists: %s", configPath)
		printInfo("Use 'staticgen config edit' to modify it.")
		return nil
	}

	if err := config.WriteDefault(); err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}

	printInfo("Created default config file: %s", configPath)
	return nil
}

// runConfigPath shows the config file path.
func runConfigPath(cmd *cobra.Command, args []string) error {
	configDir, err := config.ConfigDir()
	if err != nil {
		return fmt.Errorf("failed to get config directory: %w", err)
	}
	configPath := filepath.Join(configDir, "config.yaml")

	fmt.Println(configPath)

	// Show if file exists
	if _, err := os.Stat(configPath); err == nil {
		printVerbose("File exists")
	} else if os.IsNotExist(err) {
		printVerbose("File does not exist (will use defaults)")
	}

	return nil
}
