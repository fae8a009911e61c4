package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/jamesainslie/staticgen/pkg/client"
	"github.com/jamesainslie/staticgen/pkg/staticgen/config"
)

var (
	cfgFile string
	rootCmd = &cobra.Command{
		Use:   "staticgen",
		Short: "Publish rendered pages as static files",
		Long: `Staticgen renders pages through an application server and publishes
them as static files under a web root, where the front-end web server
picks them up without touching the application again.

Pages are written atomically, so a path always serves either the old
rendering or the new one. Deleting or purging a path hands the traffic
back to the application server.

Examples:
  staticgen publish /blog/ /about/     # Render and publish two pages
  staticgen publish --ajax /feed/      # Publish the AJAX variant
  staticgen publish --queue /blog/     # Hand the job to staticgend
  staticgen delete "/blog/?page=2"     # Drop one published variant
  staticgen purge /blog/               # Drop a whole subtree
  staticgen list --prefix /blog/       # Show published pages
  staticgen status                     # Web root and daemon overview`,
	}
)

func init() {
	cobra.OnInitialize(initConfig)

	// Persistent flags (available to all commands)
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ~/.config/staticgen/config.yaml)")
	rootCmd.PersistentFlags().StringP("web-root", "r", "", "directory pages are published under")
	rootCmd.PersistentFlags().StringP("upstream", "u", "", "application server base URL")
	rootCmd.PersistentFlags().String("server-name", "", "Host header sent to the renderer")
	rootCmd.PersistentFlags().StringP("format", "o", "", "output format (pretty, plain, json, jsonl, yaml)")
	rootCmd.PersistentFlags().BoolP("quiet", "q", false, "minimal output")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "debug output")

	// Bind flags to viper
	_ = viper.BindPFlag("web_root", rootCmd.PersistentFlags().Lookup("web-root"))
	_ = viper.BindPFlag("upstream", rootCmd.PersistentFlags().Lookup("upstream"))
	_ = viper.BindPFlag("server_name", rootCmd.PersistentFlags().Lookup("server-name"))
	_ = viper.BindPFlag("format", rootCmd.PersistentFlags().Lookup("format"))
	_ = viper.BindPFlag("quiet", rootCmd.PersistentFlags().Lookup("quiet"))
	_ = viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))
}

// initConfig wires environment variables into the flag-level viper. The
// full configuration file is handled by the config package; this viper
// instance only carries flag and environment overrides.
func initConfig() {
	// A .env file in the working directory supplements the environment,
	// mainly for development setups.
	_ = godotenv.Load()

	viper.SetEnvPrefix("STATICGEN")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()

	viper.SetDefault("format", "pretty")
}

// loadConfig loads the effective configuration: the config file (or the
// one named by --config), environment variables, then flag overrides.
func loadConfig() (*config.Config, error) {
	var cfg *config.Config
	var err error
	if cfgFile != "" {
		cfg, err = config.LoadFile(cfgFile)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, err
	}

	if s := viper.GetString("web_root"); s != "" {
		cfg.WebRoot = s
	}
	if s := viper.GetString("upstream"); s != "" {
		cfg.Upstream = s
	}
	if s := viper.GetString("server_name"); s != "" {
		cfg.ServerName = s
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// daemonPaths collects the daemon file locations from the configuration.
// Empty fields fall back to the XDG defaults inside pkg/client.
func daemonPaths(cfg *config.Config) client.DaemonPaths {
	return client.DaemonPaths{
		Binary: cfg.Daemon.BinaryPath,
		Socket: cfg.Daemon.SocketPath,
		PID:    cfg.Daemon.PIDPath,
		Spool:  cfg.Daemon.SpoolPath,
	}
}

// daemonSocketPath resolves the daemon control socket location.
func daemonSocketPath(cfg *config.Config) string {
	if cfg.Daemon.SocketPath != "" {
		return cfg.Daemon.SocketPath
	}
	return config.DefaultSocketPath()
}

// daemonPIDPath resolves the daemon PID file location.
func daemonPIDPath(cfg *config.Config) string {
	if cfg.Daemon.PIDPath != "" {
		return cfg.Daemon.PIDPath
	}
	return config.DefaultPIDPath()
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// getVerbose returns true if verbose mode is enabled.
func getVerbose() bool {
	return viper.GetBool("verbose")
}

// getQuiet returns true if quiet mode is enabled.
func getQuiet() bool {
	return viper.GetBool("quiet")
}

// printVerbose prints a message if verbose mode is enabled.
func printVerbose(format string, args ...interface{}) {
	if getVerbose() && !getQuiet() {
		fmt.Fprintf(os.Stderr, "[DEBUG] "+format+"\n", args...)
	}
}

// printInfo prints a message if quiet mode is not enabled.
func printInfo(format string, args ...interface{}) {
	if !getQuiet() {
		fmt.Printf(format+"\n", args...)
	}
}

// printError prints an error message to stderr.
func printError(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
}
