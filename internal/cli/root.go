// Package cli provides the command-line interface for msgcheck.
package cli

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/shapestone/shape-message/internal/config"
	"github.com/shapestone/shape-message/pkg/message"
)

var cfgFile string
var logLevel string
var cfg *config.Config

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "msgcheck",
	Short: "Validate and normalize HTTP message fixtures",
	Long: `msgcheck builds HTTP messages from YAML or JSON fixtures and prints
the normalized snapshot, or the reason a fixture was rejected.

A fixture is a document with a "type" of request, server_request or
response, plus the fields of that message.

Examples:
  # Check a request fixture
  msgcheck check request.yaml

  # Drop invalid headers instead of failing
  msgcheck check --tolerant fixtures/*.yaml

  # Read a fixture from stdin and print JSON
  cat response.json | msgcheck check --format json -

  # Print the resolved configuration
  msgcheck config`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(configCmd)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.config/msgcheck/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	var err error
	if cfgFile != "" {
		cfg, err = config.LoadFromFile(cfgFile)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "msgcheck: %v; using defaults\n", err)
		cfg = config.DefaultConfig()
	}
	if logLevel != "" {
		cfg.Logging.Level = logLevel
	}
	setupLogger(cfg)
}

// setupLogger routes the message package's diagnostics to stderr.
func setupLogger(c *config.Config) {
	lvl, err := c.LogLevel()
	if err != nil {
		lvl = zerolog.WarnLevel
	}
	l := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).Level(lvl).With().Timestamp().Logger()
	message.SetLogger(l)
}

// GetConfig returns the loaded configuration
func GetConfig() *config.Config {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	return cfg
}
