// Package config provides configuration management for msgcheck.
// It uses Viper for loading configuration from files and environment
// variables with sensible defaults.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/viper"

	"github.com/shapestone/shape-message/internal/grammar"
)

// Header modes.
const (
	HeadersStrict   = "strict"
	HeadersTolerant = "tolerant"
)

// Output formats.
const (
	FormatYAML = "yaml"
	FormatJSON = "json"
)

// Config holds all configuration for msgcheck.
type Config struct {
	Headers HeadersConfig `mapstructure:"headers" yaml:"headers" json:"headers"`
	Message MessageConfig `mapstructure:"message" yaml:"message" json:"message"`
	Output  OutputConfig  `mapstructure:"output" yaml:"output" json:"output"`
	Logging LoggingConfig `mapstructure:"logging" yaml:"logging" json:"logging"`
}

// HeadersConfig controls how fixture headers are validated.
type HeadersConfig struct {
	// strict: invalid headers fail the fixture; tolerant: they are dropped
	Mode string `mapstructure:"mode" yaml:"mode" json:"mode"`
}

// MessageConfig holds message construction defaults.
type MessageConfig struct {
	// Protocol version for fixtures that do not set one
	ProtocolVersion string `mapstructure:"protocol_version" yaml:"protocol_version" json:"protocol_version"`
}

// OutputConfig holds configuration for snapshot output.
type OutputConfig struct {
	// Snapshot format: yaml, json
	Format string `mapstructure:"format" yaml:"format" json:"format"`
}

// LoggingConfig holds configuration for logging.
type LoggingConfig struct {
	// Log level: debug, info, warn, error
	Level string `mapstructure:"level" yaml:"level" json:"level"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Headers: HeadersConfig{Mode: HeadersStrict},
		Message: MessageConfig{ProtocolVersion: "1.1"},
		Output:  OutputConfig{Format: FormatYAML},
		Logging: LoggingConfig{Level: "warn"},
	}
}

// DefaultConfigPath returns the user config file, the target of "config --init".
func DefaultConfigPath() string {
	homeDir, _ := os.UserHomeDir()
	return filepath.Join(homeDir, ".config", "msgcheck", "config.yaml")
}

// SearchPaths lists the directories Load looks in, in order.
func SearchPaths() []string {
	homeDir, _ := os.UserHomeDir()
	return []string{filepath.Join(homeDir, ".config", "msgcheck"), "."}
}

// Resolve returns the file a run with the --config value explicit would read:
// explicit itself when set, else the first config.yaml on SearchPaths, else "".
func Resolve(explicit string) string {
	if explicit != "" {
		return explicit
	}
	for _, dir := range SearchPaths() {
		p := filepath.Join(dir, "config.yaml")
		if fi, err := os.Stat(p); err == nil && !fi.IsDir() {
			return p
		}
	}
	return ""
}

// Load loads configuration from the search paths and environment variables.
// A missing config file is not an error.
func Load() (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")

	for _, dir := range SearchPaths() {
		v.AddConfigPath(dir)
	}

	bindEnv(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}
	return unmarshal(v)
}

// LoadFromFile loads configuration from a specific file.
func LoadFromFile(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.SetConfigFile(path)
	bindEnv(v)

	if err := v.ReadInConfig(); err != nil {
		return nil, err
	}
	return unmarshal(v)
}

func unmarshal(v *viper.Viper) (*Config, error) {
	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	d := DefaultConfig()
	v.SetDefault("headers.mode", d.Headers.Mode)
	v.SetDefault("message.protocol_version", d.Message.ProtocolVersion)
	v.SetDefault("output.format", d.Output.Format)
	v.SetDefault("logging.level", d.Logging.Level)
}

// bindEnv maps MSGCHECK_HEADERS_MODE and friends onto the nested keys.
func bindEnv(v *viper.Viper) {
	v.SetEnvPrefix("MSGCHECK")
	for _, key := range []string{"headers.mode", "message.protocol_version", "output.format", "logging.level"} {
		_ = v.BindEnv(key)
	}
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
}

// Validate checks every field for an allowed value.
func (c *Config) Validate() error {
	switch c.Headers.Mode {
	case HeadersStrict, HeadersTolerant:
	default:
		return fmt.Errorf("config: headers.mode must be %q or %q, got %q", HeadersStrict, HeadersTolerant, c.Headers.Mode)
	}
	if !grammar.IsProtocolVersion(c.Message.ProtocolVersion) {
		return fmt.Errorf("config: invalid message.protocol_version %q", c.Message.ProtocolVersion)
	}
	switch c.Output.Format {
	case FormatYAML, FormatJSON:
	default:
		return fmt.Errorf("config: output.format must be %q or %q, got %q", FormatYAML, FormatJSON, c.Output.Format)
	}
	if _, err := c.LogLevel(); err != nil {
		return err
	}
	return nil
}

// LogLevel parses Logging.Level.
func (c *Config) LogLevel() (zerolog.Level, error) {
	lvl, err := zerolog.ParseLevel(c.Logging.Level)
	if err != nil {
		return zerolog.NoLevel, fmt.Errorf("config: invalid logging.level %q", c.Logging.Level)
	}
	return lvl, nil
}
