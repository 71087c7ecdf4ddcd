package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.yaml.in/yaml/v3"

	"github.com/shapestone/shape-message/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show the configuration msgcheck runs with",
	Long: `Config prints the settings that check applies: header mode, default
protocol version, snapshot format and log level, after the config file and
MSGCHECK_* environment variables have been merged over the defaults.

Examples:
  # Print the effective settings
  msgcheck config

  # Show which config file is in effect
  msgcheck config --path

  # Write an annotated default config to ~/.config/msgcheck/config.yaml
  msgcheck config --init

  # Print the annotated defaults instead of writing them
  msgcheck config --init=-`,
	Args: cobra.NoArgs,
	RunE: runConfig,
}

// configNotes annotates the top-level keys of a generated config file.
var configNotes = map[string]string{
	"headers": "mode: strict rejects a fixture with an invalid header, tolerant drops the header",
	"message": "protocol_version applies to fixtures that do not set one",
	"output":  "format: yaml or json",
	"logging": "level: debug, info, warn or error",
}

func init() {
	configCmd.Flags().Bool("path", false, "print the config file in effect")
	configCmd.Flags().String("init", "", "write annotated defaults to `FILE` (\"-\" for stdout)")
	configCmd.Flags().Lookup("init").NoOptDefVal = config.DefaultConfigPath()
	configCmd.Flags().Bool("force", false, "overwrite an existing file with --init")
}

func runConfig(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()

	if showPath, _ := cmd.Flags().GetBool("path"); showPath {
		source := config.Resolve(cfgFile)
		if source == "" {
			source = "(defaults)"
		}
		fmt.Fprintln(out, source)
		return nil
	}

	if target, _ := cmd.Flags().GetString("init"); target != "" {
		force, _ := cmd.Flags().GetBool("force")
		return initConfigFile(out, target, force)
	}

	return printConfig(out, GetConfig())
}

// printConfig renders c in the configured snapshot format so that config and
// check output look alike.
func printConfig(w io.Writer, c *config.Config) error {
	if c.Output.Format == config.FormatJSON {
		data, err := json.MarshalIndent(c, "", "  ")
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(w, string(data))
		return err
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}

func initConfigFile(out io.Writer, target string, force bool) error {
	data, err := annotatedDefaults()
	if err != nil {
		return err
	}
	if target == "-" {
		_, err := out.Write(data)
		return err
	}

	if !force {
		_, err := os.Stat(target)
		switch {
		case err == nil:
			return fmt.Errorf("%s exists; pass --force to replace it", target)
		case !errors.Is(err, os.ErrNotExist):
			return err
		}
	}
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return err
	}
	if err := os.WriteFile(target, data, 0o644); err != nil {
		return err
	}
	fmt.Fprintf(out, "default config written to %s\n", target)
	return nil
}

// annotatedDefaults encodes the default config with a comment above each
// section.
func annotatedDefaults() ([]byte, error) {
	var doc yaml.Node
	if err := doc.Encode(config.DefaultConfig()); err != nil {
		return nil, err
	}
	for i := 0; i+1 < len(doc.Content); i += 2 {
		key := doc.Content[i]
		key.HeadComment = configNotes[key.Value]
	}
	return yaml.Marshal(&doc)
}
