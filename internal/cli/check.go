package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/shapestone/shape-core/pkg/ast"
	"github.com/spf13/cobra"
	"go.yaml.in/yaml/v3"

	"github.com/shapestone/shape-message/internal/config"
	"github.com/shapestone/shape-message/internal/parser"
	"github.com/shapestone/shape-message/pkg/message"
)

var checkCmd = &cobra.Command{
	Use:   "check [file...]",
	Short: "Build messages from fixtures and print their snapshots",
	Long: `Check builds each fixture through the validating message constructors.
Valid fixtures are printed in normalized form. Invalid fixtures are
reported on stderr and make the command exit non-zero.

Use "-" to read a fixture from stdin. Fixtures may be YAML or JSON.

Examples:
  # Check a single fixture
  msgcheck check request.yaml

  # Drop invalid headers instead of failing
  msgcheck check --tolerant response.yaml

  # Print snapshots as JSON
  msgcheck check --format json fixtures/*.yaml`,
	Args: cobra.MinimumNArgs(1),
	RunE: runCheck,
}

func init() {
	checkCmd.Flags().StringP("format", "f", "", "output format (yaml, json); defaults to output.format")
	checkCmd.Flags().Bool("tolerant", false, "drop invalid headers instead of rejecting the fixture")
}

func runCheck(cmd *cobra.Command, args []string) error {
	c := *GetConfig()
	if format, _ := cmd.Flags().GetString("format"); format != "" {
		c.Output.Format = format
	}
	if tolerant, _ := cmd.Flags().GetBool("tolerant"); tolerant {
		c.Headers.Mode = config.HeadersTolerant
	}
	if err := c.Validate(); err != nil {
		return err
	}

	failed := 0
	for _, name := range args {
		out, err := checkFixture(cmd, name, &c)
		if err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "%s: %v\n", name, err)
			failed++
			continue
		}
		if len(args) > 1 {
			fmt.Fprintf(cmd.OutOrStdout(), "# %s\n", name)
		}
		fmt.Fprint(cmd.OutOrStdout(), string(out))
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d fixtures invalid", failed, len(args))
	}
	return nil
}

// checkFixture reads one fixture, builds the message and renders its snapshot.
func checkFixture(cmd *cobra.Command, name string, c *config.Config) ([]byte, error) {
	data, err := readFixture(cmd, name)
	if err != nil {
		return nil, err
	}

	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to decode fixture: %w", err)
	}
	if _, ok := doc.(map[string]any); !ok {
		return nil, errors.New("fixture must be a mapping")
	}

	opts := []message.ConvertOption{message.DefaultVersion(c.Message.ProtocolVersion)}
	if c.Headers.Mode == config.HeadersTolerant {
		opts = append(opts, message.TolerantHeaders())
	}

	msg, err := message.NodeToMessage(parser.InterfaceToNode(doc), opts...)
	if err != nil {
		return nil, err
	}
	return render(snapshot(msg), c.Output.Format)
}

func readFixture(cmd *cobra.Command, name string) ([]byte, error) {
	if name == "-" {
		return io.ReadAll(cmd.InOrStdin())
	}
	return os.ReadFile(name)
}

func snapshot(msg message.Message) ast.SchemaNode {
	switch m := msg.(type) {
	case *message.ServerRequest:
		return message.ServerRequestToNode(m)
	case *message.Request:
		return message.RequestToNode(m)
	case *message.Response:
		return message.ResponseToNode(m)
	}
	return nil
}

func render(node ast.SchemaNode, format string) ([]byte, error) {
	v := message.NodeToInterface(node)
	if format == config.FormatJSON {
		out, err := json.MarshalIndent(v, "", "  ")
		if err != nil {
			return nil, err
		}
		return append(out, '\n'), nil
	}
	return yaml.Marshal(v)
}
