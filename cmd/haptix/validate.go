package main

import (
	"fmt"
	"os"

	"github.com/aretw0/haptix/internal/compiler"
	"github.com/aretw0/haptix/internal/presentation/graph"
	"github.com/aretw0/haptix/pkg/domain"
	"github.com/aretw0/haptix/pkg/presets"
	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate <file>...",
	Short: "Check graph definition files",
	Long: `Parses each YAML or JSON graph definition, checks it against the schema
and builds it, reporting dangling edges, unknown presets and bad actions.

With --mermaid, a flowchart of each valid graph is printed instead of "ok".`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		mermaid, _ := cmd.Flags().GetBool("mermaid")

		parser, err := compiler.NewParser()
		if err != nil {
			return err
		}

		failed := 0
		for _, path := range args {
			g, err := validateFile(parser, path)
			if err != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "%s: %v\n", path, err)
				failed++
				continue
			}
			if mermaid {
				fmt.Fprintf(cmd.OutOrStdout(), "%%%% %s\n%s", path, graph.GenerateMermaid(g, nil))
				continue
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: ok\n", path)
		}
		if failed > 0 {
			return fmt.Errorf("%d of %d graph(s) invalid", failed, len(args))
		}
		return nil
	},
}

func init() {
	validateCmd.Flags().Bool("mermaid", false, "Print a Mermaid flowchart of each valid graph")
	rootCmd.AddCommand(validateCmd)
}

func validateFile(parser *compiler.Parser, path string) (*domain.Graph, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return parser.ParseGraph(data, domain.WithPresets(presets.NewCatalog()))
}
