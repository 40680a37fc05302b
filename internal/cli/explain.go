package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/onisimchukv/ksql/internal/sql/function"
	"github.com/onisimchukv/ksql/internal/sql/planner"
)

// ExplainResult is the JSON form of a planned query.
type ExplainResult struct {
	QueryID    string         `json:"query_id"`
	OutputType string         `json:"output_type"`
	Sink       string         `json:"sink,omitempty"`
	Columns    []ColumnResult `json:"columns"`
	Plan       string         `json:"plan"`
}

// ColumnResult describes one output column.
type ColumnResult struct {
	Name      string `json:"name"`
	Type      string `json:"type"`
	Namespace string `json:"namespace,omitempty"`
}

// NewExplainCommand creates the explain command.
func NewExplainCommand(rootOpts *RootOptions) *cobra.Command {
	var schemas bool

	cmd := &cobra.Command{
		Use:   "explain <plan-document>",
		Short: "Build and print the logical plan of an analyzed query",
		Long: `Build the logical plan of a query described by a JSON plan document and
print it as a tree. Use "-" to read the document from stdin.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := readInput(cmd, args[0])
			if err != nil {
				return WrapExitError(ExitCommandError, "failed to read plan document", err)
			}
			analysis, err := LoadAnalysis(data, rootOpts.parser)
			if err != nil {
				return WrapExitError(ExitFailure, "invalid plan document", err)
			}

			p := planner.NewLogicalPlanner(function.NewRegistry(), rootOpts.logger)
			plan, err := p.BuildPlan(analysis)
			if err != nil {
				return WrapExitError(ExitFailure, "cannot plan query", err)
			}

			tree := planner.ExplainPlan(plan)
			if schemas {
				tree = planner.ExplainPlanVerbose(plan)
			}
			result := ExplainResult{
				QueryID:    plan.QueryID,
				OutputType: plan.NodeOutputType().String(),
				Sink:       string(plan.Sink),
				Plan:       tree,
			}
			for _, c := range plan.Schema().Columns() {
				result.Columns = append(result.Columns, ColumnResult{
					Name:      string(c.Name),
					Type:      c.Type.String(),
					Namespace: c.Namespace.String(),
				})
			}

			text := fmt.Sprintf("Query: %s (%s)\n%s", result.QueryID, result.OutputType, tree)
			return rootOpts.formatter(cmd).Write(text, result)
		},
	}

	cmd.Flags().BoolVarP(&schemas, "schemas", "s", false, "show the output type and schema of every node")
	return cmd
}

// readInput reads a file, or stdin for "-".
func readInput(cmd *cobra.Command, path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(cmd.InOrStdin())
	}
	return os.ReadFile(path)
}
