package cli

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/cockroachdb/apd/v3"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/onisimchukv/ksql/internal/client"
)

// DecodeResult is the JSON form of a decoded query response.
type DecodeResult struct {
	QueryID string         `json:"query_id"`
	Columns []ColumnResult `json:"columns"`
	Rows    [][]any        `json:"rows"`
}

// NewDecodeCommand creates the decode command.
func NewDecodeCommand(rootOpts *RootOptions) *cobra.Command {
	var maxRows int

	cmd := &cobra.Command{
		Use:   "decode <response-file>",
		Short: "Decode a query response into typed rows",
		Long: `Decode a newline-delimited query response: a metadata object followed by
one JSON array per row. Use "-" to read the response from stdin.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := readInput(cmd, args[0])
			if err != nil {
				return WrapExitError(ExitCommandError, "failed to read query response", err)
			}

			opts := client.OptionsFromConfig(rootOpts.config)
			opts.Parser = rootOpts.parser
			opts.Logger = rootOpts.logger
			if cmd.Flags().Changed("max-rows") {
				opts.ExecuteQueryMaxResultRows = maxRows
			}

			result, err := client.DecodeBatch(bytes.NewReader(data), opts)
			if err != nil {
				return WrapExitError(ExitFailure, "cannot decode query response", err)
			}

			out := DecodeResult{QueryID: result.QueryID, Rows: make([][]any, 0, result.Len())}
			for i, name := range result.ColumnNames {
				out.Columns = append(out.Columns, ColumnResult{Name: name, Type: result.ColumnTypes[i].String()})
			}
			for _, row := range result.Rows {
				out.Rows = append(out.Rows, row.Values())
			}

			text, err := renderRows(result)
			if err != nil {
				return err
			}
			return rootOpts.formatter(cmd).Write(text, out)
		},
	}

	cmd.Flags().IntVar(&maxRows, "max-rows", client.DefaultMaxResultRows, "maximum number of rows to accept (default from configuration)")
	return cmd
}

func renderRows(result *client.BatchedQueryResult) (string, error) {
	var sb strings.Builder
	table := tablewriter.NewWriter(&sb)
	table.Header(result.ColumnNames)
	for _, row := range result.Rows {
		cells := make([]string, len(row.Values()))
		for i, v := range row.Values() {
			cells[i] = formatValue(v)
		}
		if err := table.Append(cells); err != nil {
			return "", err
		}
	}
	if err := table.Render(); err != nil {
		return "", err
	}
	fmt.Fprintf(&sb, "%d row(s), query %s\n", result.Len(), result.QueryID)
	return sb.String(), nil
}

func formatValue(v any) string {
	switch v := v.(type) {
	case nil:
		return "NULL"
	case *apd.Decimal:
		return v.String()
	case string:
		return v
	default:
		return fmt.Sprint(v)
	}
}
