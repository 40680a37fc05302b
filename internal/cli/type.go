package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/onisimchukv/ksql/internal/client"
)

// TypeResult is the JSON form of a parsed type.
type TypeResult struct {
	Input     string `json:"input"`
	Canonical string `json:"canonical"`
	Base      string `json:"base"`
}

// ValidateResult is the JSON form of a value check.
type ValidateResult struct {
	Type  string `json:"type"`
	Valid bool   `json:"valid"`
	Error string `json:"error,omitempty"`
}

// NewTypeCommand creates the type command group.
func NewTypeCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "type",
		Short: "Parse SQL types and check values against them",
	}
	cmd.AddCommand(newTypeParseCommand(rootOpts))
	cmd.AddCommand(newTypeValidateCommand(rootOpts))
	return cmd
}

func newTypeParseCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "parse <type>...",
		Short: "Print the canonical form of each type",
		Example: `  ksqlplan type parse 'array<decimal(4,2)>'
  ksqlplan type parse --format json 'STRUCT<A INT, B VARCHAR>'`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			results := make([]TypeResult, 0, len(args))
			var text strings.Builder
			for _, arg := range args {
				t, err := rootOpts.parser.Parse(arg)
				if err != nil {
					return WrapExitError(ExitFailure, fmt.Sprintf("cannot parse %q", arg), err)
				}
				results = append(results, TypeResult{Input: arg, Canonical: t.String(), Base: t.BaseType().String()})
				fmt.Fprintln(&text, t.String())
			}
			rootOpts.logger.Debug("types parsed", "count", len(results), "cached", rootOpts.parser.Cached())
			return rootOpts.formatter(cmd).Write(text.String(), results)
		},
	}
}

func newTypeValidateCommand(rootOpts *RootOptions) *cobra.Command {
	var strict bool

	cmd := &cobra.Command{
		Use:   "validate <type> <json-value>",
		Short: "Check a JSON value against a type",
		Example: `  ksqlplan type validate 'DECIMAL(4, 2)' 12.5
  ksqlplan type validate --strict 'STRUCT<A INT>' '{"A": 1, "B": 2}'`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := rootOpts.parser.Parse(args[0])
			if err != nil {
				return WrapExitError(ExitFailure, fmt.Sprintf("cannot parse %q", args[0]), err)
			}
			if !cmd.Flags().Changed("strict") {
				strict = rootOpts.config.Planner.StrictStructValidation
			}

			result := ValidateResult{Type: t.String(), Valid: true}
			if _, err := client.DecodeValue(args[1], t, strict); err != nil {
				result.Valid = false
				result.Error = err.Error()
			}

			text := fmt.Sprintf("valid %s\n", t)
			if !result.Valid {
				text = fmt.Sprintf("invalid %s: %s\n", t, result.Error)
			}
			if err := rootOpts.formatter(cmd).Write(text, result); err != nil {
				return err
			}
			if !result.Valid {
				return NewExitError(ExitFailure, "value does not conform to its type")
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&strict, "strict", false, "reject STRUCT fields the type does not declare (default from configuration)")
	return cmd
}
