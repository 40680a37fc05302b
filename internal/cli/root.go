package cli

import (
	"fmt"
	"slices"

	"github.com/spf13/cobra"

	"github.com/onisimchukv/ksql/internal/config"
	"github.com/onisimchukv/ksql/internal/log"
	"github.com/onisimchukv/ksql/internal/sql/types"
)

// RootOptions holds global flags for all commands and the state they set up.
type RootOptions struct {
	ConfigPath string
	Verbose    bool
	Format     string // "json" | "text"

	config *config.Config
	logger log.Logger
	parser *types.Parser
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the ksqlplan CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "ksqlplan",
		Short: "Inspect streaming SQL types and logical plans",
		Long: `Parse and validate SQL types, explain the logical plan of an analyzed
query and decode query responses into typed rows.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !slices.Contains(ValidFormats, opts.Format) {
				return NewExitError(ExitCommandError,
					fmt.Sprintf("invalid format %q: must be one of %v", opts.Format, ValidFormats))
			}
			return opts.setup(cmd)
		},
	}

	// Global flags
	cmd.PersistentFlags().StringVarP(&opts.ConfigPath, "config", "c", "", "configuration file (json, yaml or toml)")
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "log at debug level")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")

	cmd.AddCommand(NewTypeCommand(opts))
	cmd.AddCommand(NewExplainCommand(opts))
	cmd.AddCommand(NewDecodeCommand(opts))

	return cmd
}

// setup loads the configuration and builds the logger and type parser the
// subcommands share. Logs go to stderr so JSON output stays parseable.
func (o *RootOptions) setup(cmd *cobra.Command) error {
	cfg, err := config.Load(o.ConfigPath)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load configuration", err)
	}
	if o.Verbose {
		cfg.Log.Level = "debug"
	}
	cfg.Log.Output = cmd.ErrOrStderr()

	o.config = cfg
	o.logger = log.NewFromConfig(cfg.Log).With(log.String("command", cmd.Name()))
	o.parser = types.NewParser(cfg.Planner.TypeCacheTTL)
	o.logger.Debug("configuration loaded", "path", o.ConfigPath)
	return nil
}

func (o *RootOptions) formatter(cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{Format: o.Format, Writer: cmd.OutOrStdout()}
}
