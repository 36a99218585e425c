// Package cli implements presencectl, the operator CLI of the presence engine.
package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"presence-engine/internal/config"
)

// RootOptions holds global flags and the config loader shared by all commands.
type RootOptions struct {
	Format string // "json" | "text"
	// Load returns the configuration; config.Load unless replaced in tests.
	Load func() (*config.Config, error)
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the presencectl root command.
func NewRootCommand() *cobra.Command {
	return newRootCommand(&RootOptions{Load: config.Load})
}

func newRootCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "presencectl",
		Short: "Operate the presence & auto-checkout engine",
		Long: `presencectl runs one-shot maintenance against the presence engine: settle expired
countdowns, apply migrations, issue development tokens and probe server health.
Configuration is read from the environment and an optional .env file.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")

	cmd.AddCommand(newSweepCommand(opts))
	cmd.AddCommand(newMigrateCommand(opts))
	cmd.AddCommand(newTokenCommand(opts))
	cmd.AddCommand(newHealthCommand(opts))

	return cmd
}

func isValidFormat(format string) bool {
	for _, f := range ValidFormats {
		if f == format {
			return true
		}
	}
	return false
}
