package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"presence-engine/internal/db"
	"presence-engine/internal/db/migrate"
)

func newMigrateCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:       "migrate <up|down|version>",
		Short:     "Apply or inspect the Postgres schema migrations",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{"up", "down", "version"},
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.Load()
			if err != nil {
				return fmt.Errorf("config: %w", err)
			}
			if cfg.Dialect() != db.DialectPostgres {
				return fmt.Errorf("migrate: STORE_DRIVER is %s; the sqlite schema is applied on open", cfg.Dialect())
			}
			switch args[0] {
			case "up", "down":
				if err := migrate.Run(cfg.DatabaseURL, args[0]); err != nil {
					return fmt.Errorf("migrate %s: %w", args[0], err)
				}
			case "version":
			default:
				return fmt.Errorf("unknown direction %q: must be up, down or version", args[0])
			}
			v, dirty, err := migrate.Version(cfg.DatabaseURL)
			if err != nil {
				return fmt.Errorf("migrate version: %w", err)
			}
			if opts.Format == "json" {
				return json.NewEncoder(cmd.OutOrStdout()).Encode(map[string]any{"version": v, "dirty": dirty})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "schema version %d (dirty=%v)\n", v, dirty)
			return nil
		},
	}
	return cmd
}
