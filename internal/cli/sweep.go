package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"presence-engine/internal/app"
)

func newSweepCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "sweep",
		Short: "Settle every expired grace countdown once",
		Long: `Closes the sessions of every countdown whose deadline has passed, across all companies,
exactly as the server's periodic sweep does. Safe to run while servers are up.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.Load()
			if err != nil {
				return fmt.Errorf("config: %w", err)
			}
			a, err := app.Build(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer a.Close(cmd.Context())

			n, err := a.Sweeper.RunOnce(cmd.Context())
			if err != nil {
				return fmt.Errorf("sweep: %w", err)
			}
			if opts.Format == "json" {
				return json.NewEncoder(cmd.OutOrStdout()).Encode(map[string]int{"closed": n})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "closed %d session(s)\n", n)
			return nil
		},
	}
}
