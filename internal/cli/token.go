package cli

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"presence-engine/internal/security"
)

type tokenOutput struct {
	Token     string    `json:"token"`
	TokenID   string    `json:"token_id"`
	ExpiresAt time.Time `json:"expires_at"`
}

func newTokenCommand(opts *RootOptions) *cobra.Command {
	var companyID string
	var ttl time.Duration
	cmd := &cobra.Command{
		Use:   "token <employee-id>",
		Short: "Issue a development access token",
		Long: `Signs an access token for an employee with JWT_PRIVATE_KEY. Tokens are normally issued by
the identity provider; use this for local testing only.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if companyID == "" {
				return fmt.Errorf("--company is required")
			}
			cfg, err := opts.Load()
			if err != nil {
				return fmt.Errorf("config: %w", err)
			}
			if cfg.JWTPrivateKey == "" {
				return fmt.Errorf("JWT_PRIVATE_KEY is not set")
			}
			signer, pub, err := security.LoadKeys(cfg.JWTPrivateKey, cfg.JWTPublicKey)
			if err != nil {
				return fmt.Errorf("jwt keys: %w", err)
			}
			if ttl <= 0 {
				ttl = cfg.AccessTTL()
			}
			tokens := security.NewTokenProvider(signer, pub, cfg.JWTIssuer, cfg.JWTAudience, ttl)
			tok, jti, exp, err := tokens.IssueAccess(args[0], companyID)
			if err != nil {
				return fmt.Errorf("issue token: %w", err)
			}
			if opts.Format == "json" {
				return json.NewEncoder(cmd.OutOrStdout()).Encode(tokenOutput{Token: tok, TokenID: jti, ExpiresAt: exp})
			}
			fmt.Fprintln(cmd.OutOrStdout(), tok)
			return nil
		},
	}
	cmd.Flags().StringVar(&companyID, "company", "", "company id of the employee")
	cmd.Flags().DurationVar(&ttl, "ttl", 0, "token lifetime (default JWT_ACCESS_TTL)")
	return cmd
}
