package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sponsorhub/server/internal/auth"
)

var (
	tokenSubject string
	tokenRole    string
	tokenTenant  string
)

var gentokenCmd = &cobra.Command{
	Use:   "gentoken",
	Short: "Mint an access token for local testing",
	Long: `Mint a signed access token for local testing against a dev server.

The token is signed with the configured JWT_SECRET, so it only works against
a server sharing that secret. Not a substitute for login; there is no refresh
credential attached.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return fmt.Errorf("config error: %w", err)
		}

		role, err := auth.ParseRole(tokenRole)
		if err != nil {
			return fmt.Errorf("invalid role %q: %w", tokenRole, err)
		}

		verifier := auth.NewVerifier(cfg.Auth.JWTSecret, cfg.Auth.AccessExpiry, cfg.Auth.Issuer)
		token, err := verifier.Generate(auth.Principal{
			Subject:  tokenSubject,
			Role:     role,
			TenantID: tokenTenant,
		})
		if err != nil {
			return fmt.Errorf("generate token: %w", err)
		}

		fmt.Println(token)
		fmt.Println()
		fmt.Printf("curl -H 'Authorization: Bearer %s' http://localhost:%d/api/v1/tenants/%s/proposals\n",
			token, cfg.Server.Port, tokenTenant)
		return nil
	},
}

func init() {
	gentokenCmd.Flags().StringVar(&tokenSubject, "subject", "dev-user", "subject claim")
	gentokenCmd.Flags().StringVar(&tokenRole, "role", "ADMIN", "role claim")
	gentokenCmd.Flags().StringVar(&tokenTenant, "tenant", "dev-tenant", "tenant claim")
}
