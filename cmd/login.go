package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	cfgpkg "github.com/KaramelBytes/adreport-cli/internal/config"
	"github.com/KaramelBytes/adreport-cli/internal/server"
	"github.com/spf13/cobra"
)

var (
	loginIDToken  string
	loginEndpoint string
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Exchange a Google ID token for the team's Gemini API key",
	Long: `login posts a Google ID token to the key endpoint. The endpoint only
answers for accounts of the allowed Workspace domain; the returned key is
saved to the config file.`,
	Example: `  adreport login --id-token "$(gcloud auth print-identity-token)" --endpoint https://example.com/get-api-key`,
	RunE: func(cmd *cobra.Command, args []string) error {
		tok := strings.TrimSpace(loginIDToken)
		if tok == "" {
			tok = strings.TrimSpace(os.Getenv("ADREPORT_ID_TOKEN"))
		}
		if tok == "" {
			return fmt.Errorf("--id-token is required")
		}
		c, err := requireConfig()
		if err != nil {
			return err
		}
		endpoint := loginEndpoint
		if endpoint == "" {
			endpoint = c.KeyEndpoint
		}

		ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
		defer cancel()
		key, err := server.FetchAPIKey(ctx, endpoint, tok)
		if err != nil {
			return err
		}
		saved, err := cfgpkg.LoadFile(cfgFile)
		if err != nil {
			return err
		}
		saved.APIKey = key
		if loginEndpoint != "" {
			saved.KeyEndpoint = loginEndpoint
		}
		if err := cfgpkg.Save(saved, cfgFile); err != nil {
			return err
		}
		cfg = nil
		fmt.Fprintf(cmd.OutOrStdout(), "✓ Saved API key %s to config\n", mask(key))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(loginCmd)
	loginCmd.Flags().StringVar(&loginIDToken, "id-token", "", "Google ID token (or ADREPORT_ID_TOKEN)")
	loginCmd.Flags().StringVar(&loginEndpoint, "endpoint", "", "key endpoint URL (default from config key_endpoint)")
}
