package cmd

import (
	"fmt"
	"strings"

	cfgpkg "github.com/KaramelBytes/adreport-cli/internal/config"
	"github.com/spf13/cobra"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "View or set adreport configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show effective configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		if cfg == nil {
			fmt.Fprintln(out, "No config loaded")
			return nil
		}
		if cfg.APIKey == "" && cfg.ResolvedAPIKey() != "" {
			fmt.Fprintf(out, "api_key: %s (from GEMINI_API_KEY)\n", mask(cfg.ResolvedAPIKey()))
		} else {
			fmt.Fprintf(out, "api_key: %s\n", mask(cfg.APIKey))
		}
		fmt.Fprintf(out, "provider: %s\n", cfg.Provider)
		fmt.Fprintf(out, "model: %s\n", cfg.Model)
		fmt.Fprintf(out, "base_url: %s\n", cfg.BaseURL)
		fmt.Fprintf(out, "max_tokens: %d\n", cfg.MaxTokens)
		fmt.Fprintf(out, "temperature: %.3f\n", cfg.Temperature)
		fmt.Fprintf(out, "http_timeout_sec: %d\n", cfg.HTTPTimeoutSec)
		fmt.Fprintf(out, "retry_backoff_ms: %s\n", joinInts(cfg.RetryBackoffMs))
		fmt.Fprintf(out, "quality_threshold: %d\n", cfg.QualityThreshold)
		if cfg.LayoutFile != "" {
			fmt.Fprintf(out, "layout_file: %s\n", cfg.LayoutFile)
		}
		fmt.Fprintf(out, "store_path: %s\n", cfg.StorePath)
		if cfg.KeyEndpoint != "" {
			fmt.Fprintf(out, "key_endpoint: %s\n", cfg.KeyEndpoint)
		}
		fmt.Fprintf(out, "listen_addr: %s\n", cfg.ListenAddr)
		fmt.Fprintf(out, "allowed_domain: %s\n", cfg.AllowedDomain)
		fmt.Fprintf(out, "tokeninfo_url: %s\n", cfg.TokenInfoURL)
		if cfg.GoogleClientID != "" {
			fmt.Fprintf(out, "google_client_id: %s\n", cfg.GoogleClientID)
		}
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a config value and save to disk",
	Long:  "Set a config value and save to disk.\n\nKeys: " + strings.Join(cfgpkg.Keys(), ", "),
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := cfgpkg.LoadFile(cfgFile)
		if err != nil {
			return err
		}
		if err := c.Set(args[0], args[1]); err != nil {
			return err
		}
		if err := cfgpkg.Save(c, cfgFile); err != nil {
			return err
		}
		cfg = nil
		fmt.Fprintln(cmd.OutOrStdout(), "✓ Saved config")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
}

func mask(s string) string {
	if s == "" {
		return ""
	}
	if len(s) <= 6 {
		return "******"
	}
	return s[:3] + "****" + s[len(s)-3:]
}

func joinInts(v []int) string {
	parts := make([]string, len(v))
	for i, n := range v {
		parts[i] = fmt.Sprint(n)
	}
	return strings.Join(parts, ",")
}
