package cmd

import (
	"fmt"
	"os"

	cfgpkg "github.com/KaramelBytes/adreport-cli/internal/config"
	"github.com/KaramelBytes/adreport-cli/internal/logging"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	// Global flags
	cfgFile string
	debug   bool
	logJSON bool
	// HTTP flag (overrides config if set)
	flagHTTPTimeoutSec int

	// Loaded configuration
	cfg *cfgpkg.Global
	// Structured diagnostics on stderr; user-facing output stays on stdout.
	logger = zap.NewNop()
)

var rootCmd = &cobra.Command{
	Use:   "adreport",
	Short: "adreport: turn an ad performance workbook into a three-line client summary",
	Long: `adreport reads the KPIs of a monthly advertising report (.xlsx), checks that
the workbook was saved with calculated values, and asks Gemini for a
three-line summary for the client.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute is the entry point called by main.main()
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "✗ Error:", err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(loadConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ~/.adreport/config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging (extraction log, retries)")
	rootCmd.PersistentFlags().BoolVar(&logJSON, "log-json", false, "emit logs as JSON")
	rootCmd.PersistentFlags().IntVar(&flagHTTPTimeoutSec, "http-timeout", 0, "timeout in seconds for token verification requests (overrides config)")
}

func loadConfig() {
	logger = logging.New(logging.Options{Debug: debug, JSON: logJSON})

	c, err := cfgpkg.Load(cfgFile)
	if err != nil {
		// Non-fatal: allow running commands that don't need config
		fmt.Fprintf(os.Stderr, "⚠ Warning: failed to load config: %v\n", err)
		cfg = nil
		return
	}
	cfg = c

	f := rootCmd.PersistentFlags()
	if f.Changed("http-timeout") && flagHTTPTimeoutSec > 0 {
		cfg.HTTPTimeoutSec = flagHTTPTimeoutSec
	}
	logger.Debug("config loaded", zap.String("provider", cfg.Provider), zap.String("model", cfg.Model))
}

// requireConfig returns the loaded config or loads it now.
func requireConfig() (*cfgpkg.Global, error) {
	if cfg != nil {
		return cfg, nil
	}
	c, err := cfgpkg.Load(cfgFile)
	if err != nil {
		return nil, err
	}
	cfg = c
	return cfg, nil
}
