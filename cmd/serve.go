package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/KaramelBytes/adreport-cli/internal/report"
	"github.com/KaramelBytes/adreport-cli/internal/server"
)

var (
	serveAddr     string
	serveProvider string
	serveModel    string
)

const shutdownGrace = 10 * time.Second

// buildServer wires the HTTP API from configuration.
func buildServer() (*server.Server, error) {
	c, err := requireConfig()
	if err != nil {
		return nil, err
	}
	ex, err := newExtractor(c, "")
	if err != nil {
		return nil, err
	}
	timeout := time.Duration(c.HTTPTimeoutSec) * time.Second
	apiKey := c.ResolvedAPIKey()
	opts := server.Options{
		APIKey:        apiKey,
		AllowedDomain: c.AllowedDomain,
		ClientID:      c.GoogleClientID,
		Verifier:      server.NewTokenInfoVerifier(c.TokenInfoURL, timeout),
		Extractor:     ex,
		Gate:          newGate(c),
		Logger:        logger,
	}
	if apiKey != "" {
		rt, _, err := buildRuntime(c, runtimeOptions{ProviderFlag: serveProvider})
		if err != nil {
			return nil, err
		}
		opts.Summarizer = &report.Summarizer{
			Runtime:     rt,
			Gate:        opts.Gate,
			Model:       selectModel(c, serveModel),
			Temperature: c.Temperature,
			MaxTokens:   c.MaxTokens,
			Logger:      logger,
		}
	} else {
		fmt.Fprintln(os.Stderr, "⚠ Warning: no API key configured; /get-api-key and /api/summary will answer 500")
	}
	return server.New(opts)
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the key-issuance endpoint and the report API",
	Example: `  GEMINI_API_KEY=... adreport serve --addr :8080
  curl -F file=@2024-05.xlsx localhost:8080/api/extract`,
	RunE: func(cmd *cobra.Command, args []string) error {
		srv, err := buildServer()
		if err != nil {
			return err
		}
		addr := serveAddr
		if addr == "" {
			addr = cfg.ListenAddr
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		g, ctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			if err := srv.Listen(addr); err != nil {
				return fmt.Errorf("listen %s: %w", addr, err)
			}
			return nil
		})
		g.Go(func() error {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
			defer cancel()
			logger.Info("shutting down", zap.Duration("grace", shutdownGrace))
			return srv.Shutdown(shutdownCtx)
		})
		fmt.Fprintf(cmd.OutOrStdout(), "✓ Serving on %s (domain %s)\n", addr, cfg.AllowedDomain)
		if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (default from config listen_addr)")
	serveCmd.Flags().StringVar(&serveProvider, "provider", "", "runtime for /api/summary: gemini or genai")
	serveCmd.Flags().StringVar(&serveModel, "model", "", "model for /api/summary")
}
