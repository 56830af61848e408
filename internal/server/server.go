// Package server exposes the key-issuance endpoint and the report API over
// fiber.
package server

import (
	"context"
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	fiberrecover "github.com/gofiber/fiber/v2/middleware/recover"
	"go.uber.org/zap"

	"github.com/KaramelBytes/adreport-cli/internal/kpi"
	"github.com/KaramelBytes/adreport-cli/internal/logging"
	"github.com/KaramelBytes/adreport-cli/internal/report"
)

// Routes.
const (
	KeyPath        = "/get-api-key"
	NetlifyKeyPath = "/.netlify/functions/get-api-key"
	HealthPath     = "/api/health"
	ExtractPath    = "/api/extract"
	SummaryPath    = "/api/summary"
)

// Options configures a Server.
type Options struct {
	// APIKey is the Gemini key handed to verified callers.
	APIKey string
	// AllowedDomain is the required hd claim.
	AllowedDomain string
	// ClientID, when set, must equal the token audience.
	ClientID string

	Verifier   Verifier
	Extractor  *kpi.Extractor
	Gate       kpi.Gate
	Summarizer *report.Summarizer // nil disables /api/summary
	Logger     *zap.Logger
	BodyLimit  int
}

// Server wraps the fiber app.
type Server struct {
	opts Options
	app  *fiber.App
	log  *zap.Logger
}

// New builds the app and registers every route.
func New(opts Options) (*Server, error) {
	if opts.Verifier == nil {
		return nil, errors.New("server: verifier is required")
	}
	if opts.AllowedDomain == "" {
		return nil, errors.New("server: allowed domain is required")
	}
	if opts.Extractor == nil {
		opts.Extractor = kpi.NewExtractor(kpi.DefaultLayout(), opts.Logger)
	}
	if opts.Gate.Threshold == 0 {
		opts.Gate = kpi.DefaultGate()
	}
	log := logging.OrNop(opts.Logger)
	limit := opts.BodyLimit
	if limit <= 0 {
		limit = 32 << 20
	}

	s := &Server{opts: opts, log: log}
	s.app = fiber.New(fiber.Config{
		AppName:               "adreport",
		BodyLimit:             limit,
		DisableStartupMessage: true,
		ErrorHandler:          s.handleError,
	})
	s.app.Use(fiberrecover.New())
	s.app.Use(s.logRequests)

	s.app.All(KeyPath, s.handleKey)
	s.app.All(NetlifyKeyPath, s.handleKey)
	s.app.Get(HealthPath, handleHealth)
	s.app.Post(ExtractPath, s.handleExtract)
	s.app.Post(SummaryPath, s.handleSummary)
	return s, nil
}

// App exposes the fiber app, mostly for app.Test.
func (s *Server) App() *fiber.App { return s.app }

// Listen blocks serving on addr.
func (s *Server) Listen(addr string) error {
	s.log.Info("listening", zap.String("addr", addr))
	return s.app.Listen(addr)
}

// Shutdown stops accepting connections and waits for in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.ShutdownWithContext(ctx)
}

func (s *Server) logRequests(c *fiber.Ctx) error {
	start := time.Now()
	err := c.Next()
	s.log.Debug("request",
		zap.String("method", c.Method()),
		zap.String("path", c.Path()),
		zap.Int("status", c.Response().StatusCode()),
		zap.Duration("took", time.Since(start)),
	)
	return err
}

func (s *Server) handleError(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	var fe *fiber.Error
	if errors.As(err, &fe) {
		code = fe.Code
	}
	if code >= 500 {
		s.log.Error("request failed", zap.String("path", c.Path()), zap.Error(err))
	}
	return c.Status(code).JSON(errorBody{Error: err.Error()})
}
