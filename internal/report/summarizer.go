package report

import (
	"context"
	"fmt"
	"strings"

	"github.com/KaramelBytes/adreport-cli/internal/ai"
	"github.com/KaramelBytes/adreport-cli/internal/kpi"
	"github.com/KaramelBytes/adreport-cli/internal/logging"
	"go.uber.org/zap"
)

// Summary is a generated report comment.
type Summary struct {
	Text   string   `json:"summary"`
	Model  string   `json:"model"`
	Prompt string   `json:"-"`
	Usage  ai.Usage `json:"usage"`
}

// Summarizer checks a record and asks a runtime for the summary. Wrap the
// runtime in ai.Retrying to get backoff.
type Summarizer struct {
	Runtime     ai.Runtime
	Gate        kpi.Gate
	Model       string
	Temperature float64
	MaxTokens   int
	Logger      *zap.Logger
}

// Request builds the runtime request without sending it.
func (s *Summarizer) Request(r kpi.Record, c Context) ai.GenerateRequest {
	return ai.GenerateRequest{
		Model:       s.Model,
		System:      SystemInstruction,
		Prompt:      BuildPrompt(r, c),
		Temperature: s.Temperature,
		MaxTokens:   s.MaxTokens,
	}
}

// Summarize runs the quality gate and then the runtime. A gate failure is
// returned as is and the runtime is never called.
func (s *Summarizer) Summarize(ctx context.Context, r kpi.Record, c Context) (*Summary, error) {
	if err := s.Gate.Check(r); err != nil {
		return nil, err
	}
	logger := logging.OrNop(s.Logger)
	req := s.Request(r, c)
	logger.Debug("requesting summary", zap.String("model", req.Model), zap.Int("prompt_chars", len(req.Prompt)))
	resp, err := s.Runtime.Generate(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("generate summary: %w", err)
	}
	return &Summary{
		Text:   strings.TrimSpace(resp.Text),
		Model:  resp.Model,
		Prompt: req.Prompt,
		Usage:  resp.Usage,
	}, nil
}
