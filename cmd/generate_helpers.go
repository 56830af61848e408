package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/KaramelBytes/adreport-cli/internal/ai"
	cfgpkg "github.com/KaramelBytes/adreport-cli/internal/config"
	"github.com/KaramelBytes/adreport-cli/internal/kpi"
	"github.com/KaramelBytes/adreport-cli/internal/report"
	"github.com/KaramelBytes/adreport-cli/internal/store"
	"github.com/KaramelBytes/adreport-cli/internal/utils"
	"github.com/KaramelBytes/adreport-cli/internal/workbook"
	"go.uber.org/zap"
)

// newExtractor picks the layout: explicit flag, then config, then the built-in one.
func newExtractor(c *cfgpkg.Global, layoutFlag string) (*kpi.Extractor, error) {
	path := strings.TrimSpace(layoutFlag)
	if path == "" && c != nil {
		path = c.LayoutFile
	}
	layout := kpi.DefaultLayout()
	if path != "" {
		l, err := kpi.LoadLayout(path)
		if err != nil {
			return nil, err
		}
		layout = l
	}
	return kpi.NewExtractor(layout, logger), nil
}

func newGate(c *cfgpkg.Global) kpi.Gate {
	g := kpi.DefaultGate()
	if c != nil && c.QualityThreshold > 0 {
		g.Threshold = c.QualityThreshold
	}
	return g
}

func extractFile(ex *kpi.Extractor, path string) (kpi.Result, error) {
	wb, err := workbook.Open(path)
	if err != nil {
		return kpi.Result{}, err
	}
	return ex.Extract(wb), nil
}

func printExtraction(w io.Writer, res kpi.Result) {
	fmt.Fprintf(w, "Sheet: %s\n", res.Sheet)
	for _, e := range res.Log {
		fmt.Fprintln(w, "  "+e.String())
	}
	counts := kpi.Counts(res.Log)
	fmt.Fprintf(w, "Read %d directly, %d by label, %d missing\n",
		counts[kpi.OutcomeDirect], counts[kpi.OutcomeFallback], counts[kpi.OutcomeMiss])
	fmt.Fprintln(w)
	r := res.Record
	rows := [][2]string{
		{"目標達成率", r.Achievement},
		{"コンバージョン数", r.TotalConversions},
		{"コンバージョン率", r.ConversionRate},
		{"コンバージョン単価", r.CostPerAcquisition},
		{"クリック率", r.ClickThroughRate},
		{"目標値", r.GoalConversions},
		{"CV内訳", r.Breakdown},
	}
	for _, row := range rows {
		v := row[1]
		if v == "" {
			v = "-"
		}
		fmt.Fprintf(w, "%s: %s\n", row[0], v)
	}
}

// staleError pairs the gate error with the message shown to account managers.
func staleError(err error) error {
	return fmt.Errorf("%s\n  %w", kpi.StaleWorkbookMessage, err)
}

type runtimeOptions struct {
	ProviderFlag string
}

// buildRuntime returns the configured provider wrapped in the retry decorator.
func buildRuntime(c *cfgpkg.Global, opts runtimeOptions) (ai.Runtime, string, error) {
	var backoff []time.Duration
	rc := ai.RuntimeConfig{}
	providerName := ""
	if c != nil {
		backoff = ai.BackoffFromMillis(c.RetryBackoffMs)
		rc.BaseURL = c.BaseURL
		providerName = c.Provider
	}
	rc.APIKey = c.ResolvedAPIKey()

	if p := strings.TrimSpace(opts.ProviderFlag); p != "" {
		providerName = p
	}
	switch strings.ToLower(providerName) {
	case "", "rest", "google":
		providerName = ai.ProviderGemini
	case "sdk":
		providerName = ai.ProviderGenAI
	default:
		providerName = strings.ToLower(providerName)
	}

	rt, err := ai.GetRuntime(providerName, rc)
	if err != nil {
		return nil, providerName, err
	}
	return ai.NewRetrying(rt, backoff, logger), providerName, nil
}

func selectModel(c *cfgpkg.Global, explicit string) string {
	if explicit != "" {
		return explicit
	}
	if c != nil && c.Model != "" {
		return c.Model
	}
	return ai.DefaultModel
}

func enforceBudget(estCost, limit float64) error {
	if limit > 0 && estCost > 0 && estCost > limit {
		return fmt.Errorf("✗ Estimated cost ~$%.4f exceeds budget limit ~$%.4f", estCost, limit)
	}
	return nil
}

type contextOptions struct {
	PresetID string
	Goal     string
	Issues   string
	Tasks    string
}

// resolveContext loads the preset when one is named and lets non-empty flags
// override its fields.
func resolveContext(ctx context.Context, c *cfgpkg.Global, opts contextOptions) (report.Context, error) {
	var out report.Context
	if opts.PresetID != "" {
		st, err := openStore(c)
		if err != nil {
			return out, err
		}
		defer st.Close()
		p, err := st.GetPreset(ctx, opts.PresetID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return out, fmt.Errorf("preset %s not found", opts.PresetID)
			}
			return out, err
		}
		out = report.Context{Goal: p.Goal, Issues: p.Issues, Tasks: p.Tasks}
		logger.Debug("using preset", zap.String("id", p.ID), zap.String("name", p.Name))
	}
	if opts.Goal != "" {
		out.Goal = opts.Goal
	}
	if opts.Issues != "" {
		out.Issues = opts.Issues
	}
	if opts.Tasks != "" {
		out.Tasks = opts.Tasks
	}
	return out.WithDefaults(), nil
}

func openStore(c *cfgpkg.Global) (*store.Store, error) {
	if c == nil || c.StorePath == "" {
		return nil, fmt.Errorf("store_path is not configured")
	}
	return store.Open(c.StorePath)
}

func describeGenerateError(err error) error {
	if hint := ai.Hint(err); hint != "" {
		return fmt.Errorf("%w\n  hint: %s", err, hint)
	}
	return err
}

type outputOptions struct {
	JSON         bool
	Quiet        bool
	Workbook     string
	Model        string
	MaxTokens    int
	Temperature  float64
	PromptTokens int
	Usage        ai.Usage
	OutputPath   string
	OutputFormat string
	Writer       io.Writer
}

func jsonOutput(content string, opts outputOptions) ([]byte, error) {
	out := map[string]any{
		"workbook":      opts.Workbook,
		"model":         opts.Model,
		"max_tokens":    opts.MaxTokens,
		"temperature":   opts.Temperature,
		"prompt_tokens": opts.PromptTokens,
		"usage":         opts.Usage,
		"summary":       content,
	}
	b, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal output: %w", err)
	}
	return b, nil
}

func formatAndWriteOutput(content string, opts outputOptions) error {
	w := opts.Writer
	if w == nil {
		w = os.Stdout
	}

	if opts.JSON {
		b, err := jsonOutput(content, opts)
		if err != nil {
			return err
		}
		fmt.Fprintln(w, string(b))
	} else {
		if opts.Quiet {
			fmt.Fprintln(w, content)
		} else {
			fmt.Fprintln(w, "\n=== Summary ===")
			fmt.Fprintln(w, content)
		}
	}

	if opts.OutputPath == "" {
		return nil
	}

	var data []byte
	switch opts.OutputFormat {
	case "", "text", "txt":
		data = []byte(content + "\n")
	case "json":
		b, err := jsonOutput(content, opts)
		if err != nil {
			return err
		}
		data = b
	default:
		return fmt.Errorf("unsupported --format: %s (use text|json)", opts.OutputFormat)
	}
	if err := utils.SafeWriteFile(opts.OutputPath, data); err != nil {
		return fmt.Errorf("write output: %w", err)
	}

	if !opts.Quiet {
		fmt.Fprintf(w, "\n💾 Saved output to %s\n", opts.OutputPath)
	}
	return nil
}
