package cmd

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/KaramelBytes/adreport-cli/internal/ai"
	cfgpkg "github.com/KaramelBytes/adreport-cli/internal/config"
	"github.com/KaramelBytes/adreport-cli/internal/kpi"
	"github.com/KaramelBytes/adreport-cli/internal/report"
	"github.com/KaramelBytes/adreport-cli/internal/store"
)

func TestSelectModelPrecedence(t *testing.T) {
	c := &cfgpkg.Global{Model: "cfg-model"}

	if got := selectModel(c, "cli-model"); got != "cli-model" {
		t.Fatalf("expected CLI model, got %q", got)
	}
	if got := selectModel(c, ""); got != "cfg-model" {
		t.Fatalf("expected config model, got %q", got)
	}
	if got := selectModel(nil, ""); got != ai.DefaultModel {
		t.Fatalf("expected fallback model, got %q", got)
	}
}

func TestEnforceBudget(t *testing.T) {
	if err := enforceBudget(0.0, 1.0); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := enforceBudget(2.0, 1.0); err == nil {
		t.Fatal("expected error when cost exceeds budget")
	}
}

func TestBuildRuntimeProviders(t *testing.T) {
	c := &cfgpkg.Global{APIKey: "k", Provider: "gemini", RetryBackoffMs: []int{10, 20}}
	rt, provider, err := buildRuntime(c, runtimeOptions{})
	if err != nil {
		t.Fatalf("buildRuntime error: %v", err)
	}
	if provider != ai.ProviderGemini {
		t.Fatalf("expected gemini provider, got %q", provider)
	}
	r, ok := rt.(*ai.Retrying)
	if !ok {
		t.Fatalf("expected retrying runtime, got %T", rt)
	}
	if len(r.Backoff) != 2 || r.Backoff[1] != 20*time.Millisecond {
		t.Fatalf("unexpected backoff %v", r.Backoff)
	}

	_, provider, err = buildRuntime(c, runtimeOptions{ProviderFlag: "SDK"})
	if err != nil {
		t.Fatalf("buildRuntime genai error: %v", err)
	}
	if provider != ai.ProviderGenAI {
		t.Fatalf("expected genai provider, got %q", provider)
	}

	if _, _, err := buildRuntime(c, runtimeOptions{ProviderFlag: "openai"}); err == nil {
		t.Fatal("expected error for unknown provider")
	}
}

func TestBuildRuntimeDefaultBackoff(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "")
	rt, _, err := buildRuntime(nil, runtimeOptions{})
	if err != nil {
		t.Fatalf("buildRuntime error: %v", err)
	}
	r := rt.(*ai.Retrying)
	if len(r.Backoff) != len(ai.DefaultBackoff) {
		t.Fatalf("expected default backoff, got %v", r.Backoff)
	}
	_, err = rt.Generate(context.Background(), ai.GenerateRequest{Prompt: "x"})
	if !errors.Is(err, ai.ErrMissingAPIKey) {
		t.Fatalf("expected missing key, got %v", err)
	}
}

func TestBuildRuntimeLeavesAttemptsToTheCallerDeadline(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(1200 * time.Millisecond)
		fmt.Fprint(w, `{"candidates":[{"content":{"parts":[{"text":"・遅い応答"}]}}]}`)
	}))
	defer srv.Close()

	c := &cfgpkg.Global{APIKey: "k", BaseURL: srv.URL, HTTPTimeoutSec: 1, RetryBackoffMs: []int{1}}
	rt, _, err := buildRuntime(c, runtimeOptions{})
	if err != nil {
		t.Fatalf("buildRuntime error: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	resp, err := rt.Generate(ctx, ai.GenerateRequest{Prompt: "x"})
	if err != nil {
		t.Fatalf("a slow reply inside the caller's deadline should succeed: %v", err)
	}
	if resp.Text != "・遅い応答" {
		t.Fatalf("unexpected text %q", resp.Text)
	}

	var backoff time.Duration
	for _, d := range ai.DefaultBackoff {
		backoff += d
	}
	if time.Duration(defaultGenerateTimeoutSec)*time.Second <= backoff+6*30*time.Second {
		t.Fatalf("default generate timeout %ds leaves no room for six attempts", defaultGenerateTimeoutSec)
	}
}

func TestNewGateThreshold(t *testing.T) {
	if g := newGate(nil); g.Threshold != kpi.DefaultThreshold {
		t.Fatalf("expected default threshold, got %d", g.Threshold)
	}
	if g := newGate(&cfgpkg.Global{QualityThreshold: 3}); g.Threshold != 3 {
		t.Fatalf("expected threshold 3, got %d", g.Threshold)
	}
}

func TestNewExtractorLayoutFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "layout.yaml")
	if err := os.WriteFile(path, []byte("summary_sheet: Summary\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	ex, err := newExtractor(&cfgpkg.Global{LayoutFile: path}, "")
	if err != nil {
		t.Fatalf("newExtractor: %v", err)
	}
	if got := ex.Layout().SummarySheet; got != "Summary" {
		t.Fatalf("expected layout from config, got %q", got)
	}
	if _, err := newExtractor(nil, filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("expected error for missing layout file")
	}
}

func TestResolveContext(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "store.db")
	st, err := store.Open(dbPath)
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()
	cu, err := st.CreateCustomer(ctx, "ミライ")
	if err != nil {
		t.Fatal(err)
	}
	p, err := st.CreatePreset(ctx, store.Preset{CustomerID: cu.ID, Name: "5月", Issues: "CPA高騰", Tasks: "入札調整"})
	if err != nil {
		t.Fatal(err)
	}
	st.Close()

	c := &cfgpkg.Global{StorePath: dbPath}
	got, err := resolveContext(ctx, c, contextOptions{PresetID: p.ID, Tasks: "除外KW追加"})
	if err != nil {
		t.Fatalf("resolveContext: %v", err)
	}
	want := report.Context{Goal: report.DefaultGoal, Issues: "CPA高騰", Tasks: "除外KW追加"}
	if got != want {
		t.Fatalf("got %+v, want %+v", got, want)
	}

	if _, err := resolveContext(ctx, c, contextOptions{PresetID: "nope"}); err == nil || !strings.Contains(err.Error(), "not found") {
		t.Fatalf("expected not found, got %v", err)
	}
	got, err = resolveContext(ctx, nil, contextOptions{Goal: "CV40件"})
	if err != nil || got.Goal != "CV40件" {
		t.Fatalf("flags only: %+v %v", got, err)
	}
}

func TestFormatAndWriteOutput(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out.txt")
	buf := &bytes.Buffer{}
	if err := formatAndWriteOutput("・一\n・二\n・三", outputOptions{
		Workbook:     "report.xlsx",
		Model:        "model",
		PromptTokens: 4,
		OutputPath:   path,
		OutputFormat: "text",
		Writer:       buf,
	}); err != nil {
		t.Fatalf("formatAndWriteOutput error: %v", err)
	}
	if out := buf.String(); !strings.Contains(out, "=== Summary ===") || !strings.Contains(out, "Saved output to") {
		t.Fatalf("expected formatted output, got %q", out)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read output file: %v", err)
	}
	if string(data) != "・一\n・二\n・三\n" {
		t.Fatalf("unexpected file content: %q", string(data))
	}

	if err := formatAndWriteOutput("x", outputOptions{OutputPath: path, OutputFormat: "pdf", Writer: &bytes.Buffer{}}); err == nil {
		t.Fatal("expected error for unsupported format")
	}
}

func TestStaleErrorKeepsSentinel(t *testing.T) {
	err := staleError(kpi.DefaultGate().Check(kpi.Record{}))
	if !errors.Is(err, kpi.ErrStaleWorkbook) {
		t.Fatalf("expected ErrStaleWorkbook in chain: %v", err)
	}
	if !strings.HasPrefix(err.Error(), kpi.StaleWorkbookMessage) {
		t.Fatalf("expected user message first: %q", err.Error())
	}
}
