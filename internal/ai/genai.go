package ai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"path"
	"strings"

	"google.golang.org/genai"
)

// GenAIRuntime implements Runtime over the official Go SDK.
type GenAIRuntime struct {
	client *genai.Client
}

// NewGenAIRuntime builds an SDK client for the Gemini API backend. No network
// traffic happens until the first Generate.
func NewGenAIRuntime(c RuntimeConfig) (*GenAIRuntime, error) {
	if c.APIKey == "" {
		return nil, ErrMissingAPIKey
	}
	cc := &genai.ClientConfig{
		APIKey:  c.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if c.HTTPTimeout > 0 {
		cc.HTTPClient = &http.Client{Timeout: c.HTTPTimeout}
	}
	if c.BaseURL != "" && c.BaseURL != DefaultBaseURL {
		root, version := splitAPIVersion(c.BaseURL)
		cc.HTTPOptions = genai.HTTPOptions{BaseURL: root, APIVersion: version}
	}
	client, err := genai.NewClient(context.Background(), cc)
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}
	return &GenAIRuntime{client: client}, nil
}

func (g *GenAIRuntime) Generate(ctx context.Context, req GenerateRequest) (*GenerateResponse, error) {
	model := req.Model
	if model == "" {
		model = DefaultModel
	}
	cfg := &genai.GenerateContentConfig{}
	if req.System != "" {
		cfg.SystemInstruction = genai.NewContentFromText(req.System, genai.RoleUser)
	}
	if req.Temperature > 0 {
		cfg.Temperature = genai.Ptr(float32(req.Temperature))
	}
	if req.MaxTokens > 0 {
		cfg.MaxOutputTokens = int32(req.MaxTokens)
	}
	resp, err := g.client.Models.GenerateContent(ctx, model, genai.Text(req.Prompt), cfg)
	if err != nil {
		return nil, fromGenAIError(err)
	}
	text := resp.Text()
	if text == "" {
		empty := &EmptyResponseError{}
		if resp.PromptFeedback != nil {
			empty.BlockReason = string(resp.PromptFeedback.BlockReason)
		}
		if len(resp.Candidates) > 0 {
			empty.FinishReason = string(resp.Candidates[0].FinishReason)
		}
		return nil, empty
	}
	out := &GenerateResponse{Text: text, Model: model}
	if resp.ModelVersion != "" {
		out.Model = resp.ModelVersion
	}
	if len(resp.Candidates) > 0 {
		out.FinishReason = string(resp.Candidates[0].FinishReason)
	}
	if u := resp.UsageMetadata; u != nil {
		out.Usage = Usage{
			PromptTokens:     int(u.PromptTokenCount),
			CompletionTokens: int(u.CandidatesTokenCount),
			TotalTokens:      int(u.TotalTokenCount),
		}
	}
	return out, nil
}

// fromGenAIError maps SDK errors onto the same typed errors as Client.
func fromGenAIError(err error) error {
	var apiErr genai.APIError
	if !errors.As(err, &apiErr) {
		return err
	}
	e := &APIError{StatusCode: apiErr.Code, Code: apiErr.Code, Status: apiErr.Status, Message: apiErr.Message}
	return classifyAPIError(e, &http.Response{Header: http.Header{}})
}

// splitAPIVersion turns ".../v1beta" into (".../", "v1beta"); the SDK takes
// the two separately.
func splitAPIVersion(base string) (string, string) {
	base = strings.TrimRight(base, "/")
	last := path.Base(base)
	if strings.HasPrefix(last, "v1") {
		return strings.TrimSuffix(base, last), last
	}
	return base + "/", ""
}
