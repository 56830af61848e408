package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// Client calls the Gemini generateContent REST endpoint. It makes exactly one
// HTTP request per Generate call.
type Client struct {
	httpClient *http.Client
	apiKey     string
	baseURL    string
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiGenerationConfig struct {
	Temperature     *float64 `json:"temperature,omitempty"`
	MaxOutputTokens int      `json:"maxOutputTokens,omitempty"`
}

type geminiRequest struct {
	Contents          []geminiContent         `json:"contents"`
	SystemInstruction *geminiContent          `json:"systemInstruction,omitempty"`
	GenerationConfig  *geminiGenerationConfig `json:"generationConfig,omitempty"`
}

type geminiResponse struct {
	Candidates []struct {
		Content      geminiContent `json:"content"`
		FinishReason string        `json:"finishReason"`
	} `json:"candidates"`
	PromptFeedback struct {
		BlockReason string `json:"blockReason"`
	} `json:"promptFeedback"`
	UsageMetadata Usage  `json:"usageMetadata"`
	ModelVersion  string `json:"modelVersion"`
}

// NewClient returns a client for the public endpoint. A zero httpTimeout
// leaves each request bounded only by the caller's context.
func NewClient(apiKey string, httpTimeout time.Duration) *Client {
	if httpTimeout < 0 {
		httpTimeout = 0
	}
	return &Client{
		httpClient: &http.Client{Timeout: httpTimeout},
		apiKey:     apiKey,
		baseURL:    DefaultBaseURL,
	}
}

// NewClientWithBaseURL allows injecting a custom base URL (used in tests).
func NewClientWithBaseURL(apiKey string, httpTimeout time.Duration, baseURL string) *Client {
	c := NewClient(apiKey, httpTimeout)
	if baseURL != "" {
		c.baseURL = strings.TrimRight(baseURL, "/")
	}
	return c
}

func buildRequest(req GenerateRequest) geminiRequest {
	body := geminiRequest{
		Contents: []geminiContent{{Role: "user", Parts: []geminiPart{{Text: req.Prompt}}}},
	}
	if req.System != "" {
		body.SystemInstruction = &geminiContent{Parts: []geminiPart{{Text: req.System}}}
	}
	if req.Temperature > 0 || req.MaxTokens > 0 {
		gc := &geminiGenerationConfig{MaxOutputTokens: req.MaxTokens}
		if req.Temperature > 0 {
			t := req.Temperature
			gc.Temperature = &t
		}
		body.GenerationConfig = gc
	}
	return body
}

func (c *Client) Generate(ctx context.Context, req GenerateRequest) (*GenerateResponse, error) {
	if c.apiKey == "" {
		return nil, ErrMissingAPIKey
	}
	model := req.Model
	if model == "" {
		model = DefaultModel
	}
	payload, err := json.Marshal(buildRequest(req))
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}
	endpoint := c.baseURL + "/models/" + url.PathEscape(model) + ":generateContent"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-goog-api-key", c.apiKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, &UnreachableError{Host: httpReq.URL.Host, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, classifyAPIError(decodeAPIError(resp), resp)
	}
	var out geminiResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if len(out.Candidates) == 0 || len(out.Candidates[0].Content.Parts) == 0 ||
		out.Candidates[0].Content.Parts[0].Text == "" {
		empty := &EmptyResponseError{BlockReason: out.PromptFeedback.BlockReason}
		if len(out.Candidates) > 0 {
			empty.FinishReason = out.Candidates[0].FinishReason
		}
		return nil, empty
	}
	res := &GenerateResponse{
		Text:         out.Candidates[0].Content.Parts[0].Text,
		Model:        model,
		FinishReason: out.Candidates[0].FinishReason,
		Usage:        out.UsageMetadata,
		RequestID:    extractRequestID(resp),
	}
	if out.ModelVersion != "" {
		res.Model = out.ModelVersion
	}
	return res, nil
}

// decodeAPIError reads a Google-style {"error":{code,message,status}} body.
func decodeAPIError(resp *http.Response) *APIError {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 8<<10))
	var raw map[string]any
	_ = json.Unmarshal(body, &raw)
	apiErr := &APIError{StatusCode: resp.StatusCode, Raw: raw, RequestID: extractRequestID(resp)}
	if v, ok := raw["error"].(map[string]any); ok {
		if msg, ok := v["message"].(string); ok {
			apiErr.Message = msg
		}
		if st, ok := v["status"].(string); ok {
			apiErr.Status = st
		}
		if code, ok := v["code"].(float64); ok {
			apiErr.Code = int(code)
		}
	} else if len(body) > 0 && raw == nil {
		apiErr.Message = strings.TrimSpace(string(body))
	}
	return apiErr
}

// parseRetryAfterSeconds tries to interpret Retry-After header value as seconds or HTTP date.
func parseRetryAfterSeconds(v string) (int, error) {
	if s, err := strconv.Atoi(v); err == nil {
		return s, nil
	}
	if t, err := http.ParseTime(v); err == nil {
		d := time.Until(t)
		if d < 0 {
			d = 0
		}
		return int(d.Seconds()), nil
	}
	return 0, fmt.Errorf("invalid Retry-After: %q", v)
}

// classifyAPIError maps generic APIError to typed errors for better UX.
func classifyAPIError(apiErr *APIError, resp *http.Response) error {
	sc := apiErr.StatusCode
	msg := apiErr.Message
	switch {
	case sc == http.StatusUnauthorized || sc == http.StatusForbidden:
		return &AuthError{APIError: apiErr}
	case sc == http.StatusBadRequest && containsFold(msg, "api key"):
		// Gemini reports a malformed key as 400 INVALID_ARGUMENT.
		return &AuthError{APIError: apiErr}
	case sc == http.StatusTooManyRequests:
		if containsAnyFold(msg, "quota", "billing") && !containsFold(msg, "per minute") {
			return &QuotaExceededError{APIError: apiErr}
		}
		var ra time.Duration
		if v := resp.Header.Get("Retry-After"); v != "" {
			if secs, err := parseRetryAfterSeconds(v); err == nil && secs > 0 {
				ra = time.Duration(secs) * time.Second
			}
		}
		return &RateLimitError{APIError: apiErr, RetryAfter: ra}
	case sc == http.StatusNotFound:
		if apiErr.Status == "NOT_FOUND" || containsAllFold(msg, "model", "not found") || containsFold(msg, "is not found") {
			return &ModelNotFoundError{APIError: apiErr}
		}
		return apiErr
	case sc == http.StatusBadRequest:
		return &BadRequestError{APIError: apiErr}
	case sc >= 500 && sc <= 599:
		return &ServerError{APIError: apiErr}
	}
	return apiErr
}

func containsAllFold(s string, subs ...string) bool {
	for _, sub := range subs {
		if !containsFold(s, sub) {
			return false
		}
	}
	return true
}

func containsAnyFold(s string, subs ...string) bool {
	for _, sub := range subs {
		if containsFold(s, sub) {
			return true
		}
	}
	return false
}

func containsFold(s, sub string) bool {
	if s == "" || sub == "" {
		return false
	}
	return strings.Contains(strings.ToLower(s), strings.ToLower(sub))
}

// extractRequestID pulls a best-effort request ID from common headers.
func extractRequestID(resp *http.Response) string {
	if resp == nil {
		return ""
	}
	for _, k := range []string{"X-Request-Id", "X-Goog-Request-Id", "X-Cloud-Trace-Context"} {
		if v := resp.Header.Get(k); v != "" {
			return v
		}
	}
	return ""
}

// Hint turns a typed error into a one-line suggestion for CLI users.
func Hint(err error) string {
	var (
		auth  *AuthError
		rate  *RateLimitError
		quota *QuotaExceededError
		model *ModelNotFoundError
		srv   *ServerError
		unr   *UnreachableError
	)
	switch {
	case errors.Is(err, ErrMissingAPIKey):
		return "sign in with `adreport login --id-token ...` or export GEMINI_API_KEY"
	case errors.Is(err, ErrEmptyResponse):
		return "the model returned no text; reword --goal/--issues/--tasks and try again"
	case errors.As(err, &auth):
		return "the API key was rejected; run `adreport login` again"
	case errors.As(err, &quota):
		return "the project's quota is exhausted; check billing in Google AI Studio"
	case errors.As(err, &rate):
		return "too many requests; wait a minute and try again"
	case errors.As(err, &model):
		return "check --model (e.g. gemini-2.5-flash)"
	case errors.As(err, &srv):
		return "the service is having trouble; try again later"
	case errors.As(err, &unr):
		return "check your network connection or base_url"
	}
	return ""
}
