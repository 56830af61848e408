package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"sync/atomic"
	"syscall"
	"testing"
	"time"
)

type ipv4Server struct {
	URL string
	srv *http.Server
	ln  net.Listener
}

func newIPv4Server(t *testing.T, handler http.Handler) *ipv4Server {
	t.Helper()
	ln, err := net.Listen("tcp4", "127.0.0.1:0")
	if err != nil {
		if errors.Is(err, syscall.EACCES) || errors.Is(err, syscall.EPERM) {
			t.Skipf("skipping test: cannot open local listener (%v)", err)
		}
		t.Fatalf("listen tcp4: %v", err)
	}
	srv := &http.Server{Handler: handler}
	s := &ipv4Server{
		URL: "http://" + ln.Addr().String(),
		srv: srv,
		ln:  ln,
	}
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			panic(fmt.Sprintf("test server serve: %v", err))
		}
	}()
	return s
}

func (s *ipv4Server) Close() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	_ = s.srv.Shutdown(ctx)
}

func okBody(text string) map[string]any {
	return map[string]any{
		"candidates": []any{map[string]any{
			"content":      map[string]any{"role": "model", "parts": []any{map[string]any{"text": text}}},
			"finishReason": "STOP",
		}},
		"usageMetadata": map[string]any{"promptTokenCount": 12, "candidatesTokenCount": 34, "totalTokenCount": 46},
		"modelVersion":  "gemini-2.5-flash",
	}
}

func TestGenerateSendsGeminiRequest(t *testing.T) {
	var got struct {
		path, key string
		body      map[string]any
	}
	srv := newIPv4Server(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got.path = r.URL.Path
		got.key = r.Header.Get("x-goog-api-key")
		_ = json.NewDecoder(r.Body).Decode(&got.body)
		_ = json.NewEncoder(w).Encode(okBody("・好調です"))
	}))
	defer srv.Close()

	c := NewClientWithBaseURL("k-123", 2*time.Second, srv.URL)
	resp, err := c.Generate(context.Background(), GenerateRequest{
		Model:  "gemini-2.5-flash",
		System: "be brief",
		Prompt: "hello",
	})
	if err != nil {
		t.Fatalf("Generate returned error: %v", err)
	}
	if resp.Text != "・好調です" {
		t.Fatalf("unexpected text: %q", resp.Text)
	}
	if resp.Usage.TotalTokens != 46 || resp.FinishReason != "STOP" {
		t.Fatalf("unexpected metadata: %+v", resp)
	}
	if got.path != "/models/gemini-2.5-flash:generateContent" {
		t.Fatalf("unexpected path %q", got.path)
	}
	if got.key != "k-123" {
		t.Fatalf("api key not sent in header, got %q", got.key)
	}
	contents := got.body["contents"].([]any)
	part := contents[0].(map[string]any)["parts"].([]any)[0].(map[string]any)
	if part["text"] != "hello" {
		t.Fatalf("prompt not sent: %v", got.body)
	}
	sys := got.body["systemInstruction"].(map[string]any)["parts"].([]any)[0].(map[string]any)
	if sys["text"] != "be brief" {
		t.Fatalf("system instruction not sent: %v", got.body)
	}
	if _, ok := got.body["generationConfig"]; ok {
		t.Fatalf("generationConfig should be omitted when unset")
	}
}

func TestGenerateMissingKey(t *testing.T) {
	c := NewClient("", time.Second)
	_, err := c.Generate(context.Background(), GenerateRequest{Prompt: "hi"})
	if !errors.Is(err, ErrMissingAPIKey) {
		t.Fatalf("expected ErrMissingAPIKey, got %v", err)
	}
}

func TestGenerateEmptyCandidates(t *testing.T) {
	srv := newIPv4Server(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"candidates":[]}`))
	}))
	defer srv.Close()

	c := NewClientWithBaseURL("k", time.Second, srv.URL)
	_, err := c.Generate(context.Background(), GenerateRequest{Prompt: "hi"})
	if !errors.Is(err, ErrEmptyResponse) {
		t.Fatalf("expected ErrEmptyResponse, got %v", err)
	}
}

func TestErrorClassification(t *testing.T) {
	cases := []struct {
		status int
		msg    string
		check  func(error) bool
	}{
		{401, "unauthenticated", func(err error) bool { var e *AuthError; return errors.As(err, &e) }},
		{400, "API key not valid. Please pass a valid API key.", func(err error) bool { var e *AuthError; return errors.As(err, &e) }},
		{400, "bad field", func(err error) bool { var e *BadRequestError; return errors.As(err, &e) }},
		{429, "Resource has been exhausted", func(err error) bool { var e *RateLimitError; return errors.As(err, &e) }},
		{429, "You exceeded your current quota, please check your plan and billing details.", func(err error) bool { var e *QuotaExceededError; return errors.As(err, &e) }},
		{404, "models/foo is not found for API version v1beta", func(err error) bool { var e *ModelNotFoundError; return errors.As(err, &e) }},
		{503, "overloaded", func(err error) bool { var e *ServerError; return errors.As(err, &e) }},
	}
	for _, tc := range cases {
		var calls int32
		srv := newIPv4Server(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			atomic.AddInt32(&calls, 1)
			w.Header().Set("X-Request-Id", "req_test_123")
			w.WriteHeader(tc.status)
			_ = json.NewEncoder(w).Encode(map[string]any{"error": map[string]any{"code": tc.status, "message": tc.msg, "status": "X"}})
		}))
		c := NewClientWithBaseURL("k", time.Second, srv.URL)
		_, err := c.Generate(context.Background(), GenerateRequest{Prompt: "hi"})
		srv.Close()
		if err == nil || !tc.check(err) {
			t.Fatalf("status %d %q: unexpected error type %T: %v", tc.status, tc.msg, err, err)
		}
		if !strings.Contains(err.Error(), "req_test_123") {
			t.Fatalf("expected request id in error, got: %v", err)
		}
		if atomic.LoadInt32(&calls) != 1 {
			t.Fatalf("client must not retry on its own, got %d calls", calls)
		}
	}
}

func TestRateLimitCarriesRetryAfter(t *testing.T) {
	srv := newIPv4Server(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "7")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"code":429,"message":"slow down","status":"RESOURCE_EXHAUSTED"}}`))
	}))
	defer srv.Close()

	c := NewClientWithBaseURL("k", time.Second, srv.URL)
	_, err := c.Generate(context.Background(), GenerateRequest{Prompt: "hi"})
	var rl *RateLimitError
	if !errors.As(err, &rl) {
		t.Fatalf("expected RateLimitError, got %v", err)
	}
	if rl.RetryAfter != 7*time.Second {
		t.Fatalf("RetryAfter = %v", rl.RetryAfter)
	}
	if Hint(err) == "" {
		t.Fatalf("expected a hint for rate limit errors")
	}
}

func TestUnreachableHost(t *testing.T) {
	ln, err := net.Listen("tcp4", "127.0.0.1:0")
	if err != nil {
		t.Skipf("cannot open local listener: %v", err)
	}
	addr := ln.Addr().String()
	_ = ln.Close()

	c := NewClientWithBaseURL("k", time.Second, "http://"+addr)
	_, err = c.Generate(context.Background(), GenerateRequest{Prompt: "hi"})
	var ue *UnreachableError
	if !errors.As(err, &ue) {
		t.Fatalf("expected UnreachableError, got %T %v", err, err)
	}
}

func TestGetRuntime(t *testing.T) {
	rt, err := GetRuntime(ProviderGemini, RuntimeConfig{APIKey: "k"})
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := rt.(*Client); !ok {
		t.Fatalf("gemini provider should build *Client, got %T", rt)
	}
	if _, err := GetRuntime("openai", RuntimeConfig{}); err == nil {
		t.Fatalf("expected unknown provider error")
	}
	if _, err := GetRuntime(ProviderGenAI, RuntimeConfig{}); !errors.Is(err, ErrMissingAPIKey) {
		t.Fatalf("genai without key: %v", err)
	}
}

func TestEstimateCost(t *testing.T) {
	cost, ok := EstimateCostUSD("gemini-2.5-flash", 1000, 1000)
	if !ok || cost <= 0 {
		t.Fatalf("expected a positive estimate, got %v %v", cost, ok)
	}
	if _, ok := EstimateCostUSD("nope", 1, 1); ok {
		t.Fatalf("unknown model should not be priced")
	}
}
