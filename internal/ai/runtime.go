package ai

import "context"

// Runtime produces text from a prompt. Implementations make a single
// attempt; wrap them in Retrying for backoff.
type Runtime interface {
	Generate(ctx context.Context, req GenerateRequest) (*GenerateResponse, error)
}

// Provider identifiers accepted by GetRuntime.
const (
	// ProviderGemini talks to the generateContent REST endpoint directly.
	ProviderGemini = "gemini"
	// ProviderGenAI goes through the google.golang.org/genai SDK.
	ProviderGenAI = "genai"
)

// DefaultModel is used when a request leaves Model empty.
const DefaultModel = "gemini-2.5-flash"

// DefaultBaseURL is the public Gemini API root.
const DefaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"

// GenerateRequest is a single-turn prompt with an optional system
// instruction.
type GenerateRequest struct {
	Model       string
	System      string
	Prompt      string
	MaxTokens   int
	Temperature float64
}

// Usage mirrors the token counts reported by the service.
type Usage struct {
	PromptTokens     int `json:"promptTokenCount"`
	CompletionTokens int `json:"candidatesTokenCount"`
	TotalTokens      int `json:"totalTokenCount"`
}

// GenerateResponse carries the first candidate's text.
type GenerateResponse struct {
	Text         string
	Model        string
	FinishReason string
	Usage        Usage
	RequestID    string
}
