package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// KeyError is a non-2xx answer from the key endpoint.
type KeyError struct {
	StatusCode int
	Message    string
}

func (e *KeyError) Error() string {
	return fmt.Sprintf("key endpoint: %d %s", e.StatusCode, e.Message)
}

// FetchAPIKey exchanges a Google ID token for the shared Gemini key.
// Failures are not retried.
func FetchAPIKey(ctx context.Context, endpoint, idToken string) (string, error) {
	if endpoint == "" {
		return "", fmt.Errorf("key endpoint is not configured (set key_endpoint)")
	}
	b, err := json.Marshal(KeyRequest{IDToken: idToken})
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(b))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	client := &http.Client{Timeout: 30 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("request key: %w", err)
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var eb errorBody
		msg := strings.TrimSpace(string(raw))
		if json.Unmarshal(raw, &eb) == nil && eb.Error != "" {
			msg = eb.Error
		}
		return "", &KeyError{StatusCode: resp.StatusCode, Message: msg}
	}
	var kr KeyResponse
	if err := json.Unmarshal(raw, &kr); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	if kr.APIKey == "" {
		return "", fmt.Errorf("key endpoint returned no apiKey")
	}
	return kr.APIKey, nil
}
