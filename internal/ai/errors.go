package ai

import (
	"errors"
	"fmt"
	"time"
)

// ErrMissingAPIKey is returned before any request is made without a key.
var ErrMissingAPIKey = errors.New("gemini api key is missing (run `adreport login` or set GEMINI_API_KEY)")

// ErrEmptyResponse means the service answered 200 without any candidate text.
// The same prompt gets the same answer, so it is never retried.
var ErrEmptyResponse = errors.New("no text in response")

// EmptyResponseError carries why a 200 reply had no text. It matches
// ErrEmptyResponse.
type EmptyResponseError struct {
	BlockReason  string
	FinishReason string
}

func (e *EmptyResponseError) Error() string {
	switch {
	case e.BlockReason != "":
		return fmt.Sprintf("%v: prompt blocked (%s)", ErrEmptyResponse, e.BlockReason)
	case e.FinishReason != "":
		return fmt.Sprintf("%v: finish reason %s", ErrEmptyResponse, e.FinishReason)
	}
	return ErrEmptyResponse.Error()
}

func (e *EmptyResponseError) Is(target error) bool { return target == ErrEmptyResponse }

// APIError represents a structured API error response.
type APIError struct {
	StatusCode int            `json:"-"`
	Code       int            `json:"code,omitempty"`
	Status     string         `json:"status,omitempty"`
	Message    string         `json:"message,omitempty"`
	Raw        map[string]any `json:"-"`
	RequestID  string         `json:"-"`
}

func (e *APIError) Error() string {
	s := fmt.Sprintf("api error: status=%d", e.StatusCode)
	if e.Status != "" {
		s += " code=" + e.Status
	}
	if e.RequestID != "" {
		s += " request_id=" + e.RequestID
	}
	if e.Message != "" {
		s += " message=" + e.Message
	}
	return s
}

// AuthError indicates authentication/authorization failures (401/403).
type AuthError struct{ *APIError }

func (e *AuthError) Error() string {
	return fmt.Sprintf("authentication failed: %s", e.APIError.Error())
}

// RateLimitError indicates 429 responses and may include a Retry-After.
type RateLimitError struct {
	*APIError
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("rate limited: wait about %ds before retrying: %s", int(e.RetryAfter.Seconds()), e.APIError.Error())
	}
	return fmt.Sprintf("rate limited: %s", e.APIError.Error())
}

// ModelNotFoundError indicates the requested model is not available.
type ModelNotFoundError struct{ *APIError }

func (e *ModelNotFoundError) Error() string {
	return fmt.Sprintf("model not found: %s", e.APIError.Error())
}

// BadRequestError indicates a 400 validation problem.
type BadRequestError struct{ *APIError }

func (e *BadRequestError) Error() string { return fmt.Sprintf("bad request: %s", e.APIError.Error()) }

// QuotaExceededError indicates billing/quota problems.
type QuotaExceededError struct{ *APIError }

func (e *QuotaExceededError) Error() string {
	return fmt.Sprintf("quota exceeded: %s", e.APIError.Error())
}

// ServerError indicates 5xx errors from the provider.
type ServerError struct{ *APIError }

func (e *ServerError) Error() string { return fmt.Sprintf("provider error: %s", e.APIError.Error()) }

// UnreachableError indicates the endpoint could not be reached at all.
type UnreachableError struct {
	Host string
	Err  error
}

func (e *UnreachableError) Error() string {
	if e == nil {
		return "unreachable"
	}
	if e.Host != "" {
		return fmt.Sprintf("endpoint unreachable at %s: %v", e.Host, e.Err)
	}
	return fmt.Sprintf("endpoint unreachable: %v", e.Err)
}

func (e *UnreachableError) Unwrap() error { return e.Err }
