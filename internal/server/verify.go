package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

// DefaultTokenInfoURL is Google's ID token introspection endpoint.
const DefaultTokenInfoURL = "https://oauth2.googleapis.com/tokeninfo"

// ErrInvalidToken means the token introspection endpoint rejected the token.
var ErrInvalidToken = errors.New("invalid token")

// Claims are the tokeninfo fields we look at.
type Claims struct {
	Subject       string `json:"sub"`
	Email         string `json:"email"`
	EmailVerified string `json:"email_verified"`
	HostedDomain  string `json:"hd"`
	Audience      string `json:"aud"`
	Error         string `json:"error"`
	Description   string `json:"error_description"`
}

// Verifier checks a Google ID token.
type Verifier interface {
	Verify(ctx context.Context, idToken string) (*Claims, error)
}

// TokenInfoVerifier asks the tokeninfo endpoint about each token.
type TokenInfoVerifier struct {
	URL        string
	HTTPClient *http.Client
}

// NewTokenInfoVerifier returns a verifier for endpoint (DefaultTokenInfoURL
// when empty).
func NewTokenInfoVerifier(endpoint string, timeout time.Duration) *TokenInfoVerifier {
	if endpoint == "" {
		endpoint = DefaultTokenInfoURL
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &TokenInfoVerifier{URL: endpoint, HTTPClient: &http.Client{Timeout: timeout}}
}

// Verify returns ErrInvalidToken when the endpoint answers non-2xx or carries
// an error field. Transport failures are returned wrapped.
func (v *TokenInfoVerifier) Verify(ctx context.Context, idToken string) (*Claims, error) {
	u, err := url.Parse(v.URL)
	if err != nil {
		return nil, fmt.Errorf("tokeninfo url: %w", err)
	}
	q := u.Query()
	q.Set("id_token", idToken)
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("create tokeninfo request: %w", err)
	}
	resp, err := v.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("tokeninfo: %w", err)
	}
	defer resp.Body.Close()

	var claims Claims
	decodeErr := json.NewDecoder(resp.Body).Decode(&claims)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 || claims.Error != "" {
		return nil, ErrInvalidToken
	}
	if decodeErr != nil {
		return nil, fmt.Errorf("decode tokeninfo: %w", decodeErr)
	}
	return &claims, nil
}
