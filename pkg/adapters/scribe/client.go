// Package scribe issues single-use tokens for ElevenLabs realtime transcription.
package scribe

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/aretw0/haptix/pkg/domain"
)

const (
	// DefaultBaseURL is the production API host.
	DefaultBaseURL = "https://api.elevenlabs.io"
	tokenPath      = "/v1/single-use-token/realtime_scribe"
)

// ErrEmptyToken is returned when the vendor answers without a token.
var ErrEmptyToken = errors.New("scribe: empty token in response")

// Client implements ports.TokenIssuer.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// Option configures the Client.
type Option func(*Client)

// WithBaseURL overrides the API host.
func WithBaseURL(u string) Option {
	return func(c *Client) {
		if u != "" {
			c.baseURL = strings.TrimRight(u, "/")
		}
	}
}

// WithHTTPClient replaces the HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithTimeout sets the per-request timeout of the default HTTP client.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.httpClient = &http.Client{Timeout: d}
		}
	}
}

// New creates a client authenticated with an API key.
func New(apiKey string, opts ...Option) *Client {
	c := &Client{
		baseURL:    DefaultBaseURL,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// IssueToken requests a new single-use realtime_scribe token.
func (c *Client) IssueToken(ctx context.Context) (domain.ScribeToken, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+tokenPath, nil)
	if err != nil {
		return domain.ScribeToken{}, fmt.Errorf("scribe: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("xi-api-key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return domain.ScribeToken{}, fmt.Errorf("scribe: request token: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return domain.ScribeToken{}, fmt.Errorf("scribe: unexpected status %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet)))
	}

	var tok domain.ScribeToken
	if err := json.NewDecoder(resp.Body).Decode(&tok); err != nil {
		return domain.ScribeToken{}, fmt.Errorf("scribe: decode response: %w", err)
	}
	if tok.Token == "" {
		return domain.ScribeToken{}, ErrEmptyToken
	}
	return tok, nil
}
