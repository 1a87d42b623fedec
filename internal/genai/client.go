// Package genai calls the Gemini generateContent endpoint.
package genai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/wondermap/wondermap-api/internal/remote"
)

const (
	httpTimeout = 60 * time.Second
	defaultURL  = "https://generativelanguage.googleapis.com/v1beta"
)

// EmptyReply is returned in place of a response that carries no text.
const EmptyReply = "（AI 沒有回覆內容）"

// ErrNotConfigured is returned when no API key was supplied.
var ErrNotConfigured = errors.New("text generation is not configured")

// Client generates text from a prompt. Calls are throttled by a token bucket
// shared by every caller of the client.
type Client struct {
	apiKey  string
	model   string
	baseURL string
	client  *http.Client
	limiter *rate.Limiter
	retry   remote.Retry
}

// NewClient constructs a Client for model (e.g. "models/gemini-2.0-flash")
// allowing rps calls per second. An empty apiKey yields a client whose calls
// fail with ErrNotConfigured.
func NewClient(apiKey, model string, rps float64) *Client {
	return NewClientWithURL(defaultURL, apiKey, model, rps)
}

// NewClientWithURL constructs a Client pointing at a custom base URL (for tests).
func NewClientWithURL(baseURL, apiKey, model string, rps float64) *Client {
	limit := rate.Inf
	if rps > 0 {
		limit = rate.Limit(rps)
	}
	return &Client{
		apiKey:  apiKey,
		model:   strings.TrimPrefix(model, "/"),
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  remote.NewHTTPClient(httpTimeout),
		limiter: rate.NewLimiter(limit, 1),
		retry:   remote.Retry{Attempts: 2, Backoff: 500 * time.Millisecond},
	}
}

// Configured reports whether the client has an API key.
func (c *Client) Configured() bool {
	return c.apiKey != ""
}

type part struct {
	Text string `json:"text"`
}

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

type generateRequest struct {
	Contents []content `json:"contents"`
}

type generateResponse struct {
	Candidates []struct {
		Content content `json:"content"`
	} `json:"candidates"`
}

// Generate sends prompt as a single user turn and returns the first
// candidate's text, or EmptyReply when the response has none.
func (c *Client) Generate(ctx context.Context, prompt string) (string, error) {
	if !c.Configured() {
		return "", ErrNotConfigured
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("waiting for generation slot: %w", err)
	}

	body, err := json.Marshal(generateRequest{
		Contents: []content{{Role: "user", Parts: []part{{Text: prompt}}}},
	})
	if err != nil {
		return "", fmt.Errorf("marshaling generate request: %w", err)
	}

	endpoint := c.baseURL + "/" + c.model + ":generateContent"

	var raw generateResponse
	err = remote.DoJSON(ctx, c.client, c.retry, func() (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("x-goog-api-key", c.apiKey)
		return req, nil
	}, &raw)
	if err != nil {
		return "", fmt.Errorf("gemini generate: %w", err)
	}

	if len(raw.Candidates) == 0 || len(raw.Candidates[0].Content.Parts) == 0 {
		return EmptyReply, nil
	}
	text := strings.TrimSpace(raw.Candidates[0].Content.Parts[0].Text)
	if text == "" {
		return EmptyReply, nil
	}
	return text, nil
}
