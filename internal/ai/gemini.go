// ABOUTME: Wire types and HTTP client for the Gemini generateContent endpoint
// ABOUTME: Requests are rate limited and bounded by a per-call timeout

package ai

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"golang.org/x/time/rate"
)

// ErrGatewayFailure wraps every failure to obtain generated content.
var ErrGatewayFailure = errors.New("ai gateway failure")

// Defaults for Options
const (
	DefaultBaseURL = "https://generativelanguage.googleapis.com"
	DefaultModel   = "gemini-2.5-flash"
	DefaultTimeout = 30 * time.Second
)

// Schema is the subset of the OpenAPI schema Gemini accepts for structured output.
type Schema struct {
	Type        string             `json:"type"`
	Description string             `json:"description,omitempty"`
	Items       *Schema            `json:"items,omitempty"`
	Properties  map[string]*Schema `json:"properties,omitempty"`
}

type part struct {
	Text string `json:"text"`
}

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

type generationConfig struct {
	ResponseMimeType string  `json:"responseMimeType,omitempty"`
	ResponseSchema   *Schema `json:"responseSchema,omitempty"`
}

type generateRequest struct {
	Contents         []content         `json:"contents"`
	GenerationConfig *generationConfig `json:"generationConfig,omitempty"`
}

type generateResponse struct {
	Candidates []struct {
		Content content `json:"content"`
	} `json:"candidates"`
}

// text joins the parts of the first candidate.
func (r *generateResponse) text() string {
	if len(r.Candidates) == 0 {
		return ""
	}
	var b strings.Builder
	for _, p := range r.Candidates[0].Content.Parts {
		b.WriteString(p.Text)
	}
	return b.String()
}

// Options configures a Client
type Options struct {
	APIKey            string
	BaseURL           string
	Model             string
	Timeout           time.Duration
	RequestsPerMinute int // zero disables the limit
}

// Client implements Gateway over HTTP.
type Client struct {
	http    *resty.Client
	apiKey  string
	model   string
	limiter *rate.Limiter
	logger  *slog.Logger
}

// NewClient creates a Client. Pass nil logger for default.
func NewClient(opts Options, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	if opts.Model == "" {
		opts.Model = DefaultModel
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}

	limit := rate.Inf
	if opts.RequestsPerMinute > 0 {
		limit = rate.Every(time.Minute / time.Duration(opts.RequestsPerMinute))
	}

	http := resty.New().
		SetBaseURL(strings.TrimRight(opts.BaseURL, "/")).
		SetTimeout(opts.Timeout).
		SetHeader("Content-Type", "application/json")

	return &Client{
		http:    http,
		apiKey:  opts.APIKey,
		model:   opts.Model,
		limiter: rate.NewLimiter(limit, 1),
		logger:  logger.With("component", "ai"),
	}
}

// generate sends one prompt and returns the answer text.
func (c *Client) generate(ctx context.Context, prompt string, schema *Schema) (string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("%w: rate limit: %w", ErrGatewayFailure, err)
	}

	req := generateRequest{
		Contents: []content{{Role: "user", Parts: []part{{Text: prompt}}}},
	}
	if schema != nil {
		req.GenerationConfig = &generationConfig{
			ResponseMimeType: "application/json",
			ResponseSchema:   schema,
		}
	}

	var out generateResponse
	start := time.Now()
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParam("key", c.apiKey).
		SetBody(req).
		SetResult(&out).
		Post("/v1beta/models/" + c.model + ":generateContent")
	if err != nil {
		c.logger.Error("generate request failed", "error", err)
		return "", fmt.Errorf("%w: %w", ErrGatewayFailure, err)
	}
	if resp.IsError() {
		c.logger.Error("generate request rejected", "status", resp.StatusCode(), "body", truncate(resp.String(), 200))
		return "", fmt.Errorf("%w: status %d", ErrGatewayFailure, resp.StatusCode())
	}

	text := out.text()
	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("%w: empty response", ErrGatewayFailure)
	}

	c.logger.Debug("generated content", "model", c.model, "chars", len(text), "duration", time.Since(start))
	return text, nil
}

// stripFence removes a surrounding markdown code fence from a JSON answer.
func stripFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimPrefix(s, "json")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
