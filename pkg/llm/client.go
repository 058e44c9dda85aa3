// Package llm holds the text-generation client for the Anthropic
// messages API.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/pkg/errors"
)

const (
	defaultBaseURL   = "https://api.anthropic.com"
	apiVersion       = "2023-06-01"
	defaultMaxTokens = 4096
	defaultTimeout   = 120 * time.Second
)

// AvailableModels lists the generation models offered to tasks. The first
// entry is the default.
var AvailableModels = []string{
	"claude-sonnet-4-6",
	"claude-opus-4-6",
	"claude-haiku-4-5-20251001",
}

// SystemPrompt fixes the writing persona and the grounding rules for
// every generation.
const SystemPrompt = `You are a professional content writer for the Chief of Staff Network (CoSN), a community for Chiefs of Staff and operators at tech companies. Your writing is professional but warm, direct, and community-focused.

Rules:
- Never fabricate events, links, dates, or statistics.
- If data is missing, note it with [MISSING: description] rather than inventing.
- Follow the provided template structure exactly.
- Do not add sections that are not in the template.
- Write in second person for calls-to-action ("join us", "register now").`

// Client calls the messages API. Generation may take tens of seconds; the
// call is synchronous and is never retried, so a failure surfaces as the
// run's terminal error.
type Client struct {
	apiKey     string
	baseURL    string
	maxTokens  int
	httpClient *http.Client
}

type ClientConfig struct {
	APIKey     string
	BaseURL    string
	MaxTokens  int
	Timeout    time.Duration
	HTTPClient *http.Client
}

func NewClient(config ClientConfig) *Client {
	if strings.TrimSpace(config.BaseURL) == "" {
		config.BaseURL = defaultBaseURL
	}
	if config.MaxTokens <= 0 {
		config.MaxTokens = defaultMaxTokens
	}
	if config.Timeout <= 0 {
		config.Timeout = defaultTimeout
	}
	if config.HTTPClient == nil {
		config.HTTPClient = &http.Client{Timeout: config.Timeout}
	}
	return &Client{
		apiKey:     strings.TrimSpace(config.APIKey),
		baseURL:    strings.TrimSuffix(config.BaseURL, "/"),
		maxTokens:  config.MaxTokens,
		httpClient: config.HTTPClient,
	}
}

// Available reports whether an API key is configured.
func (c *Client) Available() bool {
	return c.apiKey != ""
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Generate sends the assembled prompt and returns the generated text.
func (c *Client) Generate(ctx context.Context, prompt, model string) (string, error) {
	if !c.Available() {
		return "", errors.New("generation API key is not configured")
	}
	if strings.TrimSpace(model) == "" {
		return "", errors.New("model is required")
	}

	payload := map[string]interface{}{
		"model":      model,
		"max_tokens": c.maxTokens,
		"system":     SystemPrompt,
		"messages":   []message{{Role: "user", Content: prompt}},
	}
	encoded, err := json.Marshal(payload)
	if err != nil {
		return "", errors.Wrap(err, "failed to marshal generation payload")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/messages", bytes.NewReader(encoded))
	if err != nil {
		return "", errors.Wrap(err, "failed to build generation request")
	}
	req.Header.Set("x-api-key", c.apiKey)
	req.Header.Set("anthropic-version", apiVersion)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", errors.Wrap(err, "generation request failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return "", errors.Errorf("generation API returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var decoded struct {
		Content []struct {
			Type string `json:"type"`
			Text string `json:"text"`
		} `json:"content"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return "", errors.Wrap(err, "failed to decode generation response")
	}

	var sb strings.Builder
	for _, block := range decoded.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}
	text := strings.TrimSpace(sb.String())
	if text == "" {
		return "", errors.New("generation API returned no text content")
	}
	return text, nil
}
