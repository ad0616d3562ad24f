// Package aigen talks to the external language-model collaborator that
// drafts buggy problems. The raw text it returns is never trusted; the
// normalizer decides whether it is usable.
package aigen

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	errs "bugdojo/pkg/errors"
)

// Generator produces raw problem-generation text for a language and topic.
type Generator interface {
	GenerateProblem(ctx context.Context, language, topic string) (string, error)
}

// Config holds connection settings for an OpenAI-compatible endpoint.
type Config struct {
	BaseURL        string `yaml:"base_url"`
	APIKey         string `yaml:"api_key"`
	Model          string `yaml:"model"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

// DefaultConfig returns client defaults; the API key always comes from
// deployment config.
func DefaultConfig() Config {
	return Config{
		BaseURL:        "https://api.openai.com",
		Model:          "gpt-4o-mini",
		TimeoutSeconds: 30,
	}
}

// Client calls the chat completions API with a forced JSON response format.
type Client struct {
	baseURL string
	apiKey  string
	model   string
	client  *http.Client
}

// NewClient constructs a Client from the given config.
func NewClient(cfg Config) *Client {
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		model:   cfg.Model,
		client:  &http.Client{Timeout: timeout},
	}
}

const systemPrompt = "You are a generator of algorithm problems that contain bugs. " +
	"Output only the requested JSON object with keys title, language, buggy_code, " +
	"test_case {name, input, expected_output} and hint_levels. " +
	"The code must run but must contain at least two bugs (one logic, one boundary). " +
	"Never output a correct implementation. " +
	"Include exactly one test case whose expected output differs from what the buggy code prints. " +
	"The code reads from stdin and writes only to stdout."

// GenerateProblem asks the model for one buggy problem and returns the raw
// message text. Timeouts are surfaced distinctly so callers can tell a slow
// upstream from a broken one.
func (c *Client) GenerateProblem(ctx context.Context, language, topic string) (string, error) {
	reqBody := map[string]any{
		"model": c.model,
		"messages": []map[string]string{
			{"role": "system", "content": systemPrompt},
			{"role": "user", "content": fmt.Sprintf("language=%s, topic=%s, one test case, expected_output in ascending order", language, topic)},
		},
		"temperature":     0.1,
		"max_tokens":      800,
		"response_format": map[string]string{"type": "json_object"},
	}
	bodyJSON, err := json.Marshal(reqBody)
	if err != nil {
		return "", errs.Wrap(err, errs.GenerateFailed)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/v1/chat/completions", bytes.NewReader(bodyJSON))
	if err != nil {
		return "", errs.Wrap(err, errs.GenerateFailed)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || isTimeout(err) {
			return "", errs.Wrap(err, errs.UpstreamTimeout)
		}
		return "", errs.Wrap(err, errs.GenerateFailed)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return "", errs.New(errs.GenerateFailed).WithMessagef("upstream returned HTTP %d", resp.StatusCode)
	}

	var raw struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return "", errs.Wrap(err, errs.GenerateFailed)
	}
	if len(raw.Choices) == 0 || raw.Choices[0].Message.Content == "" {
		return "", errs.New(errs.GenerateFailed).WithMessage("upstream returned no content")
	}
	return raw.Choices[0].Message.Content, nil
}

func isTimeout(err error) bool {
	var timeoutErr interface{ Timeout() bool }
	return errors.As(err, &timeoutErr) && timeoutErr.Timeout()
}
