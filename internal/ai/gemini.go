// Package ai wraps the Gemini generateContent API behind a fail-soft text
// generator. Callers always get a string back: on any transport error,
// non-2xx status, timeout or malformed payload the fixed Fallback text is
// returned instead of an error. AI degradation must never fail a request.
package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Fallback is substituted whenever the backend cannot produce text.
const Fallback = "Sorry, the AI feature is currently unavailable."

const (
	defaultBaseURL = "https://generativelanguage.googleapis.com"
	defaultModel   = "gemini-2.0-flash"
	defaultTimeout = 10 * time.Second
)

// Client calls the text-generation backend.
type Client struct {
	baseURL string
	apiKey  string
	model   string
	http    *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL points the client at a different API host, mainly for tests.
func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = u }
}

// WithTimeout bounds each backend call. A hung call returns Fallback once the
// timeout expires.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.http.Timeout = d }
}

// WithModel overrides the model name.
func WithModel(m string) Option {
	return func(c *Client) { c.model = m }
}

// New returns a Gemini client.
func New(apiKey string, opts ...Option) *Client {
	c := &Client{
		baseURL: defaultBaseURL,
		apiKey:  apiKey,
		model:   defaultModel,
		http:    &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// GenerateDescription drafts a one-paragraph description for a task title.
func (c *Client) GenerateDescription(ctx context.Context, title string) string {
	prompt := fmt.Sprintf(
		`Generate a concise, one-paragraph description for a to-do list task titled %q. Focus on the key action or goal.`,
		title)
	return c.complete(ctx, prompt)
}

// SuggestSubtasks drafts a markdown checklist of sub-tasks for a task.
func (c *Client) SuggestSubtasks(ctx context.Context, title, description string) string {
	prompt := fmt.Sprintf(
		"Based on the task titled %q with the description %q, generate a short markdown checklist of 3-5 sub-tasks. Output only the markdown checklist. For example: \n- [ ] Sub-task 1\n- [ ] Sub-task 2",
		title, description)
	return c.complete(ctx, prompt)
}

type generateRequest struct {
	Contents []content `json:"contents"`
}

type content struct {
	Parts []part `json:"parts"`
}

type part struct {
	Text string `json:"text"`
}

type generateResponse struct {
	Candidates []struct {
		Content struct {
			Parts []part `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
}

func (c *Client) complete(ctx context.Context, prompt string) string {
	body, err := json.Marshal(generateRequest{
		Contents: []content{{Parts: []part{{Text: prompt}}}},
	})
	if err != nil {
		return Fallback
	}

	url := fmt.Sprintf("%s/v1beta/models/%s:generateContent?key=%s", c.baseURL, c.model, c.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return Fallback
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return Fallback
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return Fallback
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return Fallback
	}
	var out generateResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return Fallback
	}
	if len(out.Candidates) == 0 || len(out.Candidates[0].Content.Parts) == 0 {
		return Fallback
	}
	text := out.Candidates[0].Content.Parts[0].Text
	if text == "" {
		return Fallback
	}
	return text
}
