// Package vapi talks to the VAPI voice-assistant REST API.
package vapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

const DefaultBaseURL = "https://api.vapi.ai"

// Assistant is the subset of the VAPI assistant resource DreamSeed reads.
// Model is kept raw so unknown provider settings survive a round trip.
type Assistant struct {
	ID    string         `json:"id"`
	Name  string         `json:"name,omitempty"`
	Model map[string]any `json:"model,omitempty"`
}

// SystemPrompt returns the content of the first system message, if any.
func (a Assistant) SystemPrompt() string {
	msgs, _ := a.Model["messages"].([]any)
	for _, m := range msgs {
		msg, _ := m.(map[string]any)
		if msg["role"] == "system" {
			content, _ := msg["content"].(string)
			return content
		}
	}
	return ""
}

type Client struct {
	apiKey  string
	baseURL string
	client  *http.Client
	logger  *slog.Logger
}

func NewClient(apiKey, baseURL string, logger *slog.Logger) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		apiKey:  apiKey,
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: 15 * time.Second},
		logger:  logger,
	}
}

// GetAssistant fetches an assistant by id.
func (c *Client) GetAssistant(ctx context.Context, id string) (*Assistant, error) {
	var a Assistant
	if err := c.do(ctx, http.MethodGet, "/assistant/"+id, nil, &a); err != nil {
		return nil, fmt.Errorf("get assistant: %w", err)
	}
	return &a, nil
}

// UpdateSystemPrompt replaces the assistant's model messages with a single
// system message, keeping every other model setting.
func (c *Client) UpdateSystemPrompt(ctx context.Context, id, prompt string) (*Assistant, error) {
	current, err := c.GetAssistant(ctx, id)
	if err != nil {
		return nil, err
	}

	model := make(map[string]any, len(current.Model)+1)
	for k, v := range current.Model {
		model[k] = v
	}
	model["messages"] = []map[string]string{{"role": "system", "content": prompt}}

	var updated Assistant
	if err := c.do(ctx, http.MethodPatch, "/assistant/"+id, map[string]any{"model": model}, &updated); err != nil {
		return nil, fmt.Errorf("update assistant: %w", err)
	}
	c.logger.Info("vapi assistant prompt updated", "assistant_id", id, "prompt_chars", len(prompt))
	return &updated, nil
}

func (c *Client) do(ctx context.Context, method, path string, payload, out any) error {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("marshal payload: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("vapi request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("vapi status %d: %s", resp.StatusCode, strings.TrimSpace(string(respBody)))
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("parse vapi response: %w", err)
	}
	return nil
}
