// Copyright 2026 Teradata
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//	http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
// Package anthropic adapts the Anthropic messages API to llm.Provider.
package anthropic

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/teradata-labs/pulse/pkg/llm"
)

const (
	// DefaultModel is the default Claude model.
	DefaultModel = "claude-sonnet-4-5-20250929"
	// DefaultEndpoint is the default Anthropic API endpoint.
	DefaultEndpoint = "https://api.anthropic.com/v1/messages"
	// DefaultTimeout is the default HTTP timeout.
	DefaultTimeout = 120 * time.Second

	apiVersion = "2023-06-01"
)

// Config holds configuration for the Anthropic client.
type Config struct {
	APIKey   string
	Model    string
	Endpoint string
	Timeout  time.Duration
}

// Client implements llm.Provider for Anthropic's Claude API.
type Client struct {
	cfg        Config
	httpClient *http.Client
}

// NewClient creates an Anthropic client with defaults applied.
func NewClient(cfg Config) *Client {
	if cfg.Model == "" {
		if envModel := os.Getenv("ANTHROPIC_DEFAULT_MODEL"); envModel != "" {
			cfg.Model = envModel
		} else {
			cfg.Model = DefaultModel
		}
	}
	if cfg.Endpoint == "" {
		cfg.Endpoint = DefaultEndpoint
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
	}
}

// Name returns the provider identifier.
func (c *Client) Name() string { return "anthropic" }

// Model returns the configured model name.
func (c *Client) Model() string { return c.cfg.Model }

type messagesRequest struct {
	Model       string    `json:"model"`
	MaxTokens   int       `json:"max_tokens"`
	Temperature float64   `json:"temperature,omitempty"`
	Messages    []message `json:"messages"`
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type messagesResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	Usage struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
	Error *struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

// Complete sends one prompt and returns the completion.
func (c *Client) Complete(ctx context.Context, req llm.Request) (*llm.Response, error) {
	if c.cfg.APIKey == "" {
		return nil, llm.NewError(llm.KindAuth, "no API key configured")
	}

	maxTokens := req.MaxOutputTokens
	if maxTokens <= 0 {
		maxTokens = 4096
	}
	body, err := json.Marshal(messagesRequest{
		Model:       c.cfg.Model,
		MaxTokens:   maxTokens,
		Temperature: req.Temperature,
		Messages:    []message{{Role: "user", Content: req.Prompt}},
	})
	if err != nil {
		return nil, llm.NewError(llm.KindBadInput, "marshaling request: %v", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.Endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, llm.NewError(llm.KindBadInput, "building request: %v", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-api-key", c.cfg.APIKey)
	httpReq.Header.Set("anthropic-version", apiVersion)

	started := time.Now()
	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, classifyTransport(err)
	}
	defer httpResp.Body.Close()

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, llm.NewError(llm.KindNetwork, "reading response: %v", err)
	}
	if httpResp.StatusCode != http.StatusOK {
		return nil, classifyStatus(httpResp.StatusCode, respBody)
	}

	var parsed messagesResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return nil, llm.NewError(llm.KindProvider, "decoding response: %v", err)
	}
	if parsed.Error != nil {
		return nil, llm.NewError(llm.KindProvider, "%s: %s", parsed.Error.Type, parsed.Error.Message)
	}

	text := ""
	for _, block := range parsed.Content {
		if block.Type == "text" {
			text += block.Text
		}
	}
	if text == "" {
		return nil, llm.NewError(llm.KindProvider, "response contained no text blocks")
	}

	return &llm.Response{
		Text:         text,
		InputTokens:  parsed.Usage.InputTokens,
		OutputTokens: parsed.Usage.OutputTokens,
		WallTime:     time.Since(started),
	}, nil
}

func classifyTransport(err error) *llm.Error {
	if errors.Is(err, context.DeadlineExceeded) {
		return llm.NewError(llm.KindTimeout, "request timed out")
	}
	if errors.Is(err, context.Canceled) {
		return llm.NewError(llm.KindTimeout, "request cancelled")
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return llm.NewError(llm.KindTimeout, "request timed out: %v", err)
	}
	return llm.NewError(llm.KindNetwork, "%v", err)
}

func classifyStatus(status int, body []byte) *llm.Error {
	var apiErr struct {
		Error struct {
			Type    string `json:"type"`
			Message string `json:"message"`
		} `json:"error"`
	}
	msg := fmt.Sprintf("status %d", status)
	if json.Unmarshal(body, &apiErr) == nil && apiErr.Error.Message != "" {
		msg = fmt.Sprintf("status %d: %s", status, apiErr.Error.Message)
	}

	switch status {
	case http.StatusUnauthorized, http.StatusForbidden:
		return llm.NewError(llm.KindAuth, "%s", msg)
	case http.StatusTooManyRequests:
		return llm.NewError(llm.KindRateLimit, "%s", msg)
	case http.StatusBadRequest, http.StatusRequestEntityTooLarge:
		return llm.NewError(llm.KindBadInput, "%s", msg)
	case http.StatusPaymentRequired:
		return llm.NewError(llm.KindQuota, "%s", msg)
	}
	if status >= 500 {
		return llm.NewError(llm.KindProvider, "%s", msg)
	}
	return llm.NewError(llm.KindProvider, "%s", msg)
}

// Ensure Client implements llm.Provider.
var _ llm.Provider = (*Client)(nil)
