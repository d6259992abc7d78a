package chat

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"
)

// ClientConfig configures the backend client.
type ClientConfig struct {
	BaseURL  string        // e.g. "http://localhost:3000"
	Timeout  time.Duration // HTTP request timeout
	Language string        // response language hint sent with each query
	Token    string        // optional bearer token
}

// DefaultClientConfig returns sensible defaults.
func DefaultClientConfig() *ClientConfig {
	return &ClientConfig{
		BaseURL:  "http://localhost:3000",
		Timeout:  120 * time.Second,
		Language: "en",
	}
}

// Client talks to the assistant backend: it submits user queries and
// manages the stored conversation history.
type Client struct {
	config     *ClientConfig
	httpClient *http.Client
	logger     zerolog.Logger

	onError func(err error)
}

// NewClient creates a backend client.
func NewClient(cfg *ClientConfig, logger zerolog.Logger) *Client {
	if cfg == nil {
		cfg = DefaultClientConfig()
	}
	return &Client{
		config: cfg,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		logger: logger.With().Str("component", "chat-client").Logger(),
	}
}

// SetErrorHandler sets the callback for request errors.
func (c *Client) SetErrorHandler(handler func(err error)) {
	c.onError = handler
}

// Ask submits a user query and returns the assistant's animated reply.
func (c *Client) Ask(ctx context.Context, query string) (*Response, error) {
	body, err := json.Marshal(queryRequest{Query: query, Language: c.config.Language})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	env, err := c.do(ctx, http.MethodPost, "/api/v1/llm/get-response", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}

	c.logger.Debug().
		Int("messages", len(env.Data.Messages)).
		Int("products", len(env.Data.Products)).
		Msg("response received")

	return &Response{
		Messages: env.Data.Messages,
		Products: env.Data.Products,
	}, nil
}

// History fetches the stored conversation.
func (c *Client) History(ctx context.Context) ([]HistoryEntry, error) {
	env, err := c.do(ctx, http.MethodGet, "/api/v1/llm/chat-history", nil)
	if err != nil {
		return nil, err
	}
	return env.Data.History, nil
}

// ClearHistory wipes the stored conversation.
func (c *Client) ClearHistory(ctx context.Context) error {
	_, err := c.do(ctx, http.MethodPost, "/api/v1/llm/clear-history", nil)
	return err
}

func (c *Client) do(ctx context.Context, method, path string, body io.Reader) (*envelope, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.config.BaseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.config.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.config.Token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.reportError(err)
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		err := fmt.Errorf("backend returned %d: %s", resp.StatusCode, truncateForLog(string(respBody), 200))
		c.reportError(err)
		return nil, err
	}

	var env envelope
	if err := json.Unmarshal(respBody, &env); err != nil {
		c.logger.Error().Err(err).Str("bodyPreview", truncateForLog(string(respBody), 500)).Msg("failed to parse response")
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	if env.StatusCode != 0 && env.StatusCode != http.StatusOK {
		err := fmt.Errorf("backend error %d: %s", env.StatusCode, env.Message)
		c.reportError(err)
		return nil, err
	}

	return &env, nil
}

func (c *Client) reportError(err error) {
	if c.onError != nil {
		c.onError(err)
	}
}

func truncateForLog(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
