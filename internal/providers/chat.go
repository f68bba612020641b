package providers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/pageforge/hybridgate/internal/pricing"
	"github.com/pageforge/hybridgate/internal/router"
	"github.com/pageforge/hybridgate/internal/usagelog"
)

// DefaultTimeout bounds one upstream exchange. A timeout surfaces as a normal
// provider failure and triggers the router's fallback.
const DefaultTimeout = 30 * time.Second

// chatRequest is the OpenAI-compatible chat-completion payload.
type chatRequest struct {
	Model       string           `json:"model"`
	Messages    []router.Message `json:"messages"`
	Temperature float64          `json:"temperature"`
	MaxTokens   int              `json:"max_tokens"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
}

// Config wires one Client.
type Config struct {
	// ID names the provider in results, logs, and the pricing table.
	ID string
	// Model is sent on every request; pricing is looked up by ID/Model.
	Model string
	// BaseURL is the API root, e.g. "https://api.deepseek.com/v1". The
	// chat-completions path is appended.
	BaseURL string
	// Key returns the current API key. Read on every call so runtime key
	// updates take effect without restarting.
	Key func() string
	// Timeout for the whole HTTP exchange. Defaults to DefaultTimeout.
	Timeout time.Duration
	// HTTPClient overrides the transport. When set, Timeout is ignored.
	HTTPClient *http.Client
	// Usage receives one call_start and one terminal entry per call. Nil
	// disables usage recording.
	Usage  *usagelog.Log
	Logger *slog.Logger
}

// Client is one upstream integration implementing router.Client. Call never
// returns a Go error; transport failures, non-2xx responses, and decode
// failures all fold into a failure Result.
type Client struct {
	id      string
	model   string
	baseURL string
	key     func() string
	http    *http.Client
	usage   *usagelog.Log
	logger  *slog.Logger
}

// NewClient builds a Client from cfg. ID, Model, BaseURL, and Key must be set.
func NewClient(cfg Config) *Client {
	hc := cfg.HTTPClient
	if hc == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = DefaultTimeout
		}
		hc = &http.Client{Timeout: timeout}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		id:      cfg.ID,
		model:   cfg.Model,
		baseURL: cfg.BaseURL,
		key:     cfg.Key,
		http:    hc,
		usage:   cfg.Usage,
		logger:  logger,
	}
}

func (c *Client) ID() string { return c.id }

// Model returns the model sent upstream.
func (c *Client) Model() string { return c.model }

// Call performs one chat completion, measuring wall-clock duration around the
// whole exchange.
func (c *Client) Call(ctx context.Context, msgs []router.Message, temperature float64, maxTokens int) router.Result {
	start := time.Now()

	c.logger.Debug("provider call",
		slog.String("provider", c.id),
		slog.String("model", c.model),
		slog.Int("messages", len(msgs)),
	)

	c.record(usagelog.Entry{
		Service:   c.id,
		Operation: "call_start",
		Model:     c.model,
		Metadata: map[string]any{
			"message_count": len(msgs),
			"max_tokens":    maxTokens,
		},
	})

	key := c.key()
	if key == "" {
		return c.failure(start, fmt.Sprintf("%s API key not configured", c.id))
	}

	payload := chatRequest{
		Model:       c.model,
		Messages:    msgs,
		Temperature: temperature,
		MaxTokens:   maxTokens,
	}

	body, err := DoRequest(ctx, c.http, c.baseURL+"/chat/completions", payload, map[string]string{
		"Authorization": "Bearer " + key,
	})
	if err != nil {
		var se *StatusError
		if errors.As(err, &se) {
			return c.failure(start, fmt.Sprintf("%s API error: status %d: %s", c.id, se.StatusCode, se.Body))
		}
		return c.failure(start, fmt.Sprintf("%s request failed: %v", c.id, err))
	}

	var parsed chatResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return c.failure(start, fmt.Sprintf("%s returned malformed response: %v", c.id, err))
	}

	var text string
	if len(parsed.Choices) > 0 {
		text = parsed.Choices[0].Message.Content
	}
	usage := router.Usage{
		InputTokens:  parsed.Usage.PromptTokens,
		OutputTokens: parsed.Usage.CompletionTokens,
		TotalTokens:  parsed.Usage.TotalTokens,
	}
	cost := pricing.ForCall(c.id, c.model, usage.InputTokens, usage.OutputTokens)
	duration := time.Since(start).Milliseconds()

	c.record(usagelog.Entry{
		Service:      c.id,
		Operation:    "call_complete",
		DurationMs:   duration,
		InputTokens:  usage.InputTokens,
		OutputTokens: usage.OutputTokens,
		TotalTokens:  usage.TotalTokens,
		CostUSD:      cost.Total,
		Model:        c.model,
	})

	return router.Result{
		Success:    true,
		Text:       text,
		Usage:      &usage,
		Cost:       &cost,
		Provider:   c.id,
		Model:      c.model,
		DurationMs: duration,
	}
}

func (c *Client) failure(start time.Time, msg string) router.Result {
	duration := time.Since(start).Milliseconds()
	c.record(usagelog.Entry{
		Level:        usagelog.LevelError,
		Service:      c.id,
		Operation:    "call_error",
		DurationMs:   duration,
		Model:        c.model,
		ErrorMessage: msg,
	})
	return router.Result{
		Success:    false,
		Error:      msg,
		Provider:   c.id,
		Model:      c.model,
		DurationMs: duration,
	}
}

func (c *Client) record(e usagelog.Entry) {
	if c.usage != nil {
		c.usage.Record(e)
	}
}
