// Package deepseek wires the shared chat client for the DeepSeek API.
package deepseek

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/pageforge/hybridgate/internal/providers"
	"github.com/pageforge/hybridgate/internal/router"
	"github.com/pageforge/hybridgate/internal/usagelog"
)

// DefaultBaseURL is DeepSeek's OpenAI-compatible API root.
const DefaultBaseURL = "https://api.deepseek.com/v1"

// Model is the only model this integration sends.
const Model = "deepseek-chat"

// Config configures the DeepSeek client. Key is required.
type Config struct {
	Key        func() string
	BaseURL    string
	Timeout    time.Duration
	HTTPClient *http.Client
	Usage      *usagelog.Log
	Logger     *slog.Logger
}

// New creates the DeepSeek chat client.
func New(cfg Config) *providers.Client {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return providers.NewClient(providers.Config{
		ID:         router.ProviderDeepSeek,
		Model:      Model,
		BaseURL:    baseURL,
		Key:        cfg.Key,
		Timeout:    cfg.Timeout,
		HTTPClient: cfg.HTTPClient,
		Usage:      cfg.Usage,
		Logger:     cfg.Logger,
	})
}
