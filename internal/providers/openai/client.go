// Package openai wires the shared chat client for the OpenAI API.
package openai

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/pageforge/hybridgate/internal/providers"
	"github.com/pageforge/hybridgate/internal/router"
	"github.com/pageforge/hybridgate/internal/usagelog"
)

// DefaultBaseURL is the OpenAI API root.
const DefaultBaseURL = "https://api.openai.com/v1"

// Supported models. DefaultModel is used unless the config overrides it.
const (
	DefaultModel = "gpt-4o-mini"
	ModelGPT4o   = "gpt-4o"
)

// Config configures the OpenAI client. Key is required.
type Config struct {
	Key        func() string
	Model      string
	BaseURL    string
	Timeout    time.Duration
	HTTPClient *http.Client
	Usage      *usagelog.Log
	Logger     *slog.Logger
}

// New creates the OpenAI chat client.
func New(cfg Config) *providers.Client {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	model := cfg.Model
	if model == "" {
		model = DefaultModel
	}
	return providers.NewClient(providers.Config{
		ID:         router.ProviderOpenAI,
		Model:      model,
		BaseURL:    baseURL,
		Key:        cfg.Key,
		Timeout:    cfg.Timeout,
		HTTPClient: cfg.HTTPClient,
		Usage:      cfg.Usage,
		Logger:     cfg.Logger,
	})
}
