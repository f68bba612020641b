// Package split owns the runtime traffic distribution between the two
// upstream providers and their API keys. A single Provider instance is
// shared by all in-flight requests; the router reads it fresh on every
// routing decision so admin updates take effect on the next request.
package split

import (
	"fmt"
	"sync"
)

// Default distribution applied when nothing else is configured.
const (
	DefaultDeepSeekPercent = 80
	DefaultOpenAIPercent   = 20
)

// Config is the current distribution state. Percentages always sum to 100.
type Config struct {
	DeepSeekPercent int    `json:"deepseek_percentage"`
	OpenAIPercent   int    `json:"openai_percentage"`
	DeepSeekAPIKey  string `json:"deepseek_api_key"`
	OpenAIAPIKey    string `json:"openai_api_key"`
}

// Patch is a partial update. Nil fields are left unchanged.
type Patch struct {
	DeepSeekPercent *int    `json:"deepseek_percentage,omitempty"`
	OpenAIPercent   *int    `json:"openai_percentage,omitempty"`
	DeepSeekAPIKey  *string `json:"deepseek_api_key,omitempty"`
	OpenAIAPIKey    *string `json:"openai_api_key,omitempty"`
}

// ValidationError describes a rejected update. The prior configuration is
// untouched when one is returned.
type ValidationError struct {
	Field string
	Msg   string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid distribution update: %s: %s", e.Field, e.Msg)
}

// Provider holds the process-wide distribution config behind a RWMutex.
// Updates are atomic: a concurrent reader sees either the old or the new
// config, never a mix.
type Provider struct {
	mu  sync.RWMutex
	cfg Config
}

// New creates a Provider seeded with the given config. Percentages that do
// not describe a valid split are replaced by the 80/20 default rather than
// rejected, since boot must succeed with an empty environment.
func New(seed Config) *Provider {
	if !validPair(seed.DeepSeekPercent, seed.OpenAIPercent) {
		seed.DeepSeekPercent = DefaultDeepSeekPercent
		seed.OpenAIPercent = DefaultOpenAIPercent
	}
	return &Provider{cfg: seed}
}

// Current returns a copy of the live configuration.
func (p *Provider) Current() (Config, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.cfg, nil
}

// Update applies a partial update. If either percentage is supplied, the
// resulting pair must sum to exactly 100 with both values in [0,100];
// otherwise the whole update is rejected and nothing changes. Key and
// percentage fields may be updated independently in the same call.
func (p *Provider) Update(patch Patch) (Config, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	next := p.cfg
	if patch.DeepSeekPercent != nil {
		next.DeepSeekPercent = *patch.DeepSeekPercent
	}
	if patch.OpenAIPercent != nil {
		next.OpenAIPercent = *patch.OpenAIPercent
	}

	if patch.DeepSeekPercent != nil || patch.OpenAIPercent != nil {
		if next.DeepSeekPercent < 0 || next.DeepSeekPercent > 100 {
			return p.cfg, &ValidationError{Field: "deepseek_percentage", Msg: fmt.Sprintf("must be in [0,100], got %d", next.DeepSeekPercent)}
		}
		if next.OpenAIPercent < 0 || next.OpenAIPercent > 100 {
			return p.cfg, &ValidationError{Field: "openai_percentage", Msg: fmt.Sprintf("must be in [0,100], got %d", next.OpenAIPercent)}
		}
		if next.DeepSeekPercent+next.OpenAIPercent != 100 {
			return p.cfg, &ValidationError{Field: "percentages", Msg: fmt.Sprintf("must sum to 100, got %d", next.DeepSeekPercent+next.OpenAIPercent)}
		}
	}

	if patch.DeepSeekAPIKey != nil {
		next.DeepSeekAPIKey = *patch.DeepSeekAPIKey
	}
	if patch.OpenAIAPIKey != nil {
		next.OpenAIAPIKey = *patch.OpenAIAPIKey
	}

	p.cfg = next
	return next, nil
}

// SetPercentages replaces the distribution pair, validating as Update does.
// Used when restoring a persisted split on boot.
func (p *Provider) SetPercentages(deepseek, openai int) error {
	_, err := p.Update(Patch{DeepSeekPercent: &deepseek, OpenAIPercent: &openai})
	return err
}

func validPair(deepseek, openai int) bool {
	return deepseek >= 0 && deepseek <= 100 &&
		openai >= 0 && openai <= 100 &&
		deepseek+openai == 100
}
