// Package router implements the weighted provider selection and single
// fallback attempt at the heart of hybridgate.
package router

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"

	"github.com/pageforge/hybridgate/internal/split"
)

// SplitSource supplies the current traffic distribution. The router reads it
// fresh on every invocation; it never caches.
type SplitSource interface {
	Current() (split.Config, error)
}

// Router selects a primary provider per request by a single uniform draw
// against the configured split, and on failure tries the other provider
// exactly once. It is stateless across invocations: no retry budget, no
// circuit breaker, no cross-request memory of failures.
type Router struct {
	splits   SplitSource
	deepseek Client
	openai   Client
	draw     func() float64
	logger   *slog.Logger
}

// Option configures a Router.
type Option func(*Router)

// WithDraw overrides the uniform [0,1) source used for provider selection.
// Selection must stay a random draw in production; this hook exists for
// deterministic tests.
func WithDraw(fn func() float64) Option {
	return func(r *Router) { r.draw = fn }
}

// WithLogger overrides the logger (defaults to slog.Default()).
func WithLogger(logger *slog.Logger) Option {
	return func(r *Router) { r.logger = logger }
}

// New creates a Router over the two provider clients.
func New(splits SplitSource, deepseek, openai Client, opts ...Option) *Router {
	r := &Router{
		splits:   splits,
		deepseek: deepseek,
		openai:   openai,
		draw:     rand.Float64,
	}
	for _, o := range opts {
		o(r)
	}
	if r.logger == nil {
		r.logger = slog.Default()
	}
	return r
}

// Route performs one routed generation: select, attempt, fall back once.
// Like Client.Call it never returns a Go error; total failure is a Result
// with Success=false and a combined error message.
func (r *Router) Route(ctx context.Context, msgs []Message, temperature float64, maxTokens int) Result {
	cfg, err := r.splits.Current()
	if err != nil {
		// A request can still complete on the compiled-in default, so this
		// is a warning rather than an error.
		r.logger.Warn("split config unavailable, using default distribution",
			slog.String("error", err.Error()),
			slog.Int("deepseek_percent", split.DefaultDeepSeekPercent),
		)
		cfg = split.Config{
			DeepSeekPercent: split.DefaultDeepSeekPercent,
			OpenAIPercent:   split.DefaultOpenAIPercent,
		}
	}

	primary, fallback := r.openai, r.deepseek
	// Strict less-than: a draw exactly at the threshold selects OpenAI, so a
	// 100/0 split can never draw its way to OpenAI as primary.
	if r.draw() < float64(cfg.DeepSeekPercent)/100.0 {
		primary, fallback = r.deepseek, r.openai
	}

	r.logger.Debug("provider selected",
		slog.String("primary", primary.ID()),
		slog.Int("deepseek_percent", cfg.DeepSeekPercent),
	)

	res := primary.Call(ctx, msgs, temperature, maxTokens)
	if res.Success {
		return res
	}

	r.logger.Warn("primary provider failed, attempting fallback",
		slog.String("primary", primary.ID()),
		slog.String("fallback", fallback.ID()),
		slog.String("error", res.Error),
	)

	// The fallback runs only after the primary's failure is known; the two
	// attempts are never concurrent so duration attribution stays per-call.
	fb := fallback.Call(ctx, msgs, temperature, maxTokens)
	if fb.Success {
		fb.Provider = ProviderFallback
		fb.FallbackReason = primary.ID() + "_failed"
		return fb
	}

	// Report the slower attempt, not the sum: callers care about the
	// bottleneck latency of a failed request.
	duration := res.DurationMs
	if fb.DurationMs > duration {
		duration = fb.DurationMs
	}

	return Result{
		Success:  false,
		Provider: primary.ID(),
		Model:    res.Model,
		Error: fmt.Sprintf("Both providers failed. %s: %s, %s: %s",
			primary.ID(), res.Error, fallback.ID(), fb.Error),
		DurationMs: duration,
	}
}
