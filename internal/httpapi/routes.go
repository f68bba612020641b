// Package httpapi is the HTTP boundary: the public generation endpoint, the
// admin surface, and the observability endpoints.
package httpapi

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/pageforge/hybridgate/internal/events"
	"github.com/pageforge/hybridgate/internal/metrics"
	"github.com/pageforge/hybridgate/internal/router"
	"github.com/pageforge/hybridgate/internal/split"
	"github.com/pageforge/hybridgate/internal/store"
	"github.com/pageforge/hybridgate/internal/usagelog"
)

// Generator routes one generation request. Implemented by router.Router.
type Generator interface {
	Route(ctx context.Context, msgs []router.Message, temperature float64, maxTokens int) router.Result
}

type Dependencies struct {
	Router   Generator
	Splits   *split.Provider
	Usage    *usagelog.Log
	Store    store.Store
	Metrics  *metrics.Registry
	EventBus *events.Bus
	Logger   *slog.Logger

	// AdminToken guards /admin/v1. Empty disables auth (logged at boot).
	AdminToken string

	// RateLimit, when set, is applied to the public /v1 routes only; admin
	// and health endpoints are never rate limited.
	RateLimit func(http.Handler) http.Handler

	// ExposeAdminKeys returns API keys in plaintext on the admin split
	// endpoint instead of masked values.
	ExposeAdminKeys bool
}

func MountRoutes(r chi.Router, d Dependencies) {
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		cfg, err := d.Splits.Current()
		if err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			_ = json.NewEncoder(w).Encode(map[string]any{"status": "unhealthy"})
			return
		}
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"status":              "ok",
			"deepseek_percentage": cfg.DeepSeekPercent,
			"openai_percentage":   cfg.OpenAIPercent,
		})
	})

	r.Route("/v1", func(r chi.Router) {
		if d.RateLimit != nil {
			r.Use(d.RateLimit)
		}
		r.Post("/generate", GenerateHandler(d))
	})

	r.Route("/admin/v1", func(r chi.Router) {
		r.Use(AdminAuth(d.AdminToken))
		r.Get("/split", SplitGetHandler(d))
		r.Put("/split", SplitUpdateHandler(d))
		r.Get("/usage", UsageHandler(d))
		r.Get("/logs", LogsHandler(d))
		r.Get("/audit", AuditLogsHandler(d))
		if d.EventBus != nil {
			r.Get("/events", SSEHandler(d.EventBus))
		}
	})

	if d.Metrics != nil {
		r.Handle("/metrics", d.Metrics.Handler())
	}
}
