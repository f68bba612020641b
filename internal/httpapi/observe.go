package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/pageforge/hybridgate/internal/events"
	"github.com/pageforge/hybridgate/internal/router"
	"github.com/pageforge/hybridgate/internal/store"
)

// jsonError writes a JSON-encoded error response with the given status code.
// The body keeps the same shape as a failed generation so clients have one
// error format: {"success":false,"error":"<msg>"}.
func jsonError(w http.ResponseWriter, msg string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(map[string]any{"success": false, "error": msg})
}

// recordObservability fans a completed generation out to the store, the
// Prometheus registry, and the event bus. Nil-safe per subsystem; a failed
// store write is a warning, never a request failure.
func recordObservability(ctx context.Context, d Dependencies, res router.Result, requestID string) {
	if d.Metrics != nil {
		status := "success"
		if !res.Success {
			status = "error"
		}
		d.Metrics.RequestsTotal.WithLabelValues(res.Provider, status).Inc()
		d.Metrics.RequestLatency.WithLabelValues(res.Provider).Observe(float64(res.DurationMs))
		if res.Success {
			if res.Cost != nil {
				d.Metrics.CostUSD.WithLabelValues(res.Provider, res.Model).Add(res.Cost.Total)
			}
			if res.Usage != nil {
				d.Metrics.TokensTotal.WithLabelValues(res.Provider, res.Model, "input").Add(float64(res.Usage.InputTokens))
				d.Metrics.TokensTotal.WithLabelValues(res.Provider, res.Model, "output").Add(float64(res.Usage.OutputTokens))
			}
		}
		if res.FallbackReason != "" {
			d.Metrics.FallbackTotal.WithLabelValues(res.FallbackReason).Inc()
		}
	}

	if d.Store != nil {
		entry := store.GenerationLog{
			Timestamp:      time.Now().UTC(),
			Provider:       res.Provider,
			Model:          res.Model,
			Success:        res.Success,
			FallbackReason: res.FallbackReason,
			DurationMs:     res.DurationMs,
			ErrorMessage:   res.Error,
			RequestID:      requestID,
		}
		if res.Usage != nil {
			entry.InputTokens = res.Usage.InputTokens
			entry.OutputTokens = res.Usage.OutputTokens
			entry.TotalTokens = res.Usage.TotalTokens
		}
		if res.Cost != nil {
			entry.CostUSD = res.Cost.Total
		}
		if err := d.Store.LogGeneration(ctx, entry); err != nil && d.Logger != nil {
			d.Logger.Warn("failed to persist generation log", "error", err)
		}
	}

	if d.EventBus != nil {
		e := events.Event{
			Provider:   res.Provider,
			Model:      res.Model,
			DurationMs: res.DurationMs,
			RequestID:  requestID,
		}
		if res.Cost != nil {
			e.CostUSD = res.Cost.Total
		}
		switch {
		case !res.Success:
			e.Type = events.EventRouteError
			e.ErrorMessage = res.Error
		case res.FallbackReason != "":
			e.Type = events.EventRouteFallback
			e.FallbackReason = res.FallbackReason
		default:
			e.Type = events.EventRouteSuccess
		}
		d.EventBus.Publish(e)
	}
}
