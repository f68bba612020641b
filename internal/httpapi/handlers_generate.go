package httpapi

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/pageforge/hybridgate/internal/pricing"
	"github.com/pageforge/hybridgate/internal/router"
)

// Defaults applied when the caller omits generation parameters.
const (
	DefaultTemperature = 0.7
	DefaultMaxTokens   = 800
)

type generateRequest struct {
	SystemPrompt string   `json:"system_prompt"`
	Context      string   `json:"context"`
	UserMessage  string   `json:"user_message"`
	Temperature  *float64 `json:"temperature"`
	MaxTokens    *int     `json:"max_tokens"`
}

type generateResponse struct {
	Success         bool          `json:"success"`
	Reply           string        `json:"reply,omitempty"`
	Usage           *router.Usage `json:"usage,omitempty"`
	Cost            *pricing.Cost `json:"cost,omitempty"`
	Error           string        `json:"error,omitempty"`
	Provider        string        `json:"provider"`
	ModelUsed       string        `json:"model_used"`
	Duration        int64         `json:"duration"`
	FallbackReason  string        `json:"fallback_reason,omitempty"`
	TotalDurationMs int64         `json:"total_duration_ms"`
}

// GenerateHandler validates the inbound request, assembles the ordered
// message list, and delegates to the router. Validation failures are
// answered before any provider is touched.
func GenerateHandler(d Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req generateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			jsonError(w, "invalid JSON body: "+err.Error(), http.StatusBadRequest)
			return
		}
		if strings.TrimSpace(req.UserMessage) == "" {
			jsonError(w, "user_message is required", http.StatusBadRequest)
			return
		}

		temperature := DefaultTemperature
		if req.Temperature != nil {
			temperature = *req.Temperature
		}
		maxTokens := DefaultMaxTokens
		if req.MaxTokens != nil {
			maxTokens = *req.MaxTokens
		}

		msgs := router.BuildMessages(req.SystemPrompt, req.Context, req.UserMessage)

		start := time.Now()
		res := d.Router.Route(r.Context(), msgs, temperature, maxTokens)
		totalDuration := time.Since(start).Milliseconds()

		recordObservability(r.Context(), d, res, middleware.GetReqID(r.Context()))

		resp := generateResponse{
			Success:         res.Success,
			Reply:           res.Text,
			Usage:           res.Usage,
			Cost:            res.Cost,
			Error:           res.Error,
			Provider:        res.Provider,
			ModelUsed:       res.Model,
			Duration:        res.DurationMs,
			FallbackReason:  res.FallbackReason,
			TotalDurationMs: totalDuration,
		}

		w.Header().Set("Content-Type", "application/json")
		if !res.Success {
			w.WriteHeader(http.StatusBadGateway)
		}
		_ = json.NewEncoder(w).Encode(resp)
	}
}
