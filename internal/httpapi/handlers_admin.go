package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/pageforge/hybridgate/internal/events"
	"github.com/pageforge/hybridgate/internal/split"
	"github.com/pageforge/hybridgate/internal/store"
)

// maskedKey is what the admin read returns in place of a configured API key.
const maskedKey = "********"

type splitResponse struct {
	DeepSeekPercent int    `json:"deepseek_percentage"`
	OpenAIPercent   int    `json:"openai_percentage"`
	DeepSeekAPIKey  string `json:"deepseek_api_key,omitempty"`
	OpenAIAPIKey    string `json:"openai_api_key,omitempty"`
}

func splitView(cfg split.Config, exposeKeys bool) splitResponse {
	resp := splitResponse{
		DeepSeekPercent: cfg.DeepSeekPercent,
		OpenAIPercent:   cfg.OpenAIPercent,
		DeepSeekAPIKey:  cfg.DeepSeekAPIKey,
		OpenAIAPIKey:    cfg.OpenAIAPIKey,
	}
	if !exposeKeys {
		if resp.DeepSeekAPIKey != "" {
			resp.DeepSeekAPIKey = maskedKey
		}
		if resp.OpenAIAPIKey != "" {
			resp.OpenAIAPIKey = maskedKey
		}
	}
	return resp
}

// SplitGetHandler returns the current traffic distribution. API keys come
// back masked unless key exposure is explicitly enabled.
func SplitGetHandler(d Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cfg, err := d.Splits.Current()
		if err != nil {
			jsonError(w, "split config unavailable", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(splitView(cfg, d.ExposeAdminKeys))
	}
}

// SplitUpdateHandler applies a partial update to the distribution. A rejected
// update changes nothing; an accepted one is persisted, audited, and
// announced on the event bus.
func SplitUpdateHandler(d Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var patch split.Patch
		if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
			jsonError(w, "invalid JSON body: "+err.Error(), http.StatusBadRequest)
			return
		}

		cfg, err := d.Splits.Update(patch)
		if err != nil {
			var verr *split.ValidationError
			if errors.As(err, &verr) {
				jsonError(w, verr.Error(), http.StatusBadRequest)
				return
			}
			jsonError(w, "update failed", http.StatusInternalServerError)
			return
		}

		requestID := middleware.GetReqID(r.Context())

		if d.Store != nil {
			if err := d.Store.SaveSplit(r.Context(), cfg.DeepSeekPercent, cfg.OpenAIPercent); err != nil && d.Logger != nil {
				d.Logger.Warn("failed to persist split", "error", err)
			}
			// Audit percentages only. Keys never reach disk, even redacted.
			detail, _ := json.Marshal(map[string]any{
				"deepseek_percentage": cfg.DeepSeekPercent,
				"openai_percentage":   cfg.OpenAIPercent,
				"keys_updated":        patch.DeepSeekAPIKey != nil || patch.OpenAIAPIKey != nil,
			})
			if err := d.Store.LogAudit(r.Context(), store.AuditEntry{
				Timestamp: time.Now().UTC(),
				Action:    "split.update",
				Resource:  "split",
				Detail:    string(detail),
				RequestID: requestID,
			}); err != nil && d.Logger != nil {
				d.Logger.Warn("failed to write audit entry", "error", err)
			}
		}

		if d.EventBus != nil {
			d.EventBus.Publish(events.Event{
				Type:            events.EventSplitUpdated,
				DeepSeekPercent: cfg.DeepSeekPercent,
				OpenAIPercent:   cfg.OpenAIPercent,
				RequestID:       requestID,
			})
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(splitView(cfg, d.ExposeAdminKeys))
	}
}

// UsageHandler returns the aggregate usage snapshot.
func UsageHandler(d Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(d.Usage.Metrics())
	}
}

// LogsHandler returns recent persisted generation logs, newest first.
func LogsHandler(d Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if d.Store == nil {
			jsonError(w, "persistence disabled", http.StatusNotImplemented)
			return
		}
		limit, offset := pagination(r)
		logs, err := d.Store.ListGenerations(r.Context(), limit, offset)
		if err != nil {
			jsonError(w, "failed to read logs", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"logs": logs, "count": len(logs)})
	}
}

// AuditLogsHandler returns recent admin mutations, newest first.
func AuditLogsHandler(d Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if d.Store == nil {
			jsonError(w, "persistence disabled", http.StatusNotImplemented)
			return
		}
		limit, offset := pagination(r)
		logs, err := d.Store.ListAuditLogs(r.Context(), limit, offset)
		if err != nil {
			jsonError(w, "failed to read audit logs", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"audit": logs, "count": len(logs)})
	}
}

func pagination(r *http.Request) (limit, offset int) {
	limit = 100
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}
	if v := r.URL.Query().Get("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			offset = n
		}
	}
	return limit, offset
}
