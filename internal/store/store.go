// Package store persists routed-request history, the traffic split, and the
// admin audit trail. Persistence is best-effort for logs: a failed write must
// never fail the request that produced it.
package store

import (
	"context"
	"time"
)

// Store is the persistence interface for hybridgate.
type Store interface {
	// Generation log, one row per routed request.
	LogGeneration(ctx context.Context, entry GenerationLog) error
	ListGenerations(ctx context.Context, limit, offset int) ([]GenerationLog, error)

	// Traffic split persistence. Percentages only; API keys are never
	// written to disk.
	SaveSplit(ctx context.Context, deepseekPercent, openaiPercent int) error
	LoadSplit(ctx context.Context) (*SplitRecord, error)

	// Audit trail for admin mutations.
	LogAudit(ctx context.Context, entry AuditEntry) error
	ListAuditLogs(ctx context.Context, limit, offset int) ([]AuditEntry, error)

	// Schema lifecycle.
	Migrate(ctx context.Context) error
	Close() error
}

// GenerationLog captures a single routed generation for audit and reporting.
type GenerationLog struct {
	ID             int64     `json:"id"`
	Timestamp      time.Time `json:"timestamp"`
	Provider       string    `json:"provider"`
	Model          string    `json:"model"`
	Success        bool      `json:"success"`
	FallbackReason string    `json:"fallback_reason,omitempty"`
	InputTokens    int       `json:"input_tokens"`
	OutputTokens   int       `json:"output_tokens"`
	TotalTokens    int       `json:"total_tokens"`
	CostUSD        float64   `json:"cost_usd"`
	DurationMs     int64     `json:"duration_ms"`
	ErrorMessage   string    `json:"error_message,omitempty"`
	RequestID      string    `json:"request_id,omitempty"`
}

// SplitRecord is the persisted traffic distribution.
type SplitRecord struct {
	DeepSeekPercent int       `json:"deepseek_percentage"`
	OpenAIPercent   int       `json:"openai_percentage"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// AuditEntry captures an admin mutation.
type AuditEntry struct {
	ID        int64     `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Action    string    `json:"action"`   // e.g. "split.update"
	Resource  string    `json:"resource"` // e.g. "split"
	Detail    string    `json:"detail,omitempty"`
	RequestID string    `json:"request_id,omitempty"`
}
