// Package usagelog keeps an append-only, in-process record of provider call
// outcomes. Every entry is mirrored to the structured logger with sensitive
// metadata redacted, and the aggregate view is recomputed from the raw
// entries on each read rather than kept as incremental counters.
package usagelog

import (
	"log/slog"
	"regexp"
	"sync"
	"time"
)

// Levels for log entries.
const (
	LevelDebug = "debug"
	LevelInfo  = "info"
	LevelWarn  = "warn"
	LevelError = "error"
)

// Redacted replaces sensitive metadata values before an entry is stored or
// mirrored to the console sink.
const Redacted = "[REDACTED]"

// sensitiveKey matches metadata keys that must never carry their raw value
// into any exported log form. Provider responses can echo request headers, so
// redaction happens at Record time, not at serialization time.
var sensitiveKey = regexp.MustCompile(`(?i)(api[_-]?key|password|token|secret|authorization)`)

// Entry is one structured usage record.
type Entry struct {
	Timestamp    time.Time      `json:"timestamp"`
	Level        string         `json:"level"`
	Service      string         `json:"service"`
	Operation    string         `json:"operation"`
	SessionID    string         `json:"session_id,omitempty"`
	DurationMs   int64          `json:"duration_ms,omitempty"`
	InputTokens  int            `json:"input_tokens,omitempty"`
	OutputTokens int            `json:"output_tokens,omitempty"`
	TotalTokens  int            `json:"total_tokens,omitempty"`
	CostUSD      float64        `json:"cost_usd,omitempty"`
	Model        string         `json:"model,omitempty"`
	ErrorMessage string         `json:"error_message,omitempty"`
	Metadata     map[string]any `json:"metadata,omitempty"`
}

// Snapshot is the aggregate view of the whole log, recomputed on every call.
type Snapshot struct {
	TotalEntries      int            `json:"total_entries"`
	ByService         map[string]int `json:"by_service"`
	ByLevel           map[string]int `json:"by_level"`
	ErrorCount        int            `json:"error_count"`
	TotalDurationMs   int64          `json:"total_duration_ms"`
	AvgDurationMs     float64        `json:"avg_duration_ms"`
	TotalInputTokens  int            `json:"total_input_tokens"`
	TotalOutputTokens int            `json:"total_output_tokens"`
	TotalTokens       int            `json:"total_tokens"`
	TotalCostUSD      float64        `json:"total_cost_usd"`
	AvgCostUSD        float64        `json:"avg_cost_usd"`
}

// Log is a bounded append-only usage log. The zero value is not usable; use
// New. A maxEntries of 0 disables the cap (matching the original system's
// unbounded growth, which is a known limitation).
type Log struct {
	mu         sync.RWMutex
	entries    []Entry
	maxEntries int
	sink       *slog.Logger
}

// Option configures a Log.
type Option func(*Log)

// WithMaxEntries caps retention: once the cap is reached the oldest entries
// are dropped on append.
func WithMaxEntries(n int) Option {
	return func(l *Log) {
		if n >= 0 {
			l.maxEntries = n
		}
	}
}

// WithSink sets the structured logger entries are mirrored to. Defaults to
// slog.Default().
func WithSink(logger *slog.Logger) Option {
	return func(l *Log) {
		l.sink = logger
	}
}

// New creates a usage log with a default cap of 10000 entries.
func New(opts ...Option) *Log {
	l := &Log{maxEntries: 10000}
	for _, o := range opts {
		o(l)
	}
	if l.sink == nil {
		l.sink = slog.Default()
	}
	return l
}

// Record appends an entry. Metadata is copied with sensitive values redacted
// before the entry is stored, so no later export path can leak them. Appends
// are atomic with respect to each other and to readers.
func (l *Log) Record(e Entry) {
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now().UTC()
	}
	if e.Level == "" {
		e.Level = LevelInfo
	}
	e.Metadata = redactMetadata(e.Metadata)

	l.mu.Lock()
	l.entries = append(l.entries, e)
	if l.maxEntries > 0 && len(l.entries) > l.maxEntries {
		// Drop the oldest overflow in place.
		n := copy(l.entries, l.entries[len(l.entries)-l.maxEntries:])
		l.entries = l.entries[:n]
	}
	l.mu.Unlock()

	l.mirror(e)
}

// mirror writes the entry to the console sink. The entry's metadata is
// already redacted at this point.
func (l *Log) mirror(e Entry) {
	attrs := []any{
		slog.String("service", e.Service),
		slog.String("operation", e.Operation),
	}
	if e.SessionID != "" {
		attrs = append(attrs, slog.String("session_id", e.SessionID))
	}
	if e.DurationMs > 0 {
		attrs = append(attrs, slog.Int64("duration_ms", e.DurationMs))
	}
	if e.TotalTokens > 0 {
		attrs = append(attrs, slog.Int("total_tokens", e.TotalTokens))
	}
	if e.CostUSD > 0 {
		attrs = append(attrs, slog.Float64("cost_usd", e.CostUSD))
	}
	if e.Model != "" {
		attrs = append(attrs, slog.String("model", e.Model))
	}
	if e.ErrorMessage != "" {
		attrs = append(attrs, slog.String("error", e.ErrorMessage))
	}
	for k, v := range e.Metadata {
		attrs = append(attrs, slog.Any(k, v))
	}

	switch e.Level {
	case LevelError:
		l.sink.Error("usage", attrs...)
	case LevelWarn:
		l.sink.Warn("usage", attrs...)
	case LevelDebug:
		l.sink.Debug("usage", attrs...)
	default:
		l.sink.Info("usage", attrs...)
	}
}

// Entries returns a defensive copy of the full log.
func (l *Log) Entries() []Entry {
	l.mu.RLock()
	defer l.mu.RUnlock()
	cp := make([]Entry, len(l.entries))
	copy(cp, l.entries)
	return cp
}

// Len returns the number of stored entries.
func (l *Log) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.entries)
}

// Metrics recomputes the aggregate snapshot over all stored entries. Reads
// under concurrent appends may miss in-flight entries; they never observe a
// torn one.
func (l *Log) Metrics() Snapshot {
	entries := l.Entries()

	s := Snapshot{
		TotalEntries: len(entries),
		ByService:    make(map[string]int),
		ByLevel:      make(map[string]int),
	}

	var durationSamples int
	for _, e := range entries {
		s.ByService[e.Service]++
		s.ByLevel[e.Level]++
		if e.Level == LevelError {
			s.ErrorCount++
		}
		if e.DurationMs > 0 {
			s.TotalDurationMs += e.DurationMs
			durationSamples++
		}
		s.TotalInputTokens += e.InputTokens
		s.TotalOutputTokens += e.OutputTokens
		s.TotalTokens += e.TotalTokens
		s.TotalCostUSD += e.CostUSD
	}
	if durationSamples > 0 {
		s.AvgDurationMs = float64(s.TotalDurationMs) / float64(durationSamples)
	}
	if s.TotalEntries > 0 {
		s.AvgCostUSD = s.TotalCostUSD / float64(s.TotalEntries)
	}
	return s
}

// redactMetadata deep-copies metadata, replacing values whose key looks
// sensitive. Nested maps are walked recursively.
func redactMetadata(meta map[string]any) map[string]any {
	if meta == nil {
		return nil
	}
	out := make(map[string]any, len(meta))
	for k, v := range meta {
		if sensitiveKey.MatchString(k) {
			out[k] = Redacted
			continue
		}
		if nested, ok := v.(map[string]any); ok {
			out[k] = redactMetadata(nested)
			continue
		}
		out[k] = v
	}
	return out
}
