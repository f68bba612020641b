package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLite(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	if err := s.Migrate(context.Background()); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return s
}

func TestGenerationLogRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	entries := []GenerationLog{
		{Provider: "deepseek", Model: "deepseek-chat", Success: true, InputTokens: 100, OutputTokens: 50, TotalTokens: 150, CostUSD: 0.000028, DurationMs: 812, RequestID: "req-1"},
		{Provider: "fallback", Model: "gpt-4o-mini", Success: true, FallbackReason: "deepseek_failed", DurationMs: 1200, RequestID: "req-2"},
		{Provider: "openai", Model: "gpt-4o-mini", Success: false, ErrorMessage: "status 500", DurationMs: 40, RequestID: "req-3"},
	}
	for i, e := range entries {
		e.Timestamp = time.Now().Add(time.Duration(i) * time.Second)
		if err := s.LogGeneration(ctx, e); err != nil {
			t.Fatalf("log generation %d: %v", i, err)
		}
	}

	logs, err := s.ListGenerations(ctx, 10, 0)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(logs) != 3 {
		t.Fatalf("expected 3 logs, got %d", len(logs))
	}
	// Newest first.
	if logs[0].RequestID != "req-3" {
		t.Errorf("expected newest first, got %s", logs[0].RequestID)
	}
	if logs[0].Success {
		t.Error("failed generation stored as success")
	}
	if logs[1].FallbackReason != "deepseek_failed" {
		t.Errorf("fallback_reason lost: %q", logs[1].FallbackReason)
	}
	if logs[2].CostUSD != 0.000028 {
		t.Errorf("cost lost: %v", logs[2].CostUSD)
	}

	// Pagination.
	page, err := s.ListGenerations(ctx, 1, 1)
	if err != nil {
		t.Fatalf("list page: %v", err)
	}
	if len(page) != 1 || page[0].RequestID != "req-2" {
		t.Errorf("pagination broken: %+v", page)
	}
}

func TestSplitPersistence(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	rec, err := s.LoadSplit(ctx)
	if err != nil {
		t.Fatalf("load empty: %v", err)
	}
	if rec != nil {
		t.Fatalf("expected nil record before first save, got %+v", rec)
	}

	if err := s.SaveSplit(ctx, 60, 40); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := s.SaveSplit(ctx, 30, 70); err != nil {
		t.Fatalf("second save: %v", err)
	}

	rec, err = s.LoadSplit(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if rec == nil || rec.DeepSeekPercent != 30 || rec.OpenAIPercent != 70 {
		t.Errorf("expected 30/70 after upsert, got %+v", rec)
	}
	if rec.UpdatedAt.IsZero() {
		t.Error("updated_at not set")
	}
}

func TestAuditTrail(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	err := s.LogAudit(ctx, AuditEntry{
		Action:    "split.update",
		Resource:  "split",
		Detail:    `{"deepseek_percentage":60}`,
		RequestID: "req-9",
	})
	if err != nil {
		t.Fatalf("log audit: %v", err)
	}

	logs, err := s.ListAuditLogs(ctx, 10, 0)
	if err != nil {
		t.Fatalf("list audit: %v", err)
	}
	if len(logs) != 1 {
		t.Fatalf("expected 1 audit entry, got %d", len(logs))
	}
	if logs[0].Action != "split.update" || logs[0].RequestID != "req-9" {
		t.Errorf("audit entry mangled: %+v", logs[0])
	}
}
