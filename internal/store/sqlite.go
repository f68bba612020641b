package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteStore implements Store using modernc.org/sqlite (pure-Go, no CGO).
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens or creates a SQLite database at the given DSN.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL; PRAGMA busy_timeout=5000;"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite pragmas: %w", err)
	}
	// SQLite only supports one writer at a time. Limit connections to avoid
	// contention and keep a small idle pool for read concurrency.
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(time.Hour)
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS generation_logs (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			timestamp TEXT NOT NULL,
			provider TEXT NOT NULL,
			model TEXT NOT NULL DEFAULT '',
			success INTEGER NOT NULL DEFAULT 0,
			fallback_reason TEXT NOT NULL DEFAULT '',
			input_tokens INTEGER NOT NULL DEFAULT 0,
			output_tokens INTEGER NOT NULL DEFAULT 0,
			total_tokens INTEGER NOT NULL DEFAULT 0,
			cost_usd REAL NOT NULL DEFAULT 0,
			duration_ms INTEGER NOT NULL DEFAULT 0,
			error_message TEXT NOT NULL DEFAULT '',
			request_id TEXT NOT NULL DEFAULT ''
		)`,
		`CREATE INDEX IF NOT EXISTS idx_generation_logs_timestamp ON generation_logs(timestamp)`,
		`CREATE INDEX IF NOT EXISTS idx_generation_logs_provider ON generation_logs(provider)`,
		`CREATE TABLE IF NOT EXISTS split_config (
			id INTEGER PRIMARY KEY CHECK (id = 1),
			deepseek_percent INTEGER NOT NULL,
			openai_percent INTEGER NOT NULL,
			updated_at TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS audit_logs (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			timestamp TEXT NOT NULL,
			action TEXT NOT NULL,
			resource TEXT NOT NULL DEFAULT '',
			detail TEXT NOT NULL DEFAULT '',
			request_id TEXT NOT NULL DEFAULT ''
		)`,
		`CREATE INDEX IF NOT EXISTS idx_audit_logs_timestamp ON audit_logs(timestamp)`,
	}
	for _, q := range queries {
		if _, err := s.db.ExecContext(ctx, q); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Generation logs

func (s *SQLiteStore) LogGeneration(ctx context.Context, entry GenerationLog) error {
	ts := entry.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}
	successInt := 0
	if entry.Success {
		successInt = 1
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO generation_logs (timestamp, provider, model, success, fallback_reason,
		 input_tokens, output_tokens, total_tokens, cost_usd, duration_ms, error_message, request_id)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		ts.UTC().Format(time.RFC3339Nano), entry.Provider, entry.Model, successInt, entry.FallbackReason,
		entry.InputTokens, entry.OutputTokens, entry.TotalTokens, entry.CostUSD,
		entry.DurationMs, entry.ErrorMessage, entry.RequestID)
	return err
}

func (s *SQLiteStore) ListGenerations(ctx context.Context, limit, offset int) ([]GenerationLog, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, timestamp, provider, model, success, fallback_reason,
		 input_tokens, output_tokens, total_tokens, cost_usd, duration_ms, error_message, request_id
		 FROM generation_logs ORDER BY timestamp DESC LIMIT ? OFFSET ?`, limit, offset)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var logs []GenerationLog
	for rows.Next() {
		var l GenerationLog
		var ts string
		var successInt int
		if err := rows.Scan(&l.ID, &ts, &l.Provider, &l.Model, &successInt, &l.FallbackReason,
			&l.InputTokens, &l.OutputTokens, &l.TotalTokens, &l.CostUSD,
			&l.DurationMs, &l.ErrorMessage, &l.RequestID); err != nil {
			return nil, err
		}
		l.Timestamp, _ = time.Parse(time.RFC3339Nano, ts)
		l.Success = successInt != 0
		logs = append(logs, l)
	}
	return logs, rows.Err()
}

// Split config

func (s *SQLiteStore) SaveSplit(ctx context.Context, deepseekPercent, openaiPercent int) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO split_config (id, deepseek_percent, openai_percent, updated_at)
		 VALUES (1, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
		   deepseek_percent=excluded.deepseek_percent,
		   openai_percent=excluded.openai_percent,
		   updated_at=excluded.updated_at`,
		deepseekPercent, openaiPercent, time.Now().UTC().Format(time.RFC3339Nano))
	return err
}

// LoadSplit returns nil without error when no split has been persisted yet.
func (s *SQLiteStore) LoadSplit(ctx context.Context) (*SplitRecord, error) {
	var rec SplitRecord
	var ts string
	err := s.db.QueryRowContext(ctx,
		`SELECT deepseek_percent, openai_percent, updated_at FROM split_config WHERE id = 1`).
		Scan(&rec.DeepSeekPercent, &rec.OpenAIPercent, &ts)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	rec.UpdatedAt, _ = time.Parse(time.RFC3339Nano, ts)
	return &rec, nil
}

// Audit logs

func (s *SQLiteStore) LogAudit(ctx context.Context, entry AuditEntry) error {
	ts := entry.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO audit_logs (timestamp, action, resource, detail, request_id)
		 VALUES (?, ?, ?, ?, ?)`,
		ts.UTC().Format(time.RFC3339Nano), entry.Action, entry.Resource, entry.Detail, entry.RequestID)
	return err
}

func (s *SQLiteStore) ListAuditLogs(ctx context.Context, limit, offset int) ([]AuditEntry, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, timestamp, action, resource, detail, request_id
		 FROM audit_logs ORDER BY timestamp DESC LIMIT ? OFFSET ?`, limit, offset)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var logs []AuditEntry
	for rows.Next() {
		var l AuditEntry
		var ts string
		if err := rows.Scan(&l.ID, &ts, &l.Action, &l.Resource, &l.Detail, &l.RequestID); err != nil {
			return nil, err
		}
		l.Timestamp, _ = time.Parse(time.RFC3339Nano, ts)
		logs = append(logs, l)
	}
	return logs, rows.Err()
}
