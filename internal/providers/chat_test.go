package providers

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pageforge/hybridgate/internal/router"
	"github.com/pageforge/hybridgate/internal/usagelog"
)

func testLog() *usagelog.Log {
	return usagelog.New(usagelog.WithSink(slog.New(slog.NewTextHandler(io.Discard, nil))))
}

func staticKey(k string) func() string { return func() string { return k } }

func newTestClient(baseURL string, usage *usagelog.Log) *Client {
	return NewClient(Config{
		ID:      "deepseek",
		Model:   "deepseek-chat",
		BaseURL: baseURL,
		Key:     staticKey("test-key"),
		Usage:   usage,
		Logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
}

func TestCallSuccess(t *testing.T) {
	var gotPayload map[string]any
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.Equal(t, "/chat/completions", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotPayload))

		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{
			"choices":[{"message":{"role":"assistant","content":"generated copy"}}],
			"usage":{"prompt_tokens":1000,"completion_tokens":500,"total_tokens":1500}
		}`))
	}))
	defer ts.Close()

	usage := testLog()
	c := newTestClient(ts.URL, usage)
	res := c.Call(context.Background(), []router.Message{{Role: "user", Content: "hi"}}, 0.7, 800)

	require.True(t, res.Success, "error: %s", res.Error)
	assert.Equal(t, "generated copy", res.Text)
	assert.Equal(t, "deepseek", res.Provider)
	assert.Equal(t, "deepseek-chat", res.Model)
	require.NotNil(t, res.Usage)
	assert.Equal(t, 1000, res.Usage.InputTokens)
	assert.Equal(t, 500, res.Usage.OutputTokens)
	assert.Equal(t, 1500, res.Usage.TotalTokens)
	require.NotNil(t, res.Cost)
	assert.InDelta(t, 0.00028, res.Cost.Total, 1e-9)
	assert.Equal(t, "USD", res.Cost.Currency)
	assert.GreaterOrEqual(t, res.DurationMs, int64(0))

	assert.Equal(t, "deepseek-chat", gotPayload["model"])
	assert.Equal(t, 0.7, gotPayload["temperature"])
	assert.Equal(t, float64(800), gotPayload["max_tokens"])

	entries := usage.Entries()
	require.Len(t, entries, 2)
	assert.Equal(t, "call_start", entries[0].Operation)
	assert.Equal(t, "call_complete", entries[1].Operation)
	assert.Equal(t, 1500, entries[1].TotalTokens)
	assert.InDelta(t, 0.00028, entries[1].CostUSD, 1e-9)
}

func TestCallErrorEmbedsStatusAndBody(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte(`{"error":{"message":"upstream exploded"}}`))
	}))
	defer ts.Close()

	usage := testLog()
	c := newTestClient(ts.URL, usage)
	res := c.Call(context.Background(), []router.Message{{Role: "user", Content: "hi"}}, 0.7, 800)

	require.False(t, res.Success)
	assert.Contains(t, res.Error, "status 502")
	assert.Contains(t, res.Error, "upstream exploded")
	assert.Equal(t, "deepseek", res.Provider)

	entries := usage.Entries()
	require.Len(t, entries, 2)
	assert.Equal(t, usagelog.LevelError, entries[1].Level)
	assert.Equal(t, "call_error", entries[1].Operation)
	assert.Contains(t, entries[1].ErrorMessage, "status 502")
}

func TestCallTransportError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	ts.Close() // connection refused from here on

	c := newTestClient(ts.URL, testLog())
	res := c.Call(context.Background(), []router.Message{{Role: "user", Content: "hi"}}, 0.7, 800)

	require.False(t, res.Success)
	assert.Contains(t, res.Error, "deepseek request failed")
}

func TestCallMissingKeyShortCircuits(t *testing.T) {
	var hits atomic.Int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
	}))
	defer ts.Close()

	c := NewClient(Config{
		ID:      "openai",
		Model:   "gpt-4o-mini",
		BaseURL: ts.URL,
		Key:     staticKey(""),
		Usage:   testLog(),
		Logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	res := c.Call(context.Background(), []router.Message{{Role: "user", Content: "hi"}}, 0.7, 800)

	require.False(t, res.Success)
	assert.Contains(t, res.Error, "openai API key not configured")
	assert.Equal(t, int32(0), hits.Load(), "no HTTP call without a key")
}

func TestCallEmptyChoices(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"choices":[]}`))
	}))
	defer ts.Close()

	c := newTestClient(ts.URL, testLog())
	res := c.Call(context.Background(), []router.Message{{Role: "user", Content: "hi"}}, 0.7, 800)

	require.True(t, res.Success)
	assert.Equal(t, "", res.Text)
	require.NotNil(t, res.Usage)
	assert.Equal(t, 0, res.Usage.TotalTokens)
}

func TestCallMalformedResponse(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`not json`))
	}))
	defer ts.Close()

	c := newTestClient(ts.URL, testLog())
	res := c.Call(context.Background(), []router.Message{{Role: "user", Content: "hi"}}, 0.7, 800)

	require.False(t, res.Success)
	assert.Contains(t, res.Error, "malformed response")
}

func TestCallTimeoutIsProviderFailure(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(300 * time.Millisecond)
	}))
	defer ts.Close()

	c := NewClient(Config{
		ID:      "deepseek",
		Model:   "deepseek-chat",
		BaseURL: ts.URL,
		Key:     staticKey("k"),
		Timeout: 30 * time.Millisecond,
		Usage:   testLog(),
		Logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	res := c.Call(context.Background(), []router.Message{{Role: "user", Content: "hi"}}, 0.7, 800)

	require.False(t, res.Success)
	assert.Contains(t, res.Error, "deepseek request failed")
}

func TestKeyReadPerCall(t *testing.T) {
	var seen []string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = append(seen, r.Header.Get("Authorization"))
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"ok"}}]}`))
	}))
	defer ts.Close()

	key := "first"
	c := NewClient(Config{
		ID:      "deepseek",
		Model:   "deepseek-chat",
		BaseURL: ts.URL,
		Key:     func() string { return key },
		Usage:   testLog(),
		Logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
	})

	_ = c.Call(context.Background(), []router.Message{{Role: "user", Content: "hi"}}, 0.7, 800)
	key = "second"
	_ = c.Call(context.Background(), []router.Message{{Role: "user", Content: "hi"}}, 0.7, 800)

	require.Equal(t, []string{"Bearer first", "Bearer second"}, seen)
}
