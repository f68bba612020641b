package deepseek

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pageforge/hybridgate/internal/router"
)

func TestFixedModel(t *testing.T) {
	var gotPath string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{
			"choices":[{"message":{"content":"hello"}}],
			"usage":{"prompt_tokens":10,"completion_tokens":5,"total_tokens":15}
		}`))
	}))
	defer ts.Close()

	c := New(Config{
		Key:     func() string { return "k" },
		BaseURL: ts.URL,
		Logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	res := c.Call(context.Background(), []router.Message{{Role: "user", Content: "hi"}}, 0.7, 800)

	require.True(t, res.Success)
	assert.Equal(t, router.ProviderDeepSeek, c.ID())
	assert.Equal(t, Model, res.Model)
	assert.Equal(t, Model, c.Model())
	assert.Equal(t, "/chat/completions", gotPath)
	assert.Equal(t, "hello", res.Text)
}
