package router

import (
	"context"

	"github.com/pageforge/hybridgate/internal/pricing"
)

// Provider identifiers. Fallback is a logical tag applied by the router when
// a result came from the non-selected provider.
const (
	ProviderDeepSeek = "deepseek"
	ProviderOpenAI   = "openai"
	ProviderFallback = "fallback"
)

// Message roles. Order matters when assembling a request: system prompt
// first, then optional context as a second system message, then the user
// message.
const (
	RoleSystem = "system"
	RoleUser   = "user"
)

// Message is one chat message sent upstream.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Usage is the token accounting reported by a provider.
type Usage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
	TotalTokens  int `json:"total_tokens"`
}

// Result is the normalized outcome of one provider call (or of a full
// routing attempt). Constructed once per attempt; only the router re-tags
// Provider and FallbackReason on a successful fallback.
type Result struct {
	Success        bool          `json:"success"`
	Text           string        `json:"text,omitempty"`
	Usage          *Usage        `json:"usage,omitempty"`
	Cost           *pricing.Cost `json:"cost,omitempty"`
	Error          string        `json:"error,omitempty"`
	Provider       string        `json:"provider"`
	Model          string        `json:"model"`
	DurationMs     int64         `json:"duration_ms"`
	FallbackReason string        `json:"fallback_reason,omitempty"`
}

// Client is one upstream chat-completion integration. Call never returns a
// Go error: every failure mode is folded into the Result.
type Client interface {
	ID() string
	Call(ctx context.Context, msgs []Message, temperature float64, maxTokens int) Result
}

// BuildMessages assembles the ordered message list: optional system prompt,
// optional context as a system message, then the user message.
func BuildMessages(systemPrompt, contextText, userMessage string) []Message {
	msgs := make([]Message, 0, 3)
	if systemPrompt != "" {
		msgs = append(msgs, Message{Role: RoleSystem, Content: systemPrompt})
	}
	if contextText != "" {
		msgs = append(msgs, Message{Role: RoleSystem, Content: contextText})
	}
	msgs = append(msgs, Message{Role: RoleUser, Content: userMessage})
	return msgs
}
