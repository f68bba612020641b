// Package pricing holds the per-provider token rate card and cost math.
// Rates are compile-time constants expressed in USD per one million tokens.
package pricing

// Rate is the USD price per 1M input/output tokens for one model.
type Rate struct {
	InputPerM  float64
	OutputPerM float64
}

// Cost is the computed USD cost of a single provider call.
type Cost struct {
	Input    float64 `json:"input"`
	Output   float64 `json:"output"`
	Total    float64 `json:"total"`
	Currency string  `json:"currency"`
}

const million = 1_000_000.0

// rates maps "provider/model" to its rate card entry.
var rates = map[string]Rate{
	"deepseek/deepseek-chat": {InputPerM: 0.14, OutputPerM: 0.28},
	"openai/gpt-4o-mini":     {InputPerM: 0.15, OutputPerM: 0.60},
	"openai/gpt-4o":          {InputPerM: 2.50, OutputPerM: 10.00},
}

// fallbackRate is used when a model has no rate card entry. Approximating
// unknown models at gpt-4o-mini prices is intentional: a wrong-but-plausible
// cost beats a zero that would hide spend entirely.
var fallbackRate = rates["openai/gpt-4o-mini"]

// Lookup returns the rate for a provider/model pair and whether it was an
// exact match. Unknown models fall back to the gpt-4o-mini rate.
func Lookup(provider, model string) (Rate, bool) {
	if r, ok := rates[provider+"/"+model]; ok {
		return r, true
	}
	return fallbackRate, false
}

// ForCall computes the cost of a call from its token usage.
func ForCall(provider, model string, inputTokens, outputTokens int) Cost {
	r, _ := Lookup(provider, model)
	in := float64(inputTokens) / million * r.InputPerM
	out := float64(outputTokens) / million * r.OutputPerM
	return Cost{
		Input:    in,
		Output:   out,
		Total:    in + out,
		Currency: "USD",
	}
}
