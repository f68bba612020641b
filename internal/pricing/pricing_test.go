package pricing

import (
	"math"
	"testing"
)

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestDeepSeekCostRoundTrip(t *testing.T) {
	c := ForCall("deepseek", "deepseek-chat", 1_000_000, 1_000_000)
	if !almostEqual(c.Input, 0.14) {
		t.Errorf("input cost: got %v, want 0.14", c.Input)
	}
	if !almostEqual(c.Output, 0.28) {
		t.Errorf("output cost: got %v, want 0.28", c.Output)
	}
	if !almostEqual(c.Total, 0.42) {
		t.Errorf("total cost: got %v, want 0.42", c.Total)
	}
	if c.Currency != "USD" {
		t.Errorf("currency: got %q, want USD", c.Currency)
	}
}

func TestKnownRates(t *testing.T) {
	cases := []struct {
		provider, model string
		in, out         float64
	}{
		{"deepseek", "deepseek-chat", 0.14, 0.28},
		{"openai", "gpt-4o-mini", 0.15, 0.60},
		{"openai", "gpt-4o", 2.50, 10.00},
	}
	for _, tc := range cases {
		r, exact := Lookup(tc.provider, tc.model)
		if !exact {
			t.Errorf("%s/%s: expected exact rate match", tc.provider, tc.model)
		}
		if r.InputPerM != tc.in || r.OutputPerM != tc.out {
			t.Errorf("%s/%s: got %+v", tc.provider, tc.model, r)
		}
	}
}

func TestUnknownModelFallsBackToMiniRate(t *testing.T) {
	r, exact := Lookup("openai", "gpt-5-experimental")
	if exact {
		t.Error("expected inexact match for unknown model")
	}
	if r != fallbackRate {
		t.Errorf("expected gpt-4o-mini fallback rate, got %+v", r)
	}

	c := ForCall("openai", "gpt-5-experimental", 2_000_000, 0)
	if !almostEqual(c.Total, 0.30) {
		t.Errorf("fallback cost: got %v, want 0.30", c.Total)
	}
}

func TestZeroUsageIsFree(t *testing.T) {
	c := ForCall("deepseek", "deepseek-chat", 0, 0)
	if c.Total != 0 {
		t.Errorf("zero tokens should cost nothing, got %v", c.Total)
	}
}
