package cost

import (
	"math"
	"testing"
)

func TestEstimateTokens(t *testing.T) {
	tests := []struct {
		text string
		want int
	}{
		{"", 0},
		{"abc", 1},
		{"abcd", 1},
		{"abcde", 2},
		{"こんにちは", 2}, // five runes
	}
	for _, tc := range tests {
		if got := EstimateTokens(tc.text); got != tc.want {
			t.Errorf("EstimateTokens(%q) = %d, want %d", tc.text, got, tc.want)
		}
	}
}

func TestFromUsage(t *testing.T) {
	p := DefaultPricing()
	b := p.FromUsage(1_000_000, 500_000)

	if math.Abs(b.TotalUSD-1.25) > 1e-9 {
		t.Fatalf("TotalUSD = %v, want 1.25", b.TotalUSD)
	}
	if math.Abs(b.TotalJPY(p)-187.5) > 1e-9 {
		t.Fatalf("TotalJPY = %v, want 187.5", b.TotalJPY(p))
	}
}

func TestEstimate(t *testing.T) {
	p := DefaultPricing()
	b := p.Estimate("12345678", "1234", "12345")

	if b.InputTokens != 3 || b.OutputTokens != 2 {
		t.Fatalf("tokens = %d/%d, want 3/2", b.InputTokens, b.OutputTokens)
	}
}

func TestFormat(t *testing.T) {
	p := DefaultPricing()
	got := p.Format(p.FromUsage(1200, 300))
	want := "Cost: ¥0.135 (input: 1200 tokens, output: 300 tokens)"
	if got != want {
		t.Fatalf("Format = %q, want %q", got, want)
	}
}
