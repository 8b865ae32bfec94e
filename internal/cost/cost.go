// Package cost estimates token counts and the price of a completion.
package cost

import (
	"fmt"
	"unicode/utf8"
)

const (
	// Per million tokens, USD.
	DefaultInputPrice  = 0.25
	DefaultOutputPrice = 2.00

	DefaultUSDToJPY = 150.0

	charsPerToken = 4
)

// Pricing converts token counts into money.
type Pricing struct {
	InputPerMillion  float64
	OutputPerMillion float64
	USDToJPY         float64
}

func DefaultPricing() Pricing {
	return Pricing{
		InputPerMillion:  DefaultInputPrice,
		OutputPerMillion: DefaultOutputPrice,
		USDToJPY:         DefaultUSDToJPY,
	}
}

type Breakdown struct {
	InputTokens  int
	OutputTokens int
	TotalUSD     float64
}

func (b Breakdown) TotalJPY(p Pricing) float64 {
	return b.TotalUSD * p.USDToJPY
}

// EstimateTokens approximates the token count of text at four characters
// per token, rounded up.
func EstimateTokens(text string) int {
	n := utf8.RuneCountInString(text)
	return (n + charsPerToken - 1) / charsPerToken
}

// Estimate prices a request from its texts when the API reported no usage.
func (p Pricing) Estimate(prompt, user, output string) Breakdown {
	return p.FromUsage(EstimateTokens(prompt)+EstimateTokens(user), EstimateTokens(output))
}

// FromUsage prices the token counts reported by the API.
func (p Pricing) FromUsage(inputTokens, outputTokens int) Breakdown {
	in := float64(inputTokens) / 1_000_000 * p.InputPerMillion
	out := float64(outputTokens) / 1_000_000 * p.OutputPerMillion
	return Breakdown{
		InputTokens:  inputTokens,
		OutputTokens: outputTokens,
		TotalUSD:     in + out,
	}
}

// Format renders the cost line shown under a draft.
func (p Pricing) Format(b Breakdown) string {
	return fmt.Sprintf("Cost: ¥%.3f (input: %d tokens, output: %d tokens)",
		b.TotalJPY(p), b.InputTokens, b.OutputTokens)
}
