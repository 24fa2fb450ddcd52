// README: Token estimation and cost rates for model calls.
package ai

import "strings"

// Gemini Flash list prices in USD per one million tokens.
const (
	InputCostPerMillion  = 0.075
	OutputCostPerMillion = 0.30
)

// EstimateTokens approximates a token count from whitespace-separated words (1 token ~ 0.75 words).
// Used when the provider does not report usage.
func EstimateTokens(text string) int {
	words := len(strings.Fields(text))
	return int(float64(words) / 0.75)
}

// EstimateCost returns the USD cost of a call, rounded to six decimals.
func EstimateCost(inputTokens, outputTokens int) float64 {
	cost := float64(inputTokens)*InputCostPerMillion/1e6 + float64(outputTokens)*OutputCostPerMillion/1e6
	return float64(int64(cost*1e6+0.5)) / 1e6
}
