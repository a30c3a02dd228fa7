package models

// Estimate returns the USD cost of a response from tier t. Unknown tiers cost nothing.
// The result is not rounded.
func Estimate(t Tier, inputTokens, outputTokens int) float64 {
	p := catalog[t].Pricing
	return float64(inputTokens)/1_000_000*p.InputPerMillion +
		float64(outputTokens)/1_000_000*p.OutputPerMillion
}
