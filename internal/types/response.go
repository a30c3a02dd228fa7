package types

// GenerateResponse is returned by POST /v1/generate.
type GenerateResponse struct {
	RequestID  string   `json:"request_id"`
	Content    string   `json:"content"`
	Complexity string   `json:"complexity"`
	Metadata   Metadata `json:"metadata"`
}

// Metadata describes what actually executed for a response.
type Metadata struct {
	Model              string  `json:"model"`
	ReasoningEffort    string  `json:"reasoning_effort,omitempty"`
	FallbackOccurred   bool    `json:"fallback_occurred"`
	FallbackReason     string  `json:"fallback_reason,omitempty"`
	OriginalModel      string  `json:"original_model,omitempty"`
	TokensIn           int     `json:"tokens_in"`
	TokensOut          int     `json:"tokens_out"`
	LatencyMs          int64   `json:"latency_ms"`
	EstimatedCostUSD   float64 `json:"estimated_cost_usd"`
	CostMultiplier     float64 `json:"cost_multiplier"`
	Iterations         int     `json:"iterations,omitempty"`
	Validated          *bool   `json:"validated,omitempty"`
	ValidationFeedback string  `json:"validation_feedback,omitempty"`
}

// PlanResponse is returned by POST /v1/plan.
type PlanResponse struct {
	Complexity      string   `json:"complexity"`
	Model           string   `json:"model"`
	ReasoningEffort string   `json:"reasoning_effort,omitempty"`
	Temperature     float64  `json:"temperature"`
	MaxTokens       int      `json:"max_tokens"`
	CostMultiplier  float64  `json:"cost_multiplier"`
	FallbackChain   []string `json:"fallback_chain"`
}

// Completion is a successful backend response.
type Completion struct {
	Content       string
	InputTokens   int
	OutputTokens  int
	ProviderModel string
}
