package models

import (
	"errors"
	"fmt"
)

// ModelConfig is the process-wide model configuration. It is immutable once built;
// a reload produces a new value.
type ModelConfig struct {
	Primary         Tier
	FallbackChain   []Tier
	ReasoningEffort ReasoningEffort
	Temperature     float64
	MaxTokens       int
}

// NewModelConfig parses and validates raw configuration values.
func NewModelConfig(primary string, fallback []string, effort string, temperature float64, maxTokens int) (ModelConfig, error) {
	p, err := ParseTier(primary)
	if err != nil {
		return ModelConfig{}, fmt.Errorf("primary: %w", err)
	}
	chain := make([]Tier, 0, len(fallback))
	for i, name := range fallback {
		t, err := ParseTier(name)
		if err != nil {
			return ModelConfig{}, fmt.Errorf("fallback_chain[%d]: %w", i, err)
		}
		chain = append(chain, t)
	}
	e, err := ParseReasoningEffort(effort)
	if err != nil {
		return ModelConfig{}, err
	}
	if maxTokens <= 0 {
		return ModelConfig{}, errors.New("max_tokens must be positive")
	}
	if temperature < 0 || temperature > 2 {
		return ModelConfig{}, fmt.Errorf("temperature %.2f out of range [0,2]", temperature)
	}
	return ModelConfig{
		Primary:         p,
		FallbackChain:   chain,
		ReasoningEffort: e,
		Temperature:     temperature,
		MaxTokens:       maxTokens,
	}, nil
}

// Chain returns the primary followed by the fallback chain.
func (c ModelConfig) Chain() []Tier {
	out := make([]Tier, 0, len(c.FallbackChain)+1)
	out = append(out, c.Primary)
	return append(out, c.FallbackChain...)
}
