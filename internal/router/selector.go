package router

import (
	"github.com/af-corp/genroute/internal/complexity"
	"github.com/af-corp/genroute/internal/models"
)

// Selection is the concrete parameter set for one generation request.
type Selection struct {
	Model           models.Tier
	ReasoningEffort models.ReasoningEffort
	Temperature     float64
	MaxTokens       int
	CostMultiplier  float64
	Complexity      complexity.Level
}

// Select classifies the request text and picks parameters for it.
func Select(text string, cfg models.ModelConfig) Selection {
	return SelectFor(complexity.Classify(text), cfg)
}

// SelectFor picks parameters for an already classified request. Reasoning-capable
// primaries get tuned presets for simple and complex requests; everything else uses
// the configured defaults.
func SelectFor(level complexity.Level, cfg models.ModelConfig) Selection {
	reasoning := cfg.Primary.SupportsReasoningEffort()

	switch {
	case reasoning && level == complexity.Simple:
		return Selection{
			Model:           cfg.Primary,
			ReasoningEffort: models.EffortMinimal,
			Temperature:     0.7,
			MaxTokens:       3000,
			CostMultiplier:  0.7,
			Complexity:      level,
		}
	case reasoning && level == complexity.Complex:
		return Selection{
			Model:           cfg.Primary,
			ReasoningEffort: models.EffortHigh,
			Temperature:     0.5,
			MaxTokens:       6000,
			CostMultiplier:  1.3,
			Complexity:      level,
		}
	}

	effort := models.EffortNone
	if reasoning {
		effort = cfg.ReasoningEffort
	}
	return Selection{
		Model:           cfg.Primary,
		ReasoningEffort: effort,
		Temperature:     cfg.Temperature,
		MaxTokens:       cfg.MaxTokens,
		CostMultiplier:  1.0,
		Complexity:      level,
	}
}
