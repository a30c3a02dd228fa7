package models

import (
	"fmt"
	"sort"
	"strings"
)

// Tier identifies a backend model variant.
type Tier string

const (
	TierGPT5           Tier = "gpt-5"
	TierGPT5Mini       Tier = "gpt-5-mini"
	TierGPT5Nano       Tier = "gpt-5-nano"
	TierGPT41          Tier = "gpt-4.1"
	TierGPT41Mini      Tier = "gpt-4.1-mini"
	TierGPT4o          Tier = "gpt-4o"
	TierGPT4oMini      Tier = "gpt-4o-mini"
	TierClaudeSonnet45 Tier = "claude-sonnet-4-5"
	TierClaudeHaiku45  Tier = "claude-haiku-4-5"
)

// Pricing is the per-million-token price of a tier in USD.
type Pricing struct {
	InputPerMillion  float64 `json:"input_per_million" yaml:"input_per_million"`
	OutputPerMillion float64 `json:"output_per_million" yaml:"output_per_million"`
}

// TierInfo is the static catalog record for a tier.
type TierInfo struct {
	Tier                    Tier    `json:"tier"`
	Provider                string  `json:"provider"`
	Pricing                 Pricing `json:"pricing"`
	SupportsReasoningEffort bool    `json:"supports_reasoning_effort"`
}

var catalog = map[Tier]TierInfo{
	TierGPT5:           {Tier: TierGPT5, Provider: "openai", Pricing: Pricing{1.25, 10.00}, SupportsReasoningEffort: true},
	TierGPT5Mini:       {Tier: TierGPT5Mini, Provider: "openai", Pricing: Pricing{0.25, 2.00}, SupportsReasoningEffort: true},
	TierGPT5Nano:       {Tier: TierGPT5Nano, Provider: "openai", Pricing: Pricing{0.05, 0.40}, SupportsReasoningEffort: true},
	TierGPT41:          {Tier: TierGPT41, Provider: "openai", Pricing: Pricing{2.00, 8.00}},
	TierGPT41Mini:      {Tier: TierGPT41Mini, Provider: "openai", Pricing: Pricing{0.40, 1.60}},
	TierGPT4o:          {Tier: TierGPT4o, Provider: "openai", Pricing: Pricing{2.50, 10.00}},
	TierGPT4oMini:      {Tier: TierGPT4oMini, Provider: "openai", Pricing: Pricing{0.15, 0.60}},
	TierClaudeSonnet45: {Tier: TierClaudeSonnet45, Provider: "anthropic", Pricing: Pricing{3.00, 15.00}},
	TierClaudeHaiku45:  {Tier: TierClaudeHaiku45, Provider: "anthropic", Pricing: Pricing{1.00, 5.00}},
}

// Lookup returns the catalog record for a tier.
func Lookup(t Tier) (TierInfo, bool) {
	info, ok := catalog[t]
	return info, ok
}

// ParseTier validates a tier name against the catalog.
func ParseTier(s string) (Tier, error) {
	t := Tier(strings.TrimSpace(s))
	if _, ok := catalog[t]; !ok {
		return "", fmt.Errorf("unknown model tier %q", s)
	}
	return t, nil
}

// Catalog returns every known tier sorted by name.
func Catalog() []TierInfo {
	out := make([]TierInfo, 0, len(catalog))
	for _, info := range catalog {
		out = append(out, info)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Tier < out[j].Tier })
	return out
}

func (t Tier) String() string { return string(t) }

// SupportsReasoningEffort reports whether the tier accepts a reasoning effort control.
// Unknown tiers never do.
func (t Tier) SupportsReasoningEffort() bool {
	return catalog[t].SupportsReasoningEffort
}

// Provider returns the provider name that serves the tier, or "" if unknown.
func (t Tier) Provider() string {
	return catalog[t].Provider
}

// ReasoningEffort is the intensity control some tiers accept. The zero value means none.
type ReasoningEffort string

const (
	EffortNone    ReasoningEffort = ""
	EffortMinimal ReasoningEffort = "minimal"
	EffortLow     ReasoningEffort = "low"
	EffortMedium  ReasoningEffort = "medium"
	EffortHigh    ReasoningEffort = "high"
)

// ParseReasoningEffort accepts the four effort levels plus "" and "none".
func ParseReasoningEffort(s string) (ReasoningEffort, error) {
	switch ReasoningEffort(strings.ToLower(strings.TrimSpace(s))) {
	case EffortNone, "none":
		return EffortNone, nil
	case EffortMinimal:
		return EffortMinimal, nil
	case EffortLow:
		return EffortLow, nil
	case EffortMedium:
		return EffortMedium, nil
	case EffortHigh:
		return EffortHigh, nil
	default:
		return EffortNone, fmt.Errorf("unknown reasoning effort %q", s)
	}
}

// Label returns the effort name, or "none" for the zero value.
func (e ReasoningEffort) Label() string {
	if e == EffortNone {
		return "none"
	}
	return string(e)
}
