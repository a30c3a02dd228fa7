package config

import (
	"fmt"
	"sort"
	"time"

	"github.com/af-corp/genroute/internal/models"
)

// Provider types understood by the adapter registry. An empty type means openai.
const (
	ProviderTypeOpenAI    = "openai"
	ProviderTypeAnthropic = "anthropic"
)

// ProvidersConfig maps a provider name (matching models.Tier.Provider) to its endpoint.
type ProvidersConfig struct {
	Providers map[string]ProviderConfig `yaml:"providers"`
}

type ProviderConfig struct {
	Type          string            `yaml:"type"`
	BaseURL       string            `yaml:"base_url"`
	APIKey        string            `yaml:"api_key"`
	APIVersion    string            `yaml:"api_version,omitempty"`
	MaxConcurrent int               `yaml:"max_concurrent"`
	Timeout       time.Duration     `yaml:"timeout"`
	Headers       map[string]string `yaml:"headers,omitempty"`
}

// Validate rejects providers the registry could not build an adapter for.
func (p *ProvidersConfig) Validate() error {
	names := make([]string, 0, len(p.Providers))
	for name := range p.Providers {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		pc := p.Providers[name]
		switch pc.Type {
		case "", ProviderTypeOpenAI, ProviderTypeAnthropic:
		default:
			return fmt.Errorf("provider %s: unknown type %q", name, pc.Type)
		}
		if pc.BaseURL == "" {
			return fmt.Errorf("provider %s: base_url is required", name)
		}
		if pc.Timeout < 0 || pc.MaxConcurrent < 0 {
			return fmt.Errorf("provider %s: timeout and max_concurrent must not be negative", name)
		}
	}
	return nil
}

// Unserved returns the tiers of chain whose provider is not configured.
// Calls to them fail as model_not_found and fall through to the next tier.
func (p *ProvidersConfig) Unserved(chain []models.Tier) []models.Tier {
	var out []models.Tier
	for _, t := range chain {
		if _, ok := p.Providers[t.Provider()]; !ok {
			out = append(out, t)
		}
	}
	return out
}
