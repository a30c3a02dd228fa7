package router

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/af-corp/genroute/internal/config"
	"github.com/af-corp/genroute/internal/router/adapters"
	"github.com/af-corp/genroute/internal/types"
)

// Registry maps provider names to adapters and dispatches calls by tier.
type Registry struct {
	mu       sync.RWMutex
	adapters map[string]adapters.ProviderAdapter
}

func NewRegistry() *Registry {
	return &Registry{
		adapters: make(map[string]adapters.ProviderAdapter),
	}
}

func (r *Registry) Register(name string, adapter adapters.ProviderAdapter) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.adapters[name] = adapter
}

func (r *Registry) Get(name string) (adapters.ProviderAdapter, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.adapters[name]
	return a, ok
}

// Replace swaps in the adapters of another registry, used on config reload.
func (r *Registry) Replace(other *Registry) {
	other.mu.RLock()
	next := make(map[string]adapters.ProviderAdapter, len(other.adapters))
	for k, v := range other.adapters {
		next[k] = v
	}
	other.mu.RUnlock()

	r.mu.Lock()
	r.adapters = next
	r.mu.Unlock()
}

// Invoke implements Backend. A tier whose provider has no adapter fails with a
// retryable model_not_found error so the chain moves on.
func (r *Registry) Invoke(ctx context.Context, call *types.GenerationCall) (*types.Completion, error) {
	provider := call.Model.Provider()
	adapter, ok := r.Get(provider)
	if !ok {
		return nil, &types.BackendError{
			StatusCode: http.StatusNotFound,
			Code:       "model_not_found",
			Message:    fmt.Sprintf("no provider %q configured for model %s", provider, call.Model),
		}
	}
	return adapter.Invoke(ctx, call)
}

// BuildFromConfig builds provider adapters from the providers config.
func BuildFromConfig(provCfg *config.ProvidersConfig) *Registry {
	registry := NewRegistry()
	if provCfg == nil {
		return registry
	}
	for name, cfg := range provCfg.Providers {
		client := &http.Client{
			Timeout: cfg.Timeout,
			Transport: &http.Transport{
				MaxIdleConns:        cfg.MaxConcurrent,
				MaxIdleConnsPerHost: cfg.MaxConcurrent,
				IdleConnTimeout:     90 * time.Second,
				ForceAttemptHTTP2:   true,
			},
		}

		var adapter adapters.ProviderAdapter
		switch cfg.Type {
		case config.ProviderTypeAnthropic:
			adapter = adapters.NewAnthropicAdapter(cfg, client)
		default:
			// OpenAI-compatible for openai and unknown types
			adapter = adapters.NewOpenAIAdapter(cfg, client)
		}
		registry.Register(name, adapter)
	}
	return registry
}
