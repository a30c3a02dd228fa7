package router

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/af-corp/genroute/internal/config"
	"github.com/af-corp/genroute/internal/models"
	"github.com/af-corp/genroute/internal/types"
)

// fakeAdapter implements adapters.ProviderAdapter for testing.
type fakeAdapter struct {
	name  string
	calls []*types.GenerationCall
}

func (f *fakeAdapter) Name() string { return f.name }

func (f *fakeAdapter) Invoke(_ context.Context, call *types.GenerationCall) (*types.Completion, error) {
	f.calls = append(f.calls, call)
	return &types.Completion{Content: f.name + ":" + string(call.Model)}, nil
}

func TestRegistry_DispatchesByProvider(t *testing.T) {
	openai := &fakeAdapter{name: "openai"}
	anthropic := &fakeAdapter{name: "anthropic"}
	r := NewRegistry()
	r.Register("openai", openai)
	r.Register("anthropic", anthropic)

	comp, err := r.Invoke(context.Background(), &types.GenerationCall{Model: models.TierClaudeHaiku45})
	if err != nil {
		t.Fatalf("Invoke: %v", err)
	}
	if comp.Content != "anthropic:claude-haiku-4-5" {
		t.Errorf("content = %q", comp.Content)
	}
	if len(openai.calls) != 0 || len(anthropic.calls) != 1 {
		t.Errorf("calls: openai=%d anthropic=%d", len(openai.calls), len(anthropic.calls))
	}
}

func TestRegistry_MissingProviderIsRetryable(t *testing.T) {
	r := NewRegistry()

	_, err := r.Invoke(context.Background(), &types.GenerationCall{Model: models.TierGPT5})
	var be *types.BackendError
	if !errors.As(err, &be) {
		t.Fatalf("expected *types.BackendError, got %T", err)
	}
	if be.StatusCode != http.StatusNotFound || be.Code != "model_not_found" {
		t.Errorf("got status=%d code=%q", be.StatusCode, be.Code)
	}
	if Classify(err) != ClassRetryable {
		t.Error("missing provider should be retryable so the chain moves on")
	}
}

func TestRegistry_Replace(t *testing.T) {
	r := NewRegistry()
	r.Register("openai", &fakeAdapter{name: "old"})

	next := NewRegistry()
	next.Register("openai", &fakeAdapter{name: "new"})
	r.Replace(next)

	a, ok := r.Get("openai")
	if !ok || a.Name() != "new" {
		t.Errorf("expected replaced adapter, got %v", a)
	}
}

func TestBuildFromConfig(t *testing.T) {
	r := BuildFromConfig(&config.ProvidersConfig{
		Providers: map[string]config.ProviderConfig{
			"openai":    {Type: "openai", BaseURL: "http://localhost", Timeout: time.Second, MaxConcurrent: 4},
			"anthropic": {Type: "anthropic", BaseURL: "http://localhost", Timeout: time.Second, MaxConcurrent: 4},
		},
	})

	for name, want := range map[string]string{"openai": "openai", "anthropic": "anthropic"} {
		a, ok := r.Get(name)
		if !ok {
			t.Fatalf("provider %s not registered", name)
		}
		if a.Name() != want {
			t.Errorf("provider %s adapter = %s, want %s", name, a.Name(), want)
		}
	}
}

func TestBuildFromConfig_Nil(t *testing.T) {
	r := BuildFromConfig(nil)
	if _, ok := r.Get("openai"); ok {
		t.Error("expected empty registry")
	}
}
