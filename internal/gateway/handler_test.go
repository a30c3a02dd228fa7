package gateway

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/af-corp/genroute/internal/feedback"
	"github.com/af-corp/genroute/internal/httputil"
	"github.com/af-corp/genroute/internal/models"
	"github.com/af-corp/genroute/internal/router"
	"github.com/af-corp/genroute/internal/types"
	"github.com/af-corp/genroute/internal/usage"
	"github.com/go-chi/chi/v5"
)

// fakeBackend answers per tier and counts calls.
type fakeBackend struct {
	replies map[models.Tier]func(call *types.GenerationCall) (*types.Completion, error)
	calls   int
}

func (b *fakeBackend) Invoke(_ context.Context, call *types.GenerationCall) (*types.Completion, error) {
	b.calls++
	if fn, ok := b.replies[call.Model]; ok {
		return fn(call)
	}
	return nil, &types.BackendError{StatusCode: 503, Message: "unavailable"}
}

func replyContent(content string) func(*types.GenerationCall) (*types.Completion, error) {
	return func(*types.GenerationCall) (*types.Completion, error) {
		return &types.Completion{Content: content, InputTokens: 1000, OutputTokens: 400}, nil
	}
}

func replyError(be *types.BackendError) func(*types.GenerationCall) (*types.Completion, error) {
	return func(*types.GenerationCall) (*types.Completion, error) { return nil, be }
}

func testModelConfig() models.ModelConfig {
	return models.ModelConfig{
		Primary:         models.TierGPT5Mini,
		FallbackChain:   []models.Tier{models.TierGPT41Mini, models.TierGPT4oMini},
		ReasoningEffort: models.EffortLow,
		Temperature:     0.7,
		MaxTokens:       4000,
	}
}

type testServer struct {
	router  chi.Router
	backend *fakeBackend
	tracker *usage.Tracker
	health  *router.HealthTracker
}

func newTestServer(t *testing.T, backend *fakeBackend, validator feedback.Validator) *testServer {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	tracker := usage.NewTracker(10)
	health := router.NewHealthTracker(5, time.Minute)
	orch := router.NewOrchestrator(backend,
		router.WithRecorder(tracker),
		router.WithHealthTracker(health),
		router.WithLogger(logger),
	)
	h := NewHandler(Deps{
		Generator:   orch,
		ModelConfig: testModelConfig,
		Validator:   validator,
		Tracker:     tracker,
		Health:      health,
		Logger:      logger,
		Version:     "test",
	})
	r := chi.NewRouter()
	h.Routes(r, nil)
	return &testServer{router: r, backend: backend, tracker: tracker, health: health}
}

func (s *testServer) do(method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	rec.Header().Set("X-Request-ID", "req-test")
	s.router.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %s: %v", rec.Body.String(), err)
	}
	return v
}

func TestGenerate_Success(t *testing.T) {
	s := newTestServer(t, &fakeBackend{replies: map[models.Tier]func(*types.GenerationCall) (*types.Completion, error){
		models.TierGPT5Mini: replyContent("graph TD; A-->B"),
	}}, nil)

	rec := s.do(http.MethodPost, "/v1/generate", `{"prompt":"a simple login flow"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d body=%s", rec.Code, rec.Body.String())
	}
	resp := decode[types.GenerateResponse](t, rec)
	if resp.Content != "graph TD; A-->B" || resp.RequestID != "req-test" {
		t.Errorf("unexpected response: %+v", resp)
	}
	if resp.Complexity != "simple" {
		t.Errorf("complexity = %q", resp.Complexity)
	}
	md := resp.Metadata
	if md.Model != "gpt-5-mini" || md.ReasoningEffort != "minimal" || md.FallbackOccurred {
		t.Errorf("unexpected metadata: %+v", md)
	}
	if md.CostMultiplier != 0.7 || md.TokensIn != 1000 || md.TokensOut != 400 {
		t.Errorf("unexpected metadata: %+v", md)
	}
	if want := models.Estimate(models.TierGPT5Mini, 1000, 400); md.EstimatedCostUSD != want {
		t.Errorf("cost = %v, want %v", md.EstimatedCostUSD, want)
	}
	if s.tracker.RecordCount() != 1 {
		t.Errorf("expected 1 usage record, got %d", s.tracker.RecordCount())
	}
}

func TestGenerate_FallbackMetadata(t *testing.T) {
	s := newTestServer(t, &fakeBackend{replies: map[models.Tier]func(*types.GenerationCall) (*types.Completion, error){
		models.TierGPT5Mini:  replyError(&types.BackendError{StatusCode: 503, Message: "overloaded"}),
		models.TierGPT41Mini: replyContent("from fallback"),
	}}, nil)

	rec := s.do(http.MethodPost, "/v1/generate", `{"prompt":"draw the states of an order from creation until delivery to the customer"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d body=%s", rec.Code, rec.Body.String())
	}
	md := decode[types.GenerateResponse](t, rec).Metadata
	if md.Model != "gpt-4.1-mini" || !md.FallbackOccurred || md.OriginalModel != "gpt-5-mini" {
		t.Errorf("unexpected metadata: %+v", md)
	}
	if md.ReasoningEffort != "" {
		t.Errorf("gpt-4.1-mini must not report a reasoning effort, got %q", md.ReasoningEffort)
	}
	if md.FallbackReason != "gpt-5-mini failed: overloaded" {
		t.Errorf("fallback reason = %q", md.FallbackReason)
	}
}

// generationErrorBody is an error response carrying generation metadata.
type generationErrorBody struct {
	Error    httputil.APIErrorBody `json:"error"`
	Metadata *types.Metadata       `json:"metadata"`
}

func TestGenerate_ErrorMapping(t *testing.T) {
	tests := []struct {
		name         string
		replies      map[models.Tier]func(*types.GenerationCall) (*types.Completion, error)
		status       int
		code         string
		maxCalls     int
		wantModel    string
		wantFallback bool
		wantCost     float64
	}{
		{
			name: "terminal auth failure",
			replies: map[models.Tier]func(*types.GenerationCall) (*types.Completion, error){
				models.TierGPT5Mini: replyError(&types.BackendError{StatusCode: 401, Code: "invalid_api_key", Message: "bad key"}),
			},
			status:    http.StatusBadGateway,
			code:      "invalid_api_key",
			maxCalls:  1,
			wantModel: "gpt-5-mini",
		},
		{
			name: "content policy with billed usage",
			replies: map[models.Tier]func(*types.GenerationCall) (*types.Completion, error){
				models.TierGPT5Mini: replyError(&types.BackendError{StatusCode: 400, Code: "content_policy_violation", Message: "rejected", InputTokens: 1000}),
			},
			status:    http.StatusUnavailableForLegalReasons,
			code:      "content_blocked",
			maxCalls:  1,
			wantModel: "gpt-5-mini",
			wantCost:  models.Estimate(models.TierGPT5Mini, 1000, 0),
		},
		{
			name:         "exhausted",
			replies:      nil,
			status:       http.StatusServiceUnavailable,
			code:         "service_unavailable",
			maxCalls:     3,
			wantModel:    "gpt-4o-mini",
			wantFallback: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			backend := &fakeBackend{replies: tt.replies}
			s := newTestServer(t, backend, nil)

			rec := s.do(http.MethodPost, "/v1/generate", `{"prompt":"hello"}`)
			if rec.Code != tt.status {
				t.Fatalf("status = %d, want %d (body %s)", rec.Code, tt.status, rec.Body.String())
			}
			body := decode[generationErrorBody](t, rec)
			if body.Error.Code != tt.code {
				t.Errorf("code = %q, want %q", body.Error.Code, tt.code)
			}
			if backend.calls != tt.maxCalls {
				t.Errorf("backend calls = %d, want %d", backend.calls, tt.maxCalls)
			}

			md := body.Metadata
			if md == nil {
				t.Fatal("expected metadata in the error body")
			}
			if md.Model != tt.wantModel || md.FallbackOccurred != tt.wantFallback {
				t.Errorf("metadata model=%s fallback=%v, want %s/%v", md.Model, md.FallbackOccurred, tt.wantModel, tt.wantFallback)
			}
			if tt.wantFallback && md.OriginalModel != "gpt-5-mini" {
				t.Errorf("original model = %q, want gpt-5-mini", md.OriginalModel)
			}
			if md.EstimatedCostUSD != tt.wantCost {
				t.Errorf("cost = %v, want %v", md.EstimatedCostUSD, tt.wantCost)
			}
		})
	}
}

func TestGenerate_BadRequests(t *testing.T) {
	s := newTestServer(t, &fakeBackend{}, nil)

	for _, body := range []string{`{"prompt":"   "}`, `not json`, `{"prompt":"x","refine":{"enabled":true}}`} {
		rec := s.do(http.MethodPost, "/v1/generate", body)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("body %q: status = %d, want 400", body, rec.Code)
		}
	}
	if s.backend.calls != 0 {
		t.Errorf("backend should not be called for bad requests, got %d calls", s.backend.calls)
	}
}

func TestGenerate_Refine(t *testing.T) {
	n := 0
	backend := &fakeBackend{replies: map[models.Tier]func(*types.GenerationCall) (*types.Completion, error){
		models.TierGPT5Mini: func(*types.GenerationCall) (*types.Completion, error) {
			n++
			return &types.Completion{Content: "draft " + string(rune('0'+n)), InputTokens: 10, OutputTokens: 5}, nil
		},
	}}
	validator := feedback.ValidatorFunc(func(_ context.Context, content string) (feedback.Validation, error) {
		if content == "draft 2" {
			return feedback.Validation{Valid: true}, nil
		}
		return feedback.Validation{Feedback: "syntax error on line 1"}, nil
	})
	s := newTestServer(t, backend, validator)

	rec := s.do(http.MethodPost, "/v1/generate", `{"prompt":"hello","refine":{"enabled":true}}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d body=%s", rec.Code, rec.Body.String())
	}
	resp := decode[types.GenerateResponse](t, rec)
	if resp.Content != "draft 2" {
		t.Errorf("content = %q", resp.Content)
	}
	md := resp.Metadata
	if md.Iterations != 2 || md.Validated == nil || !*md.Validated {
		t.Errorf("unexpected metadata: %+v", md)
	}
	if md.TokensIn != 20 || md.TokensOut != 10 {
		t.Errorf("tokens should accumulate across iterations: %+v", md)
	}
	if s.tracker.RecordCount() != 2 {
		t.Errorf("expected one usage record per generation, got %d", s.tracker.RecordCount())
	}
}

func TestGenerate_RefineExhaustsBudget(t *testing.T) {
	backend := &fakeBackend{replies: map[models.Tier]func(*types.GenerationCall) (*types.Completion, error){
		models.TierGPT5Mini: replyContent("still wrong"),
	}}
	validator := feedback.ValidatorFunc(func(context.Context, string) (feedback.Validation, error) {
		return feedback.Validation{Feedback: "wrong"}, nil
	})
	s := newTestServer(t, backend, validator)

	rec := s.do(http.MethodPost, "/v1/generate", `{"prompt":"hello","refine":{"enabled":true,"max_iterations":3}}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	md := decode[types.GenerateResponse](t, rec).Metadata
	if md.Iterations != 3 || md.Validated == nil || *md.Validated || md.ValidationFeedback != "wrong" {
		t.Errorf("unexpected metadata: %+v", md)
	}
	if backend.calls != 3 {
		t.Errorf("backend calls = %d, want 3", backend.calls)
	}
}

func TestPlan(t *testing.T) {
	s := newTestServer(t, &fakeBackend{}, nil)

	rec := s.do(http.MethodPost, "/v1/plan", `{"prompt":"distributed microservice architecture"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	plan := decode[types.PlanResponse](t, rec)
	if plan.Complexity != "complex" || plan.ReasoningEffort != "high" || plan.MaxTokens != 6000 {
		t.Errorf("unexpected plan: %+v", plan)
	}
	want := []string{"gpt-5-mini", "gpt-4.1-mini", "gpt-4o-mini"}
	if strings.Join(plan.FallbackChain, ",") != strings.Join(want, ",") {
		t.Errorf("chain = %v, want %v", plan.FallbackChain, want)
	}
	if s.backend.calls != 0 {
		t.Error("plan must not call the backend")
	}
}

func TestListModels(t *testing.T) {
	s := newTestServer(t, &fakeBackend{}, nil)

	rec := s.do(http.MethodGet, "/v1/models", "")
	resp := decode[modelListResponse](t, rec)
	if resp.Object != "list" || len(resp.Data) != len(models.Catalog()) {
		t.Errorf("unexpected model list: %+v", resp)
	}
}

func TestUsageEndpoints(t *testing.T) {
	s := newTestServer(t, &fakeBackend{replies: map[models.Tier]func(*types.GenerationCall) (*types.Completion, error){
		models.TierGPT5Mini: replyContent("ok"),
	}}, nil)

	empty := decode[usage.Stats](t, s.do(http.MethodGet, "/v1/usage/stats", ""))
	if empty.Count != 0 {
		t.Errorf("expected empty stats, got %+v", empty)
	}

	for i := 0; i < 3; i++ {
		s.do(http.MethodPost, "/v1/generate", `{"prompt":"hello"}`)
	}

	stats := decode[usage.Stats](t, s.do(http.MethodGet, "/v1/usage/stats", ""))
	if stats.Count != 3 || stats.SuccessRate != 100 || stats.ByModel["gpt-5-mini"] != 3 {
		t.Errorf("unexpected stats: %+v", stats)
	}

	recent := decode[recentResponse](t, s.do(http.MethodGet, "/v1/usage/recent?limit=2", ""))
	if recent.Count != 2 || len(recent.Records) != 2 {
		t.Errorf("unexpected recent: %+v", recent)
	}

	if rec := s.do(http.MethodGet, "/v1/usage/recent?limit=abc", ""); rec.Code != http.StatusBadRequest {
		t.Errorf("invalid limit: status = %d", rec.Code)
	}

	if rec := s.do(http.MethodGet, "/v1/usage/spend", ""); rec.Code != http.StatusServiceUnavailable {
		t.Errorf("spend without counter: status = %d", rec.Code)
	}
}

func TestUsageSpend_NoRedis(t *testing.T) {
	h := NewHandler(Deps{
		ModelConfig: testModelConfig,
		Spend:       usage.NewSpendCounter(nil),
		Logger:      slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	rec := httptest.NewRecorder()
	h.UsageSpend(rec, httptest.NewRequest(http.MethodGet, "/v1/usage/spend?project=alpha", nil))

	resp := decode[spendResponse](t, rec)
	if resp.Project != "alpha" || resp.SpendUSD != 0 || resp.Date == "" {
		t.Errorf("unexpected spend: %+v", resp)
	}
}

func TestHealth(t *testing.T) {
	s := newTestServer(t, &fakeBackend{}, nil)

	resp := decode[healthResponse](t, s.do(http.MethodGet, "/genroute/v1/health", ""))
	if resp.Status != "healthy" || resp.Version != "test" {
		t.Errorf("unexpected health: %+v", resp)
	}

	for i := 0; i < 5; i++ {
		s.health.RecordFailure(models.TierGPT5Mini)
	}
	resp = decode[healthResponse](t, s.do(http.MethodGet, "/genroute/v1/health", ""))
	if resp.Status != "degraded" || resp.Circuits["gpt-5-mini"] != "open" {
		t.Errorf("unexpected health: %+v", resp)
	}
}
