package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/af-corp/genroute/internal/config"
	"github.com/af-corp/genroute/internal/feedback"
	"github.com/af-corp/genroute/internal/httputil"
	"github.com/af-corp/genroute/internal/models"
	"github.com/af-corp/genroute/internal/router"
	"github.com/af-corp/genroute/internal/telemetry"
	"github.com/af-corp/genroute/internal/types"
	"github.com/af-corp/genroute/internal/usage"
	"github.com/go-chi/chi/v5"
)

const (
	maxBodyBytes       = 1 << 20
	defaultRecentLimit = 20
)

// Deps are the collaborators of the HTTP handlers. Validator, Spend, Health and
// Metrics are optional.
type Deps struct {
	Generator   feedback.Generator
	ModelConfig func() models.ModelConfig
	Config      func() *config.Config
	Validator   feedback.Validator
	Tracker     *usage.Tracker
	Spend       *usage.SpendCounter
	Health      *router.HealthTracker
	Metrics     *telemetry.Metrics
	Logger      *slog.Logger
	Version     string
}

// Handler holds dependencies for the genroute HTTP handlers.
type Handler struct {
	deps Deps
}

func NewHandler(deps Deps) *Handler {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Config == nil {
		deps.Config = config.DefaultConfig
	}
	if deps.Tracker == nil {
		deps.Tracker = usage.NewTracker(usage.DefaultCapacity)
	}
	return &Handler{deps: deps}
}

// Routes mounts the API on r. limit wraps the generation endpoints and may be nil.
func (h *Handler) Routes(r chi.Router, limit func(http.Handler) http.Handler) {
	r.Get("/genroute/v1/health", h.Health)

	r.Group(func(r chi.Router) {
		if limit != nil {
			r.Use(limit)
		}
		r.Post("/v1/generate", h.Generate)
		r.Post("/v1/plan", h.Plan)
	})

	r.Get("/v1/models", h.ListModels)
	r.Get("/v1/usage/stats", h.UsageStats)
	r.Get("/v1/usage/recent", h.UsageRecent)
	r.Get("/v1/usage/spend", h.UsageSpend)
}

// Generate handles POST /v1/generate
func (h *Handler) Generate(w http.ResponseWriter, r *http.Request) {
	reqID := w.Header().Get("X-Request-ID")
	receivedAt := time.Now()

	var req types.GenerateRequest
	if !decodeBody(w, r, reqID, &req) {
		return
	}
	req.Prompt = strings.TrimSpace(req.Prompt)
	req.RequestID = reqID
	req.ReceivedAt = receivedAt

	if req.Prompt == "" {
		httputil.WriteBadRequestError(w, reqID, "prompt is required")
		return
	}
	refine := req.Refine != nil && req.Refine.Enabled
	if refine {
		if req.Refine.MaxIterations < 0 {
			httputil.WriteBadRequestError(w, reqID, "refine.max_iterations must not be negative")
			return
		}
		if h.deps.Validator == nil {
			httputil.WriteBadRequestError(w, reqID, "refinement is not available: no validator configured")
			return
		}
	}

	cfg := h.deps.Config()
	mcfg := h.deps.ModelConfig()
	sel := router.Select(req.Prompt, mcfg)

	if refine {
		h.generateRefined(r.Context(), w, &req, sel, mcfg, cfg)
		return
	}

	msgs := feedback.InitialMessages(cfg.Generation.SystemPrompt, req.Prompt)
	res, err := h.deps.Generator.Generate(r.Context(), sel, mcfg, msgs)
	if err != nil {
		var genErr *router.GenerationError
		if errors.As(err, &genErr) && genErr.Result != nil {
			h.addSpend(r.Context(), reqID, req.Project, genErr.Result.EstimatedCost)
		}
		h.writeGenerationError(w, reqID, err, sel)
		return
	}
	h.addSpend(r.Context(), reqID, req.Project, res.EstimatedCost)

	h.deps.Logger.Info("request completed",
		"request_id", reqID,
		"project", req.Project,
		"complexity", sel.Complexity.String(),
		"model", string(res.Model),
		"reasoning_effort", res.ReasoningEffort.Label(),
		"fallback_occurred", res.FallbackOccurred,
		"estimated_cost_usd", res.EstimatedCost,
		"duration_ms", time.Since(receivedAt).Milliseconds(),
	)

	httputil.WriteJSON(w, http.StatusOK, types.GenerateResponse{
		RequestID:  reqID,
		Content:    res.Content,
		Complexity: sel.Complexity.String(),
		Metadata:   resultMetadata(res, sel),
	})
}

func (h *Handler) generateRefined(ctx context.Context, w http.ResponseWriter, req *types.GenerateRequest, sel router.Selection, mcfg models.ModelConfig, cfg *config.Config) {
	ctrl := feedback.NewController(h.deps.Generator, h.deps.Validator,
		feedback.WithMaxIterations(cfg.Feedback.MaxIterations),
		feedback.WithSystemPrompt(cfg.Generation.SystemPrompt),
		feedback.WithLogger(h.deps.Logger.With("request_id", req.RequestID)),
	)

	res, err := ctrl.Run(ctx, feedback.Request{
		Prompt:        req.Prompt,
		Selection:     sel,
		Config:        mcfg,
		MaxIterations: req.Refine.MaxIterations,
	})
	if err != nil {
		var genErr *router.GenerationError
		if errors.As(err, &genErr) && genErr.Result != nil {
			h.addSpend(ctx, req.RequestID, req.Project, genErr.Result.EstimatedCost)
		}
		h.deps.Metrics.RecordFeedback("failed", 0)
		h.writeGenerationError(w, req.RequestID, err, sel)
		return
	}
	h.addSpend(ctx, req.RequestID, req.Project, res.TotalCost)

	outcome := "failed"
	if res.Success {
		outcome = "validated"
	}
	h.deps.Metrics.RecordFeedback(outcome, res.Iterations)

	validated := res.Success
	meta := types.Metadata{
		Model:            string(res.Model),
		ReasoningEffort:  string(res.ReasoningEffort),
		FallbackOccurred: res.FallbackOccurred,
		FallbackReason:   res.FallbackReason,
		OriginalModel:    string(res.OriginalModel),
		TokensIn:         res.TokensIn,
		TokensOut:        res.TokensOut,
		LatencyMs:        time.Since(req.ReceivedAt).Milliseconds(),
		EstimatedCostUSD: res.TotalCost,
		CostMultiplier:   sel.CostMultiplier,
		Iterations:       res.Iterations,
		Validated:        &validated,
	}
	if !res.Success {
		meta.ValidationFeedback = res.Feedback
	}

	h.deps.Logger.Info("request completed",
		"request_id", req.RequestID,
		"project", req.Project,
		"complexity", sel.Complexity.String(),
		"model", string(res.Model),
		"iterations", res.Iterations,
		"validated", res.Success,
		"estimated_cost_usd", res.TotalCost,
		"duration_ms", meta.LatencyMs,
	)

	httputil.WriteJSON(w, http.StatusOK, types.GenerateResponse{
		RequestID:  req.RequestID,
		Content:    res.Content,
		Complexity: sel.Complexity.String(),
		Metadata:   meta,
	})
}

// writeGenerationError maps orchestrator and feedback failures to HTTP responses. When
// the failure carries a result, its metadata goes into the body so callers see what ran.
func (h *Handler) writeGenerationError(w http.ResponseWriter, reqID string, err error, sel router.Selection) {
	switch {
	case errors.Is(err, context.Canceled):
		h.deps.Logger.Info("request cancelled by client", "request_id", reqID)
		return
	case errors.Is(err, context.DeadlineExceeded):
		httputil.WriteError(w, reqID, http.StatusGatewayTimeout, "server_error", "timeout", "generation timed out")
		return
	}

	h.deps.Logger.Warn("generation failed", "request_id", reqID, "error", err)

	var metadata any
	var genErr *router.GenerationError
	if errors.As(err, &genErr) && genErr.Result != nil {
		metadata = resultMetadata(genErr.Result, sel)
	}

	switch {
	case router.IsContentPolicy(err):
		httputil.WriteContentBlockedError(w, reqID, "Request rejected by the model provider's content policy", metadata)
	case errors.Is(err, router.ErrTerminal):
		var be *types.BackendError
		code := ""
		if errors.As(err, &be) {
			code = be.Code
		}
		httputil.WriteUpstreamError(w, reqID, code, err.Error(), metadata)
	case errors.Is(err, router.ErrExhausted):
		httputil.WriteExhaustedError(w, reqID, err.Error(), metadata)
	case errors.Is(err, feedback.ErrNoContent):
		httputil.WriteUpstreamError(w, reqID, "empty_content", err.Error(), metadata)
	default:
		httputil.WriteInternalError(w, reqID, "generation failed")
	}
}

// resultMetadata describes what the orchestrator actually executed.
func resultMetadata(res *router.Result, sel router.Selection) types.Metadata {
	return types.Metadata{
		Model:            string(res.Model),
		ReasoningEffort:  string(res.ReasoningEffort),
		FallbackOccurred: res.FallbackOccurred,
		FallbackReason:   res.FallbackReason,
		OriginalModel:    string(res.OriginalModel),
		TokensIn:         res.TokensIn,
		TokensOut:        res.TokensOut,
		LatencyMs:        res.Latency.Milliseconds(),
		EstimatedCostUSD: res.EstimatedCost,
		CostMultiplier:   sel.CostMultiplier,
	}
}

func (h *Handler) addSpend(ctx context.Context, reqID, project string, cost float64) {
	if h.deps.Spend == nil || cost <= 0 {
		return
	}
	// the request context may already be done; spend is recorded regardless
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), time.Second)
	defer cancel()
	if err := h.deps.Spend.Add(ctx, project, cost); err != nil {
		h.deps.Logger.Warn("failed to record spend", "request_id", reqID, "project", project, "error", err)
	}
}

// Plan handles POST /v1/plan
func (h *Handler) Plan(w http.ResponseWriter, r *http.Request) {
	reqID := w.Header().Get("X-Request-ID")

	var req types.PlanRequest
	if !decodeBody(w, r, reqID, &req) {
		return
	}
	if strings.TrimSpace(req.Prompt) == "" {
		httputil.WriteBadRequestError(w, reqID, "prompt is required")
		return
	}

	httputil.WriteJSON(w, http.StatusOK, PlanFor(req.Prompt, h.deps.ModelConfig()))
}

// PlanFor is the dry-run selection for a prompt.
func PlanFor(prompt string, mcfg models.ModelConfig) types.PlanResponse {
	sel := router.Select(strings.TrimSpace(prompt), mcfg)
	chain := make([]string, 0, len(mcfg.FallbackChain)+1)
	for _, t := range append([]models.Tier{sel.Model}, mcfg.FallbackChain...) {
		chain = append(chain, string(t))
	}
	return types.PlanResponse{
		Complexity:      sel.Complexity.String(),
		Model:           string(sel.Model),
		ReasoningEffort: string(sel.ReasoningEffort),
		Temperature:     sel.Temperature,
		MaxTokens:       sel.MaxTokens,
		CostMultiplier:  sel.CostMultiplier,
		FallbackChain:   chain,
	}
}

// ListModels handles GET /v1/models
func (h *Handler) ListModels(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, modelListResponse{
		Object: "list",
		Data:   models.Catalog(),
	})
}

type modelListResponse struct {
	Object string            `json:"object"`
	Data   []models.TierInfo `json:"data"`
}

// UsageStats handles GET /v1/usage/stats
func (h *Handler) UsageStats(w http.ResponseWriter, r *http.Request) {
	stats, ok := h.deps.Tracker.Stats()
	if !ok {
		httputil.WriteJSON(w, http.StatusOK, usage.Stats{
			ByModel:           map[string]int{},
			ByReasoningEffort: map[string]int{},
		})
		return
	}
	httputil.WriteJSON(w, http.StatusOK, stats)
}

// UsageRecent handles GET /v1/usage/recent?limit=n
func (h *Handler) UsageRecent(w http.ResponseWriter, r *http.Request) {
	reqID := w.Header().Get("X-Request-ID")

	limit := defaultRecentLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			httputil.WriteBadRequestError(w, reqID, "limit must be a positive integer")
			return
		}
		limit = n
	}

	records := h.deps.Tracker.Recent(limit)
	if records == nil {
		records = []usage.Record{}
	}
	httputil.WriteJSON(w, http.StatusOK, recentResponse{
		Count:   len(records),
		Records: records,
	})
}

type recentResponse struct {
	Count   int            `json:"count"`
	Records []usage.Record `json:"records"`
}

// UsageSpend handles GET /v1/usage/spend?project=
func (h *Handler) UsageSpend(w http.ResponseWriter, r *http.Request) {
	reqID := w.Header().Get("X-Request-ID")
	project := r.URL.Query().Get("project")

	if h.deps.Spend == nil {
		httputil.WriteServiceUnavailableError(w, reqID, "spend tracking is not configured")
		return
	}
	micros, err := h.deps.Spend.Get(r.Context(), project)
	if err != nil {
		h.deps.Logger.Error("failed to read spend", "request_id", reqID, "project", project, "error", err)
		httputil.WriteServiceUnavailableError(w, reqID, "spend store unavailable")
		return
	}
	if project == "" {
		project = usage.DefaultProject
	}
	httputil.WriteJSON(w, http.StatusOK, spendResponse{
		Project:  project,
		Date:     time.Now().UTC().Format(time.DateOnly),
		SpendUSD: float64(micros) / 1e6,
	})
}

type spendResponse struct {
	Project  string  `json:"project"`
	Date     string  `json:"date"`
	SpendUSD float64 `json:"spend_usd"`
}

// Health handles GET /genroute/v1/health
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	circuits := map[string]string{}
	status := "healthy"
	if h.deps.Health != nil {
		for tier, state := range h.deps.Health.States() {
			circuits[string(tier)] = state.String()
		}
		for _, t := range h.deps.ModelConfig().Chain() {
			if s, ok := circuits[string(t)]; ok && s == router.StateOpen.String() {
				status = "degraded"
			}
		}
	}
	httputil.WriteJSON(w, http.StatusOK, healthResponse{
		Status:   status,
		Version:  h.deps.Version,
		Circuits: circuits,
	})
}

type healthResponse struct {
	Status   string            `json:"status"`
	Version  string            `json:"version"`
	Circuits map[string]string `json:"circuits"`
}

func decodeBody(w http.ResponseWriter, r *http.Request, reqID string, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	defer r.Body.Close()
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		httputil.WriteBadRequestError(w, reqID, "Invalid JSON: "+err.Error())
		return false
	}
	return true
}
