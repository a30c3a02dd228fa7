package router

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/af-corp/genroute/internal/models"
	"github.com/af-corp/genroute/internal/types"
	"github.com/af-corp/genroute/internal/usage"
	"github.com/google/uuid"
)

// Backend performs one generation call against a model tier.
// Failures should be reported as *types.BackendError where possible.
type Backend interface {
	Invoke(ctx context.Context, call *types.GenerationCall) (*types.Completion, error)
}

// Recorder receives one usage record per terminal outcome.
type Recorder interface {
	Log(rec usage.Record)
}

// Result is the outcome of one orchestrated generation. Model and ReasoningEffort
// always describe the tier that produced the response, or on failure the last tier
// actually invoked. Both are empty when every tier was skipped.
type Result struct {
	Content          string
	Model            models.Tier
	ReasoningEffort  models.ReasoningEffort
	Success          bool
	TokensIn         int
	TokensOut        int
	Latency          time.Duration
	FallbackOccurred bool
	FallbackReason   string
	OriginalModel    models.Tier
	EstimatedCost    float64
	ErrorKind        FailureKind
	Attempts         int
}

// UsageRecord trims the result for the usage log.
func (r *Result) UsageRecord() usage.Record {
	return usage.Record{
		ID:               uuid.NewString(),
		Timestamp:        time.Now(),
		Model:            string(r.Model),
		ReasoningEffort:  string(r.ReasoningEffort),
		TokensUsed:       r.TokensIn + r.TokensOut,
		GenerationTimeMs: r.Latency.Milliseconds(),
		FallbackOccurred: r.FallbackOccurred,
		OriginalModel:    string(r.OriginalModel),
		Success:          r.Success,
		EstimatedCost:    r.EstimatedCost,
		ErrorKind:        string(r.ErrorKind),
	}
}

// Orchestrator runs a generation through the selected tier and then the configured
// fallback chain, one attempt at a time.
type Orchestrator struct {
	backend        Backend
	health         *HealthTracker
	recorders      []Recorder
	attemptTimeout time.Duration
	logger         *slog.Logger
}

type Option func(*Orchestrator)

// WithHealthTracker skips tiers whose circuit is open.
func WithHealthTracker(ht *HealthTracker) Option {
	return func(o *Orchestrator) { o.health = ht }
}

// WithRecorder logs every terminal outcome. It may be given more than once.
func WithRecorder(r Recorder) Option {
	return func(o *Orchestrator) { o.recorders = append(o.recorders, r) }
}

// WithAttemptTimeout bounds each backend call. Zero means no per-attempt bound.
func WithAttemptTimeout(d time.Duration) Option {
	return func(o *Orchestrator) { o.attemptTimeout = d }
}

func WithLogger(l *slog.Logger) Option {
	return func(o *Orchestrator) { o.logger = l }
}

// NewOrchestrator creates an orchestrator over the given backend.
func NewOrchestrator(backend Backend, opts ...Option) *Orchestrator {
	o := &Orchestrator{backend: backend}
	for _, opt := range opts {
		opt(o)
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}
	return o
}

// Generate tries sel.Model, then each tier of cfg.FallbackChain in order. A terminal
// failure stops immediately; a retryable failure advances to the next tier. On failure the
// returned error is a *GenerationError. If ctx is cancelled the chain is abandoned, ctx.Err()
// is returned, and nothing is recorded.
func (o *Orchestrator) Generate(ctx context.Context, sel Selection, cfg models.ModelConfig, messages []types.Message) (*Result, error) {
	if sel.Model == "" {
		return nil, ErrNoTiers
	}
	chain := make([]models.Tier, 0, len(cfg.FallbackChain)+1)
	chain = append(chain, sel.Model)
	chain = append(chain, cfg.FallbackChain...)

	start := time.Now()
	res := &Result{}

	for i, current := range chain {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		effort := models.EffortNone
		if current.SupportsReasoningEffort() {
			effort = sel.ReasoningEffort
		}
		comp, called, err := o.attempt(ctx, &types.GenerationCall{
			Model:           current,
			ReasoningEffort: effort,
			Temperature:     sel.Temperature,
			MaxTokens:       sel.MaxTokens,
			Messages:        messages,
		})
		// a skipped tier never ran, so it must not appear in the metadata
		if called {
			res.Attempts++
			res.Model = current
			res.ReasoningEffort = effort
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		if err == nil {
			if o.health != nil {
				o.health.RecordSuccess(current)
			}
			res.Success = true
			res.Content = comp.Content
			res.TokensIn = comp.InputTokens
			res.TokensOut = comp.OutputTokens
			res.EstimatedCost = models.Estimate(current, comp.InputTokens, comp.OutputTokens)
			res.Latency = time.Since(start)
			o.finish(res)
			return res, nil
		}

		class := Classify(err)
		if class == ClassTerminal {
			return nil, o.fail(res, KindTerminal, current, err, start)
		}

		if o.health != nil && called {
			o.health.RecordFailure(current)
		}
		if i == len(chain)-1 {
			return nil, o.fail(res, KindExhausted, current, err, start)
		}

		next := chain[i+1]
		res.FallbackOccurred = true
		res.FallbackReason = fmt.Sprintf("%s failed: %s", current, errorMessage(err))
		if res.OriginalModel == "" {
			res.OriginalModel = sel.Model
		}
		o.logger.Warn("falling back to next model tier",
			"model", string(current),
			"fallback_model", string(next),
			"error_class", class.String(),
			"error", err,
		)
	}

	// unreachable: the loop always returns on the last tier
	return nil, ErrNoTiers
}

// attempt runs one backend call. called is false when the call was skipped.
func (o *Orchestrator) attempt(ctx context.Context, call *types.GenerationCall) (comp *types.Completion, called bool, err error) {
	if o.health != nil && !o.health.IsAvailable(call.Model) {
		return nil, false, &types.BackendError{
			StatusCode: http.StatusServiceUnavailable,
			Code:       "circuit_open",
			Message:    fmt.Sprintf("circuit open for %s", call.Model),
		}
	}

	attemptCtx := ctx
	if o.attemptTimeout > 0 {
		var cancel context.CancelFunc
		attemptCtx, cancel = context.WithTimeout(ctx, o.attemptTimeout)
		defer cancel()
	}

	comp, err = o.backend.Invoke(attemptCtx, call)
	if err == nil && comp == nil {
		err = &types.BackendError{Message: "backend returned no completion"}
	}
	if err != nil && ctx.Err() == nil && errors.Is(attemptCtx.Err(), context.DeadlineExceeded) {
		err = &types.BackendError{
			Code:    "timeout",
			Message: fmt.Sprintf("attempt timed out after %s", o.attemptTimeout),
		}
	}
	return comp, true, err
}

func (o *Orchestrator) fail(res *Result, kind FailureKind, current models.Tier, err error, start time.Time) error {
	res.Success = false
	res.ErrorKind = kind

	var be *types.BackendError
	if errors.As(err, &be) && be.HasUsage() {
		res.TokensIn = be.InputTokens
		res.TokensOut = be.OutputTokens
		res.EstimatedCost = models.Estimate(current, be.InputTokens, be.OutputTokens)
	}
	res.Latency = time.Since(start)
	o.finish(res)

	return &GenerationError{Kind: kind, Model: res.Model, Err: err, Result: res}
}

func (o *Orchestrator) finish(res *Result) {
	if len(o.recorders) > 0 {
		rec := res.UsageRecord()
		for _, r := range o.recorders {
			r.Log(rec)
		}
	}

	attrs := []any{
		"model", string(res.Model),
		"reasoning_effort", res.ReasoningEffort.Label(),
		"success", res.Success,
		"attempts", res.Attempts,
		"fallback_occurred", res.FallbackOccurred,
		"tokens_in", res.TokensIn,
		"tokens_out", res.TokensOut,
		"estimated_cost_usd", res.EstimatedCost,
		"duration_ms", res.Latency.Milliseconds(),
	}
	if res.FallbackOccurred {
		attrs = append(attrs, "original_model", string(res.OriginalModel))
	}
	if res.Success {
		o.logger.Info("generation completed", attrs...)
		return
	}
	attrs = append(attrs, "error_kind", string(res.ErrorKind))
	o.logger.Error("generation failed", attrs...)
}
