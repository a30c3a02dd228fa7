package feedback

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/af-corp/genroute/internal/models"
	"github.com/af-corp/genroute/internal/router"
	"github.com/af-corp/genroute/internal/types"
)

// DefaultMaxIterations bounds the loop when neither the request nor the controller sets a limit.
const DefaultMaxIterations = 5

// ErrNoContent is returned when the first generation produced nothing to validate.
var ErrNoContent = errors.New("initial generation produced no content")

// Generator runs one orchestrated generation. *router.Orchestrator satisfies it.
type Generator interface {
	Generate(ctx context.Context, sel router.Selection, cfg models.ModelConfig, messages []types.Message) (*router.Result, error)
}

// Validation is a validator verdict.
type Validation struct {
	Valid    bool   `json:"valid"`
	Feedback string `json:"feedback,omitempty"`
}

// Validator checks generated content.
type Validator interface {
	Validate(ctx context.Context, content string) (Validation, error)
}

// ValidatorFunc adapts a function to Validator.
type ValidatorFunc func(ctx context.Context, content string) (Validation, error)

func (f ValidatorFunc) Validate(ctx context.Context, content string) (Validation, error) {
	return f(ctx, content)
}

// Request is one refinement run.
type Request struct {
	Prompt    string
	Selection router.Selection
	Config    models.ModelConfig
	// MaxIterations overrides the controller limit when positive.
	MaxIterations int
}

// Result is the terminal state of a run. Model, ReasoningEffort and the fallback fields
// come from the generation that produced Content.
type Result struct {
	Content          string
	Success          bool
	Iterations       int
	TokensIn         int
	TokensOut        int
	TotalTokens      int
	TotalCost        float64
	Model            models.Tier
	ReasoningEffort  models.ReasoningEffort
	FallbackOccurred bool
	FallbackReason   string
	OriginalModel    models.Tier
	// Feedback is the last validator feedback, or the error that ended the loop early.
	Feedback string
	History  []Iteration
}

// Controller drives the generate, validate, improve loop.
type Controller struct {
	gen           Generator
	validator     Validator
	maxIterations int
	systemPrompt  string
	logger        *slog.Logger
}

type Option func(*Controller)

func WithMaxIterations(n int) Option {
	return func(c *Controller) { c.maxIterations = n }
}

func WithSystemPrompt(p string) Option {
	return func(c *Controller) { c.systemPrompt = p }
}

func WithLogger(l *slog.Logger) Option {
	return func(c *Controller) { c.logger = l }
}

func NewController(gen Generator, validator Validator, opts ...Option) *Controller {
	c := &Controller{
		gen:           gen,
		validator:     validator,
		maxIterations: DefaultMaxIterations,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.maxIterations <= 0 {
		c.maxIterations = DefaultMaxIterations
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	return c
}

// Run executes the loop. An error is returned when the first generation yields no
// content or when ctx is done before the loop finishes; every other later failure
// ends the loop with the last content and Success false.
func (c *Controller) Run(ctx context.Context, req Request) (*Result, error) {
	maxIter := c.maxIterations
	if req.MaxIterations > 0 {
		maxIter = req.MaxIterations
	}

	st := &State{Phase: PhaseInitial}

	st.Phase = PhaseGenerating
	if err := c.generate(ctx, req, st, InitialMessages(c.systemPrompt, req.Prompt)); err != nil {
		st.Phase = PhaseFailed
		c.logOutcome(req, st)
		return nil, fmt.Errorf("feedback loop: %w", err)
	}

	for !st.Phase.Done() {
		st.Phase = PhaseValidating
		c.validate(ctx, st)
		if err := ctx.Err(); err != nil && st.Phase == PhaseFailed {
			return c.abort(req, st, err)
		}
		if st.Phase.Done() {
			break
		}

		if st.Iterations >= maxIter {
			st.Phase = PhaseFailed
			break
		}

		st.Phase = PhaseImproving
		msgs := ImprovementMessages(c.systemPrompt, req.Prompt, st.Content, st.Feedback)
		if err := c.generate(ctx, req, st, msgs); err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return c.abort(req, st, ctxErr)
			}
			st.Feedback = err.Error()
			st.Phase = PhaseFailed
		}
	}

	c.logOutcome(req, st)
	return st.result(), nil
}

// abort ends a run whose caller has gone away; partial content is not reported.
func (c *Controller) abort(req Request, st *State, err error) (*Result, error) {
	st.Phase = PhaseFailed
	c.logOutcome(req, st)
	return nil, fmt.Errorf("feedback loop: %w", err)
}

// generate runs one generation and folds it into the state.
func (c *Controller) generate(ctx context.Context, req Request, st *State, msgs []types.Message) error {
	res, err := c.gen.Generate(ctx, req.Selection, req.Config, msgs)

	it := Iteration{Number: len(st.History) + 1}
	var genErr *router.GenerationError
	switch {
	case err == nil:
		st.accumulate(res)
	case errors.As(err, &genErr):
		st.accumulate(genErr.Result)
	}

	if err == nil && res.Content == "" {
		err = ErrNoContent
	}
	if err != nil {
		it.Err = err
		if res != nil {
			it.Model, it.ReasoningEffort = res.Model, res.ReasoningEffort
		} else if genErr != nil && genErr.Result != nil {
			it.Model, it.ReasoningEffort = genErr.Result.Model, genErr.Result.ReasoningEffort
		}
		st.History = append(st.History, it)
		return err
	}

	st.Iterations++
	st.Content = res.Content
	st.Producer = res
	it.Model = res.Model
	it.ReasoningEffort = res.ReasoningEffort
	it.TokensIn = res.TokensIn
	it.TokensOut = res.TokensOut
	it.Cost = res.EstimatedCost
	st.History = append(st.History, it)

	c.logger.Debug("feedback iteration generated",
		"iteration", st.Iterations,
		"model", string(res.Model),
		"fallback_occurred", res.FallbackOccurred,
		"estimated_cost_usd", res.EstimatedCost,
	)
	return nil
}

// validate checks the current content. A validator error ends the loop.
func (c *Controller) validate(ctx context.Context, st *State) {
	v, err := c.validator.Validate(ctx, st.Content)
	it := st.last()
	if err != nil {
		st.Feedback = fmt.Sprintf("validator error: %v", err)
		st.Phase = PhaseFailed
		if it != nil {
			it.Err = err
		}
		return
	}

	st.Feedback = v.Feedback
	if it != nil {
		it.Validated = true
		it.Valid = v.Valid
		it.Feedback = v.Feedback
	}
	if v.Valid {
		st.Phase = PhaseSucceeded
	}

	c.logger.Debug("feedback iteration validated",
		"iteration", st.Iterations,
		"valid", v.Valid,
	)
}

func (c *Controller) logOutcome(req Request, st *State) {
	attrs := []any{
		"phase", st.Phase.String(),
		"iterations", st.Iterations,
		"total_tokens", st.TotalTokens,
		"total_cost_usd", st.TotalCost,
		"complexity", req.Selection.Complexity.String(),
	}
	if st.Producer != nil {
		attrs = append(attrs, "model", string(st.Producer.Model))
	}
	c.logger.Info("feedback loop finished", attrs...)
}

func (s *State) result() *Result {
	r := &Result{
		Content:     s.Content,
		Success:     s.Phase == PhaseSucceeded,
		Iterations:  s.Iterations,
		TokensIn:    s.TokensIn,
		TokensOut:   s.TokensOut,
		TotalTokens: s.TotalTokens,
		TotalCost:   s.TotalCost,
		Feedback:    s.Feedback,
		History:     s.History,
	}
	if p := s.Producer; p != nil {
		r.Model = p.Model
		r.ReasoningEffort = p.ReasoningEffort
		r.FallbackOccurred = p.FallbackOccurred
		r.FallbackReason = p.FallbackReason
		r.OriginalModel = p.OriginalModel
	}
	return r
}
