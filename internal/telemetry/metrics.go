package telemetry

import (
	"github.com/af-corp/genroute/internal/usage"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for genroute. A nil *Metrics records nothing.
type Metrics struct {
	GenerationTotal      *prometheus.CounterVec
	FallbackTotal        *prometheus.CounterVec
	GenerationDurationMs *prometheus.HistogramVec
	TokensTotal          *prometheus.CounterVec
	CostUSDTotal         *prometheus.CounterVec
	FeedbackIterations   *prometheus.HistogramVec
	RateLimitHitTotal    *prometheus.CounterVec
}

// NewMetrics creates and registers all metrics on the default registry.
func NewMetrics() *Metrics {
	return NewMetricsWith(prometheus.DefaultRegisterer)
}

// NewMetricsWith registers all metrics on reg.
func NewMetricsWith(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		GenerationTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "genroute_generation_total",
			Help: "Total number of orchestrated generations by final model and outcome.",
		}, []string{"model", "reasoning_effort", "status"}),

		FallbackTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "genroute_fallback_total",
			Help: "Generations that ended on a fallback tier.",
		}, []string{"original_model", "model"}),

		GenerationDurationMs: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "genroute_generation_duration_ms",
			Help:    "Wall-clock duration of a generation across the whole fallback chain, in milliseconds.",
			Buckets: []float64{250, 500, 1000, 2500, 5000, 10000, 20000, 30000, 60000, 120000},
		}, []string{"model"}),

		TokensTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "genroute_tokens_total",
			Help: "Total tokens consumed.",
		}, []string{"model", "direction"}),

		CostUSDTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "genroute_cost_usd_total",
			Help: "Estimated total cost in USD.",
		}, []string{"model"}),

		FeedbackIterations: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "genroute_feedback_iterations",
			Help:    "Generation iterations used by the feedback loop.",
			Buckets: []float64{1, 2, 3, 4, 5, 8, 10},
		}, []string{"outcome"}),

		RateLimitHitTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "genroute_rate_limit_hit_total",
			Help: "Requests rejected by the rate limiter.",
		}, []string{"dimension"}),
	}
}

// RecordGeneration records metrics for one terminal orchestrator outcome.
func (m *Metrics) RecordGeneration(labels GenerationLabels) {
	if m == nil {
		return
	}
	m.GenerationTotal.WithLabelValues(
		labels.Model, labels.ReasoningEffort, labels.Status,
	).Inc()

	m.GenerationDurationMs.WithLabelValues(labels.Model).Observe(labels.DurationMs)

	if labels.FallbackOccurred {
		m.FallbackTotal.WithLabelValues(labels.OriginalModel, labels.Model).Inc()
	}

	if labels.TotalTokens > 0 {
		m.TokensTotal.WithLabelValues(labels.Model, "total").Add(float64(labels.TotalTokens))
	}
	if labels.InputTokens > 0 {
		m.TokensTotal.WithLabelValues(labels.Model, "input").Add(float64(labels.InputTokens))
	}
	if labels.OutputTokens > 0 {
		m.TokensTotal.WithLabelValues(labels.Model, "output").Add(float64(labels.OutputTokens))
	}

	if labels.CostUSD > 0 {
		m.CostUSDTotal.WithLabelValues(labels.Model).Add(labels.CostUSD)
	}
}

// Log records a usage record, so Metrics can sit next to the usage tracker as an
// orchestrator recorder. Token direction is not split in a usage record.
func (m *Metrics) Log(rec usage.Record) {
	status := "success"
	if !rec.Success {
		status = rec.ErrorKind
	}
	effort := rec.ReasoningEffort
	if effort == "" {
		effort = "none"
	}
	m.RecordGeneration(GenerationLabels{
		Model:            rec.Model,
		ReasoningEffort:  effort,
		Status:           status,
		OriginalModel:    rec.OriginalModel,
		FallbackOccurred: rec.FallbackOccurred,
		DurationMs:       float64(rec.GenerationTimeMs),
		TotalTokens:      rec.TokensUsed,
		CostUSD:          rec.EstimatedCost,
	})
}

// RecordFeedback records how many iterations a feedback loop took.
func (m *Metrics) RecordFeedback(outcome string, iterations int) {
	if m == nil {
		return
	}
	m.FeedbackIterations.WithLabelValues(outcome).Observe(float64(iterations))
}

// RecordRateLimitHit records a rejected request.
func (m *Metrics) RecordRateLimitHit(dimension string) {
	if m == nil {
		return
	}
	m.RateLimitHitTotal.WithLabelValues(dimension).Inc()
}

// GenerationLabels holds the label values for recording a generation.
type GenerationLabels struct {
	Model            string
	ReasoningEffort  string
	Status           string
	OriginalModel    string
	FallbackOccurred bool
	DurationMs       float64
	InputTokens      int
	OutputTokens     int
	TotalTokens      int
	CostUSD          float64
}
