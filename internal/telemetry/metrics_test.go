package telemetry

import (
	"testing"

	"github.com/af-corp/genroute/internal/usage"
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func counterValue(t *testing.T, vec *prometheus.CounterVec, labels ...string) float64 {
	t.Helper()
	counter, err := vec.GetMetricWithLabelValues(labels...)
	if err != nil {
		t.Fatalf("failed to get metric: %v", err)
	}
	var metric dto.Metric
	if err := counter.Write(&metric); err != nil {
		t.Fatalf("write metric: %v", err)
	}
	return metric.GetCounter().GetValue()
}

func TestNewMetricsWith(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetricsWith(reg)

	if m.GenerationTotal == nil || m.FallbackTotal == nil || m.GenerationDurationMs == nil {
		t.Fatal("generation metrics should not be nil")
	}
	if m.TokensTotal == nil || m.CostUSDTotal == nil || m.FeedbackIterations == nil || m.RateLimitHitTotal == nil {
		t.Fatal("accounting metrics should not be nil")
	}

	m.RecordRateLimitHit("ip")
	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	found := false
	for _, f := range families {
		if f.GetName() == "genroute_rate_limit_hit_total" {
			found = true
		}
	}
	if !found {
		t.Error("expected genroute_rate_limit_hit_total on the private registry")
	}
}

func TestRecordGeneration(t *testing.T) {
	m := NewMetricsWith(prometheus.NewRegistry())

	m.RecordGeneration(GenerationLabels{
		Model:            "gpt-4.1-mini",
		ReasoningEffort:  "none",
		Status:           "success",
		OriginalModel:    "gpt-5-mini",
		FallbackOccurred: true,
		DurationMs:       1500,
		InputTokens:      100,
		OutputTokens:     50,
		CostUSD:          0.005,
	})

	if v := counterValue(t, m.GenerationTotal, "gpt-4.1-mini", "none", "success"); v != 1 {
		t.Errorf("expected generation count 1, got %v", v)
	}
	if v := counterValue(t, m.FallbackTotal, "gpt-5-mini", "gpt-4.1-mini"); v != 1 {
		t.Errorf("expected fallback count 1, got %v", v)
	}
	if v := counterValue(t, m.TokensTotal, "gpt-4.1-mini", "input"); v != 100 {
		t.Errorf("expected 100 input tokens, got %v", v)
	}
	if v := counterValue(t, m.TokensTotal, "gpt-4.1-mini", "output"); v != 50 {
		t.Errorf("expected 50 output tokens, got %v", v)
	}
	if v := counterValue(t, m.CostUSDTotal, "gpt-4.1-mini"); v != 0.005 {
		t.Errorf("expected cost 0.005, got %v", v)
	}
}

func TestRecordGeneration_NoFallback(t *testing.T) {
	m := NewMetricsWith(prometheus.NewRegistry())
	m.RecordGeneration(GenerationLabels{Model: "gpt-5", ReasoningEffort: "high", Status: "terminal"})

	if v := counterValue(t, m.FallbackTotal, "", "gpt-5"); v != 0 {
		t.Errorf("expected no fallback recorded, got %v", v)
	}
}

func TestRecordFeedback(t *testing.T) {
	m := NewMetricsWith(prometheus.NewRegistry())
	m.RecordFeedback("validated", 2)
	m.RecordFeedback("validated", 3)

	observer, err := m.FeedbackIterations.GetMetricWithLabelValues("validated")
	if err != nil {
		t.Fatal(err)
	}
	var metric dto.Metric
	observer.(prometheus.Metric).Write(&metric)
	if metric.GetHistogram().GetSampleCount() != 2 {
		t.Errorf("expected 2 samples, got %d", metric.GetHistogram().GetSampleCount())
	}
	if metric.GetHistogram().GetSampleSum() != 5 {
		t.Errorf("expected sum 5, got %v", metric.GetHistogram().GetSampleSum())
	}
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	m.RecordGeneration(GenerationLabels{Model: "gpt-5"})
	m.RecordFeedback("failed", 5)
	m.RecordRateLimitHit("ip")
}

func TestLog_UsageRecord(t *testing.T) {
	m := NewMetricsWith(prometheus.NewRegistry())

	m.Log(usage.Record{
		Model:            "gpt-4o-mini",
		TokensUsed:       300,
		GenerationTimeMs: 900,
		FallbackOccurred: true,
		OriginalModel:    "gpt-5-mini",
		Success:          false,
		ErrorKind:        "exhausted",
		EstimatedCost:    0.0002,
	})

	if v := counterValue(t, m.GenerationTotal, "gpt-4o-mini", "none", "exhausted"); v != 1 {
		t.Errorf("expected exhausted generation count 1, got %v", v)
	}
	if v := counterValue(t, m.FallbackTotal, "gpt-5-mini", "gpt-4o-mini"); v != 1 {
		t.Errorf("expected fallback count 1, got %v", v)
	}
	if v := counterValue(t, m.TokensTotal, "gpt-4o-mini", "total"); v != 300 {
		t.Errorf("expected 300 total tokens, got %v", v)
	}
}
