// Package usage keeps a bounded in-memory log of completed generations and derives
// aggregate statistics from it.
package usage

import (
	"sync"
	"time"
)

// DefaultCapacity is the number of records retained before the oldest are evicted.
const DefaultCapacity = 1000

// Record is the trimmed copy of a generation outcome kept for aggregation.
type Record struct {
	ID               string    `json:"id"`
	Timestamp        time.Time `json:"timestamp"`
	Model            string    `json:"model"`
	ReasoningEffort  string    `json:"reasoning_effort,omitempty"`
	TokensUsed       int       `json:"tokens_used"`
	GenerationTimeMs int64     `json:"generation_time_ms"`
	FallbackOccurred bool      `json:"fallback_occurred"`
	OriginalModel    string    `json:"original_model,omitempty"`
	Success          bool      `json:"success"`
	EstimatedCost    float64   `json:"estimated_cost"`
	ErrorKind        string    `json:"error_kind,omitempty"`
}

// Stats is computed over the records currently retained.
type Stats struct {
	Count             int            `json:"count"`
	SuccessRate       float64        `json:"success_rate"`
	FallbackRate      float64        `json:"fallback_rate"`
	TotalCost         float64        `json:"total_cost"`
	AverageCost       float64        `json:"average_cost"`
	AverageTokens     float64        `json:"average_tokens"`
	AverageLatencyMs  float64        `json:"average_latency_ms"`
	ByModel           map[string]int `json:"by_model"`
	ByReasoningEffort map[string]int `json:"by_reasoning_effort"`
}

// Tracker is a fixed-capacity FIFO log safe for concurrent use.
// Append and eviction happen under one lock.
type Tracker struct {
	mu       sync.Mutex
	buf      []Record
	start    int // index of the oldest record
	n        int
	capacity int
}

// NewTracker creates a tracker holding at most capacity records.
// A non-positive capacity means DefaultCapacity.
func NewTracker(capacity int) *Tracker {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Tracker{
		buf:      make([]Record, capacity),
		capacity: capacity,
	}
}

// Log appends a record, evicting the oldest if the log is full.
// A zero Timestamp is set to the current time.
func (t *Tracker) Log(rec Record) {
	if rec.Timestamp.IsZero() {
		rec.Timestamp = time.Now()
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if t.n < t.capacity {
		t.buf[(t.start+t.n)%t.capacity] = rec
		t.n++
		return
	}
	t.buf[t.start] = rec
	t.start = (t.start + 1) % t.capacity
}

// RecordCount returns the number of records retained.
func (t *Tracker) RecordCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.n
}

// Capacity returns the maximum number of records retained.
func (t *Tracker) Capacity() int { return t.capacity }

// Recent returns up to n of the newest records, oldest first.
func (t *Tracker) Recent(n int) []Record {
	t.mu.Lock()
	defer t.mu.Unlock()

	if n > t.n {
		n = t.n
	}
	if n <= 0 {
		return []Record{}
	}
	out := make([]Record, n)
	first := t.n - n
	for i := 0; i < n; i++ {
		out[i] = t.buf[(t.start+first+i)%t.capacity]
	}
	return out
}

// Records returns every retained record, oldest first.
func (t *Tracker) Records() []Record {
	return t.Recent(t.capacity)
}

// Stats aggregates the retained records in a single pass. ok is false when the log is empty.
func (t *Tracker) Stats() (stats Stats, ok bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.n == 0 {
		return Stats{}, false
	}

	stats.ByModel = make(map[string]int)
	stats.ByReasoningEffort = make(map[string]int)

	var successes, fallbacks, tokens int
	var latency int64
	for i := 0; i < t.n; i++ {
		r := t.buf[(t.start+i)%t.capacity]
		if r.Success {
			successes++
		}
		if r.FallbackOccurred {
			fallbacks++
		}
		tokens += r.TokensUsed
		latency += r.GenerationTimeMs
		stats.TotalCost += r.EstimatedCost
		stats.ByModel[r.Model]++
		effort := r.ReasoningEffort
		if effort == "" {
			effort = "none"
		}
		stats.ByReasoningEffort[effort]++
	}

	count := float64(t.n)
	stats.Count = t.n
	stats.SuccessRate = 100 * float64(successes) / count
	stats.FallbackRate = 100 * float64(fallbacks) / count
	stats.AverageCost = stats.TotalCost / count
	stats.AverageTokens = float64(tokens) / count
	stats.AverageLatencyMs = float64(latency) / count
	return stats, true
}

// Reset drops every record.
func (t *Tracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.buf = make([]Record, t.capacity)
	t.start = 0
	t.n = 0
}
