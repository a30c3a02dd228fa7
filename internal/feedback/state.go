package feedback

import (
	"github.com/af-corp/genroute/internal/models"
	"github.com/af-corp/genroute/internal/router"
)

// Phase is a feedback loop state.
type Phase int

const (
	PhaseInitial Phase = iota
	PhaseGenerating
	PhaseValidating
	PhaseImproving
	PhaseSucceeded
	PhaseFailed
)

func (p Phase) String() string {
	switch p {
	case PhaseInitial:
		return "initial"
	case PhaseGenerating:
		return "generating"
	case PhaseValidating:
		return "validating"
	case PhaseImproving:
		return "improving"
	case PhaseSucceeded:
		return "succeeded"
	case PhaseFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Done reports whether p is terminal.
func (p Phase) Done() bool {
	return p == PhaseSucceeded || p == PhaseFailed
}

// Iteration is one generation of the loop and the validation that followed it.
type Iteration struct {
	Number          int
	Model           models.Tier
	ReasoningEffort models.ReasoningEffort
	TokensIn        int
	TokensOut       int
	Cost            float64
	// Validated is false when the iteration never reached the validator.
	Validated bool
	Valid     bool
	Feedback  string
	Err       error
}

// State is threaded through the loop. Content and the producer fields always describe
// the latest generation that returned content.
type State struct {
	Phase       Phase
	Content     string
	Iterations  int
	TokensIn    int
	TokensOut   int
	TotalTokens int
	TotalCost   float64
	Feedback    string
	Producer    *router.Result
	History     []Iteration
}

// accumulate adds a generation's usage to the running totals.
func (s *State) accumulate(res *router.Result) {
	if res == nil {
		return
	}
	s.TokensIn += res.TokensIn
	s.TokensOut += res.TokensOut
	s.TotalTokens += res.TokensIn + res.TokensOut
	s.TotalCost += res.EstimatedCost
}

func (s *State) last() *Iteration {
	if len(s.History) == 0 {
		return nil
	}
	return &s.History[len(s.History)-1]
}
