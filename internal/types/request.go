package types

import (
	"time"

	"github.com/af-corp/genroute/internal/models"
)

// GenerateRequest is the body of POST /v1/generate.
type GenerateRequest struct {
	Prompt  string         `json:"prompt"`
	Project string         `json:"project,omitempty"`
	Refine  *RefineOptions `json:"refine,omitempty"`

	// Internal tracking
	RequestID  string    `json:"-"`
	ReceivedAt time.Time `json:"-"`
}

// RefineOptions turns on the generate/validate/improve loop.
type RefineOptions struct {
	Enabled       bool `json:"enabled"`
	MaxIterations int  `json:"max_iterations,omitempty"`
}

// PlanRequest is the body of POST /v1/plan.
type PlanRequest struct {
	Prompt string `json:"prompt"`
}

type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
	Name    string `json:"name,omitempty"`
}

// GenerationCall is one backend invocation.
type GenerationCall struct {
	Model           models.Tier
	ReasoningEffort models.ReasoningEffort
	Temperature     float64
	MaxTokens       int
	Messages        []Message
}
