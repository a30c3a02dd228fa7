package router

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/af-corp/genroute/internal/models"
	"github.com/af-corp/genroute/internal/types"
)

// ErrorClass is the fallback decision for a failed backend call.
type ErrorClass int

const (
	// ClassRetryable failures advance to the next tier in the chain.
	ClassRetryable ErrorClass = iota
	// ClassTerminal failures stop the chain; no fallback is attempted.
	ClassTerminal
)

func (c ErrorClass) String() string {
	switch c {
	case ClassRetryable:
		return "retryable"
	case ClassTerminal:
		return "terminal"
	default:
		return "unknown"
	}
}

// FailureKind labels a failed generation outcome.
type FailureKind string

const (
	KindTerminal  FailureKind = "terminal"
	KindExhausted FailureKind = "exhausted"
)

var (
	ErrTerminal  = errors.New("terminal backend failure")
	ErrExhausted = errors.New("all model tiers failed")
	ErrNoTiers   = errors.New("no model tier to attempt")
)

var (
	terminalStatus = map[int]bool{
		http.StatusBadRequest:   true,
		http.StatusUnauthorized: true,
		http.StatusForbidden:    true,
	}
	retryableStatus = map[int]bool{
		http.StatusRequestTimeout:      true,
		http.StatusTooManyRequests:     true,
		http.StatusInternalServerError: true,
		http.StatusBadGateway:          true,
		http.StatusServiceUnavailable:  true,
		http.StatusGatewayTimeout:      true,
	}
	terminalCodes = map[string]bool{
		"invalid_api_key":          true,
		"content_policy_violation": true,
		"content_filter":           true,
	}
	retryableCodes = map[string]bool{
		"model_not_found":     true,
		"rate_limit_exceeded": true,
		"timeout":             true,
		"circuit_open":        true,
	}
	contentPolicyPhrases = []string{"content policy", "content_policy", "content management policy", "safety system"}
	timeoutPhrases       = []string{"timeout", "timed out", "deadline exceeded"}
)

// Classify maps a backend failure to a fallback decision. Status codes win over error
// codes, which win over message text. 401/400/403 and content-policy rejections are
// terminal; 429/5xx, model_not_found and timeouts are retryable. Remaining 4xx responses
// are terminal and anything without a status (transport failures) is retryable.
func Classify(err error) ErrorClass {
	if err == nil {
		return ClassRetryable
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return ClassRetryable
	}

	var be *types.BackendError
	if !errors.As(err, &be) {
		msg := strings.ToLower(err.Error())
		if containsAny(msg, contentPolicyPhrases) {
			return ClassTerminal
		}
		return ClassRetryable
	}

	code := strings.ToLower(be.Code)
	msg := strings.ToLower(be.Message)

	switch {
	case terminalStatus[be.StatusCode]:
		return ClassTerminal
	case terminalCodes[code], containsAny(msg, contentPolicyPhrases):
		return ClassTerminal
	case retryableStatus[be.StatusCode]:
		return ClassRetryable
	case retryableCodes[code], containsAny(msg, timeoutPhrases):
		return ClassRetryable
	case be.StatusCode >= 400 && be.StatusCode < 500:
		return ClassTerminal
	default:
		return ClassRetryable
	}
}

// IsContentPolicy reports whether a failure is a content-policy rejection.
func IsContentPolicy(err error) bool {
	var be *types.BackendError
	if errors.As(err, &be) {
		if terminalCodes[strings.ToLower(be.Code)] && be.Code != "invalid_api_key" {
			return true
		}
		return containsAny(strings.ToLower(be.Message), contentPolicyPhrases)
	}
	return err != nil && containsAny(strings.ToLower(err.Error()), contentPolicyPhrases)
}

func containsAny(s string, phrases []string) bool {
	for _, p := range phrases {
		if strings.Contains(s, p) {
			return true
		}
	}
	return false
}

// errorMessage extracts the provider message for fallback reasons.
func errorMessage(err error) string {
	var be *types.BackendError
	if errors.As(err, &be) && be.Message != "" {
		return be.Message
	}
	return err.Error()
}

// GenerationError is returned when the orchestrator ends without content.
// Model is the last tier invoked. Result carries the metadata of what actually executed.
type GenerationError struct {
	Kind   FailureKind
	Model  models.Tier
	Err    error
	Result *Result
}

func (e *GenerationError) Error() string {
	switch {
	case e.Kind == KindExhausted && e.Model == "":
		return fmt.Sprintf("%s (no tier invoked): %v", ErrExhausted, e.Err)
	case e.Kind == KindExhausted:
		return fmt.Sprintf("%s (last tier %s): %v", ErrExhausted, e.Model, e.Err)
	default:
		return fmt.Sprintf("%s on %s: %v", ErrTerminal, e.Model, e.Err)
	}
}

func (e *GenerationError) Unwrap() error { return e.Err }

// Is matches ErrTerminal or ErrExhausted according to Kind.
func (e *GenerationError) Is(target error) bool {
	switch target {
	case ErrTerminal:
		return e.Kind == KindTerminal
	case ErrExhausted:
		return e.Kind == KindExhausted
	}
	return false
}
