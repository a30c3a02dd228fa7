package types

import "fmt"

// BackendError is a failed backend call as reported by the provider.
// StatusCode is 0 when the request never produced an HTTP response.
type BackendError struct {
	StatusCode int
	Code       string
	Message    string

	// Usage is set when the provider billed the failed call.
	InputTokens  int
	OutputTokens int
}

func (e *BackendError) Error() string {
	switch {
	case e.StatusCode != 0 && e.Code != "":
		return fmt.Sprintf("status %d (%s): %s", e.StatusCode, e.Code, e.Message)
	case e.StatusCode != 0:
		return fmt.Sprintf("status %d: %s", e.StatusCode, e.Message)
	case e.Code != "":
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	default:
		return e.Message
	}
}

// HasUsage reports whether the failed call consumed tokens.
func (e *BackendError) HasUsage() bool {
	return e.InputTokens > 0 || e.OutputTokens > 0
}
