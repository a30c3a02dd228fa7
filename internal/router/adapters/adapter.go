package adapters

import (
	"context"
	"errors"
	"net"

	"github.com/af-corp/genroute/internal/types"
)

// ProviderAdapter translates a generation call into a provider-specific API request and
// the reply back into a completion. Upstream failures come back as *types.BackendError.
type ProviderAdapter interface {
	Name() string
	Invoke(ctx context.Context, call *types.GenerationCall) (*types.Completion, error)
}

// transportError wraps a failure to get any HTTP response. Caller cancellation is
// passed through untouched.
func transportError(err error) error {
	if errors.Is(err, context.Canceled) {
		return err
	}
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return &types.BackendError{Code: "timeout", Message: err.Error()}
	}
	return &types.BackendError{Message: err.Error()}
}
