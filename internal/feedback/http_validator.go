package feedback

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// HTTPValidator posts content to an external validation service and reads back
// {"valid": bool, "feedback": string}.
type HTTPValidator struct {
	url    string
	client *http.Client
}

func NewHTTPValidator(url string, timeout time.Duration) *HTTPValidator {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &HTTPValidator{
		url:    url,
		client: &http.Client{Timeout: timeout},
	}
}

type validateRequest struct {
	Content string `json:"content"`
}

func (v *HTTPValidator) Validate(ctx context.Context, content string) (Validation, error) {
	body, err := json.Marshal(validateRequest{Content: content})
	if err != nil {
		return Validation{}, fmt.Errorf("marshal validation request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, v.url, bytes.NewReader(body))
	if err != nil {
		return Validation{}, fmt.Errorf("create validation request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := v.client.Do(req)
	if err != nil {
		return Validation{}, fmt.Errorf("call validator: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return Validation{}, fmt.Errorf("read validator response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return Validation{}, fmt.Errorf("validator returned status %d: %s", resp.StatusCode, bytes.TrimSpace(data))
	}

	var out Validation
	if err := json.Unmarshal(data, &out); err != nil {
		return Validation{}, fmt.Errorf("decode validator response: %w", err)
	}
	return out, nil
}
