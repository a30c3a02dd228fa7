package adapters

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/af-corp/genroute/internal/config"
	"github.com/af-corp/genroute/internal/types"
)

const defaultAnthropicVersion = "2023-06-01"

// AnthropicAdapter handles communication with the Anthropic Messages API.
// Reasoning effort is not sent; Anthropic tiers do not accept it.
type AnthropicAdapter struct {
	cfg    config.ProviderConfig
	client *http.Client
}

func NewAnthropicAdapter(cfg config.ProviderConfig, client *http.Client) *AnthropicAdapter {
	return &AnthropicAdapter{cfg: cfg, client: client}
}

func (a *AnthropicAdapter) Name() string { return "anthropic" }

func (a *AnthropicAdapter) Invoke(ctx context.Context, call *types.GenerationCall) (*types.Completion, error) {
	httpReq, err := a.transformRequest(ctx, call)
	if err != nil {
		return nil, err
	}
	resp, err := a.client.Do(httpReq)
	if err != nil {
		return nil, transportError(err)
	}
	return a.transformResponse(resp)
}

func (a *AnthropicAdapter) transformRequest(ctx context.Context, call *types.GenerationCall) (*http.Request, error) {
	// system messages move to the top-level system field
	var system []string
	var messages []anthropicMessage
	for _, m := range call.Messages {
		if m.Role == "system" {
			system = append(system, m.Content)
			continue
		}
		messages = append(messages, anthropicMessage{
			Role:    m.Role,
			Content: m.Content,
		})
	}

	maxTokens := call.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 4096
	}
	temp := call.Temperature
	if temp > 1 {
		temp = 1
	}

	body := anthropicRequestBody{
		Model:       string(call.Model),
		Messages:    messages,
		System:      strings.Join(system, "\n\n"),
		MaxTokens:   maxTokens,
		Temperature: &temp,
	}

	data, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal anthropic request: %w", err)
	}

	url := a.cfg.BaseURL + "/messages"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("create http request: %w", err)
	}

	version := a.cfg.APIVersion
	if version == "" {
		version = defaultAnthropicVersion
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-api-key", a.cfg.APIKey)
	httpReq.Header.Set("anthropic-version", version)
	for k, v := range a.cfg.Headers {
		if v != "" {
			httpReq.Header.Set(k, v)
		}
	}

	return httpReq, nil
}

func (a *AnthropicAdapter) transformResponse(resp *http.Response) (*types.Completion, error) {
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, transportError(fmt.Errorf("read anthropic response: %w", err))
	}

	if resp.StatusCode != http.StatusOK {
		var errBody anthropicErrorBody
		be := &types.BackendError{StatusCode: resp.StatusCode, Message: string(body)}
		if json.Unmarshal(body, &errBody) == nil && errBody.Error.Message != "" {
			be.Message = errBody.Error.Message
			be.Code = errBody.Error.Type
		}
		// an unknown or retired model is a 404 not_found_error
		if resp.StatusCode == http.StatusNotFound && (be.Code == "" || be.Code == "not_found_error") {
			be.Code = "model_not_found"
		}
		return nil, be
	}

	var antResp anthropicResponseBody
	if err := json.Unmarshal(body, &antResp); err != nil {
		return nil, &types.BackendError{StatusCode: resp.StatusCode, Message: "unmarshal anthropic response: " + err.Error()}
	}

	var content strings.Builder
	for _, block := range antResp.Content {
		if block.Type == "text" {
			content.WriteString(block.Text)
		}
	}
	if antResp.StopReason == "refusal" {
		return nil, &types.BackendError{
			StatusCode:   http.StatusBadRequest,
			Code:         "content_policy_violation",
			Message:      "anthropic refused the request under its content policy",
			InputTokens:  antResp.Usage.InputTokens,
			OutputTokens: antResp.Usage.OutputTokens,
		}
	}

	return &types.Completion{
		Content:       content.String(),
		InputTokens:   antResp.Usage.InputTokens,
		OutputTokens:  antResp.Usage.OutputTokens,
		ProviderModel: antResp.Model,
	}, nil
}

type anthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type anthropicRequestBody struct {
	Model       string             `json:"model"`
	Messages    []anthropicMessage `json:"messages"`
	System      string             `json:"system,omitempty"`
	MaxTokens   int                `json:"max_tokens"`
	Temperature *float64           `json:"temperature,omitempty"`
}

type anthropicResponseBody struct {
	ID      string `json:"id"`
	Model   string `json:"model"`
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	StopReason string `json:"stop_reason"`
	Usage      struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
}

type anthropicErrorBody struct {
	Type  string `json:"type"`
	Error struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}
