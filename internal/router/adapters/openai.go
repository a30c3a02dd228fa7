package adapters

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/af-corp/genroute/internal/config"
	"github.com/af-corp/genroute/internal/types"
)

// OpenAIAdapter talks to OpenAI-compatible chat completion APIs.
type OpenAIAdapter struct {
	cfg    config.ProviderConfig
	client *http.Client
}

func NewOpenAIAdapter(cfg config.ProviderConfig, client *http.Client) *OpenAIAdapter {
	return &OpenAIAdapter{cfg: cfg, client: client}
}

func (a *OpenAIAdapter) Name() string { return "openai" }

func (a *OpenAIAdapter) Invoke(ctx context.Context, call *types.GenerationCall) (*types.Completion, error) {
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

func (a *OpenAIAdapter) transformRequest(ctx context.Context, call *types.GenerationCall) (*http.Request, error) {
	body := openAIRequestBody{
		Model:           string(call.Model),
		Messages:        call.Messages,
		ReasoningEffort: string(call.ReasoningEffort),
	}
	// reasoning models reject temperature and take max_completion_tokens instead
	if call.ReasoningEffort != "" {
		body.MaxCompletionTokens = call.MaxTokens
	} else {
		temp := call.Temperature
		body.Temperature = &temp
		body.MaxTokens = call.MaxTokens
	}

	data, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal openai request: %w", err)
	}

	url := a.cfg.BaseURL + "/chat/completions"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("create http request: %w", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+a.cfg.APIKey)
	for k, v := range a.cfg.Headers {
		if v != "" {
			httpReq.Header.Set(k, v)
		}
	}

	return httpReq, nil
}

func (a *OpenAIAdapter) transformResponse(resp *http.Response) (*types.Completion, error) {
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, transportError(fmt.Errorf("read openai response: %w", err))
	}

	if resp.StatusCode != http.StatusOK {
		var errBody openAIErrorBody
		be := &types.BackendError{StatusCode: resp.StatusCode, Message: string(body)}
		if json.Unmarshal(body, &errBody) == nil && errBody.Error.Message != "" {
			be.Message = errBody.Error.Message
			be.Code = errBody.Error.Code
			if be.Code == "" {
				be.Code = errBody.Error.Type
			}
		}
		return nil, be
	}

	var oaiResp openAIResponseBody
	if err := json.Unmarshal(body, &oaiResp); err != nil {
		return nil, &types.BackendError{StatusCode: resp.StatusCode, Message: "unmarshal openai response: " + err.Error()}
	}
	if len(oaiResp.Choices) == 0 {
		return nil, &types.BackendError{
			StatusCode:   resp.StatusCode,
			Message:      "openai response has no choices",
			InputTokens:  oaiResp.Usage.PromptTokens,
			OutputTokens: oaiResp.Usage.CompletionTokens,
		}
	}

	return &types.Completion{
		Content:       oaiResp.Choices[0].Message.Content,
		InputTokens:   oaiResp.Usage.PromptTokens,
		OutputTokens:  oaiResp.Usage.CompletionTokens,
		ProviderModel: oaiResp.Model,
	}, nil
}

type openAIRequestBody struct {
	Model               string          `json:"model"`
	Messages            []types.Message `json:"messages"`
	Temperature         *float64        `json:"temperature,omitempty"`
	MaxTokens           int             `json:"max_tokens,omitempty"`
	MaxCompletionTokens int             `json:"max_completion_tokens,omitempty"`
	ReasoningEffort     string          `json:"reasoning_effort,omitempty"`
}

type openAIResponseBody struct {
	ID      string `json:"id"`
	Model   string `json:"model"`
	Choices []struct {
		Index        int           `json:"index"`
		Message      types.Message `json:"message"`
		FinishReason string        `json:"finish_reason"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
}

type openAIErrorBody struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
		Code    string `json:"code"`
	} `json:"error"`
}
