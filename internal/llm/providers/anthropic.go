package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/zhstock/dsa/internal/llm"
)

const (
	anthropicBaseURL = "https://api.anthropic.com/v1"
	anthropicVersion = "2023-06-01"
)

// AnthropicProvider adapts Anthropic's Messages API to the router's
// normalized llm.Provider contract. Unlike the OpenAI-compatible
// adapter, Anthropic uses its own auth header and request/response
// schema, so it gets its own translation rather than reusing that one.
type AnthropicProvider struct {
	httpClient *http.Client
	baseURL    string
}

// NewAnthropicProvider builds an Anthropic adapter against baseURL,
// defaulting to the public API when empty.
func NewAnthropicProvider(baseURL string) *AnthropicProvider {
	if baseURL == "" {
		baseURL = anthropicBaseURL
	}
	return &AnthropicProvider{
		httpClient: &http.Client{Timeout: 120 * time.Second},
		baseURL:    baseURL,
	}
}

func (p *AnthropicProvider) ID() string { return "anthropic" }

type anthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type anthropicTool struct {
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	InputSchema json.RawMessage `json:"input_schema,omitempty"`
}

type anthropicRequest struct {
	Model       string          `json:"model"`
	MaxTokens   int             `json:"max_tokens"`
	System      string          `json:"system,omitempty"`
	Messages    []anthropicMessage `json:"messages"`
	Tools       []anthropicTool `json:"tools,omitempty"`
	Temperature *float64        `json:"temperature,omitempty"`
}

type anthropicContentBlock struct {
	Type  string          `json:"type"` // "text" or "tool_use"
	Text  string          `json:"text,omitempty"`
	ID    string          `json:"id,omitempty"`
	Name  string          `json:"name,omitempty"`
	Input json.RawMessage `json:"input,omitempty"`
}

type anthropicResponse struct {
	Content    []anthropicContentBlock `json:"content"`
	StopReason string                  `json:"stop_reason"`
	Usage      struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
}

const defaultAnthropicMaxTokens = 4096

// Chat translates req into a Messages API call and back.
func (p *AnthropicProvider) Chat(ctx context.Context, apiKey string, req llm.ChatRequest) (llm.ChatResponse, error) {
	aReq := anthropicRequest{
		Model:       req.Model,
		MaxTokens:   defaultAnthropicMaxTokens,
		Temperature: req.Temperature,
	}
	if req.MaxTokens != nil {
		aReq.MaxTokens = *req.MaxTokens
	}
	for _, m := range req.Messages {
		if m.Role == "system" {
			aReq.System = flattenText(m.Content)
			continue
		}
		aReq.Messages = append(aReq.Messages, anthropicMessage{Role: m.Role, Content: flattenText(m.Content)})
	}
	for _, t := range req.Tools {
		aReq.Tools = append(aReq.Tools, anthropicTool{
			Name:        t.Function.Name,
			Description: t.Function.Description,
			InputSchema: t.Function.Parameters,
		})
	}

	body, err := json.Marshal(aReq)
	if err != nil {
		return llm.ChatResponse{}, fmt.Errorf("anthropic: marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/messages", bytes.NewReader(body))
	if err != nil {
		return llm.ChatResponse{}, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-api-key", apiKey)
	httpReq.Header.Set("anthropic-version", anthropicVersion)

	resp, err := p.httpClient.Do(httpReq)
	if err != nil {
		return llm.ChatResponse{}, fmt.Errorf("anthropic: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return llm.ChatResponse{}, &llm.RateLimitError{ProviderID: p.ID()}
	}
	if resp.StatusCode == http.StatusBadRequest {
		respBody, _ := io.ReadAll(resp.Body)
		return llm.ChatResponse{}, &llm.InvalidRequestError{ProviderID: p.ID(), Reason: string(respBody)}
	}
	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return llm.ChatResponse{}, fmt.Errorf("anthropic: unexpected status %d: %s", resp.StatusCode, string(respBody))
	}

	var aResp anthropicResponse
	if err := json.NewDecoder(resp.Body).Decode(&aResp); err != nil {
		return llm.ChatResponse{}, fmt.Errorf("anthropic: decode response: %w", err)
	}
	return fromAnthropicResponse(req.Model, aResp), nil
}

func fromAnthropicResponse(model string, resp anthropicResponse) llm.ChatResponse {
	var text string
	var toolCalls []llm.ToolCall
	for _, block := range resp.Content {
		switch block.Type {
		case "text":
			text += block.Text
		case "tool_use":
			toolCalls = append(toolCalls, llm.ToolCall{
				ID:   block.ID,
				Type: "function",
				Function: llm.FunctionCall{
					Name:      block.Name,
					Arguments: string(block.Input),
				},
			})
		}
	}
	msg := llm.ChatMessage{Role: "assistant", ToolCalls: toolCalls}
	if text != "" {
		msg.Content = []llm.ContentPart{{Type: "text", Text: text}}
	}
	return llm.ChatResponse{
		Model:        model,
		Message:      msg,
		FinishReason: resp.StopReason,
		Usage: llm.Usage{
			PromptTokens:     resp.Usage.InputTokens,
			CompletionTokens: resp.Usage.OutputTokens,
			TotalTokens:      resp.Usage.InputTokens + resp.Usage.OutputTokens,
		},
	}
}
