package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/zhstock/dsa/internal/llm"
)

// OpenAICompatibleProvider serves any backend that speaks the OpenAI
// chat-completions wire format (OpenAI itself, and compatible gateways
// for other vendors including Anthropic-compatible proxies).
type OpenAICompatibleProvider struct {
	id         string
	baseURL    string
	httpClient *http.Client
}

// NewOpenAICompatibleProvider builds an adapter for one compatible
// endpoint, identified by id for registry/fallback-chain lookups.
func NewOpenAICompatibleProvider(id, baseURL string) *OpenAICompatibleProvider {
	return &OpenAICompatibleProvider{
		id:         id,
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 60 * time.Second},
	}
}

func (p *OpenAICompatibleProvider) ID() string { return p.id }

type wireChatRequest struct {
	Model    string         `json:"model"`
	Messages []wireMessage  `json:"messages"`
	Tools    []llm.Tool     `json:"tools,omitempty"`
}

type wireMessage struct {
	Role      string         `json:"role"`
	Content   string         `json:"content"`
	ToolCalls []llm.ToolCall `json:"tool_calls,omitempty"`
}

type wireChatResponse struct {
	Choices []struct {
		Message      wireMessage `json:"message"`
		FinishReason string      `json:"finish_reason"`
	} `json:"choices"`
	Usage llm.Usage `json:"usage"`
}

func (p *OpenAICompatibleProvider) Chat(ctx context.Context, apiKey string, req llm.ChatRequest) (llm.ChatResponse, error) {
	wireReq := wireChatRequest{Model: req.Model, Tools: req.Tools}
	for _, m := range req.Messages {
		wireReq.Messages = append(wireReq.Messages, wireMessage{
			Role:      m.Role,
			Content:   flattenText(m.Content),
			ToolCalls: m.ToolCalls,
		})
	}

	body, err := json.Marshal(wireReq)
	if err != nil {
		return llm.ChatResponse{}, fmt.Errorf("%s: marshal request: %w", p.id, err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return llm.ChatResponse{}, fmt.Errorf("%s: build request: %w", p.id, err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+apiKey)

	resp, err := p.httpClient.Do(httpReq)
	if err != nil {
		return llm.ChatResponse{}, fmt.Errorf("%s: transport: %w", p.id, err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusTooManyRequests:
		return llm.ChatResponse{}, &llm.RateLimitError{ProviderID: p.id}
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		return llm.ChatResponse{}, &llm.InvalidRequestError{ProviderID: p.id, Reason: resp.Status}
	}
	if resp.StatusCode != http.StatusOK {
		return llm.ChatResponse{}, fmt.Errorf("%s: unexpected status %d", p.id, resp.StatusCode)
	}

	var wireResp wireChatResponse
	if err := json.NewDecoder(resp.Body).Decode(&wireResp); err != nil {
		return llm.ChatResponse{}, fmt.Errorf("%s: decode response: %w", p.id, err)
	}
	if len(wireResp.Choices) == 0 {
		return llm.ChatResponse{}, fmt.Errorf("%s: empty choices", p.id)
	}
	choice := wireResp.Choices[0]

	return llm.ChatResponse{
		Model: req.Model,
		Message: llm.ChatMessage{
			Role:      "assistant",
			Content:   []llm.ContentPart{{Type: "text", Text: choice.Message.Content}},
			ToolCalls: choice.Message.ToolCalls,
		},
		FinishReason: choice.FinishReason,
		Usage:        wireResp.Usage,
	}, nil
}

func flattenText(parts []llm.ContentPart) string {
	out := ""
	for _, p := range parts {
		if p.Type == "text" {
			out += p.Text
		}
	}
	return out
}
