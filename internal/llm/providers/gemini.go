// Package providers holds concrete llm.Provider adapters.
package providers

import (
	"context"
	"encoding/json"
	"fmt"

	"google.golang.org/genai"

	"github.com/zhstock/dsa/internal/llm"
)

// GeminiProvider adapts Google's Gemini API to the router's
// normalized llm.Provider contract.
type GeminiProvider struct{}

// NewGeminiProvider builds a stateless Gemini adapter; a fresh
// *genai.Client is created per call since the SDK's client carries no
// per-request mutable state worth pooling and each call may use a
// different API key from the router's key pool.
func NewGeminiProvider() *GeminiProvider {
	return &GeminiProvider{}
}

func (p *GeminiProvider) ID() string { return "gemini" }

func (p *GeminiProvider) Chat(ctx context.Context, apiKey string, req llm.ChatRequest) (llm.ChatResponse, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return llm.ChatResponse{}, fmt.Errorf("gemini: create client: %w", err)
	}

	contents, systemParts := toGenaiContents(req.Messages)
	config := &genai.GenerateContentConfig{}
	if len(systemParts) > 0 {
		config.SystemInstruction = &genai.Content{Parts: systemParts}
	}
	if len(req.Tools) > 0 {
		config.Tools = []*genai.Tool{toGenaiTool(req.Tools)}
	}

	result, err := client.Models.GenerateContent(ctx, req.Model, contents, config)
	if err != nil {
		if isGeminiRateLimit(err) {
			return llm.ChatResponse{}, &llm.RateLimitError{ProviderID: p.ID()}
		}
		if isGeminiInvalidRequest(err) {
			return llm.ChatResponse{}, &llm.InvalidRequestError{ProviderID: p.ID(), Reason: err.Error()}
		}
		return llm.ChatResponse{}, fmt.Errorf("gemini: generate content: %w", err)
	}

	return fromGenaiResponse(req.Model, result)
}

func toGenaiContents(messages []llm.ChatMessage) ([]*genai.Content, []*genai.Part) {
	var contents []*genai.Content
	var systemParts []*genai.Part

	for _, m := range messages {
		var parts []*genai.Part
		for _, part := range m.Content {
			switch part.Type {
			case "text":
				parts = append(parts, genai.NewPartFromText(part.Text))
			case "image_url":
				parts = append(parts, genai.NewPartFromURI(part.ImageURL, "image/jpeg"))
			}
		}
		for _, tc := range m.ToolCalls {
			parts = append(parts, genai.NewPartFromFunctionCall(tc.Function.Name, nil))
		}

		if m.Role == "system" {
			systemParts = append(systemParts, parts...)
			continue
		}

		role := genai.RoleUser
		if m.Role == "assistant" {
			role = genai.RoleModel
		}
		contents = append(contents, &genai.Content{Role: role, Parts: parts})
	}

	return contents, systemParts
}

func toGenaiTool(tools []llm.Tool) *genai.Tool {
	decls := make([]*genai.FunctionDeclaration, 0, len(tools))
	for _, t := range tools {
		decls = append(decls, &genai.FunctionDeclaration{
			Name:        t.Function.Name,
			Description: t.Function.Description,
		})
	}
	return &genai.Tool{FunctionDeclarations: decls}
}

func fromGenaiResponse(model string, result *genai.GenerateContentResponse) (llm.ChatResponse, error) {
	if len(result.Candidates) == 0 || result.Candidates[0].Content == nil {
		return llm.ChatResponse{}, fmt.Errorf("gemini: empty response")
	}

	var parts []llm.ContentPart
	var toolCalls []llm.ToolCall
	for i, part := range result.Candidates[0].Content.Parts {
		if part.Text != "" {
			parts = append(parts, llm.ContentPart{Type: "text", Text: part.Text})
		}
		if part.FunctionCall != nil {
			toolCalls = append(toolCalls, llm.ToolCall{
				ID:   fmt.Sprintf("%s-call-%d", model, i),
				Type: "function",
				Function: llm.FunctionCall{
					Name:      part.FunctionCall.Name,
					Arguments: argsToJSON(part.FunctionCall.Args),
				},
			})
		}
	}

	usage := llm.Usage{}
	if result.UsageMetadata != nil {
		usage.PromptTokens = int(result.UsageMetadata.PromptTokenCount)
		usage.CompletionTokens = int(result.UsageMetadata.CandidatesTokenCount)
		usage.TotalTokens = int(result.UsageMetadata.TotalTokenCount)
	}

	return llm.ChatResponse{
		Model: model,
		Message: llm.ChatMessage{
			Role:      "assistant",
			Content:   parts,
			ToolCalls: toolCalls,
		},
		FinishReason: finishReason(result),
		Usage:        usage,
	}, nil
}

func finishReason(result *genai.GenerateContentResponse) string {
	if len(result.Candidates) == 0 {
		return ""
	}
	return string(result.Candidates[0].FinishReason)
}

func argsToJSON(args map[string]any) string {
	if len(args) == 0 {
		return "{}"
	}
	b, err := json.Marshal(args)
	if err != nil {
		return "{}"
	}
	return string(b)
}

// isGeminiRateLimit and isGeminiInvalidRequest classify the SDK's
// APIError by HTTP status code so the router can apply key cooldown
// or fallback semantics appropriately (§4.3).
func isGeminiRateLimit(err error) bool {
	apiErr, ok := err.(genai.APIError)
	return ok && apiErr.Code == 429
}

func isGeminiInvalidRequest(err error) bool {
	apiErr, ok := err.(genai.APIError)
	return ok && apiErr.Code == 400
}
