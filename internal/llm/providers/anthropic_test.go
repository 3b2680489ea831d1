package providers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zhstock/dsa/internal/llm"
)

func TestAnthropicProvider_ParsesTextResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/messages", r.URL.Path)
		assert.Equal(t, "ant-key", r.Header.Get("x-api-key"))
		assert.Equal(t, "2023-06-01", r.Header.Get("anthropic-version"))

		var body map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "claude-3-5-sonnet-20241022", body["model"])

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"content":     []map[string]interface{}{{"type": "text", "text": "hello there"}},
			"stop_reason": "end_turn",
			"usage":       map[string]interface{}{"input_tokens": 10, "output_tokens": 5},
		})
	}))
	defer server.Close()

	p := NewAnthropicProvider(server.URL)
	resp, err := p.Chat(context.Background(), "ant-key", llm.ChatRequest{
		Model: "claude-3-5-sonnet-20241022",
		Messages: []llm.ChatMessage{
			{Role: "user", Content: []llm.ContentPart{{Type: "text", Text: "hi"}}},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "end_turn", resp.FinishReason)
	require.Len(t, resp.Message.Content, 1)
	assert.Equal(t, "hello there", resp.Message.Content[0].Text)
	assert.Equal(t, 15, resp.Usage.TotalTokens)
}

func TestAnthropicProvider_ParsesToolUseResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"content": []map[string]interface{}{
				{"type": "tool_use", "id": "call_1", "name": "get_quote", "input": map[string]interface{}{"ticker": "AAPL"}},
			},
			"stop_reason": "tool_use",
		})
	}))
	defer server.Close()

	p := NewAnthropicProvider(server.URL)
	resp, err := p.Chat(context.Background(), "ant-key", llm.ChatRequest{Model: "claude-3-5-sonnet-20241022"})
	require.NoError(t, err)
	require.Len(t, resp.Message.ToolCalls, 1)
	assert.Equal(t, "get_quote", resp.Message.ToolCalls[0].Function.Name)
}

func TestAnthropicProvider_RateLimitReturnsRateLimitError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	p := NewAnthropicProvider(server.URL)
	_, err := p.Chat(context.Background(), "key", llm.ChatRequest{Model: "claude-3-5-sonnet-20241022"})
	var rl *llm.RateLimitError
	require.ErrorAs(t, err, &rl)
}
