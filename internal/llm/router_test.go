package llm

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeProvider struct {
	id    string
	fail  error // returned on every call when non-nil
	calls int
}

func (f *fakeProvider) ID() string { return f.id }

func (f *fakeProvider) Chat(ctx context.Context, apiKey string, req ChatRequest) (ChatResponse, error) {
	f.calls++
	if f.fail != nil {
		return ChatResponse{}, f.fail
	}
	return ChatResponse{Model: req.Model, Message: ChatMessage{Role: "assistant"}}, nil
}

func TestRouter_FallsBackToNextModelOnInvalidRequest(t *testing.T) {
	primary := &fakeProvider{id: "primary", fail: &InvalidRequestError{ProviderID: "primary", Reason: "bad model"}}
	secondary := &fakeProvider{id: "secondary"}

	r := NewRouter([]ProviderConfig{
		{Provider: primary, Keys: []string{"k1"}},
		{Provider: secondary, Keys: []string{"k2"}},
	}, []ModelSpec{
		{Model: "model-a", ProviderID: "primary"},
		{Model: "model-b", ProviderID: "secondary"},
	}, zerolog.Nop())

	resp, err := r.Chat(context.Background(), ChatRequest{Messages: []ChatMessage{{Role: "user"}}})
	require.NoError(t, err)
	assert.Equal(t, "model-b", resp.Model)
}

func TestRouter_RotatesKeysOnRateLimit(t *testing.T) {
	primary := &fakeProvider{id: "primary", fail: &RateLimitError{ProviderID: "primary"}}

	r := NewRouter([]ProviderConfig{
		{Provider: primary, Keys: []string{"k1", "k2"}, Cooldown: time.Hour},
	}, []ModelSpec{{Model: "model-a", ProviderID: "primary"}}, zerolog.Nop())

	_, err := r.Chat(context.Background(), ChatRequest{})
	require.Error(t, err, "all keys should eventually exhaust since the fake always rate-limits")
	assert.GreaterOrEqual(t, primary.calls, 2, "should have tried both keys before giving up")
}

func TestRouter_ChainExhaustedReturnsError(t *testing.T) {
	r := NewRouter(nil, []ModelSpec{{Model: "model-a", ProviderID: "missing"}}, zerolog.Nop())

	_, err := r.Chat(context.Background(), ChatRequest{})
	require.Error(t, err)
}

func TestDetectProvider(t *testing.T) {
	id, ok := DetectProvider("gemini-2.0-flash")
	require.True(t, ok)
	assert.Equal(t, "gemini", id)

	_, ok = DetectProvider("unknown-model")
	assert.False(t, ok)
}
