package news

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeProvider struct {
	id      string
	fail    bool
	results []RawResult
	calls   int
}

func (f *fakeProvider) ID() string { return f.id }

func (f *fakeProvider) Search(ctx context.Context, apiKey, query string) ([]RawResult, error) {
	f.calls++
	if f.fail {
		return nil, &RateLimitError{ProviderID: f.id}
	}
	return f.results, nil
}

func sampleResult(title string, relevance float64) RawResult {
	return RawResult{
		Title:       title,
		URL:         "https://example.com/" + title,
		PublishedAt: time.Now().Add(-2 * time.Hour).Format(time.RFC3339),
		Relevance:   relevance,
	}
}

func TestService_MergesAndDedupsAcrossDimensions(t *testing.T) {
	p := &fakeProvider{id: "provA", results: []RawResult{sampleResult("dup", 0.9)}}
	s := NewService([]ProviderConfig{{Provider: p, Keys: []string{"k1"}}}, 5, 0, zerolog.Nop())

	intel := s.Fetch(context.Background(), "AAPL", "Apple Inc", false)

	require.False(t, intel.SearchFallback)
	assert.NotEmpty(t, intel.Items)
	seen := map[string]bool{}
	for _, it := range intel.Items {
		assert.False(t, seen[it.Fingerprint], "duplicate fingerprint in merged result")
		seen[it.Fingerprint] = true
	}
}

func TestService_AllProvidersFailReturnsFallback(t *testing.T) {
	p := &fakeProvider{id: "provA", fail: true}
	s := NewService([]ProviderConfig{{Provider: p, Keys: []string{"k1"}}}, 5, 0, zerolog.Nop())

	intel := s.Fetch(context.Background(), "AAPL", "Apple Inc", false)

	assert.True(t, intel.SearchFallback)
	assert.Empty(t, intel.Items)
}

func TestService_ETFUsesETFTemplates(t *testing.T) {
	dims := dimensionsFor(true)
	var names []string
	for _, d := range dims {
		names = append(names, d.name)
	}
	assert.Contains(t, names, "holdings")
	assert.NotContains(t, names, "company")
}

func TestService_CacheHitAvoidsSecondCall(t *testing.T) {
	p := &fakeProvider{id: "provA", results: []RawResult{sampleResult("one", 0.5)}}
	s := NewService([]ProviderConfig{{Provider: p, Keys: []string{"k1"}}}, 5, 0, zerolog.Nop())

	_ = s.Fetch(context.Background(), "AAPL", "Apple Inc", false)
	callsAfterFirst := p.calls
	_ = s.Fetch(context.Background(), "AAPL", "Apple Inc", false)

	assert.Equal(t, callsAfterFirst, p.calls, "second fetch same day should be served from the fingerprint cache")
}
