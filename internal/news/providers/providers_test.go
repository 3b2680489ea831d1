package providers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zhstock/dsa/internal/news"
)

func TestTavilyProvider_ParsesResults(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/search", r.URL.Path)
		var body map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "tvly-key", body["api_key"])
		assert.Equal(t, "AAPL earnings", body["query"])

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"results": []map[string]interface{}{
				{"title": "Apple beats estimates", "url": "https://example.com/1", "content": "snippet", "score": 0.9, "published_date": "2026-07-01T00:00:00Z"},
			},
		})
	}))
	defer server.Close()

	p := NewTavilyProvider(server.URL)
	results, err := p.Search(context.Background(), "tvly-key", "AAPL earnings")
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "Apple beats estimates", results[0].Title)
	assert.Equal(t, 0.9, results[0].Relevance)
}

func TestTavilyProvider_RateLimitReturnsRateLimitError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	p := NewTavilyProvider(server.URL)
	_, err := p.Search(context.Background(), "key", "query")
	var rl *news.RateLimitError
	require.ErrorAs(t, err, &rl)
}

func TestSerpAPIProvider_ParsesOrganicResults(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/search.json", r.URL.Path)
		assert.Equal(t, "serp-key", r.URL.Query().Get("api_key"))
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"organic_results": []map[string]interface{}{
				{"title": "Result A", "link": "https://example.com/a", "snippet": "a", "date": "Jul 1, 2026", "position": 0},
				{"title": "Result B", "link": "https://example.com/b", "snippet": "b", "date": "Jul 2, 2026", "position": 1},
			},
		})
	}))
	defer server.Close()

	p := NewSerpAPIProvider(server.URL)
	results, err := p.Search(context.Background(), "serp-key", "AAPL news")
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Greater(t, results[0].Relevance, results[1].Relevance)
}

func TestBochaProvider_ParsesWebPages(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer bocha-key", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"data": map[string]interface{}{
				"webPages": map[string]interface{}{
					"value": []map[string]interface{}{
						{"name": "贵州茅台财报", "url": "https://example.com/cn", "snippet": "摘要", "dateLastCrawled": "2026-07-01T00:00:00Z"},
					},
				},
			},
		})
	}))
	defer server.Close()

	p := NewBochaProvider(server.URL)
	results, err := p.Search(context.Background(), "bocha-key", "贵州茅台 财报")
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "贵州茅台财报", results[0].Title)
}

func TestBochaProvider_RateLimitReturnsRateLimitError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	p := NewBochaProvider(server.URL)
	_, err := p.Search(context.Background(), "key", "query")
	var rl *news.RateLimitError
	require.ErrorAs(t, err, &rl)
}
