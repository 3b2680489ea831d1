// Package providers holds concrete news.Provider adapters for the web
// search backends the News Service fans out to.
package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/zhstock/dsa/internal/news"
)

// TavilyProvider queries the Tavily search API.
type TavilyProvider struct {
	httpClient *http.Client
	baseURL    string
}

// NewTavilyProvider builds a Tavily-backed news.Provider. baseURL
// defaults to the public Tavily endpoint when empty.
func NewTavilyProvider(baseURL string) *TavilyProvider {
	if baseURL == "" {
		baseURL = "https://api.tavily.com"
	}
	return &TavilyProvider{
		httpClient: &http.Client{Timeout: 10 * time.Second},
		baseURL:    baseURL,
	}
}

func (p *TavilyProvider) ID() string { return "tavily" }

type tavilySearchRequest struct {
	APIKey     string `json:"api_key"`
	Query      string `json:"query"`
	MaxResults int    `json:"max_results"`
}

type tavilySearchResponse struct {
	Results []struct {
		Title       string  `json:"title"`
		URL         string  `json:"url"`
		Content     string  `json:"content"`
		Score       float64 `json:"score"`
		PublishedAt string  `json:"published_date"`
	} `json:"results"`
}

// Search issues one Tavily search request for query.
func (p *TavilyProvider) Search(ctx context.Context, apiKey, query string) ([]news.RawResult, error) {
	body, err := json.Marshal(tavilySearchRequest{APIKey: apiKey, Query: query, MaxResults: 10})
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/search", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, &news.RateLimitError{ProviderID: p.ID()}
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("tavily: unexpected status %d", resp.StatusCode)
	}

	var parsed tavilySearchResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("tavily: decode response: %w", err)
	}

	out := make([]news.RawResult, 0, len(parsed.Results))
	for _, r := range parsed.Results {
		out = append(out, news.RawResult{
			Title:       r.Title,
			Snippet:     r.Content,
			URL:         r.URL,
			PublishedAt: r.PublishedAt,
			Relevance:   r.Score,
		})
	}
	return out, nil
}
