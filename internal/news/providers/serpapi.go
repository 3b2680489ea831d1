package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/zhstock/dsa/internal/news"
)

// SerpAPIProvider queries SerpAPI's Google search engine.
type SerpAPIProvider struct {
	httpClient *http.Client
	baseURL    string
}

// NewSerpAPIProvider builds a SerpAPI-backed news.Provider. baseURL
// defaults to the public SerpAPI endpoint when empty.
func NewSerpAPIProvider(baseURL string) *SerpAPIProvider {
	if baseURL == "" {
		baseURL = "https://serpapi.com"
	}
	return &SerpAPIProvider{
		httpClient: &http.Client{Timeout: 10 * time.Second},
		baseURL:    baseURL,
	}
}

func (p *SerpAPIProvider) ID() string { return "serpapi" }

type serpAPIResponse struct {
	OrganicResults []struct {
		Title    string `json:"title"`
		Link     string `json:"link"`
		Snippet  string `json:"snippet"`
		Date     string `json:"date"`
		Position int    `json:"position"`
	} `json:"organic_results"`
}

// Search issues one SerpAPI request for query.
func (p *SerpAPIProvider) Search(ctx context.Context, apiKey, query string) ([]news.RawResult, error) {
	q := url.Values{}
	q.Set("engine", "google")
	q.Set("q", query)
	q.Set("api_key", apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+"/search.json?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, &news.RateLimitError{ProviderID: p.ID()}
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("serpapi: unexpected status %d", resp.StatusCode)
	}

	var parsed serpAPIResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("serpapi: decode response: %w", err)
	}

	out := make([]news.RawResult, 0, len(parsed.OrganicResults))
	for _, r := range parsed.OrganicResults {
		// SerpAPI returns results pre-ranked by position; turn that
		// into a decaying relevance score since the News Service
		// expects a comparable float across providers.
		relevance := 1.0 / float64(r.Position+1)
		out = append(out, news.RawResult{
			Title:       r.Title,
			Snippet:     r.Snippet,
			URL:         r.Link,
			PublishedAt: r.Date,
			Relevance:   relevance,
		})
	}
	return out, nil
}
