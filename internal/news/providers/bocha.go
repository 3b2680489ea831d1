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

// BochaProvider queries the Bocha AI web-search API, the primary
// Chinese-language source for the A-share/HK news dimensions.
type BochaProvider struct {
	httpClient *http.Client
	baseURL    string
}

// NewBochaProvider builds a Bocha-backed news.Provider. baseURL
// defaults to the public Bocha endpoint when empty.
func NewBochaProvider(baseURL string) *BochaProvider {
	if baseURL == "" {
		baseURL = "https://api.bochaai.com"
	}
	return &BochaProvider{
		httpClient: &http.Client{Timeout: 10 * time.Second},
		baseURL:    baseURL,
	}
}

func (p *BochaProvider) ID() string { return "bocha" }

type bochaSearchRequest struct {
	Query     string `json:"query"`
	Freshness string `json:"freshness"`
	Count     int    `json:"count"`
}

type bochaSearchResponse struct {
	Data struct {
		WebPages struct {
			Value []struct {
				Name            string `json:"name"`
				URL             string `json:"url"`
				Snippet         string `json:"snippet"`
				DateLastCrawled string `json:"dateLastCrawled"`
			} `json:"value"`
		} `json:"webPages"`
	} `json:"data"`
}

// Search issues one Bocha web-search request for query.
func (p *BochaProvider) Search(ctx context.Context, apiKey, query string) ([]news.RawResult, error) {
	body, err := json.Marshal(bochaSearchRequest{Query: query, Freshness: "oneMonth", Count: 10})
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/v1/web-search", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+apiKey)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, &news.RateLimitError{ProviderID: p.ID()}
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("bocha: unexpected status %d", resp.StatusCode)
	}

	var parsed bochaSearchResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("bocha: decode response: %w", err)
	}

	pages := parsed.Data.WebPages.Value
	out := make([]news.RawResult, 0, len(pages))
	for _, r := range pages {
		out = append(out, news.RawResult{
			Title:       r.Name,
			Snippet:     r.Snippet,
			URL:         r.URL,
			PublishedAt: r.DateLastCrawled,
			Relevance:   1.0,
		})
	}
	return out, nil
}
