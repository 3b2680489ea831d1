// Package news is the News Service (C4): multi-provider web-search
// fanout, per-key cooldown, fingerprint dedup cache, and relevance
// ranking into a single NewsIntel per ticker.
package news

import "context"

// RawResult is one hit returned by a provider, before ranking/dedup.
type RawResult struct {
	Title       string
	Snippet     string
	URL         string
	PublishedAt string // provider-reported, parsed by the caller
	Relevance   float64
}

// Provider is a pluggable web-search backend. Each configured provider
// may back multiple API keys (see internal/keypool's Pool).
type Provider interface {
	ID() string
	Search(ctx context.Context, apiKey, query string) ([]RawResult, error)
}
