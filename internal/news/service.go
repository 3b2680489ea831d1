package news

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"github.com/zhstock/dsa/internal/domain"
	"github.com/zhstock/dsa/internal/keypool"
)

// providerBinding pairs a provider with its own key pool, since each
// provider's keys cool down independently (§4.2 "pool with round-robin
// allocation and per-key 429 cooldown").
type providerBinding struct {
	provider Provider
	pool     *keypool.Pool
}

// Service is the News Service (C4).
type Service struct {
	log        zerolog.Logger
	providers  []providerBinding
	cache      *fingerprintCache
	maxAge     time.Duration
	perDimCap  int
}

// ProviderConfig binds one Provider implementation to its API keys.
type ProviderConfig struct {
	Provider Provider
	Keys     []string
	Cooldown time.Duration
}

// NewService builds the News Service from a set of provider bindings.
// perDimensionCap bounds how many items survive ranking per dimension
// before the cross-dimension merge; maxAge drops items older than the
// window (§4.2 "filtered by age").
func NewService(configs []ProviderConfig, perDimensionCap int, maxAge time.Duration, log zerolog.Logger) *Service {
	if perDimensionCap <= 0 {
		perDimensionCap = 5
	}
	if maxAge <= 0 {
		maxAge = 14 * 24 * time.Hour
	}
	bindings := make([]providerBinding, 0, len(configs))
	for _, c := range configs {
		bindings = append(bindings, providerBinding{
			provider: c.Provider,
			pool:     keypool.New(c.Keys, c.Cooldown),
		})
	}
	return &Service{
		log:       log.With().Str("component", "news-service").Logger(),
		providers: bindings,
		cache:     newFingerprintCache(),
		maxAge:    maxAge,
		perDimCap: perDimensionCap,
	}
}

// Fetch returns ranked, deduplicated news for ticker/displayName.
// Never returns an error: total provider failure degrades to an empty
// NewsIntel with SearchFallback set (§4.2).
func (s *Service) Fetch(ctx context.Context, ticker, displayName string, isETF bool) domain.NewsIntel {
	dims := dimensionsFor(isETF)
	dimNames := make([]string, 0, len(dims))
	for _, d := range dims {
		dimNames = append(dimNames, d.name)
	}

	now := time.Now()
	cacheKey := dayBucketKey(ticker, dimNames, now)
	if cached, ok := s.cache.get(cacheKey); ok {
		return domain.NewsIntel{Ticker: ticker, Items: cached}
	}

	seen := make(map[string]bool)
	var merged []domain.NewsItem
	anySucceeded := false

	for _, dim := range dims {
		query := formatQuery(dim.template, displayName, ticker)
		items, ok := s.searchOneDimension(ctx, query)
		if !ok {
			continue
		}
		anySucceeded = true

		sort.SliceStable(items, func(i, j int) bool { return items[i].Relevance > items[j].Relevance })
		if len(items) > s.perDimCap {
			items = items[:s.perDimCap]
		}
		for _, it := range items {
			fp := itemFingerprint(it.URL, it.Title)
			if seen[fp] {
				continue
			}
			if !it.PublishedAt.IsZero() && now.Sub(it.PublishedAt) > s.maxAge {
				continue
			}
			it.Fingerprint = fp
			seen[fp] = true
			merged = append(merged, it)
		}
	}

	if !anySucceeded {
		return domain.NewsIntel{Ticker: ticker, SearchFallback: true}
	}

	rankItems(merged, now)
	s.cache.put(cacheKey, merged)
	return domain.NewsIntel{Ticker: ticker, Items: merged}
}

// searchOneDimension tries each configured provider in turn, using
// that provider's own key pool, until one succeeds.
func (s *Service) searchOneDimension(ctx context.Context, query string) ([]domain.NewsItem, bool) {
	for _, binding := range s.providers {
		key, ok := binding.pool.Acquire()
		if !ok {
			continue
		}
		raw, err := binding.provider.Search(ctx, key, query)
		if err != nil {
			if isRateLimitErr(err) {
				binding.pool.Cooldown(key)
			}
			s.log.Warn().Str("provider", binding.provider.ID()).Err(err).Msg("news search failed")
			continue
		}
		return toDomainItems(raw, binding.provider.ID()), true
	}
	return nil, false
}

func toDomainItems(raw []RawResult, providerID string) []domain.NewsItem {
	out := make([]domain.NewsItem, 0, len(raw))
	for _, r := range raw {
		publishedAt, _ := time.Parse(time.RFC3339, r.PublishedAt)
		out = append(out, domain.NewsItem{
			Title:       r.Title,
			Snippet:     r.Snippet,
			URL:         r.URL,
			PublishedAt: publishedAt,
			Source:      providerID,
			Relevance:   r.Relevance,
		})
	}
	return out
}

// rankItems sorts in place by provider-relevance x recency decay
// (§4.2 "ranked by provider-relevance × recency").
func rankItems(items []domain.NewsItem, now time.Time) {
	score := func(it domain.NewsItem) float64 {
		ageHours := 1.0
		if !it.PublishedAt.IsZero() {
			ageHours = math.Max(1, now.Sub(it.PublishedAt).Hours())
		}
		recency := 1.0 / math.Log2(ageHours+1)
		return it.Relevance * recency
	}
	sort.SliceStable(items, func(i, j int) bool { return score(items[i]) > score(items[j]) })
}

func formatQuery(template, displayName, ticker string) string {
	subject := displayName
	if subject == "" {
		subject = ticker
	}
	return fmt.Sprintf(template, subject)
}

// isRateLimitErr reports whether err indicates a 429/quota condition.
// Providers are expected to return a RateLimitError for this case.
func isRateLimitErr(err error) bool {
	_, ok := err.(*RateLimitError)
	return ok
}

// RateLimitError signals a provider hit its rate limit on the given key.
type RateLimitError struct {
	ProviderID string
}

func (e *RateLimitError) Error() string {
	return e.ProviderID + ": rate limited"
}
