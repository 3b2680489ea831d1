package llm

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/zhstock/dsa/internal/keypool"
)

// ModelSpec is one entry in the router's primary+fallback chain: a
// model name bound to the provider that serves it.
type ModelSpec struct {
	Model      string
	ProviderID string
}

// providerBinding pairs a registered Provider with its key pool.
type providerBinding struct {
	provider Provider
	pool     *keypool.Pool
}

// Router multiplexes chat completions across providers, keys, and a
// primary+fallback model chain (§4.3).
type Router struct {
	log zerolog.Logger

	providers map[string]providerBinding
	chain     []ModelSpec

	maxRetries  int
	backoffBase time.Duration
	backoffMax  time.Duration
}

// ProviderConfig registers one provider with its key set and cooldown.
type ProviderConfig struct {
	Provider Provider
	Keys     []string
	Cooldown time.Duration
}

// NewRouter builds a router. chain[0] is the primary model; the rest
// are tried in order on unrecoverable failure of the one before it.
func NewRouter(configs []ProviderConfig, chain []ModelSpec, log zerolog.Logger) *Router {
	providers := make(map[string]providerBinding, len(configs))
	for _, c := range configs {
		providers[c.Provider.ID()] = providerBinding{
			provider: c.Provider,
			pool:     keypool.New(c.Keys, c.Cooldown),
		}
	}
	return &Router{
		log:         log.With().Str("component", "llm-router").Logger(),
		providers:   providers,
		chain:       chain,
		maxRetries:  3,
		backoffBase: time.Second,
		backoffMax:  10 * time.Second,
	}
}

// Chat runs req against the model chain: primary first, each fallback
// in order on unrecoverable failure (all keys cooling, invalid
// request, or the fallback chain bottoms out). Transient transport
// errors are retried with exponential backoff before being treated as
// a key failure (§4.3).
func (r *Router) Chat(ctx context.Context, req ChatRequest) (ChatResponse, error) {
	var lastErr error
	for _, spec := range r.chain {
		binding, ok := r.providers[spec.ProviderID]
		if !ok {
			lastErr = fmt.Errorf("llm router: provider %q not registered", spec.ProviderID)
			continue
		}

		modelReq := req
		modelReq.Model = spec.Model

		resp, err := r.chatWithKeyRotation(ctx, binding, modelReq)
		if err == nil {
			return resp, nil
		}
		lastErr = err
		r.log.Warn().Str("model", spec.Model).Str("provider", spec.ProviderID).Err(err).
			Msg("model exhausted, falling back")
	}
	return ChatResponse{}, fmt.Errorf("llm router: fallback chain exhausted: %w", lastErr)
}

// chatWithKeyRotation tries the available keys for one provider. A
// rate-limited key is cooled down and the next key is tried; the
// error is returned once every key is cooling down, on an
// invalid-request error, or on a transport error that outlasts
// chatWithRetry's backoff (other keys are not tried for that case).
func (r *Router) chatWithKeyRotation(ctx context.Context, binding providerBinding, req ChatRequest) (ChatResponse, error) {
	for {
		key, ok := binding.pool.Acquire()
		if !ok {
			return ChatResponse{}, fmt.Errorf("%s: all keys cooling down", binding.provider.ID())
		}

		resp, err := r.chatWithRetry(ctx, binding.provider, key, req)
		if err == nil {
			return resp, nil
		}

		var rateLimitErr *RateLimitError
		if asRateLimit(err, &rateLimitErr) {
			binding.pool.Cooldown(key)
			if binding.pool.AllCoolingDown() {
				return ChatResponse{}, err
			}
			continue
		}

		var invalidErr *InvalidRequestError
		if asInvalidRequest(err, &invalidErr) {
			return ChatResponse{}, err
		}

		return ChatResponse{}, err
	}
}

// chatWithRetry retries transient transport errors with exponential
// backoff (1s -> 10s, up to 3 retries, 4 attempts in all) before
// surfacing the error.
func (r *Router) chatWithRetry(ctx context.Context, p Provider, key string, req ChatRequest) (ChatResponse, error) {
	backoff := r.backoffBase
	var lastErr error
	for attempt := 0; attempt <= r.maxRetries; attempt++ {
		resp, err := p.Chat(ctx, key, req)
		if err == nil {
			return resp, nil
		}

		var rl *RateLimitError
		var ir *InvalidRequestError
		if asRateLimit(err, &rl) || asInvalidRequest(err, &ir) {
			return ChatResponse{}, err
		}

		lastErr = err
		if attempt == r.maxRetries {
			break
		}
		select {
		case <-ctx.Done():
			return ChatResponse{}, ctx.Err()
		case <-time.After(backoff):
		}
		backoff *= 2
		if backoff > r.backoffMax {
			backoff = r.backoffMax
		}
	}
	return ChatResponse{}, fmt.Errorf("transport error after %d attempts: %w", r.maxRetries+1, lastErr)
}

func asRateLimit(err error, target **RateLimitError) bool {
	rl, ok := err.(*RateLimitError)
	if ok {
		*target = rl
	}
	return ok
}

func asInvalidRequest(err error, target **InvalidRequestError) bool {
	ir, ok := err.(*InvalidRequestError)
	if ok {
		*target = ir
	}
	return ok
}
