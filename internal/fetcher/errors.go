package fetcher

import "errors"

// Error taxonomy for the fetcher pool (§7). Sentinel values so callers
// can match with errors.Is rather than comparing strings.
var (
	ErrMarketUnsupported = errors.New("market unsupported by any configured source")
	ErrAllSourcesFailed  = errors.New("all sources failed")
	ErrStale             = errors.New("quote is stale")
	ErrNotFound          = errors.New("not found")
)
