package fetcher

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zhstock/dsa/internal/domain"
)

type fakeSource struct {
	id        string
	priority  int
	market    domain.Market
	fail      bool
	histCalls int
	rtCalls   int
	nameCalls int
}

func (f *fakeSource) ID() string    { return f.id }
func (f *fakeSource) Priority() int { return f.priority }
func (f *fakeSource) SupportsMarket(m domain.Market) bool { return m == f.market }

func (f *fakeSource) GetHistory(ctx context.Context, ticker string, days int) ([]domain.Candle, error) {
	f.histCalls++
	if f.fail {
		return nil, errors.New("boom")
	}
	base := domain.Candle{Close: 10}
	next := base
	next.Date = base.Date.AddDate(0, 0, 1)
	return []domain.Candle{base, next}, nil
}

func (f *fakeSource) GetRealtime(ctx context.Context, ticker string) (domain.Quote, error) {
	f.rtCalls++
	if f.fail {
		return domain.Quote{}, errors.New("boom")
	}
	return domain.Quote{Ticker: ticker, Price: 42, SourceID: f.id}, nil
}

func (f *fakeSource) GetName(ctx context.Context, ticker string) (string, error) {
	f.nameCalls++
	if f.fail {
		return "", errors.New("boom")
	}
	return "Fake Corp", nil
}

func TestPool_FallsBackOnFailure(t *testing.T) {
	primary := &fakeSource{id: "primary", priority: 0, market: domain.MarketAShare, fail: true}
	backup := &fakeSource{id: "backup", priority: 1, market: domain.MarketAShare}

	p := NewPool([]Source{primary, backup}, nil, nil, "", zerolog.Nop())

	q, err := p.GetRealtime(context.Background(), "600000")
	require.NoError(t, err)
	assert.Equal(t, "backup", q.SourceID)
	assert.Equal(t, 1, primary.rtCalls)
	assert.Equal(t, 1, backup.rtCalls)
}

func TestPool_AllSourcesFailReturnsSentinel(t *testing.T) {
	primary := &fakeSource{id: "primary", priority: 0, market: domain.MarketAShare, fail: true}

	p := NewPool([]Source{primary}, nil, nil, "", zerolog.Nop())

	_, err := p.GetRealtime(context.Background(), "600000")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrAllSourcesFailed)
}

func TestPool_UnsupportedMarketReturnsSentinel(t *testing.T) {
	src := &fakeSource{id: "a", priority: 0, market: domain.MarketHK}
	p := NewPool([]Source{src}, nil, nil, "", zerolog.Nop())

	_, err := p.GetHistory(context.Background(), "AAPL", 30)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMarketUnsupported)
}

func TestPool_CachesRealtimeQuote(t *testing.T) {
	src := &fakeSource{id: "a", priority: 0, market: domain.MarketAShare}
	p := NewPool([]Source{src}, nil, nil, "", zerolog.Nop())

	_, err := p.GetRealtime(context.Background(), "600000")
	require.NoError(t, err)
	_, err = p.GetRealtime(context.Background(), "600000")
	require.NoError(t, err)

	assert.Equal(t, 1, src.rtCalls, "second call should be served from cache")
}

func TestPool_DedicatedUSRouting(t *testing.T) {
	us := &fakeSource{id: "us-primary", priority: 5, market: domain.MarketUS}
	generic := &fakeSource{id: "generic", priority: 0, market: domain.MarketUS}

	p := NewPool([]Source{generic, us}, nil, nil, "us-primary", zerolog.Nop())

	_, err := p.GetRealtime(context.Background(), "AAPL")
	require.NoError(t, err)
	assert.Equal(t, 0, generic.rtCalls, "dedicated US source should be used even though it has lower priority rank")
	assert.Equal(t, 1, us.rtCalls)
}

func TestPool_BreakerOpensAfterConsecutiveFailures(t *testing.T) {
	src := &fakeSource{id: "a", priority: 0, market: domain.MarketAShare, fail: true}
	p := NewPool([]Source{src}, nil, nil, "", zerolog.Nop())

	for i := 0; i < 3; i++ {
		_, _ = p.GetName(context.Background(), "600000")
	}
	assert.True(t, p.sources[0].breaker.IsOpen())

	callsBefore := src.nameCalls
	_, _ = p.GetName(context.Background(), "600000")
	assert.Equal(t, callsBefore, src.nameCalls, "open breaker should short-circuit further calls")
}
