package notify

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zhstock/dsa/internal/config"
	"github.com/zhstock/dsa/internal/domain"
)

type sentMessage struct {
	channel    string
	recipients []string
	subject    string
	body       string
}

type fakeChannel struct {
	id   string
	mu   sync.Mutex
	sent []sentMessage
}

func (f *fakeChannel) ID() string { return f.id }

func (f *fakeChannel) Send(ctx context.Context, recipients []string, subject, body string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, sentMessage{channel: f.id, recipients: recipients, subject: subject, body: body})
	return nil
}

func sampleReport(ticker string, sentiment int) domain.AnalysisReport {
	return domain.AnalysisReport{
		Meta: domain.ReportMeta{Ticker: ticker, Name: ticker + " Inc.", CurrentPrice: 10, ChangePct: 0.01},
		Summary: domain.ReportSummary{
			SentimentScore:  sentiment,
			AnalysisSummary: "steady",
			OperationAdvice: "hold",
			TrendPrediction: "flat",
		},
	}
}

func TestDispatcher_DispatchOne_RoutesByGroup(t *testing.T) {
	email := &fakeChannel{id: "email"}
	d := New([]Channel{email}, []config.NotificationGroup{
		{StockGroup: "AAPL,MSFT", EmailGroup: "a@x.com,b@x.com"},
	}, nil, zerolog.Nop())
	d.sleep = func(time.Duration) {}

	err := d.DispatchOne(context.Background(), sampleReport("AAPL", 70))
	require.NoError(t, err)

	require.Len(t, email.sent, 1)
	assert.ElementsMatch(t, []string{"a@x.com", "b@x.com"}, email.sent[0].recipients)
}

func TestDispatcher_DispatchOne_UngroupedTickerGetsNilRecipients(t *testing.T) {
	email := &fakeChannel{id: "email"}
	d := New([]Channel{email}, []config.NotificationGroup{
		{StockGroup: "AAPL", EmailGroup: "a@x.com"},
	}, nil, zerolog.Nop())
	d.sleep = func(time.Duration) {}

	err := d.DispatchOne(context.Background(), sampleReport("TSLA", 40))
	require.NoError(t, err)

	require.Len(t, email.sent, 1)
	assert.Nil(t, email.sent[0].recipients)
}

func TestDispatcher_DispatchOne_ChunksOversizedBodyWithPageMarkers(t *testing.T) {
	im := &fakeChannel{id: "im"}
	d := New([]Channel{im}, nil, map[string]int{"im": 40}, zerolog.Nop())
	d.sleep = func(time.Duration) {}

	err := d.DispatchOne(context.Background(), sampleReport("AAPL", 70))
	require.NoError(t, err)

	require.True(t, len(im.sent) >= 2, "expected multiple pages for a 40-byte budget")
	assert.Contains(t, im.sent[0].body, "(1/")
}

func TestDispatcher_DispatchMarketReview_BroadcastsToAllEmails(t *testing.T) {
	email := &fakeChannel{id: "email"}
	d := New([]Channel{email}, []config.NotificationGroup{
		{StockGroup: "AAPL", EmailGroup: "a@x.com"},
		{StockGroup: "MSFT", EmailGroup: "b@x.com"},
	}, nil, zerolog.Nop())
	d.sleep = func(time.Duration) {}

	err := d.DispatchMarketReview(context.Background(), "us", []domain.AnalysisReport{
		sampleReport("AAPL", 70),
		sampleReport("MSFT", 55),
	})
	require.NoError(t, err)

	require.Len(t, email.sent, 1)
	assert.ElementsMatch(t, []string{"a@x.com", "b@x.com"}, email.sent[0].recipients)
}

func TestDispatcher_DispatchBatch_MergesByEmailGroup(t *testing.T) {
	email := &fakeChannel{id: "email"}
	d := New([]Channel{email}, []config.NotificationGroup{
		{StockGroup: "AAPL,MSFT", EmailGroup: "a@x.com"},
	}, nil, zerolog.Nop())
	d.sleep = func(time.Duration) {}

	d.DispatchBatch(context.Background(), []domain.AnalysisReport{
		sampleReport("AAPL", 70),
		sampleReport("MSFT", 55),
	}, true)

	require.Len(t, email.sent, 1, "both reports share a group and should merge into one email")
	assert.Contains(t, email.sent[0].body, "AAPL")
	assert.Contains(t, email.sent[0].body, "MSFT")
}
