package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseReport_PlainJSON(t *testing.T) {
	raw := `{"stock_name":"Acme Corp","sentiment_score":72,"analysis_summary":"steady uptrend","operation_advice":"hold","trend_prediction":"bullish","risk_alerts":["earnings in 2 weeks"],"ideal_buy":10.5,"secondary_buy":null,"stop_loss":9.0,"take_profit":13.0}`

	parsed, err := ParseReport(raw)
	require.NoError(t, err)
	assert.Equal(t, "Acme Corp", parsed.StockName)
	assert.Equal(t, 72, parsed.Summary.SentimentScore)
	assert.Equal(t, []string{"earnings in 2 weeks"}, parsed.Summary.RiskAlerts)
	require.NotNil(t, parsed.Strategy.IdealBuy)
	assert.Equal(t, 10.5, *parsed.Strategy.IdealBuy)
	assert.Nil(t, parsed.Strategy.SecondaryBuy)
}

func TestParseReport_StripsMarkdownFence(t *testing.T) {
	raw := "```json\n{\"stock_name\":\"Acme\",\"sentiment_score\":50,\"analysis_summary\":\"x\",\"operation_advice\":\"y\",\"trend_prediction\":\"z\",\"risk_alerts\":[]}\n```"

	parsed, err := ParseReport(raw)
	require.NoError(t, err)
	assert.Equal(t, "Acme", parsed.StockName)
}

func TestParseReport_RepairsTrailingComma(t *testing.T) {
	raw := `{"stock_name":"Acme","sentiment_score":50,"analysis_summary":"x","operation_advice":"y","trend_prediction":"z","risk_alerts":[],}`

	parsed, err := ParseReport(raw)
	require.NoError(t, err)
	assert.Equal(t, "Acme", parsed.StockName)
}

func TestParseReport_NoJSONObjectIsFatal(t *testing.T) {
	_, err := ParseReport("I could not analyze this ticker.")
	require.Error(t, err)
}

func TestParseReport_IrrecoverablyMalformedIsFatal(t *testing.T) {
	_, err := ParseReport(`{"stock_name": "Acme, "sentiment_score": oops}`)
	require.Error(t, err)
}
