package pipeline

import (
	"encoding/json"
	"fmt"

	"github.com/zhstock/dsa/internal/domain"
)

// systemPromptText is the single-shot (non-agent) generation system
// prompt. It names the exact JSON shape ParseReport expects back.
const systemPromptText = `You are a disciplined equity analyst. You will be given a ticker's
recent price history, technical indicators, a realtime quote, and ranked
news. Respond with a single JSON object and nothing else, matching this
shape:

{
  "stock_name": "string, the company's proper name if known",
  "sentiment_score": 0-100 integer,
  "analysis_summary": "string",
  "operation_advice": "string",
  "trend_prediction": "string",
  "risk_alerts": ["string", ...],
  "ideal_buy": number or null,
  "secondary_buy": number or null,
  "stop_loss": number or null,
  "take_profit": number or null
}

Do not wrap the JSON in markdown code fences. Base every claim on the
evidence provided; do not invent news or price data not present in it.`

// buildSingleShotPrompt serializes the evidence bundle as the user
// turn for the single-shot generation path.
func buildSingleShotPrompt(bundle domain.EvidenceBundle) string {
	b, err := json.Marshal(bundle)
	if err != nil {
		return fmt.Sprintf("ticker=%s name=%s (evidence serialization failed: %v)", bundle.Ticker, bundle.Name, err)
	}
	return fmt.Sprintf("Evidence for %s (%s):\n%s", bundle.Ticker, bundle.Name, string(b))
}

// buildAgentPrompt is the user turn handed to the Agent Executor; it
// points the agent at the ticker and lets it call tools for anything
// the evidence bundle doesn't already cover, rather than pre-feeding
// the bundle the way the single-shot path does.
func buildAgentPrompt(bundle domain.EvidenceBundle) string {
	return fmt.Sprintf(
		"Analyze %s (%s). Use your tools to confirm technicals and recent news, then respond with the required JSON report shape.",
		bundle.Ticker, bundle.Name,
	)
}

// summarizeBundle renders a compact audit-trail snapshot of the
// evidence bundle for ReportDetails.ContextSnapshot; the full prompt
// text itself is not persisted.
func summarizeBundle(bundle domain.EvidenceBundle) string {
	b, err := json.Marshal(struct {
		Ticker     string                    `json:"ticker"`
		Name       string                    `json:"name"`
		Market     domain.Market             `json:"market"`
		NumCandles int                       `json:"num_candles"`
		NumNews    int                       `json:"num_news"`
		Technicals domain.TechnicalSnapshot  `json:"technicals"`
		Truncated  []string                  `json:"truncated,omitempty"`
	}{
		Ticker:     bundle.Ticker,
		Name:       bundle.Name,
		Market:     bundle.Market,
		NumCandles: len(bundle.Candles),
		NumNews:    len(bundle.News.Items),
		Technicals: bundle.Technicals,
		Truncated:  bundle.Truncated,
	})
	if err != nil {
		return fmt.Sprintf("ticker=%s name=%s", bundle.Ticker, bundle.Name)
	}
	return string(b)
}
