package pipeline

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/zhstock/dsa/internal/domain"
)

// ParsedReport is the generation-output subset of an AnalysisReport:
// everything the LLM is responsible for producing.
type ParsedReport struct {
	StockName string
	Summary   domain.ReportSummary
	Strategy  domain.ReportStrategy
}

type wireReport struct {
	StockName       string   `json:"stock_name"`
	SentimentScore  int      `json:"sentiment_score"`
	AnalysisSummary string   `json:"analysis_summary"`
	OperationAdvice string   `json:"operation_advice"`
	TrendPrediction string   `json:"trend_prediction"`
	RiskAlerts      []string `json:"risk_alerts"`
	IdealBuy        *float64 `json:"ideal_buy"`
	SecondaryBuy    *float64 `json:"secondary_buy"`
	StopLoss        *float64 `json:"stop_loss"`
	TakeProfit      *float64 `json:"take_profit"`
}

var trailingCommaRE = regexp.MustCompile(`,(\s*[}\]])`)

// ParseReport parses raw LLM output into a ParsedReport, tolerating
// markdown code fences and a trailing comma before the final brace —
// the two malformations real providers actually produce — before
// giving up (§4.5 step 6: "tolerant JSON repair is attempted; on
// irrecoverable parse failure the step fails").
func ParseReport(raw string) (ParsedReport, error) {
	candidate := extractJSONObject(raw)
	if candidate == "" {
		return ParsedReport{}, fmt.Errorf("pipeline: no JSON object found in generation output")
	}

	var wire wireReport
	if err := json.Unmarshal([]byte(candidate), &wire); err != nil {
		repaired := trailingCommaRE.ReplaceAllString(candidate, "$1")
		if err2 := json.Unmarshal([]byte(repaired), &wire); err2 != nil {
			return ParsedReport{}, fmt.Errorf("pipeline: unparseable generation output: %w", err)
		}
	}

	return ParsedReport{
		StockName: strings.TrimSpace(wire.StockName),
		Summary: domain.ReportSummary{
			SentimentScore:  wire.SentimentScore,
			AnalysisSummary: wire.AnalysisSummary,
			OperationAdvice: wire.OperationAdvice,
			TrendPrediction: wire.TrendPrediction,
			RiskAlerts:      wire.RiskAlerts,
		},
		Strategy: domain.ReportStrategy{
			IdealBuy:     wire.IdealBuy,
			SecondaryBuy: wire.SecondaryBuy,
			StopLoss:     wire.StopLoss,
			TakeProfit:   wire.TakeProfit,
		},
	}, nil
}

// extractJSONObject strips a leading markdown code fence (```json or
// ```) if present, then returns the substring from the first '{' to
// the last '}'. Returns "" if no brace pair is found.
func extractJSONObject(raw string) string {
	s := strings.TrimSpace(raw)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	s = strings.TrimSpace(s)

	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start == -1 || end == -1 || end < start {
		return ""
	}
	return s[start : end+1]
}
