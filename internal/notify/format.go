package notify

import (
	"fmt"
	"strings"

	"github.com/zhstock/dsa/internal/domain"
)

// section is one named block of a formatted report. Chunking splits on
// section boundaries first, falling back to a byte-offset split only
// when a single section itself exceeds the channel's chunk size.
type section struct {
	heading string
	body    string
}

// sections renders rep into the ordered blocks a chunked notification
// is assembled from.
func sections(rep domain.AnalysisReport) []section {
	out := []section{
		{heading: fmt.Sprintf("%s (%s)", rep.Meta.Name, rep.Meta.Ticker),
			body: fmt.Sprintf("price %.2f (%+.2f%%)", rep.Meta.CurrentPrice, rep.Meta.ChangePct*100)},
		{heading: "Summary", body: fmt.Sprintf("sentiment %d/100 — %s", rep.Summary.SentimentScore, rep.Summary.AnalysisSummary)},
		{heading: "Advice", body: fmt.Sprintf("%s\ntrend: %s", rep.Summary.OperationAdvice, rep.Summary.TrendPrediction)},
	}

	if lvl := strategyLevels(rep.Strategy); lvl != "" {
		out = append(out, section{heading: "Levels", body: lvl})
	}
	if len(rep.Summary.RiskAlerts) > 0 {
		out = append(out, section{heading: "Risk alerts", body: strings.Join(rep.Summary.RiskAlerts, "; ")})
	}
	return out
}

func strategyLevels(s domain.ReportStrategy) string {
	var parts []string
	if s.IdealBuy != nil {
		parts = append(parts, fmt.Sprintf("buy %.2f", *s.IdealBuy))
	}
	if s.SecondaryBuy != nil {
		parts = append(parts, fmt.Sprintf("add %.2f", *s.SecondaryBuy))
	}
	if s.StopLoss != nil {
		parts = append(parts, fmt.Sprintf("stop %.2f", *s.StopLoss))
	}
	if s.TakeProfit != nil {
		parts = append(parts, fmt.Sprintf("target %.2f", *s.TakeProfit))
	}
	return strings.Join(parts, ", ")
}

// renderBody joins sections into one plain-text body for channels with
// no chunk limit (or as the pre-chunk source text otherwise).
func renderBody(rep domain.AnalysisReport) string {
	var b strings.Builder
	for i, s := range sections(rep) {
		if i > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(s.heading)
		b.WriteString("\n")
		b.WriteString(s.body)
	}
	return b.String()
}

// subject builds the notification subject/title for rep.
func subject(rep domain.AnalysisReport) string {
	return fmt.Sprintf("[%s] %s analysis", rep.Meta.Ticker, rep.Summary.OperationAdvice)
}
