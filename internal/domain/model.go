package domain

import "time"

// Candle is one OHLCV bar. A series is strictly increasing by Date
// with no duplicate dates.
type Candle struct {
	Date   time.Time
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume float64
	Amount *float64
}

// Quote is a realtime snapshot, cached per ticker with a short TTL.
type Quote struct {
	Ticker    string
	Price     float64
	ChangePct float64
	Timestamp time.Time
	SourceID  string
}

// TechnicalSnapshot holds the derived indicators for one ticker (C6).
type TechnicalSnapshot struct {
	MA5, MA10, MA20     *float64
	MACDLine, MACDSignal, MACDHist *float64
	RSI14               *float64
	Bias20Pct           *float64
	BullishAlignment    bool
	TrendStrength       float64
	StrongTrend         bool
	IntradayVirtualBar  bool
}

// NewsItem is one ranked news result (C4).
type NewsItem struct {
	Title       string
	Snippet     string
	URL         string
	PublishedAt time.Time
	Source      string
	Fingerprint string
	Relevance   float64
}

// NewsIntel is the merged, ranked, deduplicated news result for one ticker.
type NewsIntel struct {
	Ticker        string
	Items         []NewsItem
	SearchFallback bool
}

// EvidenceBundle is the assembled input handed to the LLM (C7).
type EvidenceBundle struct {
	Ticker          string
	Name            string
	Market          Market
	Quote           *Quote
	Candles         []Candle
	Technicals      TechnicalSnapshot
	News            NewsIntel
	PreviousReport  *AnalysisReportSummary
	Truncated       []string // field names truncated for size budget
}

// AnalysisReportSummary is the subset of a prior report carried forward as context.
type AnalysisReportSummary struct {
	ID            int64
	SentimentScore int
	OperationAdvice string
	CreatedAt     time.Time
}

// ReportMeta is the report's identity and pricing snapshot.
type ReportMeta struct {
	ID            int64
	QueryID       string
	Ticker        string
	Name          string
	CreatedAt     time.Time
	CurrentPrice  float64
	ChangePct     float64
	ReportType    string
	EngineVersion string
}

// ReportSummary is the LLM-produced narrative/decision fields.
type ReportSummary struct {
	SentimentScore   int // 0..100
	AnalysisSummary  string
	OperationAdvice  string
	TrendPrediction  string
	RiskAlerts       []string
}

// ReportStrategy holds optional numeric price levels; nil means "not stated."
type ReportStrategy struct {
	IdealBuy     *float64
	SecondaryBuy *float64
	StopLoss     *float64
	TakeProfit   *float64
}

// ReportDetails carries the audit trail for a report.
type ReportDetails struct {
	RawResult       string
	ContextSnapshot string
}

// AnalysisReport is the full persisted decision report (§3).
type AnalysisReport struct {
	Meta     ReportMeta
	Summary  ReportSummary
	Strategy ReportStrategy
	Details  ReportDetails
}

// TaskStatus is the lifecycle state of one submitted analysis task.
type TaskStatus string

const (
	TaskPending    TaskStatus = "pending"
	TaskProcessing TaskStatus = "processing"
	TaskCompleted  TaskStatus = "completed"
	TaskFailed     TaskStatus = "failed"
)

// Task tracks one ticker's progress through the pipeline (C10).
type Task struct {
	TaskID      string
	Ticker      string
	Status      TaskStatus
	Progress    float64
	Message     string
	CreatedAt   time.Time
	StartedAt   *time.Time
	CompletedAt *time.Time
	Error       string
}

// ConversationRole identifies the speaker of a conversation turn.
type ConversationRole string

const (
	RoleUser      ConversationRole = "user"
	RoleAssistant ConversationRole = "assistant"
	RoleTool      ConversationRole = "tool"
)

// ConversationTurn is one message in an agent session (C9).
type ConversationTurn struct {
	SessionID     string
	Role          ConversationRole
	Content       string
	ToolCalls     []ToolCall
	ReasoningBlob []byte // opaque provider-extension, passed through unchanged
	CreatedAt     time.Time
}

// ToolCall is a single function invocation requested by the LLM.
type ToolCall struct {
	ID        string
	Name      string
	Arguments string // raw JSON
}
