// Package config is the process-wide typed configuration registry (C1).
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/joho/godotenv"
)

// SourcePriority maps a data-source id to an override priority. Lower wins.
type SourcePriority map[string]int

// NotificationGroup binds a stock group name to the email group that receives it.
type NotificationGroup struct {
	StockGroup string
	EmailGroup string
}

// Config is the flat, process-wide configuration snapshot.
type Config struct {
	mu sync.RWMutex

	DataDir string

	StockList              []string
	ETFTickers             map[string]bool
	RealtimeSourcePriority SourcePriority

	TushareToken    string
	USQuoteBaseURL    string
	USQuoteAPIKey     string
	AsiaQuoteBaseURL  string
	AsiaQuoteAPIKey   string
	PushQuoteURL      string
	BochaAPIKeys    []string
	TavilyAPIKeys   []string
	SerpAPIKeys     []string
	GeminiAPIKeys   []string
	AnthropicAPIKeys []string
	OpenAIAPIKeys   []string

	LiteLLMModel           string
	LiteLLMFallbackModels  []string

	AgentMode        bool
	AgentMaxSteps    int
	AgentSkills      []string
	AgentStrategyDir string

	TradingDayCheckEnabled           bool
	EnableRealtimeTechnicalIndicators bool
	MarketReviewRegion               string // cn, us, both

	NewsMaxAgeDays int
	BiasThreshold  float64

	ScheduleTime      string // HH:MM
	RunImmediately    bool
	ReportSummaryOnly bool

	MergeEmailNotification bool
	AdminAuthEnabled       bool
	AdminJWTSecret         string

	WebUIHost string
	WebUIPort int

	SMTPHost        string
	SMTPPort        int
	SMTPUsername    string
	SMTPPassword    string
	SMTPFromAddress string
	SMTPDefaultTo   []string

	WebhookURL       string
	WebhookDefaultTo []string

	BackupEnabled  bool
	S3Endpoint     string
	S3Region       string
	S3Bucket       string
	S3AccessKeyID  string
	S3SecretKey    string

	VisionModel string

	NotificationGroups []NotificationGroup

	// NotifyChunkBytesOverrides maps a notification channel id ("email",
	// "im") to a NOTIFY_CHUNK_BYTES_<CHANNEL>-configured byte limit,
	// overriding the dispatcher's built-in default for that channel.
	NotifyChunkBytesOverrides map[string]int

	BatchParallelism int
	PipelineDeadlineSeconds int

	LogLevel string // debug, info, warn, error
}

// getEnv returns the environment value for key, or def if unset/empty.
func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvAsInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func getEnvAsFloat(key string, def float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return def
	}
	return f
}

func getEnvAsBool(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func getEnvAsStringSlice(key string, def []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func parseSourcePriority(v string) SourcePriority {
	out := SourcePriority{}
	for _, pair := range strings.Split(v, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		kv := strings.SplitN(pair, "=", 2)
		if len(kv) != 2 {
			continue
		}
		n, err := strconv.Atoi(strings.TrimSpace(kv[1]))
		if err != nil {
			continue
		}
		out[strings.TrimSpace(kv[0])] = n
	}
	return out
}

// Load reads .env (if present) and the environment into a Config.
// dataDirOverride, if given, takes precedence over DSA_DATA_DIR.
func Load(dataDirOverride ...string) (*Config, error) {
	_ = godotenv.Load()

	dataDir := getEnv("DSA_DATA_DIR", "./data")
	if len(dataDirOverride) > 0 && dataDirOverride[0] != "" {
		dataDir = dataDirOverride[0]
	}
	absDataDir, err := filepath.Abs(dataDir)
	if err != nil {
		return nil, fmt.Errorf("resolve data dir: %w", err)
	}
	if err := os.MkdirAll(absDataDir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}

	etfs := map[string]bool{}
	for _, t := range getEnvAsStringSlice("ETF_TICKERS", nil) {
		etfs[strings.ToUpper(t)] = true
	}

	var groups []NotificationGroup
	for i := 1; i <= 10; i++ {
		stockGroup := os.Getenv(fmt.Sprintf("STOCK_GROUP_%d", i))
		emailGroup := os.Getenv(fmt.Sprintf("EMAIL_GROUP_%d", i))
		if stockGroup == "" && emailGroup == "" {
			continue
		}
		groups = append(groups, NotificationGroup{StockGroup: stockGroup, EmailGroup: emailGroup})
	}

	chunkOverrides := map[string]int{}
	for _, channelID := range []string{"email", "im"} {
		key := "NOTIFY_CHUNK_BYTES_" + strings.ToUpper(channelID)
		if v := getEnvAsInt(key, 0); v > 0 {
			chunkOverrides[channelID] = v
		}
	}

	cfg := &Config{
		DataDir:                absDataDir,
		StockList:               getEnvAsStringSlice("STOCK_LIST", nil),
		ETFTickers:              etfs,
		RealtimeSourcePriority:  parseSourcePriority(getEnv("REALTIME_SOURCE_PRIORITY", "")),
		TushareToken:            getEnv("TUSHARE_TOKEN", ""),
		USQuoteBaseURL:          getEnv("US_QUOTE_BASE_URL", ""),
		USQuoteAPIKey:           getEnv("US_QUOTE_API_KEY", ""),
		AsiaQuoteBaseURL:        getEnv("ASIA_QUOTE_BASE_URL", ""),
		AsiaQuoteAPIKey:         getEnv("ASIA_QUOTE_API_KEY", ""),
		PushQuoteURL:            getEnv("PUSH_QUOTE_URL", ""),
		BochaAPIKeys:            getEnvAsStringSlice("BOCHA_API_KEYS", nil),
		TavilyAPIKeys:           getEnvAsStringSlice("TAVILY_API_KEYS", nil),
		SerpAPIKeys:             getEnvAsStringSlice("SERPAPI_API_KEYS", nil),
		GeminiAPIKeys:           getEnvAsStringSlice("GEMINI_API_KEYS", nil),
		AnthropicAPIKeys:        getEnvAsStringSlice("ANTHROPIC_API_KEYS", nil),
		OpenAIAPIKeys:           getEnvAsStringSlice("OPENAI_API_KEYS", nil),
		LiteLLMModel:            getEnv("LITELLM_MODEL", "gemini-1.5-pro"),
		LiteLLMFallbackModels:   getEnvAsStringSlice("LITELLM_FALLBACK_MODELS", nil),
		AgentMode:               getEnvAsBool("AGENT_MODE", false),
		AgentMaxSteps:           getEnvAsInt("AGENT_MAX_STEPS", 8),
		AgentSkills:             getEnvAsStringSlice("AGENT_SKILLS", nil),
		AgentStrategyDir:        getEnv("AGENT_STRATEGY_DIR", "./strategies"),
		TradingDayCheckEnabled:  getEnvAsBool("TRADING_DAY_CHECK_ENABLED", true),
		EnableRealtimeTechnicalIndicators: getEnvAsBool("ENABLE_REALTIME_TECHNICAL_INDICATORS", true),
		MarketReviewRegion:     getEnv("MARKET_REVIEW_REGION", "both"),
		NewsMaxAgeDays:         getEnvAsInt("NEWS_MAX_AGE_DAYS", 7),
		BiasThreshold:          getEnvAsFloat("BIAS_THRESHOLD", 8.0),
		ScheduleTime:           getEnv("SCHEDULE_TIME", "09:05"),
		RunImmediately:         getEnvAsBool("RUN_IMMEDIATELY", false),
		ReportSummaryOnly:      getEnvAsBool("REPORT_SUMMARY_ONLY", false),
		MergeEmailNotification: getEnvAsBool("MERGE_EMAIL_NOTIFICATION", false),
		AdminAuthEnabled:       getEnvAsBool("ADMIN_AUTH_ENABLED", true),
		AdminJWTSecret:         getEnv("ADMIN_JWT_SECRET", ""),
		WebUIHost:              getEnv("WEBUI_HOST", "0.0.0.0"),
		WebUIPort:              getEnvAsInt("WEBUI_PORT", 8787),
		SMTPHost:               getEnv("SMTP_HOST", ""),
		SMTPPort:               getEnvAsInt("SMTP_PORT", 587),
		SMTPUsername:           getEnv("SMTP_USERNAME", ""),
		SMTPPassword:           getEnv("SMTP_PASSWORD", ""),
		SMTPFromAddress:        getEnv("SMTP_FROM_ADDRESS", ""),
		SMTPDefaultTo:          getEnvAsStringSlice("SMTP_DEFAULT_TO", nil),
		WebhookURL:             getEnv("WEBHOOK_URL", ""),
		WebhookDefaultTo:       getEnvAsStringSlice("WEBHOOK_DEFAULT_TO", nil),
		BackupEnabled:          getEnvAsBool("BACKUP_ENABLED", false),
		S3Endpoint:             getEnv("S3_ENDPOINT", ""),
		S3Region:               getEnv("S3_REGION", ""),
		S3Bucket:               getEnv("S3_BUCKET", ""),
		S3AccessKeyID:          getEnv("S3_ACCESS_KEY_ID", ""),
		S3SecretKey:            getEnv("S3_SECRET_ACCESS_KEY", ""),
		VisionModel:            getEnv("VISION_MODEL", ""),
		NotificationGroups:     groups,
		NotifyChunkBytesOverrides: chunkOverrides,
		BatchParallelism:       getEnvAsInt("BATCH_PARALLELISM", 4),
		PipelineDeadlineSeconds: getEnvAsInt("PIPELINE_DEADLINE_SECONDS", 600),
		LogLevel:               getEnv("LOG_LEVEL", "info"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate performs basic sanity checks. Kept permissive by design:
// most options have safe defaults and missing API keys merely disable
// the corresponding source/provider rather than failing startup.
func (c *Config) Validate() error {
	if c.AgentMaxSteps < 1 {
		return fmt.Errorf("AGENT_MAX_STEPS must be >= 1")
	}
	if c.MarketReviewRegion != "cn" && c.MarketReviewRegion != "us" && c.MarketReviewRegion != "both" {
		return fmt.Errorf("MARKET_REVIEW_REGION must be one of cn, us, both")
	}
	if c.BatchParallelism < 1 {
		return fmt.Errorf("BATCH_PARALLELISM must be >= 1")
	}
	return nil
}

// Watchlist returns a snapshot of the current stock list.
func (c *Config) Watchlist() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]string, len(c.StockList))
	copy(out, c.StockList)
	return out
}

// ReloadWatchlist re-reads STOCK_LIST from the environment; when it is
// unset, the current list is kept. Scheduler calls this at the start of
// every batch so edits take effect without a restart.
func (c *Config) ReloadWatchlist() {
	c.mu.Lock()
	c.StockList = getEnvAsStringSlice("STOCK_LIST", c.StockList)
	c.mu.Unlock()
}

// IsETF reports whether ticker is configured as an ETF.
func (c *Config) IsETF(ticker string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.ETFTickers[strings.ToUpper(ticker)]
}
