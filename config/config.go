package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"mt5SignalBot/internal/domain"
)

// Config holds all application configuration.
type Config struct {
	// Telegram ingestion
	TelegramToken string
	// ChannelMap binds chat ids to channel tags. Immutable after load; the
	// ingestion adapter holds it by reference and drops unmapped chats.
	ChannelMap map[int64]domain.ChannelTag

	// MT5 bridge
	BridgeURL            string
	ReconnectDelay       time.Duration
	MaxReconnectAttempts int
	CallTimeout          time.Duration

	// Signal parser (OpenRouter)
	ParserBaseURL string
	ParserAPIKey  string
	ParserModel   string
	ParserTimeout time.Duration

	// Trading parameters
	LotSize         float64 // Fixed lot size per sibling order
	DeviationPoints int     // Max market-order slippage, in points

	// Entry validation
	TolerancePoints   float64 // Entry tolerance as a multiple of the point
	MetalsTolerance   float64 // Absolute entry tolerance for metals
	StopsSafetyPoints float64 // Buffer on top of the broker stops level

	// Break-even policy
	MetalsBEBuffer float64 // Profit buffer when moving metals stops to entry; 0 = exact entry

	// Tolerance-rejection policy: when true, a market signal rejected on
	// price tolerance is re-attempted once on the next monitor tick.
	RetryRejectedEntries bool

	// Periodic tasks
	MonitorInterval time.Duration
	DealLookback    time.Duration

	// Results log
	ResultsLogPath string

	// Observability
	MetricsAddr string
	LogLevel    string
}

// LoadConfig loads configuration from environment variables (.env file).
func LoadConfig() (*Config, error) {
	// Load .env file, but don't fail if it doesn't exist (allow pure env vars)
	_ = godotenv.Load()

	cfg := &Config{}
	var err error
	var errs []string // Collect validation errors

	// Telegram
	cfg.TelegramToken = getEnv("TELEGRAM_TOKEN", "")
	if cfg.TelegramToken == "" {
		errs = append(errs, "TELEGRAM_TOKEN must be set")
	}

	cfg.ChannelMap, err = parseChannelMap(getEnv("CHANNEL_MAP", ""))
	if err != nil {
		errs = append(errs, fmt.Sprintf("invalid CHANNEL_MAP: %v", err))
	} else if len(cfg.ChannelMap) == 0 {
		errs = append(errs, "CHANNEL_MAP must map at least one chat id to a channel tag")
	}

	// MT5 bridge
	cfg.BridgeURL = getEnv("MT5_BRIDGE_URL", "ws://127.0.0.1:8765/mt5")
	reconnectDelaySeconds := getEnvAsInt("RECONNECT_DELAY_SECONDS", 5)
	if reconnectDelaySeconds <= 0 {
		errs = append(errs, "RECONNECT_DELAY_SECONDS must be positive")
	}
	cfg.ReconnectDelay = time.Duration(reconnectDelaySeconds) * time.Second
	cfg.MaxReconnectAttempts = getEnvAsInt("MAX_RECONNECT_ATTEMPTS", 0) // 0 = retry forever
	if cfg.MaxReconnectAttempts < 0 {
		errs = append(errs, "MAX_RECONNECT_ATTEMPTS cannot be negative")
	}
	cfg.CallTimeout = time.Duration(getEnvAsInt("BRIDGE_CALL_TIMEOUT_SECONDS", 10)) * time.Second

	// Parser
	cfg.ParserBaseURL = getEnv("OPENROUTER_BASE_URL", "https://openrouter.ai/api/v1")
	cfg.ParserAPIKey = getEnv("OPENROUTER_API_KEY", "")
	if cfg.ParserAPIKey == "" {
		errs = append(errs, "OPENROUTER_API_KEY must be set")
	}
	cfg.ParserModel = getEnv("OPENROUTER_MODEL", "tngtech/deepseek-r1t2-chimera:free")
	cfg.ParserTimeout = time.Duration(getEnvAsInt("PARSER_TIMEOUT_SECONDS", 45)) * time.Second

	// Trading parameters
	cfg.LotSize, err = getEnvAsFloatRequired("FIXED_LOT_SIZE", 0.01)
	if err != nil {
		errs = append(errs, fmt.Sprintf("invalid FIXED_LOT_SIZE: %v", err))
	} else if cfg.LotSize <= 0 {
		errs = append(errs, "FIXED_LOT_SIZE must be positive")
	}

	cfg.DeviationPoints = getEnvAsInt("DEVIATION_POINTS", 20)
	if cfg.DeviationPoints <= 0 {
		errs = append(errs, "DEVIATION_POINTS must be positive")
	}

	// Entry validation
	cfg.TolerancePoints = getEnvAsFloat("ENTRY_TOLERANCE_POINTS", 50.0)
	cfg.MetalsTolerance = getEnvAsFloat("METALS_ENTRY_TOLERANCE", 2.00)
	cfg.StopsSafetyPoints = getEnvAsFloat("STOPS_SAFETY_POINTS", 10.0)
	if cfg.TolerancePoints <= 0 || cfg.MetalsTolerance <= 0 || cfg.StopsSafetyPoints < 0 {
		errs = append(errs, "tolerance settings must be positive (STOPS_SAFETY_POINTS may be zero)")
	}

	// Break-even policy
	cfg.MetalsBEBuffer = getEnvAsFloat("BE_METALS_BUFFER", 0.10)
	if cfg.MetalsBEBuffer < 0 {
		errs = append(errs, "BE_METALS_BUFFER cannot be negative")
	}

	cfg.RetryRejectedEntries = getEnvAsBool("RETRY_REJECTED_ENTRIES", false)

	// Periodic tasks
	monitorSeconds := getEnvAsInt("MONITOR_INTERVAL_SECONDS", 60)
	if monitorSeconds <= 0 {
		errs = append(errs, "MONITOR_INTERVAL_SECONDS must be positive")
	}
	cfg.MonitorInterval = time.Duration(monitorSeconds) * time.Second

	lookbackMinutes := getEnvAsInt("DEAL_LOOKBACK_MINUTES", 60)
	if lookbackMinutes <= 0 {
		errs = append(errs, "DEAL_LOOKBACK_MINUTES must be positive")
	}
	cfg.DealLookback = time.Duration(lookbackMinutes) * time.Minute

	// Results log
	cfg.ResultsLogPath = getEnv("RESULTS_LOG_PATH", "./data/results.csv")
	if cfg.ResultsLogPath == "" {
		errs = append(errs, "RESULTS_LOG_PATH must be set")
	}

	// Observability
	cfg.MetricsAddr = getEnv("METRICS_ADDR", ":9100")
	cfg.LogLevel = getEnv("LOG_LEVEL", "INFO")

	// Combine validation errors
	if len(errs) > 0 {
		return nil, fmt.Errorf("configuration validation failed: %s", strings.Join(errs, "; "))
	}

	return cfg, nil
}

// parseChannelMap parses "chatID:tag,chatID:tag" pairs, e.g.
// "-1002141832713:1001,-1001774783341:1003".
func parseChannelMap(raw string) (map[int64]domain.ChannelTag, error) {
	channels := make(map[int64]domain.ChannelTag)
	if raw == "" {
		return channels, nil
	}

	for _, pair := range strings.Split(raw, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		parts := strings.SplitN(pair, ":", 2)
		if len(parts) != 2 {
			return nil, fmt.Errorf("entry %q is not chatID:tag", pair)
		}
		chatID, err := strconv.ParseInt(strings.TrimSpace(parts[0]), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("chat id in %q: %w", pair, err)
		}
		tag, err := strconv.Atoi(strings.TrimSpace(parts[1]))
		if err != nil {
			return nil, fmt.Errorf("tag in %q: %w", pair, err)
		}
		if tag == 0 {
			return nil, fmt.Errorf("tag in %q must be nonzero (zero marks manual trades)", pair)
		}
		channels[chatID] = domain.ChannelTag(tag)
	}
	return channels, nil
}

// --- Env Var Helpers ---

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsFloatRequired(key string, defaultValue float64) (float64, error) {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue, nil
	}
	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid float value '%s' for key %s: %w", valueStr, key, err)
	}
	return value, nil
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}
