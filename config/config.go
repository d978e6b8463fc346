// Package config loads application configuration from environment
// variables, optionally seeded from a .env file.
package config

import (
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// validIntervals is the set of kline intervals the exchange accepts.
var validIntervals = map[string]bool{
	"1m": true, "3m": true, "5m": true, "15m": true, "30m": true,
	"1h": true, "2h": true, "4h": true, "6h": true, "8h": true, "12h": true,
	"1d": true, "3d": true, "1w": true, "1M": true,
}

// Config holds all application configuration.
type Config struct {
	// Exchange credentials and endpoints
	APIKey    string
	SecretKey string
	BaseURL   string
	StreamURL string

	// Trading
	Symbol   string
	Interval string
	Quantity float64

	// Indicator parameters
	VolatilityWindow int
	BBWindow         int
	BBStd            float64
	KeltnerWindow    int
	KeltnerATRMult   float64
	ADXPeriod        int
	ADXThreshold     float64
	RSIPeriod        int
	MACDFast         int
	MACDSlow         int
	MACDSignal       int

	// Loop control
	LookbackDays            int
	AnalysisIntervalMinutes int
	MaxTradesPerDay         int
	MaxConsecutiveFailures  int
	RetryDelaySeconds       int

	// Journal
	JournalBackend string // "csv" or "sqlite"
	TradesFile     string
	JournalDB      string

	// Infrastructure
	RedisAddr     string
	RedisPassword string
	MetricsAddr   string
	LogLevel      string
}

// Load reads configuration from the environment. A .env file in the working
// directory is loaded first when present.
func Load() (*Config, error) {
	_ = godotenv.Load()

	var errs []string
	cfg := &Config{
		APIKey:    requireEnv("BINANCE_API_KEY", &errs),
		SecretKey: requireEnv("BINANCE_SECRET_KEY", &errs),
		BaseURL:   getEnv("BINANCE_BASE_URL", "https://api.binance.com"),
		StreamURL: getEnv("BINANCE_STREAM_URL", "wss://stream.binance.com:9443/ws"),

		Symbol:   getEnv("TRADING_SYMBOL", "BTCUSDT"),
		Interval: getEnv("TRADING_INTERVAL", "15m"),
		Quantity: getEnvFloat("TRADING_QUANTITY", 0.001, &errs),

		VolatilityWindow: getEnvInt("VOLATILITY_WINDOW", 20, &errs),
		BBWindow:         getEnvInt("BB_WINDOW", 20, &errs),
		BBStd:            getEnvFloat("BB_STD", 2.0, &errs),
		KeltnerWindow:    getEnvInt("KELTNER_WINDOW", 20, &errs),
		KeltnerATRMult:   getEnvFloat("KELTNER_ATR_MULT", 1.5, &errs),
		ADXPeriod:        getEnvInt("ADX_PERIOD", 14, &errs),
		ADXThreshold:     getEnvFloat("ADX_THRESHOLD", 25, &errs),
		RSIPeriod:        getEnvInt("RSI_PERIOD", 14, &errs),
		MACDFast:         getEnvInt("MACD_FAST", 12, &errs),
		MACDSlow:         getEnvInt("MACD_SLOW", 26, &errs),
		MACDSignal:       getEnvInt("MACD_SIGNAL", 9, &errs),

		LookbackDays:            getEnvInt("LOOKBACK_DAYS", 30, &errs),
		AnalysisIntervalMinutes: getEnvInt("ANALYSIS_INTERVAL_MINUTES", 15, &errs),
		MaxTradesPerDay:         getEnvInt("MAX_TRADES_PER_DAY", 5, &errs),
		MaxConsecutiveFailures:  getEnvInt("MAX_CONSECUTIVE_FAILURES", 3, &errs),
		RetryDelaySeconds:       getEnvInt("RETRY_DELAY_SECONDS", 60, &errs),

		JournalBackend: getEnv("JOURNAL_BACKEND", "csv"),
		TradesFile:     getEnv("TRADES_FILE", "trades.csv"),
		JournalDB:      getEnv("JOURNAL_DB", "trades.db"),

		RedisAddr:     getEnv("REDIS_ADDR", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		MetricsAddr:   getEnv("METRICS_ADDR", ":9090"),
		LogLevel:      getEnv("LOG_LEVEL", "info"),
	}

	if err := cfg.Validate(); err != nil {
		errs = append(errs, err.Error())
	}
	if len(errs) > 0 {
		return nil, fmt.Errorf("config: %s", strings.Join(errs, "; "))
	}
	return cfg, nil
}

// Validate checks value ranges independently of how the config was built.
func (c *Config) Validate() error {
	var errs []string
	if !validIntervals[c.Interval] {
		errs = append(errs, fmt.Sprintf("invalid TRADING_INTERVAL %q", c.Interval))
	}
	if c.Quantity <= 0 {
		errs = append(errs, "TRADING_QUANTITY must be > 0")
	}
	for name, v := range map[string]int{
		"VOLATILITY_WINDOW":         c.VolatilityWindow,
		"BB_WINDOW":                 c.BBWindow,
		"KELTNER_WINDOW":            c.KeltnerWindow,
		"ADX_PERIOD":                c.ADXPeriod,
		"RSI_PERIOD":                c.RSIPeriod,
		"MACD_FAST":                 c.MACDFast,
		"MACD_SLOW":                 c.MACDSlow,
		"MACD_SIGNAL":               c.MACDSignal,
		"LOOKBACK_DAYS":             c.LookbackDays,
		"ANALYSIS_INTERVAL_MINUTES": c.AnalysisIntervalMinutes,
		"MAX_TRADES_PER_DAY":        c.MaxTradesPerDay,
		"MAX_CONSECUTIVE_FAILURES":  c.MaxConsecutiveFailures,
		"RETRY_DELAY_SECONDS":       c.RetryDelaySeconds,
	} {
		if v <= 0 {
			errs = append(errs, name+" must be > 0")
		}
	}
	if c.MACDFast >= c.MACDSlow {
		errs = append(errs, "MACD_FAST must be < MACD_SLOW")
	}
	switch c.JournalBackend {
	case "csv", "sqlite":
	default:
		errs = append(errs, fmt.Sprintf("invalid JOURNAL_BACKEND %q (want csv or sqlite)", c.JournalBackend))
	}
	if len(errs) > 0 {
		sort.Strings(errs)
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return nil
}

// AnalysisInterval returns the loop cadence as a duration.
func (c *Config) AnalysisInterval() time.Duration {
	return time.Duration(c.AnalysisIntervalMinutes) * time.Minute
}

// RetryDelay returns the short failure backoff as a duration.
func (c *Config) RetryDelay() time.Duration {
	return time.Duration(c.RetryDelaySeconds) * time.Second
}

func requireEnv(key string, errs *[]string) string {
	v := os.Getenv(key)
	if v == "" {
		*errs = append(*errs, "required env var "+key+" not set")
	}
	return v
}

func getEnv(key, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}

func getEnvInt(key string, fallback int, errs *[]string) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		*errs = append(*errs, fmt.Sprintf("env var %s: invalid integer %q", key, v))
		return fallback
	}
	return n
}

func getEnvFloat(key string, fallback float64, errs *[]string) float64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		*errs = append(*errs, fmt.Sprintf("env var %s: invalid number %q", key, v))
		return fallback
	}
	return f
}
