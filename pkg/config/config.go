package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata" // SCAN_TIMEZONE without system zoneinfo

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
// ⭐ SSOT: 모든 환경변수는 여기서만 읽음
type Config struct {
	// Server
	Port        string
	Env         string // development, staging, production
	CORSOrigins []string

	// Database (optional: empty URL runs in file/env-only mode)
	Database DatabaseConfig

	// Redis
	Redis RedisConfig

	// Bar retrieval
	Source SourceConfig

	// Scan
	Scan ScanConfig

	// Report sinks
	Report ReportConfig

	// Notifiers
	LINE     LINEConfig
	Telegram TelegramConfig

	// Messaging / time series
	NATS   NATSConfig
	Influx InfluxConfig

	// Logging
	LogLevel  string
	LogFormat string

	// Monitoring
	MetricsEnabled bool
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
	Enabled  bool
}

// DatabaseConfig holds PostgreSQL configuration
type DatabaseConfig struct {
	URL string

	// Connection Pool
	MaxConns        int
	MinConns        int
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
}

// Enabled reports whether a Postgres URL is configured
func (d DatabaseConfig) Enabled() bool {
	return d.URL != ""
}

// SourceConfig selects and configures the bar retrieval source
type SourceConfig struct {
	Name            string // yahoo | twse
	YahooBaseURL    string
	YahooSuffix     string // .TW, .TWO
	TWSEBaseURL     string
	ConstituentsURL string
	Timeout         time.Duration
}

// ScanConfig holds orchestration settings (thresholds live in strategyconfig)
type ScanConfig struct {
	Stocks       []string // fallback list when no DB is configured
	LookbackDays int
	Spacing      time.Duration
	Cron         string
	Timezone     string
	StrategyFile string
}

// ReportConfig holds local sink destinations (empty = disabled)
type ReportConfig struct {
	CSVPath    string
	SQLitePath string
}

// LINEConfig holds LINE Messaging API push credentials
type LINEConfig struct {
	ChannelAccessToken string
	UserID             string
	BaseURL            string
}

// Enabled reports whether push messages can be sent
func (c LINEConfig) Enabled() bool {
	return c.ChannelAccessToken != "" && c.UserID != ""
}

// TelegramConfig holds Telegram bot credentials
type TelegramConfig struct {
	BotToken string
	ChatID   string
	BaseURL  string
}

// Enabled reports whether messages can be sent
func (c TelegramConfig) Enabled() bool {
	return c.BotToken != "" && c.ChatID != ""
}

// NATSConfig holds the report publisher settings
type NATSConfig struct {
	URL     string
	Subject string
}

// InfluxConfig holds the signal time-series sink settings
type InfluxConfig struct {
	URL    string
	Token  string
	Org    string
	Bucket string
}

// Load reads configuration from environment variables
// ⭐ SSOT: 이 함수만 os.Getenv()를 호출함
func Load() (*Config, error) {
	// Try multiple paths for .env file
	loadEnvFile()

	cfg := &Config{
		// Server
		Port:        getEnv("PORT", "8089"),
		Env:         getEnv("ENV", "development"),
		CORSOrigins: getEnvAsList("CORS_ORIGINS", []string{"*"}),

		// Database
		Database: DatabaseConfig{
			URL:             getEnv("DATABASE_URL", ""),
			MaxConns:        getEnvAsInt("DB_MAX_CONNS", 10),
			MinConns:        getEnvAsInt("DB_MIN_CONNS", 1),
			MaxConnLifetime: getEnvAsDuration("DB_MAX_CONN_LIFETIME", "1h"),
			MaxConnIdleTime: getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", "30m"),
		},

		// Redis
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
			Enabled:  getEnvAsBool("REDIS_ENABLED", false),
		},

		Source: SourceConfig{
			Name:            strings.ToLower(getEnv("BAR_SOURCE", "yahoo")),
			YahooBaseURL:    getEnv("YAHOO_BASE_URL", "https://query1.finance.yahoo.com"),
			YahooSuffix:     getEnv("YAHOO_SYMBOL_SUFFIX", ".TW"),
			TWSEBaseURL:     getEnv("TWSE_BASE_URL", "https://www.twse.com.tw"),
			ConstituentsURL: getEnv("CONSTITUENTS_URL", ""),
			Timeout:         getEnvAsDuration("SOURCE_TIMEOUT", "15s"),
		},

		Scan: ScanConfig{
			Stocks:       getEnvAsList("SCAN_STOCKS", nil),
			LookbackDays: getEnvAsInt("SCAN_LOOKBACK_DAYS", 365),
			Spacing:      getEnvAsDuration("SCAN_SPACING", "1s"),
			Cron:         getEnv("SCAN_CRON", "0 40 13 * * 1-5"),
			Timezone:     getEnv("SCAN_TIMEZONE", "Asia/Taipei"),
			StrategyFile: getEnv("STRATEGY_FILE", ""),
		},

		Report: ReportConfig{
			CSVPath:    getEnv("REPORT_CSV_PATH", ""),
			SQLitePath: getEnv("REPORT_SQLITE_PATH", ""),
		},

		LINE: LINEConfig{
			ChannelAccessToken: getEnv("LINE_CHANNEL_ACCESS_TOKEN", ""),
			UserID:             getEnv("LINE_USER_ID", ""),
			BaseURL:            getEnv("LINE_BASE_URL", "https://api.line.me"),
		},

		Telegram: TelegramConfig{
			BotToken: getEnv("TELEGRAM_BOT_TOKEN", ""),
			ChatID:   getEnv("TELEGRAM_CHAT_ID", ""),
			BaseURL:  getEnv("TELEGRAM_BASE_URL", "https://api.telegram.org"),
		},

		NATS: NATSConfig{
			URL:     getEnv("NATS_URL", ""),
			Subject: getEnv("NATS_SUBJECT", "twscan.reports"),
		},

		Influx: InfluxConfig{
			URL:    getEnv("INFLUX_URL", ""),
			Token:  getEnv("INFLUX_TOKEN", ""),
			Org:    getEnv("INFLUX_ORG", ""),
			Bucket: getEnv("INFLUX_BUCKET", "twscan"),
		},

		// Logging
		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "console"),

		// Monitoring
		MetricsEnabled: getEnvAsBool("METRICS_ENABLED", true),
	}

	// Validate configuration
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// validate checks if configuration values are consistent
func (c *Config) validate() error {
	// Validate environment
	if c.Env != "development" && c.Env != "staging" && c.Env != "production" {
		return fmt.Errorf("ENV must be one of: development, staging, production")
	}

	if c.Source.Name != "yahoo" && c.Source.Name != "twse" {
		return fmt.Errorf("BAR_SOURCE must be one of: yahoo, twse")
	}

	if c.Scan.LookbackDays <= 0 {
		return fmt.Errorf("SCAN_LOOKBACK_DAYS must be > 0")
	}

	if c.Scan.Spacing < 0 {
		return fmt.Errorf("SCAN_SPACING must not be negative")
	}

	if _, err := time.LoadLocation(c.Scan.Timezone); err != nil {
		return fmt.Errorf("SCAN_TIMEZONE: %w", err)
	}

	return nil
}

// Location returns the scan time zone (validated by Load)
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Scan.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// Helper functions (private, only used within this file)

// loadEnvFile tries to load .env from multiple locations
func loadEnvFile() {
	// Try paths in order of priority
	paths := []string{
		".env", // Current directory
	}

	// Also try relative to executable
	if exe, err := os.Executable(); err == nil {
		exeDir := filepath.Dir(exe)
		paths = append(paths,
			filepath.Join(exeDir, ".env"),
			filepath.Join(exeDir, "..", ".env"),
		)
	}

	for _, path := range paths {
		if _, err := os.Stat(path); err == nil {
			_ = godotenv.Load(path)
			return
		}
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
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

func getEnvAsDuration(key string, defaultValue string) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		valueStr = defaultValue
	}

	duration, err := time.ParseDuration(valueStr)
	if err != nil {
		// Fallback to default
		duration, _ = time.ParseDuration(defaultValue)
	}

	return duration
}

// getEnvAsList splits a comma separated value, dropping blanks
func getEnvAsList(key string, defaultValue []string) []string {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	var out []string
	for _, part := range strings.Split(valueStr, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
