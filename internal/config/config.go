package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config はアプリケーション全体の設定を保持する。
// 環境変数から起動時に1回読み込み、イミュータブルとして扱う。
type Config struct {
	// Telegram
	TelegramToken string
	PollTimeout   int
	MaxConcurrent int

	// Completion provider
	ProviderAPIKey      string
	ProviderBaseURL     string
	Model               string
	ProviderTimeout     time.Duration
	ProviderAPIInterval time.Duration
	ChatTemperature     float64
	SummaryTemperature  float64

	// Database
	DatabaseURL string

	// Conversation
	MaxHistory     int
	SummaryTrigger int

	// Freemium
	FreeDailyLimit   int
	SubscriptionDays int

	// Greeting
	// ShortGapは現在の挨拶分岐では使用しない。3段階挨拶を導入するまで
	// 設定としてのみ保持する。
	ShortGap time.Duration
	LongGap  time.Duration

	// Payments
	PaymentProviderToken   string
	SubscriptionPriceMinor int
	SubscriptionCurrency   string

	// Ops server
	ServerPort string
}

// Load は環境変数からConfigを読み込む。
// カレントディレクトリに.envがあれば先に読み込む（設定済みの環境変数が優先される）。
// 必須環境変数が未設定の場合はエラーを返す。
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{}

	// Required fields
	var missing []string

	cfg.TelegramToken = os.Getenv("TELEGRAM_TOKEN")
	if cfg.TelegramToken == "" {
		missing = append(missing, "TELEGRAM_TOKEN")
	}

	cfg.ProviderAPIKey = os.Getenv("OPENAI_API_KEY")
	if cfg.ProviderAPIKey == "" {
		missing = append(missing, "OPENAI_API_KEY")
	}

	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	if cfg.DatabaseURL == "" {
		missing = append(missing, "DATABASE_URL")
	}

	if len(missing) > 0 {
		return nil, fmt.Errorf("required environment variables are not set: %v", missing)
	}

	// Optional fields with defaults
	cfg.PollTimeout = getEnvInt("POLL_TIMEOUT", 30)
	cfg.MaxConcurrent = getEnvInt("MAX_CONCURRENT", 10)
	cfg.ProviderBaseURL = getEnvString("OPENAI_BASE_URL", "https://api.openai.com/v1")
	cfg.Model = getEnvString("OPENAI_MODEL", "gpt-4o-mini")
	cfg.ProviderTimeout = getEnvDuration("PROVIDER_TIMEOUT", 60*time.Second)
	cfg.ProviderAPIInterval = getEnvDuration("PROVIDER_API_INTERVAL", 100*time.Millisecond)
	cfg.ChatTemperature = getEnvFloat("CHAT_TEMPERATURE", 0.6)
	cfg.SummaryTemperature = getEnvFloat("SUMMARY_TEMPERATURE", 0.4)
	cfg.MaxHistory = getEnvInt("MAX_HISTORY", 30)
	cfg.SummaryTrigger = getEnvInt("SUMMARY_TRIGGER", 10)
	cfg.FreeDailyLimit = getEnvInt("FREE_DAILY_LIMIT", 20)
	cfg.SubscriptionDays = getEnvInt("SUBSCRIPTION_DAYS", 30)
	cfg.ShortGap = getEnvDuration("SHORT_GAP", 3*24*time.Hour)
	cfg.LongGap = getEnvDuration("LONG_GAP", 14*24*time.Hour)
	cfg.PaymentProviderToken = getEnvString("PAYMENT_PROVIDER_TOKEN", "")
	cfg.SubscriptionPriceMinor = getEnvInt("SUBSCRIPTION_PRICE_MINOR", 99900)
	cfg.SubscriptionCurrency = getEnvString("SUBSCRIPTION_CURRENCY", "RUB")
	cfg.ServerPort = getEnvString("SERVER_PORT", "8080")

	return cfg, nil
}

func getEnvString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return i
}

func getEnvFloat(key string, defaultVal float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return defaultVal
	}
	return f
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return defaultVal
	}
	return d
}
