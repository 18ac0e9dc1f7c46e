package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config はアプリケーション全体の設定を保持する。
// 環境変数から起動時に1回読み込み、イミュータブルとして扱う。
type Config struct {
	// Database
	DatabaseURL string

	// Stripe
	StripeSecretKey     string
	StripeWebhookSecret string

	// Checkout
	Currency          string
	DefaultSuccessURL string
	DefaultCancelURL  string

	// Rate Limit
	RateLimitGeneral  int
	RateLimitCheckout int

	// Settlement
	SettlementRetryInterval  time.Duration
	SettlementMaxAttempts    int
	SettlementRetryBatchSize int
	JournalRetentionDays     int

	// Server
	ServerPort string
	BaseURL    string

	// Frontend
	FrontendBaseURL string

	// Cookie
	CookieSecure bool
	CookieDomain string

	// CORS
	CORSAllowedOrigin string
}

// Load は環境変数からConfigを読み込む。
// 必須環境変数が未設定の場合はエラーを返す。
func Load() (*Config, error) {
	cfg := &Config{}

	// Required fields
	var missing []string

	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	if cfg.DatabaseURL == "" {
		missing = append(missing, "DATABASE_URL")
	}

	cfg.StripeSecretKey = os.Getenv("STRIPE_SECRET_KEY")
	if cfg.StripeSecretKey == "" {
		missing = append(missing, "STRIPE_SECRET_KEY")
	}

	cfg.StripeWebhookSecret = os.Getenv("STRIPE_WEBHOOK_SECRET")
	if cfg.StripeWebhookSecret == "" {
		missing = append(missing, "STRIPE_WEBHOOK_SECRET")
	}

	cfg.FrontendBaseURL = os.Getenv("FRONTEND_BASE_URL")
	if cfg.FrontendBaseURL == "" {
		missing = append(missing, "FRONTEND_BASE_URL")
	}

	if len(missing) > 0 {
		return nil, fmt.Errorf("required environment variables are not set: %v", missing)
	}

	// Optional fields with defaults
	frontend := strings.TrimSuffix(cfg.FrontendBaseURL, "/")
	cfg.Currency = getEnvString("CHECKOUT_CURRENCY", "usd")
	cfg.DefaultSuccessURL = getEnvString("CHECKOUT_SUCCESS_URL", frontend+"/checkout/success?session_id={CHECKOUT_SESSION_ID}")
	cfg.DefaultCancelURL = getEnvString("CHECKOUT_CANCEL_URL", frontend+"/cart")
	cfg.RateLimitGeneral = getEnvInt("RATE_LIMIT_GENERAL", 120)
	cfg.RateLimitCheckout = getEnvInt("RATE_LIMIT_CHECKOUT", 10)
	cfg.SettlementRetryInterval = getEnvDuration("SETTLEMENT_RETRY_INTERVAL", time.Minute)
	cfg.SettlementMaxAttempts = getEnvInt("SETTLEMENT_MAX_ATTEMPTS", 10)
	cfg.SettlementRetryBatchSize = getEnvInt("SETTLEMENT_RETRY_BATCH_SIZE", 50)
	cfg.JournalRetentionDays = getEnvInt("JOURNAL_RETENTION_DAYS", 30)
	cfg.ServerPort = getEnvString("SERVER_PORT", "8080")
	cfg.BaseURL = getEnvString("BASE_URL", "http://localhost:"+cfg.ServerPort)
	cfg.CookieSecure = strings.HasPrefix(cfg.BaseURL, "https://")
	cfg.CookieDomain = getEnvString("COOKIE_DOMAIN", "")
	cfg.CORSAllowedOrigin = getEnvString("CORS_ALLOWED_ORIGIN", cfg.FrontendBaseURL)

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
