package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds application configuration
type Config struct {
	Port     string
	DBConn   string
	LogLevel string
	Timezone string

	JWTSecret       string
	ExportTokenHash string
	AppBaseURL      string

	// Mercado Pago
	MPBaseURL       string
	MPAccessToken   string
	MPPublicKey     string
	MPWebhookSecret string
	MPTimeout       time.Duration
	NotificationURL string
	Currency        string

	// SMTP, optional: emails are skipped when SMTPHost is empty
	SMTPHost     string
	SMTPPort     string
	SMTPUsername string
	SMTPPassword string
	SenderEmail  string

	SweepSchedule        string
	BillingCycleSchedule string
	BillingDueDay        int
}

// NewConfig loads configuration from environment variables
func NewConfig() (*Config, error) {
	timeout, err := getEnvDuration("MP_TIMEOUT", 10*time.Second)
	if err != nil {
		return nil, err
	}
	dueDay, err := getEnvInt("BILLING_DUE_DAY", 10)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Port:     getEnv("PORT", "8080"),
		DBConn:   getEnv("DB_CONN", "host=localhost port=5436 user=test password=test dbname=studio sslmode=disable"),
		LogLevel: getEnv("LOG_LEVEL", "INFO"),
		Timezone: getEnv("TIMEZONE", "America/Sao_Paulo"),

		JWTSecret:       getEnv("JWT_SECRET", "secret"),
		ExportTokenHash: getEnv("EXPORT_TOKEN_HASH", ""),
		AppBaseURL:      getEnv("APP_BASE_URL", "http://localhost:8080"),

		MPBaseURL:       getEnv("MP_BASE_URL", "https://api.mercadopago.com"),
		MPAccessToken:   getEnv("MP_ACCESS_TOKEN", ""),
		MPPublicKey:     getEnv("MP_PUBLIC_KEY", ""),
		MPWebhookSecret: getEnv("MP_WEBHOOK_SECRET", ""),
		MPTimeout:       timeout,
		NotificationURL: getEnv("NOTIFICATION_URL", ""),
		Currency:        getEnv("CURRENCY", "BRL"),

		SMTPHost:     getEnv("SMTP_HOST", ""),
		SMTPPort:     getEnv("SMTP_PORT", "587"),
		SMTPUsername: getEnv("SMTP_USERNAME", ""),
		SMTPPassword: getEnv("SMTP_PASSWORD", ""),
		SenderEmail:  getEnv("SENDER_EMAIL", "financeiro@localhost"),

		SweepSchedule:        getEnv("SWEEP_SCHEDULE", "5 0 * * *"),
		BillingCycleSchedule: getEnv("BILLING_CYCLE_SCHEDULE", ""),
		BillingDueDay:        dueDay,
	}

	if cfg.DBConn == "" {
		return nil, fmt.Errorf("DB_CONN is required")
	}
	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}
	if cfg.MPTimeout <= 0 {
		return nil, fmt.Errorf("MP_TIMEOUT must be positive")
	}
	if cfg.BillingDueDay < 1 || cfg.BillingDueDay > 31 {
		return nil, fmt.Errorf("BILLING_DUE_DAY must be between 1 and 31, got %d", cfg.BillingDueDay)
	}
	if _, err := cfg.Location(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Location resolves the configured time zone used to decide "today"
func (c *Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid TIMEZONE %q: %w", c.Timezone, err)
	}
	return loc, nil
}

// SMTPEnabled reports whether outgoing email is configured
func (c *Config) SMTPEnabled() bool {
	return c.SMTPHost != ""
}

func getEnv(key, defaultVal string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) (int, error) {
	value, exists := os.LookupEnv(key)
	if !exists || value == "" {
		return defaultVal, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer: %w", key, err)
	}
	return n, nil
}

func getEnvDuration(key string, defaultVal time.Duration) (time.Duration, error) {
	value, exists := os.LookupEnv(key)
	if !exists || value == "" {
		return defaultVal, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("%s must be a duration: %w", key, err)
	}
	return d, nil
}
