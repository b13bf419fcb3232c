// Package config loads runtime settings from the environment and an optional .env file.
package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds every runtime setting of the service.
type Config struct {
	AppPort string

	DatabaseDriver string
	DatabaseDSN    string

	JWTSecret  string
	SessionTTL time.Duration

	// Empty disables the dependency.
	RabbitMQURL string
	RedisAddr   string

	CheckoutTTL time.Duration
	// Zero disables the background reaper.
	ReaperInterval time.Duration

	PayPalAPIBase      string
	PayPalClientID     string
	PayPalClientSecret string
	PayPalTimeout      time.Duration

	StorefrontOrigin string
	LogLevel         string
}

var defaults = map[string]interface{}{
	"APP_PORT":             ":8080",
	"DATABASE_DRIVER":      "sqlite",
	"DATABASE_DSN":         "toko.db",
	"JWT_SECRET":           "supersecretjwtkey",
	"SESSION_TTL":          "24h",
	"RABBITMQ_URL":         "",
	"REDIS_ADDR":           "",
	"CHECKOUT_TTL":         "15m",
	"REAPER_INTERVAL":      "1m",
	"PAYPAL_API_BASE":      "https://api-m.sandbox.paypal.com",
	"PAYPAL_CLIENT_ID":     "",
	"PAYPAL_CLIENT_SECRET": "",
	"PAYPAL_TIMEOUT":       "10s",
	"STOREFRONT_ORIGIN":    "http://localhost:3000",
	"LOG_LEVEL":            "info",
}

// Load reads .env when present, then the environment, then the defaults.
func Load() (*Config, error) {
	// A missing .env is normal outside development.
	_ = godotenv.Load()

	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	v.AutomaticEnv()

	cfg := &Config{
		AppPort:            v.GetString("APP_PORT"),
		DatabaseDriver:     v.GetString("DATABASE_DRIVER"),
		DatabaseDSN:        v.GetString("DATABASE_DSN"),
		JWTSecret:          v.GetString("JWT_SECRET"),
		SessionTTL:         v.GetDuration("SESSION_TTL"),
		RabbitMQURL:        v.GetString("RABBITMQ_URL"),
		RedisAddr:          v.GetString("REDIS_ADDR"),
		CheckoutTTL:        v.GetDuration("CHECKOUT_TTL"),
		ReaperInterval:     v.GetDuration("REAPER_INTERVAL"),
		PayPalAPIBase:      v.GetString("PAYPAL_API_BASE"),
		PayPalClientID:     v.GetString("PAYPAL_CLIENT_ID"),
		PayPalClientSecret: v.GetString("PAYPAL_CLIENT_SECRET"),
		PayPalTimeout:      v.GetDuration("PAYPAL_TIMEOUT"),
		StorefrontOrigin:   v.GetString("STOREFRONT_ORIGIN"),
		LogLevel:           v.GetString("LOG_LEVEL"),
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.DatabaseDriver {
	case "sqlite", "postgres":
	default:
		return fmt.Errorf("DATABASE_DRIVER must be sqlite or postgres, got %q", c.DatabaseDriver)
	}
	if c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}
	for name, d := range map[string]time.Duration{
		"SESSION_TTL":    c.SessionTTL,
		"CHECKOUT_TTL":   c.CheckoutTTL,
		"PAYPAL_TIMEOUT": c.PayPalTimeout,
	} {
		if d <= 0 {
			return fmt.Errorf("%s must be a positive duration", name)
		}
	}
	if c.ReaperInterval < 0 {
		return fmt.Errorf("REAPER_INTERVAL must not be negative")
	}
	return nil
}

// NewLogger builds a JSON production logger at the configured level.
func (c *Config) NewLogger() (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(c.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("invalid LOG_LEVEL: %w", err)
	}
	zc := zap.NewProductionConfig()
	zc.Level = zap.NewAtomicLevelAt(level)
	return zc.Build()
}
