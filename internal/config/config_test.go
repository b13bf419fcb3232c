package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestLoadDefaults(t *testing.T) {
	chdir(t, t.TempDir())

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.AppPort)
	assert.Equal(t, "sqlite", cfg.DatabaseDriver)
	assert.Equal(t, 15*time.Minute, cfg.CheckoutTTL)
	assert.Equal(t, 24*time.Hour, cfg.SessionTTL)
	assert.Equal(t, time.Minute, cfg.ReaperInterval)
	assert.Equal(t, 10*time.Second, cfg.PayPalTimeout)
	assert.Empty(t, cfg.RabbitMQURL)
	assert.Empty(t, cfg.RedisAddr)
}

func TestLoadFromEnvironment(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("APP_PORT", ":9090")
	t.Setenv("DATABASE_DRIVER", "postgres")
	t.Setenv("CHECKOUT_TTL", "30m")
	t.Setenv("REDIS_ADDR", "localhost:6379")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, ":9090", cfg.AppPort)
	assert.Equal(t, "postgres", cfg.DatabaseDriver)
	assert.Equal(t, 30*time.Minute, cfg.CheckoutTTL)
	assert.Equal(t, "localhost:6379", cfg.RedisAddr)
}

func TestLoadRejectsBadValues(t *testing.T) {
	chdir(t, t.TempDir())

	t.Setenv("DATABASE_DRIVER", "mysql")
	_, err := Load()
	assert.ErrorContains(t, err, "DATABASE_DRIVER")

	t.Setenv("DATABASE_DRIVER", "sqlite")
	t.Setenv("CHECKOUT_TTL", "0s")
	_, err = Load()
	assert.ErrorContains(t, err, "CHECKOUT_TTL")
}

func TestZeroReaperIntervalDisables(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("REAPER_INTERVAL", "0s")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Zero(t, cfg.ReaperInterval)
}

func TestNewLogger(t *testing.T) {
	cfg := &Config{LogLevel: "debug"}
	logger, err := cfg.NewLogger()
	require.NoError(t, err)
	assert.True(t, logger.Core().Enabled(zapcore.DebugLevel))

	cfg.LogLevel = "loud"
	_, err = cfg.NewLogger()
	assert.Error(t, err)
}

// chdir mirrors testing.T.Chdir (Go 1.24+) for older toolchains.
func chdir(t *testing.T, dir string) {
	t.Helper()
	prev, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = os.Chdir(prev) })
}
