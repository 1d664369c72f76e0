package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	t.Run("defaults in test environment", func(t *testing.T) {
		t.Setenv("ENVIRONMENT", "test")
		t.Setenv("JWT_EXPIRE_MINUTES", "")
		t.Setenv("STARTING_BALANCE", "")

		cfg, err := load()
		require.NoError(t, err)

		assert.Equal(t, "test", cfg.Environment)
		assert.Equal(t, 120*time.Minute, cfg.JWTExpire)
		assert.Equal(t, int64(1000), cfg.StartingBalance)
		assert.Equal(t, int64(10000), cfg.AdminStartingBalance)
		assert.True(t, cfg.RateLimitFailOpen)
	})

	t.Run("overrides from environment", func(t *testing.T) {
		t.Setenv("ENVIRONMENT", "test")
		t.Setenv("JWT_EXPIRE_MINUTES", "15")
		t.Setenv("STARTING_BALANCE", "500")
		t.Setenv("TELEGRAM_ADMIN_IDS", "1, 2,bogus,,3")
		t.Setenv("RATE_LIMIT_FAIL_OPEN", "false")
		t.Setenv("CORS_ORIGINS", "https://a.example, https://b.example")

		cfg, err := load()
		require.NoError(t, err)

		assert.Equal(t, 15*time.Minute, cfg.JWTExpire)
		assert.Equal(t, int64(500), cfg.StartingBalance)
		assert.Equal(t, []int64{1, 2, 3}, cfg.TelegramAdminIDs)
		assert.False(t, cfg.RateLimitFailOpen)
		assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORSOrigins)
		assert.True(t, cfg.IsAdminTelegramID(2))
		assert.False(t, cfg.IsAdminTelegramID(4))
	})

	t.Run("required variables outside test", func(t *testing.T) {
		t.Setenv("ENVIRONMENT", "production")
		t.Setenv("DATABASE_URL", "")

		_, err := load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "DATABASE_URL")
	})

	t.Run("jwt secret required", func(t *testing.T) {
		t.Setenv("ENVIRONMENT", "production")
		t.Setenv("DATABASE_URL", "postgres://localhost:5432")
		t.Setenv("BOT_TOKEN", "token")
		t.Setenv("JWT_SECRET", "")

		_, err := load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "JWT_SECRET")
	})
}

func TestSetTestConfig(t *testing.T) {
	defer ResetConfig()

	testCfg := NewTestConfig()
	testCfg.StartingBalance = 42
	SetTestConfig(testCfg)

	assert.Same(t, testCfg, Get())
	assert.Equal(t, int64(42), Get().StartingBalance)
}
