package config_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nowaiting/clinic-console/pkg/config"
)

func TestLoad(t *testing.T) {
	t.Run("uses defaults when environment is empty", func(t *testing.T) {
		cfg, err := config.Load()
		require.NoError(t, err)

		assert.Equal(t, "0.0.0.0", cfg.Server.Host)
		assert.Equal(t, 8080, cfg.Server.Port)
		assert.Equal(t, "clinic_console", cfg.Database.Database)
		assert.Equal(t, 10*time.Second, cfg.Ledger.Timeout)
		assert.False(t, cfg.OTEL.Enabled)
	})

	t.Run("reads overrides from environment", func(t *testing.T) {
		t.Setenv("SERVER_PORT", "9999")
		t.Setenv("LEDGER_API_URL", "http://ledger.internal/api")
		t.Setenv("LEDGER_API_TIMEOUT_SECONDS", "3")
		t.Setenv("OTEL_ENABLED", "true")

		cfg, err := config.Load()
		require.NoError(t, err)

		assert.Equal(t, 9999, cfg.Server.Port)
		assert.Equal(t, "http://ledger.internal/api", cfg.Ledger.BaseURL)
		assert.Equal(t, 3*time.Second, cfg.Ledger.Timeout)
		assert.True(t, cfg.OTEL.Enabled)
	})

	t.Run("builds connection strings", func(t *testing.T) {
		cfg, err := config.Load()
		require.NoError(t, err)

		assert.Contains(t, cfg.Database.DatabaseDSN(), "dbname=clinic_console")
		assert.Equal(t, "localhost:6379", cfg.Redis.RedisAddr())
	})
}
