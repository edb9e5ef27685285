package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "sqlite3", cfg.Database.Driver)
	assert.Equal(t, 25, cfg.Database.MaxOpenConns)
	assert.Equal(t, 5*time.Second, cfg.Database.LockTimeout)
	assert.Equal(t, "Asia/Dubai", cfg.Settings.Timezone)
	assert.Equal(t, "ledger_events", cfg.Broker.Exchange)
	assert.False(t, cfg.Cache.Enabled())
	assert.False(t, cfg.Formance.Enabled())
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("DATABASE_DRIVER", "pgx")
	t.Setenv("DB_BUSY_TIMEOUT", "750ms")
	t.Setenv("DISPATCH_BATCH_SIZE", "7")
	t.Setenv("REDIS_ADDR", "localhost:6379")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "pgx", cfg.Database.Driver)
	assert.Equal(t, 750*time.Millisecond, cfg.Database.LockTimeout)
	assert.Equal(t, 7, cfg.Dispatcher.BatchSize)
	assert.True(t, cfg.Cache.Enabled())
}

func TestLoadRejectsBadValues(t *testing.T) {
	t.Setenv("DISPATCH_POLL_INTERVAL", "soon")
	_, err := Load()
	assert.Error(t, err)
}

func TestLoadRejectsUnknownTimezone(t *testing.T) {
	t.Setenv("LEDGER_TIMEZONE", "Mars/Olympus")
	_, err := Load()
	assert.Error(t, err)
}
