package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromEnv(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		t.Setenv("FLOCK_ENV", "")
		t.Setenv("KAFKA_BROKERS", "")
		cfg, err := FromEnv()
		require.NoError(t, err)
		assert.Equal(t, ":8080", cfg.Server.Addr)
		assert.Equal(t, 15*time.Minute, cfg.Absence.PollInterval)
		assert.Equal(t, 1, cfg.Absence.LookbackDays)
		assert.Empty(t, cfg.Kafka.Brokers)
		assert.Empty(t, cfg.Database.URL)
	})

	t.Run("overrides", func(t *testing.T) {
		t.Setenv("FLOCK_ADDR", ":9090")
		t.Setenv("KAFKA_BROKERS", "a:9092, b:9092")
		t.Setenv("ABSENCE_POLL_INTERVAL", "1m")
		t.Setenv("ABSENCE_WORKER_ENABLED", "false")
		t.Setenv("ABSENCE_LOOKBACK_DAYS", "3")
		cfg, err := FromEnv()
		require.NoError(t, err)
		assert.Equal(t, ":9090", cfg.Server.Addr)
		assert.Equal(t, []string{"a:9092", "b:9092"}, cfg.Kafka.Brokers)
		assert.Equal(t, time.Minute, cfg.Absence.PollInterval)
		assert.False(t, cfg.Absence.Enabled)
		assert.Equal(t, 3, cfg.Absence.LookbackDays)
	})

	t.Run("negative lookback is rejected", func(t *testing.T) {
		t.Setenv("ABSENCE_LOOKBACK_DAYS", "-1")
		_, err := FromEnv()
		require.Error(t, err)
	})

	t.Run("production requires a signing key", func(t *testing.T) {
		t.Setenv("FLOCK_ENV", "production")
		t.Setenv("JWT_SIGNING_KEY", "")
		_, err := FromEnv()
		require.Error(t, err)
	})
}
