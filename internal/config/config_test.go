package config

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	os.Unsetenv("UPS_COMMUNITY")
	os.Unsetenv("UPS_TX_TIMEOUT_MS")
	os.Unsetenv("UPS_HEARTBEAT_FAILURE_THRESHOLD")

	cfg, err := Load()

	assert.NoError(t, err)
	assert.NotNil(t, cfg)
	assert.Equal(t, "public", cfg.Community)
	assert.Equal(t, 32, cfg.QueueSize)
	assert.Equal(t, 256, cfg.MaxExpectedLen)
	assert.Equal(t, 250, cfg.TxTimeoutMs)
	assert.Equal(t, 25, cfg.RetryCooldownMs)
	assert.Equal(t, 8, cfg.MaxStepsPerTick)
	assert.Equal(t, 5, cfg.HeartbeatFailureThreshold)
	assert.Equal(t, 1000, cfg.HeartbeatIntervalMs)
	assert.Equal(t, 10, cfg.DynamicUpdatePeriodS)
	assert.Equal(t, 5, cfg.InitRetryPeriodS)
	assert.False(t, cfg.DebugStatusLogEnabled)
	assert.Equal(t, 5000, cfg.DebugStatusLogPeriodMs)
}

func TestLoadFromEnv(t *testing.T) {
	os.Setenv("UPS_COMMUNITY", "private")
	os.Setenv("UPS_TX_TIMEOUT_MS", "500")
	os.Setenv("UPS_HEARTBEAT_FAILURE_THRESHOLD", "3")

	defer func() {
		os.Unsetenv("UPS_COMMUNITY")
		os.Unsetenv("UPS_TX_TIMEOUT_MS")
		os.Unsetenv("UPS_HEARTBEAT_FAILURE_THRESHOLD")
	}()

	cfg, err := Load()

	assert.NoError(t, err)
	assert.Equal(t, "private", cfg.Community)
	assert.Equal(t, 500, cfg.TxTimeoutMs)
	assert.Equal(t, 3, cfg.HeartbeatFailureThreshold)
}

func TestDurationHelpersConvertUnits(t *testing.T) {
	cfg := &Config{
		DynamicUpdatePeriodS:      10,
		InitRetryPeriodS:          5,
		TxTimeoutMs:               250,
		RetryCooldownMs:           25,
		InterjobCooldownMs:        0,
		HeartbeatIntervalMs:       1000,
	}

	assert.Equal(t, "10s", cfg.DynamicUpdatePeriod().String())
	assert.Equal(t, "5s", cfg.InitRetryPeriod().String())
	assert.Equal(t, "250ms", cfg.TxTimeout().String())
	assert.Equal(t, "25ms", cfg.RetryCooldown().String())
	assert.Equal(t, "0s", cfg.InterjobCooldown().String())
	assert.Equal(t, "1s", cfg.HeartbeatInterval().String())
}
