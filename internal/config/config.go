// Package config loads the bridge's tunable parameters through
// github.com/spf13/viper's SetDefault-then-override pattern: defaults are
// registered first, then overridden by an optional YAML file and
// UPS_-prefixed environment variables. The root package's CreateAndServe
// receives the typed *Config and passes the community, queue size,
// dynamic-update and init-retry periods and debug-status-log settings on to
// the components it builds; the engine and scheduler take their timeouts,
// cooldowns, step bound, heartbeat defaults, burst size and length caps
// from internal/constants, so those keys are loaded here but not applied.
// Nothing outside this package reads viper directly.
package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds every tunable bridge parameter.
type Config struct {
	Community string `mapstructure:"community"`

	ConnectTimeoutMs int    `mapstructure:"connect_timeout_ms"`
	WifiSSID         string `mapstructure:"wifi_ssid"`
	WifiPassword     string `mapstructure:"wifi_password"`

	DynamicUpdatePeriodS int `mapstructure:"dynamic_update_period_s"`
	InitRetryPeriodS     int `mapstructure:"init_retry_period_s"`
	EnqueueBurstPerTick  int `mapstructure:"enqueue_burst_per_tick"`

	QueueSize      int `mapstructure:"queue_size"`
	MaxExpectedLen int `mapstructure:"max_expected_len"`
	MaxEndingLen   int `mapstructure:"max_ending_len"`

	TxTimeoutMs        int `mapstructure:"tx_timeout_ms"`
	RetryCooldownMs    int `mapstructure:"retry_cooldown_ms"`
	MaxStepsPerTick    int `mapstructure:"max_steps_per_tick"`
	InterjobCooldownMs int `mapstructure:"interjob_cooldown_ms"`

	HeartbeatFailureThreshold int `mapstructure:"heartbeat_failure_threshold"`
	HeartbeatIntervalMs       int `mapstructure:"heartbeat_interval_ms"`

	DebugStatusLogEnabled  bool `mapstructure:"debug_status_log_enabled"`
	DebugStatusLogPeriodMs int  `mapstructure:"debug_status_log_period_ms"`
}

// DynamicUpdatePeriod returns the configured refresh interval as a Duration.
func (c *Config) DynamicUpdatePeriod() time.Duration {
	return time.Duration(c.DynamicUpdatePeriodS) * time.Second
}

// InitRetryPeriod returns the configured bootstrap-retry interval as a Duration.
func (c *Config) InitRetryPeriod() time.Duration {
	return time.Duration(c.InitRetryPeriodS) * time.Second
}

// TxTimeout returns the configured transmit timeout as a Duration.
func (c *Config) TxTimeout() time.Duration {
	return time.Duration(c.TxTimeoutMs) * time.Millisecond
}

// RetryCooldown returns the configured retry cooldown as a Duration.
func (c *Config) RetryCooldown() time.Duration {
	return time.Duration(c.RetryCooldownMs) * time.Millisecond
}

// InterjobCooldown returns the configured inter-job cooldown as a Duration.
func (c *Config) InterjobCooldown() time.Duration {
	return time.Duration(c.InterjobCooldownMs) * time.Millisecond
}

// HeartbeatInterval returns the configured heartbeat probe interval as a Duration.
func (c *Config) HeartbeatInterval() time.Duration {
	return time.Duration(c.HeartbeatIntervalMs) * time.Millisecond
}

// Load reads configuration from an optional "config.yaml" in the working
// directory, then UPS_-prefixed environment variables, layered on top of
// this package's documented defaults.
func Load() (*Config, error) {
	viper.SetDefault("community", "public")
	viper.SetDefault("connect_timeout_ms", 5000)
	viper.SetDefault("wifi_ssid", "")
	viper.SetDefault("wifi_password", "")
	viper.SetDefault("dynamic_update_period_s", 10)
	viper.SetDefault("init_retry_period_s", 5)
	viper.SetDefault("enqueue_burst_per_tick", 8)
	viper.SetDefault("queue_size", 32)
	viper.SetDefault("max_expected_len", 256)
	viper.SetDefault("max_ending_len", 8)
	viper.SetDefault("tx_timeout_ms", 250)
	viper.SetDefault("retry_cooldown_ms", 25)
	viper.SetDefault("max_steps_per_tick", 8)
	viper.SetDefault("interjob_cooldown_ms", 0)
	viper.SetDefault("heartbeat_failure_threshold", 5)
	viper.SetDefault("heartbeat_interval_ms", 1000)
	viper.SetDefault("debug_status_log_enabled", false)
	viper.SetDefault("debug_status_log_period_ms", 5000)

	viper.SetEnvPrefix("ups")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	viper.AddConfigPath(".")
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
