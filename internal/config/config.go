package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"

	"github.com/hookflow/hookflow/internal/event"
	"github.com/hookflow/hookflow/internal/hook"
)

// Config represents the complete hookflow configuration
type Config struct {
	Kernel  KernelConfig  `mapstructure:"kernel"`
	Bus     BusConfig     `mapstructure:"bus"`
	Breaker BreakerConfig `mapstructure:"breaker"`
	Retry   RetryConfig   `mapstructure:"retry"`
	Cache   CacheConfig   `mapstructure:"cache"`
	Logging LoggingConfig `mapstructure:"logging"`
	Hooks   []HookDef     `mapstructure:"hooks"`
}

// KernelConfig controls event processing behavior
type KernelConfig struct {
	// Environment is matched against hook environment globs
	Environment string `mapstructure:"environment"`
	// SoftLatencyMs is the per-event latency target; exceeding it only logs a warning
	SoftLatencyMs int `mapstructure:"soft_latency_ms"`
}

// BusConfig controls the event bus queue and drain loop
type BusConfig struct {
	// QueueSize bounds the pending event queue; events beyond it are shed
	QueueSize int `mapstructure:"queue_size"`
	// BatchSize is how many events one drain tick delivers
	BatchSize int `mapstructure:"batch_size"`
	// DrainTickMs is the drain loop interval (in milliseconds)
	DrainTickMs int `mapstructure:"drain_tick_ms"`
	// HistorySize bounds the replayable event history ring
	HistorySize int `mapstructure:"history_size"`
}

// BreakerConfig controls per-hook circuit breakers
type BreakerConfig struct {
	// WindowSize is the number of outcomes in the sliding window
	WindowSize int `mapstructure:"window_size"`
	// Threshold is the failure rate (0-1) that trips the circuit
	Threshold float64 `mapstructure:"threshold"`
	// ResetTimeoutSec is how long an open circuit waits before probing (in seconds)
	ResetTimeoutSec int `mapstructure:"reset_timeout_sec"`
}

// RetryConfig controls the default retry policy for retryable failures
type RetryConfig struct {
	// MaxAttempts bounds total attempts per dispatch (first try included)
	MaxAttempts int `mapstructure:"max_attempts"`
	// DelayMs is the base backoff delay (in milliseconds)
	DelayMs int `mapstructure:"delay_ms"`
	// Backoff is the growth curve: "fixed", "linear", or "exponential"
	Backoff string `mapstructure:"backoff"`
	// MaxDelayMs caps the backoff delay (in milliseconds)
	MaxDelayMs int `mapstructure:"max_delay_ms"`
}

// CacheConfig controls the hook result cache
type CacheConfig struct {
	// TTLSeconds is how long cached results stay valid (in seconds)
	TTLSeconds int `mapstructure:"ttl_seconds"`
}

// LoggingConfig controls structured logging
type LoggingConfig struct {
	// Enabled turns file logging on or off
	Enabled bool `mapstructure:"enabled"`
	// Level is the minimum log level: "debug", "info", "warn", "error"
	Level string `mapstructure:"level"`
	// MaxSizeMB is the log size that triggers rotation
	MaxSizeMB int `mapstructure:"max_size_mb"`
	// MaxBackups is how many rotated log files to keep
	MaxBackups int `mapstructure:"max_backups"`
	// Compress gzips rotated log files
	Compress bool `mapstructure:"compress"`
}

// HookDef is a hook as declared in the configuration file. Durations are
// expressed in integer units so definitions stay plain YAML scalars.
type HookDef struct {
	ID        string   `mapstructure:"id"`
	Kind      string   `mapstructure:"kind"`
	Phase     string   `mapstructure:"phase"`
	Priority  int      `mapstructure:"priority"`
	Enabled   bool     `mapstructure:"enabled"`
	Agents    []string `mapstructure:"agents"`
	DependsOn []string `mapstructure:"depends_on"`
	Category  string   `mapstructure:"category"`
	Tags      []string `mapstructure:"tags"`
	Version   string   `mapstructure:"version"`

	Strategy           string            `mapstructure:"strategy"`
	TimeoutMs          int               `mapstructure:"timeout_ms"`
	MaxRetries         int               `mapstructure:"max_retries"`
	FallbackEnabled    bool              `mapstructure:"fallback_enabled"`
	CacheEnabled       bool              `mapstructure:"cache_enabled"`
	ParallelAllowed    bool              `mapstructure:"parallel_allowed"`
	Environments       []string          `mapstructure:"environments"`
	Conditions         map[string]string `mapstructure:"conditions"`
	ConsensusThreshold float64           `mapstructure:"consensus_threshold"`
}

// ToHook converts the definition into a registrable hook.
func (d HookDef) ToHook() hook.Hook {
	h := hook.Hook{
		ID:        d.ID,
		Kind:      d.Kind,
		Phase:     event.Phase(d.Phase),
		Priority:  d.Priority,
		Enabled:   d.Enabled,
		Agents:    d.Agents,
		DependsOn: d.DependsOn,
		Category:  d.Category,
		Tags:      d.Tags,
		Version:   d.Version,
		Config: hook.Config{
			Strategy:           d.Strategy,
			Timeout:            time.Duration(d.TimeoutMs) * time.Millisecond,
			MaxRetries:         d.MaxRetries,
			FallbackEnabled:    d.FallbackEnabled,
			CacheEnabled:       d.CacheEnabled,
			ParallelAllowed:    d.ParallelAllowed,
			Environments:       d.Environments,
			Conditions:         d.Conditions,
			ConsensusThreshold: d.ConsensusThreshold,
		},
	}
	h.Normalize()
	return h
}

// Default returns the default configuration
func Default() *Config {
	return &Config{
		Kernel: KernelConfig{
			Environment:   "production",
			SoftLatencyMs: 50,
		},
		Bus: BusConfig{
			QueueSize:   256,
			BatchSize:   10,
			DrainTickMs: 10,
			HistorySize: 100,
		},
		Breaker: BreakerConfig{
			WindowSize:      100,
			Threshold:       0.5,
			ResetTimeoutSec: 30,
		},
		Retry: RetryConfig{
			MaxAttempts: 3,
			DelayMs:     100,
			Backoff:     "exponential",
			MaxDelayMs:  5000,
		},
		Cache: CacheConfig{
			TTLSeconds: 30,
		},
		Logging: LoggingConfig{
			Enabled:    true,
			Level:      "info",
			MaxSizeMB:  10,
			MaxBackups: 3,
		},
		Hooks: []HookDef{},
	}
}

// SoftLatency returns the latency target as a time.Duration
func (k *KernelConfig) SoftLatency() time.Duration {
	return time.Duration(k.SoftLatencyMs) * time.Millisecond
}

// DrainTick returns the drain interval as a time.Duration
func (b *BusConfig) DrainTick() time.Duration {
	return time.Duration(b.DrainTickMs) * time.Millisecond
}

// ResetTimeout returns the breaker reset timeout as a time.Duration
func (b *BreakerConfig) ResetTimeout() time.Duration {
	return time.Duration(b.ResetTimeoutSec) * time.Second
}

// Delay returns the base retry delay as a time.Duration
func (r *RetryConfig) Delay() time.Duration {
	return time.Duration(r.DelayMs) * time.Millisecond
}

// MaxDelay returns the retry delay cap as a time.Duration
func (r *RetryConfig) MaxDelay() time.Duration {
	return time.Duration(r.MaxDelayMs) * time.Millisecond
}

// TTL returns the cache TTL as a time.Duration
func (c *CacheConfig) TTL() time.Duration {
	return time.Duration(c.TTLSeconds) * time.Second
}

// SetDefaults registers default values with viper
func SetDefaults() {
	defaults := Default()

	viper.SetDefault("kernel.environment", defaults.Kernel.Environment)
	viper.SetDefault("kernel.soft_latency_ms", defaults.Kernel.SoftLatencyMs)

	viper.SetDefault("bus.queue_size", defaults.Bus.QueueSize)
	viper.SetDefault("bus.batch_size", defaults.Bus.BatchSize)
	viper.SetDefault("bus.drain_tick_ms", defaults.Bus.DrainTickMs)
	viper.SetDefault("bus.history_size", defaults.Bus.HistorySize)

	viper.SetDefault("breaker.window_size", defaults.Breaker.WindowSize)
	viper.SetDefault("breaker.threshold", defaults.Breaker.Threshold)
	viper.SetDefault("breaker.reset_timeout_sec", defaults.Breaker.ResetTimeoutSec)

	viper.SetDefault("retry.max_attempts", defaults.Retry.MaxAttempts)
	viper.SetDefault("retry.delay_ms", defaults.Retry.DelayMs)
	viper.SetDefault("retry.backoff", defaults.Retry.Backoff)
	viper.SetDefault("retry.max_delay_ms", defaults.Retry.MaxDelayMs)

	viper.SetDefault("cache.ttl_seconds", defaults.Cache.TTLSeconds)

	viper.SetDefault("logging.enabled", defaults.Logging.Enabled)
	viper.SetDefault("logging.level", defaults.Logging.Level)
	viper.SetDefault("logging.max_size_mb", defaults.Logging.MaxSizeMB)
	viper.SetDefault("logging.max_backups", defaults.Logging.MaxBackups)
	viper.SetDefault("logging.compress", defaults.Logging.Compress)
}

// Load reads the configuration from viper into a Config struct and validates it
func Load() (*Config, error) {
	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, ValidationErrors(errs)
	}

	return &cfg, nil
}

// Get returns the current configuration (convenience function)
func Get() *Config {
	cfg, err := Load()
	if err != nil {
		// Fall back to defaults if unmarshaling fails
		return Default()
	}
	return cfg
}

// ConfigDir returns the path to the user's config directory
func ConfigDir() string {
	// Check XDG_CONFIG_HOME first
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "hookflow")
	}
	// Fall back to ~/.config/hookflow
	home, err := os.UserHomeDir()
	if err != nil {
		return ".hookflow"
	}
	return filepath.Join(home, ".config", "hookflow")
}

// ConfigFile returns the path to the config file
func ConfigFile() string {
	return filepath.Join(ConfigDir(), "config.yaml")
}
