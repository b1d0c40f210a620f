package config

import (
	"fmt"
	"slices"
	"strings"
)

// ValidationError represents a single validation failure
type ValidationError struct {
	Field   string // The config field path (e.g., "bus.queue_size")
	Value   any    // The invalid value
	Message string // Human-readable error description
}

// Error implements the error interface for ValidationError
func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s (got: %v)", e.Field, e.Message, e.Value)
}

// ValidationErrors is a collection of validation errors
type ValidationErrors []ValidationError

// Error implements the error interface for ValidationErrors
func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return ""
	}
	if len(e) == 1 {
		return e[0].Error()
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%d validation errors:\n", len(e)))
	for i, err := range e {
		sb.WriteString(fmt.Sprintf("  %d. %s\n", i+1, err.Error()))
	}
	return sb.String()
}

// ValidLogLevels returns the list of valid log levels
func ValidLogLevels() []string {
	return []string{"debug", "info", "warn", "error"}
}

// ValidBackoffs returns the list of valid retry backoff curves
func ValidBackoffs() []string {
	return []string{"fixed", "linear", "exponential"}
}

// ValidStrategies returns the list of valid hook strategy kinds
func ValidStrategies() []string {
	return []string{"parallel", "sequential", "consensus", "roundrobin"}
}

// ValidPhases returns the list of valid hook phases
func ValidPhases() []string {
	return []string{"pre", "post"}
}

// Validate checks the Config for invalid values and returns all validation errors found
func (c *Config) Validate() []ValidationError {
	var errors []ValidationError

	errors = append(errors, c.validateKernel()...)
	errors = append(errors, c.validateBus()...)
	errors = append(errors, c.validateBreaker()...)
	errors = append(errors, c.validateRetry()...)
	errors = append(errors, c.validateCache()...)
	errors = append(errors, c.validateLogging()...)
	errors = append(errors, c.validateHooks()...)

	return errors
}

func (c *Config) validateKernel() []ValidationError {
	var errors []ValidationError

	if c.Kernel.SoftLatencyMs < 0 {
		errors = append(errors, ValidationError{
			Field:   "kernel.soft_latency_ms",
			Value:   c.Kernel.SoftLatencyMs,
			Message: "must not be negative",
		})
	}

	return errors
}

func (c *Config) validateBus() []ValidationError {
	var errors []ValidationError

	if c.Bus.QueueSize < 1 {
		errors = append(errors, ValidationError{
			Field:   "bus.queue_size",
			Value:   c.Bus.QueueSize,
			Message: "must be at least 1",
		})
	}
	if c.Bus.BatchSize < 1 {
		errors = append(errors, ValidationError{
			Field:   "bus.batch_size",
			Value:   c.Bus.BatchSize,
			Message: "must be at least 1",
		})
	}
	if c.Bus.DrainTickMs < 1 {
		errors = append(errors, ValidationError{
			Field:   "bus.drain_tick_ms",
			Value:   c.Bus.DrainTickMs,
			Message: "must be at least 1",
		})
	}
	if c.Bus.HistorySize < 0 {
		errors = append(errors, ValidationError{
			Field:   "bus.history_size",
			Value:   c.Bus.HistorySize,
			Message: "must not be negative",
		})
	}

	return errors
}

func (c *Config) validateBreaker() []ValidationError {
	var errors []ValidationError

	if c.Breaker.WindowSize < 1 {
		errors = append(errors, ValidationError{
			Field:   "breaker.window_size",
			Value:   c.Breaker.WindowSize,
			Message: "must be at least 1",
		})
	}
	if c.Breaker.Threshold <= 0 || c.Breaker.Threshold > 1 {
		errors = append(errors, ValidationError{
			Field:   "breaker.threshold",
			Value:   c.Breaker.Threshold,
			Message: "must be greater than 0 and at most 1",
		})
	}
	if c.Breaker.ResetTimeoutSec < 1 {
		errors = append(errors, ValidationError{
			Field:   "breaker.reset_timeout_sec",
			Value:   c.Breaker.ResetTimeoutSec,
			Message: "must be at least 1",
		})
	}

	return errors
}

func (c *Config) validateRetry() []ValidationError {
	var errors []ValidationError

	if c.Retry.MaxAttempts < 1 {
		errors = append(errors, ValidationError{
			Field:   "retry.max_attempts",
			Value:   c.Retry.MaxAttempts,
			Message: "must be at least 1",
		})
	}
	if c.Retry.DelayMs < 1 {
		errors = append(errors, ValidationError{
			Field:   "retry.delay_ms",
			Value:   c.Retry.DelayMs,
			Message: "must be at least 1",
		})
	}
	if !slices.Contains(ValidBackoffs(), c.Retry.Backoff) {
		errors = append(errors, ValidationError{
			Field:   "retry.backoff",
			Value:   c.Retry.Backoff,
			Message: fmt.Sprintf("must be one of: %s", strings.Join(ValidBackoffs(), ", ")),
		})
	}
	if c.Retry.MaxDelayMs < c.Retry.DelayMs {
		errors = append(errors, ValidationError{
			Field:   "retry.max_delay_ms",
			Value:   c.Retry.MaxDelayMs,
			Message: "must be at least retry.delay_ms",
		})
	}

	return errors
}

func (c *Config) validateCache() []ValidationError {
	var errors []ValidationError

	if c.Cache.TTLSeconds < 1 {
		errors = append(errors, ValidationError{
			Field:   "cache.ttl_seconds",
			Value:   c.Cache.TTLSeconds,
			Message: "must be at least 1",
		})
	}

	return errors
}

func (c *Config) validateLogging() []ValidationError {
	var errors []ValidationError

	if !slices.Contains(ValidLogLevels(), c.Logging.Level) {
		errors = append(errors, ValidationError{
			Field:   "logging.level",
			Value:   c.Logging.Level,
			Message: fmt.Sprintf("must be one of: %s", strings.Join(ValidLogLevels(), ", ")),
		})
	}
	if c.Logging.MaxSizeMB < 1 {
		errors = append(errors, ValidationError{
			Field:   "logging.max_size_mb",
			Value:   c.Logging.MaxSizeMB,
			Message: "must be at least 1",
		})
	}
	if c.Logging.MaxBackups < 0 {
		errors = append(errors, ValidationError{
			Field:   "logging.max_backups",
			Value:   c.Logging.MaxBackups,
			Message: "must not be negative",
		})
	}

	return errors
}

func (c *Config) validateHooks() []ValidationError {
	var errors []ValidationError

	seen := make(map[string]bool, len(c.Hooks))
	for i, d := range c.Hooks {
		field := func(name string) string {
			return fmt.Sprintf("hooks[%d].%s", i, name)
		}

		if d.ID == "" {
			errors = append(errors, ValidationError{
				Field:   field("id"),
				Value:   d.ID,
				Message: "must not be empty",
			})
		} else if seen[d.ID] {
			errors = append(errors, ValidationError{
				Field:   field("id"),
				Value:   d.ID,
				Message: "duplicate hook id",
			})
		}
		seen[d.ID] = true

		if d.Kind == "" {
			errors = append(errors, ValidationError{
				Field:   field("kind"),
				Value:   d.Kind,
				Message: "must not be empty",
			})
		}
		if !slices.Contains(ValidPhases(), d.Phase) {
			errors = append(errors, ValidationError{
				Field:   field("phase"),
				Value:   d.Phase,
				Message: fmt.Sprintf("must be one of: %s", strings.Join(ValidPhases(), ", ")),
			})
		}
		if d.Strategy != "" && !slices.Contains(ValidStrategies(), d.Strategy) {
			errors = append(errors, ValidationError{
				Field:   field("strategy"),
				Value:   d.Strategy,
				Message: fmt.Sprintf("must be one of: %s", strings.Join(ValidStrategies(), ", ")),
			})
		}
		if d.ConsensusThreshold < 0 || d.ConsensusThreshold > 1 {
			errors = append(errors, ValidationError{
				Field:   field("consensus_threshold"),
				Value:   d.ConsensusThreshold,
				Message: "must be between 0 and 1",
			})
		}
		if d.TimeoutMs < 0 {
			errors = append(errors, ValidationError{
				Field:   field("timeout_ms"),
				Value:   d.TimeoutMs,
				Message: "must not be negative",
			})
		}
	}

	return errors
}
