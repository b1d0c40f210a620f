// Package hook defines hook registration, the dependency graph, and
// enable/disable cascade semantics for the hookflow kernel.
package hook

import (
	"time"

	"github.com/gobwas/glob"

	"github.com/hookflow/hookflow/internal/event"
)

// Default hook configuration values applied by Normalize.
const (
	DefaultTimeout = 5 * time.Second
)

// NoRetries as a Config.MaxRetries value disables retries for the hook.
// Zero means the kernel's retry policy applies.
const NoRetries = -1

// Config holds per-hook dispatch configuration.
type Config struct {
	// Strategy selects the coordination strategy kind
	// (parallel, sequential, consensus, roundrobin).
	Strategy string `mapstructure:"strategy" json:"strategy"`
	// Timeout bounds a single dispatch of this hook.
	Timeout time.Duration `mapstructure:"timeout" json:"timeout"`
	// MaxRetries bounds retry attempts for retryable failures. Zero
	// inherits the kernel's retry policy; NoRetries disables retries.
	MaxRetries int `mapstructure:"max_retries" json:"max_retries"`
	// FallbackEnabled allows the consensus strategy to run its fallback.
	FallbackEnabled bool `mapstructure:"fallback_enabled" json:"fallback_enabled"`
	// CacheEnabled allows results to be served from the kernel cache.
	CacheEnabled bool `mapstructure:"cache_enabled" json:"cache_enabled"`
	// ParallelAllowed permits concurrent fan-out for this hook.
	ParallelAllowed bool `mapstructure:"parallel_allowed" json:"parallel_allowed"`
	// Environments restricts the hook to matching environments
	// (glob patterns; empty means all environments).
	Environments []string `mapstructure:"environments" json:"environments,omitempty"`
	// Conditions maps event context keys to glob patterns that must all
	// match for the hook to apply.
	Conditions map[string]string `mapstructure:"conditions" json:"conditions,omitempty"`
	// ConsensusThreshold is the agreement fraction (0-1) required by the
	// consensus strategy.
	ConsensusThreshold float64 `mapstructure:"consensus_threshold" json:"consensus_threshold"`
}

// Hook is a registered unit of logic bound to an event kind and phase.
// Hooks are owned exclusively by the Store; callers receive copies.
type Hook struct {
	// ID uniquely identifies the hook.
	ID string `mapstructure:"id" json:"id"`
	// Kind is the event kind this hook applies to.
	Kind string `mapstructure:"kind" json:"kind"`
	// Phase is pre or post.
	Phase event.Phase `mapstructure:"phase" json:"phase"`
	// Priority orders hooks within a match set, higher first.
	Priority int `mapstructure:"priority" json:"priority"`
	// Enabled controls whether the hook participates in matching.
	Enabled bool `mapstructure:"enabled" json:"enabled"`
	// Agents names the agents executing this hook, resolved against the
	// roster at dispatch time.
	Agents []string `mapstructure:"agents" json:"agents"`
	// DependsOn lists hook IDs that must be registered and enabled for
	// this hook to run.
	DependsOn []string `mapstructure:"depends_on" json:"depends_on,omitempty"`
	// Category groups hooks for querying.
	Category string `mapstructure:"category" json:"category,omitempty"`
	// Tags label hooks for querying.
	Tags []string `mapstructure:"tags" json:"tags,omitempty"`
	// Version tags the hook definition.
	Version string `mapstructure:"version" json:"version,omitempty"`
	// Config holds dispatch configuration.
	Config Config `mapstructure:"config" json:"config"`
}

// Normalize fills zero-valued configuration with defaults.
func (h *Hook) Normalize() {
	if h.Config.Timeout <= 0 {
		h.Config.Timeout = DefaultTimeout
	}
	if h.Config.MaxRetries < NoRetries {
		h.Config.MaxRetries = NoRetries
	}
	if h.Config.Strategy == "" {
		h.Config.Strategy = "sequential"
	}
}

// clone returns a deep copy so store internals never escape.
func (h Hook) clone() Hook {
	out := h
	out.Agents = append([]string(nil), h.Agents...)
	out.DependsOn = append([]string(nil), h.DependsOn...)
	out.Tags = append([]string(nil), h.Tags...)
	out.Config.Environments = append([]string(nil), h.Config.Environments...)
	if h.Config.Conditions != nil {
		out.Config.Conditions = make(map[string]string, len(h.Config.Conditions))
		for k, v := range h.Config.Conditions {
			out.Config.Conditions[k] = v
		}
	}
	return out
}

// AppliesTo reports whether the hook matches the event's kind and phase and
// whether the environment and context conditions hold. Environment and
// condition values are glob patterns; malformed patterns never match.
func (h Hook) AppliesTo(evt event.Event, environment string) bool {
	if h.Kind != evt.Kind || h.Phase != evt.Phase {
		return false
	}
	if len(h.Config.Environments) > 0 {
		matched := false
		for _, pattern := range h.Config.Environments {
			if globMatch(pattern, environment) {
				matched = true
				break
			}
		}
		if !matched {
			return false
		}
	}
	for key, pattern := range h.Config.Conditions {
		if !globMatch(pattern, evt.ContextString(key)) {
			return false
		}
	}
	return true
}

func globMatch(pattern, value string) bool {
	g, err := glob.Compile(pattern)
	if err != nil {
		return false
	}
	return g.Match(value)
}

// PriorityTier buckets numeric priorities for querying.
type PriorityTier string

const (
	TierCritical PriorityTier = "critical" // >= 100
	TierHigh     PriorityTier = "high"     // >= 50
	TierMedium   PriorityTier = "medium"   // >= 10
	TierLow      PriorityTier = "low"      // < 10
)

// Tier returns the priority tier of the hook.
func (h Hook) Tier() PriorityTier {
	switch {
	case h.Priority >= 100:
		return TierCritical
	case h.Priority >= 50:
		return TierHigh
	case h.Priority >= 10:
		return TierMedium
	default:
		return TierLow
	}
}

// Filter selects hooks from the store. Zero-valued fields match everything;
// set fields combine with AND. Tags match if the hook carries every listed
// tag.
type Filter struct {
	Kind     string
	Phase    event.Phase
	Tier     PriorityTier
	Enabled  *bool
	Category string
	Tags     []string
}

func (f Filter) matches(h Hook) bool {
	if f.Kind != "" && h.Kind != f.Kind {
		return false
	}
	if f.Phase != "" && h.Phase != f.Phase {
		return false
	}
	if f.Tier != "" && h.Tier() != f.Tier {
		return false
	}
	if f.Enabled != nil && h.Enabled != *f.Enabled {
		return false
	}
	if f.Category != "" && h.Category != f.Category {
		return false
	}
	for _, want := range f.Tags {
		found := false
		for _, tag := range h.Tags {
			if tag == want {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}
