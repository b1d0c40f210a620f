package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/hookflow/hookflow/internal/agent"
	"github.com/hookflow/hookflow/internal/breaker"
	"github.com/hookflow/hookflow/internal/config"
	"github.com/hookflow/hookflow/internal/event"
	"github.com/hookflow/hookflow/internal/hook"
	"github.com/hookflow/hookflow/internal/kernel"
	"github.com/hookflow/hookflow/internal/logging"
	"github.com/hookflow/hookflow/internal/retry"
)

// buildKernel assembles a kernel from the loaded configuration and
// registers its configured hooks.
func buildKernel(cfg *config.Config, logger *logging.Logger) (*kernel.Manager, *event.Bus, error) {
	bus := event.NewBus(
		event.WithQueueSize(cfg.Bus.QueueSize),
		event.WithBatchSize(cfg.Bus.BatchSize),
		event.WithDrainTick(cfg.Bus.DrainTick()),
		event.WithHistorySize(cfg.Bus.HistorySize),
		event.WithLogger(logger),
	)
	store := hook.NewStore(logger)
	roster := agent.NewRoster()

	mgr := kernel.NewManager(store, bus, roster, logger,
		kernel.WithEnvironment(cfg.Kernel.Environment),
		kernel.WithSoftLatency(cfg.Kernel.SoftLatency()),
		kernel.WithCacheTTL(cfg.Cache.TTL()),
		kernel.WithBreakerConfig(breaker.Config{
			WindowSize:   cfg.Breaker.WindowSize,
			Threshold:    cfg.Breaker.Threshold,
			ResetTimeout: cfg.Breaker.ResetTimeout(),
		}),
		kernel.WithRetryPolicy(retry.Policy{
			MaxAttempts: cfg.Retry.MaxAttempts,
			Delay:       cfg.Retry.Delay(),
			Backoff:     retry.Backoff(cfg.Retry.Backoff),
			MaxDelay:    cfg.Retry.MaxDelay(),
		}),
	)

	hooks := make([]hook.Hook, 0, len(cfg.Hooks))
	for _, d := range cfg.Hooks {
		hooks = append(hooks, d.ToHook())
	}
	if len(hooks) > 0 {
		if err := mgr.RegisterHooks(hooks); err != nil {
			return nil, nil, fmt.Errorf("failed to register configured hooks: %w", err)
		}
	}
	return mgr, bus, nil
}

// watchConfig starts a watcher on the config file so edits made while the
// kernel runs surface as config.changed events. A subscriber logs each
// change; reloading is deferred to the next invocation. The caller owns
// the returned watcher and must Close it.
func watchConfig(path string, bus *event.Bus, logger *logging.Logger) (*config.Watcher, error) {
	if logger == nil {
		logger = logging.NopLogger()
	}
	w, err := config.NewWatcher(path, bus, logger)
	if err != nil {
		return nil, err
	}
	bus.Subscribe(config.EventKindConfigChanged, func(evt event.Event) bool {
		logger.Info("configuration changed while running, restart to apply",
			"path", evt.ContextString("path"))
		return true
	}, 0)
	w.Start()
	return w, nil
}

// newLogger builds the shared file logger, or a no-op logger when file
// logging is disabled or unavailable.
func newLogger(cfg *config.Config) *logging.Logger {
	if !cfg.Logging.Enabled {
		return logging.NopLogger()
	}
	logger, err := logging.NewLoggerWithRotation(config.ConfigDir(), cfg.Logging.Level, logging.RotationConfig{
		MaxSizeMB:  cfg.Logging.MaxSizeMB,
		MaxBackups: cfg.Logging.MaxBackups,
		Compress:   cfg.Logging.Compress,
	})
	if err != nil {
		return logging.NopLogger()
	}
	return logger
}

// demoRoster registers a deterministic set of demo agents used by the
// simulate command when a config declares hooks referencing them.
func demoRoster(mgr *kernel.Manager) error {
	agents := []agent.Agent{
		&agent.FuncAgent{
			AgentID:     "echo",
			Description: "returns the event kind",
			Run: func(ctx context.Context, evt event.Event) (any, error) {
				return evt.Kind, nil
			},
		},
		&agent.FuncAgent{
			AgentID:     "validator",
			Description: "approves events carrying a non-empty operation",
			Run: func(ctx context.Context, evt event.Event) (any, error) {
				if evt.Operation == "" {
					return nil, fmt.Errorf("missing operation")
				}
				return "valid", nil
			},
		},
		&agent.FuncAgent{
			AgentID:     "slowpoke",
			Description: "sleeps briefly before answering",
			Run: func(ctx context.Context, evt event.Event) (any, error) {
				select {
				case <-ctx.Done():
					return nil, ctx.Err()
				case <-time.After(5 * time.Millisecond):
					return "done", nil
				}
			},
		},
	}
	for _, a := range agents {
		if err := mgr.RegisterAgent(a); err != nil {
			return err
		}
	}
	return nil
}

// demoHooks is the default hook set simulate falls back to when the
// configuration declares none.
func demoHooks() []hook.Hook {
	return []hook.Hook{
		{
			ID:       "demo-validate",
			Kind:     "task.created",
			Phase:    event.PhasePre,
			Priority: 100,
			Enabled:  true,
			Agents:   []string{"validator"},
			Category: "demo",
			Config: hook.Config{
				Strategy: "sequential",
				Timeout:  time.Second,
			},
		},
		{
			ID:        "demo-fanout",
			Kind:      "task.created",
			Phase:     event.PhasePre,
			Priority:  50,
			Enabled:   true,
			Agents:    []string{"echo", "slowpoke"},
			DependsOn: []string{"demo-validate"},
			Category:  "demo",
			Config: hook.Config{
				Strategy:        "parallel",
				ParallelAllowed: true,
				Timeout:         time.Second,
				CacheEnabled:    true,
			},
		},
	}
}
