package kernel

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sourcegraph/conc/pool"
	"golang.org/x/sync/singleflight"

	"github.com/hookflow/hookflow/internal/agent"
	"github.com/hookflow/hookflow/internal/breaker"
	"github.com/hookflow/hookflow/internal/errors"
	"github.com/hookflow/hookflow/internal/event"
	"github.com/hookflow/hookflow/internal/hook"
	"github.com/hookflow/hookflow/internal/logging"
	"github.com/hookflow/hookflow/internal/retry"
	"github.com/hookflow/hookflow/internal/strategy"
)

// DefaultSoftLatency is the per-event latency target. Exceeding it logs a
// warning; it never fails the dispatch.
const DefaultSoftLatency = 50 * time.Millisecond

// EventKindCircuitTransition is emitted on the bus whenever a hook's
// circuit changes state.
const EventKindCircuitTransition = "circuit.transition"

// Manager is the kernel facade: it matches events to hooks, guards each
// hook with a circuit breaker, serves cached results, and dispatches the
// rest through the strategy executor.
type Manager struct {
	store    *hook.Store
	bus      *event.Bus
	roster   *agent.Roster
	executor *strategy.Executor
	logger   *logging.Logger

	policy      retry.Policy
	environment string
	softLatency time.Duration

	mu         sync.Mutex
	breakers   map[string]*breaker.Breaker
	breakerCfg breaker.Config

	cache   *resultCache
	flight  singleflight.Group
	metrics *metricsTracker
}

// Option configures a new Manager.
type Option func(*Manager)

// WithEnvironment sets the environment name hooks' environment globs are
// matched against.
func WithEnvironment(env string) Option {
	return func(m *Manager) { m.environment = env }
}

// WithRetryPolicy replaces the default retry policy.
func WithRetryPolicy(p retry.Policy) Option {
	return func(m *Manager) { m.policy = p }
}

// WithBreakerConfig sets the configuration new per-hook breakers are
// created with.
func WithBreakerConfig(cfg breaker.Config) Option {
	return func(m *Manager) { m.breakerCfg = cfg }
}

// WithSoftLatency overrides the soft latency target.
func WithSoftLatency(d time.Duration) Option {
	return func(m *Manager) {
		if d > 0 {
			m.softLatency = d
		}
	}
}

// WithCacheTTL sets how long cached hook results stay valid.
func WithCacheTTL(ttl time.Duration) Option {
	return func(m *Manager) { m.cache = newResultCache(ttl) }
}

// WithAgreement replaces the consensus agreement function.
func WithAgreement(fn strategy.AgreementFunc) Option {
	return func(m *Manager) {
		m.executor = strategy.NewExecutor(m.roster, m.logger, strategy.WithAgreement(fn))
	}
}

// NewManager wires a kernel around the given store, bus, and roster.
func NewManager(store *hook.Store, bus *event.Bus, roster *agent.Roster, logger *logging.Logger, opts ...Option) *Manager {
	if logger == nil {
		logger = logging.NopLogger()
	}
	m := &Manager{
		store:       store,
		bus:         bus,
		roster:      roster,
		logger:      logger.WithComponent("kernel"),
		policy:      retry.DefaultPolicy(),
		softLatency: DefaultSoftLatency,
		breakers:    make(map[string]*breaker.Breaker),
		cache:       newResultCache(DefaultCacheTTL),
		metrics:     newMetricsTracker(),
	}
	m.executor = strategy.NewExecutor(roster, logger)
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Start begins bus event delivery.
func (m *Manager) Start(ctx context.Context) {
	m.bus.Start(ctx)
	m.logger.Info("kernel started", "environment", m.environment)
}

// Stop halts bus event delivery. In-flight dispatches finish on their own.
func (m *Manager) Stop() {
	m.bus.Stop()
	m.logger.Info("kernel stopped")
}

// Process matches the event against registered hooks and dispatches each
// in priority order. Per-hook failures are aggregated into the result;
// only an invalid event yields an error.
func (m *Manager) Process(ctx context.Context, evt event.Event) (agent.Result, error) {
	start := time.Now()

	if evt.Kind == "" {
		return agent.Result{}, errors.NewValidationError("event kind cannot be empty").WithField("kind")
	}
	if !evt.Phase.Valid() {
		return agent.Result{}, errors.NewValidationError("invalid event phase").
			WithField("phase").
			WithValue(string(evt.Phase))
	}

	meta := agent.Meta{ExecutionID: uuid.NewString()}
	hooks := m.store.Match(evt, m.environment)
	if len(hooks) == 0 {
		res := agent.Succeeded(nil, time.Since(start), meta)
		m.metrics.recordEvent(evt.Priority, res.Elapsed, true)
		return res, nil
	}

	success := true
	allCached := true
	retries := 0
	payloads := make(map[string]any, len(hooks))
	var errs []error

	for _, h := range hooks {
		hr := m.processHook(ctx, h, evt)
		meta.Participants = append(meta.Participants, h.ID)
		payloads[h.ID] = hr.Payload
		retries += hr.Meta.Retries
		if !hr.Meta.CacheHit {
			allCached = false
		}
		if hr.Meta.CircuitOpen {
			meta.CircuitOpen = true
		}
		if !hr.Success {
			success = false
			errs = append(errs, hr.Errors...)
		}
	}

	meta.CacheHit = allCached
	meta.Retries = retries
	res := agent.Result{
		Success: success,
		Elapsed: time.Since(start),
		Payload: payloads,
		Errors:  errs,
		Meta:    meta,
	}

	m.metrics.recordEvent(evt.Priority, res.Elapsed, success)
	if res.Elapsed > m.softLatency {
		m.logger.Warn("event processing exceeded latency target",
			"kind", evt.Kind, "elapsed", res.Elapsed.String(), "target", m.softLatency.String())
	}
	return res, nil
}

// ProcessBatch processes critical events first, strictly in submission
// order, then the rest concurrently. One event's failure never aborts the
// others; results are returned in input order.
func (m *Manager) ProcessBatch(ctx context.Context, events []event.Event) []agent.Result {
	results := make([]agent.Result, len(events))

	for i, evt := range events {
		if evt.Priority == event.PriorityCritical {
			results[i] = m.processIsolated(ctx, evt)
		}
	}

	p := pool.New()
	for i, evt := range events {
		if evt.Priority == event.PriorityCritical {
			continue
		}
		p.Go(func() {
			results[i] = m.processIsolated(ctx, evt)
		})
	}
	p.Wait()
	return results
}

func (m *Manager) processIsolated(ctx context.Context, evt event.Event) agent.Result {
	res, err := m.Process(ctx, evt)
	if err != nil {
		return agent.Failed(err, res.Elapsed, res.Meta)
	}
	return res
}

// processHook runs one matched hook: breaker gate, cache lookup, then
// strategy dispatch. Circuit rejections never invoke an agent.
func (m *Manager) processHook(ctx context.Context, h hook.Hook, evt event.Event) agent.Result {
	start := time.Now()
	br := m.breakerFor(h.ID)

	if !br.Allow() {
		err := errors.NewCircuitOpenError(h.ID, br.NextRetry())
		m.logger.WithHook(h.ID).Warn("dispatch rejected by open circuit",
			"retry_at", br.NextRetry().Format(time.RFC3339))
		m.metrics.recordDispatch(false)
		return agent.Failed(err, time.Since(start), agent.Meta{
			HookID:      h.ID,
			ExecutionID: uuid.NewString(),
			CircuitOpen: true,
		})
	}

	if !h.Config.CacheEnabled {
		m.metrics.recordDispatch(false)
		return m.dispatchHook(ctx, h, evt, start)
	}

	key := cacheKey(h.ID, evt)
	if res, ok := m.cache.get(key); ok {
		res.Meta.CacheHit = true
		m.metrics.recordDispatch(true)
		return res
	}

	executed := false
	v, _, _ := m.flight.Do(key, func() (any, error) {
		executed = true
		res := m.dispatchHook(ctx, h, evt, start)
		if res.Success {
			m.cache.put(key, res)
		}
		return res, nil
	})
	res := v.(agent.Result)
	if !executed {
		// Deduplicated by the flight group: this caller shares the
		// originator's result without dispatching, which is a hit.
		res.Meta.CacheHit = true
	}
	m.metrics.recordDispatch(!executed)
	return res
}

// dispatchHook runs the hook's strategy with retries and records the
// outcome into its breaker.
func (m *Manager) dispatchHook(ctx context.Context, h hook.Hook, evt event.Event, start time.Time) agent.Result {
	s := m.strategyFor(h)

	policy := m.policy
	switch {
	case h.Config.MaxRetries == hook.NoRetries:
		policy.MaxAttempts = 1
	case h.Config.MaxRetries > 0:
		policy.MaxAttempts = h.Config.MaxRetries + 1
	}

	var results []agent.Result
	retries, err := retry.Do(ctx, policy, func(ctx context.Context) error {
		rs, derr := m.executor.Dispatch(ctx, s, evt)
		results = rs
		if derr != nil {
			return derr
		}
		for _, r := range rs {
			if !r.Success {
				return r.Err()
			}
		}
		return nil
	})

	elapsed := time.Since(start)
	br := m.breakerFor(h.ID)
	meta := agent.Meta{
		HookID:       h.ID,
		ExecutionID:  uuid.NewString(),
		Participants: s.Participants,
		Strategy:     string(s.Kind),
		Retries:      retries,
	}

	res := agent.Result{Success: err == nil, Elapsed: elapsed, Meta: meta}
	switch len(results) {
	case 0:
	case 1:
		res.Payload = results[0].Payload
	default:
		payloads := make([]any, len(results))
		for i, r := range results {
			payloads[i] = r.Payload
		}
		res.Payload = payloads
	}
	if err != nil {
		res.Errors = append(res.Errors, err)
		for _, r := range results {
			if !r.Success && r.Err() != nil && r.Err() != err {
				res.Errors = append(res.Errors, r.Err())
			}
		}
		br.RecordFailure(elapsed)
		m.logger.WithHook(h.ID).Warn("hook dispatch failed",
			"strategy", string(s.Kind), "retries", retries, "error", err.Error())
		return res
	}

	br.RecordSuccess(elapsed)
	return res
}

func (m *Manager) strategyFor(h hook.Hook) strategy.Strategy {
	kind := strategy.Kind(h.Config.Strategy)
	if kind == strategy.KindParallel && !h.Config.ParallelAllowed {
		kind = strategy.KindSequential
	}
	s := strategy.Strategy{
		Kind:               kind,
		Participants:       h.Agents,
		Timeout:            h.Config.Timeout,
		ConsensusThreshold: h.Config.ConsensusThreshold,
	}
	if kind == strategy.KindConsensus && h.Config.FallbackEnabled {
		s.Fallback = &strategy.Strategy{
			Kind:         strategy.KindSequential,
			Participants: h.Agents,
			Timeout:      h.Config.Timeout,
		}
	}
	return s
}

// breakerFor returns the hook's breaker, creating it on first use and
// bridging its state changes onto the bus.
func (m *Manager) breakerFor(id string) *breaker.Breaker {
	m.mu.Lock()
	defer m.mu.Unlock()

	b, ok := m.breakers[id]
	if !ok {
		b = breaker.New(id, m.breakerCfg, m.logger)
		b.OnStateChange(func(from, to breaker.State, at time.Time) {
			m.bus.Emit(event.New(EventKindCircuitTransition, event.PhasePost, "transition",
				event.PriorityHigh, map[string]any{
					"hook_id": id,
					"from":    string(from),
					"to":      string(to),
				}))
		})
		m.breakers[id] = b
	}
	return b
}

// PerformanceMetrics returns a snapshot of kernel throughput counters.
func (m *Manager) PerformanceMetrics() PerformanceMetrics {
	return m.metrics.snapshot()
}
